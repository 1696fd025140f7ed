package nova

import (
	"github.com/pkg/errors"
)

// SignedTransaction binds a transaction to proof of authorization: a
// 64-byte Ed25519 signature over the canonical bytes and the public key
// that produced it.
type SignedTransaction struct {
	Transaction Transaction `json:"transaction"`
	Signature   []byte      `json:"signature"`
	PublicKey   []byte      `json:"public_key"`
}

// SignTransaction signs the transaction's raw canonical bytes. That is the
// wire contract: the signing message is SignableBytes itself, not a hash of
// the id, and the verifier uses the same bytes. The returned bundle carries
// a freshly recomputed id, so a stale id on the input cannot survive into
// the signed form.
func SignTransaction(tx *Transaction, kp *KeyPair) (stx *SignedTransaction, err error) {
	if tx == nil {
		err = errors.New("cannot sign a nil transaction")
		return
	}
	if kp == nil {
		err = errors.New("cannot sign without a keypair")
		return
	}

	signable, err := tx.SignableBytes()
	if err != nil {
		err = errors.Wrap(err, "failed to serialize transaction for signing")
		return
	}

	signed := *tx
	signed.ID, err = tx.ComputeID()
	if err != nil {
		return
	}

	stx = &SignedTransaction{
		Transaction: signed,
		Signature:   kp.Sign(signable),
		PublicKey:   kp.PublicKey(),
	}
	return
}

// Verify reports whether the bundle is internally consistent: the embedded
// id matches the transaction body (catches any field edited after signing)
// and the signature validates over the canonical bytes with the embedded
// public key.
//
// It deliberately does not check that the public key derives the sender
// address. That binding is network policy: a transaction signed by some
// other key is well-formed here and rejected by the validator.
//
// Verify never panics and never returns an error; malformed input is
// simply false.
func (stx *SignedTransaction) Verify() bool {
	if stx == nil {
		return false
	}

	signable, err := stx.Transaction.SignableBytes()
	if err != nil {
		return false
	}

	id, err := stx.Transaction.ComputeID()
	if err != nil || id != stx.Transaction.ID {
		return false
	}

	return Verify(stx.PublicKey, signable, stx.Signature)
}
