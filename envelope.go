package nova

import (
	"encoding/base64"
	"encoding/hex"
	"strconv"

	"github.com/pkg/errors"
)

// SubmissionEnvelope is the JSON form of a signed transaction accepted by
// nova_sendTransaction. Every integer travels as a decimal string because
// JSON numbers lose precision above 2^53 in the browser and in several node
// implementations; the payload is base64 and the signature and public key
// are hex.
type SubmissionEnvelope struct {
	Version   string         `json:"version"`
	Type      string         `json:"tx_type"`
	Sender    string         `json:"sender"`
	Receiver  string         `json:"receiver"`
	Amount    EnvelopeAmount `json:"amount"`
	Fee       string         `json:"fee"`
	Nonce     string         `json:"nonce"`
	Timestamp string         `json:"timestamp"`
	Payload   string         `json:"payload,omitempty"`
	TxID      string         `json:"tx_id"`
	Signature string         `json:"signature"`
	PublicKey string         `json:"public_key"`
}

type EnvelopeAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Envelope serializes the bundle for submission.
func (stx *SignedTransaction) Envelope() (env *SubmissionEnvelope, err error) {
	id, err := stx.Transaction.ComputeID()
	if err != nil {
		err = errors.Wrap(err, "failed to compute id for envelope")
		return
	}

	env = &SubmissionEnvelope{
		Version:  strconv.FormatUint(uint64(stx.Transaction.Version), 10),
		Type:     string(stx.Transaction.Type),
		Sender:   stx.Transaction.Sender,
		Receiver: stx.Transaction.Receiver,
		Amount: EnvelopeAmount{
			Value:    strconv.FormatUint(stx.Transaction.Amount.Value, 10),
			Currency: stx.Transaction.Amount.Currency,
		},
		Fee:       strconv.FormatUint(stx.Transaction.Fee, 10),
		Nonce:     strconv.FormatUint(stx.Transaction.Nonce, 10),
		Timestamp: strconv.FormatUint(stx.Transaction.Timestamp, 10),
		TxID:      id,
		Signature: hex.EncodeToString(stx.Signature),
		PublicKey: hex.EncodeToString(stx.PublicKey),
	}

	if len(stx.Transaction.Payload) > 0 {
		env.Payload = base64.StdEncoding.EncodeToString(stx.Transaction.Payload)
	}

	return
}

// SignedTransaction decodes the envelope back into a verifiable bundle.
// The embedded id is kept as received so that Verify can catch envelopes
// whose body was altered in flight.
func (env *SubmissionEnvelope) SignedTransaction() (stx *SignedTransaction, err error) {
	version, err := strconv.ParseUint(env.Version, 10, 16)
	if err != nil {
		err = errors.Wrapf(err, "invalid version '%s'", env.Version)
		return
	}

	tx := Transaction{
		Version:  uint16(version),
		Type:     TxType(env.Type),
		Sender:   env.Sender,
		Receiver: env.Receiver,
		ID:       env.TxID,
	}

	if err = tx.Type.Validate(); err != nil {
		return
	}

	for _, field := range []struct {
		name string
		in   string
		out  *uint64
	}{
		{"amount.value", env.Amount.Value, &tx.Amount.Value},
		{"fee", env.Fee, &tx.Fee},
		{"nonce", env.Nonce, &tx.Nonce},
		{"timestamp", env.Timestamp, &tx.Timestamp},
	} {
		*field.out, err = strconv.ParseUint(field.in, 10, 64)
		if err != nil {
			err = errors.Wrapf(err, "invalid %s '%s'", field.name, field.in)
			return
		}
	}

	tx.Amount.Currency = env.Amount.Currency
	if err = tx.Amount.Validate(); err != nil {
		return
	}

	if env.Payload != "" {
		tx.Payload, err = base64.StdEncoding.DecodeString(env.Payload)
		if err != nil {
			err = errors.Wrap(err, "invalid base64 payload")
			return
		}
	}

	signature, err := hex.DecodeString(env.Signature)
	if err != nil {
		err = errors.Wrap(err, "invalid signature hex")
		return
	}
	if len(signature) != SignatureLength {
		err = errors.Wrapf(ErrInvalidSignatureLength, "got %d bytes", len(signature))
		return
	}

	publicKey, err := hex.DecodeString(env.PublicKey)
	if err != nil {
		err = errors.Wrap(err, "invalid public key hex")
		return
	}
	if _, err = PublicKeyFromBytes(publicKey); err != nil {
		return
	}

	stx = &SignedTransaction{
		Transaction: tx,
		Signature:   signature,
		PublicKey:   publicKey,
	}
	return
}
