package nova

import (
	"github.com/pkg/errors"
)

// Wallet bundles a keypair with its derived address and the transaction
// building and signing flow. It is the high-level entry point for
// applications; the lower-level pieces remain available for callers that
// need them.
type Wallet struct {
	kp      *KeyPair
	address string
	locked  bool
}

// TxOption tweaks an optional transaction field during wallet builds.
type TxOption func(*TransactionBuilder)

func WithFee(fee uint64) TxOption {
	return func(b *TransactionBuilder) { b.Fee(fee) }
}

func WithNonce(nonce uint64) TxOption {
	return func(b *TransactionBuilder) { b.Nonce(nonce) }
}

func WithTimestamp(ms uint64) TxOption {
	return func(b *TransactionBuilder) { b.Timestamp(ms) }
}

func WithPayload(data []byte) TxOption {
	return func(b *TransactionBuilder) { b.Payload(data) }
}

// NewWallet creates a wallet with a freshly generated keypair.
func NewWallet() (w *Wallet, err error) {
	kp, err := GenerateKeyPair()
	if err != nil {
		return
	}
	return newWallet(kp)
}

// WalletFromSeed restores a wallet from a 32-byte seed.
func WalletFromSeed(seed []byte) (w *Wallet, err error) {
	kp, err := KeyPairFromSeed(seed)
	if err != nil {
		return
	}
	return newWallet(kp)
}

// WalletFromHex restores a wallet from a hex-encoded seed.
func WalletFromHex(seedHex string) (w *Wallet, err error) {
	kp, err := KeyPairFromHex(seedHex)
	if err != nil {
		return
	}
	return newWallet(kp)
}

// WalletFromMnemonic restores a wallet from a BIP-39 phrase and optional
// passphrase.
func WalletFromMnemonic(mnemonic, passphrase string) (w *Wallet, err error) {
	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return
	}
	defer zeroBytes(seed)
	return WalletFromSeed(seed)
}

// WalletFromKeystore unseals a keystore file into a wallet.
func WalletFromKeystore(file *KeystoreFile, passphrase string) (w *Wallet, err error) {
	kp, err := OpenKeystore(file, passphrase)
	if err != nil {
		return
	}
	return newWallet(kp)
}

// WalletFromShares reconstructs a wallet from recovery shares produced by
// Shares.
func WalletFromShares(shares []Share) (w *Wallet, err error) {
	seed, err := RecoverSeed(shares)
	if err != nil {
		return
	}
	defer zeroBytes(seed)
	return WalletFromSeed(seed)
}

func newWallet(kp *KeyPair) (w *Wallet, err error) {
	address, err := kp.AddressString()
	if err != nil {
		return
	}
	w = &Wallet{kp: kp, address: address}
	return
}

// Address returns the wallet's bech32 address.
func (w *Wallet) Address() string {
	return w.address
}

func (w *Wallet) PublicKey() []byte {
	return w.kp.PublicKey()
}

func (w *Wallet) PublicKeyHex() string {
	return w.kp.PublicKeyHex()
}

// Sign signs an arbitrary message with the wallet key.
func (w *Wallet) Sign(message []byte) (signature []byte, err error) {
	if w.locked {
		err = errors.WithStack(ErrWalletLocked)
		return
	}
	signature = w.kp.Sign(message)
	return
}

// NewTransaction starts a builder with the sender already set to this
// wallet's address.
func (w *Wallet) NewTransaction() *TransactionBuilder {
	return NewTransactionBuilder().Sender(w.address)
}

// SignTx signs a built transaction with the wallet key.
func (w *Wallet) SignTx(tx *Transaction) (stx *SignedTransaction, err error) {
	if w.locked {
		err = errors.WithStack(ErrWalletLocked)
		return
	}
	return SignTransaction(tx, w.kp)
}

// BuildTransfer builds and signs a transfer of value to the given address.
// The receiver must be a well-formed address; fee, nonce, timestamp and
// payload can be overridden through options.
func (w *Wallet) BuildTransfer(to string, value uint64, currency string, opts ...TxOption) (stx *SignedTransaction, err error) {
	if w.locked {
		err = errors.WithStack(ErrWalletLocked)
		return
	}
	if _, err = ParseAddress(to); err != nil {
		return
	}

	b := w.NewTransaction().
		Type(TxTypeTransfer).
		Receiver(to).
		Amount(value, currency)
	for _, opt := range opts {
		opt(b)
	}

	tx, err := b.Build()
	if err != nil {
		return
	}
	return SignTransaction(tx, w.kp)
}

// BuildCreditRequest builds and signs a credit request to a lender. The
// requested limit travels as the transaction amount and the full terms as
// a JSON payload.
func (w *Wallet) BuildCreditRequest(lender string, terms CreditTerms, opts ...TxOption) (stx *SignedTransaction, err error) {
	if w.locked {
		err = errors.WithStack(ErrWalletLocked)
		return
	}
	if _, err = ParseAddress(lender); err != nil {
		return
	}

	payload, err := terms.Bytes()
	if err != nil {
		return
	}

	b := w.NewTransaction().
		Type(TxTypeCreditRequest).
		Receiver(lender).
		Amount(terms.Limit, terms.Currency).
		Payload(payload)
	for _, opt := range opts {
		opt(b)
	}

	tx, err := b.Build()
	if err != nil {
		return
	}
	return SignTransaction(tx, w.kp)
}

// Seal encrypts the wallet seed under a passphrase for storage.
func (w *Wallet) Seal(passphrase string) (file *KeystoreFile, err error) {
	if w.locked {
		err = errors.WithStack(ErrWalletLocked)
		return
	}
	return SealKeyPair(w.kp, passphrase)
}

// Shares splits the wallet seed into recovery shares. Any threshold of
// them reconstruct the wallet through WalletFromShares.
func (w *Wallet) Shares(threshold, total int) (shares []Share, err error) {
	if w.locked {
		err = errors.WithStack(ErrWalletLocked)
		return
	}
	seed := w.kp.Seed()
	defer zeroBytes(seed)
	return SplitSeed(seed, threshold, total)
}

// Zero wipes the wallet's secret key material. Signing operations fail
// with ErrWalletLocked afterwards; the address remains readable.
func (w *Wallet) Zero() {
	w.kp.Zero()
	w.locked = true
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
