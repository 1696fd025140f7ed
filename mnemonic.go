package nova

import (
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
)

// NewMnemonic generates a fresh 24-word BIP-39 phrase from 256 bits of
// entropy.
func NewMnemonic() (mnemonic string, err error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		err = errors.Wrap(err, "failed to read entropy for mnemonic")
		return
	}

	mnemonic, err = bip39.NewMnemonic(entropy)
	err = errors.WithStack(err)
	return
}

// ValidMnemonic reports whether the phrase has a known word list and a
// correct checksum.
func ValidMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// SeedFromMnemonic derives a signing seed from a BIP-39 phrase and an
// optional passphrase. The BIP-39 KDF yields 64 bytes; the first
// SeedLength of them become the Ed25519 seed.
func SeedFromMnemonic(mnemonic, passphrase string) (seed []byte, err error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		err = errors.WithStack(ErrInvalidMnemonic)
		return
	}

	full := bip39.NewSeed(mnemonic, passphrase)
	seed = make([]byte, SeedLength)
	copy(seed, full[:SeedLength])
	zeroBytes(full)
	return
}
