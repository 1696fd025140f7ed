package nova

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"
)

// Keystore parameters. The scrypt cost is the common interactive-login
// setting: ~100ms on current hardware, painful enough for offline cracking.
const (
	KeystoreVersion = 1

	keystoreSaltLength  = 16
	keystoreNonceLength = 12

	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

// KeystoreFile is the on-disk form of a sealed keypair. The seed is
// encrypted with AES-256-GCM under a scrypt-derived key; Sealed holds
// nonce || ciphertext. Address is stored in the clear so tools can show
// which identity a file belongs to without asking for the passphrase.
type KeystoreFile struct {
	Version int      `json:"version"`
	Address string   `json:"address"`
	Salt    HexBytes `json:"salt"`
	Sealed  HexBytes `json:"sealed"`
}

// SealKeyPair encrypts the keypair's seed under a passphrase.
func SealKeyPair(kp *KeyPair, passphrase string) (file *KeystoreFile, err error) {
	if kp == nil {
		err = errors.Wrap(ErrMissingField, "keypair")
		return
	}

	address, err := kp.AddressString()
	if err != nil {
		return
	}

	salt := make([]byte, keystoreSaltLength)
	if _, err = rand.Read(salt); err != nil {
		err = errors.Wrap(err, "failed to read entropy for keystore salt")
		return
	}

	aead, err := keystoreCipher(passphrase, salt)
	if err != nil {
		return
	}

	nonce := make([]byte, keystoreNonceLength)
	if _, err = rand.Read(nonce); err != nil {
		err = errors.Wrap(err, "failed to read entropy for keystore nonce")
		return
	}

	seed := kp.Seed()
	defer zeroBytes(seed)

	sealed := aead.Seal(nonce, nonce, seed, nil)
	file = &KeystoreFile{
		Version: KeystoreVersion,
		Address: address,
		Salt:    salt,
		Sealed:  sealed,
	}
	return
}

// OpenKeystore decrypts a sealed keystore back into a usable keypair.
// Every decrypt failure reports the same error; the file format does not
// distinguish a wrong passphrase from a corrupted ciphertext.
func OpenKeystore(file *KeystoreFile, passphrase string) (kp *KeyPair, err error) {
	if file == nil {
		err = errors.Wrap(ErrMissingField, "keystore file")
		return
	}
	if file.Version != KeystoreVersion {
		err = errors.Wrapf(ErrKeystoreVersion, "got version %d", file.Version)
		return
	}
	if len(file.Sealed) < keystoreNonceLength {
		err = errors.WithStack(ErrKeystoreDecrypt)
		return
	}

	aead, err := keystoreCipher(passphrase, file.Salt)
	if err != nil {
		return
	}

	nonce := file.Sealed[:keystoreNonceLength]
	seed, err := aead.Open(nil, nonce, file.Sealed[keystoreNonceLength:], nil)
	if err != nil {
		err = errors.WithStack(ErrKeystoreDecrypt)
		return
	}
	defer zeroBytes(seed)

	return KeyPairFromSeed(seed)
}

func keystoreCipher(passphrase string, salt []byte) (aead cipher.AEAD, err error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		err = errors.Wrap(err, "scrypt key derivation failed")
		return
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		err = errors.WithStack(err)
		return
	}

	aead, err = cipher.NewGCM(block)
	err = errors.WithStack(err)
	return
}

// Write stores the keystore as pretty-printed JSON, readable only by the
// owner.
func (f *KeystoreFile) Write(path string) (err error) {
	out, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.Wrapf(os.WriteFile(path, out, 0o600), "failed to write keystore %s", path)
}

// ReadKeystore loads a keystore file written by Write.
func ReadKeystore(path string) (file *KeystoreFile, err error) {
	in, err := os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read keystore %s", path)
		return
	}

	file = &KeystoreFile{}
	if err = json.Unmarshal(in, file); err != nil {
		err = errors.Wrapf(err, "keystore %s is not valid json", path)
		return
	}
	return
}
