package nova

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const (
	SeedLength      = ed25519.SeedSize
	PublicKeyLength = ed25519.PublicKeySize
	SignatureLength = ed25519.SignatureSize
)

// KeyPair is an Ed25519 signing identity. The secret key never leaves the
// struct: callers sign through the Sign method rather than reading key
// material out.
type KeyPair struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

func GenerateKeyPair() (kp *KeyPair, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		err = errors.Wrap(err, "failed to read entropy for keypair")
		return
	}

	kp = &KeyPair{priv: priv, pub: pub}
	return
}

// KeyPairFromSeed derives a keypair deterministically from a 32-byte seed.
// The same seed always yields the same keypair; this is how wallet restore
// from a backup works.
func KeyPairFromSeed(seed []byte) (kp *KeyPair, err error) {
	if len(seed) != SeedLength {
		err = errors.Wrapf(ErrInvalidSeedLength, "got %d bytes", len(seed))
		return
	}

	priv := ed25519.NewKeyFromSeed(seed)
	kp = &KeyPair{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}
	return
}

func KeyPairFromHex(seedHex string) (kp *KeyPair, err error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		err = errors.Wrapf(ErrInvalidSeedLength, "seed is not valid hex: %v", err)
		return
	}
	return KeyPairFromSeed(seed)
}

// Sign signs an arbitrary message and returns the 64-byte signature.
func (kp *KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.priv, message)
}

// Seed returns a copy of the 32-byte secret seed, for sealing into a
// keystore or splitting into recovery shares. Callers own the copy and
// should zero it when done.
func (kp *KeyPair) Seed() []byte {
	seed := make([]byte, SeedLength)
	copy(seed, kp.priv.Seed())
	return seed
}

// Zero wipes the secret key material in place. The keypair is unusable
// afterwards; signing will produce garbage that fails verification.
func (kp *KeyPair) Zero() {
	for i := range kp.priv {
		kp.priv[i] = 0
	}
}

func (kp *KeyPair) PublicKey() []byte {
	pub := make([]byte, PublicKeyLength)
	copy(pub, kp.pub)
	return pub
}

func (kp *KeyPair) PublicKeyHex() string {
	return hex.EncodeToString(kp.pub)
}

func (kp *KeyPair) PublicKeyBase58() string {
	return base58.Encode(kp.pub)
}

func (kp *KeyPair) Address() (Address, error) {
	return EncodeAddress(kp.pub)
}

func (kp *KeyPair) AddressString() (string, error) {
	return DeriveAddress(kp.pub)
}

// PublicKeyFromBytes validates that b is a canonical point on the Ed25519
// curve and returns it as a usable public key. Signature verification with
// a key that never went through this check still just returns false, but
// rejecting junk early gives callers a usable error instead.
func PublicKeyFromBytes(b []byte) (pub ed25519.PublicKey, err error) {
	if len(b) != PublicKeyLength {
		err = errors.Wrapf(ErrInvalidKeyLength, "got %d bytes", len(b))
		return
	}

	if _, pointErr := new(edwards25519.Point).SetBytes(b); pointErr != nil {
		err = errors.Wrapf(ErrInvalidPublicKey, "%v", pointErr)
		return
	}

	pub = make(ed25519.PublicKey, PublicKeyLength)
	copy(pub, b)
	return
}

// Verify reports whether signature is a valid Ed25519 signature over
// message by the holder of publicKey. Malformed inputs verify false; this
// never panics or returns an error.
func Verify(publicKey, message, signature []byte) bool {
	if len(publicKey) != PublicKeyLength || len(signature) != SignatureLength {
		return false
	}
	return ed25519.Verify(publicKey, message, signature)
}
