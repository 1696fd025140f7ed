package nova

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestGenerateKeyPair(t *testing.T) {
	a, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	b, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("%+v", err)
	}

	if bytes.Equal(a.PublicKey(), b.PublicKey()) {
		t.Fatal("two generated keypairs share a public key")
	}

	message := []byte("account ownership probe")
	if !Verify(a.PublicKey(), message, a.Sign(message)) {
		t.Fatal("signature by a fresh keypair failed to verify")
	}
}

func TestKeyPairFromSeed_Deterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x2a}, SeedLength)

	a, err := KeyPairFromSeed(seed)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	b, err := KeyPairFromSeed(seed)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	if !bytes.Equal(a.PublicKey(), b.PublicKey()) {
		t.Fatal("the same seed produced different public keys")
	}

	addrA, err := a.AddressString()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	addrB, err := b.AddressString()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if addrA != addrB {
		t.Fatalf("the same seed produced different addresses: %s vs %s", addrA, addrB)
	}

	// Ed25519 signatures are deterministic too.
	message := []byte("deterministic signing probe")
	if !bytes.Equal(a.Sign(message), b.Sign(message)) {
		t.Fatal("the same seed produced different signatures")
	}
}

func TestKeyPairFromSeed_WrongLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		if _, err := KeyPairFromSeed(make([]byte, n)); !errors.Is(err, ErrInvalidSeedLength) {
			t.Fatalf("length %d: expected ErrInvalidSeedLength, got %+v", n, err)
		}
	}
}

func TestKeyPairFromHex(t *testing.T) {
	kp, err := KeyPairFromHex(strings.Repeat("2a", SeedLength))
	if err != nil {
		t.Fatalf("%+v", err)
	}

	same, err := KeyPairFromSeed(bytes.Repeat([]byte{0x2a}, SeedLength))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !bytes.Equal(kp.PublicKey(), same.PublicKey()) {
		t.Fatal("hex and byte seed constructors disagree")
	}

	if _, err = KeyPairFromHex("not hex"); err == nil {
		t.Fatal("expected error for a non-hex seed")
	}
	if _, err = KeyPairFromHex("2a2a"); !errors.Is(err, ErrInvalidSeedLength) {
		t.Fatalf("expected ErrInvalidSeedLength, got %+v", err)
	}
}

func TestKeyPair_SeedReturnsCopy(t *testing.T) {
	kp := testKeyPair(t, 0x2b)

	seed := kp.Seed()
	seed[0] = 0xff

	if kp.Seed()[0] != 0x2b {
		t.Fatal("mutating the returned seed corrupted the keypair")
	}
}

func TestKeyPair_Zero(t *testing.T) {
	kp := testKeyPair(t, 0x2c)
	pub := kp.PublicKey()

	kp.Zero()

	message := []byte("post-zero signing probe")
	if Verify(pub, message, kp.Sign(message)) {
		t.Fatal("a zeroed keypair still produces valid signatures")
	}
}

func TestVerify_MalformedInputs(t *testing.T) {
	kp := testKeyPair(t, 0x2d)
	message := []byte("verification probe")
	signature := kp.Sign(message)

	if Verify(kp.PublicKey()[:31], message, signature) {
		t.Fatal("short public key accepted")
	}
	if Verify(kp.PublicKey(), message, signature[:63]) {
		t.Fatal("short signature accepted")
	}
	if Verify(nil, message, nil) {
		t.Fatal("nil inputs accepted")
	}
	if Verify(kp.PublicKey(), []byte("a different message"), signature) {
		t.Fatal("signature verified over the wrong message")
	}
}

func TestPublicKeyFromBytes(t *testing.T) {
	kp := testKeyPair(t, 0x2e)

	if _, err := PublicKeyFromBytes(kp.PublicKey()); err != nil {
		t.Fatalf("%+v", err)
	}

	if _, err := PublicKeyFromBytes(make([]byte, 31)); !errors.Is(err, ErrInvalidKeyLength) {
		t.Fatalf("expected ErrInvalidKeyLength, got %+v", err)
	}

	// All-ones is numerically out of range for a field element, so it can
	// never be a canonical curve point.
	junk := bytes.Repeat([]byte{0xff}, PublicKeyLength)
	if _, err := PublicKeyFromBytes(junk); !errors.Is(err, ErrInvalidPublicKey) {
		t.Fatalf("expected ErrInvalidPublicKey, got %+v", err)
	}
}

func TestKeyPair_PublicKeyEncodings(t *testing.T) {
	kp := testKeyPair(t, 0x2f)

	if len(kp.PublicKeyHex()) != PublicKeyLength*2 {
		t.Fatalf("expected %d hex characters, got %d", PublicKeyLength*2, len(kp.PublicKeyHex()))
	}
	if kp.PublicKeyBase58() == "" {
		t.Fatal("expected a base58 encoding")
	}

	addr, err := kp.Address()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !bytes.Equal(addr, kp.PublicKey()) {
		t.Fatal("Address() payload is not the public key")
	}
}
