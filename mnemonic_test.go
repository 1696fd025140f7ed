package nova

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestNewMnemonic(t *testing.T) {
	mnemonic, err := NewMnemonic()
	if err != nil {
		t.Fatalf("%+v", err)
	}

	// 256 bits of entropy encode as 24 words.
	if words := len(strings.Fields(mnemonic)); words != 24 {
		t.Fatalf("expected a 24 word phrase, got %d words", words)
	}

	if !ValidMnemonic(mnemonic) {
		t.Fatalf("generated phrase failed validation: %s", mnemonic)
	}

	other, err := NewMnemonic()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if mnemonic == other {
		t.Fatal("two generated phrases are identical")
	}
}

func TestSeedFromMnemonic(t *testing.T) {
	const phrase = "legal winner thank year wave sausage worth useful legal winner thank yellow"

	if !ValidMnemonic(phrase) {
		t.Fatal("known-good phrase failed validation")
	}

	seed, err := SeedFromMnemonic(phrase, "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(seed) != SeedLength {
		t.Fatalf("expected a %d byte seed, got %d", SeedLength, len(seed))
	}

	again, err := SeedFromMnemonic(phrase, "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !bytes.Equal(seed, again) {
		t.Fatal("the same phrase derived different seeds")
	}

	// The passphrase salts the derivation.
	salted, err := SeedFromMnemonic(phrase, "trustno1")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if bytes.Equal(seed, salted) {
		t.Fatal("the passphrase had no effect on the derived seed")
	}

	// Derived seeds feed straight into key derivation.
	if _, err = KeyPairFromSeed(seed); err != nil {
		t.Fatalf("%+v", err)
	}
}

func TestSeedFromMnemonic_Invalid(t *testing.T) {
	testCases := []string{
		"",
		"definitely not a mnemonic",
		// Right words, broken checksum.
		"legal winner thank year wave sausage worth useful legal winner thank thank",
	}

	for _, phrase := range testCases {
		if ValidMnemonic(phrase) {
			t.Fatalf("expected %q to be invalid", phrase)
		}
		if _, err := SeedFromMnemonic(phrase, ""); !errors.Is(err, ErrInvalidMnemonic) {
			t.Fatalf("%q: expected ErrInvalidMnemonic, got %+v", phrase, err)
		}
	}
}
