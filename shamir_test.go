package nova

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

func TestSplitSeed_RecoverAllPairs(t *testing.T) {
	secret := bytes.Repeat([]byte{0xa5, 0x5a, 0x00, 0xff}, 8)

	shares, err := SplitSeed(secret, 2, 3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(shares) != 3 {
		t.Fatalf("expected 3 shares, got %d", len(shares))
	}

	for i, share := range shares {
		if share.Index != byte(i+1) {
			t.Fatalf("expected share index %d, got %d", i+1, share.Index)
		}
		if len(share.Data) != len(secret) {
			t.Fatalf("expected %d data bytes per share, got %d", len(secret), len(share.Data))
		}
		if bytes.Equal(share.Data, secret) {
			t.Fatal("a share leaked the raw secret")
		}
	}

	// Any two of the three shares recover the secret.
	for i := 0; i < len(shares); i++ {
		for j := i + 1; j < len(shares); j++ {
			recovered, err := RecoverSeed([]Share{shares[i], shares[j]})
			if err != nil {
				t.Fatalf("pair (%d,%d): %+v", i, j, err)
			}
			if !bytes.Equal(recovered, secret) {
				t.Fatalf("pair (%d,%d) recovered the wrong secret", i, j)
			}
		}
	}

	// So does the full set.
	recovered, err := RecoverSeed(shares)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !bytes.Equal(recovered, secret) {
		t.Fatal("full share set recovered the wrong secret")
	}
}

func TestSplitSeed_ThresholdSubsets(t *testing.T) {
	secret := []byte("thirty-two byte wallet seed ....")

	shares, err := SplitSeed(secret, 3, 5)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	recovered, err := RecoverSeed(shares[1:4])
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !bytes.Equal(recovered, secret) {
		t.Fatal("a threshold-sized subset failed to recover the secret")
	}

	// Below the threshold the shares interpolate to garbage. No error: the
	// shares themselves cannot tell what the threshold was.
	under, err := RecoverSeed(shares[:2])
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if bytes.Equal(under, secret) {
		t.Fatal("two shares of a 3-of-5 split recovered the secret")
	}
}

func TestSplitSeed_FreshPolynomials(t *testing.T) {
	secret := bytes.Repeat([]byte{0x77}, 32)

	a, err := SplitSeed(secret, 2, 2)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	b, err := SplitSeed(secret, 2, 2)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	if bytes.Equal(a[0].Data, b[0].Data) {
		t.Fatal("two splits of the same secret produced identical shares")
	}
}

func TestSplitSeed_Validation(t *testing.T) {
	secret := []byte("some secret")

	testCases := []struct {
		name      string
		secret    []byte
		threshold int
		total     int
		sentinel  error
	}{
		{"empty secret", nil, 2, 3, ErrEmptySecret},
		{"threshold one", secret, 1, 3, ErrThresholdTooLow},
		{"threshold zero", secret, 0, 3, ErrThresholdTooLow},
		{"total below threshold", secret, 3, 2, ErrNotEnoughShares},
		{"too many shares", secret, 2, 256, ErrTooManyShares},
	}

	for _, testCase := range testCases {
		_, err := SplitSeed(testCase.secret, testCase.threshold, testCase.total)
		if !errors.Is(err, testCase.sentinel) {
			t.Fatalf("%s: expected %v, got %+v", testCase.name, testCase.sentinel, err)
		}
	}

	// 255 shares is the field's ceiling and must work.
	shares, err := SplitSeed([]byte{0x01}, 2, 255)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(shares) != 255 {
		t.Fatalf("expected 255 shares, got %d", len(shares))
	}
	if shares[254].Index != 255 {
		t.Fatalf("expected final share index 255, got %d", shares[254].Index)
	}
}

func TestRecoverSeed_Validation(t *testing.T) {
	shares, err := SplitSeed([]byte("recovery validation secret"), 2, 3)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	_, err = RecoverSeed(shares[:1])
	if !errors.Is(err, ErrNotEnoughShares) {
		t.Fatalf("expected ErrNotEnoughShares, got %+v", err)
	}

	_, err = RecoverSeed([]Share{shares[0], shares[0]})
	if !errors.Is(err, ErrDuplicateShare) {
		t.Fatalf("expected ErrDuplicateShare, got %+v", err)
	}

	zeroIndexed := []Share{{Index: 0, Data: shares[0].Data}, shares[1]}
	_, err = RecoverSeed(zeroIndexed)
	if !errors.Is(err, ErrDuplicateShare) {
		t.Fatalf("expected ErrDuplicateShare for index zero, got %+v", err)
	}

	truncated := Share{Index: shares[0].Index, Data: shares[0].Data[:4]}
	_, err = RecoverSeed([]Share{truncated, shares[1]})
	if !errors.Is(err, ErrShareMismatch) {
		t.Fatalf("expected ErrShareMismatch, got %+v", err)
	}
}

func TestShare_BinaryRoundtrip(t *testing.T) {
	shares, err := SplitSeed(bytes.Repeat([]byte{0x13}, 32), 2, 2)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	encoded, err := shares[0].MarshalBinary()
	if err != nil {
		t.Fatalf("%+v", err)
	}

	var decoded Share
	if err = decoded.UnmarshalBinary(encoded); err != nil {
		t.Fatalf("%+v", err)
	}

	if decoded.Index != shares[0].Index || !bytes.Equal(decoded.Data, shares[0].Data) {
		t.Fatal("share did not survive the binary roundtrip")
	}

	// Recover using one decoded and one original share.
	recovered, err := RecoverSeed([]Share{decoded, shares[1]})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !bytes.Equal(recovered, bytes.Repeat([]byte{0x13}, 32)) {
		t.Fatal("recovery with a re-decoded share failed")
	}

	if err = decoded.UnmarshalBinary([]byte("junk")); err == nil {
		t.Fatal("expected error decoding junk bytes")
	}
}

func TestGF256_FieldProperties(t *testing.T) {
	// a * inverse(a) == 1 for all non-zero field elements.
	for a := 1; a < 256; a++ {
		inv := gfDiv(1, byte(a))
		if got := gfMul(byte(a), inv); got != 1 {
			t.Fatalf("element %d: a * a^-1 = %d, expected 1", a, got)
		}
	}

	// Multiplication distributes over addition for a sample of triples.
	for a := 1; a < 256; a += 37 {
		for b := 1; b < 256; b += 41 {
			for c := 1; c < 256; c += 43 {
				left := gfMul(byte(a), gfAdd(byte(b), byte(c)))
				right := gfAdd(gfMul(byte(a), byte(b)), gfMul(byte(a), byte(c)))
				if left != right {
					t.Fatalf("distributivity broken at (%d,%d,%d)", a, b, c)
				}
			}
		}
	}
}
