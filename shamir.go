package nova

import (
	"crypto/rand"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// Shamir secret sharing over GF(256) with the AES field polynomial
// x^8 + x^4 + x^3 + x + 1 (0x11B). A (threshold, total) split produces
// total shares of which any threshold recover the secret; threshold-1
// shares reveal nothing. Used to back up wallet seeds across custodians.

// gfExp and gfLog are the exp/log tables over generator 3. gfExp is
// doubled so a summed log index never needs modular reduction.
var (
	gfExp [512]byte
	gfLog [256]byte
)

func init() {
	val := uint16(1)
	for i := 0; i < 255; i++ {
		gfExp[i] = byte(val)
		gfExp[i+255] = byte(val)
		gfLog[byte(val)] = byte(i)
		// Multiply by the generator: val*3 = val*2 + val.
		val = (val << 1) ^ val
		if val >= 256 {
			val ^= 0x11B
		}
	}
	gfExp[255] = gfExp[0]
	gfExp[510] = gfExp[0]
	gfExp[511] = gfExp[1]
}

// Addition and subtraction in GF(256) are both XOR.
func gfAdd(a, b byte) byte {
	return a ^ b
}

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return gfExp[int(gfLog[a])+int(gfLog[b])]
}

func gfDiv(a, b byte) byte {
	if b == 0 {
		panic("division by zero in GF(256)")
	}
	if a == 0 {
		return 0
	}
	return gfExp[255+int(gfLog[a])-int(gfLog[b])]
}

// gfEval evaluates a polynomial at x by Horner's method. coefficients[0]
// is the constant term.
func gfEval(coefficients []byte, x byte) (result byte) {
	for i := len(coefficients) - 1; i >= 0; i-- {
		result = gfAdd(gfMul(result, x), coefficients[i])
	}
	return
}

// gfInterpolateAtZero recovers the constant term of the polynomial passing
// through the points (xs[i], ys[i]). The x values must be distinct and
// non-zero.
func gfInterpolateAtZero(xs, ys []byte) (secret byte) {
	for i := range xs {
		numerator := byte(1)
		denominator := byte(1)
		for j := range xs {
			if i == j {
				continue
			}
			// L_i(0) numerator term is (0 - x_j) = x_j in GF(256).
			numerator = gfMul(numerator, xs[j])
			denominator = gfMul(denominator, gfAdd(xs[i], xs[j]))
		}
		secret = gfAdd(secret, gfMul(ys[i], gfDiv(numerator, denominator)))
	}
	return
}

// Share is one piece of a split secret: the evaluation point (1-based,
// never zero) and one byte of polynomial output per secret byte. A share
// in isolation carries no information about the secret.
type Share struct {
	Index byte   `json:"index"`
	Data  []byte `json:"data"`
}

// shareWire is the CBOR layout, kept separate so MarshalBinary does not
// recurse through the cbor package's BinaryMarshaler handling.
type shareWire struct {
	Index byte   `cbor:"1,keyasint"`
	Data  []byte `cbor:"2,keyasint"`
}

// MarshalBinary encodes the share as compact CBOR for QR codes and
// paper backups.
func (s Share) MarshalBinary() ([]byte, error) {
	out, err := cbor.Marshal(shareWire{Index: s.Index, Data: s.Data})
	return out, errors.WithStack(err)
}

func (s *Share) UnmarshalBinary(data []byte) (err error) {
	var w shareWire
	if err = cbor.Unmarshal(data, &w); err != nil {
		return errors.Wrap(err, "invalid share encoding")
	}
	s.Index = w.Index
	s.Data = w.Data
	return
}

// SplitSeed splits a secret into total shares, any threshold of which can
// reconstruct it. Each byte of the secret becomes the constant term of a
// random polynomial of degree threshold-1, evaluated at x = 1..total.
func SplitSeed(secret []byte, threshold, total int) (shares []Share, err error) {
	if len(secret) == 0 {
		err = errors.WithStack(ErrEmptySecret)
		return
	}
	if threshold < 2 {
		err = errors.Wrapf(ErrThresholdTooLow, "got %d", threshold)
		return
	}
	if total < threshold {
		err = errors.Wrapf(ErrNotEnoughShares, "total %d below threshold %d", total, threshold)
		return
	}
	if total > 255 {
		err = errors.Wrapf(ErrTooManyShares, "got %d", total)
		return
	}

	shares = make([]Share, total)
	for i := range shares {
		shares[i] = Share{
			Index: byte(i + 1),
			Data:  make([]byte, 0, len(secret)),
		}
	}

	coefficients := make([]byte, threshold)
	for _, secretByte := range secret {
		coefficients[0] = secretByte
		if _, err = rand.Read(coefficients[1:]); err != nil {
			err = errors.Wrap(err, "failed to read entropy for share polynomial")
			shares = nil
			return
		}

		for i := range shares {
			shares[i].Data = append(shares[i].Data, gfEval(coefficients, shares[i].Index))
		}
	}
	return
}

// RecoverSeed reconstructs the secret from at least threshold shares by
// Lagrange interpolation at x=0. Handing it fewer shares than the split's
// threshold (but at least 2) yields garbage without error; the shares
// alone cannot tell.
func RecoverSeed(shares []Share) (secret []byte, err error) {
	if len(shares) < 2 {
		err = errors.Wrapf(ErrNotEnoughShares, "got %d", len(shares))
		return
	}

	expected := len(shares[0].Data)
	for _, share := range shares[1:] {
		if len(share.Data) != expected {
			err = errors.Wrapf(ErrShareMismatch, "expected %d bytes, got %d", expected, len(share.Data))
			return
		}
	}

	var seen [256]bool
	for _, share := range shares {
		if share.Index == 0 {
			err = errors.Wrap(ErrDuplicateShare, "index 0")
			return
		}
		if seen[share.Index] {
			err = errors.Wrapf(ErrDuplicateShare, "index %d", share.Index)
			return
		}
		seen[share.Index] = true
	}

	xs := make([]byte, len(shares))
	for i, share := range shares {
		xs[i] = share.Index
	}

	secret = make([]byte, expected)
	ys := make([]byte, len(shares))
	for byteIdx := 0; byteIdx < expected; byteIdx++ {
		for i, share := range shares {
			ys[i] = share.Data[byteIdx]
		}
		secret[byteIdx] = gfInterpolateAtZero(xs, ys)
	}
	return
}
