package nova

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"regexp"

	ogbech "github.com/btcsuite/btcutil/bech32"
	"github.com/cosmos/cosmos-sdk/types/bech32"
	"github.com/pkg/errors"
)

// AddressHRP is the bech32 human-readable prefix shared by every NOVA
// network. Addresses are self-certifying: the data part is the account's
// raw Ed25519 public key, so an address always converts back to the key
// that controls it.
const AddressHRP = "nova"

var addressShape = regexp.MustCompile(`^nova1[qpzry9x8gf2tvdw0s3jn54khce6mua7l]{38,}$`)

// Address is the raw 32-byte public key behind a bech32 account string.
type Address []byte

func (a Address) MarshalJSON() ([]byte, error) {
	encoded, err := a.Bech32String()
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf(`"%s"`, encoded)), nil
}

func (a *Address) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.Wrap(ErrMalformedAddress, "expected a json string")
	}
	return a.ParseBech32String(string(data[1 : len(data)-1]))
}

func (a Address) String() string {
	encoded, err := a.Bech32String()
	if err != nil {
		return hex.EncodeToString(a)
	}
	return encoded
}

func (a Address) Bech32String() (encoded string, err error) {
	if len(a) != ed25519.PublicKeySize {
		err = errors.Wrapf(ErrInvalidKeyLength, "got %d bytes", len(a))
		return
	}

	encoded, err = bech32.ConvertAndEncode(AddressHRP, a)
	if err != nil {
		err = errors.Errorf("failed to convert to bech32: %+v", err)
		return
	}

	return
}

func (a *Address) ParseBech32String(encoded string) (err error) {
	prefix, addr, err := bech32.DecodeAndConvert(encoded)
	if err != nil {
		return errors.Wrapf(ErrMalformedAddress, "failed to decode bech32 address: %v", err)
	}

	if prefix != AddressHRP {
		return errors.Wrapf(ErrUnexpectedPrefix, "expected '%s', got '%s'", AddressHRP, prefix)
	}

	if len(addr) != ed25519.PublicKeySize {
		return errors.Wrapf(
			ErrMalformedAddress,
			"expected a %d byte payload, got %d",
			ed25519.PublicKeySize,
			len(addr))
	}

	*a = addr
	return nil
}

// DecodeAddress parses a bech32 address string into the raw public key it
// certifies.
func DecodeAddress(address string) (decoded Address, err error) {
	addr := &Address{}
	err = addr.ParseBech32String(address)
	decoded = *addr
	return
}

// EncodeAddress wraps an Ed25519 public key as an Address.
func EncodeAddress(publicKey []byte) (addr Address, err error) {
	if len(publicKey) != ed25519.PublicKeySize {
		err = errors.Wrapf(
			ErrInvalidKeyLength,
			"expected a %d length ed25519 public key, got %d bytes",
			ed25519.PublicKeySize,
			len(publicKey))
		return
	}

	addr = append(Address{}, publicKey...)
	return
}

// DeriveAddress returns the bech32 account string for a 32-byte public key.
func DeriveAddress(publicKey []byte) (encoded string, err error) {
	addr, err := EncodeAddress(publicKey)
	if err != nil {
		return
	}
	return addr.Bech32String()
}

// ParseAddress recovers the raw 32-byte public key from an address string,
// rejecting bad prefixes and checksum failures before anything touches the
// wire.
func ParseAddress(address string) (publicKey []byte, err error) {
	decoded, err := DecodeAddress(address)
	if err != nil {
		return
	}
	publicKey = decoded
	return
}

// ValidAddress reports whether a string is a well-formed NOVA address. It
// runs the cheap shape check first and the full checksum pass second, so it
// is safe to call on untrusted input in a hot path.
func ValidAddress(address string) bool {
	if !addressShape.MatchString(address) {
		return false
	}

	hrp, data, err := ogbech.Decode(address)
	if err != nil || hrp != AddressHRP {
		return false
	}

	converted, err := ogbech.ConvertBits(data, 5, 8, false)
	if err != nil {
		return false
	}

	return len(converted) == ed25519.PublicKeySize
}
