package nova

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"strings"

	"github.com/pkg/errors"
)

const (
	TxTypeTransfer         TxType = "Transfer"
	TxTypeCreditRequest    TxType = "CreditRequest"
	TxTypeCreditSettlement TxType = "CreditSettlement"
	TxTypeTokenMint        TxType = "TokenMint"
	TxTypeTokenBurn        TxType = "TokenBurn"
)

type TxType string

var AllTxTypes = []TxType{
	TxTypeTransfer,
	TxTypeCreditRequest,
	TxTypeCreditSettlement,
	TxTypeTokenMint,
	TxTypeTokenBurn,
}

func (t TxType) Valid() bool {
	for _, known := range AllTxTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t TxType) Validate() (err error) {
	if !t.Valid() {
		err = errors.Wrapf(ErrUnknownTxType, "'%s'", t)
	}
	return
}

// Transaction is an unsigned NOVA transaction. Instances are value objects:
// the builder creates them fully formed and nothing mutates them afterwards.
//
// The byte serialization produced by SignableBytes is the wire contract
// shared with the validator. It must not drift: a deviation does not fail
// loudly, it silently produces ids and signatures the network rejects.
type Transaction struct {
	Version   uint16 `json:"version"`
	Type      TxType `json:"tx_type"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    Amount `json:"amount"`
	Fee       uint64 `json:"fee"`
	Nonce     uint64 `json:"nonce"`
	Timestamp uint64 `json:"timestamp"`
	Payload   []byte `json:"payload,omitempty"`
	ID        string `json:"tx_id,omitempty"`
}

// SignableBytes returns the canonical serialization of the transaction
// body. The id, signature, and signer public key are deliberately outside
// this layout; that exclusion is what makes the id a well-defined function
// of the body.
//
// Layout: all integers little-endian, strings UTF-8 followed by one null
// byte, payload preceded by a 0x00/0x01 presence flag and, when present, a
// u32 length.
func (tx *Transaction) SignableBytes() (out []byte, err error) {
	if err = tx.Type.Validate(); err != nil {
		return
	}

	out = binary.LittleEndian.AppendUint16(out, tx.Version)

	for _, s := range []string{string(tx.Type), tx.Sender, tx.Receiver} {
		if out, err = appendTerminated(out, s); err != nil {
			return
		}
	}

	out = binary.LittleEndian.AppendUint64(out, tx.Amount.Value)
	if out, err = appendTerminated(out, tx.Amount.Currency); err != nil {
		return
	}

	out = binary.LittleEndian.AppendUint64(out, tx.Fee)
	out = binary.LittleEndian.AppendUint64(out, tx.Nonce)
	out = binary.LittleEndian.AppendUint64(out, tx.Timestamp)

	if len(tx.Payload) == 0 {
		out = append(out, 0x00)
		return
	}

	if uint64(len(tx.Payload)) > math.MaxUint32 {
		err = errors.Errorf("payload exceeds u32 length: %d bytes", len(tx.Payload))
		return
	}

	out = append(out, 0x01)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(tx.Payload)))
	out = append(out, tx.Payload...)

	return
}

// ComputeID derives the transaction id: hex of the double SHA-256 of the
// canonical bytes. Double hashing guards against length-extension reuse of
// the inner digest.
func (tx *Transaction) ComputeID() (id string, err error) {
	signable, err := tx.SignableBytes()
	if err != nil {
		return
	}

	id = hex.EncodeToString(DoubleSha256(signable))
	return
}

func DoubleSha256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

// appendTerminated writes a UTF-8 string plus its null terminator. Interior
// null bytes would corrupt the framing, so they are rejected.
func appendTerminated(out []byte, s string) ([]byte, error) {
	if strings.IndexByte(s, 0x00) >= 0 {
		return nil, errors.Errorf("string field contains a null byte: %q", s)
	}
	out = append(out, s...)
	out = append(out, 0x00)
	return out, nil
}

// DecodeTransaction is the inverse of SignableBytes. It rejects truncated
// input, unknown type tags, and trailing garbage, and returns the
// transaction with its id recomputed from the decoded body.
func DecodeTransaction(data []byte) (tx *Transaction, err error) {
	r := &txReader{data: data}

	tx = &Transaction{}
	tx.Version = r.u16()

	typeTag := r.str()
	tx.Sender = r.str()
	tx.Receiver = r.str()
	tx.Amount.Value = r.u64()
	tx.Amount.Currency = r.str()
	tx.Fee = r.u64()
	tx.Nonce = r.u64()
	tx.Timestamp = r.u64()

	switch flag := r.u8(); flag {
	case 0x00:
	case 0x01:
		n := int(r.u32())
		if n == 0 && r.err == nil {
			// An empty payload encodes as flag 0x00; accepting both forms
			// would give one transaction two distinct ids.
			r.err = errors.New("non-canonical empty payload with presence flag set")
		}
		tx.Payload = r.bytes(n)
	default:
		if r.err == nil {
			r.err = errors.Errorf("invalid payload flag 0x%02x", flag)
		}
	}

	if r.err != nil {
		tx = nil
		err = r.err
		return
	}

	if r.pos != len(r.data) {
		tx = nil
		err = errors.Wrapf(ErrTrailingBytes, "%d bytes after payload", len(r.data)-r.pos)
		return
	}

	tx.Type = TxType(typeTag)
	if err = tx.Type.Validate(); err != nil {
		tx = nil
		return
	}

	tx.ID, err = tx.ComputeID()
	if err != nil {
		tx = nil
	}
	return
}

type txReader struct {
	data []byte
	pos  int
	err  error
}

func (r *txReader) fail(format string, args ...interface{}) {
	if r.err == nil {
		r.err = errors.Wrapf(ErrTruncatedTransaction, format, args...)
	}
}

func (r *txReader) u8() (v byte) {
	if r.err != nil {
		return
	}
	if r.pos+1 > len(r.data) {
		r.fail("need 1 byte at offset %d", r.pos)
		return
	}
	v = r.data[r.pos]
	r.pos++
	return
}

func (r *txReader) u16() (v uint16) {
	if r.err != nil {
		return
	}
	if r.pos+2 > len(r.data) {
		r.fail("need 2 bytes at offset %d", r.pos)
		return
	}
	v = binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return
}

func (r *txReader) u32() (v uint32) {
	if r.err != nil {
		return
	}
	if r.pos+4 > len(r.data) {
		r.fail("need 4 bytes at offset %d", r.pos)
		return
	}
	v = binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return
}

func (r *txReader) u64() (v uint64) {
	if r.err != nil {
		return
	}
	if r.pos+8 > len(r.data) {
		r.fail("need 8 bytes at offset %d", r.pos)
		return
	}
	v = binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return
}

func (r *txReader) str() (s string) {
	if r.err != nil {
		return
	}
	end := r.pos
	for end < len(r.data) && r.data[end] != 0x00 {
		end++
	}
	if end == len(r.data) {
		r.fail("unterminated string at offset %d", r.pos)
		return
	}
	s = string(r.data[r.pos:end])
	r.pos = end + 1
	return
}

func (r *txReader) bytes(n int) (b []byte) {
	if r.err != nil {
		return
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.fail("need %d bytes at offset %d", n, r.pos)
		return
	}
	b = make([]byte, n)
	copy(b, r.data[r.pos:r.pos+n])
	r.pos += n
	return
}
