package nova

import (
	"time"

	"github.com/pkg/errors"
)

// TransactionBuilder assembles a Transaction through a fluent interface and
// validates it on Build. Sender and receiver are mandatory; everything else
// has a sensible default: version 1, type Transfer, the native currency,
// and a nonce/timestamp of "now" in milliseconds. The millisecond nonce is
// monotonic enough to order repeated submissions from a single signer; it
// is not a strict sequence.
type TransactionBuilder struct {
	tx           Transaction
	nonceSet     bool
	timestampSet bool
	err          error
}

func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{}
}

func (b *TransactionBuilder) Version(v uint16) *TransactionBuilder {
	b.tx.Version = v
	return b
}

func (b *TransactionBuilder) Type(t TxType) *TransactionBuilder {
	b.tx.Type = t
	return b
}

func (b *TransactionBuilder) Sender(address string) *TransactionBuilder {
	b.tx.Sender = address
	return b
}

func (b *TransactionBuilder) Receiver(address string) *TransactionBuilder {
	b.tx.Receiver = address
	return b
}

func (b *TransactionBuilder) Amount(value uint64, currency string) *TransactionBuilder {
	if currency == "" {
		currency = NativeCurrency
	}

	amount, err := NewAmount(value, currency)
	if err != nil && b.err == nil {
		b.err = err
	}

	b.tx.Amount = amount
	return b
}

func (b *TransactionBuilder) Fee(fee uint64) *TransactionBuilder {
	b.tx.Fee = fee
	return b
}

func (b *TransactionBuilder) Nonce(nonce uint64) *TransactionBuilder {
	b.tx.Nonce = nonce
	b.nonceSet = true
	return b
}

func (b *TransactionBuilder) Timestamp(ms uint64) *TransactionBuilder {
	b.tx.Timestamp = ms
	b.timestampSet = true
	return b
}

func (b *TransactionBuilder) Payload(data []byte) *TransactionBuilder {
	if len(data) == 0 {
		b.tx.Payload = nil
		return b
	}

	b.tx.Payload = append([]byte{}, data...)
	return b
}

func (b *TransactionBuilder) Build() (tx *Transaction, err error) {
	if b.err != nil {
		err = b.err
		return
	}

	if b.tx.Sender == "" {
		err = errors.Wrap(ErrMissingField, "sender")
		return
	}
	if b.tx.Receiver == "" {
		err = errors.Wrap(ErrMissingField, "receiver")
		return
	}

	built := b.tx

	if built.Version == 0 {
		built.Version = 1
	}
	if built.Type == "" {
		built.Type = TxTypeTransfer
	}
	if built.Amount.Currency == "" {
		built.Amount.Currency = NativeCurrency
	}

	now := uint64(time.Now().UnixMilli())
	if !b.nonceSet {
		built.Nonce = now
	}
	if !b.timestampSet {
		built.Timestamp = now
	}

	built.ID, err = built.ComputeID()
	if err != nil {
		return
	}

	tx = &built
	return
}
