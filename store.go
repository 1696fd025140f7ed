package nova

import (
	"time"
)

// Transaction status values as reported by node receipts.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// StoredTransaction is a submitted transaction plus the submission state
// tracked locally.
type StoredTransaction struct {
	SignedTransaction
	Status      string    `json:"status"`
	BlockHeight uint64    `json:"block_height"`
	StoredAt    time.Time `json:"stored_at"`
}

// Store keeps the local history of submitted transactions and settlement
// receipts, so a wallet can answer "what did I send" without a node. It
// also carries a small key-value area for client settings, so tools built
// on it have no ambient config state of their own.
type Store interface {
	PutTransaction(stx *SignedTransaction, status string) (err error)
	GetTransaction(id string) (record *StoredTransaction, err error)
	SetTransactionStatus(id string, status string, blockHeight uint64) (err error)
	ListTransactions(address string, limit int) (records []*StoredTransaction, err error)

	PutReceipt(r *PaymentReceipt) (err error)
	GetReceipt(receiptID string) (r *PaymentReceipt, err error)

	PutSetting(key, value string) (err error)
	GetSetting(key string) (value string, err error)

	Close() error
}
