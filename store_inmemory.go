package nova

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// MemoryStore is the Store used by tests and short-lived tools. Nothing
// survives process exit.
type MemoryStore struct {
	txs      map[string]*StoredTransaction
	order    []string
	receipts map[string]*PaymentReceipt
	settings map[string]string
	mu       sync.RWMutex
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		txs:      make(map[string]*StoredTransaction),
		receipts: make(map[string]*PaymentReceipt),
		settings: make(map[string]string),
	}
}

func (m *MemoryStore) PutTransaction(stx *SignedTransaction, status string) (err error) {
	if stx == nil {
		return errors.New("cannot store a nil transaction")
	}

	id := stx.Transaction.ID
	if id == "" {
		if id, err = stx.Transaction.ComputeID(); err != nil {
			return
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.txs[id]; ok {
		existing.Status = status
		return
	}

	m.txs[id] = &StoredTransaction{
		SignedTransaction: *stx,
		Status:            status,
		StoredAt:          time.Now().UTC(),
	}
	m.order = append(m.order, id)
	return
}

func (m *MemoryStore) GetTransaction(id string) (record *StoredTransaction, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.txs[id]
	if !ok {
		err = errors.Wrapf(ErrTransactionNotFound, "tx not found by id %s", id)
		return
	}

	out := *stored
	record = &out
	return
}

func (m *MemoryStore) SetTransactionStatus(id string, status string, blockHeight uint64) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.txs[id]
	if !ok {
		return errors.Wrapf(ErrTransactionNotFound, "tx not found by id %s", id)
	}

	stored.Status = status
	stored.BlockHeight = blockHeight
	return
}

func (m *MemoryStore) ListTransactions(address string, limit int) (records []*StoredTransaction, err error) {
	if limit <= 0 {
		limit = 100
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	records = make([]*StoredTransaction, 0)
	for i := len(m.order) - 1; i >= 0 && len(records) < limit; i-- {
		stored := m.txs[m.order[i]]
		if stored.Transaction.Sender != address && stored.Transaction.Receiver != address {
			continue
		}
		out := *stored
		records = append(records, &out)
	}

	return
}

func (m *MemoryStore) PutReceipt(r *PaymentReceipt) (err error) {
	if r == nil {
		return errors.New("cannot store a nil receipt")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := *r
	m.receipts[r.ReceiptID] = &out
	return
}

func (m *MemoryStore) GetReceipt(receiptID string) (r *PaymentReceipt, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.receipts[receiptID]
	if !ok {
		err = errors.Wrapf(ErrReceiptNotFound, "receipt not found by id %s", receiptID)
		return
	}

	out := *stored
	r = &out
	return
}

func (m *MemoryStore) PutSetting(key, value string) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[key] = value
	return
}

func (m *MemoryStore) GetSetting(key string) (value string, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.settings[key]
	if !ok {
		err = errors.Wrapf(ErrSettingNotFound, "no setting '%s'", key)
	}
	return
}

func (m *MemoryStore) Close() error {
	return nil
}
