package nova

import (
	"database/sql"
	"sync"

	"github.com/fxamacker/cbor/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type SqliteStore struct {
	db *sql.DB
	mu sync.Mutex
}

var _ Store = &SqliteStore{}

func NewSqliteStore(path string) (store *SqliteStore, err error) {
	log.Info().Msgf("opening sqlite store at: '%s'", path)

	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		err = errors.Wrap(err, "failed to open store")
		return
	}

	if err = sqldb.Ping(); err != nil {
		_ = sqldb.Close()
		err = errors.Wrap(err, "failed to ping store")
		return
	}

	store = &SqliteStore{db: sqldb}
	if err = store.initTables(); err != nil {
		_ = sqldb.Close()
		err = errors.Wrap(err, "failed to init tables")
		return
	}

	return
}

func (s *SqliteStore) initTables() (err error) {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			tx_id TEXT PRIMARY KEY,
			sender TEXT NOT NULL,
			receiver TEXT NOT NULL,
			amount INTEGER NOT NULL,
			currency TEXT NOT NULL,
			canonical BLOB NOT NULL,
			signature BLOB NOT NULL,
			public_key BLOB NOT NULL,
			status TEXT NOT NULL,
			block_height INTEGER NOT NULL DEFAULT 0,
			stored_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS receipts (
			receipt_id TEXT PRIMARY KEY,
			transaction_hash TEXT NOT NULL,
			body BLOB NOT NULL,
			stored_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_receiver ON transactions(receiver)`,
		`CREATE INDEX IF NOT EXISTS idx_receipts_tx ON receipts(transaction_hash)`,
	}

	for i, query := range queries {
		_, err = s.db.Exec(query)
		if err != nil {
			err = errors.Wrapf(err, "failed to execute query: %d", i)
			return
		}
	}

	return
}

func (s *SqliteStore) PutTransaction(stx *SignedTransaction, status string) (err error) {
	if stx == nil {
		return errors.New("cannot store a nil transaction")
	}

	canonical, err := stx.Transaction.SignableBytes()
	if err != nil {
		return
	}

	id := stx.Transaction.ID
	if id == "" {
		if id, err = stx.Transaction.ComputeID(); err != nil {
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO transactions
			(tx_id, sender, receiver, amount, currency, canonical, signature, public_key, status, block_height)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(tx_id) DO UPDATE SET status = excluded.status`,
		id,
		stx.Transaction.Sender,
		stx.Transaction.Receiver,
		stx.Transaction.Amount.Value,
		stx.Transaction.Amount.Currency,
		canonical,
		stx.Signature,
		stx.PublicKey,
		status)
	return errors.WithStack(err)
}

func (s *SqliteStore) GetTransaction(id string) (record *StoredTransaction, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var canonical, signature, publicKey []byte
	record = &StoredTransaction{}
	err = s.db.QueryRow(`
		SELECT canonical, signature, public_key, status, block_height, stored_at
		FROM transactions WHERE tx_id = ?`, id).
		Scan(&canonical, &signature, &publicKey, &record.Status, &record.BlockHeight, &record.StoredAt)
	if errors.Is(err, sql.ErrNoRows) {
		record = nil
		err = errors.Wrapf(ErrTransactionNotFound, "tx not found by id %s", id)
		return
	}
	if err != nil {
		record = nil
		err = errors.WithStack(err)
		return
	}

	tx, err := DecodeTransaction(canonical)
	if err != nil {
		record = nil
		err = errors.Wrap(err, "stored canonical bytes are corrupt")
		return
	}

	record.SignedTransaction = SignedTransaction{
		Transaction: *tx,
		Signature:   signature,
		PublicKey:   publicKey,
	}
	return
}

func (s *SqliteStore) SetTransactionStatus(id string, status string, blockHeight uint64) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE transactions SET status = ?, block_height = ? WHERE tx_id = ?`,
		status, blockHeight, id)
	if err != nil {
		return errors.WithStack(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return errors.Wrapf(ErrTransactionNotFound, "tx not found by id %s", id)
	}

	return
}

func (s *SqliteStore) ListTransactions(address string, limit int) (records []*StoredTransaction, err error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT canonical, signature, public_key, status, block_height, stored_at
		FROM transactions
		WHERE sender = ? OR receiver = ?
		ORDER BY stored_at DESC, tx_id
		LIMIT ?`,
		address, address, limit)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	records = make([]*StoredTransaction, 0)
	for rows.Next() {
		var canonical, signature, publicKey []byte
		record := &StoredTransaction{}
		if err = rows.Scan(&canonical, &signature, &publicKey, &record.Status, &record.BlockHeight, &record.StoredAt); err != nil {
			return nil, errors.WithStack(err)
		}

		tx, txErr := DecodeTransaction(canonical)
		if txErr != nil {
			return nil, errors.Wrap(txErr, "stored canonical bytes are corrupt")
		}

		record.SignedTransaction = SignedTransaction{
			Transaction: *tx,
			Signature:   signature,
			PublicKey:   publicKey,
		}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	return
}

func (s *SqliteStore) PutReceipt(r *PaymentReceipt) (err error) {
	if r == nil {
		return errors.New("cannot store a nil receipt")
	}

	body, err := cbor.Marshal(r)
	if err != nil {
		return errors.WithStack(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO receipts (receipt_id, transaction_hash, body)
		VALUES (?, ?, ?)
		ON CONFLICT(receipt_id) DO UPDATE SET body = excluded.body`,
		r.ReceiptID, r.TxHash, body)
	return errors.WithStack(err)
}

func (s *SqliteStore) GetReceipt(receiptID string) (r *PaymentReceipt, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var body []byte
	err = s.db.QueryRow(`SELECT body FROM receipts WHERE receipt_id = ?`, receiptID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		err = errors.Wrapf(ErrReceiptNotFound, "receipt not found by id %s", receiptID)
		return
	}
	if err != nil {
		err = errors.WithStack(err)
		return
	}

	r = &PaymentReceipt{}
	if err = cbor.Unmarshal(body, r); err != nil {
		r = nil
		err = errors.Wrap(err, "stored receipt bytes are corrupt")
		return
	}

	return
}

func (s *SqliteStore) PutSetting(key, value string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return errors.WithStack(err)
}

func (s *SqliteStore) GetSetting(key string) (value string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		err = errors.Wrapf(ErrSettingNotFound, "no setting '%s'", key)
		return
	}

	err = errors.WithStack(err)
	return
}

func (s *SqliteStore) Close() error {
	return errors.WithStack(s.db.Close())
}
