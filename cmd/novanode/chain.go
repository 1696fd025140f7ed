package main

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	. "github.com/novaprotocol/nova-go"
	"github.com/novaprotocol/nova-go/rpcclient"
	"github.com/pkg/errors"
)

// NodeVersion is reported by /status and the nova_version rpc method.
const NodeVersion = "novanode/0.1.0"

// Accounts referenced by a submitted transaction are auto-funded with this
// dev balance, so examples work without a faucet step.
const devFaucetBalance = 1_000_000_000_000

type txRecord struct {
	stx        *SignedTransaction
	status     string
	height     uint64
	blockHash  string
	receivedAt uint64
}

// chain is the simulator's whole world: a block counter on a ticker,
// auto-funded accounts, and a mempool that confirms everything one block
// after submission. No consensus, no persistence.
type chain struct {
	network    Network
	version    string
	height     uint64
	blocks     map[uint64]*rpcclient.BlockResponse
	txs        map[string]*txRecord
	accounts   map[string]*rpcclient.AccountResponse
	validators []rpcclient.ValidatorInfo
	offers     []CreditOffer
	startedAt  time.Time
	stop       chan struct{}
	wg         sync.WaitGroup
	mu         sync.RWMutex
}

func newChain(network Network, version string) (c *chain, err error) {
	proposer, err := GenerateKeyPair()
	if err != nil {
		return
	}

	lender, err := GenerateKeyPair()
	if err != nil {
		return
	}
	lenderAddr, err := lender.AddressString()
	if err != nil {
		return
	}

	c = &chain{
		network:   network,
		version:   version,
		blocks:    make(map[uint64]*rpcclient.BlockResponse),
		txs:       make(map[string]*txRecord),
		accounts:  make(map[string]*rpcclient.AccountResponse),
		startedAt: time.Now().UTC(),
		stop:      make(chan struct{}),
		validators: []rpcclient.ValidatorInfo{
			{PublicKey: proposer.PublicKeyHex(), Stake: 5_000_000, Active: true},
		},
		offers: []CreditOffer{
			{
				OfferID:     "dev-offer-1",
				Lender:      lenderAddr,
				Currency:    NativeCurrency,
				Limit:       10_000_000,
				InterestBps: 500,
				ExpiresAt:   time.Now().UTC().Add(30 * 24 * time.Hour),
			},
		},
	}

	c.mintBlock()
	return
}

func (c *chain) start(blockTime time.Duration) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(blockTime)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.mintBlock()
			case <-c.stop:
				return
			}
		}
	}()
}

func (c *chain) shutdown() {
	close(c.stop)
	c.wg.Wait()
}

// mintBlock advances the chain one block and confirms every pending
// transaction into it, applying balance transfers.
func (c *chain) mintBlock() {
	c.mu.Lock()
	defer c.mu.Unlock()

	parent := ""
	if block, ok := c.blocks[c.height]; ok {
		parent = block.Hash
	}

	c.height++
	hash := hex.EncodeToString(DoubleSha256([]byte(fmt.Sprintf("%s/%s/%d", c.network, parent, c.height))))

	confirmed := uint64(0)
	for _, record := range c.txs {
		if record.status != StatusPending {
			continue
		}
		record.status = StatusConfirmed
		record.height = c.height
		record.blockHash = hash
		c.applyTransfer(record.stx)
		confirmed++
	}

	proposer := ""
	if len(c.validators) > 0 {
		proposer = c.validators[0].PublicKey
		c.validators[0].LastProposedBlock = c.height
	}

	c.blocks[c.height] = &rpcclient.BlockResponse{
		Height:     c.height,
		Hash:       hash,
		ParentHash: parent,
		Proposer:   proposer,
		TxCount:    confirmed,
		Timestamp:  uint64(time.Now().UnixMilli()),
	}

	if confirmed > 0 {
		log.Info().Msgf("minted block %d with %d tx(s)", c.height, confirmed)
	}
}

func (c *chain) applyTransfer(stx *SignedTransaction) {
	sender := c.ensureAccountLocked(stx.Transaction.Sender)
	receiver := c.ensureAccountLocked(stx.Transaction.Receiver)

	spend := stx.Transaction.Amount.Value + stx.Transaction.Fee
	if sender.Balance >= spend {
		sender.Balance -= spend
	} else {
		sender.Balance = 0
	}
	sender.Nonce++
	sender.TxCount++

	if stx.Transaction.Type == TxTypeTransfer || stx.Transaction.Type == TxTypeCreditSettlement {
		receiver.Balance += stx.Transaction.Amount.Value
	}
}

func (c *chain) ensureAccountLocked(address string) *rpcclient.AccountResponse {
	account, ok := c.accounts[address]
	if !ok {
		account = &rpcclient.AccountResponse{
			Address: address,
			Balance: devFaucetBalance,
		}
		c.accounts[address] = account
	}
	return account
}

func (c *chain) status() *rpcclient.GetStatusOut {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &rpcclient.GetStatusOut{
		Version:     c.version,
		Network:     string(c.network),
		BlockHeight: c.height,
		PeerCount:   c.peerCount(),
		Synced:      true,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

// peerCount fakes a small stable peer set for a single-process chain.
func (c *chain) peerCount() uint64 {
	return 3
}

func (c *chain) blockHeight() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

func (c *chain) block(height uint64) (block *rpcclient.BlockResponse, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	block, ok := c.blocks[height]
	if !ok {
		err = errors.Wrapf(ErrBlockNotFound, "height %d", height)
	}
	return
}

func (c *chain) transaction(hash string) (out *rpcclient.TxResponse, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	record, ok := c.txs[hash]
	if !ok {
		err = errors.Wrapf(ErrTransactionNotFound, "hash %s", hash)
		return
	}

	out = &rpcclient.TxResponse{
		Hash:        hash,
		Sender:      record.stx.Transaction.Sender,
		Recipient:   record.stx.Transaction.Receiver,
		Amount:      record.stx.Transaction.Amount.Value,
		Fee:         record.stx.Transaction.Fee,
		BlockHeight: record.height,
		Status:      record.status,
		Timestamp:   record.stx.Transaction.Timestamp,
	}
	return
}

func (c *chain) receipt(hash string) (out *rpcclient.TxReceipt, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	record, ok := c.txs[hash]
	if !ok {
		err = errors.Wrapf(ErrTransactionNotFound, "hash %s", hash)
		return
	}

	out = &rpcclient.TxReceipt{
		TxHash:      hash,
		BlockHeight: record.height,
		BlockHash:   record.blockHash,
		Status:      record.status,
		Timestamp:   record.receivedAt,
		GasUsed:     record.stx.Transaction.Fee,
	}
	return
}

func (c *chain) account(address string) (out *rpcclient.AccountResponse, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	account, ok := c.accounts[address]
	if !ok {
		err = errors.Wrapf(ErrAccountNotFound, "address %s", address)
		return
	}

	copied := *account
	out = &copied
	return
}

func (c *chain) balance(address string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if account, ok := c.accounts[address]; ok {
		return account.Balance
	}
	return 0
}

// submit validates and accepts a signed transaction into the mempool. It
// confirms in the next minted block.
func (c *chain) submit(stx *SignedTransaction) (hash string, err error) {
	if !stx.Verify() {
		err = errors.New("invalid signature")
		return
	}

	hash = stx.Transaction.ID

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.txs[hash]; exists {
		err = errors.Errorf("duplicate transaction %s", hash)
		return
	}

	c.ensureAccountLocked(stx.Transaction.Sender)
	c.ensureAccountLocked(stx.Transaction.Receiver)

	c.txs[hash] = &txRecord{
		stx:        stx,
		status:     StatusPending,
		receivedAt: uint64(time.Now().UnixMilli()),
	}
	return
}

func (c *chain) validatorSet() (validators []rpcclient.ValidatorInfo, totalStake uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	validators = append(validators, c.validators...)
	for _, v := range validators {
		totalStake += v.Stake
	}
	return
}

func (c *chain) creditOffers() []CreditOffer {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]CreditOffer(nil), c.offers...)
}
