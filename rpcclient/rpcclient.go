package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/novaprotocol/nova-go"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

var (
	ErrConnectionFailed    = fmt.Errorf("connection to node failed")
	ErrNotFound            = fmt.Errorf("resource not found")
	ErrTransportFailed     = fmt.Errorf("transport request failed")
	ErrMalformedResponse   = fmt.Errorf("malformed rpc response")
	ErrConfirmationTimeout = fmt.Errorf("confirmation timeout")
)

const (
	DefaultTimeout             = 30 * time.Second
	DefaultRetries             = 3
	DefaultRetryDelay          = time.Second
	DefaultPollInterval        = 2 * time.Second
	DefaultConfirmationTimeout = 60 * time.Second
)

// Static fee schedule used when the node cannot estimate.
const (
	NativeFallbackFee = 100
	TokenFallbackFee  = 250
)

// JSON-RPC error codes reported by nodes.
const (
	RpcParseError      = -32700
	RpcInvalidRequest  = -32600
	RpcMethodNotFound  = -32601
	RpcInvalidParams   = -32602
	RpcInternalError   = -32603
	RpcTxNotFound      = -32000
	RpcBlockNotFound   = -32001
	RpcAccountNotFound = -32002
	RpcTxRejected      = -32003
	RpcNodeSyncing     = -32004
)

// Config controls transport behaviour. Retries counts ADDITIONAL attempts
// after the first, so Retries=2 means at most 3 requests. NewWithConfig
// honours a zero Retries; use DefaultConfig or New to get the defaults.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	Retries      int
	RetryDelay   time.Duration
	PollInterval time.Duration
	HTTPClient   *http.Client
}

func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL:      baseURL,
		Timeout:      DefaultTimeout,
		Retries:      DefaultRetries,
		RetryDelay:   DefaultRetryDelay,
		PollInterval: DefaultPollInterval,
	}
}

// Client talks to a node over REST and JSON-RPC 2.0. It is safe for
// concurrent use; the request-id counter is the only mutable state.
type Client struct {
	cfg    Config
	http   *http.Client
	nextID atomic.Uint64
}

func New(baseURL string) (client *Client, err error) {
	return NewWithConfig(DefaultConfig(baseURL))
}

func NewWithConfig(cfg *Config) (client *Client, err error) {
	if cfg == nil {
		err = errors.New("config is required")
		return
	}

	c := *cfg
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.BaseURL == "" {
		err = errors.New("node base url is required")
		return
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	client = &Client{cfg: c, http: httpClient}
	return
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// do runs one logical request with the retry policy: network failures and
// 502/503/504 are retried up to cfg.Retries additional times with a fixed
// delay; every other response is returned to the caller to map. Each
// attempt is its own request with its own timeout.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (status int, out []byte, err error) {
	for attempt := 0; ; attempt++ {
		status, out, err = c.attempt(ctx, method, path, body)
		if err == nil && !retryableStatus(status) {
			return
		}

		if ctx.Err() != nil {
			err = errors.WithStack(ctx.Err())
			return
		}

		if attempt >= c.cfg.Retries {
			if err != nil {
				err = errors.Wrapf(ErrConnectionFailed, "%s %s after %d attempts: %v", method, path, attempt+1, err)
			}
			return
		}

		select {
		case <-ctx.Done():
			err = errors.WithStack(ctx.Err())
			return
		case <-time.After(c.cfg.RetryDelay):
		}
	}
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte) (status int, out []byte, err error) {
	actx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(actx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		err = errors.WithStack(err)
		return
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	rsp, err := c.http.Do(req)
	if err != nil {
		err = errors.WithStack(err)
		return
	}
	defer rsp.Body.Close()

	out, err = io.ReadAll(rsp.Body)
	if err != nil {
		err = errors.WithStack(err)
		return
	}

	status = rsp.StatusCode
	return
}

// get fetches a REST resource. 404 maps to ErrNotFound carrying the
// resource id, any other non-2xx to ErrTransportFailed with the status.
func (c *Client) get(ctx context.Context, path, resource string, target any) (err error) {
	status, out, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return
	}

	if status == http.StatusNotFound {
		return errors.Wrap(ErrNotFound, resource)
	}
	if status/100 != 2 {
		return errors.Wrapf(ErrTransportFailed, "status %d with body %s", status, string(out))
	}

	if err = json.Unmarshal(out, target); err != nil {
		err = errors.Wrapf(err, "unable to unmarshal body: %s", string(out))
	}
	return
}

type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type RpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (r *RpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", r.Code, r.Message)
}

// StdErr maps the node-reported message back onto a root-package sentinel
// when it matches one.
func (r *RpcError) StdErr() error {
	for _, a := range AllErrors {
		if r.Message == a.Error() {
			return errors.WithStack(a)
		}
	}
	return nil
}

// call performs one JSON-RPC 2.0 request. An error object in the response
// surfaces as *RpcError (or the matching sentinel); a response carrying
// neither result nor error is malformed.
func (c *Client) call(ctx context.Context, method string, params ...any) (result gjson.Result, err error) {
	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		err = errors.WithStack(err)
		return
	}

	status, out, err := c.do(ctx, http.MethodPost, "/rpc", body)
	if err != nil {
		return
	}
	if status/100 != 2 {
		err = errors.Wrapf(ErrTransportFailed, "rpc status %d with body %s", status, string(out))
		return
	}

	parsed := gjson.ParseBytes(out)
	if errObj := parsed.Get("error"); errObj.Exists() {
		rpcErr := &RpcError{
			Code:    int(errObj.Get("code").Int()),
			Message: errObj.Get("message").String(),
		}
		if data := errObj.Get("data"); data.Exists() {
			rpcErr.Data = json.RawMessage(data.Raw)
		}

		if stdErr := rpcErr.StdErr(); stdErr != nil {
			err = stdErr
			return
		}
		err = rpcErr
		return
	}

	result = parsed.Get("result")
	if !result.Exists() {
		err = errors.Wrapf(ErrMalformedResponse, "body %s", string(out))
	}
	return
}

type GetStatusOut struct {
	Version     string `json:"version"`
	Network     string `json:"network"`
	BlockHeight uint64 `json:"block_height"`
	PeerCount   uint64 `json:"peer_count"`
	Synced      bool   `json:"synced"`
	Timestamp   string `json:"timestamp"`
}

func (c *Client) GetStatus(ctx context.Context) (out *GetStatusOut, err error) {
	out = &GetStatusOut{}
	err = c.get(ctx, "/status", "status", out)
	return
}

type BlockResponse struct {
	Height     uint64 `json:"height"`
	Hash       string `json:"hash"`
	ParentHash string `json:"parent_hash"`
	Proposer   string `json:"proposer"`
	TxCount    uint64 `json:"tx_count"`
	Timestamp  uint64 `json:"timestamp"`
}

func (c *Client) GetBlock(ctx context.Context, height uint64) (out *BlockResponse, err error) {
	out = &BlockResponse{}
	err = c.get(ctx, fmt.Sprintf("/blocks/%d", height), fmt.Sprintf("block %d", height), out)
	return
}

type TxResponse struct {
	Hash        string `json:"hash"`
	Sender      string `json:"sender"`
	Recipient   string `json:"recipient"`
	Amount      uint64 `json:"amount"`
	Fee         uint64 `json:"fee"`
	BlockHeight uint64 `json:"block_height,omitempty"`
	Status      string `json:"status"`
	Timestamp   uint64 `json:"timestamp"`
}

func (c *Client) GetTransaction(ctx context.Context, hash string) (out *TxResponse, err error) {
	out = &TxResponse{}
	err = c.get(ctx, fmt.Sprintf("/transactions/%s", hash), fmt.Sprintf("tx %s", hash), out)
	return
}

type AccountResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
	TxCount uint64 `json:"tx_count"`
}

func (c *Client) GetAccount(ctx context.Context, address string) (out *AccountResponse, err error) {
	out = &AccountResponse{}
	err = c.get(ctx, fmt.Sprintf("/accounts/%s", address), fmt.Sprintf("account %s", address), out)
	return
}

// Health reports node liveness. It never returns an error; any failure to
// get a 2xx from /health is just "not healthy".
func (c *Client) Health(ctx context.Context) bool {
	status, _, err := c.do(ctx, http.MethodGet, "/health", nil)
	return err == nil && status/100 == 2
}

// BlockHeight returns the latest chain height. Nodes answer either a bare
// number or {"height": n}.
func (c *Client) BlockHeight(ctx context.Context) (height uint64, err error) {
	result, err := c.call(ctx, "nova_blockHeight")
	if err != nil {
		return
	}
	if result.IsObject() {
		height = result.Get("height").Uint()
		return
	}
	height = result.Uint()
	return
}

func (c *Client) PeerCount(ctx context.Context) (peers uint64, err error) {
	result, err := c.call(ctx, "nova_peerCount")
	if err != nil {
		return
	}
	peers = result.Uint()
	return
}

func (c *Client) NetworkID(ctx context.Context) (network string, err error) {
	result, err := c.call(ctx, "nova_networkId")
	if err != nil {
		return
	}
	network = result.String()
	return
}

func (c *Client) Version(ctx context.Context) (version string, err error) {
	result, err := c.call(ctx, "nova_version")
	if err != nil {
		return
	}
	version = result.String()
	return
}

// GetBalance queries the token balance for an address. Token defaults to
// the native currency. Nodes answer either a bare number or an object
// with a balance field.
func (c *Client) GetBalance(ctx context.Context, address, token string) (balance uint64, err error) {
	if token == "" {
		token = NativeCurrency
	}

	result, err := c.call(ctx, "nova_getBalance", address, token)
	if err != nil {
		return
	}
	if result.IsObject() {
		balance = result.Get("balance").Uint()
		return
	}
	balance = result.Uint()
	return
}

func (c *Client) GetAccountState(ctx context.Context, address string) (out *AccountResponse, err error) {
	result, err := c.call(ctx, "nova_getAccountState", address)
	if err != nil {
		return
	}

	out = &AccountResponse{}
	if err = json.Unmarshal([]byte(result.Raw), out); err != nil {
		out = nil
		err = errors.Wrapf(ErrMalformedResponse, "account state: %s", result.Raw)
	}
	return
}

type TxReceipt struct {
	TxHash      string `json:"tx_hash"`
	BlockHeight uint64 `json:"block_height"`
	BlockHash   string `json:"block_hash"`
	Status      string `json:"status"`
	Timestamp   uint64 `json:"timestamp"`
	GasUsed     uint64 `json:"gas_used"`
}

func (c *Client) GetTransactionReceipt(ctx context.Context, hash string) (out *TxReceipt, err error) {
	result, err := c.call(ctx, "nova_getTransactionReceipt", hash)
	if err != nil {
		return
	}
	if result.Type == gjson.Null {
		err = errors.Wrapf(ErrNotFound, "receipt %s", hash)
		return
	}

	out = &TxReceipt{}
	if err = json.Unmarshal([]byte(result.Raw), out); err != nil {
		out = nil
		err = errors.Wrapf(ErrMalformedResponse, "receipt: %s", result.Raw)
	}
	return
}

type ValidatorInfo struct {
	PublicKey         string `json:"public_key"`
	Stake             uint64 `json:"stake"`
	Active            bool   `json:"active"`
	LastProposedBlock uint64 `json:"last_proposed_block"`
}

// GetValidators returns the active validator set. Nodes answer either a
// bare array or {"validators": [...], "total_stake": n}.
func (c *Client) GetValidators(ctx context.Context) (validators []ValidatorInfo, err error) {
	result, err := c.call(ctx, "nova_getValidators")
	if err != nil {
		return
	}

	raw := result
	if result.IsObject() {
		raw = result.Get("validators")
	}
	if err = json.Unmarshal([]byte(raw.Raw), &validators); err != nil {
		validators = nil
		err = errors.Wrapf(ErrMalformedResponse, "validators: %s", result.Raw)
	}
	return
}

// GetCreditOffers returns the open credit offers on the network, sorted by
// interest rate.
func (c *Client) GetCreditOffers(ctx context.Context) (offers []CreditOffer, err error) {
	result, err := c.call(ctx, "nova_getCreditOffers")
	if err != nil {
		return
	}

	raw := result
	if result.IsObject() {
		raw = result.Get("offers")
	}
	if err = json.Unmarshal([]byte(raw.Raw), &offers); err != nil {
		offers = nil
		err = errors.Wrapf(ErrMalformedResponse, "credit offers: %s", result.Raw)
	}
	return
}

// FallbackFee is the static fee schedule applied when the node cannot
// estimate: native transfers are cheap, token operations cost more.
func FallbackFee(currency string) uint64 {
	if strings.ToUpper(strings.TrimSpace(currency)) == NativeCurrency {
		return NativeFallbackFee
	}
	return TokenFallbackFee
}

// EstimateFee asks the node for a fee estimate and falls back to the
// static schedule when the node declines or misbehaves. Only context
// cancellation makes it fail.
func (c *Client) EstimateFee(ctx context.Context, currency string) (fee uint64, err error) {
	if currency == "" {
		currency = NativeCurrency
	}

	result, callErr := c.call(ctx, "nova_estimateFee", currency)
	if callErr == nil {
		if result.IsObject() {
			fee = result.Get("estimated_fee").Uint()
		} else {
			fee = result.Uint()
		}
		if fee > 0 {
			return
		}
	}

	if err = ctx.Err(); err != nil {
		err = errors.WithStack(err)
		return
	}

	fee = FallbackFee(currency)
	return
}

type SendTxOut struct {
	TxHash string `json:"tx_hash"`
	Status string `json:"status"`
}

// SendTransaction wraps the signed transaction in a submission envelope
// and broadcasts it, returning the accepted transaction hash.
func (c *Client) SendTransaction(ctx context.Context, stx *SignedTransaction) (txHash string, err error) {
	if stx == nil {
		err = errors.New("cannot send a nil transaction")
		return
	}

	env, err := stx.Envelope()
	if err != nil {
		return
	}

	result, err := c.call(ctx, "nova_sendTransaction", env)
	if err != nil {
		return
	}

	out := &SendTxOut{}
	if err = json.Unmarshal([]byte(result.Raw), out); err != nil || out.TxHash == "" {
		err = errors.Wrapf(ErrMalformedResponse, "send result: %s", result.Raw)
		return
	}

	txHash = out.TxHash
	return
}

// WaitForConfirmation polls the transaction receipt until it leaves the
// pending state. A failed poll just means the receipt is not visible yet;
// polling continues until the deadline.
func (c *Client) WaitForConfirmation(ctx context.Context, txID string, timeout time.Duration) (receipt *TxReceipt, err error) {
	if timeout <= 0 {
		timeout = DefaultConfirmationTimeout
	}
	deadline := time.Now().Add(timeout)

	for {
		rec, pollErr := c.GetTransactionReceipt(ctx, txID)
		if pollErr == nil && rec.Status != "" && rec.Status != StatusPending {
			receipt = rec
			return
		}

		if err = ctx.Err(); err != nil {
			err = errors.WithStack(err)
			return
		}
		if time.Now().After(deadline) {
			err = errors.Wrapf(ErrConfirmationTimeout, "tx %s after %s", txID, timeout)
			return
		}

		select {
		case <-ctx.Done():
			err = errors.WithStack(ctx.Err())
			return
		case <-time.After(c.cfg.PollInterval):
		}
	}
}
