package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/novaprotocol/nova-go"
	"github.com/stretchr/testify/assert"
)

func testClient(t *testing.T, retries int, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewWithConfig(&Config{
		BaseURL:      server.URL,
		Retries:      retries,
		RetryDelay:   time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	})
	assert.Nil(t, err)
	return client
}

func writeRpcResult(w http.ResponseWriter, result string) {
	fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":%s}`, result)
}

func writeRpcError(w http.ResponseWriter, code int, message string) {
	fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"error":{"code":%d,"message":%q}}`, code, message)
}

func TestNewWithConfig(t *testing.T) {
	_, err := NewWithConfig(nil)
	assert.NotNil(t, err)

	_, err = NewWithConfig(&Config{})
	assert.NotNil(t, err)

	// A trailing slash on the base url must not double up path separators.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status", r.URL.Path)
		fmt.Fprint(w, `{"version":"novanode/0.1.0"}`)
	}))
	defer server.Close()

	client, err := NewWithConfig(&Config{BaseURL: server.URL + "/"})
	assert.Nil(t, err)
	out, err := client.GetStatus(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, "novanode/0.1.0", out.Version)
}

func TestClient_GetStatus(t *testing.T) {
	client := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/status", r.URL.Path)
		fmt.Fprint(w, `{
			"version": "novanode/0.1.0",
			"network": "devnet",
			"block_height": 1042,
			"peer_count": 8,
			"synced": true,
			"timestamp": "2026-02-01T10:00:00Z"
		}`)
	})

	out, err := client.GetStatus(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, "novanode/0.1.0", out.Version)
	assert.Equal(t, "devnet", out.Network)
	assert.Equal(t, uint64(1042), out.BlockHeight)
	assert.Equal(t, uint64(8), out.PeerCount)
	assert.True(t, out.Synced)
}

func TestClient_RestNotFound(t *testing.T) {
	client := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	ctx := context.Background()

	_, err := client.GetBlock(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, strings.Contains(err.Error(), "block 7"))

	_, err = client.GetTransaction(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, strings.Contains(err.Error(), "tx abc"))

	_, err = client.GetAccount(ctx, "nova1missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, strings.Contains(err.Error(), "account nova1missing"))
}

func TestClient_Health(t *testing.T) {
	healthy := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		fmt.Fprint(w, `{"status":"ok"}`)
	})
	assert.True(t, healthy.Health(context.Background()))

	failing := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	assert.False(t, failing.Health(context.Background()))
}

func TestClient_RetryOutage(t *testing.T) {
	var calls atomic.Int64
	client := testClient(t, 2, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"version":"novanode/0.1.0","block_height":9}`)
	})

	// Two 503s burn the two extra attempts, the third succeeds.
	out, err := client.GetStatus(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, uint64(9), out.BlockHeight)
	assert.Equal(t, int64(3), calls.Load())
}

func TestClient_RetriesExhausted(t *testing.T) {
	var calls atomic.Int64
	client := testClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "node draining")
	})

	_, err := client.GetStatus(context.Background())
	assert.ErrorIs(t, err, ErrTransportFailed)
	assert.True(t, strings.Contains(err.Error(), "status 503"))
	assert.Equal(t, int64(2), calls.Load())
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int64
	client := testClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.GetStatus(context.Background())
	assert.ErrorIs(t, err, ErrTransportFailed)
	assert.Equal(t, int64(1), calls.Load())
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client, err := NewWithConfig(&Config{
		BaseURL:    baseURL,
		Retries:    1,
		RetryDelay: time.Millisecond,
	})
	assert.Nil(t, err)

	_, err = client.GetStatus(context.Background())
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestClient_RpcSentinelMapping(t *testing.T) {
	client := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		assert.Nil(t, json.NewDecoder(r.Body).Decode(&req))

		// Nodes report bare sentinel messages for missing resources.
		switch req.Method {
		case "nova_getTransactionReceipt":
			writeRpcError(w, RpcTxNotFound, "transaction not found")
		case "nova_getAccountState":
			writeRpcError(w, RpcAccountNotFound, "account not found")
		default:
			writeRpcError(w, RpcMethodNotFound, "method not found")
		}
	})
	ctx := context.Background()

	_, err := client.GetTransactionReceipt(ctx, "abc")
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	_, err = client.GetAccountState(ctx, "nova1nobody")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestClient_RpcErrorPassthrough(t *testing.T) {
	client := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		writeRpcError(w, RpcTxRejected, "transaction rejected: nonce too low")
	})

	_, err := client.BlockHeight(context.Background())
	var rpcErr *RpcError
	assert.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, RpcTxRejected, rpcErr.Code)
	assert.Equal(t, "transaction rejected: nonce too low", rpcErr.Message)
	assert.Equal(t, "rpc error -32003: transaction rejected: nonce too low", rpcErr.Error())
}

func TestClient_MalformedResponse(t *testing.T) {
	client := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1}`)
	})

	_, err := client.BlockHeight(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClient_BlockHeightShapes(t *testing.T) {
	var calls atomic.Int64
	client := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeRpcResult(w, `12345`)
			return
		}
		writeRpcResult(w, `{"height":12345}`)
	})
	ctx := context.Background()

	height, err := client.BlockHeight(ctx)
	assert.Nil(t, err)
	assert.Equal(t, uint64(12345), height)

	height, err = client.BlockHeight(ctx)
	assert.Nil(t, err)
	assert.Equal(t, uint64(12345), height)
}

func TestClient_GetBalance(t *testing.T) {
	var mu sync.Mutex
	var tokens []string
	var calls atomic.Int64
	client := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Params []string `json:"params"`
		}
		assert.Nil(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2, len(req.Params))
		mu.Lock()
		tokens = append(tokens, req.Params[1])
		mu.Unlock()

		if calls.Add(1) == 1 {
			writeRpcResult(w, `777`)
			return
		}
		writeRpcResult(w, `{"balance":888}`)
	})
	ctx := context.Background()

	// An empty token queries the native currency.
	balance, err := client.GetBalance(ctx, "nova1someone", "")
	assert.Nil(t, err)
	assert.Equal(t, uint64(777), balance)

	balance, err = client.GetBalance(ctx, "nova1someone", "USDX")
	assert.Nil(t, err)
	assert.Equal(t, uint64(888), balance)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{NativeCurrency, "USDX"}, tokens)
}

func TestClient_GetValidators(t *testing.T) {
	const validator = `{"public_key":"ab12","stake":50,"active":true,"last_proposed_block":7}`

	var calls atomic.Int64
	client := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeRpcResult(w, `{"validators":[`+validator+`],"total_stake":50}`)
			return
		}
		writeRpcResult(w, `[`+validator+`]`)
	})
	ctx := context.Background()

	// Both the wrapped and the bare-array response shapes decode.
	for i := 0; i < 2; i++ {
		validators, err := client.GetValidators(ctx)
		assert.Nil(t, err)
		assert.Equal(t, 1, len(validators))
		assert.Equal(t, "ab12", validators[0].PublicKey)
		assert.Equal(t, uint64(50), validators[0].Stake)
		assert.True(t, validators[0].Active)
		assert.Equal(t, uint64(7), validators[0].LastProposedBlock)
	}
}

func TestClient_GetCreditOffers(t *testing.T) {
	client := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		writeRpcResult(w, `{
			"offers": [{
				"offer_id": "offer-1",
				"lender": "nova1lender",
				"borrower": "",
				"currency": "NOVA",
				"limit": 5000000,
				"interest_bps": 450,
				"expires_at": "2026-06-01T00:00:00Z"
			}],
			"total": 1
		}`)
	})

	offers, err := client.GetCreditOffers(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 1, len(offers))
	assert.Equal(t, "offer-1", offers[0].OfferID)
	assert.Equal(t, "nova1lender", offers[0].Lender)
	assert.Equal(t, uint64(5_000_000), offers[0].Limit)
	assert.Equal(t, uint32(450), offers[0].InterestBps)
}

func TestFallbackFee(t *testing.T) {
	assert.Equal(t, uint64(NativeFallbackFee), FallbackFee("NOVA"))
	assert.Equal(t, uint64(NativeFallbackFee), FallbackFee(" nova "))
	assert.Equal(t, uint64(TokenFallbackFee), FallbackFee("USDX"))
	assert.Equal(t, uint64(TokenFallbackFee), FallbackFee(""))
}

func TestClient_EstimateFee(t *testing.T) {
	ctx := context.Background()

	answered := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		writeRpcResult(w, `{"estimated_fee":17,"fee_per_byte":2}`)
	})
	fee, err := answered.EstimateFee(ctx, NativeCurrency)
	assert.Nil(t, err)
	assert.Equal(t, uint64(17), fee)

	// A zero estimate means the node declined; fall back to the schedule.
	declined := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		writeRpcResult(w, `0`)
	})
	fee, err = declined.EstimateFee(ctx, "")
	assert.Nil(t, err)
	assert.Equal(t, uint64(NativeFallbackFee), fee)

	// So does a node that cannot answer at all.
	broken := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	fee, err = broken.EstimateFee(ctx, "USDX")
	assert.Nil(t, err)
	assert.Equal(t, uint64(TokenFallbackFee), fee)

	// Only a dead context surfaces as an error.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = broken.EstimateFee(cancelled, "USDX")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_SendTransaction(t *testing.T) {
	sender, err := NewWallet()
	assert.Nil(t, err)
	receiver, err := NewWallet()
	assert.Nil(t, err)
	stx, err := sender.BuildTransfer(receiver.Address(), 5, NativeCurrency, WithNonce(1))
	assert.Nil(t, err)

	client := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		assert.Nil(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nova_sendTransaction", req.Method)
		assert.Equal(t, 1, len(req.Params))

		// The wire envelope must decode and verify on the node side.
		env := &SubmissionEnvelope{}
		assert.Nil(t, json.Unmarshal(req.Params[0], env))
		assert.Equal(t, stx.Transaction.ID, env.TxID)
		decoded, envErr := env.SignedTransaction()
		assert.Nil(t, envErr)
		assert.True(t, decoded.Verify())

		writeRpcResult(w, fmt.Sprintf(`{"tx_hash":%q,"status":"pending"}`, env.TxID))
	})

	hash, err := client.SendTransaction(context.Background(), stx)
	assert.Nil(t, err)
	assert.Equal(t, stx.Transaction.ID, hash)

	_, err = client.SendTransaction(context.Background(), nil)
	assert.NotNil(t, err)
}

func TestClient_SendTransaction_MalformedResult(t *testing.T) {
	sender, err := NewWallet()
	assert.Nil(t, err)
	receiver, err := NewWallet()
	assert.Nil(t, err)
	stx, err := sender.BuildTransfer(receiver.Address(), 5, NativeCurrency)
	assert.Nil(t, err)

	client := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		writeRpcResult(w, `{"status":"ok"}`)
	})

	_, err = client.SendTransaction(context.Background(), stx)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClient_WaitForConfirmation(t *testing.T) {
	var polls atomic.Int64
	client := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		switch polls.Add(1) {
		case 1:
			// Receipt not visible yet; polling keeps going.
			writeRpcError(w, RpcTxNotFound, "transaction not found")
		case 2:
			writeRpcResult(w, `{"tx_hash":"abc","block_height":0,"status":"pending"}`)
		default:
			writeRpcResult(w, `{"tx_hash":"abc","block_height":9,"status":"confirmed"}`)
		}
	})

	receipt, err := client.WaitForConfirmation(context.Background(), "abc", 5*time.Second)
	assert.Nil(t, err)
	assert.Equal(t, StatusConfirmed, receipt.Status)
	assert.Equal(t, uint64(9), receipt.BlockHeight)
	assert.Equal(t, int64(3), polls.Load())
}

func TestClient_WaitForConfirmation_Timeout(t *testing.T) {
	client := testClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		writeRpcResult(w, `{"tx_hash":"abc","block_height":0,"status":"pending"}`)
	})

	_, err := client.WaitForConfirmation(context.Background(), "abc", 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrConfirmationTimeout)
	assert.True(t, strings.Contains(err.Error(), "tx abc"))
}
