package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	. "github.com/novaprotocol/nova-go"
	"github.com/novaprotocol/nova-go/rpcclient"
	"github.com/pkg/errors"
)

func newHTTPServer(config *_config, node *chain) *httpServer {
	return &httpServer{
		config: config,
		node:   node,
	}
}

type httpServer struct {
	app    *fiber.App
	config *_config
	node   *chain
}

func (s *httpServer) Start() (err error) {
	s.app = fiber.New(fiber.Config{
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())
	s.app.Use(func(c *fiber.Ctx) error {
		rsp := c.Next()
		log.Info().Msgf("http response: [%d] %s - %s %s", c.Response().StatusCode(), c.IP(), c.Method(), c.Path())
		return rsp
	})

	s.app.Get("/health", s.getHealth)
	s.app.Get("/status", s.getStatus)
	s.app.Get("/validators", s.getValidators)
	s.app.Get("/blocks/:height", s.getBlock)
	s.app.Get("/transactions/:hash", s.getTransaction)
	s.app.Get("/accounts/:address", s.getAccount)
	s.app.Post("/rpc", s.postRpc)

	log.Info().Msgf("http/rpc server listening on %s", s.config.ListenHostPort)

	err = errors.WithStack(s.app.Listen(s.config.ListenHostPort))

	return
}

func (s *httpServer) Stop() (err error) {
	return errors.WithStack(s.app.Shutdown())
}

func (s *httpServer) errorResponse(c *fiber.Ctx, err error) error {
	statusCode := http.StatusInternalServerError

	reportedErr := err

	for _, match := range []error{
		ErrBlockNotFound,
		ErrTransactionNotFound,
		ErrAccountNotFound,
	} {
		if errors.Is(err, match) {
			reportedErr = match
			statusCode = http.StatusNotFound
			break
		}
	}

	return c.Status(statusCode).JSON(map[string]any{
		"error":   reportedErr.Error(),
		"details": fmt.Sprintf("%+v", err),
	})
}

func (s *httpServer) getHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *httpServer) getStatus(c *fiber.Ctx) error {
	return c.JSON(s.node.status())
}

func (s *httpServer) getValidators(c *fiber.Ctx) error {
	validators, _ := s.node.validatorSet()
	return c.JSON(validators)
}

func (s *httpServer) getBlock(c *fiber.Ctx) error {
	height, err := strconv.ParseUint(c.Params("height"), 10, 64)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(map[string]any{
			"error": "block height must be a number",
		})
	}

	block, err := s.node.block(height)
	if err != nil {
		return s.errorResponse(c, err)
	}

	return c.JSON(block)
}

func (s *httpServer) getTransaction(c *fiber.Ctx) error {
	tx, err := s.node.transaction(c.Params("hash"))
	if err != nil {
		return s.errorResponse(c, err)
	}

	return c.JSON(tx)
}

func (s *httpServer) getAccount(c *fiber.Ctx) error {
	account, err := s.node.account(c.Params("address"))
	if err != nil {
		return s.errorResponse(c, err)
	}

	return c.JSON(account)
}

type rpcEnvelope struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcErrorBody   `json:"error,omitempty"`
}

// Response payload shapes for the RPC methods, matching what real nodes
// emit.
type balanceResponse struct {
	Address string `json:"address"`
	TokenID string `json:"token_id"`
	Balance uint64 `json:"balance"`
}

type feeEstimateResponse struct {
	EstimatedFee uint64 `json:"estimated_fee"`
	FeePerByte   uint64 `json:"fee_per_byte"`
}

type validatorsResponse struct {
	Validators []rpcclient.ValidatorInfo `json:"validators"`
	TotalStake uint64                    `json:"total_stake"`
}

type creditOffersResponse struct {
	Offers []CreditOffer `json:"offers"`
	Total  int           `json:"total"`
}

func (s *httpServer) postRpc(c *fiber.Ctx) error {
	env := &rpcEnvelope{}
	if err := json.Unmarshal(c.Body(), env); err != nil {
		return c.JSON(rpcResponse{
			Jsonrpc: "2.0",
			Error:   &rpcErrorBody{Code: rpcclient.RpcParseError, Message: "request body is not valid json"},
		})
	}

	if env.Jsonrpc != "2.0" || env.Method == "" {
		return c.JSON(rpcResponse{
			Jsonrpc: "2.0",
			ID:      env.ID,
			Error:   &rpcErrorBody{Code: rpcclient.RpcInvalidRequest, Message: "expected a jsonrpc 2.0 request with a method"},
		})
	}

	result, rpcErr := s.dispatch(env)

	rsp := rpcResponse{Jsonrpc: "2.0", ID: env.ID}
	if rpcErr != nil {
		rsp.Error = rpcErr
	} else {
		rsp.Result = result
	}
	return c.JSON(rsp)
}

// stringParams decodes positional string parameters, requiring at least
// min of them.
func stringParams(raw json.RawMessage, min int) (params []string, err error) {
	if len(raw) > 0 {
		if err = json.Unmarshal(raw, &params); err != nil {
			err = errors.Wrap(err, "params must be an array of strings")
			return
		}
	}
	if len(params) < min {
		err = errors.Errorf("expected at least %d parameter(s), got %d", min, len(params))
	}
	return
}

func invalidParams(err error) *rpcErrorBody {
	return &rpcErrorBody{Code: rpcclient.RpcInvalidParams, Message: err.Error()}
}

func (s *httpServer) dispatch(env *rpcEnvelope) (result any, rpcErr *rpcErrorBody) {
	switch env.Method {
	case "nova_blockHeight":
		result = s.node.blockHeight()

	case "nova_peerCount":
		result = s.node.peerCount()

	case "nova_networkId":
		result = string(s.node.network)

	case "nova_version":
		result = s.node.version

	case "nova_getBalance":
		params, err := stringParams(env.Params, 1)
		if err != nil {
			rpcErr = invalidParams(err)
			return
		}
		token := NativeCurrency
		if len(params) > 1 && params[1] != "" {
			token = params[1]
		}
		result = balanceResponse{
			Address: params[0],
			TokenID: token,
			Balance: s.node.balance(params[0]),
		}

	case "nova_getAccountState":
		params, err := stringParams(env.Params, 1)
		if err != nil {
			rpcErr = invalidParams(err)
			return
		}
		account, err := s.node.account(params[0])
		if err != nil {
			rpcErr = &rpcErrorBody{
				Code:    rpcclient.RpcAccountNotFound,
				Message: fmt.Sprintf("account not found: %s", params[0]),
			}
			return
		}
		result = account

	case "nova_getTransactionReceipt":
		params, err := stringParams(env.Params, 1)
		if err != nil {
			rpcErr = invalidParams(err)
			return
		}
		receipt, err := s.node.receipt(params[0])
		if err != nil {
			rpcErr = &rpcErrorBody{
				Code:    rpcclient.RpcTxNotFound,
				Message: fmt.Sprintf("transaction not found: %s", params[0]),
			}
			return
		}
		result = receipt

	case "nova_estimateFee":
		currency := NativeCurrency
		if params, err := stringParams(env.Params, 0); err == nil && len(params) > 0 && params[0] != "" {
			currency = params[0]
		}
		result = feeEstimateResponse{
			EstimatedFee: rpcclient.FallbackFee(currency),
			FeePerByte:   2,
		}

	case "nova_sendTransaction":
		var params []json.RawMessage
		if err := json.Unmarshal(env.Params, &params); err != nil || len(params) < 1 {
			rpcErr = invalidParams(errors.New("expected a transaction envelope parameter"))
			return
		}

		submission := &SubmissionEnvelope{}
		if err := json.Unmarshal(params[0], submission); err != nil {
			rpcErr = invalidParams(errors.Wrap(err, "parameter is not a transaction envelope"))
			return
		}

		stx, err := submission.SignedTransaction()
		if err != nil {
			rpcErr = invalidParams(err)
			return
		}

		hash, err := s.node.submit(stx)
		if err != nil {
			rpcErr = &rpcErrorBody{
				Code:    rpcclient.RpcTxRejected,
				Message: fmt.Sprintf("transaction rejected: %v", err),
			}
			return
		}
		result = rpcclient.SendTxOut{TxHash: hash, Status: StatusPending}

	case "nova_getValidators":
		validators, totalStake := s.node.validatorSet()
		result = validatorsResponse{Validators: validators, TotalStake: totalStake}

	case "nova_getCreditOffers":
		offers := s.node.creditOffers()
		result = creditOffersResponse{Offers: offers, Total: len(offers)}

	default:
		rpcErr = &rpcErrorBody{
			Code:    rpcclient.RpcMethodNotFound,
			Message: fmt.Sprintf("method not found: %s", env.Method),
		}
	}

	return
}
