// Package bundler is a client for an ERC-4337 bundler RPC endpoint.
// The bundler RPC is stateless; one Client is safe for concurrent use.
package bundler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaiclabs-eth/walletkit/pkg/erc4337/userop"
)

const apiKeyHeader = "X-API-KEY"

// Client talks JSON-RPC over HTTP to a bundler. A raw http.Client is
// used instead of geth's rpc.Client because bundler providers
// authenticate with a per-request API key header.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
	id     atomic.Int64
}

// NewClient creates a bundler client for the given URL. apiKey may be
// empty for unauthenticated endpoints.
func NewClient(url, apiKey string) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// SendUserOperation submits the operation and returns the bundler's
// operation hash. A bundler rejection surfaces as *BundlerError with the
// provider's message verbatim; network failures as *TransportError.
// Submission is never retried here.
func (c *Client) SendUserOperation(ctx context.Context, op *userop.UserOperation, entrypoint common.Address) (string, error) {
	var opHash string
	if err := c.call(ctx, "eth_sendUserOperation", []any{op.ToWire(), entrypoint.Hex()}, &opHash); err != nil {
		return "", err
	}
	return opHash, nil
}

// GasEstimation holds the three bundler-estimated gas fields.
type GasEstimation struct {
	PreVerificationGas   *big.Int
	VerificationGasLimit *big.Int
	CallGasLimit         *big.Int
}

// EstimateUserOperationGas asks the bundler for gas limits. The
// operation's signature only needs to be length-correct; bundlers
// ignore its content during estimation.
func (c *Client) EstimateUserOperationGas(ctx context.Context, op *userop.UserOperation, entrypoint common.Address) (*GasEstimation, error) {
	var result struct {
		PreVerificationGas   string `json:"preVerificationGas"`
		VerificationGasLimit string `json:"verificationGasLimit"`
		CallGasLimit         string `json:"callGasLimit"`
	}
	if err := c.call(ctx, "eth_estimateUserOperationGas", []any{op.ToWire(), entrypoint.Hex(), map[string]any{}}, &result); err != nil {
		return nil, err
	}

	est := &GasEstimation{}
	var ok bool
	if est.PreVerificationGas, ok = hexToBig(result.PreVerificationGas); !ok {
		return nil, fmt.Errorf("malformed preVerificationGas %q", result.PreVerificationGas)
	}
	if est.VerificationGasLimit, ok = hexToBig(result.VerificationGasLimit); !ok {
		return nil, fmt.Errorf("malformed verificationGasLimit %q", result.VerificationGasLimit)
	}
	if est.CallGasLimit, ok = hexToBig(result.CallGasLimit); !ok {
		return nil, fmt.Errorf("malformed callGasLimit %q", result.CallGasLimit)
	}
	return est, nil
}

// Receipt is the subset of an eth_getUserOperationReceipt response the
// callers here care about.
type Receipt struct {
	UserOpHash    common.Hash `json:"userOpHash"`
	Success       bool        `json:"success"`
	ActualGasCost string      `json:"actualGasCost"`
	ActualGasUsed string      `json:"actualGasUsed"`
}

// GetUserOperationReceipt fetches the receipt for an operation hash.
// Returns (nil, nil) while the operation is still pending.
func (c *Client) GetUserOperationReceipt(ctx context.Context, opHash string) (*Receipt, error) {
	var receipt *Receipt
	if err := c.call(ctx, "eth_getUserOperationReceipt", []any{opHash}, &receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// WaitForUserOperation polls for the operation's receipt until ctx is
// done. Callers own the timeout; see package docs on cancellation.
func (c *Client) WaitForUserOperation(ctx context.Context, opHash string, interval time.Duration) (*Receipt, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			receipt, err := c.GetUserOperationReceipt(ctx, opHash)
			if err != nil {
				return nil, err
			}
			if receipt != nil {
				return receipt, nil
			}
		case <-ctx.Done():
			return nil, &TransportError{Err: fmt.Errorf("no receipt for %s: %w", opHash, ctx.Err())}
		}
	}
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	reqBody, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      c.id.Add(1),
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &TransportError{Err: fmt.Errorf("%d %s: %s", resp.StatusCode, http.StatusText(resp.StatusCode), respBody)}
	}

	var envelope rpcResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("parse %s response: %w", method, err)
	}
	if envelope.Error != nil {
		return &BundlerError{Code: envelope.Error.Code, Message: envelope.Error.Message}
	}
	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func hexToBig(s string) (*big.Int, bool) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return new(big.Int).SetString(s, 16)
}
