package paymaster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaiclabs-eth/walletkit/pkg/erc4337/userop"
)

// RPCProvider sponsors operations through the standard
// pm_sponsorUserOperation JSON-RPC method.
type RPCProvider struct {
	name   string
	url    string
	apiKey string
	http   *http.Client
	id     atomic.Int64
}

func NewRPCProvider(name, url, apiKey string) *RPCProvider {
	return &RPCProvider{
		name:   name,
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *RPCProvider) Name() string { return p.name }

// SponsorUserOperation posts [partialUserOp, {entryPoint}] and decodes
// result.paymasterAndData. The operation's signature and
// paymasterAndData fields are ignored by the provider.
func (p *RPCProvider) SponsorUserOperation(ctx context.Context, op *userop.UserOperation, entrypoint common.Address) ([]byte, error) {
	reqBody, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  "pm_sponsorUserOperation",
		"params":  []any{op.ToWire(), map[string]string{"entryPoint": entrypoint.Hex()}},
		"id":      p.id.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal sponsorship request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create sponsorship request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("X-API-KEY", p.apiKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%d %s: %s", resp.StatusCode, http.StatusText(resp.StatusCode), respBody)
	}

	var envelope struct {
		Result *struct {
			PaymasterAndData string `json:"paymasterAndData"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("parse sponsorship response: %w", err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("provider error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}
	if envelope.Result == nil || envelope.Result.PaymasterAndData == "" {
		return nil, fmt.Errorf("sponsorship response missing paymasterAndData")
	}

	return decodePaymasterAndData(envelope.Result.PaymasterAndData)
}
