package paymaster

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"

	"github.com/mosaiclabs-eth/walletkit/pkg/erc4337/userop"
)

// RESTProvider sponsors operations through a flat HTTP API: a single
// POST with the sender and gas figures, answered by {paymasterAndData}.
// Used for fallback providers that don't speak the pm_ RPC namespace.
type RESTProvider struct {
	name   string
	url    string
	client *resty.Client
}

func NewRESTProvider(name, url, apiKey string) *RESTProvider {
	client := resty.New().SetTimeout(15 * time.Second)
	if apiKey != "" {
		client.SetHeader("X-API-KEY", apiKey)
	}
	return &RESTProvider{name: name, url: url, client: client}
}

func (p *RESTProvider) Name() string { return p.name }

type restSponsorRequest struct {
	Sender               string `json:"sender"`
	EntryPoint           string `json:"entryPoint"`
	CallGasLimit         string `json:"callGasLimit"`
	VerificationGasLimit string `json:"verificationGasLimit"`
	PreVerificationGas   string `json:"preVerificationGas"`
	MaxFeePerGas         string `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
}

type restSponsorResponse struct {
	PaymasterAndData string `json:"paymasterAndData"`
	Error            string `json:"error"`
}

func (p *RESTProvider) SponsorUserOperation(ctx context.Context, op *userop.UserOperation, entrypoint common.Address) ([]byte, error) {
	wire := op.ToWire()
	var result restSponsorResponse

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(restSponsorRequest{
			Sender:               wire.Sender,
			EntryPoint:           entrypoint.Hex(),
			CallGasLimit:         wire.CallGasLimit,
			VerificationGasLimit: wire.VerificationGasLimit,
			PreVerificationGas:   wire.PreVerificationGas,
			MaxFeePerGas:         wire.MaxFeePerGas,
			MaxPriorityFeePerGas: wire.MaxPriorityFeePerGas,
		}).
		SetResult(&result).
		Post(p.url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s: %s", resp.Status(), resp.String())
	}
	if result.Error != "" {
		return nil, fmt.Errorf("provider error: %s", result.Error)
	}
	if result.PaymasterAndData == "" {
		return nil, fmt.Errorf("sponsorship response missing paymasterAndData")
	}

	return decodePaymasterAndData(result.PaymasterAndData)
}
