// Package paymaster resolves gas sponsorship for user operations.
//
// Sponsorship is best effort, never a hard dependency: providers are
// polled in priority order, the first success wins, and when every
// provider fails the operation simply proceeds self-paid. Adding a
// provider is a data change at Chain construction, not a code change.
package paymaster

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mosaiclabs-eth/walletkit/pkg/erc4337/userop"
	"github.com/mosaiclabs-eth/walletkit/pkg/logger"
)

// SelfPaid is the paymasterAndData value of an unsponsored operation:
// exactly "0x" on the wire.
var SelfPaid = []byte{}

// Provider is one gas-sponsorship capability.
type Provider interface {
	Name() string
	SponsorUserOperation(ctx context.Context, op *userop.UserOperation, entrypoint common.Address) ([]byte, error)
}

// Chain is an ordered list of sponsorship providers.
type Chain struct {
	providers []Provider
	logger    logger.Logger
}

// NewChain builds a provider chain. An empty chain always resolves
// self-paid.
func NewChain(lgr logger.Logger, providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		logger:    logger.EnsureLogger(lgr),
	}
}

// GetPaymasterData returns the paymasterAndData bytes for an operation
// and the name of the provider that granted them, or (SelfPaid, "")
// when sponsorship was not requested or no provider could grant it.
// It never returns an error: provider failures are logged warnings,
// because sponsorship failure must not block an otherwise valid send.
func (c *Chain) GetPaymasterData(ctx context.Context, op *userop.UserOperation, entrypoint common.Address, sponsorGas bool) ([]byte, string) {
	if !sponsorGas {
		return SelfPaid, ""
	}

	for _, p := range c.providers {
		data, err := p.SponsorUserOperation(ctx, op, entrypoint)
		if err != nil {
			c.logger.Warn("sponsorship provider failed, trying next", "provider", p.Name(), "err", err)
			continue
		}
		if len(data) == 0 {
			c.logger.Warn("sponsorship provider returned empty payload, trying next", "provider", p.Name())
			continue
		}
		return data, p.Name()
	}

	c.logger.Warn("all sponsorship providers failed, sending self-paid", "providers", len(c.providers))
	return SelfPaid, ""
}

func decodePaymasterAndData(s string) ([]byte, error) {
	return hexutil.Decode(s)
}
