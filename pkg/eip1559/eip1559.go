// Package eip1559 suggests maxFeePerGas / maxPriorityFeePerGas for
// user operations from live chain state.
package eip1559

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// Minimum tip of 2 gwei for bundler profitability.
	minTip = big.NewInt(2_000_000_000)

	// Minimum maxFeePerGas of 20 gwei for high-basefee chains like Base.
	minMaxFee = big.NewInt(20_000_000_000)
)

// FeeReader is the chain surface needed to suggest fees.
// *ethclient.Client satisfies it.
type FeeReader interface {
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// SuggestFee returns (maxFeePerGas, maxPriorityFeePerGas) for the next
// block. The tip gets a 13% buffer; maxFeePerGas gets 2x basefee
// headroom so the operation survives basefee growth between blocks.
func SuggestFee(ctx context.Context, client FeeReader) (*big.Int, *big.Int, error) {
	tipCap, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, err
	}

	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, err
	}

	buffer := new(big.Int).Div(tipCap, big.NewInt(100))
	buffer.Mul(buffer, big.NewInt(13))
	maxPriorityFeePerGas := new(big.Int).Add(tipCap, buffer)

	if maxPriorityFeePerGas.Cmp(minTip) < 0 {
		maxPriorityFeePerGas = new(big.Int).Set(minTip)
	}

	var maxFeePerGas *big.Int
	if baseFee := header.BaseFee; baseFee != nil {
		maxFeePerGas = new(big.Int).Add(
			new(big.Int).Mul(baseFee, big.NewInt(2)),
			maxPriorityFeePerGas,
		)
		if maxFeePerGas.Cmp(minMaxFee) < 0 {
			maxFeePerGas = new(big.Int).Set(minMaxFee)
		}
	} else {
		// Legacy (pre-EIP-1559) chain.
		maxFeePerGas = new(big.Int).Set(maxPriorityFeePerGas)
	}

	return maxFeePerGas, maxPriorityFeePerGas, nil
}
