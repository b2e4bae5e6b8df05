// Package gas produces the five gas fields a UserOperation needs.
package gas

import (
	"context"
	"fmt"
	"math/big"
)

// Default limits for UserOp construction. Bundler estimation often
// fails, so these are sized from observed ETH transfers and smart
// wallet operations rather than calculated. Last validated against
// Base and Sepolia traffic.
var (
	DefaultCallGasLimit         = big.NewInt(200_000)
	DefaultVerificationGasLimit = big.NewInt(1_000_000)
	DefaultPreVerificationGas   = big.NewInt(50_000)

	// Wallet deployment (initCode present) runs the factory, proxy
	// setup, and owner initialization inside verification, which needs
	// far more than a plain signature check.
	DeploymentVerificationGasLimit = big.NewInt(3_000_000)

	// Fee fallbacks when no live fee source is configured.
	DefaultMaxFeePerGas         = big.NewInt(20_000_000_000) // 20 gwei
	DefaultMaxPriorityFeePerGas = big.NewInt(2_000_000_000)  // 2 gwei
)

// EstimationError reports unusable gas figures, most importantly a zero
// callGasLimit, which would make the operation unexecutable on-chain.
// Never retried.
type EstimationError struct {
	Field  string
	Reason string
}

func (e *EstimationError) Error() string {
	return fmt.Sprintf("gas estimation error: %s %s", e.Field, e.Reason)
}

// Estimates carries the five gas fields of a UserOperation.
type Estimates struct {
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// Validate rejects gas figures that would produce an unexecutable
// operation. Run before submission, not after estimation, so overrides
// are covered too.
func (e *Estimates) Validate() error {
	if e.CallGasLimit == nil || e.CallGasLimit.Sign() <= 0 {
		return &EstimationError{Field: "callGasLimit", Reason: "must be positive"}
	}
	if e.VerificationGasLimit == nil || e.VerificationGasLimit.Sign() <= 0 {
		return &EstimationError{Field: "verificationGasLimit", Reason: "must be positive"}
	}
	if e.MaxFeePerGas == nil || e.MaxFeePerGas.Sign() <= 0 {
		return &EstimationError{Field: "maxFeePerGas", Reason: "must be positive"}
	}
	return nil
}

// FeeSuggester provides live (maxFeePerGas, maxPriorityFeePerGas).
// eip1559.CachedSuggester satisfies it.
type FeeSuggester interface {
	SuggestFee(ctx context.Context) (*big.Int, *big.Int, error)
}

// Estimator returns gas figures for operations. Limits come from the
// validated defaults; fees come from the configured suggester when one
// is present, otherwise from the fee fallbacks.
type Estimator struct {
	fees FeeSuggester
}

// NewEstimator creates an Estimator. fees may be nil for fully offline
// operation.
func NewEstimator(fees FeeSuggester) *Estimator {
	return &Estimator{fees: fees}
}

// Estimate produces the five gas fields. deploying selects the larger
// verification limit needed when initCode is present.
func (e *Estimator) Estimate(ctx context.Context, deploying bool) (*Estimates, error) {
	est := &Estimates{
		CallGasLimit:         new(big.Int).Set(DefaultCallGasLimit),
		VerificationGasLimit: new(big.Int).Set(DefaultVerificationGasLimit),
		PreVerificationGas:   new(big.Int).Set(DefaultPreVerificationGas),
		MaxFeePerGas:         new(big.Int).Set(DefaultMaxFeePerGas),
		MaxPriorityFeePerGas: new(big.Int).Set(DefaultMaxPriorityFeePerGas),
	}
	if deploying {
		est.VerificationGasLimit = new(big.Int).Set(DeploymentVerificationGasLimit)
	}

	if e.fees != nil {
		maxFee, tip, err := e.fees.SuggestFee(ctx)
		if err != nil {
			return nil, fmt.Errorf("fee suggestion failed: %w", err)
		}
		est.MaxFeePerGas = maxFee
		est.MaxPriorityFeePerGas = tip
	}

	if err := est.Validate(); err != nil {
		return nil, err
	}
	return est, nil
}
