package eip1559

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeeReader struct {
	tip     *big.Int
	baseFee *big.Int
	calls   int
}

func (f *fakeFeeReader) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	f.calls++
	return new(big.Int).Set(f.tip), nil
}

func (f *fakeFeeReader) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: f.baseFee, Number: big.NewInt(1)}, nil
}

func TestSuggestFee_BasefeeHeadroom(t *testing.T) {
	// 100 gwei tip, 50 gwei basefee: both above all minimums.
	reader := &fakeFeeReader{
		tip:     big.NewInt(100_000_000_000),
		baseFee: big.NewInt(50_000_000_000),
	}

	maxFee, tip, err := SuggestFee(context.Background(), reader)
	require.NoError(t, err)

	// tip = 100 gwei + 13%
	assert.Equal(t, big.NewInt(113_000_000_000), tip)
	// maxFee = 2*baseFee + tip
	assert.Equal(t, big.NewInt(213_000_000_000), maxFee)
}

func TestSuggestFee_MinimumsApply(t *testing.T) {
	reader := &fakeFeeReader{
		tip:     big.NewInt(1), // nearly zero
		baseFee: big.NewInt(1),
	}

	maxFee, tip, err := SuggestFee(context.Background(), reader)
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(2_000_000_000), tip, "tip should be raised to the 2 gwei floor")
	assert.Equal(t, big.NewInt(20_000_000_000), maxFee, "maxFee should be raised to the 20 gwei floor")
}

func TestSuggestFee_LegacyChain(t *testing.T) {
	reader := &fakeFeeReader{
		tip:     big.NewInt(5_000_000_000),
		baseFee: nil, // pre-EIP-1559
	}

	maxFee, tip, err := SuggestFee(context.Background(), reader)
	require.NoError(t, err)
	assert.Equal(t, tip, maxFee, "legacy chains use the tip as maxFee")
}

func TestCachedSuggester_AvoidsRepeatLookups(t *testing.T) {
	reader := &fakeFeeReader{
		tip:     big.NewInt(100_000_000_000),
		baseFee: big.NewInt(50_000_000_000),
	}

	s, err := NewCachedSuggester(reader, time.Minute)
	require.NoError(t, err)

	first, firstTip, err := s.SuggestFee(context.Background())
	require.NoError(t, err)

	second, secondTip, err := s.SuggestFee(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstTip, secondTip)
	assert.Equal(t, 1, reader.calls, "second call should be served from cache")
}
