package eip1559

import (
	"context"
	"math/big"
	"time"

	"github.com/allegro/bigcache/v3"
)

const (
	maxFeeCacheKey = "maxFeePerGas"
	tipCacheKey    = "maxPriorityFeePerGas"
)

// CachedSuggester memoizes SuggestFee for a few seconds so building
// several operations back to back does not hammer the node. Fee
// suggestions are advisory; short staleness is harmless given the
// basefee headroom SuggestFee already adds.
type CachedSuggester struct {
	client FeeReader
	cache  *bigcache.BigCache
}

// NewCachedSuggester wraps client with a ttl-bound cache. ttl below one
// second is rounded up; bigcache has one second resolution.
func NewCachedSuggester(client FeeReader, ttl time.Duration) (*CachedSuggester, error) {
	if ttl < time.Second {
		ttl = time.Second
	}
	cfg := bigcache.DefaultConfig(ttl)
	cfg.CleanWindow = ttl
	cfg.Verbose = false

	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return &CachedSuggester{client: client, cache: cache}, nil
}

// SuggestFee returns cached fee values when fresh, otherwise delegates
// to SuggestFee and stores the result.
func (s *CachedSuggester) SuggestFee(ctx context.Context) (*big.Int, *big.Int, error) {
	maxFeeRaw, errFee := s.cache.Get(maxFeeCacheKey)
	tipRaw, errTip := s.cache.Get(tipCacheKey)
	if errFee == nil && errTip == nil {
		return new(big.Int).SetBytes(maxFeeRaw), new(big.Int).SetBytes(tipRaw), nil
	}

	maxFee, tip, err := SuggestFee(ctx, s.client)
	if err != nil {
		return nil, nil, err
	}

	_ = s.cache.Set(maxFeeCacheKey, maxFee.Bytes())
	_ = s.cache.Set(tipCacheKey, tip.Bytes())
	return maxFee, tip, nil
}
