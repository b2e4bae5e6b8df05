package config

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
)

type Network string

const (
	EthereumNetwork = Network("ethereum")
	PolygonNetwork  = Network("polygon")
	ArbitrumNetwork = Network("arbitrum")
	OptimismNetwork = Network("optimism")
	BaseNetwork     = Network("base")
)

// EntrypointAddress is the canonical v0.6 EntryPoint, deployed at the
// same address on every supported network.
var EntrypointAddress = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")

// NetworkParams are the per-network constants the wallet needs: the
// chain id that goes into every userOpHash and the account factory the
// counterfactual address is derived from.
type NetworkParams struct {
	ChainID *big.Int
	Factory common.Address
}

var networks = map[Network]NetworkParams{
	EthereumNetwork: {ChainID: big.NewInt(1), Factory: common.HexToAddress("0x9406Cc6185a346906296840746125a0E44976454")},
	PolygonNetwork:  {ChainID: big.NewInt(137), Factory: common.HexToAddress("0x9406Cc6185a346906296840746125a0E44976454")},
	ArbitrumNetwork: {ChainID: big.NewInt(42161), Factory: common.HexToAddress("0x9406Cc6185a346906296840746125a0E44976454")},
	OptimismNetwork: {ChainID: big.NewInt(10), Factory: common.HexToAddress("0x9406Cc6185a346906296840746125a0E44976454")},
	BaseNetwork:     {ChainID: big.NewInt(8453), Factory: common.HexToAddress("0x9406Cc6185a346906296840746125a0E44976454")},
}

// SupportedNetworks lists every network with built-in parameters,
// alphabetically.
func SupportedNetworks() []Network {
	keys := lo.Keys(networks)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ParamsFor returns the built-in parameters for a network.
func ParamsFor(network Network) (NetworkParams, error) {
	params, ok := networks[network]
	if !ok {
		return NetworkParams{}, fmt.Errorf("unsupported network %q, supported: %v", network, SupportedNetworks())
	}
	return params, nil
}
