package config

import (
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

// SmartWalletConfig is the immutable per-process configuration of the
// transaction subsystem. Built once at startup and shared by every
// wallet session.
type SmartWalletConfig struct {
	Network    Network
	ChainID    *big.Int
	Factory    common.Address
	Entrypoint common.Address

	EthRpcUrl     string
	BundlerURL    string
	BundlerAPIKey string

	// SponsorshipProviders in fallback priority order. Empty means
	// every operation is self-paid.
	SponsorshipProviders []SponsorshipProvider

	StoragePath string
}

// SponsorshipProvider is one paymaster endpoint. Kind selects the
// protocol: "rpc" speaks pm_sponsorUserOperation, "rest" the flat
// POST fallback API.
type SponsorshipProvider struct {
	Name   string
	Kind   string
	URL    string
	APIKey string
}

// These are read from configPath
type ConfigRaw struct {
	Network       string `yaml:"network" validate:"required"`
	EthRpcUrl     string `yaml:"eth_rpc_url" validate:"required,url"`
	BundlerURL    string `yaml:"bundler_url" validate:"required,url"`
	BundlerAPIKey string `yaml:"bundler_api_key"`

	// Optional override of the built-in factory for the network.
	FactoryAddress string `yaml:"factory_address" validate:"omitempty,eth_addr"`

	SponsorshipProviders []SponsorshipProviderRaw `yaml:"sponsorship_providers" validate:"dive"`

	StoragePath string `yaml:"storage_path"`
}

type SponsorshipProviderRaw struct {
	Name   string `yaml:"name" validate:"required"`
	Kind   string `yaml:"kind" validate:"required,oneof=rpc rest"`
	URL    string `yaml:"url" validate:"required,url"`
	APIKey string `yaml:"api_key"`
}

// NewConfig parses and validates the yaml config file at configPath.
func NewConfig(configPath string) (*SmartWalletConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	var raw ConfigRaw
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", configPath, err)
	}

	return FromRaw(&raw)
}

// FromRaw validates a raw config and resolves it against the built-in
// network parameters.
func FromRaw(raw *ConfigRaw) (*SmartWalletConfig, error) {
	if err := validator.New().Struct(raw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	params, err := ParamsFor(Network(raw.Network))
	if err != nil {
		return nil, err
	}

	factory := params.Factory
	if raw.FactoryAddress != "" {
		factory = common.HexToAddress(raw.FactoryAddress)
	}

	providers := make([]SponsorshipProvider, 0, len(raw.SponsorshipProviders))
	for _, p := range raw.SponsorshipProviders {
		providers = append(providers, SponsorshipProvider{
			Name:   p.Name,
			Kind:   p.Kind,
			URL:    p.URL,
			APIKey: p.APIKey,
		})
	}

	return &SmartWalletConfig{
		Network:              Network(raw.Network),
		ChainID:              params.ChainID,
		Factory:              factory,
		Entrypoint:           EntrypointAddress,
		EthRpcUrl:            raw.EthRpcUrl,
		BundlerURL:           raw.BundlerURL,
		BundlerAPIKey:        raw.BundlerAPIKey,
		SponsorshipProviders: providers,
		StoragePath:          raw.StoragePath,
	}, nil
}
