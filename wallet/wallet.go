// Package wallet is the facade of the transaction subsystem: it ties
// address derivation, operation building, sponsorship, signing, and
// bundler submission together behind one session value per wallet
// owner.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mosaiclabs-eth/walletkit/core/chainio/aa"
	"github.com/mosaiclabs-eth/walletkit/core/chainio/signer"
	"github.com/mosaiclabs-eth/walletkit/core/config"
	"github.com/mosaiclabs-eth/walletkit/core/sessionkey"
	"github.com/mosaiclabs-eth/walletkit/metrics"
	"github.com/mosaiclabs-eth/walletkit/pkg/erc4337/bundler"
	"github.com/mosaiclabs-eth/walletkit/pkg/erc4337/gas"
	"github.com/mosaiclabs-eth/walletkit/pkg/erc4337/paymaster"
	"github.com/mosaiclabs-eth/walletkit/pkg/erc4337/userop"
	"github.com/mosaiclabs-eth/walletkit/pkg/logger"
)

// ChainClient is the read-only chain surface the facade needs.
// *ethclient.Client satisfies it.
type ChainClient interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Derivation is pure, so derived addresses are cached process-wide
// across sessions, keyed by factory, owner, and salt.
var addressCache = mustLRU(1024)

func mustLRU(size int) *lru.Cache[string, common.Address] {
	c, err := lru.New[string, common.Address](size)
	if err != nil {
		panic(err)
	}
	return c
}

// WalletSession is one owner's handle on their smart wallet. Create
// one per owner; sessions are cheap and independent, so concurrent
// sessions for different owners never contend.
type WalletSession struct {
	config   *config.SmartWalletConfig
	owner    signer.Signer
	chain    ChainClient
	bundler  *bundler.Client
	sponsors *paymaster.Chain
	estim    *gas.Estimator
	salt     *big.Int
	logger   logger.Logger
	metrics  *metrics.WalletMetrics

	address common.Address
	derived bool
}

type SessionOption func(*WalletSession)

// WithSalt selects a wallet index other than the default 0, yielding a
// different address for the same owner.
func WithSalt(salt *big.Int) SessionOption {
	return func(s *WalletSession) { s.salt = salt }
}

func WithLogger(lgr logger.Logger) SessionOption {
	return func(s *WalletSession) { s.logger = lgr }
}

func WithMetrics(m *metrics.WalletMetrics) SessionOption {
	return func(s *WalletSession) { s.metrics = m }
}

// WithFeeSuggester wires a live fee source into gas estimation.
// Without one the estimator falls back to its static fee defaults.
func WithFeeSuggester(fees gas.FeeSuggester) SessionOption {
	return func(s *WalletSession) { s.estim = gas.NewEstimator(fees) }
}

// WithSponsorshipChain replaces the provider chain built from config.
func WithSponsorshipChain(chain *paymaster.Chain) SessionOption {
	return func(s *WalletSession) { s.sponsors = chain }
}

// WithBundlerClient replaces the bundler client built from config.
func WithBundlerClient(c *bundler.Client) SessionOption {
	return func(s *WalletSession) { s.bundler = c }
}

// NewSession creates a session for one owner. chain may be nil for
// offline use, in which case only Address and the session-key
// operations work.
func NewSession(cfg *config.SmartWalletConfig, owner signer.Signer, chain ChainClient, opts ...SessionOption) *WalletSession {
	s := &WalletSession{
		config: cfg,
		owner:  owner,
		chain:  chain,
		salt:   big.NewInt(0),
		estim:  gas.NewEstimator(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.EnsureLogger(s.logger)

	if s.bundler == nil {
		s.bundler = bundler.NewClient(cfg.BundlerURL, cfg.BundlerAPIKey)
	}
	if s.sponsors == nil {
		s.sponsors = paymaster.NewChain(s.logger, providersFromConfig(cfg)...)
	}

	return s
}

func providersFromConfig(cfg *config.SmartWalletConfig) []paymaster.Provider {
	providers := make([]paymaster.Provider, 0, len(cfg.SponsorshipProviders))
	for _, p := range cfg.SponsorshipProviders {
		switch p.Kind {
		case "rest":
			providers = append(providers, paymaster.NewRESTProvider(p.Name, p.URL, p.APIKey))
		default:
			providers = append(providers, paymaster.NewRPCProvider(p.Name, p.URL, p.APIKey))
		}
	}
	return providers
}

// Owner returns the owner address behind this session.
func (s *WalletSession) Owner() common.Address {
	return s.owner.Address()
}

// Address derives the counterfactual smart wallet address for the
// session owner. Idempotent; the result is cached for the process.
func (s *WalletSession) Address() (common.Address, error) {
	if s.derived {
		return s.address, nil
	}

	key := cacheKey(s.config.Factory, s.owner.Address(), s.salt)
	if addr, ok := addressCache.Get(key); ok {
		s.address = addr
		s.derived = true
		return addr, nil
	}

	addr, err := aa.ComputeSmartWalletAddress(s.config.Factory, s.owner.Address(), s.salt)
	if err != nil {
		return common.Address{}, err
	}
	addressCache.Add(key, addr)
	if s.metrics != nil {
		s.metrics.IncWalletDerived()
	}
	s.logger.Info("derived smart wallet address", "owner", s.owner.Address().Hex(), "wallet", addr.Hex())

	s.address = addr
	s.derived = true
	return addr, nil
}

// IsDeployed reports whether the wallet bytecode exists on chain.
// Deployment can happen outside this process at any time, so the
// answer is never cached.
func (s *WalletSession) IsDeployed(ctx context.Context) (bool, error) {
	if !s.derived {
		return false, &NotInitializedError{Op: "IsDeployed"}
	}
	code, err := s.chain.CodeAt(ctx, s.address, nil)
	if err != nil {
		return false, fmt.Errorf("bytecode lookup for %s failed: %w", s.address.Hex(), err)
	}
	return len(code) > 0, nil
}

// BuildUserOperation assembles an unsigned operation calling target
// with calldata and ethValue. When the wallet is not yet deployed the
// operation carries initCode, so the first send deploys the wallet and
// executes the call atomically. Sponsorship is resolved here and is
// best effort.
func (s *WalletSession) BuildUserOperation(ctx context.Context, target common.Address, calldata []byte, ethValue *big.Int, sponsorGas bool) (*userop.UserOperation, error) {
	if !s.derived {
		return nil, &NotInitializedError{Op: "BuildUserOperation"}
	}

	code, err := s.chain.CodeAt(ctx, s.address, nil)
	if err != nil {
		return nil, fmt.Errorf("bytecode lookup for %s failed: %w", s.address.Hex(), err)
	}
	deploying := len(code) == 0

	var initCode []byte
	if deploying {
		initCode, err = aa.GetInitCode(s.config.Factory, s.owner.Address(), s.salt)
		if err != nil {
			return nil, err
		}
	}

	nonce, err := aa.GetNonce(ctx, s.chain, s.config.Entrypoint, s.address)
	if err != nil {
		return nil, err
	}

	callData, err := aa.PackExecute(target, ethValue, calldata)
	if err != nil {
		return nil, err
	}

	est, err := s.estim.Estimate(ctx, deploying)
	if err != nil {
		return nil, err
	}

	op := &userop.UserOperation{
		Sender:               s.address,
		Nonce:                nonce,
		InitCode:             initCode,
		CallData:             callData,
		CallGasLimit:         est.CallGasLimit,
		VerificationGasLimit: est.VerificationGasLimit,
		PreVerificationGas:   est.PreVerificationGas,
		MaxFeePerGas:         est.MaxFeePerGas,
		MaxPriorityFeePerGas: est.MaxPriorityFeePerGas,
	}

	paymasterAndData, provider := s.sponsors.GetPaymasterData(ctx, op, s.config.Entrypoint, sponsorGas)
	op.PaymasterAndData = paymasterAndData
	if sponsorGas && s.metrics != nil {
		if provider == "" {
			provider = "self_paid"
		}
		s.metrics.IncSponsorship(provider)
	}

	return op, nil
}

// SendUserOperation builds, signs, and submits one operation, and
// returns the bundler's operation hash. The nonce is read fresh per
// call; treat each call as one submission attempt and let the caller
// decide retry policy.
func (s *WalletSession) SendUserOperation(ctx context.Context, target common.Address, calldata []byte, ethValue *big.Int, sponsorGas bool) (string, error) {
	if !s.derived {
		return "", &NotInitializedError{Op: "SendUserOperation"}
	}

	op, err := s.BuildUserOperation(ctx, target, calldata, ethValue, sponsorGas)
	if err != nil {
		return "", err
	}

	opHash := op.UserOpHash(s.config.Entrypoint, s.config.ChainID)
	sig, err := s.owner.SignMessage(opHash.Bytes())
	if err != nil {
		return "", err
	}
	op.Signature = sig

	hash, err := s.bundler.SendUserOperation(ctx, op, s.config.Entrypoint)
	if err != nil {
		s.recordSendOutcome(err)
		return "", err
	}

	if s.metrics != nil {
		s.metrics.IncUserOpSent("accepted")
	}
	s.logger.Info("user operation submitted",
		"wallet", s.address.Hex(),
		"target", target.Hex(),
		"sponsored", len(op.PaymasterAndData) > 0,
		"opHash", hash,
	)
	return hash, nil
}

func (s *WalletSession) recordSendOutcome(err error) {
	if s.metrics == nil {
		return
	}
	var rejection *bundler.BundlerError
	if errors.As(err, &rejection) {
		s.metrics.IncUserOpSent("rejected")
		return
	}
	s.metrics.IncUserOpSent("transport_error")
}

// WaitForReceipt polls the bundler until the operation is mined or ctx
// expires.
func (s *WalletSession) WaitForReceipt(ctx context.Context, opHash string) (*bundler.Receipt, error) {
	return s.bundler.WaitForUserOperation(ctx, opHash, 3*time.Second)
}

// GrantSessionKey issues a scoped delegated key signed by the session
// owner. The returned private key is the delegate's credential; it is
// returned once and never stored.
func (s *WalletSession) GrantSessionKey(perms sessionkey.Permissions) (*sessionkey.SessionKey, *ecdsa.PrivateKey, error) {
	return sessionkey.Create(s.owner, perms)
}

// ValidateSessionKey reports whether key is a live grant from this
// session's owner.
func (s *WalletSession) ValidateSessionKey(key *sessionkey.SessionKey) bool {
	valid := sessionkey.Validate(key, s.owner.Address())
	if s.metrics != nil {
		s.metrics.IncSessionKeyCheck(checkResult(key, valid))
	}
	return valid
}

func checkResult(key *sessionkey.SessionKey, valid bool) string {
	if valid {
		return "valid"
	}
	if key != nil && time.Now().Unix() > key.Permissions.ExpiresAt {
		return "expired"
	}
	return "bad_signature"
}

func cacheKey(factory, owner common.Address, salt *big.Int) string {
	return strings.Join([]string{factory.Hex(), owner.Hex(), salt.String()}, ":")
}
