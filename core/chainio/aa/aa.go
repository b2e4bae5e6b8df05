// Package aa packs calldata for the smart wallet and its factory and
// derives counterfactual wallet addresses. Everything here is pure
// except GetNonce, which reads the EntryPoint.
package aa

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Minimal ABI fragments for the three contract surfaces this subsystem
// touches. Full bindings are not needed for packing a handful of calls.
const (
	factoryABIJSON = `[{"inputs":[{"name":"owner","type":"address"},{"name":"salt","type":"uint256"}],"name":"createAccount","outputs":[{"name":"ret","type":"address"}],"stateMutability":"nonpayable","type":"function"}]`

	accountABIJSON = `[{"inputs":[{"name":"dest","type":"address"},{"name":"value","type":"uint256"},{"name":"func","type":"bytes"}],"name":"execute","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

	entrypointABIJSON = `[{"inputs":[{"name":"sender","type":"address"},{"name":"key","type":"uint192"}],"name":"getNonce","outputs":[{"name":"nonce","type":"uint256"}],"stateMutability":"view","type":"function"}]`
)

var (
	factoryABI    abi.ABI
	accountABI    abi.ABI
	entrypointABI abi.ABI

	defaultSalt = big.NewInt(0)
)

func init() {
	factoryABI = mustParseABI(factoryABIJSON)
	accountABI = mustParseABI(accountABIJSON)
	entrypointABI = mustParseABI(entrypointABIJSON)
}

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Errorf("invalid ABI fragment: %w", err))
	}
	return parsed
}

// EncodingError reports malformed call arguments, most commonly an
// address that is not valid hex. It is a programmer error and is never
// retried.
type EncodingError struct {
	Field string
	Value string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error: %s %q is not a valid value", e.Field, e.Value)
}

// ParseAddress validates and parses a hex address string.
func ParseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, &EncodingError{Field: field, Value: s}
	}
	return common.HexToAddress(s), nil
}

// PackCreateAccount encodes the factory createAccount(owner, salt) call.
// Negative salts are rejected: the ABI encoder would two's-complement
// wrap them while the CREATE2 salt bytes take the absolute value, so
// the derived address would not match what the factory deploys.
func PackCreateAccount(owner common.Address, salt *big.Int) ([]byte, error) {
	if salt == nil {
		salt = defaultSalt
	}
	if salt.Sign() < 0 {
		return nil, &EncodingError{Field: "salt", Value: salt.String()}
	}
	return factoryABI.Pack("createAccount", owner, salt)
}

// PackExecute encodes the wallet execute(dest, value, func) call that a
// UserOperation's callData carries.
func PackExecute(target common.Address, ethValue *big.Int, calldata []byte) ([]byte, error) {
	if ethValue == nil {
		ethValue = big.NewInt(0)
	}
	if calldata == nil {
		// The ABI encoder mis-handles nil dynamic bytes.
		calldata = make([]byte, 0)
	}
	return accountABI.Pack("execute", target, ethValue, calldata)
}

// GetInitCode returns the initCode for a not-yet-deployed wallet: the
// factory address followed by the packed createAccount call.
func GetInitCode(factory, owner common.Address, salt *big.Int) ([]byte, error) {
	calldata, err := PackCreateAccount(owner, salt)
	if err != nil {
		return nil, err
	}

	initCode := make([]byte, 0, common.AddressLength+len(calldata))
	initCode = append(initCode, factory.Bytes()...)
	initCode = append(initCode, calldata...)
	return initCode, nil
}

// ComputeSmartWalletAddress derives the CREATE2 counterfactual address
// for an owner+salt pair without touching the chain:
//
//	keccak256(0xff ++ factory ++ salt ++ keccak256(initCode))[12:]
//
// Recomputing with the same inputs always yields the same address.
func ComputeSmartWalletAddress(factory, owner common.Address, salt *big.Int) (common.Address, error) {
	if salt == nil {
		salt = defaultSalt
	}

	initCode, err := GetInitCode(factory, owner, salt)
	if err != nil {
		return common.Address{}, err
	}
	initCodeHash := crypto.Keccak256(initCode)

	saltBytes := make([]byte, 32)
	salt.FillBytes(saltBytes)

	var b []byte
	b = append(b, 0xff)
	b = append(b, factory.Bytes()...)
	b = append(b, saltBytes...)
	b = append(b, initCodeHash...)

	return common.BytesToAddress(crypto.Keccak256(b)[12:]), nil
}

// ContractCaller is the read-only chain surface this package needs.
// *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// GetNonce reads the current EntryPoint nonce for a sender. The nonce
// key is fixed at zero; two-dimensional nonces are not used here.
func GetNonce(ctx context.Context, caller ContractCaller, entrypoint, sender common.Address) (*big.Int, error) {
	input, err := entrypointABI.Pack("getNonce", sender, big.NewInt(0))
	if err != nil {
		return nil, err
	}

	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &entrypoint, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("entrypoint getNonce call failed: %w", err)
	}

	results, err := entrypointABI.Unpack("getNonce", out)
	if err != nil {
		return nil, fmt.Errorf("entrypoint getNonce returned malformed data: %w", err)
	}

	nonce, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("entrypoint getNonce returned unexpected type %T", results[0])
	}
	return nonce, nil
}
