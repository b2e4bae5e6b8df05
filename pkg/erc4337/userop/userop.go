// Package userop defines the ERC-4337 v0.6 UserOperation and its
// canonical hash.
package userop

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// UserOperation is the unit of work submitted to a bundler. One value
// lives for one submission attempt; the nonce must advance between
// sends for the same sender.
type UserOperation struct {
	Sender               common.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	PaymasterAndData     []byte
	Signature            []byte
}

// Wire is the hex-string JSON shape bundler and paymaster RPCs expect.
type Wire struct {
	Sender               string `json:"sender"`
	Nonce                string `json:"nonce"`
	InitCode             string `json:"initCode"`
	CallData             string `json:"callData"`
	CallGasLimit         string `json:"callGasLimit"`
	VerificationGasLimit string `json:"verificationGasLimit"`
	PreVerificationGas   string `json:"preVerificationGas"`
	MaxFeePerGas         string `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
	PaymasterAndData     string `json:"paymasterAndData"`
	Signature            string `json:"signature"`
}

// ToWire converts the operation to its RPC form. Nil big.Ints encode as
// 0x0 and nil byte fields as "0x", so no field is ever omitted.
func (op *UserOperation) ToWire() Wire {
	return Wire{
		Sender:               op.Sender.Hex(),
		Nonce:                encodeBig(op.Nonce),
		InitCode:             hexutil.Encode(orEmpty(op.InitCode)),
		CallData:             hexutil.Encode(orEmpty(op.CallData)),
		CallGasLimit:         encodeBig(op.CallGasLimit),
		VerificationGasLimit: encodeBig(op.VerificationGasLimit),
		PreVerificationGas:   encodeBig(op.PreVerificationGas),
		MaxFeePerGas:         encodeBig(op.MaxFeePerGas),
		MaxPriorityFeePerGas: encodeBig(op.MaxPriorityFeePerGas),
		PaymasterAndData:     hexutil.Encode(orEmpty(op.PaymasterAndData)),
		Signature:            hexutil.Encode(orEmpty(op.Signature)),
	}
}

func encodeBig(v *big.Int) string {
	if v == nil {
		v = big.NewInt(0)
	}
	return hexutil.EncodeBig(v)
}

func orEmpty(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

var packArgs = abi.Arguments{
	{Name: "sender", Type: addressTy},
	{Name: "nonce", Type: uint256Ty},
	{Name: "initCode", Type: bytes32Ty},
	{Name: "callData", Type: bytes32Ty},
	{Name: "callGasLimit", Type: uint256Ty},
	{Name: "verificationGasLimit", Type: uint256Ty},
	{Name: "preVerificationGas", Type: uint256Ty},
	{Name: "maxFeePerGas", Type: uint256Ty},
	{Name: "maxPriorityFeePerGas", Type: uint256Ty},
	{Name: "paymasterAndData", Type: bytes32Ty},
}

var (
	addressTy = mustNewType("address")
	uint256Ty = mustNewType("uint256")
	bytes32Ty = mustNewType("bytes32")
)

func mustNewType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return ty
}

// packForSignature ABI-encodes the operation with dynamic fields
// replaced by their keccak hashes, per the EntryPoint v0.6 contract.
func (op *UserOperation) packForSignature() []byte {
	packed, _ := packArgs.Pack(
		op.Sender,
		orZero(op.Nonce),
		crypto.Keccak256Hash(op.InitCode),
		crypto.Keccak256Hash(op.CallData),
		orZero(op.CallGasLimit),
		orZero(op.VerificationGasLimit),
		orZero(op.PreVerificationGas),
		orZero(op.MaxFeePerGas),
		orZero(op.MaxPriorityFeePerGas),
		crypto.Keccak256Hash(op.PaymasterAndData),
	)
	return packed
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// UserOpHash returns the hash the wallet owner signs:
// keccak256(keccak256(pack(op)) ++ entrypoint ++ chainID).
func (op *UserOperation) UserOpHash(entrypoint common.Address, chainID *big.Int) common.Hash {
	return crypto.Keccak256Hash(
		crypto.Keccak256(op.packForSignature()),
		common.LeftPadBytes(entrypoint.Bytes(), 32),
		common.LeftPadBytes(chainID.Bytes(), 32),
	)
}
