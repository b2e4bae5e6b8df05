package aa

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testFactory = common.HexToAddress("0xB99BC2E399e06CddCF5E725c0ea341E8f0322834")
	testOwner   = common.HexToAddress("0x804e49e8C4eDb560AE7c48B554f6d2e27Bb81557")
)

func TestComputeSmartWalletAddress_CREATE2Formula(t *testing.T) {
	salt := big.NewInt(0)

	computed, err := ComputeSmartWalletAddress(testFactory, testOwner, salt)
	require.NoError(t, err)
	require.NotEqual(t, common.Address{}, computed, "computed address should not be zero")

	// Same inputs must yield the same address.
	again, err := ComputeSmartWalletAddress(testFactory, testOwner, salt)
	require.NoError(t, err)
	assert.Equal(t, computed, again, "address computation should be deterministic")

	// Verify against a manual CREATE2 calculation.
	initCode, err := GetInitCode(testFactory, testOwner, salt)
	require.NoError(t, err)
	initCodeHash := crypto.Keccak256(initCode)

	saltBytes := make([]byte, 32)
	salt.FillBytes(saltBytes)

	var b []byte
	b = append(b, 0xff)
	b = append(b, testFactory.Bytes()...)
	b = append(b, saltBytes...)
	b = append(b, initCodeHash...)
	expected := common.BytesToAddress(crypto.Keccak256(b)[12:])

	assert.Equal(t, expected, computed, "computed address should match manual CREATE2 calculation")
}

func TestComputeSmartWalletAddress_DifferentSalts(t *testing.T) {
	addr0, err := ComputeSmartWalletAddress(testFactory, testOwner, big.NewInt(0))
	require.NoError(t, err)

	addr1, err := ComputeSmartWalletAddress(testFactory, testOwner, big.NewInt(1))
	require.NoError(t, err)

	addr2, err := ComputeSmartWalletAddress(testFactory, testOwner, big.NewInt(2))
	require.NoError(t, err)

	assert.NotEqual(t, addr0, addr1, "different salts should produce different addresses")
	assert.NotEqual(t, addr1, addr2, "different salts should produce different addresses")
	assert.NotEqual(t, addr0, addr2, "different salts should produce different addresses")
}

func TestComputeSmartWalletAddress_DifferentOwners(t *testing.T) {
	salt := big.NewInt(0)
	owner2 := common.HexToAddress("0x578B110b0a7c06e66b7B1a33C39635304aaF733c")

	addr1, err := ComputeSmartWalletAddress(testFactory, testOwner, salt)
	require.NoError(t, err)

	addr2, err := ComputeSmartWalletAddress(testFactory, owner2, salt)
	require.NoError(t, err)

	assert.NotEqual(t, addr1, addr2, "different owners should produce different addresses")
}

func TestComputeSmartWalletAddress_DifferentFactories(t *testing.T) {
	salt := big.NewInt(0)
	factory2 := common.HexToAddress("0x0000000000000000000000000000000000000001")

	addr1, err := ComputeSmartWalletAddress(testFactory, testOwner, salt)
	require.NoError(t, err)

	addr2, err := ComputeSmartWalletAddress(factory2, testOwner, salt)
	require.NoError(t, err)

	assert.NotEqual(t, addr1, addr2, "different factories should produce different addresses")
}

func TestComputeSmartWalletAddress_NilSaltDefaultsToZero(t *testing.T) {
	withNil, err := ComputeSmartWalletAddress(testFactory, testOwner, nil)
	require.NoError(t, err)

	withZero, err := ComputeSmartWalletAddress(testFactory, testOwner, big.NewInt(0))
	require.NoError(t, err)

	assert.Equal(t, withZero, withNil, "nil salt should behave like salt 0")
}

func TestNegativeSaltRejected(t *testing.T) {
	salt := big.NewInt(-1)
	var encErr *EncodingError

	_, err := PackCreateAccount(testOwner, salt)
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "salt", encErr.Field)

	_, err = GetInitCode(testFactory, testOwner, salt)
	require.ErrorAs(t, err, &encErr)

	_, err = ComputeSmartWalletAddress(testFactory, testOwner, salt)
	require.ErrorAs(t, err, &encErr)
}

func TestGetInitCode_StartsWithFactoryAddress(t *testing.T) {
	initCode, err := GetInitCode(testFactory, testOwner, big.NewInt(0))
	require.NoError(t, err)
	require.Greater(t, len(initCode), common.AddressLength)

	assert.Equal(t, testFactory.Bytes(), initCode[:common.AddressLength])
}

func TestPackExecute(t *testing.T) {
	target := common.HexToAddress("0x578B110b0a7c06e66b7B1a33C39635304aaF733c")

	packed, err := PackExecute(target, big.NewInt(1), []byte{0xab, 0xcd})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(packed), 4)

	// execute(address,uint256,bytes) selector
	assert.Equal(t, []byte{0xb6, 0x1d, 0x27, 0xf6}, packed[:4])

	// Nil calldata must still pack (empty bytes argument).
	_, err = PackExecute(target, nil, nil)
	require.NoError(t, err)
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("target", testOwner.Hex())
	require.NoError(t, err)
	assert.Equal(t, testOwner, addr)

	_, err = ParseAddress("target", "not-an-address")
	require.Error(t, err)

	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "target", encErr.Field)
}
