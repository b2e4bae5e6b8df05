package userop

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOp() *UserOperation {
	return &UserOperation{
		Sender:               common.HexToAddress("0x804e49e8C4eDb560AE7c48B554f6d2e27Bb81557"),
		Nonce:                big.NewInt(7),
		CallData:             []byte{0xab, 0xcd},
		CallGasLimit:         big.NewInt(200000),
		VerificationGasLimit: big.NewInt(1000000),
		PreVerificationGas:   big.NewInt(50000),
		MaxFeePerGas:         big.NewInt(20_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(2_000_000_000),
	}
}

func TestToWire_EmptyFieldsEncodeAsHexZero(t *testing.T) {
	op := sampleOp()
	wire := op.ToWire()

	assert.Equal(t, "0x7", wire.Nonce)
	assert.Equal(t, "0xabcd", wire.CallData)
	assert.Equal(t, "0x", wire.InitCode, "nil initCode must encode as 0x, never be omitted")
	assert.Equal(t, "0x", wire.PaymasterAndData, "self-paid ops carry exactly 0x")
	assert.Equal(t, "0x", wire.Signature, "unsigned ops carry exactly 0x")
}

func TestUserOpHash_Deterministic(t *testing.T) {
	entrypoint := common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")
	chainID := big.NewInt(11155111)

	h1 := sampleOp().UserOpHash(entrypoint, chainID)
	h2 := sampleOp().UserOpHash(entrypoint, chainID)
	require.Equal(t, h1, h2)
}

func TestUserOpHash_SensitiveToEveryInput(t *testing.T) {
	entrypoint := common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")
	chainID := big.NewInt(11155111)
	base := sampleOp().UserOpHash(entrypoint, chainID)

	mutations := map[string]*UserOperation{
		"nonce":            sampleOp(),
		"callData":         sampleOp(),
		"paymasterAndData": sampleOp(),
		"maxFeePerGas":     sampleOp(),
	}
	mutations["nonce"].Nonce = big.NewInt(8)
	mutations["callData"].CallData = []byte{0xab, 0xce}
	mutations["paymasterAndData"].PaymasterAndData = []byte{0x01}
	mutations["maxFeePerGas"].MaxFeePerGas = big.NewInt(21_000_000_000)

	for field, op := range mutations {
		assert.NotEqual(t, base, op.UserOpHash(entrypoint, chainID),
			"changing %s must change the userOpHash", field)
	}

	// The signature is not part of the hash.
	signed := sampleOp()
	signed.Signature = []byte{0x01, 0x02}
	assert.Equal(t, base, signed.UserOpHash(entrypoint, chainID))

	// Entrypoint and chain are.
	assert.NotEqual(t, base, sampleOp().UserOpHash(common.Address{}, chainID))
	assert.NotEqual(t, base, sampleOp().UserOpHash(entrypoint, big.NewInt(1)))
}
