package signer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndRecoverRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	s := NewLocalSigner(key)
	msg := []byte("walletkit test message")

	sig, err := s.SignMessage(msg)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	recovered, err := RecoverAddress(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), recovered)
}

func TestRecoverAddress_WrongMessage(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig, err := SignMessage(key, []byte("original"))
	require.NoError(t, err)

	recovered, err := RecoverAddress([]byte("tampered"), sig)
	require.NoError(t, err)
	assert.NotEqual(t, crypto.PubkeyToAddress(key.PublicKey), recovered,
		"a different message must not recover the signer")
}

func TestRecoverAddress_BadSignatureLength(t *testing.T) {
	_, err := RecoverAddress([]byte("msg"), []byte{0x01, 0x02})
	require.Error(t, err)
}

func TestFromPrivateKeyHex(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexKey := "0x" + common.Bytes2Hex(crypto.FromECDSA(key))

	s, err := FromPrivateKeyHex(hexKey)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), s.Address())

	_, err = FromPrivateKeyHex("zz")
	require.Error(t, err)

	var sigErr *SigningError
	require.ErrorAs(t, err, &sigErr)
}
