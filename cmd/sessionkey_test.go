package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaiclabs-eth/walletkit/core/chainio/signer"
	"github.com/mosaiclabs-eth/walletkit/core/sessionkey"
)

func TestGrantLine(t *testing.T) {
	ownerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := signer.NewLocalSigner(ownerKey)

	perms := sessionkey.Permissions{
		Contracts: []common.Address{common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")},
		MaxAmount: "1",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}
	key, _, err := sessionkey.Create(owner, perms)
	require.NoError(t, err)

	now := time.Now().Unix()

	line := grantLine(&sessionkey.Grant{ID: "01J", Key: key}, owner.Address(), now)
	assert.Contains(t, line, key.Address.Hex())
	assert.True(t, strings.HasSuffix(line, "  valid"), line)

	// a record that lost its key payload must render, not panic
	line = grantLine(&sessionkey.Grant{ID: "01K"}, owner.Address(), now)
	assert.Contains(t, line, "01K")
	assert.Contains(t, line, "corrupt")

	expiredPerms := perms
	expiredPerms.ExpiresAt = time.Now().Add(-time.Hour).Unix()
	expiredKey, _, err := sessionkey.Create(owner, expiredPerms)
	require.NoError(t, err)

	line = grantLine(&sessionkey.Grant{ID: "01L", Key: expiredKey}, owner.Address(), now)
	assert.Contains(t, line, "expired")
}
