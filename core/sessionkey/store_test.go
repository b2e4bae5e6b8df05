package sessionkey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaiclabs-eth/walletkit/storage"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.NewWithPath(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestStoreSaveAndGet(t *testing.T) {
	owner := testOwner(t)
	store := testStore(t)

	key, _, err := Create(owner, testPermissions())
	require.NoError(t, err)

	id, err := store.Save(owner.Address(), key)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	grant, err := store.Get(owner.Address(), id)
	require.NoError(t, err)
	assert.Equal(t, key.Address, grant.Key.Address)
	assert.Equal(t, key.Signature, grant.Key.Signature)
	assert.Equal(t, owner.Address().Hex(), grant.Owner)

	// the round-tripped grant still validates
	assert.True(t, Validate(grant.Key, owner.Address()))
}

func TestStoreListByOwnerIsScoped(t *testing.T) {
	owner := testOwner(t)
	other := testOwner(t)
	store := testStore(t)

	for i := 0; i < 3; i++ {
		key, _, err := Create(owner, testPermissions())
		require.NoError(t, err)
		_, err = store.Save(owner.Address(), key)
		require.NoError(t, err)
	}
	otherKey, _, err := Create(other, testPermissions())
	require.NoError(t, err)
	_, err = store.Save(other.Address(), otherKey)
	require.NoError(t, err)

	grants, err := store.ListByOwner(owner.Address())
	require.NoError(t, err)
	assert.Len(t, grants, 3)

	count, err := store.CountByOwner(owner.Address())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestStorePruneExpired(t *testing.T) {
	owner := testOwner(t)
	store := testStore(t)

	live, _, err := Create(owner, testPermissions())
	require.NoError(t, err)
	liveID, err := store.Save(owner.Address(), live)
	require.NoError(t, err)

	expiredPerms := testPermissions()
	expiredPerms.ExpiresAt = time.Now().Add(-time.Hour).Unix()
	expired, _, err := Create(owner, expiredPerms)
	require.NoError(t, err)
	_, err = store.Save(owner.Address(), expired)
	require.NoError(t, err)

	pruned, err := store.PruneExpired(owner.Address())
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	grants, err := store.ListByOwner(owner.Address())
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, liveID, grants[0].ID)
}

func TestStoreDelete(t *testing.T) {
	owner := testOwner(t)
	store := testStore(t)

	key, _, err := Create(owner, testPermissions())
	require.NoError(t, err)
	id, err := store.Save(owner.Address(), key)
	require.NoError(t, err)

	require.NoError(t, store.Delete(owner.Address(), id))

	_, err = store.Get(owner.Address(), id)
	assert.Error(t, err)
}
