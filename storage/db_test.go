package storage

import (
	"os"
	"testing"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStorage(t *testing.T) Storage {
	t.Helper()
	s, err := NewWithPath(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGetDelete(t *testing.T) {
	s := tempStorage(t)

	require.NoError(t, s.Set([]byte("sk:a:1"), []byte("v1")))

	got, err := s.GetKey([]byte("sk:a:1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, s.Delete([]byte("sk:a:1")))
	_, err = s.GetKey([]byte("sk:a:1"))
	assert.ErrorIs(t, err, badger.ErrKeyNotFound)
}

func TestGetByPrefixAndCount(t *testing.T) {
	s := tempStorage(t)

	require.NoError(t, s.Set([]byte("sk:a:1"), []byte("v1")))
	require.NoError(t, s.Set([]byte("sk:a:2"), []byte("v2")))
	require.NoError(t, s.Set([]byte("sk:b:1"), []byte("v3")))

	items, err := s.GetByPrefix([]byte("sk:a:"))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []byte("sk:a:1"), items[0].Key)
	assert.Equal(t, []byte("v2"), items[1].Value)

	count, err := s.CountKeysByPrefix([]byte("sk:a:"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = s.CountKeysByPrefix(nil)
	assert.Error(t, err, "counting an empty prefix walks the whole keyspace")
}

func TestVacuumAndDbPath(t *testing.T) {
	dir := t.TempDir()
	s, err := NewWithPath(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	assert.Equal(t, dir, s.DbPath())

	require.NoError(t, s.Set([]byte("sk:a:1"), []byte("v1")))
	require.NoError(t, s.Delete([]byte("sk:a:1")))

	// a near-empty value log has nothing to rewrite
	if err := s.Vacuum(); err != nil {
		assert.ErrorIs(t, err, badger.ErrNoRewrite)
	}
}

func TestDestroyRemovesDataDir(t *testing.T) {
	dir := t.TempDir()
	s, err := NewWithPath(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set([]byte("sk:a:1"), []byte("v1")))
	require.NoError(t, Destroy(s.(*BadgerStorage)))

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
