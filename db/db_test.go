package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]DB {
	t.Helper()
	mem, err := NewMemDB()
	require.NoError(t, err)
	ldb, err := NewLevelDB(t.TempDir())
	require.NoError(t, err)
	bdb, err := NewBadgerMemDB()
	require.NoError(t, err)
	all := map[string]DB{"memory": mem, "goleveldb": ldb, "badger": bdb}
	t.Cleanup(func() {
		for _, db := range all {
			db.Close()
		}
	})
	return all
}

func collect(t *testing.T, db DB, prefix string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	var order []string
	require.NoError(t, db.Iterate([]byte(prefix), func(k, v []byte) bool {
		out[string(k)] = string(v)
		order = append(order, string(k))
		return true
	}))
	assert.IsIncreasing(t, order)
	return out
}

func TestBackends(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			val, err := db.Get([]byte("missing"))
			require.NoError(t, err)
			assert.Nil(t, val)

			require.NoError(t, db.Set([]byte("a/1"), []byte("one")))
			require.NoError(t, db.Set([]byte("a/2"), []byte("two")))
			require.NoError(t, db.Set([]byte("b/1"), []byte{}))

			val, err = db.Get([]byte("a/1"))
			require.NoError(t, err)
			assert.Equal(t, []byte("one"), val)

			val, err = db.Get([]byte("b/1"))
			require.NoError(t, err)
			assert.NotNil(t, val)
			assert.Empty(t, val)

			ok, err := db.Has([]byte("b/1"))
			require.NoError(t, err)
			assert.True(t, ok)

			assert.Equal(t, map[string]string{"a/1": "one", "a/2": "two"}, collect(t, db, "a/"))

			require.NoError(t, db.Delete([]byte("a/1")))
			ok, err = db.Has([]byte("a/1"))
			require.NoError(t, err)
			assert.False(t, ok)

			batch := db.NewBatch()
			require.NoError(t, batch.Set([]byte("c/1"), []byte("x")))
			require.NoError(t, batch.Delete([]byte("a/2")))
			require.NoError(t, batch.Write())
			assert.Equal(t, map[string]string{"c/1": "x"}, collect(t, db, "c"))
			assert.Empty(t, collect(t, db, "a/"))
		})
	}
}

func TestIterateStops(t *testing.T) {
	db, err := NewMemDB()
	require.NoError(t, err)
	defer db.Close()
	for _, k := range []string{"k1", "k2", "k3"} {
		require.NoError(t, db.Set([]byte(k), []byte(k)))
	}
	var seen int
	require.NoError(t, db.Iterate([]byte("k"), func(_, _ []byte) bool {
		seen++
		return seen < 2
	}))
	assert.Equal(t, 2, seen)
}

func TestPrefixedIsolation(t *testing.T) {
	parent, err := NewMemDB()
	require.NoError(t, err)
	defer parent.Close()

	nodes := NewPrefixed(parent, NodeSpace)
	data := NewPrefixed(parent, DataSpace)
	require.NoError(t, nodes.Set([]byte("k"), []byte("node")))
	require.NoError(t, data.Set([]byte("k"), []byte("data")))

	val, err := nodes.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("node"), val)

	raw, err := parent.Get([]byte("Dk"))
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), raw)

	assert.Equal(t, map[string]string{"k": "data"}, collect(t, data, ""))

	batch := data.NewBatch()
	require.NoError(t, batch.Delete([]byte("k")))
	require.NoError(t, batch.Write())
	ok, err := nodes.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCacheFlushAndDiscard(t *testing.T) {
	parent, err := NewMemDB()
	require.NoError(t, err)
	defer parent.Close()
	require.NoError(t, parent.Set([]byte("p/old"), []byte("1")))
	require.NoError(t, parent.Set([]byte("p/gone"), []byte("2")))

	cache := NewCache(parent)
	require.NoError(t, cache.Set([]byte("p/new"), []byte("3")))
	require.NoError(t, cache.Delete([]byte("p/gone")))

	assert.Equal(t, map[string]string{"p/old": "1", "p/new": "3"}, collect(t, cache, "p/"))
	assert.Equal(t, map[string]string{"p/old": "1", "p/gone": "2"}, collect(t, parent, "p/"))

	cache.Discard()
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, map[string]string{"p/old": "1", "p/gone": "2"}, collect(t, cache, "p/"))

	require.NoError(t, cache.Set([]byte("p/new"), []byte("3")))
	require.NoError(t, cache.Delete([]byte("p/gone")))
	require.NoError(t, cache.Flush())
	assert.Equal(t, map[string]string{"p/old": "1", "p/new": "3"}, collect(t, parent, "p/"))
}

func TestCacheBatchStages(t *testing.T) {
	parent, err := NewMemDB()
	require.NoError(t, err)
	defer parent.Close()

	cache := NewCache(parent)
	batch := cache.NewBatch()
	require.NoError(t, batch.Set([]byte("k"), []byte("v")))
	require.NoError(t, batch.Write())

	val, err := cache.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	val, err = parent.Get([]byte("k"))
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestOpen(t *testing.T) {
	_, err := Open("rocksdb", t.TempDir(), "state")
	assert.ErrorIs(t, err, ErrUnknownBackend)

	db, err := Open(LevelDBBackend, t.TempDir(), "state")
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
