package writelog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/ledger/storage"
	"github.com/blockberries/ledger/types"
)

func setup(t *testing.T, entries map[string]string) (*storage.Storage, *WriteLog) {
	t.Helper()
	s, err := storage.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	for k, v := range entries {
		require.NoError(t, s.Write(key(t, k), []byte(v)))
	}
	return s, New(s)
}

func key(t *testing.T, s string) types.Key {
	t.Helper()
	k, err := types.ParseKey(s)
	require.NoError(t, err)
	return k
}

func drain(it Iterator) map[string]string {
	out := make(map[string]string)
	for kv, ok := it.Next(); ok; kv, ok = it.Next() {
		out[kv.Key] = string(kv.Val)
	}
	return out
}

func TestReadAfterWrite(t *testing.T) {
	_, wl := setup(t, map[string]string{"k": "old"})

	require.NoError(t, wl.Write(key(t, "k"), []byte("new")))
	require.NoError(t, wl.Write(key(t, "fresh"), []byte("v")))

	val, ok, err := wl.ReadPost(key(t, "k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), val)

	val, ok, err = wl.ReadPre(key(t, "k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("old"), val)

	_, ok, err = wl.ReadPre(key(t, "fresh"))
	require.NoError(t, err)
	assert.False(t, ok)
	has, err := wl.HasKeyPost(key(t, "fresh"))
	require.NoError(t, err)
	assert.True(t, has)
}

func TestDeleteHidesPostValue(t *testing.T) {
	_, wl := setup(t, map[string]string{"k": "old"})
	wl.Delete(key(t, "k"))

	_, ok, err := wl.ReadPost(key(t, "k"))
	require.NoError(t, err)
	assert.False(t, ok)
	has, err := wl.HasKeyPre(key(t, "k"))
	require.NoError(t, err)
	assert.True(t, has)
}

func TestPostIterationCoversCommittedKeysOnly(t *testing.T) {
	_, wl := setup(t, map[string]string{"a/1": "one", "a/2": "two", "a/3": "three", "b/1": "x"})

	require.NoError(t, wl.Write(key(t, "a/1"), []byte("uno")))
	wl.Delete(key(t, "a/2"))
	require.NoError(t, wl.Write(key(t, "a/9"), []byte("new")))

	post, err := wl.IterPrefixPost("a/")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a/1": "uno", "a/3": "three"}, drain(post))

	pre, err := wl.IterPrefixPre("a/")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a/1": "one", "a/2": "two", "a/3": "three"}, drain(pre))
}

func TestPostIterationSeesLaterWrites(t *testing.T) {
	_, wl := setup(t, map[string]string{"a/1": "one", "a/2": "two"})

	it, err := wl.IterPrefixPost("a/")
	require.NoError(t, err)
	first, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, "a/1", first.Key)

	require.NoError(t, wl.Write(key(t, "a/2"), []byte("dos")))
	second, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, types.KeyVal{Key: "a/2", Val: []byte("dos")}, second)
	_, ok = it.Next()
	assert.False(t, ok)
}

func TestCommitAndDrop(t *testing.T) {
	s, wl := setup(t, map[string]string{"k": "old", "gone": "x"})
	root := s.MerkleRoot()

	require.NoError(t, wl.Write(key(t, "k"), []byte("new")))
	wl.Delete(key(t, "gone"))
	assert.Equal(t, []types.Key{key(t, "gone"), key(t, "k")}, wl.ChangedKeys())

	wl.Drop()
	assert.Equal(t, 0, wl.Len())
	assert.Equal(t, root, s.MerkleRoot())

	require.NoError(t, wl.Write(key(t, "k"), []byte("new")))
	wl.Delete(key(t, "gone"))
	require.NoError(t, wl.Commit())
	assert.Equal(t, 0, wl.Len())
	assert.NotEqual(t, root, s.MerkleRoot())

	val, ok, err := s.Read(key(t, "k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), val)
	has, err := s.HasKey(key(t, "gone"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestBalanceWritesMustDecode(t *testing.T) {
	s, wl := setup(t, nil)
	addr := types.NewBasicAddress("alice")
	bk, err := types.BalanceKey(addr)
	require.NoError(t, err)

	assert.ErrorIs(t, wl.Write(bk, []byte("ten")), types.ErrBalanceEncoding)
	require.NoError(t, wl.Write(bk, types.Balance(10).Bytes()))
	require.NoError(t, wl.Commit())

	bal, ok := s.Balance(addr)
	require.True(t, ok)
	assert.Equal(t, types.Balance(10), bal)
}
