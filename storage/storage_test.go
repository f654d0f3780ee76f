package storage

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/ledger/db"
	"github.com/blockberries/ledger/types"
)

var (
	alice = types.NewBasicAddress("alice")
	bob   = types.NewBasicAddress("bob")
	val1  = types.NewValidatorAddress("v1")
)

func newStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustKey(t *testing.T, s string) types.Key {
	t.Helper()
	k, err := types.ParseKey(s)
	require.NoError(t, err)
	return k
}

// rootFromBalances rebuilds a tree from scratch using only the
// documented hashing rule.
func rootFromBalances(t *testing.T, balances map[types.Address]types.Balance) types.Hash {
	t.Helper()
	fresh := newStorage(t)
	for addr, bal := range balances {
		key, err := types.BalanceKey(addr)
		require.NoError(t, err)
		require.NoError(t, fresh.UpdateTree(key.Hash256(), bal.Hash256()))
	}
	return fresh.MerkleRoot()
}

func TestEmptyStorage(t *testing.T) {
	s := newStorage(t)
	assert.True(t, s.MerkleRoot().IsZero())
	assert.Equal(t, types.BlockHeight(0), s.BlockHeight())
	assert.Equal(t, types.BlockHash{}, s.BlockHash())
	assert.Empty(t, s.Balances())
	_, ok := s.LastCommitted()
	assert.False(t, ok)
}

func TestBalanceMapMatchesTree(t *testing.T) {
	s := newStorage(t)
	rng := rand.New(rand.NewSource(7))
	addrs := []types.Address{alice, bob, val1, types.NewBasicAddress("carol")}

	for i := 0; i < 200; i++ {
		addr := addrs[rng.Intn(len(addrs))]
		bal := types.Balance(rng.Intn(5))
		require.NoError(t, s.UpdateBalance(addr, bal))
		if i%25 == 0 {
			assert.Equal(t, rootFromBalances(t, s.Balances()), s.MerkleRoot(), "step %d", i)
		}
	}
	assert.Equal(t, rootFromBalances(t, s.Balances()), s.MerkleRoot())
}

func TestZeroBalanceHasNoLeaf(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.UpdateBalance(alice, 10))
	require.NoError(t, s.UpdateBalance(alice, 0))
	assert.True(t, s.MerkleRoot().IsZero())

	// The account is still known.
	assert.NoError(t, s.HasBalanceGTE(alice, 0))
}

func TestHasBalanceGTE(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.UpdateBalance(alice, 10))

	assert.NoError(t, s.HasBalanceGTE(alice, 10))
	assert.ErrorIs(t, s.HasBalanceGTE(alice, 11), ErrInsufficientBalance)
	assert.ErrorIs(t, s.HasBalanceGTE(bob, 0), ErrAddressNotFound)
}

func TestTransferFailuresLeaveRoot(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.UpdateBalance(alice, 10))
	root := s.MerkleRoot()

	assert.ErrorIs(t, s.Transfer(bob, alice, 1), ErrAddressNotFound)
	assert.Equal(t, root, s.MerkleRoot())

	assert.ErrorIs(t, s.Transfer(alice, bob, 11), ErrInsufficientBalance)
	assert.Equal(t, root, s.MerkleRoot())
	_, ok := s.Balance(bob)
	assert.False(t, ok)

	require.NoError(t, s.UpdateBalance(bob, math.MaxUint64))
	root = s.MerkleRoot()
	assert.ErrorIs(t, s.Transfer(alice, bob, 1), ErrBalanceOverflow)
	assert.Equal(t, root, s.MerkleRoot())
	bal, _ := s.Balance(alice)
	assert.Equal(t, types.Balance(10), bal)
}

func TestTransferRoundTrip(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.UpdateBalance(alice, 100))
	require.NoError(t, s.UpdateBalance(bob, 5))
	root := s.MerkleRoot()

	require.NoError(t, s.Transfer(alice, bob, 40))
	a, _ := s.Balance(alice)
	b, _ := s.Balance(bob)
	assert.Equal(t, types.Balance(60), a)
	assert.Equal(t, types.Balance(45), b)
	assert.NotEqual(t, root, s.MerkleRoot())

	require.NoError(t, s.Transfer(bob, alice, 40))
	a, _ = s.Balance(alice)
	b, _ = s.Balance(bob)
	assert.Equal(t, types.Balance(100), a)
	assert.Equal(t, types.Balance(5), b)
	assert.Equal(t, root, s.MerkleRoot())
}

func TestTransferToNewAccount(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.UpdateBalance(alice, 10))
	require.NoError(t, s.Transfer(alice, bob, 10))

	b, ok := s.Balance(bob)
	require.True(t, ok)
	assert.Equal(t, types.Balance(10), b)
	assert.Equal(t, rootFromBalances(t, s.Balances()), s.MerkleRoot())
}

func TestTransferSelfAndZero(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.UpdateBalance(alice, 10))
	root := s.MerkleRoot()

	require.NoError(t, s.Transfer(alice, alice, 4))
	a, _ := s.Balance(alice)
	assert.Equal(t, types.Balance(10), a)
	assert.Equal(t, root, s.MerkleRoot())

	// A zero transfer still creates the target's balance entry.
	require.NoError(t, s.Transfer(alice, bob, 0))
	b, ok := s.Balance(bob)
	require.True(t, ok)
	assert.Equal(t, types.Balance(0), b)
	assert.Equal(t, root, s.MerkleRoot())
}

func TestHeaderDataIsNotInTree(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.UpdateBalance(alice, 1))
	root := s.MerkleRoot()

	require.NoError(t, s.SetChainID("ledger-test"))
	s.BeginBlock(types.BlockHash{1, 2, 3}, 9)

	assert.Equal(t, root, s.MerkleRoot())
	assert.Equal(t, "ledger-test", s.ChainID())
	assert.Equal(t, types.BlockHeight(9), s.BlockHeight())
	assert.Equal(t, types.BlockHash{1, 2, 3}, s.BlockHash())

	assert.ErrorIs(t, s.SetChainID("this-chain-id-is-too-long"), types.ErrChainIDTooLong)
	assert.Equal(t, "ledger-test", s.ChainID())
}

func TestSubspace(t *testing.T) {
	s := newStorage(t)
	for _, k := range []string{"a/1", "a/2", "b/1"} {
		require.NoError(t, s.Write(mustKey(t, k), []byte("v"+k)))
	}

	val, ok, err := s.Read(mustKey(t, "a/2"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("va/2"), val)

	it, err := s.IterPrefix("a/")
	require.NoError(t, err)
	var keys []string
	for kv, ok := it.Next(); ok; kv, ok = it.Next() {
		keys = append(keys, kv.Key)
	}
	assert.ElementsMatch(t, []string{"a/1", "a/2"}, keys)

	root := s.MerkleRoot()
	require.NoError(t, s.Write(mustKey(t, "c/1"), []byte("x")))
	require.NoError(t, s.Delete(mustKey(t, "c/1")))
	assert.Equal(t, root, s.MerkleRoot())

	has, err := s.HasKey(mustKey(t, "c/1"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestWriteBalanceKey(t *testing.T) {
	s := newStorage(t)
	key, err := types.BalanceKey(alice)
	require.NoError(t, err)

	require.NoError(t, s.Write(key, types.Balance(42).Bytes()))
	b, ok := s.Balance(alice)
	require.True(t, ok)
	assert.Equal(t, types.Balance(42), b)
	assert.Equal(t, rootFromBalances(t, s.Balances()), s.MerkleRoot())

	assert.ErrorIs(t, s.Write(key, []byte{1}), types.ErrBalanceEncoding)

	require.NoError(t, s.Delete(key))
	_, ok = s.Balance(alice)
	assert.False(t, ok)
	assert.True(t, s.MerkleRoot().IsZero())
}

func TestCommitAndReopen(t *testing.T) {
	backend, err := db.NewLevelDB(t.TempDir())
	require.NoError(t, err)

	s, err := Open(backend, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, s.SetChainID("ledger-test"))
	s.BeginBlock(types.BlockHash{7}, 1)
	require.NoError(t, s.UpdateBalance(alice, 50))
	require.NoError(t, s.Write(mustKey(t, "#basic:alice/note"), []byte("hi")))

	root, err := s.Commit()
	require.NoError(t, err)
	assert.Equal(t, s.MerkleRoot(), root)

	info, ok := s.LastCommitted()
	require.True(t, ok)
	assert.Equal(t, types.BlockHeight(1), info.Height)

	reopened, err := Open(backend, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, root, reopened.MerkleRoot())
	assert.Equal(t, "ledger-test", reopened.ChainID())
	assert.Equal(t, types.BlockHash{7}, reopened.BlockHash())
	b, ok := reopened.Balance(alice)
	require.True(t, ok)
	assert.Equal(t, types.Balance(50), b)

	// The reloaded tree keeps working.
	require.NoError(t, reopened.Transfer(alice, bob, 20))
	assert.Equal(t, rootFromBalancesAndNote(t, reopened), reopened.MerkleRoot())
	require.NoError(t, backend.Close())
}

func rootFromBalancesAndNote(t *testing.T, s *Storage) types.Hash {
	t.Helper()
	fresh := newStorage(t)
	for addr, bal := range s.Balances() {
		require.NoError(t, fresh.UpdateBalance(addr, bal))
	}
	require.NoError(t, fresh.Write(mustKey(t, "#basic:alice/note"), []byte("hi")))
	return fresh.MerkleRoot()
}

func TestRollback(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.UpdateBalance(alice, 10))
	committed, err := s.Commit()
	require.NoError(t, err)

	require.NoError(t, s.Transfer(alice, bob, 5))
	require.NoError(t, s.Write(mustKey(t, "x"), []byte("y")))
	require.NoError(t, s.Rollback())

	assert.Equal(t, committed, s.MerkleRoot())
	_, ok := s.Balance(bob)
	assert.False(t, ok)
	_, ok, err = s.Read(mustKey(t, "x"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommittedReadsIgnoreStagedWrites(t *testing.T) {
	s := newStorage(t)
	key := mustKey(t, "k")
	require.NoError(t, s.Write(key, []byte("old")))
	_, err := s.Commit()
	require.NoError(t, err)
	require.NoError(t, s.Write(key, []byte("new")))

	val, ok, err := s.ReadCommitted(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("old"), val)

	it, err := s.IterPrefixCommitted("k")
	require.NoError(t, err)
	kv, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, []byte("old"), kv.Val)
}

func TestProofs(t *testing.T) {
	s := newStorage(t)
	present := mustKey(t, "a/1")
	absent := mustKey(t, "a/2")
	require.NoError(t, s.Write(present, []byte("one")))
	require.NoError(t, s.UpdateBalance(alice, 9))

	p, err := s.Prove(present)
	require.NoError(t, err)
	assert.Equal(t, s.MerkleRoot(), p.Root)
	assert.True(t, VerifyProof(p, present, []byte("one")))
	assert.False(t, VerifyProof(p, present, []byte("two")))
	assert.False(t, VerifyProof(p, absent, []byte("one")))

	p, err = s.Prove(absent)
	require.NoError(t, err)
	assert.True(t, VerifyProof(p, absent, nil))

	balKey, err := types.BalanceKey(alice)
	require.NoError(t, err)
	p, err = s.Prove(balKey)
	require.NoError(t, err)
	assert.True(t, VerifyProof(p, balKey, types.Balance(9).Bytes()))
}

func TestProveCommitted(t *testing.T) {
	s := newStorage(t)
	key := mustKey(t, "k")
	require.NoError(t, s.Write(key, []byte("old")))
	committed, err := s.Commit()
	require.NoError(t, err)
	require.NoError(t, s.Write(key, []byte("new")))

	p, err := s.ProveCommitted(key)
	require.NoError(t, err)
	assert.Equal(t, committed, p.Root)
	assert.True(t, VerifyProof(p, key, []byte("old")))
	assert.False(t, VerifyProof(p, key, []byte("new")))
}

func TestCommittedViewDuringCommits(t *testing.T) {
	backend, err := db.NewMemDB()
	require.NoError(t, err)
	s, err := Open(backend, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	key, err := types.BalanceKey(alice)
	require.NoError(t, err)
	require.NoError(t, s.UpdateBalance(alice, 1))
	_, err = s.Commit()
	require.NoError(t, err)

	done := make(chan struct{})
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		for {
			select {
			case <-done:
				return
			default:
			}
			var ok bool
			err := s.ViewCommitted(func(v CommittedView) error {
				val, _, err := v.Read(key)
				if err != nil {
					return err
				}
				p, err := v.Prove(key)
				if err != nil {
					return err
				}
				ok = p.Root == v.Info.Root && VerifyProof(p, key, val)
				return nil
			})
			if err != nil || !ok {
				errs <- fmt.Errorf("committed proof failed: %v", err)
				return
			}
		}
	}()

	for i := 2; i < 500; i++ {
		require.NoError(t, s.UpdateBalance(alice, types.Balance(i)))
		_, err := s.Commit()
		require.NoError(t, err)
	}
	close(done)
	assert.NoError(t, <-errs)
}
