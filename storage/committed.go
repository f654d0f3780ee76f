package storage

import (
	"github.com/celestiaorg/smt"

	"github.com/blockberries/ledger/db"
	"github.com/blockberries/ledger/types"
)

// CommittedView reads the last committed state. It is only valid inside
// the function passed to ViewCommitted, and its methods must not call
// back into the Storage.
type CommittedView struct {
	s *Storage
	// Info is the last commit. It is the zero value when Ok is false.
	Info CommitInfo
	Ok   bool
}

// ViewCommitted calls fn with a view of the last committed state. No
// commit lands while fn runs, so everything fn reads belongs to Info.
func (s *Storage) ViewCommitted(fn func(v CommittedView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := CommittedView{s: s}
	if s.committed != nil {
		v.Info, v.Ok = *s.committed, true
	}
	return fn(v)
}

// Read reads key as of the last commit.
func (v CommittedView) Read(key types.Key) ([]byte, bool, error) {
	val, err := v.data().Get([]byte(key.String()))
	if err != nil {
		return nil, false, err
	}
	return val, val != nil, nil
}

// IterPrefix is Storage.IterPrefix as of the last commit.
func (v CommittedView) IterPrefix(prefix string) (*Iterator, error) {
	return iterPrefix(v.data(), prefix)
}

// Prove returns a proof of key's leaf against the committed root.
func (v CommittedView) Prove(key types.Key) (types.MerkleProof, error) {
	root := v.Info.Root
	nodes := v.s.nodes.withBacking(db.NewPrefixed(v.s.backend, db.NodeSpace))
	leaves, _ := newMapStore(db.NewPrefixed(v.s.backend, db.LeafSpace), 0)
	tree := smt.ImportSparseMerkleTree(nodes, leaves, types.NewHasher(), root[:])
	return prove(tree, root, key)
}

func (v CommittedView) data() db.DB {
	return db.NewPrefixed(v.s.backend, db.DataSpace)
}

// ReadCommitted reads key as of the last commit.
func (s *Storage) ReadCommitted(key types.Key) (val []byte, ok bool, err error) {
	err = s.ViewCommitted(func(v CommittedView) error {
		val, ok, err = v.Read(key)
		return err
	})
	return val, ok, err
}

// IterPrefixCommitted is IterPrefix as of the last commit.
func (s *Storage) IterPrefixCommitted(prefix string) (it *Iterator, err error) {
	err = s.ViewCommitted(func(v CommittedView) error {
		it, err = v.IterPrefix(prefix)
		return err
	})
	return it, err
}

// ProveCommitted returns a proof of key's leaf against the last
// committed root.
func (s *Storage) ProveCommitted(key types.Key) (p types.MerkleProof, err error) {
	err = s.ViewCommitted(func(v CommittedView) error {
		p, err = v.Prove(key)
		return err
	})
	return p, err
}
