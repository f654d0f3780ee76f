package db

// TableSpace separates the entries of one DB into independent key
// spaces by prefixing every key with a single byte.
type TableSpace byte

const (
	// NodeSpace holds Merkle tree nodes.
	NodeSpace TableSpace = 'N'
	// LeafSpace holds the tree's leaf values, keyed by path.
	LeafSpace TableSpace = 'L'
	// DataSpace holds raw state values, keyed by storage key text.
	DataSpace TableSpace = 'D'
	// MetaSpace holds commit metadata.
	MetaSpace TableSpace = 'M'
)

// Prefixed is a view of a DB restricted to one table space. Keys seen
// through the view never include the prefix.
type Prefixed struct {
	parent DB
	space  TableSpace
}

// NewPrefixed returns the view of parent restricted to space.
func NewPrefixed(parent DB, space TableSpace) *Prefixed {
	return &Prefixed{parent: parent, space: space}
}

func (p *Prefixed) key(k []byte) []byte {
	out := make([]byte, 1+len(k))
	out[0] = byte(p.space)
	copy(out[1:], k)
	return out
}

func (p *Prefixed) Get(key []byte) ([]byte, error) { return p.parent.Get(p.key(key)) }

func (p *Prefixed) Has(key []byte) (bool, error) { return p.parent.Has(p.key(key)) }

func (p *Prefixed) Set(key, value []byte) error { return p.parent.Set(p.key(key), value) }

func (p *Prefixed) Delete(key []byte) error { return p.parent.Delete(p.key(key)) }

func (p *Prefixed) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	return p.parent.Iterate(p.key(prefix), func(key, value []byte) bool {
		return fn(key[1:], value)
	})
}

func (p *Prefixed) NewBatch() Batch {
	return &prefixedBatch{Batch: p.parent.NewBatch(), p: p}
}

// Close is a no-op; the parent owns the underlying store.
func (p *Prefixed) Close() error { return nil }

type prefixedBatch struct {
	Batch
	p *Prefixed
}

func (b *prefixedBatch) Set(key, value []byte) error { return b.Batch.Set(b.p.key(key), value) }

func (b *prefixedBatch) Delete(key []byte) error { return b.Batch.Delete(b.p.key(key)) }
