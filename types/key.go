package types

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// KeySeparator joins the segments of a key's text form.
	KeySeparator = "/"
	// AddressMarker prefixes address segments in a key's text form.
	AddressMarker = "#"

	// BalanceStorageKey is the last segment of an account's balance key.
	BalanceStorageKey = "balance"
	// VpStorageKey is the last segment of the key holding an account's
	// validity predicate code.
	VpStorageKey = "vp"
)

// ErrInvalidKey is returned by Push and ParseKey for segments that
// would make the text form ambiguous.
var ErrInvalidKey = errors.New("invalid storage key")

// SegmentKind is the variant tag of a key Segment.
type SegmentKind uint8

const (
	SegmentAddress SegmentKind = 1
	SegmentString  SegmentKind = 2
)

// Segment is one component of a storage key: either an address or a
// string literal.
type Segment struct {
	Kind SegmentKind `cramberry:"1"`
	Addr Address     `cramberry:"2"`
	Str  string      `cramberry:"3"`
}

// AddressSeg returns an address segment.
func AddressSeg(addr Address) Segment {
	return Segment{Kind: SegmentAddress, Addr: addr}
}

// StringSeg returns a string literal segment.
func StringSeg(s string) Segment {
	return Segment{Kind: SegmentString, Str: s}
}

func (s Segment) validate() error {
	switch s.Kind {
	case SegmentAddress:
		if err := s.Addr.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
	case SegmentString:
		switch {
		case s.Str == "":
			return fmt.Errorf("%w: empty segment", ErrInvalidKey)
		case strings.Contains(s.Str, KeySeparator):
			return fmt.Errorf("%w: segment %q contains %q", ErrInvalidKey, s.Str, KeySeparator)
		case strings.HasPrefix(s.Str, AddressMarker):
			return fmt.Errorf("%w: segment %q starts with %q", ErrInvalidKey, s.Str, AddressMarker)
		}
	default:
		return fmt.Errorf("%w: unknown segment kind %d", ErrInvalidKey, s.Kind)
	}
	return nil
}

func (s Segment) String() string {
	if s.Kind == SegmentAddress {
		return AddressMarker + s.Addr.Encode()
	}
	return s.Str
}

// Key is a namespaced storage path. Keys are values: Push returns a
// new key and never modifies the receiver.
type Key struct {
	Segments []Segment `cramberry:"1"`
}

// KeyFromAddress returns the single-segment key of an address.
func KeyFromAddress(addr Address) (Key, error) {
	return Key{}.Push(AddressSeg(addr))
}

// Push returns k extended by seg. It fails when seg cannot be
// rendered unambiguously.
func (k Key) Push(seg Segment) (Key, error) {
	if err := seg.validate(); err != nil {
		return Key{}, err
	}
	segs := make([]Segment, len(k.Segments), len(k.Segments)+1)
	copy(segs, k.Segments)
	return Key{Segments: append(segs, seg)}, nil
}

// PushString is shorthand for k.Push(StringSeg(s)).
func (k Key) PushString(s string) (Key, error) {
	return k.Push(StringSeg(s))
}

// ParseKey parses the text form produced by Key.String.
func ParseKey(s string) (Key, error) {
	if s == "" {
		return Key{}, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	var key Key
	for _, raw := range strings.Split(s, KeySeparator) {
		var seg Segment
		if enc, ok := strings.CutPrefix(raw, AddressMarker); ok {
			addr, err := ParseAddress(enc)
			if err != nil {
				return Key{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			seg = AddressSeg(addr)
		} else {
			seg = StringSeg(raw)
		}
		var err error
		if key, err = key.Push(seg); err != nil {
			return Key{}, err
		}
	}
	return key, nil
}

// String returns the text form of the key.
func (k Key) String() string {
	parts := make([]string, len(k.Segments))
	for i, seg := range k.Segments {
		parts[i] = seg.String()
	}
	return strings.Join(parts, KeySeparator)
}

// Len returns the number of segments.
func (k Key) Len() int { return len(k.Segments) }

// IsEmpty reports whether the key has no segments.
func (k Key) IsEmpty() bool { return len(k.Segments) == 0 }

// Equal reports whether two keys have the same segments.
func (k Key) Equal(other Key) bool { return k.String() == other.String() }

// Owner returns the address of the first segment, if it is one.
// Changes to keys owned by an address trigger that address's validity
// predicate.
func (k Key) Owner() (Address, bool) {
	if len(k.Segments) == 0 || k.Segments[0].Kind != SegmentAddress {
		return Address{}, false
	}
	return k.Segments[0].Addr, true
}

// Hash256 hashes the text form of the key.
func (k Key) Hash256() Hash {
	return HashString(k.String())
}

// BalanceKey returns the key under which addr's balance is stored.
func BalanceKey(addr Address) (Key, error) {
	k, err := KeyFromAddress(addr)
	if err != nil {
		return Key{}, err
	}
	return k.PushString(BalanceStorageKey)
}

// VpKey returns the key under which addr's validity predicate code
// is stored.
func VpKey(addr Address) (Key, error) {
	k, err := KeyFromAddress(addr)
	if err != nil {
		return Key{}, err
	}
	return k.PushString(VpStorageKey)
}

// IsBalanceKey returns the owner if key is a balance key.
func IsBalanceKey(key Key) (Address, bool) {
	return isAccountKey(key, BalanceStorageKey)
}

// IsVpKey returns the owner if key is a validity predicate key.
func IsVpKey(key Key) (Address, bool) {
	return isAccountKey(key, VpStorageKey)
}

func isAccountKey(key Key, name string) (Address, bool) {
	if len(key.Segments) != 2 {
		return Address{}, false
	}
	owner, last := key.Segments[0], key.Segments[1]
	if owner.Kind != SegmentAddress || last.Kind != SegmentString || last.Str != name {
		return Address{}, false
	}
	return owner.Addr, true
}
