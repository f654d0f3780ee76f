package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAddress is returned when an address cannot be parsed or
// used as a key segment.
var ErrInvalidAddress = errors.New("invalid address")

// AddressKind is the variant tag of an Address. The numeric order of
// the kinds is the order in which addresses sort.
type AddressKind uint8

const (
	AddressValidator AddressKind = 1
	AddressBasic     AddressKind = 2
)

func (k AddressKind) String() string {
	switch k {
	case AddressValidator:
		return "validator"
	case AddressBasic:
		return "basic"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Address identifies an account. It is a closed union of two
// variants, each wrapping an opaque identifier string.
type Address struct {
	Kind AddressKind `cramberry:"1"`
	ID   string      `cramberry:"2"`
}

// NewValidatorAddress returns the validator address with the given id.
func NewValidatorAddress(id string) Address {
	return Address{Kind: AddressValidator, ID: id}
}

// NewBasicAddress returns the basic address with the given id.
func NewBasicAddress(id string) Address {
	return Address{Kind: AddressBasic, ID: id}
}

// ParseAddress parses the text form produced by Address.Encode.
func ParseAddress(s string) (Address, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return Address{}, fmt.Errorf("%w: %q has no kind prefix", ErrInvalidAddress, s)
	}
	var addr Address
	switch kind {
	case "validator":
		addr = NewValidatorAddress(id)
	case "basic":
		addr = NewBasicAddress(id)
	default:
		return Address{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidAddress, kind)
	}
	if err := addr.Validate(); err != nil {
		return Address{}, err
	}
	return addr, nil
}

// Validate checks that the address has a known kind and an id that
// can be embedded in a storage key.
func (a Address) Validate() error {
	switch a.Kind {
	case AddressValidator, AddressBasic:
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidAddress, a.Kind)
	}
	if a.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidAddress)
	}
	if strings.Contains(a.ID, KeySeparator) {
		return fmt.Errorf("%w: id %q contains %q", ErrInvalidAddress, a.ID, KeySeparator)
	}
	return nil
}

// Encode returns the canonical text form, "<kind>:<id>".
func (a Address) Encode() string {
	return a.Kind.String() + ":" + a.ID
}

func (a Address) String() string { return a.Encode() }

// Compare orders addresses by kind, then by id.
func (a Address) Compare(b Address) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

// Hash256 hashes the canonical text form, so the two variants never
// share a digest for the same id.
func (a Address) Hash256() Hash {
	return HashString(a.Encode())
}
