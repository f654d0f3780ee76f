// Package host implements the state-access environment the ledger
// exposes to guest code.
//
// Guest code runs isolated from the host and cannot be handed
// pointers to host memory. Every variable-length read therefore takes
// two calls on a channel Session: a probe that looks the value up,
// stashes it in the session and reports its length, then a
// materialize that moves the stashed bytes into a buffer the guest
// allocated for them.
//
// Each logical channel (transaction, validity predicate pre and post
// views, matchmaker, filter) has its own Session, owned by exactly one
// guest invocation. Sessions are not safe for concurrent use.
package host

import (
	"errors"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/ledger/types"
	"github.com/blockberries/ledger/writelog"
)

// Sentinel is the raw return value for "absent" and "failure". Any
// non-negative raw value is a length or a success marker.
const Sentinel int64 = -1

var (
	// ErrNoResult is returned by Materialize without a preceding
	// successful probe.
	ErrNoResult = errors.New("no pending result")
	// ErrShortBuffer is returned when the destination cannot hold the
	// pending result.
	ErrShortBuffer = errors.New("destination buffer too small")
	// ErrSessionClosed is returned by every call on a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrUnknownIterator is returned for iterator ids the session did
	// not hand out.
	ErrUnknownIterator = errors.New("unknown iterator")
)

// Channel names a logical host-guest channel.
type Channel string

const (
	ChannelTx         Channel = "tx"
	ChannelVpPre      Channel = "vp-pre"
	ChannelVpPost     Channel = "vp-post"
	ChannelMatchmaker Channel = "matchmaker"
	ChannelFilter     Channel = "filter"
)

// Response is the answer to a probe.
type Response struct {
	Present bool
	Len     int
}

// Raw returns the raw encoding of r: the length, or Sentinel when
// absent.
func (r Response) Raw() int64 {
	if !r.Present {
		return Sentinel
	}
	return int64(r.Len)
}

// Session is one channel between a guest invocation and the host. It
// owns a single-slot result buffer and the iterators opened through
// it.
type Session struct {
	channel Channel
	result  []byte
	pending bool
	iters   []writelog.Iterator
	closed  bool
}

// NewSession opens a session on ch.
func NewSession(ch Channel) *Session {
	return &Session{channel: ch}
}

// Channel returns the channel the session serves.
func (s *Session) Channel() Channel { return s.channel }

func (s *Session) check() error {
	if s.closed {
		return fmt.Errorf("%w: %s", ErrSessionClosed, s.channel)
	}
	return nil
}

// stash replaces the pending result. Any result that was not
// materialized is dropped.
func (s *Session) stash(val []byte, present bool) (Response, error) {
	if err := s.check(); err != nil {
		return Response{}, err
	}
	s.result, s.pending = nil, false
	if !present {
		return Response{}, nil
	}
	if val == nil {
		val = []byte{}
	}
	s.result, s.pending = val, true
	return Response{Present: true, Len: len(val)}, nil
}

// Materialize copies the pending result into dst and releases it.
func (s *Session) Materialize(dst []byte) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	if !s.pending {
		return 0, fmt.Errorf("%w on %s", ErrNoResult, s.channel)
	}
	if len(dst) < len(s.result) {
		return 0, fmt.Errorf("%w: %d < %d", ErrShortBuffer, len(dst), len(s.result))
	}
	n := copy(dst, s.result)
	s.result, s.pending = nil, false
	return n, nil
}

// Take hands the pending result over to the caller.
func (s *Session) Take() ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if !s.pending {
		return nil, fmt.Errorf("%w on %s", ErrNoResult, s.channel)
	}
	out := s.result
	s.result, s.pending = nil, false
	return out, nil
}

func (s *Session) openIterator(it writelog.Iterator) (uint64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	s.iters = append(s.iters, it)
	return uint64(len(s.iters) - 1), nil
}

// nextEntry advances iterator id and stashes the encoded KeyVal. The
// end of the iteration is reported like an absent key.
func (s *Session) nextEntry(id uint64) (Response, error) {
	if err := s.check(); err != nil {
		return Response{}, err
	}
	if id >= uint64(len(s.iters)) {
		return Response{}, fmt.Errorf("%w: %d on %s", ErrUnknownIterator, id, s.channel)
	}
	kv, ok := s.iters[id].Next()
	if !ok {
		return s.stash(nil, false)
	}
	bz, err := cramberry.Marshal(kv)
	if err != nil {
		return Response{}, fmt.Errorf("encode %s: %w", kv.Key, err)
	}
	return s.stash(bz, true)
}

// Close releases the result buffer and the iterators. Later calls
// fail with ErrSessionClosed.
func (s *Session) Close() {
	s.result, s.pending = nil, false
	s.iters = nil
	s.closed = true
}

// DecodeKeyVal decodes an entry materialized after an iterator step.
func DecodeKeyVal(b []byte) (types.KeyVal, error) {
	var kv types.KeyVal
	if err := cramberry.Unmarshal(b, &kv); err != nil {
		return types.KeyVal{}, err
	}
	return kv, nil
}
