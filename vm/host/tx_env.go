package host

import (
	"encoding/binary"
	"encoding/hex"
	"slices"

	"github.com/ethereum/go-ethereum/log"

	"github.com/blockberries/ledger/types"
	"github.com/blockberries/ledger/writelog"
)

// TxEnv is the environment of one transaction invocation. Reads see
// the transaction's own writes; writes go to its write log.
type TxEnv struct {
	logger  log.Logger
	wl      *writelog.WriteLog
	chain   ChainInfo
	session *Session
	txHash  types.Hash

	verifiers   map[types.Address]struct{}
	initialized []types.Address
}

// NewTxEnv opens the environment for the transaction with hash txHash.
func NewTxEnv(wl *writelog.WriteLog, chain ChainInfo, txHash types.Hash, logger log.Logger) *TxEnv {
	if logger == nil {
		logger = log.Root()
	}
	return &TxEnv{
		logger:    logger.With("channel", ChannelTx),
		wl:        wl,
		chain:     chain,
		session:   NewSession(ChannelTx),
		txHash:    txHash,
		verifiers: make(map[types.Address]struct{}),
	}
}

// Read probes key. The value, if any, is held for ResultBuffer.
func (e *TxEnv) Read(key string) (Response, error) {
	k, ok := parseKey(key)
	if !ok {
		return e.session.stash(nil, false)
	}
	val, found, err := e.wl.ReadPost(k)
	if err != nil {
		return Response{}, err
	}
	return e.session.stash(val, found)
}

// ResultBuffer materializes the last probed value into dst.
func (e *TxEnv) ResultBuffer(dst []byte) (int, error) {
	return e.session.Materialize(dst)
}

// HasKey reports whether key holds a value.
func (e *TxEnv) HasKey(key string) (bool, error) {
	if err := e.session.check(); err != nil {
		return false, err
	}
	k, ok := parseKey(key)
	if !ok {
		return false, nil
	}
	return e.wl.HasKeyPost(k)
}

// Write records value under key.
func (e *TxEnv) Write(key string, value []byte) error {
	if err := e.session.check(); err != nil {
		return err
	}
	k, err := types.ParseKey(key)
	if err != nil {
		return err
	}
	return e.wl.Write(k, value)
}

// Delete records the deletion of key.
func (e *TxEnv) Delete(key string) error {
	if err := e.session.check(); err != nil {
		return err
	}
	k, err := types.ParseKey(key)
	if err != nil {
		return err
	}
	e.wl.Delete(k)
	return nil
}

// IterPrefix opens an iterator over the committed keys under prefix,
// showing the transaction's writes to them. Keys the transaction
// creates are not visited.
func (e *TxEnv) IterPrefix(prefix string) (uint64, error) {
	if err := e.session.check(); err != nil {
		return 0, err
	}
	it, err := e.wl.IterPrefixPost(prefix)
	if err != nil {
		return 0, err
	}
	return e.session.openIterator(it)
}

// IterNext advances iterator id. The entry is held for ResultBuffer as
// an encoded KeyVal.
func (e *TxEnv) IterNext(id uint64) (Response, error) {
	return e.session.nextEntry(id)
}

// InsertVerifier adds addr to the accounts whose predicates must
// accept the transaction.
func (e *TxEnv) InsertVerifier(addr string) error {
	if err := e.session.check(); err != nil {
		return err
	}
	a, err := types.ParseAddress(addr)
	if err != nil {
		return err
	}
	e.verifiers[a] = struct{}{}
	return nil
}

// UpdateValidityPredicate replaces the predicate code of addr.
func (e *TxEnv) UpdateValidityPredicate(addr string, code []byte) error {
	if err := e.session.check(); err != nil {
		return err
	}
	a, err := types.ParseAddress(addr)
	if err != nil {
		return err
	}
	key, err := types.VpKey(a)
	if err != nil {
		return err
	}
	return e.wl.Write(key, code)
}

// InitAccount creates a new account guarded by the predicate code.
// The encoded address is held for ResultBuffer.
func (e *TxEnv) InitAccount(code []byte) (Response, error) {
	if err := e.session.check(); err != nil {
		return Response{}, err
	}
	addr := e.nextAddress()
	key, err := types.VpKey(addr)
	if err != nil {
		return Response{}, err
	}
	if err := e.wl.Write(key, code); err != nil {
		return Response{}, err
	}
	e.initialized = append(e.initialized, addr)
	e.logger.Debug("Initialized account", "address", addr)
	return e.session.stash([]byte(addr.Encode()), true)
}

// nextAddress derives a fresh address from the transaction hash and
// the number of accounts it already created.
func (e *TxEnv) nextAddress() types.Address {
	var buf [types.BlockHashLength + 8]byte
	copy(buf[:], e.txHash[:])
	binary.LittleEndian.PutUint64(buf[types.BlockHashLength:], uint64(len(e.initialized)))
	digest := types.HashBytes(buf[:])
	return types.NewBasicAddress(hex.EncodeToString(digest[:20]))
}

func (e *TxEnv) ChainID() string { return e.chain.ChainID() }

func (e *TxEnv) BlockHeight() types.BlockHeight { return e.chain.BlockHeight() }

func (e *TxEnv) BlockHash() types.BlockHash { return e.chain.BlockHash() }

// LogString logs a message from the guest.
func (e *TxEnv) LogString(msg string) {
	e.logger.Info(msg)
}

// Verifiers returns the inserted verifiers in address order.
func (e *TxEnv) Verifiers() []types.Address {
	out := make([]types.Address, 0, len(e.verifiers))
	for a := range e.verifiers {
		out = append(out, a)
	}
	slices.SortFunc(out, types.Address.Compare)
	return out
}

// InitializedAccounts returns the accounts created, in creation order.
func (e *TxEnv) InitializedAccounts() []types.Address {
	return slices.Clone(e.initialized)
}

// WriteLog returns the write log the transaction writes to.
func (e *TxEnv) WriteLog() *writelog.WriteLog { return e.wl }

// Session returns the transaction's channel.
func (e *TxEnv) Session() *Session { return e.session }

// Close ends the invocation.
func (e *TxEnv) Close() { e.session.Close() }
