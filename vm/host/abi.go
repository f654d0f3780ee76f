package host

import (
	"context"
	"fmt"

	"github.com/blockberries/ledger/types"
)

// Memory is the guest's linear memory as seen by the host. Offsets
// are guest addresses; an access outside the memory is an error and
// traps the invocation.
type Memory interface {
	Read(offset, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
}

func readString(mem Memory, ptr, length uint32) (string, error) {
	b, err := mem.Read(ptr, length)
	if err != nil {
		return "", fmt.Errorf("read guest memory: %w", err)
	}
	return string(b), nil
}

func boolRaw(ok bool) int64 {
	if ok {
		return 1
	}
	return Sentinel
}

// materialize moves the pending result of s into guest memory.
func materialize(s *Session, mem Memory, ptr uint32) error {
	buf, err := s.Take()
	if err != nil {
		return err
	}
	return mem.Write(ptr, buf)
}

// chainIDBytes pads the chain id with zeros to ChainIDLength.
func chainIDBytes(id string) []byte {
	out := make([]byte, types.ChainIDLength)
	copy(out, id)
	return out
}

// TxImports are the raw host functions of the transaction channel.
// Every error returned is a trap.
type TxImports struct {
	env *TxEnv
	mem Memory
}

// NewTxImports binds env to the guest memory mem.
func NewTxImports(env *TxEnv, mem Memory) *TxImports {
	return &TxImports{env: env, mem: mem}
}

func (t *TxImports) Read(keyPtr, keyLen uint32) (int64, error) {
	key, err := readString(t.mem, keyPtr, keyLen)
	if err != nil {
		return 0, err
	}
	resp, err := t.env.Read(key)
	return resp.Raw(), err
}

func (t *TxImports) ResultBuffer(resultPtr uint32) error {
	return materialize(t.env.session, t.mem, resultPtr)
}

func (t *TxImports) HasKey(keyPtr, keyLen uint32) (int64, error) {
	key, err := readString(t.mem, keyPtr, keyLen)
	if err != nil {
		return 0, err
	}
	ok, err := t.env.HasKey(key)
	return boolRaw(ok), err
}

func (t *TxImports) Write(keyPtr, keyLen, valPtr, valLen uint32) error {
	key, err := readString(t.mem, keyPtr, keyLen)
	if err != nil {
		return err
	}
	val, err := t.mem.Read(valPtr, valLen)
	if err != nil {
		return err
	}
	return t.env.Write(key, val)
}

func (t *TxImports) Delete(keyPtr, keyLen uint32) error {
	key, err := readString(t.mem, keyPtr, keyLen)
	if err != nil {
		return err
	}
	return t.env.Delete(key)
}

func (t *TxImports) IterPrefix(prefixPtr, prefixLen uint32) (uint64, error) {
	prefix, err := readString(t.mem, prefixPtr, prefixLen)
	if err != nil {
		return 0, err
	}
	return t.env.IterPrefix(prefix)
}

func (t *TxImports) IterNext(id uint64) (int64, error) {
	resp, err := t.env.IterNext(id)
	return resp.Raw(), err
}

func (t *TxImports) InsertVerifier(addrPtr, addrLen uint32) error {
	addr, err := readString(t.mem, addrPtr, addrLen)
	if err != nil {
		return err
	}
	return t.env.InsertVerifier(addr)
}

func (t *TxImports) UpdateValidityPredicate(addrPtr, addrLen, codePtr, codeLen uint32) error {
	addr, err := readString(t.mem, addrPtr, addrLen)
	if err != nil {
		return err
	}
	code, err := t.mem.Read(codePtr, codeLen)
	if err != nil {
		return err
	}
	return t.env.UpdateValidityPredicate(addr, code)
}

// InitAccount returns the length of the new account's encoded address,
// to be fetched with ResultBuffer.
func (t *TxImports) InitAccount(codePtr, codeLen uint32) (int64, error) {
	code, err := t.mem.Read(codePtr, codeLen)
	if err != nil {
		return 0, err
	}
	resp, err := t.env.InitAccount(code)
	return resp.Raw(), err
}

// GetChainID writes ChainIDLength bytes, zero padded.
func (t *TxImports) GetChainID(resultPtr uint32) error {
	return t.mem.Write(resultPtr, chainIDBytes(t.env.ChainID()))
}

func (t *TxImports) GetBlockHeight() uint64 {
	return uint64(t.env.BlockHeight())
}

// GetBlockHash writes BlockHashLength bytes.
func (t *TxImports) GetBlockHash(resultPtr uint32) error {
	h := t.env.BlockHash()
	return t.mem.Write(resultPtr, h[:])
}

func (t *TxImports) LogString(strPtr, strLen uint32) error {
	msg, err := readString(t.mem, strPtr, strLen)
	if err != nil {
		return err
	}
	t.env.LogString(msg)
	return nil
}

// VpImports are the raw host functions of the validity predicate
// channels.
type VpImports struct {
	env *VpEnv
	mem Memory
}

// NewVpImports binds env to the guest memory mem.
func NewVpImports(env *VpEnv, mem Memory) *VpImports {
	return &VpImports{env: env, mem: mem}
}

func (v *VpImports) ReadPre(keyPtr, keyLen uint32) (int64, error) {
	key, err := readString(v.mem, keyPtr, keyLen)
	if err != nil {
		return 0, err
	}
	resp, err := v.env.ReadPre(key)
	return resp.Raw(), err
}

func (v *VpImports) ReadPost(keyPtr, keyLen uint32) (int64, error) {
	key, err := readString(v.mem, keyPtr, keyLen)
	if err != nil {
		return 0, err
	}
	resp, err := v.env.ReadPost(key)
	return resp.Raw(), err
}

func (v *VpImports) PreResultBuffer(resultPtr uint32) error {
	return materialize(v.env.pre, v.mem, resultPtr)
}

func (v *VpImports) PostResultBuffer(resultPtr uint32) error {
	return materialize(v.env.post, v.mem, resultPtr)
}

func (v *VpImports) HasKeyPre(keyPtr, keyLen uint32) (int64, error) {
	key, err := readString(v.mem, keyPtr, keyLen)
	if err != nil {
		return 0, err
	}
	ok, err := v.env.HasKeyPre(key)
	return boolRaw(ok), err
}

func (v *VpImports) HasKeyPost(keyPtr, keyLen uint32) (int64, error) {
	key, err := readString(v.mem, keyPtr, keyLen)
	if err != nil {
		return 0, err
	}
	ok, err := v.env.HasKeyPost(key)
	return boolRaw(ok), err
}

func (v *VpImports) IterPrefixPre(prefixPtr, prefixLen uint32) (uint64, error) {
	prefix, err := readString(v.mem, prefixPtr, prefixLen)
	if err != nil {
		return 0, err
	}
	return v.env.IterPrefixPre(prefix)
}

func (v *VpImports) IterPrefixPost(prefixPtr, prefixLen uint32) (uint64, error) {
	prefix, err := readString(v.mem, prefixPtr, prefixLen)
	if err != nil {
		return 0, err
	}
	return v.env.IterPrefixPost(prefix)
}

func (v *VpImports) IterPreNext(id uint64) (int64, error) {
	resp, err := v.env.IterPreNext(id)
	return resp.Raw(), err
}

func (v *VpImports) IterPostNext(id uint64) (int64, error) {
	resp, err := v.env.IterPostNext(id)
	return resp.Raw(), err
}

func (v *VpImports) GetChainID(resultPtr uint32) error {
	return v.mem.Write(resultPtr, chainIDBytes(v.env.ChainID()))
}

func (v *VpImports) GetBlockHeight() uint64 {
	return uint64(v.env.BlockHeight())
}

func (v *VpImports) GetBlockHash(resultPtr uint32) error {
	h := v.env.BlockHash()
	return v.mem.Write(resultPtr, h[:])
}

func (v *VpImports) VerifyTxSignature(pkPtr, pkLen, sigPtr, sigLen uint32) (int64, error) {
	pk, err := v.mem.Read(pkPtr, pkLen)
	if err != nil {
		return 0, err
	}
	sig, err := v.mem.Read(sigPtr, sigLen)
	if err != nil {
		return 0, err
	}
	return boolRaw(v.env.VerifyTxSignature(pk, sig)), nil
}

func (v *VpImports) Eval(ctx context.Context, codePtr, codeLen, inputPtr, inputLen uint32) (int64, error) {
	code, err := v.mem.Read(codePtr, codeLen)
	if err != nil {
		return 0, err
	}
	input, err := v.mem.Read(inputPtr, inputLen)
	if err != nil {
		return 0, err
	}
	return boolRaw(v.env.EvalPredicate(ctx, code, input)), nil
}

func (v *VpImports) LogString(strPtr, strLen uint32) error {
	msg, err := readString(v.mem, strPtr, strLen)
	if err != nil {
		return err
	}
	v.env.LogString(msg)
	return nil
}

// MatchmakerImports are the raw host functions of the matchmaker
// channel.
type MatchmakerImports struct {
	env *MatchmakerEnv
	mem Memory
}

func NewMatchmakerImports(env *MatchmakerEnv, mem Memory) *MatchmakerImports {
	return &MatchmakerImports{env: env, mem: mem}
}

func (m *MatchmakerImports) SendMatch(dataPtr, dataLen uint32) error {
	data, err := m.mem.Read(dataPtr, dataLen)
	if err != nil {
		return err
	}
	return m.env.SendMatch(data)
}

func (m *MatchmakerImports) UpdateData(dataPtr, dataLen uint32) error {
	data, err := m.mem.Read(dataPtr, dataLen)
	if err != nil {
		return err
	}
	return m.env.UpdateData(data)
}

func (m *MatchmakerImports) RemoveIntents(idsPtr, idsLen uint32) error {
	data, err := m.mem.Read(idsPtr, idsLen)
	if err != nil {
		return err
	}
	return m.env.RemoveIntents(data)
}

func (m *MatchmakerImports) LogString(strPtr, strLen uint32) error {
	msg, err := readString(m.mem, strPtr, strLen)
	if err != nil {
		return err
	}
	m.env.LogString(msg)
	return nil
}

// FilterImports are the raw host functions of the filter channel.
type FilterImports struct {
	env *FilterEnv
	mem Memory
}

func NewFilterImports(env *FilterEnv, mem Memory) *FilterImports {
	return &FilterImports{env: env, mem: mem}
}

func (f *FilterImports) LogString(strPtr, strLen uint32) error {
	msg, err := readString(f.mem, strPtr, strLen)
	if err != nil {
		return err
	}
	f.env.LogString(msg)
	return nil
}

