package types_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/ledger/types"
)

func TestBlockHashFromBytes(t *testing.T) {
	for _, n := range []int{0, 1, 31, 33, 64} {
		_, err := types.BlockHashFromBytes(make([]byte, n))
		assert.ErrorIs(t, err, types.ErrBlockHashLength, "len %d", n)
	}

	raw := bytes.Repeat([]byte{0xab}, types.BlockHashLength)
	h, err := types.BlockHashFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, h.Bytes())

	// The hash owns its bytes.
	raw[0] = 0
	assert.Equal(t, byte(0xab), h[0])
}

func TestBalanceBytes(t *testing.T) {
	b := types.Balance(0x0102)
	assert.Equal(t, []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0}, b.Bytes())

	got, err := types.BalanceFromBytes(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, b, got)

	_, err = types.BalanceFromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, types.ErrBalanceEncoding)
}

func TestValidateChainID(t *testing.T) {
	assert.NoError(t, types.ValidateChainID("ledger-test"))
	assert.NoError(t, types.ValidateChainID("01234567890123456789"))
	assert.ErrorIs(t, types.ValidateChainID("012345678901234567890"), types.ErrChainIDTooLong)
}

func TestTimestampToTime(t *testing.T) {
	want := time.Date(2024, 6, 15, 12, 30, 45, 123456789, time.UTC)
	assert.True(t, want.Equal(types.TimeToTimestamp(want).ToTime()))
}

func TestTransactionNative(t *testing.T) {
	assert.True(t, types.Transaction{Data: []byte{1}}.IsNative())
	assert.False(t, types.Transaction{Code: []byte("tx_write")}.IsNative())
}

func TestDecodeGenesisStateEmpty(t *testing.T) {
	g, err := types.DecodeGenesisState(nil)
	require.NoError(t, err)
	assert.Empty(t, g.Accounts)
}
