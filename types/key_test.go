package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/ledger/types"
)

func TestKeyPushIsPure(t *testing.T) {
	base, err := types.KeyFromAddress(types.NewBasicAddress("alice"))
	require.NoError(t, err)

	a, err := base.PushString("a")
	require.NoError(t, err)
	b, err := base.PushString("b")
	require.NoError(t, err)

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, "#basic:alice/a", a.String())
	assert.Equal(t, "#basic:alice/b", b.String())
}

func TestKeyPushRejects(t *testing.T) {
	var k types.Key
	for _, seg := range []string{"", "a/b", "#x"} {
		_, err := k.PushString(seg)
		assert.ErrorIs(t, err, types.ErrInvalidKey, seg)
	}
	_, err := k.Push(types.AddressSeg(types.Address{}))
	assert.ErrorIs(t, err, types.ErrInvalidKey)
}

func TestParseKey(t *testing.T) {
	key, err := types.ParseKey("#validator:v1/stake/epoch")
	require.NoError(t, err)
	require.Equal(t, 3, key.Len())

	owner, ok := key.Owner()
	require.True(t, ok)
	assert.Equal(t, types.NewValidatorAddress("v1"), owner)
	assert.Equal(t, "#validator:v1/stake/epoch", key.String())

	plain, err := types.ParseKey("counter/value")
	require.NoError(t, err)
	_, ok = plain.Owner()
	assert.False(t, ok)

	for _, bad := range []string{"", "a//b", "#nobody", "#basic:"} {
		_, err := types.ParseKey(bad)
		assert.ErrorIs(t, err, types.ErrInvalidKey, bad)
	}
}

func TestKeyHashDistinct(t *testing.T) {
	a, err := types.ParseKey("a/1")
	require.NoError(t, err)
	b, err := types.ParseKey("a/2")
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash256(), b.Hash256())
	assert.Equal(t, types.HashString("a/1"), a.Hash256())
}

func TestAccountKeys(t *testing.T) {
	alice := types.NewBasicAddress("alice")

	bal, err := types.BalanceKey(alice)
	require.NoError(t, err)
	assert.Equal(t, "#basic:alice/balance", bal.String())
	owner, ok := types.IsBalanceKey(bal)
	assert.True(t, ok)
	assert.Equal(t, alice, owner)
	_, ok = types.IsVpKey(bal)
	assert.False(t, ok)

	vp, err := types.VpKey(alice)
	require.NoError(t, err)
	owner, ok = types.IsVpKey(vp)
	assert.True(t, ok)
	assert.Equal(t, alice, owner)

	deeper, err := bal.PushString("x")
	require.NoError(t, err)
	_, ok = types.IsBalanceKey(deeper)
	assert.False(t, ok)
}
