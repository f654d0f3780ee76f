package shell

import (
	"context"
	"fmt"

	"github.com/blockberries/ledger/storage"
	"github.com/blockberries/ledger/types"
)

// Query reads the last committed state. Only the latest committed
// height can be queried, and the whole answer is read from that one
// commit.
func (s *Shell) Query(_ context.Context, req types.StateQuery) (res types.StateQueryResult, err error) {
	err = s.store.ViewCommitted(func(v storage.CommittedView) error {
		res, err = query(v, req)
		return err
	})
	if err != nil {
		return types.StateQueryResult{}, err
	}
	return res, nil
}

func query(v storage.CommittedView, req types.StateQuery) (types.StateQueryResult, error) {
	height := uint64(v.Info.Height)
	if req.Height != nil && *req.Height != height {
		return types.StateQueryResult{
			Code:   types.QueryCodeHeightUnavailable,
			Height: height,
			Info:   fmt.Sprintf("height %d unavailable, latest is %d", *req.Height, height),
		}, nil
	}

	var (
		res types.StateQueryResult
		err error
	)
	switch req.Path {
	case types.QueryBalance:
		res, err = queryBalance(v, req)
	case types.QueryValue:
		res, err = queryValue(v, req)
	case types.QueryPrefix:
		res, err = queryPrefix(v, req)
	case types.QueryChainID:
		res = types.StateQueryResult{Value: []byte(v.Info.ChainID)}
		if !v.Ok {
			res.Code = types.QueryCodeNotFound
		}
	default:
		res = types.StateQueryResult{
			Code: types.QueryCodeUnknownPath,
			Info: fmt.Sprintf("unknown query path %q", req.Path),
		}
	}
	if err != nil {
		return types.StateQueryResult{}, err
	}
	res.Height = height
	return res, nil
}

func invalid(err error) types.StateQueryResult {
	return types.StateQueryResult{Code: types.QueryCodeInvalid, Info: err.Error()}
}

func queryBalance(v storage.CommittedView, req types.StateQuery) (types.StateQueryResult, error) {
	addr, err := types.ParseAddress(string(req.Data))
	if err != nil {
		return invalid(err), nil
	}
	key, err := types.BalanceKey(addr)
	if err != nil {
		return invalid(err), nil
	}
	return readKey(v, key, req.Prove)
}

func queryValue(v storage.CommittedView, req types.StateQuery) (types.StateQueryResult, error) {
	key, err := types.ParseKey(string(req.Data))
	if err != nil {
		return invalid(err), nil
	}
	return readKey(v, key, req.Prove)
}

// readKey reads key at the committed root. The proof, when asked for,
// shows membership of the value or absence of the key.
func readKey(v storage.CommittedView, key types.Key, prove bool) (types.StateQueryResult, error) {
	val, ok, err := v.Read(key)
	if err != nil {
		return types.StateQueryResult{}, err
	}
	res := types.StateQueryResult{Key: []byte(key.String()), Value: val}
	if !ok {
		res.Code = types.QueryCodeNotFound
	}
	if prove {
		proof, err := v.Prove(key)
		if err != nil {
			return types.StateQueryResult{}, err
		}
		res.Proof = &proof
	}
	return res, nil
}

func queryPrefix(v storage.CommittedView, req types.StateQuery) (types.StateQueryResult, error) {
	it, err := v.IterPrefix(string(req.Data))
	if err != nil {
		return types.StateQueryResult{}, err
	}
	res := types.StateQueryResult{Key: req.Data}
	for {
		kv, ok := it.Next()
		if !ok {
			break
		}
		res.Entries = append(res.Entries, kv)
	}
	return res, nil
}
