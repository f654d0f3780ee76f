package host

import (
	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/ethereum/go-ethereum/log"

	"github.com/blockberries/ledger/types"
)

// MatchmakerEnv is the environment of matchmaker code. It has no
// storage access.
type MatchmakerEnv struct {
	logger  log.Logger
	mm      Matchmaker
	session *Session
}

// NewMatchmakerEnv opens a matchmaker environment forwarding to mm.
func NewMatchmakerEnv(mm Matchmaker, logger log.Logger) *MatchmakerEnv {
	if logger == nil {
		logger = log.Root()
	}
	return &MatchmakerEnv{
		logger:  logger.With("channel", ChannelMatchmaker),
		mm:      mm,
		session: NewSession(ChannelMatchmaker),
	}
}

func (e *MatchmakerEnv) SendMatch(data []byte) error {
	if err := e.session.check(); err != nil {
		return err
	}
	e.mm.SendMatch(data)
	return nil
}

func (e *MatchmakerEnv) UpdateData(data []byte) error {
	if err := e.session.check(); err != nil {
		return err
	}
	e.mm.UpdateData(data)
	return nil
}

// RemoveIntents forwards the encoded IntentIDs. Undecodable input is
// dropped.
func (e *MatchmakerEnv) RemoveIntents(encoded []byte) error {
	if err := e.session.check(); err != nil {
		return err
	}
	var ids types.IntentIDs
	if err := cramberry.Unmarshal(encoded, &ids); err != nil {
		e.logger.Warn("Dropped undecodable intent ids", "err", err)
		return nil
	}
	e.mm.RemoveIntents(ids.IDs)
	return nil
}

func (e *MatchmakerEnv) LogString(msg string) {
	e.logger.Info(msg)
}

func (e *MatchmakerEnv) Close() { e.session.Close() }

// FilterEnv is the environment of intent filter code. It can only log.
type FilterEnv struct {
	logger  log.Logger
	session *Session
}

func NewFilterEnv(logger log.Logger) *FilterEnv {
	if logger == nil {
		logger = log.Root()
	}
	return &FilterEnv{
		logger:  logger.With("channel", ChannelFilter),
		session: NewSession(ChannelFilter),
	}
}

func (e *FilterEnv) LogString(msg string) {
	e.logger.Info(msg)
}

func (e *FilterEnv) Close() { e.session.Close() }
