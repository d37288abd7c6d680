package lobby

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/squadfire/internal/engine"
	"github.com/DoyleJ11/squadfire/internal/protocol"
	"github.com/DoyleJ11/squadfire/internal/session"
)

// Snapshot is one full roster broadcast.
type Snapshot struct {
	Version int
	Entries []protocol.RosterEntry
}

// Lobby owns team/ready/character selection and rebroadcasts the full
// roster after every change. Clients replace their view wholesale.
type Lobby struct {
	mu      sync.Mutex // orders snapshot builds with their broadcasts
	reg     *session.Registry
	log     *zap.Logger
	version int
	last    Snapshot
}

func New(reg *session.Registry, log *zap.Logger) *Lobby {
	return &Lobby{reg: reg, log: log}
}

// Broadcast rebuilds the roster and sends it to everyone.
func (l *Lobby) Broadcast() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]protocol.RosterEntry, 0, l.reg.Max())
	for _, s := range l.reg.Sessions() {
		entries = append(entries, s.RosterEntry())
	}
	l.version++
	snap := Snapshot{Version: l.version, Entries: entries}
	l.last = snap

	if err := l.reg.Broadcast(protocol.EncodeRoster(entries)); err != nil {
		l.log.Debug("roster not delivered everywhere", zap.Error(err))
	}
	return snap
}

// Current returns the last broadcast snapshot.
func (l *Lobby) Current() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.last
	out.Entries = append([]protocol.RosterEntry(nil), l.last.Entries...)
	return out
}

func (l *Lobby) SetTeam(name string, team engine.Team) error {
	s, ok := l.reg.Get(name)
	if !ok {
		return fmt.Errorf("%s: %w", name, session.ErrUnknownSession)
	}
	s.SetTeam(team)
	l.log.Info("team changed", zap.String("player", name), zap.Stringer("team", team))
	l.Broadcast()
	return nil
}

func (l *Lobby) SetReady(name string, ready bool) error {
	s, ok := l.reg.Get(name)
	if !ok {
		return fmt.Errorf("%s: %w", name, session.ErrUnknownSession)
	}
	s.SetReady(ready)
	l.Broadcast()
	return nil
}

// Members is the roster as seen by the start and elimination rules.
func (l *Lobby) Members() []engine.Member {
	sessions := l.reg.Sessions()
	out := make([]engine.Member, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, engine.Member{Name: s.Name, Team: s.Team(), Ready: s.Ready(), Alive: s.Alive()})
	}
	return out
}

// CheckStart validates a START request. A rejection goes back to the
// requester only.
func (l *Lobby) CheckStart(requester string) error {
	err := engine.CanStart(l.Members())
	if err == nil {
		return nil
	}
	l.log.Info("start denied", zap.String("player", requester), zap.Error(err))
	if sendErr := l.reg.SendTo(requester, protocol.Encode(protocol.CmdStartDenied, err.Error())); sendErr != nil {
		l.log.Debug("start denial not delivered", zap.Error(sendErr))
	}
	return err
}
