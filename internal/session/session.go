package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/DoyleJ11/squadfire/internal/characters"
	"github.com/DoyleJ11/squadfire/internal/engine"
	"github.com/DoyleJ11/squadfire/internal/protocol"
)

// Conn is the outbound half of a client connection. Send must not block on
// a slow peer.
type Conn interface {
	Send(msg string) error
	Close() error
}

// Session is one connected player. Combat fields are written from other
// players' connection goroutines, so every mutable field is atomic or
// behind mu.
type Session struct {
	Name     string
	JoinedAt time.Time

	conn Conn

	hp             atomic.Int32
	maxHP          atomic.Int32
	kills          atomic.Int32
	deaths         atomic.Int32
	team           atomic.Int32
	ready          atomic.Bool
	protectedUntil atomic.Int64 // unix nanos

	mu          sync.RWMutex
	characterID string
	hasSelected bool
	x, y        float64
	direction   int
}

func New(name string, conn Conn, characterID string, now time.Time) *Session {
	s := &Session{Name: name, JoinedAt: now, conn: conn}
	c := characters.Lookup(characterID)
	s.characterID = c.ID
	s.hp.Store(int32(c.Health))
	s.maxHP.Store(int32(c.Health))
	return s
}

func (s *Session) Send(msg string) error { return s.conn.Send(msg) }

func (s *Session) Close() error { return s.conn.Close() }

func (s *Session) HP() int     { return int(s.hp.Load()) }
func (s *Session) MaxHP() int  { return int(s.maxHP.Load()) }
func (s *Session) Kills() int  { return int(s.kills.Load()) }
func (s *Session) Deaths() int { return int(s.deaths.Load()) }
func (s *Session) Alive() bool { return s.hp.Load() > 0 }

func (s *Session) Team() engine.Team     { return engine.Team(s.team.Load()) }
func (s *Session) SetTeam(t engine.Team) { s.team.Store(int32(t)) }

func (s *Session) Ready() bool     { return s.ready.Load() }
func (s *Session) SetReady(r bool) { s.ready.Store(r) }

func (s *Session) CharacterID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.characterID
}

// HasSelected reports whether the player explicitly picked a character.
func (s *Session) HasSelected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasSelected
}

// SelectCharacter switches character and resets hp to its health.
func (s *Session) SelectCharacter(id string) characters.Character {
	c := characters.Lookup(id)
	s.mu.Lock()
	s.characterID = c.ID
	s.hasSelected = true
	s.mu.Unlock()
	s.maxHP.Store(int32(c.Health))
	s.hp.Store(int32(c.Health))
	return c
}

func (s *Session) Position() (x, y float64, direction int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.x, s.y, s.direction
}

func (s *Session) SetPosition(x, y float64, direction int) {
	s.mu.Lock()
	s.x, s.y, s.direction = x, y, direction
	s.mu.Unlock()
}

func (s *Session) Protected(now time.Time) bool {
	return now.UnixNano() < s.protectedUntil.Load()
}

// Damage subtracts dmg, clamping at zero. applied is false when the session
// was already dead; killed is true for exactly one caller per life.
func (s *Session) Damage(dmg int) (hp int, killed, applied bool) {
	for {
		cur := s.hp.Load()
		if cur <= 0 {
			return 0, false, false
		}
		next := max(cur-int32(dmg), 0)
		if s.hp.CompareAndSwap(cur, next) {
			return int(next), next == 0, true
		}
	}
}

// Kill drops hp to zero. Only the caller that observed a living session
// gets true.
func (s *Session) Kill() bool {
	for {
		cur := s.hp.Load()
		if cur <= 0 {
			return false
		}
		if s.hp.CompareAndSwap(cur, 0) {
			return true
		}
	}
}

func (s *Session) AddKill() int  { return int(s.kills.Add(1)) }
func (s *Session) AddDeath() int { return int(s.deaths.Add(1)) }

// Respawn restores full hp and starts spawn protection.
func (s *Session) Respawn(now time.Time, protection time.Duration) {
	s.hp.Store(s.maxHP.Load())
	s.protectedUntil.Store(now.Add(protection).UnixNano())
}

// ResetForRound restores hp and lifts spawn protection.
func (s *Session) ResetForRound() {
	s.hp.Store(s.maxHP.Load())
	s.protectedUntil.Store(0)
}

func (s *Session) Stats() protocol.Stats {
	return protocol.Stats{
		Name:        s.Name,
		Kills:       s.Kills(),
		Deaths:      s.Deaths(),
		HP:          s.HP(),
		CharacterID: s.CharacterID(),
	}
}

func (s *Session) Player() protocol.Player {
	x, y, dir := s.Position()
	return protocol.Player{
		Name:        s.Name,
		X:           int(x),
		Y:           int(y),
		Team:        int(s.Team()),
		HP:          s.HP(),
		CharacterID: s.CharacterID(),
		Direction:   dir,
	}
}

func (s *Session) RosterEntry() protocol.RosterEntry {
	return protocol.RosterEntry{
		Name:        s.Name,
		Team:        int(s.Team()),
		Ready:       s.Ready(),
		CharacterID: s.CharacterID(),
	}
}
