package client

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/DoyleJ11/squadfire/internal/characters"
	"github.com/DoyleJ11/squadfire/internal/engine"
	"github.com/DoyleJ11/squadfire/internal/protocol"
)

// RemotePlayer is another player as seen locally. X/Y is what gets drawn;
// TargetX/TargetY is the last position the server reported.
type RemotePlayer struct {
	Name        string
	X, Y        float64
	TargetX     float64
	TargetY     float64
	Team        engine.Team
	HP, MaxHP   int
	Kills       int
	Deaths      int
	CharacterID string
	Direction   int
}

// Step closes InterpolationFactor of the remaining distance, snapping once
// within SnapEpsilon.
func (p *RemotePlayer) Step() {
	dx, dy := p.TargetX-p.X, p.TargetY-p.Y
	if math.Hypot(dx, dy) < SnapEpsilon {
		p.X, p.Y = p.TargetX, p.TargetY
		return
	}
	p.X += dx * InterpolationFactor
	p.Y += dy * InterpolationFactor
}

type Missile struct {
	ID       int
	X, Y     float64
	VX, VY   float64
	Team     engine.Team
	Owner    string
	MaxRange float64 // 0 means unlimited
	SpawnX   float64
	SpawnY   float64
}

func (m *Missile) Traveled() float64 { return math.Hypot(m.X-m.SpawnX, m.Y-m.SpawnY) }

type PlacedObject struct {
	ID    int
	Type  string
	X, Y  float64
	HP    int
	MaxHP int
	Owner string
	Team  engine.Team
}

type StrikeMarker struct {
	ID        int
	X, Y      float64
	CreatedAt time.Time
}

// Remaining is the warning time left before impact.
func (s StrikeMarker) Remaining(now time.Time) time.Duration {
	return max(0, StrikeWarning-now.Sub(s.CreatedAt))
}

// Store is the client's reconciled world. It is owned by the tick
// goroutine and must not be touched from the receive goroutine.
type Store struct {
	players  map[string]*RemotePlayer
	missiles []*Missile
	objects  map[int]*PlacedObject
	strikes  map[int]StrikeMarker
	nextID   int
}

func NewStore() *Store {
	return &Store{
		players: make(map[string]*RemotePlayer),
		objects: make(map[int]*PlacedObject),
		strikes: make(map[int]StrikeMarker),
	}
}

// ensure returns the named player, creating one at (x,y) with the given
// character's full health on first mention.
func (s *Store) ensure(name string, x, y float64, charID string) (*RemotePlayer, bool) {
	if p, ok := s.players[name]; ok {
		return p, false
	}
	c := characters.Lookup(charID)
	p := &RemotePlayer{
		Name:        name,
		X:           x,
		Y:           y,
		TargetX:     x,
		TargetY:     y,
		HP:          c.Health,
		MaxHP:       c.Health,
		CharacterID: c.ID,
	}
	s.players[name] = p
	return p, true
}

// ApplyPlayer reconciles a PLAYER message. New players appear at the
// reported position; known ones only get a new target.
func (s *Store) ApplyPlayer(m protocol.Player) bool {
	p, created := s.ensure(m.Name, float64(m.X), float64(m.Y), m.CharacterID)
	p.TargetX, p.TargetY = float64(m.X), float64(m.Y)
	if team, err := engine.ParseTeam(m.Team); err == nil {
		p.Team = team
	}
	p.HP = m.HP
	p.Direction = m.Direction
	if c := characters.Lookup(m.CharacterID); c.ID != p.CharacterID || created {
		p.CharacterID = c.ID
		p.MaxHP = c.Health
	}
	return created
}

// ApplyStats updates a known player; stats for unknown names are ignored
// until a PLAYER arrives.
func (s *Store) ApplyStats(m protocol.Stats) bool {
	p, ok := s.players[m.Name]
	if !ok {
		return false
	}
	p.Kills, p.Deaths, p.HP = m.Kills, m.Deaths, m.HP
	if m.CharacterID != "" {
		c := characters.Lookup(m.CharacterID)
		p.CharacterID, p.MaxHP = c.ID, c.Health
	}
	return true
}

// SelectCharacter applies CHARACTER_SELECT for a remote player, creating
// a placeholder at the origin if needed. hp resets to the new maximum.
func (s *Store) SelectCharacter(name, charID string) *RemotePlayer {
	p, _ := s.ensure(name, 0, 0, charID)
	c := characters.Lookup(charID)
	p.CharacterID, p.MaxHP, p.HP = c.ID, c.Health, c.Health
	return p
}

// InitRound applies a ROUND_START player record to a known player.
func (s *Store) InitRound(rp protocol.RoundPlayer) bool {
	p, ok := s.players[rp.Name]
	if !ok {
		return false
	}
	p.CharacterID = characters.Lookup(rp.CharacterID).ID
	p.HP, p.MaxHP = rp.HP, rp.MaxHP
	return true
}

func (s *Store) RemovePlayer(name string) bool {
	if _, ok := s.players[name]; !ok {
		return false
	}
	delete(s.players, name)
	return true
}

func (s *Store) Player(name string) (*RemotePlayer, bool) {
	p, ok := s.players[name]
	return p, ok
}

// Players returns every remote player sorted by name.
func (s *Store) Players() []*RemotePlayer {
	out := make([]*RemotePlayer, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *RemotePlayer) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Interpolate steps every remote player once.
func (s *Store) Interpolate() {
	for _, p := range s.players {
		p.Step()
	}
}

func (s *Store) AddMissile(x, y, vx, vy float64, team engine.Team, owner string, maxRange float64) *Missile {
	s.nextID++
	m := &Missile{
		ID: s.nextID, X: x, Y: y, VX: vx, VY: vy,
		Team: team, Owner: owner, MaxRange: maxRange,
		SpawnX: x, SpawnY: y,
	}
	s.missiles = append(s.missiles, m)
	return m
}

func (s *Store) Missiles() []*Missile { return slices.Clone(s.missiles) }

// StepMissiles advances every missile and drops those that left the map,
// hit terrain or flew past their range.
func (s *Store) StepMissiles(t Terrain) {
	w, h := t.Bounds()
	s.missiles = slices.DeleteFunc(s.missiles, func(m *Missile) bool {
		m.X += m.VX
		m.Y += m.VY
		if m.X < 0 || m.Y < 0 || m.X > w || m.Y > h {
			return true
		}
		if t.Blocked(m.X, m.Y) {
			return true
		}
		return m.MaxRange > 0 && m.Traveled() > m.MaxRange
	})
}

// RemoveMissiles drops every missile for which drop returns true.
func (s *Store) RemoveMissiles(drop func(*Missile) bool) {
	s.missiles = slices.DeleteFunc(s.missiles, drop)
}

// PutObject creates or overwrites a placed object from OBJ.
func (s *Store) PutObject(o protocol.Object) *PlacedObject {
	team, _ := engine.ParseTeam(o.Team)
	obj := &PlacedObject{
		ID: o.ID, Type: o.Type,
		X: float64(o.X), Y: float64(o.Y),
		HP: o.HP, MaxHP: o.MaxHP,
		Owner: o.Owner, Team: team,
	}
	s.objects[o.ID] = obj
	return obj
}

func (s *Store) RemoveObject(id int) (*PlacedObject, bool) {
	o, ok := s.objects[id]
	if ok {
		delete(s.objects, id)
	}
	return o, ok
}

func (s *Store) Object(id int) (*PlacedObject, bool) {
	o, ok := s.objects[id]
	return o, ok
}

// Objects returns placed objects ordered by id.
func (s *Store) Objects() []*PlacedObject {
	out := make([]*PlacedObject, 0, len(s.objects))
	for _, o := range s.objects {
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b *PlacedObject) int { return a.ID - b.ID })
	return out
}

func (s *Store) AddStrike(st protocol.Strike, now time.Time) StrikeMarker {
	m := StrikeMarker{ID: st.ID, X: float64(st.X), Y: float64(st.Y), CreatedAt: now}
	s.strikes[st.ID] = m
	return m
}

func (s *Store) RemoveStrike(id int) bool {
	if _, ok := s.strikes[id]; !ok {
		return false
	}
	delete(s.strikes, id)
	return true
}

// ExpireStrikes drops markers whose warning window has passed.
func (s *Store) ExpireStrikes(now time.Time) {
	for id, m := range s.strikes {
		if m.Remaining(now) == 0 {
			delete(s.strikes, id)
		}
	}
}

func (s *Store) Strikes() []StrikeMarker {
	out := make([]StrikeMarker, 0, len(s.strikes))
	for _, m := range s.strikes {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b StrikeMarker) int { return a.ID - b.ID })
	return out
}

// ClearRound drops everything tied to a single round.
func (s *Store) ClearRound() {
	s.missiles = nil
	clear(s.objects)
	clear(s.strikes)
}

// Reset forgets the whole world, used when returning to the lobby.
func (s *Store) Reset() {
	s.ClearRound()
	clear(s.players)
}
