package objects

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/squadfire/internal/combat"
	"github.com/DoyleJ11/squadfire/internal/engine"
	"github.com/DoyleJ11/squadfire/internal/protocol"
	"github.com/DoyleJ11/squadfire/internal/session"
)

const (
	TypeMine   = "tech_mine"
	TypeTurret = "tech_turret"

	AbilityAura   = "gen_aura"
	AbilityStrike = "gen_strike"
)

var (
	ErrUnknownObject  = errors.New("no such object")
	ErrFriendlyObject = errors.New("object belongs to the attacker's team")
)

type Config struct {
	MineHP       int
	TurretHP     int
	ObjectDamage int
	MineTrigger  float64
	MineDamage   int
	MineLifetime time.Duration

	TurretRange    float64
	TurretInterval time.Duration
	TurretLifetime time.Duration

	AuraRadius float64
	AuraMove   float64
	AuraAttack float64

	StrikeDelay  time.Duration
	StrikeRadius float64
	StrikeDamage int
}

func DefaultConfig() Config {
	return Config{
		MineHP:         40,
		TurretHP:       100,
		ObjectDamage:   combat.DefaultDamage,
		MineTrigger:    24,
		MineDamage:     60,
		MineLifetime:   30 * time.Second,
		TurretRange:    180,
		TurretInterval: 900 * time.Millisecond,
		TurretLifetime: 20 * time.Second,
		AuraRadius:     150,
		AuraMove:       1.10,
		AuraAttack:     1.15,
		StrikeDelay:    3 * time.Second,
		StrikeRadius:   120,
		StrikeDamage:   50,
	}
}

type Object struct {
	ID        int
	Type      string
	X, Y      float64
	HP        int
	MaxHP     int
	Owner     string
	Team      engine.Team
	ExpiresAt time.Time
	lastShot  time.Time
}

func (o *Object) wire() protocol.Object {
	return protocol.Object{
		ID: o.ID, Type: o.Type, X: int(o.X), Y: int(o.Y),
		HP: o.HP, MaxHP: o.MaxHP, Owner: o.Owner, Team: int(o.Team),
	}
}

type aura struct {
	user  string
	team  engine.Team
	until time.Time
}

type hit struct {
	attacker string
	victim   *session.Session
	dmg      int
}

// Field holds server-side placed objects, pending air strikes and active
// auras. Damage goes through the combat authority so spawn protection and
// kill credit behave exactly like missile hits.
type Field struct {
	mu      sync.Mutex
	reg     *session.Registry
	auth    *combat.Authority
	cfg     Config
	log     *zap.Logger
	now     func() time.Time
	nextID  int
	objects map[int]*Object
	auras   map[string]aura
	buffed  map[string]bool
	strikes map[int]*time.Timer
}

type Option func(*Field)

func WithClock(now func() time.Time) Option {
	return func(f *Field) { f.now = now }
}

func NewField(reg *session.Registry, auth *combat.Authority, cfg Config, log *zap.Logger, opts ...Option) *Field {
	f := &Field{
		reg:     reg,
		auth:    auth,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
		objects: make(map[int]*Object),
		auras:   make(map[string]aura),
		buffed:  make(map[string]bool),
		strikes: make(map[int]*time.Timer),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Run drives turrets, aura membership and object expiry.
func (f *Field) Run(ctx context.Context) error {
	t := time.NewTicker(f.cfg.TurretInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			f.Reset()
			return nil
		case <-t.C:
			f.Tick()
		}
	}
}

// UseSkill relays a SKILL to everyone but the user and applies the
// server-side part of abilities that have one.
func (f *Field) UseSkill(sk protocol.Skill) {
	if err := f.reg.Broadcast(sk.Encode(), sk.User); err != nil {
		f.log.Debug("skill relay incomplete", zap.Error(err))
	}
	user, ok := f.reg.Get(sk.User)
	if !ok || !user.Alive() {
		return
	}

	switch sk.AbilityID {
	case TypeMine, TypeTurret:
		if !sk.HasPos {
			f.log.Warn("placement without position", zap.String("player", sk.User), zap.String("ability", sk.AbilityID))
			return
		}
		f.Place(user, sk.AbilityID, float64(sk.X), float64(sk.Y))
	case AbilityAura:
		f.StartAura(user, seconds(sk.Duration))
	case AbilityStrike:
		if !sk.HasPos {
			x, y, _ := user.Position()
			sk.X, sk.Y = int(x), int(y)
		}
		f.ScheduleStrike(user, float64(sk.X), float64(sk.Y))
	}
}

// Place creates a mine or turret for owner and announces it.
func (f *Field) Place(owner *session.Session, typ string, x, y float64) *Object {
	hp, life := f.cfg.TurretHP, f.cfg.TurretLifetime
	if typ == TypeMine {
		hp, life = f.cfg.MineHP, f.cfg.MineLifetime
	}
	f.mu.Lock()
	f.nextID++
	o := &Object{
		ID: f.nextID, Type: typ, X: x, Y: y, HP: hp, MaxHP: hp,
		Owner: owner.Name, Team: owner.Team(), ExpiresAt: f.now().Add(life),
	}
	f.objects[o.ID] = o
	msg := o.wire().Encode()
	f.mu.Unlock()

	f.log.Info("object placed", zap.String("type", typ), zap.Int("id", o.ID), zap.String("owner", owner.Name))
	f.broadcast(msg)
	return o
}

// HitObject applies one missile's worth of damage to an enemy object.
func (f *Field) HitObject(attacker string, id int) error {
	s, ok := f.reg.Get(attacker)
	if !ok {
		return fmt.Errorf("%s: %w", attacker, session.ErrUnknownSession)
	}
	f.mu.Lock()
	o, ok := f.objects[id]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("%d: %w", id, ErrUnknownObject)
	}
	if o.Team == s.Team() {
		f.mu.Unlock()
		return ErrFriendlyObject
	}
	o.HP = max(o.HP-f.cfg.ObjectDamage, 0)
	var msg string
	if o.HP == 0 {
		delete(f.objects, id)
		msg = protocol.Encode(protocol.CmdObjDestroy, protocol.Itoa(id))
	} else {
		msg = o.wire().Encode()
	}
	f.mu.Unlock()

	f.broadcast(msg)
	return nil
}

// PlayerMoved triggers enemy mines under the player and refreshes auras.
func (f *Field) PlayerMoved(name string) {
	s, ok := f.reg.Get(name)
	if !ok || !s.Alive() {
		return
	}
	x, y, _ := s.Position()

	var hits []hit
	var msgs []string
	f.mu.Lock()
	for id, o := range f.objects {
		if o.Type != TypeMine || o.Team == s.Team() {
			continue
		}
		if dist(o.X, o.Y, x, y) >= f.cfg.MineTrigger {
			continue
		}
		delete(f.objects, id)
		msgs = append(msgs, protocol.Encode(protocol.CmdObjDestroy, protocol.Itoa(id)))
		hits = append(hits, hit{attacker: o.Owner, victim: s, dmg: f.cfg.MineDamage})
	}
	buffMsgs := f.refreshAurasLocked(f.now())
	f.mu.Unlock()

	f.flush(msgs, hits)
	f.sendAll(buffMsgs)
}

// StartAura buffs teammates near user for d.
func (f *Field) StartAura(user *session.Session, d time.Duration) {
	f.mu.Lock()
	f.auras[user.Name] = aura{user: user.Name, team: user.Team(), until: f.now().Add(d)}
	buffMsgs := f.refreshAurasLocked(f.now())
	f.mu.Unlock()
	f.sendAll(buffMsgs)
}

// ScheduleStrike marks (x, y) and resolves the strike after StrikeDelay.
func (f *Field) ScheduleStrike(user *session.Session, x, y float64) int {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	owner, team := user.Name, user.Team()
	f.strikes[id] = time.AfterFunc(f.cfg.StrikeDelay, func() { f.resolveStrike(id, owner, team, x, y) })
	f.mu.Unlock()

	f.broadcast(protocol.Strike{ID: id, X: int(x), Y: int(y)}.Encode())
	return id
}

func (f *Field) resolveStrike(id int, owner string, team engine.Team, x, y float64) {
	f.mu.Lock()
	if _, ok := f.strikes[id]; !ok {
		// cancelled by a reset
		f.mu.Unlock()
		return
	}
	delete(f.strikes, id)

	msgs := []string{protocol.Encode(protocol.CmdStrikeImpact, protocol.Itoa(id))}
	for oid, o := range f.objects {
		if o.Team != team && dist(o.X, o.Y, x, y) <= f.cfg.StrikeRadius {
			delete(f.objects, oid)
			msgs = append(msgs, protocol.Encode(protocol.CmdObjDestroy, protocol.Itoa(oid)))
		}
	}
	f.mu.Unlock()

	var hits []hit
	for _, s := range f.reg.Sessions() {
		if s.Team() == team || !s.Alive() {
			continue
		}
		px, py, _ := s.Position()
		if dist(px, py, x, y) <= f.cfg.StrikeRadius {
			hits = append(hits, hit{attacker: owner, victim: s, dmg: f.cfg.StrikeDamage})
		}
	}
	f.log.Info("strike impact", zap.Int("id", id), zap.String("owner", owner), zap.Int("victims", len(hits)))
	f.flush(msgs, hits)
}

// Tick fires turrets, expires objects and refreshes aura membership.
func (f *Field) Tick() {
	now := f.now()
	sessions := f.reg.Sessions()

	var msgs []string
	f.mu.Lock()
	ids := make([]int, 0, len(f.objects))
	for id := range f.objects {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		o := f.objects[id]
		if !now.Before(o.ExpiresAt) {
			delete(f.objects, id)
			msgs = append(msgs, protocol.Encode(protocol.CmdObjDestroy, protocol.Itoa(id)))
			continue
		}
		if o.Type != TypeTurret || now.Sub(o.lastShot) < f.cfg.TurretInterval {
			continue
		}
		if target := nearestEnemy(o, sessions, f.cfg.TurretRange); target != nil {
			o.lastShot = now
			tx, ty, _ := target.Position()
			msgs = append(msgs, protocol.TurretShoot{ID: o.ID, X: int(tx), Y: int(ty), Target: target.Name}.Encode())
		}
	}
	buffMsgs := f.refreshAurasLocked(now)
	f.mu.Unlock()

	f.flush(msgs, nil)
	f.sendAll(buffMsgs)
}

// Reset clears every object, strike and aura. Called at round start.
func (f *Field) Reset() {
	f.mu.Lock()
	for id, t := range f.strikes {
		t.Stop()
		delete(f.strikes, id)
	}
	clear(f.objects)
	clear(f.auras)
	var msgs []addressed
	for name := range f.buffed {
		msgs = append(msgs, addressed{to: name, msg: protocol.Encode(protocol.CmdUnbuff, AbilityAura)})
	}
	clear(f.buffed)
	f.mu.Unlock()
	f.sendAll(msgs)
}

// Objects returns copies of the live objects ordered by id.
func (f *Field) Objects() []Object {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Object, 0, len(f.objects))
	for _, o := range f.objects {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type addressed struct {
	to  string
	msg string
}

// refreshAurasLocked recomputes who should be buffed and returns the
// BUFF/UNBUFF messages needed to get there. f.mu must be held.
func (f *Field) refreshAurasLocked(now time.Time) []addressed {
	want := map[string]bool{}
	for name, a := range f.auras {
		if !now.Before(a.until) {
			delete(f.auras, name)
			continue
		}
		src, ok := f.reg.Get(a.user)
		if !ok || !src.Alive() {
			continue
		}
		ax, ay, _ := src.Position()
		for _, s := range f.reg.Sessions() {
			if s.Team() != a.team || !s.Alive() {
				continue
			}
			px, py, _ := s.Position()
			if dist(ax, ay, px, py) <= f.cfg.AuraRadius {
				want[s.Name] = true
			}
		}
	}

	var out []addressed
	buff := protocol.Buff{Type: AbilityAura, Move: f.cfg.AuraMove, Attack: f.cfg.AuraAttack}.Encode()
	for name := range want {
		if !f.buffed[name] {
			f.buffed[name] = true
			out = append(out, addressed{to: name, msg: buff})
		}
	}
	for name := range f.buffed {
		if !want[name] {
			delete(f.buffed, name)
			out = append(out, addressed{to: name, msg: protocol.Encode(protocol.CmdUnbuff, AbilityAura)})
		}
	}
	return out
}

func (f *Field) flush(msgs []string, hits []hit) {
	for _, m := range msgs {
		f.broadcast(m)
	}
	for _, h := range hits {
		if _, err := f.auth.Inflict(h.attacker, h.victim, h.dmg); err != nil {
			f.log.Debug("area damage ignored", zap.String("victim", h.victim.Name), zap.Error(err))
		}
	}
}

func (f *Field) sendAll(msgs []addressed) {
	for _, m := range msgs {
		if err := f.reg.SendTo(m.to, m.msg); err != nil {
			f.log.Debug("buff not delivered", zap.String("player", m.to), zap.Error(err))
		}
	}
}

func (f *Field) broadcast(msg string) {
	if err := f.reg.Broadcast(msg); err != nil {
		f.log.Debug("broadcast incomplete", zap.Error(err))
	}
}

func nearestEnemy(o *Object, sessions []*session.Session, maxRange float64) *session.Session {
	var best *session.Session
	bestDist := maxRange
	for _, s := range sessions {
		if s.Team() == o.Team || !s.Alive() {
			continue
		}
		x, y, _ := s.Position()
		if d := dist(o.X, o.Y, x, y); d <= bestDist {
			best, bestDist = s, d
		}
	}
	return best
}

func dist(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
