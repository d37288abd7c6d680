package combat

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/squadfire/internal/protocol"
	"github.com/DoyleJ11/squadfire/internal/session"
)

var (
	ErrSpawnProtected = errors.New("victim is spawn protected")
	ErrVictimDead     = errors.New("victim is already dead")
	ErrAttackerDead   = errors.New("attacker is dead")
	ErrSelfHit        = errors.New("cannot hit yourself")
	ErrStillAlive     = errors.New("cannot respawn while alive")
)

const (
	DefaultDamage          = 20
	DefaultSpawnProtection = 3 * time.Second
)

type Config struct {
	Damage          int
	SpawnProtection time.Duration
}

func DefaultConfig() Config {
	return Config{Damage: DefaultDamage, SpawnProtection: DefaultSpawnProtection}
}

// DeathEvent is emitted once per life. Killer is empty for self-reported or
// unattributed deaths.
type DeathEvent struct {
	Victim string
	Killer string
	At     time.Time
}

type DeathObserver interface {
	PlayerDied(DeathEvent)
}

type Result struct {
	HP     int
	Killed bool
}

// Authority turns hit reports into hp, kill and death bookkeeping.
type Authority struct {
	reg      *session.Registry
	cfg      Config
	log      *zap.Logger
	now      func() time.Time
	observer DeathObserver
}

type Option func(*Authority)

func WithClock(now func() time.Time) Option {
	return func(a *Authority) { a.now = now }
}

func WithObserver(o DeathObserver) Option {
	return func(a *Authority) { a.observer = o }
}

func NewAuthority(reg *session.Registry, cfg Config, log *zap.Logger, opts ...Option) *Authority {
	if cfg.Damage <= 0 {
		cfg.Damage = DefaultDamage
	}
	a := &Authority{reg: reg, cfg: cfg, log: log, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Authority) Config() Config { return a.cfg }

// Hit is the shooter-initiated report: shooter claims a missile hit victim.
func (a *Authority) Hit(shooter, victim string) (Result, error) {
	att, ok := a.reg.Get(shooter)
	if !ok {
		return Result{}, fmt.Errorf("attacker %s: %w", shooter, session.ErrUnknownSession)
	}
	vic, ok := a.reg.Get(victim)
	if !ok {
		return Result{}, fmt.Errorf("victim %s: %w", victim, session.ErrUnknownSession)
	}
	if att == vic {
		return Result{}, ErrSelfHit
	}
	if !att.Alive() {
		return Result{}, ErrAttackerDead
	}
	res, err := a.Inflict(shooter, vic, a.cfg.Damage)
	if err == nil {
		x, y, _ := vic.Position()
		if err := att.Send(protocol.EncodeFields(protocol.CmdHit,
			protocol.Itoa(int(x)), protocol.Itoa(int(y)), protocol.Itoa(a.cfg.Damage))); err != nil {
			a.log.Debug("hit confirmation not delivered", zap.String("shooter", shooter), zap.Error(err))
		}
	}
	return res, err
}

// HitMe is the victim-initiated report. The shooter may already have left,
// in which case the death is recorded without kill credit.
func (a *Authority) HitMe(victim, shooter string) (Result, error) {
	vic, ok := a.reg.Get(victim)
	if !ok {
		return Result{}, fmt.Errorf("victim %s: %w", victim, session.ErrUnknownSession)
	}
	if shooter == victim {
		return Result{}, ErrSelfHit
	}
	return a.Inflict(shooter, vic, a.cfg.Damage)
}

// Inflict applies dmg to victim on behalf of attacker. It is shared by
// missile hits, mines and air strikes.
func (a *Authority) Inflict(attacker string, victim *session.Session, dmg int) (Result, error) {
	if victim.Protected(a.now()) {
		return Result{}, ErrSpawnProtected
	}
	hp, killed, applied := victim.Damage(dmg)
	if !applied {
		return Result{}, ErrVictimDead
	}
	if !killed {
		a.broadcast(victim.Stats().Encode())
		return Result{HP: hp}, nil
	}
	a.recordKill(attacker, victim)
	return Result{HP: 0, Killed: true}, nil
}

func (a *Authority) recordKill(attacker string, victim *session.Session) {
	victim.AddDeath()
	killer, ok := a.reg.Get(attacker)
	if !ok || attacker == "" {
		a.broadcast(victim.Stats().Encode())
		a.broadcast(protocol.Encode(protocol.CmdChat, victim.Name+" died"))
		a.notify(DeathEvent{Victim: victim.Name, At: a.now()})
		return
	}

	killer.AddKill()
	a.log.Info("player killed",
		zap.String("killer", killer.Name),
		zap.String("victim", victim.Name),
		zap.Int("kills", killer.Kills()))

	err := multierr.Combine(
		killer.Send(protocol.Encode(protocol.CmdKill, victim.Name)),
		a.reg.Broadcast(killer.Stats().Encode()),
		a.reg.Broadcast(victim.Stats().Encode()),
		a.reg.Broadcast(protocol.Encode(protocol.CmdChat, killer.Name+" killed "+victim.Name)),
	)
	if err != nil {
		a.log.Debug("kill broadcast incomplete", zap.Error(err))
	}
	a.notify(DeathEvent{Victim: victim.Name, Killer: killer.Name, At: a.now()})
}

// Death handles a self-reported death. No kill is credited.
func (a *Authority) Death(name string) error {
	s, ok := a.reg.Get(name)
	if !ok {
		return fmt.Errorf("%s: %w", name, session.ErrUnknownSession)
	}
	if !s.Kill() {
		return ErrVictimDead
	}
	s.AddDeath()
	a.broadcast(s.Stats().Encode())
	a.broadcast(protocol.Encode(protocol.CmdChat, name+" died"))
	a.notify(DeathEvent{Victim: name, At: a.now()})
	return nil
}

// Respawn restores a dead player at (x, y) with fresh spawn protection.
func (a *Authority) Respawn(name string, x, y float64) error {
	s, ok := a.reg.Get(name)
	if !ok {
		return fmt.Errorf("%s: %w", name, session.ErrUnknownSession)
	}
	// RESPAWN is accepted only from dead sessions.
	if s.Alive() {
		return ErrStillAlive
	}
	_, _, dir := s.Position()
	s.SetPosition(x, y, dir)
	s.Respawn(a.now(), a.cfg.SpawnProtection)

	a.broadcast(s.Stats().Encode())
	if err := a.reg.Broadcast(s.Player().Encode(), name); err != nil {
		a.log.Debug("respawn position not delivered everywhere", zap.Error(err))
	}
	return nil
}

func (a *Authority) broadcast(msg string) {
	if err := a.reg.Broadcast(msg); err != nil {
		a.log.Debug("broadcast incomplete", zap.String("msg", msg), zap.Error(err))
	}
}

func (a *Authority) notify(ev DeathEvent) {
	if a.observer != nil {
		a.observer.PlayerDied(ev)
	}
}
