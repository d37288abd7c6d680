package combat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/DoyleJ11/squadfire/internal/session"
	"github.com/DoyleJ11/squadfire/internal/session/sessiontest"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type deaths struct {
	mu     sync.Mutex
	events []DeathEvent
}

func (d *deaths) PlayerDied(ev DeathEvent) {
	d.mu.Lock()
	d.events = append(d.events, ev)
	d.mu.Unlock()
}

type fixture struct {
	reg   *session.Registry
	auth  *Authority
	clock *clock
	dead  *deaths
	conns map[string]*sessiontest.Conn
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	f := &fixture{
		reg:   session.NewRegistry(4, log),
		clock: &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		dead:  &deaths{},
		conns: map[string]*sessiontest.Conn{},
	}
	f.auth = NewAuthority(f.reg, DefaultConfig(), log, WithClock(f.clock.Now), WithObserver(f.dead))
	for _, n := range names {
		f.conns[n] = sessiontest.NewConn()
		_, err := f.reg.Join(n, f.conns[n], "raven")
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) session(t *testing.T, name string) *session.Session {
	t.Helper()
	s, ok := f.reg.Get(name)
	require.True(t, ok)
	return s
}

func TestHit_FixedDamageUntilKill(t *testing.T) {
	f := newFixture(t, "A", "B")

	for _, want := range []int{80, 60, 40, 20} {
		res, err := f.auth.Hit("B", "A")
		require.NoError(t, err)
		assert.Equal(t, want, res.HP)
		assert.False(t, res.Killed)
	}

	res, err := f.auth.Hit("B", "A")
	require.NoError(t, err)
	assert.True(t, res.Killed)

	a, b := f.session(t, "A"), f.session(t, "B")
	assert.Equal(t, 0, a.HP())
	assert.Equal(t, 1, a.Deaths())
	assert.Equal(t, 1, b.Kills())

	assert.Equal(t, []string{
		"STATS:A,0,0,80,raven",
		"STATS:A,0,0,60,raven",
		"STATS:A,0,0,40,raven",
		"STATS:A,0,0,20,raven",
		"STATS:B,1,0,100,raven",
		"STATS:A,0,1,0,raven",
	}, f.conns["A"].WithPrefix("STATS:"))

	kills := f.conns["B"].WithPrefix("KILL:")
	assert.Equal(t, []string{"KILL:A"}, kills)
	assert.Empty(t, f.conns["A"].WithPrefix("KILL:"))
	assert.Len(t, f.conns["B"].WithPrefix("HIT:"), 5)

	require.Len(t, f.dead.events, 1)
	assert.Equal(t, DeathEvent{Victim: "A", Killer: "B", At: f.clock.Now()}, f.dead.events[0])
}

func TestHit_UndeliveredConfirmationIsLogged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	reg := session.NewRegistry(4, zap.NewNop())
	shooter := sessiontest.NewConn()
	_, err := reg.Join("B", shooter, "raven")
	require.NoError(t, err)
	_, err = reg.Join("A", sessiontest.NewConn(), "raven")
	require.NoError(t, err)
	auth := NewAuthority(reg, DefaultConfig(), zap.New(core))

	require.NoError(t, shooter.Close())
	res, err := auth.Hit("B", "A")
	require.NoError(t, err)
	assert.Equal(t, 80, res.HP)

	entries := logs.FilterMessage("hit confirmation not delivered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "B", entries[0].ContextMap()["shooter"])
}

func TestHit_AfterDeathIsNoop(t *testing.T) {
	f := newFixture(t, "A", "B")
	a := f.session(t, "A")
	a.Damage(100)
	a.AddDeath()

	_, err := f.auth.Hit("B", "A")
	require.ErrorIs(t, err, ErrVictimDead)
	_, err = f.auth.HitMe("A", "B")
	require.ErrorIs(t, err, ErrVictimDead)

	assert.Equal(t, 1, a.Deaths())
	assert.Equal(t, 0, f.session(t, "B").Kills())
	assert.Empty(t, f.conns["A"].Messages())
}

func TestHit_DeadAttackerIgnored(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.session(t, "B").Kill()

	_, err := f.auth.Hit("B", "A")
	require.ErrorIs(t, err, ErrAttackerDead)
	assert.Equal(t, 100, f.session(t, "A").HP())

	// victim-side path does not check the shooter's hp
	res, err := f.auth.HitMe("A", "B")
	require.NoError(t, err)
	assert.Equal(t, 80, res.HP)
}

func TestSpawnProtection(t *testing.T) {
	f := newFixture(t, "A", "B")
	a := f.session(t, "A")
	a.Kill()
	require.NoError(t, f.auth.Respawn("A", 100, 200))
	assert.Equal(t, 100, a.HP())

	f.clock.Advance(2999 * time.Millisecond)
	_, err := f.auth.Hit("B", "A")
	require.ErrorIs(t, err, ErrSpawnProtected)
	_, err = f.auth.HitMe("A", "B")
	require.ErrorIs(t, err, ErrSpawnProtected)
	assert.Equal(t, 100, a.HP())

	f.clock.Advance(time.Millisecond)
	res, err := f.auth.Hit("B", "A")
	require.NoError(t, err)
	assert.Equal(t, 80, res.HP)
}

func TestRespawn_BroadcastsStatsAndPosition(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.session(t, "A").Kill()

	require.NoError(t, f.auth.Respawn("A", 100, 200))
	last, ok := f.conns["B"].Last("PLAYER:")
	require.True(t, ok)
	assert.Equal(t, "PLAYER:A,100,200,0,100,raven,0", last)
	assert.Empty(t, f.conns["A"].WithPrefix("PLAYER:"))

	stats, _ := f.conns["A"].Last("STATS:")
	assert.Equal(t, "STATS:A,0,0,100,raven", stats)

	require.ErrorIs(t, f.auth.Respawn("A", 0, 0), ErrStillAlive)
	require.ErrorIs(t, f.auth.Respawn("nobody", 0, 0), session.ErrUnknownSession)
}

func TestHitMe_UnknownShooterStillCountsDeath(t *testing.T) {
	f := newFixture(t, "A", "B")
	a := f.session(t, "A")
	a.Damage(80)

	res, err := f.auth.HitMe("A", "gone")
	require.NoError(t, err)
	assert.True(t, res.Killed)
	assert.Equal(t, 1, a.Deaths())
	assert.Equal(t, 0, f.session(t, "B").Kills())
	require.Len(t, f.dead.events, 1)
	assert.Empty(t, f.dead.events[0].Killer)
}

func TestDeath_SelfReport(t *testing.T) {
	f := newFixture(t, "A", "B")
	require.NoError(t, f.auth.Death("A"))
	require.ErrorIs(t, f.auth.Death("A"), ErrVictimDead)

	a := f.session(t, "A")
	assert.Equal(t, 0, a.HP())
	assert.Equal(t, 1, a.Deaths())
	assert.Len(t, f.dead.events, 1)
}

func TestSelfHitRejected(t *testing.T) {
	f := newFixture(t, "A")
	_, err := f.auth.Hit("A", "A")
	require.ErrorIs(t, err, ErrSelfHit)
	_, err = f.auth.HitMe("A", "A")
	require.ErrorIs(t, err, ErrSelfHit)
}

func TestConcurrentReports_ExactlyOneKill(t *testing.T) {
	f := newFixture(t, "A", "B", "C", "D")

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shooter := []string{"B", "C", "D"}[i%3]
			if i%2 == 0 {
				_, _ = f.auth.Hit(shooter, "A")
			} else {
				_, _ = f.auth.HitMe("A", shooter)
			}
		}()
	}
	wg.Wait()

	a := f.session(t, "A")
	assert.Equal(t, 0, a.HP())
	assert.Equal(t, 1, a.Deaths())
	total := f.session(t, "B").Kills() + f.session(t, "C").Kills() + f.session(t, "D").Kills()
	assert.Equal(t, 1, total)
	assert.Len(t, f.dead.events, 1)
}
