package match

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/squadfire/internal/combat"
	"github.com/DoyleJ11/squadfire/internal/engine"
	"github.com/DoyleJ11/squadfire/internal/lobby"
	"github.com/DoyleJ11/squadfire/internal/session"
	"github.com/DoyleJ11/squadfire/internal/session/sessiontest"
)

type chanRecorder chan Summary

func (c chanRecorder) RecordMatch(_ context.Context, s Summary) error {
	c <- s
	return nil
}

var fastTiming = engine.Timing{
	ReadyWindow:   40 * time.Millisecond,
	Banner:        40 * time.Millisecond,
	WinsToEndGame: 2,
}

type fixture struct {
	m     *Match
	reg   *session.Registry
	conns map[string]*sessiontest.Conn
	rec   chanRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, fastTiming)
}

func newFixtureWith(t *testing.T, timing engine.Timing) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	reg := session.NewRegistry(4, log)
	f := &fixture{reg: reg, conns: map[string]*sessiontest.Conn{}, rec: make(chanRecorder, 1)}
	for name, team := range map[string]engine.Team{"alice": engine.TeamRed, "bob": engine.TeamBlue} {
		f.conns[name] = sessiontest.NewConn()
		s, err := reg.Join(name, f.conns[name], "")
		require.NoError(t, err)
		s.SetTeam(team)
		s.SetReady(true)
	}
	f.m = New(reg, lobby.New(reg, log), timing, log, WithRecorder(f.rec))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = f.m.Run(ctx) }()
	return f
}

func (f *fixture) state(t *testing.T) View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := f.m.State(ctx)
	require.NoError(t, err)
	return v
}

func (f *fixture) waitFor(t *testing.T, cond func(View) bool) {
	t.Helper()
	require.Eventually(t, func() bool { return cond(f.state(t)) }, 2*time.Second, 5*time.Millisecond)
}

func (f *fixture) kill(t *testing.T, victim, killer string) {
	t.Helper()
	s, ok := f.reg.Get(victim)
	require.True(t, ok)
	s.Kill()
	f.m.PlayerDied(combat.DeathEvent{Victim: victim, Killer: killer, At: time.Now()})
}

func TestMatch_StartBroadcastsRoundAndWaits(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Start(context.Background(), "alice"))

	v := f.state(t)
	assert.True(t, v.Running)
	assert.Equal(t, engine.StateWaiting, v.State)
	assert.Equal(t, 1, v.Round)
	assert.Equal(t, "map", v.MapID)

	msgs := f.conns["alice"].Messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "GAME_START", msgs[0])
	rs, ok := f.conns["bob"].Last("ROUND_START:")
	require.True(t, ok)
	assert.Contains(t, rs, "ROUND_START:1,map;2;")
	assert.Contains(t, rs, "alice,raven,100,100")

	require.ErrorIs(t, f.m.Start(context.Background(), "bob"), ErrMatchRunning)

	f.waitFor(t, func(v View) bool { return v.State == engine.StatePlaying })
}

func TestMatch_EliminationRunsSeriesToGameEnd(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Start(context.Background(), "alice"))
	f.waitFor(t, func(v View) bool { return v.State == engine.StatePlaying })

	f.kill(t, "bob", "alice")
	f.waitFor(t, func(v View) bool { return v.State == engine.StateEnded })
	end, ok := f.conns["alice"].Last("ROUND_END:")
	require.True(t, ok)
	assert.Equal(t, "ROUND_END:RED,1,0", end)

	// banner elapses, round 2 starts with everyone back at full hp
	f.waitFor(t, func(v View) bool { return v.Round == 2 && v.State == engine.StateWaiting })
	bob, _ := f.reg.Get("bob")
	assert.Equal(t, 100, bob.HP())
	rs, _ := f.conns["alice"].Last("ROUND_START:")
	assert.Contains(t, rs, "ROUND_START:2,map2;")

	f.kill(t, "bob", "alice")
	f.waitFor(t, func(v View) bool { return !v.Running })

	gameEnd, ok := f.conns["bob"].Last("GAME_END:")
	require.True(t, ok)
	assert.Equal(t, "GAME_END:RED", gameEnd)

	select {
	case sum := <-f.rec:
		assert.Equal(t, engine.TeamRed, sum.Winner)
		assert.Equal(t, 2, sum.RedWins)
		assert.Equal(t, 2, sum.Rounds)
		assert.Len(t, sum.Players, 2)
		require.Len(t, sum.KillFeed, 2)
		assert.Equal(t, "alice", sum.KillFeed[1].Killer)
	case <-time.After(time.Second):
		t.Fatalf("match was not recorded")
	}

	// ready flags are cleared for the next game
	alice, _ := f.reg.Get("alice")
	assert.False(t, alice.Ready())
}

func TestMatch_DeathDuringReadyWindowSettlesOnceInPlay(t *testing.T) {
	timing := fastTiming
	timing.ReadyWindow = 200 * time.Millisecond
	f := newFixtureWith(t, timing)
	require.NoError(t, f.m.Start(context.Background(), "alice"))

	f.kill(t, "bob", "alice")
	v := f.state(t)
	assert.Equal(t, engine.StateWaiting, v.State)
	assert.Zero(t, v.RedWins)
	_, ended := f.conns["alice"].Last("ROUND_END:")
	assert.False(t, ended, "round ended before play started")

	f.waitFor(t, func(v View) bool { return v.State == engine.StateEnded })
	assert.Equal(t, 1, f.state(t).RedWins)

	msgs := f.conns["alice"].Messages()
	fight, end := -1, -1
	for i, m := range msgs {
		switch {
		case m == "CHAT:Round 1: FIGHT!":
			fight = i
		case strings.HasPrefix(m, "ROUND_END:"):
			end = i
		}
	}
	require.NotEqual(t, -1, fight)
	assert.Less(t, fight, end)
}

func TestMatch_CharacterChangeGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// lobby: unlimited
	require.NoError(t, f.m.ChangeCharacter(ctx, "alice"))
	require.NoError(t, f.m.ChangeCharacter(ctx, "alice"))

	require.NoError(t, f.m.Start(ctx, "alice"))
	require.NoError(t, f.m.ChangeCharacter(ctx, "alice"))
	require.ErrorIs(t, f.m.ChangeCharacter(ctx, "alice"), engine.ErrAlreadyChanged)
	require.NoError(t, f.m.ChangeCharacter(ctx, "bob"))

	f.waitFor(t, func(v View) bool { return v.State == engine.StatePlaying })
	require.ErrorIs(t, f.m.ChangeCharacter(ctx, "bob"), engine.ErrRoundNotWaiting)
}

func TestMatch_NoRoundEndWithSinglePlayer(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Start(context.Background(), "alice"))
	f.waitFor(t, func(v View) bool { return v.State == engine.StatePlaying })

	f.reg.Remove("bob")
	f.m.PlayerLeft("bob")
	f.kill(t, "alice", "")

	v := f.state(t)
	assert.Equal(t, engine.StatePlaying, v.State)
	assert.Zero(t, v.Kills)

	f.reg.Remove("alice")
	f.m.PlayerLeft("alice")
	f.waitFor(t, func(v View) bool { return !v.Running })
}
