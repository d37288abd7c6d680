package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/squadfire/internal/combat"
	"github.com/DoyleJ11/squadfire/internal/engine"
	"github.com/DoyleJ11/squadfire/internal/lobby"
	"github.com/DoyleJ11/squadfire/internal/protocol"
	"github.com/DoyleJ11/squadfire/internal/session"
)

var (
	ErrMatchRunning = errors.New("a match is already running")
	ErrStopped      = errors.New("match loop stopped")
)

const recordTimeout = 5 * time.Second

// Match drives rounds: ready countdown, elimination, series scoring and
// game end. All state lives in the loop goroutine.
type Match struct {
	inbox chan Msg
	done  chan struct{}

	reg   *session.Registry
	lobby *lobby.Lobby
	log   *zap.Logger
	now   func() time.Time

	round     *engine.Round
	running   bool
	startedAt time.Time
	feed      []KillRecord
	timers    []*time.Timer

	recorder     Recorder
	onRoundStart []func()
}

type Option func(*Match)

func WithRecorder(r Recorder) Option {
	return func(m *Match) {
		if r != nil {
			m.recorder = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Match) { m.now = now }
}

func New(reg *session.Registry, lb *lobby.Lobby, timing engine.Timing, log *zap.Logger, opts ...Option) *Match {
	m := &Match{
		inbox:    make(chan Msg, 64),
		done:     make(chan struct{}),
		reg:      reg,
		lobby:    lb,
		log:      log,
		now:      time.Now,
		round:    engine.NewRound(timing),
		recorder: nopRecorder{},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// OnRoundStart registers fn to run inside the loop whenever a round
// starts. Register hooks before Run.
func (m *Match) OnRoundStart(fn func()) {
	m.onRoundStart = append(m.onRoundStart, fn)
}

// Inbox is exposed so the connection layer can post messages directly.
func (m *Match) Inbox() chan<- Msg { return m.inbox }

// Run processes messages until ctx is cancelled.
func (m *Match) Run(ctx context.Context) error {
	defer close(m.done)
	defer m.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-m.inbox:
			m.handle(msg)
		}
	}
}

func (m *Match) handle(msg Msg) {
	switch msg := msg.(type) {
	case StartGame:
		msg.Reply <- m.startGame(msg.Requester)

	case ChangeCharacter:
		if !m.running {
			msg.Reply <- nil
			break
		}
		msg.Reply <- m.round.ChangeCharacter(msg.Name, m.now())

	case PlayerDied:
		if m.running && msg.Event.Killer != "" {
			m.feed = append(m.feed, KillRecord{
				Round:  m.round.Count,
				Killer: msg.Event.Killer,
				Victim: msg.Event.Victim,
				At:     msg.Event.At,
			})
		}
		m.checkRoundEnd()

	case PlayerLeft:
		if m.running && m.reg.Len() == 0 {
			m.log.Info("everyone left, abandoning match", zap.Int("round", m.round.Count))
			m.reset()
			break
		}
		m.checkRoundEnd()

	case readyElapsed:
		m.onReadyElapsed(msg.round)

	case bannerElapsed:
		m.onBannerElapsed(msg)

	case GetState:
		msg.Reply <- m.view()
	}
}

func (m *Match) startGame(requester string) error {
	if m.running {
		return ErrMatchRunning
	}
	m.running = true
	m.round.Reset()
	m.feed = nil
	m.startedAt = m.now()
	m.log.Info("game starting", zap.String("requested_by", requester), zap.Int("players", m.reg.Len()))
	m.broadcast(protocol.Encode(protocol.CmdGameStart, ""))
	m.startRound(1)
	return nil
}

func (m *Match) startRound(n int) {
	now := m.now()
	m.round.Start(n, engine.MapForRound(n), now)

	sessions := m.reg.Sessions()
	rs := protocol.RoundStart{Round: n, MapID: m.round.MapID}
	for _, s := range sessions {
		s.ResetForRound()
		rs.Players = append(rs.Players, protocol.RoundPlayer{
			Name:        s.Name,
			CharacterID: s.CharacterID(),
			HP:          s.HP(),
			MaxHP:       s.MaxHP(),
		})
	}
	for _, fn := range m.onRoundStart {
		fn()
	}

	m.log.Info("round start", zap.Int("round", n), zap.String("map", m.round.MapID))
	m.broadcast(rs.Encode())
	m.lobby.Broadcast()

	ready := m.round.Timing().ReadyWindow
	m.broadcast(protocol.Encode(protocol.CmdChat, fmt.Sprintf("Round %d starts in %d seconds", n, int(ready.Seconds()))))
	m.after(ready, readyElapsed{round: n})
}

func (m *Match) onReadyElapsed(n int) {
	if !m.running || m.round.Count != n {
		return
	}
	now := m.now()
	if !m.round.Advance(now) {
		// the timer fired a touch early relative to our clock
		if left := m.round.ReadyRemaining(now); left > 0 {
			m.after(left, readyElapsed{round: n})
		}
		return
	}
	m.broadcast(protocol.Encode(protocol.CmdChat, fmt.Sprintf("Round %d: FIGHT!", n)))
	m.checkRoundEnd()
}

// checkRoundEnd settles eliminations. Deaths during the ready window are
// picked up by onReadyElapsed once the round is in play.
func (m *Match) checkRoundEnd() {
	if !m.running || m.round.State != engine.StatePlaying {
		return
	}
	winner, ok := engine.EliminationWinner(m.lobby.Members())
	if !ok {
		return
	}
	out, err := m.round.End(winner, m.now())
	if err != nil {
		return
	}
	m.log.Info("round end",
		zap.Int("round", m.round.Count),
		zap.Stringer("winner", winner),
		zap.Int("red_wins", out.RedWins),
		zap.Int("blue_wins", out.BlueWins))

	m.broadcast(protocol.Encode(protocol.CmdChat, "=== "+winner.String()+" team wins the round ==="))
	m.broadcast(protocol.RoundEnd{Winner: winner.String(), RedWins: out.RedWins, BlueWins: out.BlueWins}.Encode())
	m.after(m.round.Timing().Banner, bannerElapsed{round: m.round.Count, outcome: out})
}

func (m *Match) onBannerElapsed(msg bannerElapsed) {
	if !m.running || m.round.Count != msg.round {
		return
	}
	if !msg.outcome.GameOver {
		m.startRound(msg.round + 1)
		return
	}
	m.finish(msg.outcome.Winner)
}

func (m *Match) finish(winner engine.Team) {
	m.broadcast(protocol.Encode(protocol.CmdGameEnd, winner.String()))
	sum := m.summary(winner)
	m.log.Info("game end", zap.Stringer("winner", winner), zap.Int("rounds", sum.Rounds))

	rec := m.recorder
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := rec.RecordMatch(ctx, sum); err != nil {
			m.log.Error("record match", zap.Error(err))
		}
	}()

	m.reset()
	for _, s := range m.reg.Sessions() {
		s.SetReady(false)
	}
	m.lobby.Broadcast()
}

func (m *Match) summary(winner engine.Team) Summary {
	sum := Summary{
		Winner:    winner,
		Rounds:    m.round.Count,
		RedWins:   m.round.RedWins,
		BlueWins:  m.round.BlueWins,
		StartedAt: m.startedAt,
		EndedAt:   m.now(),
		KillFeed:  append([]KillRecord(nil), m.feed...),
	}
	for _, s := range m.reg.Sessions() {
		sum.Players = append(sum.Players, PlayerResult{
			Name:        s.Name,
			Team:        s.Team(),
			CharacterID: s.CharacterID(),
			Kills:       s.Kills(),
			Deaths:      s.Deaths(),
		})
	}
	return sum
}

func (m *Match) reset() {
	m.stopTimers()
	m.running = false
	m.round.Reset()
	m.feed = nil
}

func (m *Match) view() View {
	return View{
		Running:        m.running,
		State:          m.round.State,
		Round:          m.round.Count,
		MapID:          m.round.MapID,
		RedWins:        m.round.RedWins,
		BlueWins:       m.round.BlueWins,
		ReadyRemaining: m.round.ReadyRemaining(m.now()),
		Kills:          len(m.feed),
	}
}

func (m *Match) after(d time.Duration, msg Msg) {
	m.timers = append(m.timers, time.AfterFunc(d, func() { m.post(msg) }))
}

func (m *Match) stopTimers() {
	for _, t := range m.timers {
		t.Stop()
	}
	m.timers = nil
}

func (m *Match) post(msg Msg) bool {
	select {
	case m.inbox <- msg:
		return true
	case <-m.done:
		return false
	}
}

func (m *Match) broadcast(msg string) {
	if err := m.reg.Broadcast(msg); err != nil {
		m.log.Debug("broadcast incomplete", zap.Error(err))
	}
}

// PlayerDied lets the combat authority report deaths.
func (m *Match) PlayerDied(ev combat.DeathEvent) {
	m.post(PlayerDied{Event: ev})
}

func (m *Match) PlayerLeft(name string) {
	m.post(PlayerLeft{Name: name})
}

// Start asks the loop to begin a game.
func (m *Match) Start(ctx context.Context, requester string) error {
	reply := make(chan error, 1)
	return m.request(ctx, StartGame{Requester: requester, Reply: reply}, reply)
}

// ChangeCharacter applies the once-per-round change rule while a match runs.
func (m *Match) ChangeCharacter(ctx context.Context, name string) error {
	reply := make(chan error, 1)
	return m.request(ctx, ChangeCharacter{Name: name, Reply: reply}, reply)
}

func (m *Match) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case m.inbox <- GetState{Reply: reply}:
	case <-m.done:
		return View{}, ErrStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-m.done:
		return View{}, ErrStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (m *Match) request(ctx context.Context, msg Msg, reply chan error) error {
	select {
	case m.inbox <- msg:
	case <-m.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-m.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
