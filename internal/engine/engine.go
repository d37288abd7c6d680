package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRoundNotWaiting    = errors.New("round is not in the ready phase")
	ErrAlreadyChanged     = errors.New("character already changed this round")
	ErrChangeWindowClosed = errors.New("character change window closed")
	ErrRoundOver          = errors.New("round already ended")
	ErrRoundNotPlaying    = errors.New("round is not in play")
	ErrUnknownTeam        = errors.New("unknown team")
)

type Team int

const (
	TeamRed  Team = 0
	TeamBlue Team = 1
)

func ParseTeam(n int) (Team, error) {
	switch Team(n) {
	case TeamRed, TeamBlue:
		return Team(n), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownTeam, n)
}

// TeamFromName accepts "RED"/"BLUE" as carried by ROUND_END and GAME_END.
func TeamFromName(s string) (Team, error) {
	switch s {
	case "RED", "0":
		return TeamRed, nil
	case "BLUE", "1":
		return TeamBlue, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTeam, s)
}

func (t Team) String() string {
	if t == TeamBlue {
		return "BLUE"
	}
	return "RED"
}

func (t Team) Opponent() Team {
	if t == TeamBlue {
		return TeamRed
	}
	return TeamBlue
}

type RoundState int

const (
	StateWaiting RoundState = iota
	StatePlaying
	StateEnded
)

func (s RoundState) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StatePlaying:
		return "PLAYING"
	case StateEnded:
		return "ENDED"
	}
	return "UNKNOWN"
}

type Timing struct {
	ReadyWindow   time.Duration
	Banner        time.Duration
	WinsToEndGame int
}

func DefaultTiming() Timing {
	return Timing{
		ReadyWindow:   10 * time.Second,
		Banner:        3 * time.Second,
		WinsToEndGame: 2,
	}
}

// Outcome describes a finished round.
type Outcome struct {
	Winner   Team
	RedWins  int
	BlueWins int
	GameOver bool
}

// Round is the round/series state machine. It is not safe for concurrent
// use; the server keeps it inside the match goroutine and the client inside
// its tick loop.
type Round struct {
	State     RoundState
	Count     int
	MapID     string
	RedWins   int
	BlueWins  int
	StartedAt time.Time

	CenterMessage string
	CenterUntil   time.Time

	timing  Timing
	changed map[string]bool
}

func NewRound(t Timing) *Round {
	return &Round{timing: t, changed: make(map[string]bool)}
}

func (r *Round) Timing() Timing { return r.timing }

// Start enters WAITING for round n. Series counters are kept.
func (r *Round) Start(n int, mapID string, now time.Time) {
	r.State = StateWaiting
	r.Count = n
	r.MapID = mapID
	r.StartedAt = now
	r.CenterMessage = fmt.Sprintf("Round %d Ready", n)
	r.CenterUntil = now.Add(r.timing.ReadyWindow)
	clear(r.changed)
}

// Advance moves WAITING to PLAYING once the ready window has fully
// elapsed. It reports whether the transition happened.
func (r *Round) Advance(now time.Time) bool {
	if r.State != StateWaiting || r.StartedAt.IsZero() {
		return false
	}
	if now.Sub(r.StartedAt) < r.timing.ReadyWindow {
		return false
	}
	r.State = StatePlaying
	r.CenterMessage = "FIGHT!"
	r.CenterUntil = now.Add(time.Second)
	return true
}

func (r *Round) ReadyRemaining(now time.Time) time.Duration {
	if r.State != StateWaiting {
		return 0
	}
	left := r.timing.ReadyWindow - now.Sub(r.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// CanChangeCharacter requires WAITING, no earlier change by name this
// round, and elapsed time since round start within the ready window.
func (r *Round) CanChangeCharacter(name string, now time.Time) error {
	if r.State != StateWaiting {
		return ErrRoundNotWaiting
	}
	if r.changed[name] {
		return ErrAlreadyChanged
	}
	if now.Sub(r.StartedAt) > r.timing.ReadyWindow {
		return ErrChangeWindowClosed
	}
	return nil
}

// ChangeCharacter checks the gate and records the change.
func (r *Round) ChangeCharacter(name string, now time.Time) error {
	if err := r.CanChangeCharacter(name, now); err != nil {
		return err
	}
	r.changed[name] = true
	return nil
}

// End closes the round in favour of winner and scores the series. Only a
// round in play can end.
func (r *Round) End(winner Team, now time.Time) (Outcome, error) {
	switch r.State {
	case StateEnded:
		return Outcome{}, ErrRoundOver
	case StateWaiting:
		return Outcome{}, ErrRoundNotPlaying
	}
	if winner == TeamBlue {
		r.BlueWins++
	} else {
		r.RedWins++
	}
	r.State = StateEnded
	out := Outcome{Winner: winner, RedWins: r.RedWins, BlueWins: r.BlueWins, GameOver: r.SeriesDecided()}
	r.CenterMessage = winner.String() + " Team Wins!"
	r.CenterUntil = now.Add(r.timing.Banner)
	return out, nil
}

// Mirror applies a ROUND_END received from the server.
func (r *Round) Mirror(winner Team, redWins, blueWins int, now time.Time) {
	r.State = StateEnded
	r.RedWins = redWins
	r.BlueWins = blueWins
	r.CenterMessage = winner.String() + " Team Wins!"
	r.CenterUntil = now.Add(r.timing.Banner)
}

func (r *Round) SeriesDecided() bool {
	return r.RedWins >= r.timing.WinsToEndGame || r.BlueWins >= r.timing.WinsToEndGame
}

// Reset returns to a fresh series.
func (r *Round) Reset() {
	*r = Round{timing: r.timing, changed: make(map[string]bool)}
}

// Center returns the transient centre message, or "" once it expired.
func (r *Round) Center(now time.Time) string {
	if r.CenterMessage == "" || !now.Before(r.CenterUntil) {
		return ""
	}
	return r.CenterMessage
}
