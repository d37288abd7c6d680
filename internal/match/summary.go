package match

import (
	"context"
	"time"

	"github.com/DoyleJ11/squadfire/internal/engine"
)

type KillRecord struct {
	Round  int       `msgpack:"r"`
	Killer string    `msgpack:"k"`
	Victim string    `msgpack:"v"`
	At     time.Time `msgpack:"t"`
}

type PlayerResult struct {
	Name        string
	Team        engine.Team
	CharacterID string
	Kills       int
	Deaths      int
}

// Summary describes a finished game.
type Summary struct {
	Winner    engine.Team
	Rounds    int
	RedWins   int
	BlueWins  int
	StartedAt time.Time
	EndedAt   time.Time
	Players   []PlayerResult
	KillFeed  []KillRecord
}

// Recorder persists finished games.
type Recorder interface {
	RecordMatch(ctx context.Context, s Summary) error
}

type nopRecorder struct{}

func (nopRecorder) RecordMatch(context.Context, Summary) error { return nil }
