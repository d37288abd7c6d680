package types

import "time"

// Match is one recorded game, as served by GET /matches.
type Match struct {
	ID       uint          `json:"id"`
	Winner   string        `json:"winner"`
	Rounds   int           `json:"rounds"`
	RedWins  int           `json:"red_wins"`
	BlueWins int           `json:"blue_wins"`
	Started  time.Time     `json:"started_at"`
	Ended    time.Time     `json:"ended_at"`
	Players  []MatchPlayer `json:"players"`
	KillFeed []Kill        `json:"kill_feed,omitempty"`
}

type MatchPlayer struct {
	Name        string `json:"name"`
	Team        string `json:"team"`
	CharacterID string `json:"character_id"`
	Kills       int    `json:"kills"`
	Deaths      int    `json:"deaths"`
}

type Kill struct {
	Round  int       `json:"round"`
	Killer string    `json:"killer"`
	Victim string    `json:"victim"`
	At     time.Time `json:"at"`
}
