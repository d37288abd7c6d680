package types

import "time"

// RosterPlayer is one lobby entry as served by GET /roster.
type RosterPlayer struct {
	Name        string    `json:"name"`
	Team        string    `json:"team"` // "RED" | "BLUE"
	Ready       bool      `json:"ready"`
	CharacterID string    `json:"character_id"`
	HP          int       `json:"hp"`
	MaxHP       int       `json:"max_hp"`
	Kills       int       `json:"kills"`
	Deaths      int       `json:"deaths"`
	JoinedAt    time.Time `json:"joined_at"`
}

type Roster struct {
	Version    int            `json:"version"`
	MaxPlayers int            `json:"max_players"`
	Players    []RosterPlayer `json:"players"`
}

// MatchStatus is GET /match.
type MatchStatus struct {
	Running          bool   `json:"running"`
	State            string `json:"state"` // WAITING | PLAYING | ENDED
	Round            int    `json:"round"`
	MapID            string `json:"map_id,omitempty"`
	RedWins          int    `json:"red_wins"`
	BlueWins         int    `json:"blue_wins"`
	ReadyRemainingMS int64  `json:"ready_remaining_ms"`
	Kills            int    `json:"kills"`
}
