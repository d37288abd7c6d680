package store

import "time"

// MatchRecord is one finished game. KillFeed holds the msgpack-encoded
// []match.KillRecord.
type MatchRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Winner    string    `gorm:"size:8;not null"`
	Rounds    int       `gorm:"not null"`
	RedWins   int       `gorm:"not null"`
	BlueWins  int       `gorm:"not null"`
	StartedAt time.Time `gorm:"uniqueIndex;not null"`
	EndedAt   time.Time `gorm:"index;not null"`
	KillFeed  []byte
	Players   []PlayerRecord `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
}

type PlayerRecord struct {
	ID          uint   `gorm:"primaryKey"`
	MatchID     uint   `gorm:"index;not null"`
	Name        string `gorm:"size:64;not null"`
	Team        string `gorm:"size:8;not null"`
	CharacterID string `gorm:"size:32"`
	Kills       int
	Deaths      int
}
