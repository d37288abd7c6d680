package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/squadfire/internal/engine"
	"github.com/DoyleJ11/squadfire/internal/match"
)

func sampleSummary() match.Summary {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return match.Summary{
		Winner:    engine.TeamBlue,
		Rounds:    3,
		RedWins:   1,
		BlueWins:  2,
		StartedAt: start,
		EndedAt:   start.Add(4 * time.Minute),
		Players: []match.PlayerResult{
			{Name: "alice", Team: engine.TeamRed, CharacterID: "raven", Kills: 2, Deaths: 3},
			{Name: "bob", Team: engine.TeamBlue, CharacterID: "ghost", Kills: 3, Deaths: 2},
		},
		KillFeed: []match.KillRecord{
			{Round: 1, Killer: "alice", Victim: "bob", At: start.Add(30 * time.Second)},
			{Round: 2, Killer: "bob", Victim: "alice", At: start.Add(90 * time.Second)},
		},
	}
}

func TestToRecordAndBack(t *testing.T) {
	rec, err := toRecord(sampleSummary())
	require.NoError(t, err)
	assert.Equal(t, "BLUE", rec.Winner)
	require.Len(t, rec.Players, 2)
	assert.Equal(t, "RED", rec.Players[0].Team)
	assert.NotEmpty(t, rec.KillFeed)

	rec.ID = 7
	m, err := toDTO(rec)
	require.NoError(t, err)
	assert.Equal(t, uint(7), m.ID)
	assert.Equal(t, 2, m.BlueWins)
	require.Len(t, m.KillFeed, 2)
	assert.Equal(t, "bob", m.KillFeed[1].Killer)
	assert.True(t, m.KillFeed[0].At.Equal(sampleSummary().KillFeed[0].At))
}

func TestEmptyFeedIsNil(t *testing.T) {
	b, err := encodeFeed(nil)
	require.NoError(t, err)
	assert.Nil(t, b)

	feed, err := decodeFeed(nil)
	require.NoError(t, err)
	assert.Nil(t, feed)
}

func TestDecodeFeedRejectsGarbage(t *testing.T) {
	_, err := decodeFeed([]byte{0xc1})
	assert.Error(t, err)

	_, err = toDTO(MatchRecord{KillFeed: []byte{0xc1}})
	assert.Error(t, err)
}

func TestMapErr(t *testing.T) {
	dup := fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, mapErr(dup), ErrDuplicateMatch)

	other := errors.New("connection refused")
	got := mapErr(other)
	assert.NotErrorIs(t, got, ErrDuplicateMatch)
	assert.ErrorIs(t, got, other)
}
