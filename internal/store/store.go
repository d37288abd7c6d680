package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/squadfire/internal/match"
	"github.com/DoyleJ11/squadfire/pkg/types"
)

const uniqueViolation = "23505"

var ErrDuplicateMatch = errors.New("match already recorded")

// Store persists finished games to Postgres.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects and migrates the schema.
func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&MatchRecord{}, &PlayerRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordMatch implements match.Recorder.
func (s *Store) RecordMatch(ctx context.Context, sum match.Summary) error {
	rec, err := toRecord(sum)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return mapErr(err)
	}
	s.log.Info("match recorded", zap.Uint("id", rec.ID), zap.String("winner", rec.Winner))
	return nil
}

// Recent returns up to limit games, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.Match, error) {
	var recs []MatchRecord
	err := s.db.WithContext(ctx).
		Preload("Players", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("ended_at desc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	out := make([]types.Match, 0, len(recs))
	for _, r := range recs {
		m, err := toDTO(r)
		if err != nil {
			s.log.Warn("skip corrupt match", zap.Uint("id", r.ID), zap.Error(err))
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func toRecord(sum match.Summary) (MatchRecord, error) {
	feed, err := encodeFeed(sum.KillFeed)
	if err != nil {
		return MatchRecord{}, err
	}
	rec := MatchRecord{
		Winner:    sum.Winner.String(),
		Rounds:    sum.Rounds,
		RedWins:   sum.RedWins,
		BlueWins:  sum.BlueWins,
		StartedAt: sum.StartedAt.UTC(),
		EndedAt:   sum.EndedAt.UTC(),
		KillFeed:  feed,
	}
	for _, p := range sum.Players {
		rec.Players = append(rec.Players, PlayerRecord{
			Name:        p.Name,
			Team:        p.Team.String(),
			CharacterID: p.CharacterID,
			Kills:       p.Kills,
			Deaths:      p.Deaths,
		})
	}
	return rec, nil
}

func toDTO(r MatchRecord) (types.Match, error) {
	feed, err := decodeFeed(r.KillFeed)
	if err != nil {
		return types.Match{}, err
	}
	m := types.Match{
		ID:       r.ID,
		Winner:   r.Winner,
		Rounds:   r.Rounds,
		RedWins:  r.RedWins,
		BlueWins: r.BlueWins,
		Started:  r.StartedAt,
		Ended:    r.EndedAt,
		Players:  make([]types.MatchPlayer, 0, len(r.Players)),
	}
	for _, p := range r.Players {
		m.Players = append(m.Players, types.MatchPlayer{
			Name:        p.Name,
			Team:        p.Team,
			CharacterID: p.CharacterID,
			Kills:       p.Kills,
			Deaths:      p.Deaths,
		})
	}
	for _, k := range feed {
		m.KillFeed = append(m.KillFeed, types.Kill{Round: k.Round, Killer: k.Killer, Victim: k.Victim, At: k.At})
	}
	return m, nil
}

func encodeFeed(feed []match.KillRecord) ([]byte, error) {
	if len(feed) == 0 {
		return nil, nil
	}
	b, err := msgpack.Marshal(feed)
	if err != nil {
		return nil, fmt.Errorf("encode kill feed: %w", err)
	}
	return b, nil
}

func decodeFeed(b []byte) ([]match.KillRecord, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var feed []match.KillRecord
	if err := msgpack.Unmarshal(b, &feed); err != nil {
		return nil, fmt.Errorf("decode kill feed: %w", err)
	}
	return feed, nil
}

func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateMatch
	}
	return fmt.Errorf("insert match: %w", err)
}
