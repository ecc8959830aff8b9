// Package repository persists users and finished games in PostgreSQL and
// serves the aggregate queries behind the stats HTTP surface. The whole
// server runs without it; a nil store just disables recording and stats.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/loveletter-online/server-go/internal/room"
)

// ErrUnknownLeaderboard is returned for an unsupported leaderboard type.
var ErrUnknownLeaderboard = errors.New("unknown leaderboard type")

// ErrNoSuchUser is returned when stats are requested for an unknown user.
var ErrNoSuchUser = errors.New("no such user")

// NewPool connects to PostgreSQL and verifies the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// Store wraps the pool with the fixed statement set the server needs.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New creates a store over an established pool.
func New(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// UpsertUser creates or refreshes a verified user's profile row.
func (s *Store) UpsertUser(ctx context.Context, subjectID, email, name, pictureURL string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (subject_id, email, name, picture_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (subject_id) DO UPDATE
		SET email = EXCLUDED.email,
		    name = EXCLUDED.name,
		    picture_url = EXCLUDED.picture_url,
		    updated_at = NOW()
	`, subjectID, email, name, pictureURL)
	if err != nil {
		return fmt.Errorf("upserting user %s: %w", subjectID, err)
	}
	return nil
}

// RecordGame writes one row per seat of a finished game. The rows go out
// as a single batch so a partial game is never recorded.
func (s *Store) RecordGame(ctx context.Context, rec room.GameRecord) error {
	batch := &pgx.Batch{}
	for _, p := range rec.Players {
		batch.Queue(`
			INSERT INTO game_results
				(room_id, subject_id, player_name, tokens, high_card, won, is_bot, played_at)
			VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, NOW())
		`, rec.RoomID, p.SubjectID, p.Name, p.Tokens, p.HighCard, p.Won, p.IsBot)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range rec.Players {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("recording game %s: %w", rec.RoomID, err)
		}
	}
	s.logger.Info("game recorded",
		zap.String("room_id", rec.RoomID),
		zap.Int("players", len(rec.Players)))
	return nil
}

// UserStats is the aggregate view of one verified user's history.
type UserStats struct {
	SubjectID   string  `json:"subjectId"`
	Name        string  `json:"name"`
	GamesPlayed int     `json:"gamesPlayed"`
	GamesWon    int     `json:"gamesWon"`
	WinRate     float64 `json:"winRate"`
	TotalTokens int     `json:"totalTokens"`
	BestHand    int     `json:"bestHand"`
}

// UserStats aggregates the user's recorded games.
func (s *Store) UserStats(ctx context.Context, subjectID string) (*UserStats, error) {
	stats := &UserStats{SubjectID: subjectID}
	err := s.pool.QueryRow(ctx, `
		SELECT u.name,
		       COUNT(g.id),
		       COUNT(g.id) FILTER (WHERE g.won),
		       COALESCE(SUM(g.tokens), 0),
		       COALESCE(MAX(g.high_card), 0)
		FROM users u
		LEFT JOIN game_results g ON g.subject_id = u.subject_id
		WHERE u.subject_id = $1
		GROUP BY u.name
	`, subjectID).Scan(&stats.Name, &stats.GamesPlayed, &stats.GamesWon,
		&stats.TotalTokens, &stats.BestHand)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSuchUser
	}
	if err != nil {
		return nil, fmt.Errorf("loading stats for %s: %w", subjectID, err)
	}
	if stats.GamesPlayed > 0 {
		stats.WinRate = float64(stats.GamesWon) / float64(stats.GamesPlayed)
	}
	return stats, nil
}

// LeaderboardEntry is one row of a ranked listing.
type LeaderboardEntry struct {
	SubjectID string  `json:"subjectId"`
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
}

// Leaderboard kinds.
const (
	LeaderboardWins        = "wins"
	LeaderboardHighestHand = "highest_hand"
	LeaderboardWinRate     = "win_rate"
)

// Leaderboard returns the top verified users ranked by the given metric.
func (s *Store) Leaderboard(ctx context.Context, kind string, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var metric string
	switch kind {
	case LeaderboardWins:
		metric = `COUNT(g.id) FILTER (WHERE g.won)`
	case LeaderboardHighestHand:
		metric = `COALESCE(AVG(g.high_card), 0)`
	case LeaderboardWinRate:
		metric = `COUNT(g.id) FILTER (WHERE g.won)::float / COUNT(g.id)`
	default:
		return nil, ErrUnknownLeaderboard
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT u.subject_id, u.name, %s AS metric
		FROM users u
		JOIN game_results g ON g.subject_id = u.subject_id
		GROUP BY u.subject_id, u.name
		ORDER BY metric DESC
		LIMIT $1
	`, metric), limit)
	if err != nil {
		return nil, fmt.Errorf("loading %s leaderboard: %w", kind, err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.SubjectID, &e.Name, &e.Value); err != nil {
			return nil, fmt.Errorf("scanning leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
