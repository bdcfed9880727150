// Package store persists videos, places, challenges and ingest runs. Two
// implementations exist: SQLite for local runs and Postgres for shared
// deployments.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/chowmap/ingest-cli/internal/model"
)

// Pool is the slice of pgxpool.Pool the Postgres store uses. pgxmock
// implements it for tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// ChallengeRow is a challenge joined with its place and video for publishing
// and the read API.
type ChallengeRow struct {
	Challenge    model.Challenge `json:"challenge"`
	Place        *model.Place    `json:"place,omitempty"`
	VideoTitle   string          `json:"video_title"`
	VideoURL     string          `json:"video_url"`
	ThumbnailURL string          `json:"thumbnail_url,omitempty"`
	PublishedAt  time.Time       `json:"published_at"`
}

// Store defines the persistence interface for the ingest pipeline.
type Store interface {
	// Videos
	UpsertVideo(ctx context.Context, video model.Video) error

	// Places. UpsertPlace keys on (place_source, place_ref); existing rows
	// keep their fields unless the new row fills a gap.
	UpsertPlace(ctx context.Context, place model.Place) (int64, error)

	// Challenges
	ChallengeExists(ctx context.Context, videoID string) (bool, error)
	InsertChallenge(ctx context.Context, ch model.Challenge) (int64, error)
	ListChallenges(ctx context.Context, limit int) ([]ChallengeRow, error)

	// Ingest run bookkeeping
	CreateRun(ctx context.Context) (*model.IngestRun, error)
	FinishRun(ctx context.Context, runID string, processed, failed int) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New opens a Store for the given driver. The dsn is a file path for sqlite
// and a connection string for postgres.
func New(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	}
	return nil, eris.Errorf("store: unknown driver %q", driver)
}
