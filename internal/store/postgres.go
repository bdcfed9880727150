package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/chowmap/ingest-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// newPostgresWithPool wires an existing pool, used by tests.
func newPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS videos (
	id                 TEXT PRIMARY KEY,
	title              TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	published_at       TIMESTAMPTZ NOT NULL,
	duration_seconds   INTEGER NOT NULL DEFAULT 0,
	captions_available BOOLEAN NOT NULL DEFAULT FALSE,
	thumbnail_url      TEXT,
	channel_id         TEXT,
	tags               JSONB,
	topics             JSONB,
	ingested_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS places (
	id           BIGSERIAL PRIMARY KEY,
	name         TEXT NOT NULL,
	address      TEXT,
	city         TEXT,
	region       TEXT,
	country_code TEXT,
	latitude     DOUBLE PRECISION,
	longitude    DOUBLE PRECISION,
	place_source TEXT NOT NULL,
	place_ref    TEXT NOT NULL,
	UNIQUE(place_source, place_ref)
);

CREATE TABLE IF NOT EXISTS challenges (
	id                   BIGSERIAL PRIMARY KEY,
	video_id             TEXT NOT NULL REFERENCES videos(id),
	place_id             BIGINT REFERENCES places(id),
	date_attempted       TIMESTAMPTZ,
	result               TEXT NOT NULL DEFAULT 'unknown',
	challenge_type       TEXT,
	food_type            TEXT,
	notes                TEXT,
	charity_flag         BOOLEAN NOT NULL DEFAULT FALSE,
	provenance           TEXT NOT NULL DEFAULT 'auto',
	confidence           DOUBLE PRECISION NOT NULL DEFAULT 0,
	food_volume_score    INTEGER NOT NULL DEFAULT 0,
	time_limit_score     INTEGER NOT NULL DEFAULT 0,
	success_rate_score   INTEGER NOT NULL DEFAULT 0,
	spiciness_score      INTEGER NOT NULL DEFAULT 0,
	food_diversity_score INTEGER NOT NULL DEFAULT 0,
	risk_level_score     INTEGER NOT NULL DEFAULT 0,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id          TEXT PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	processed   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_challenges_video_id ON challenges(video_id);
CREATE INDEX IF NOT EXISTS idx_challenges_place_id ON challenges(place_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

func (s *PostgresStore) UpsertVideo(ctx context.Context, video model.Video) error {
	tags, err := marshalStrings(video.Tags)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal tags")
	}
	topics, err := marshalStrings(video.Topics)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal topics")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO videos (id, title, description, published_at, duration_seconds,
			captions_available, thumbnail_url, channel_id, tags, topics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			published_at = EXCLUDED.published_at,
			duration_seconds = EXCLUDED.duration_seconds,
			captions_available = EXCLUDED.captions_available,
			thumbnail_url = EXCLUDED.thumbnail_url,
			channel_id = EXCLUDED.channel_id,
			tags = EXCLUDED.tags,
			topics = EXCLUDED.topics`,
		video.ID, video.Title, video.Description, video.PublishedAt.UTC(),
		video.DurationSeconds, video.CaptionsAvailable,
		nullIfEmpty(video.ThumbnailURL), nullIfEmpty(video.ChannelID), tags, topics,
	)
	return eris.Wrapf(err, "postgres: upsert video %s", video.ID)
}

func (s *PostgresStore) UpsertPlace(ctx context.Context, place model.Place) (int64, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO places (name, address, city, region, country_code,
			latitude, longitude, place_source, place_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (place_source, place_ref) DO UPDATE SET
			name = COALESCE(EXCLUDED.name, places.name),
			address = COALESCE(EXCLUDED.address, places.address),
			city = COALESCE(EXCLUDED.city, places.city),
			region = COALESCE(EXCLUDED.region, places.region),
			country_code = COALESCE(EXCLUDED.country_code, places.country_code),
			latitude = COALESCE(EXCLUDED.latitude, places.latitude),
			longitude = COALESCE(EXCLUDED.longitude, places.longitude)
		RETURNING id`,
		place.Name, nullIfEmpty(place.Address), nullIfEmpty(place.City),
		nullIfEmpty(place.Region), nullIfEmpty(place.CountryCode),
		place.Latitude, place.Longitude, place.Source, place.SourceRef,
	)

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert place %s/%s", place.Source, place.SourceRef)
	}
	return id, nil
}

func (s *PostgresStore) ChallengeExists(ctx context.Context, videoID string) (bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM challenges WHERE video_id = $1 LIMIT 1`, videoID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: challenge exists %s", videoID)
	}
	return true, nil
}

func (s *PostgresStore) InsertChallenge(ctx context.Context, ch model.Challenge) (int64, error) {
	var dateAttempted any
	if !ch.DateAttempted.IsZero() {
		dateAttempted = ch.DateAttempted.UTC()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO challenges (video_id, place_id, date_attempted, result,
			challenge_type, food_type, notes, charity_flag, provenance, confidence,
			food_volume_score, time_limit_score, success_rate_score,
			spiciness_score, food_diversity_score, risk_level_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		ch.VideoID, ch.PlaceID, dateAttempted, string(ch.Result),
		nullIfEmpty(string(ch.ChallengeType)), nullIfEmpty(ch.FoodType), nullIfEmpty(ch.Notes),
		ch.CharityFlag, string(ch.Provenance), ch.Confidence,
		ch.Scores.FoodVolume, ch.Scores.TimeLimit, ch.Scores.SuccessRate,
		ch.Scores.Spiciness, ch.Scores.FoodDiversity, ch.Scores.RiskLevel,
	)

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, eris.Wrapf(err, "postgres: insert challenge for %s", ch.VideoID)
	}
	return id, nil
}

func (s *PostgresStore) ListChallenges(ctx context.Context, limit int) ([]ChallengeRow, error) {
	query := challengeRowQuery
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list challenges")
	}
	defer rows.Close()

	var out []ChallengeRow
	for rows.Next() {
		row, err := scanChallengeRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *row)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list challenges iterate")
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*model.IngestRun, error) {
	run := &model.IngestRun{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingest_runs (id, started_at) VALUES ($1, $2)`,
		run.ID, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create run")
	}
	return run, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, processed, failed int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingest_runs SET finished_at = $1, processed = $2, failed = $3 WHERE id = $4`,
		time.Now().UTC(), processed, failed, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}
