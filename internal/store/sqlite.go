package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/chowmap/ingest-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS videos (
	id                 TEXT PRIMARY KEY,
	title              TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	published_at       DATETIME NOT NULL,
	duration_seconds   INTEGER NOT NULL DEFAULT 0,
	captions_available INTEGER NOT NULL DEFAULT 0,
	thumbnail_url      TEXT,
	channel_id         TEXT,
	tags               TEXT,
	topics             TEXT,
	ingested_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS places (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL,
	address      TEXT,
	city         TEXT,
	region       TEXT,
	country_code TEXT,
	latitude     REAL,
	longitude    REAL,
	place_source TEXT NOT NULL,
	place_ref    TEXT NOT NULL,
	UNIQUE(place_source, place_ref)
);

CREATE TABLE IF NOT EXISTS challenges (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	video_id             TEXT NOT NULL REFERENCES videos(id),
	place_id             INTEGER REFERENCES places(id),
	date_attempted       DATETIME,
	result               TEXT NOT NULL DEFAULT 'unknown',
	challenge_type       TEXT,
	food_type            TEXT,
	notes                TEXT,
	charity_flag         INTEGER NOT NULL DEFAULT 0,
	provenance           TEXT NOT NULL DEFAULT 'auto',
	confidence           REAL NOT NULL DEFAULT 0,
	food_volume_score    INTEGER NOT NULL DEFAULT 0,
	time_limit_score     INTEGER NOT NULL DEFAULT 0,
	success_rate_score   INTEGER NOT NULL DEFAULT 0,
	spiciness_score      INTEGER NOT NULL DEFAULT 0,
	food_diversity_score INTEGER NOT NULL DEFAULT 0,
	risk_level_score     INTEGER NOT NULL DEFAULT 0,
	created_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id          TEXT PRIMARY KEY,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	processed   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_challenges_video_id ON challenges(video_id);
CREATE INDEX IF NOT EXISTS idx_challenges_place_id ON challenges(place_id);
CREATE INDEX IF NOT EXISTS idx_places_source_ref ON places(place_source, place_ref);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertVideo(ctx context.Context, video model.Video) error {
	tags, err := marshalStrings(video.Tags)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal tags")
	}
	topics, err := marshalStrings(video.Topics)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal topics")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO videos (id, title, description, published_at, duration_seconds,
			captions_available, thumbnail_url, channel_id, tags, topics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			published_at = excluded.published_at,
			duration_seconds = excluded.duration_seconds,
			captions_available = excluded.captions_available,
			thumbnail_url = excluded.thumbnail_url,
			channel_id = excluded.channel_id,
			tags = excluded.tags,
			topics = excluded.topics`,
		video.ID, video.Title, video.Description, video.PublishedAt.UTC(),
		video.DurationSeconds, video.CaptionsAvailable,
		nullIfEmpty(video.ThumbnailURL), nullIfEmpty(video.ChannelID), tags, topics,
	)
	return eris.Wrapf(err, "sqlite: upsert video %s", video.ID)
}

func (s *SQLiteStore) UpsertPlace(ctx context.Context, place model.Place) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO places (name, address, city, region, country_code,
			latitude, longitude, place_source, place_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(place_source, place_ref) DO UPDATE SET
			name = COALESCE(excluded.name, places.name),
			address = COALESCE(excluded.address, places.address),
			city = COALESCE(excluded.city, places.city),
			region = COALESCE(excluded.region, places.region),
			country_code = COALESCE(excluded.country_code, places.country_code),
			latitude = COALESCE(excluded.latitude, places.latitude),
			longitude = COALESCE(excluded.longitude, places.longitude)
		RETURNING id`,
		place.Name, nullIfEmpty(place.Address), nullIfEmpty(place.City),
		nullIfEmpty(place.Region), nullIfEmpty(place.CountryCode),
		place.Latitude, place.Longitude, place.Source, place.SourceRef,
	)

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert place %s/%s", place.Source, place.SourceRef)
	}
	return id, nil
}

func (s *SQLiteStore) ChallengeExists(ctx context.Context, videoID string) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM challenges WHERE video_id = ? LIMIT 1`, videoID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: challenge exists %s", videoID)
	}
	return true, nil
}

func (s *SQLiteStore) InsertChallenge(ctx context.Context, ch model.Challenge) (int64, error) {
	var dateAttempted any
	if !ch.DateAttempted.IsZero() {
		dateAttempted = ch.DateAttempted.UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO challenges (video_id, place_id, date_attempted, result,
			challenge_type, food_type, notes, charity_flag, provenance, confidence,
			food_volume_score, time_limit_score, success_rate_score,
			spiciness_score, food_diversity_score, risk_level_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.VideoID, ch.PlaceID, dateAttempted, string(ch.Result),
		nullIfEmpty(string(ch.ChallengeType)), nullIfEmpty(ch.FoodType), nullIfEmpty(ch.Notes),
		ch.CharityFlag, string(ch.Provenance), ch.Confidence,
		ch.Scores.FoodVolume, ch.Scores.TimeLimit, ch.Scores.SuccessRate,
		ch.Scores.Spiciness, ch.Scores.FoodDiversity, ch.Scores.RiskLevel,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: insert challenge for %s", ch.VideoID)
	}

	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "sqlite: challenge id")
}

const challengeRowQuery = `
	SELECT c.id, c.video_id, c.place_id, c.date_attempted, c.result,
		c.challenge_type, c.food_type, c.notes, c.charity_flag, c.provenance,
		c.confidence, c.food_volume_score, c.time_limit_score,
		c.success_rate_score, c.spiciness_score, c.food_diversity_score,
		c.risk_level_score,
		p.name, p.address, p.city, p.region, p.country_code,
		p.latitude, p.longitude, p.place_source, p.place_ref,
		v.title, v.thumbnail_url, v.published_at
	FROM challenges c
	JOIN videos v ON v.id = c.video_id
	LEFT JOIN places p ON p.id = c.place_id
	ORDER BY v.published_at DESC`

func (s *SQLiteStore) ListChallenges(ctx context.Context, limit int) ([]ChallengeRow, error) {
	query := challengeRowQuery
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list challenges")
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
	return out, eris.Wrap(rows.Err(), "sqlite: list challenges iterate")
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.IngestRun, error) {
	run := &model.IngestRun{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, started_at) VALUES (?, ?)`,
		run.ID, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create run")
	}
	return run, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, processed, failed int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingest_runs SET finished_at = ?, processed = ?, failed = ? WHERE id = ?`,
		time.Now().UTC(), processed, failed, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

// nullIfEmpty maps "" to NULL so COALESCE-style upserts never clobber a
// stored value with an empty one.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func marshalStrings(vals []string) (any, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(vals)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanChallengeRow(row scannable) (*ChallengeRow, error) {
	var (
		out           ChallengeRow
		placeID       sql.NullInt64
		dateAttempted sql.NullTime
		chType        sql.NullString
		foodType      sql.NullString
		notes         sql.NullString
		provenance    string
		pName         sql.NullString
		pAddress      sql.NullString
		pCity         sql.NullString
		pRegion       sql.NullString
		pCountry      sql.NullString
		pLat          sql.NullFloat64
		pLng          sql.NullFloat64
		pSource       sql.NullString
		pRef          sql.NullString
		thumbnail     sql.NullString
	)

	err := row.Scan(
		&out.Challenge.ID, &out.Challenge.VideoID, &placeID, &dateAttempted,
		&out.Challenge.Result, &chType, &foodType, &notes,
		&out.Challenge.CharityFlag, &provenance, &out.Challenge.Confidence,
		&out.Challenge.Scores.FoodVolume, &out.Challenge.Scores.TimeLimit,
		&out.Challenge.Scores.SuccessRate, &out.Challenge.Scores.Spiciness,
		&out.Challenge.Scores.FoodDiversity, &out.Challenge.Scores.RiskLevel,
		&pName, &pAddress, &pCity, &pRegion, &pCountry, &pLat, &pLng,
		&pSource, &pRef,
		&out.VideoTitle, &thumbnail, &out.PublishedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "scan challenge row")
	}

	out.Challenge.ChallengeType = model.ChallengeType(chType.String)
	out.Challenge.FoodType = foodType.String
	out.Challenge.Notes = notes.String
	out.Challenge.Provenance = model.ExtractionSource(provenance)
	if dateAttempted.Valid {
		out.Challenge.DateAttempted = dateAttempted.Time
	}
	out.ThumbnailURL = thumbnail.String
	out.VideoURL = "https://www.youtube.com/watch?v=" + out.Challenge.VideoID

	if placeID.Valid {
		id := placeID.Int64
		out.Challenge.PlaceID = &id

		place := &model.Place{
			ID:          id,
			Name:        pName.String,
			Address:     pAddress.String,
			City:        pCity.String,
			Region:      pRegion.String,
			CountryCode: pCountry.String,
			Source:      pSource.String,
			SourceRef:   pRef.String,
		}
		if pLat.Valid && pLng.Valid {
			lat, lng := pLat.Float64, pLng.Float64
			place.Latitude, place.Longitude = &lat, &lng
		}
		out.Place = place
	}

	return &out, nil
}
