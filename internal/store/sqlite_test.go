package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chowmap/ingest-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testVideo(id string) model.Video {
	return model.Video{
		ID:              id,
		Title:           "Undefeated Burger Challenge | Big Bob's",
		Description:     "We took on the beast.",
		PublishedAt:     time.Date(2024, 3, 12, 15, 0, 0, 0, time.UTC),
		DurationSeconds: 750,
		ThumbnailURL:    "https://img.example/" + id + ".jpg",
		ChannelID:       "UCchannel",
		Tags:            []string{"food challenge", "burger"},
	}
}

func testChallenge(videoID string) model.Challenge {
	return model.Challenge{
		VideoID:       videoID,
		DateAttempted: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
		Result:        model.ResultSuccess,
		ChallengeType: model.TypeQuantity,
		FoodType:      "burger",
		Confidence:    0.9,
		Provenance:    model.SourceHeuristic,
		Scores:        model.DifficultyScores{FoodVolume: 8, TimeLimit: 5},
	}
}

// --- Videos ---

func TestSQLite_UpsertVideo_InsertThenUpdate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	video := testVideo("vid1")
	require.NoError(t, st.UpsertVideo(ctx, video))

	video.Title = "Updated Title"
	video.DurationSeconds = 900
	require.NoError(t, st.UpsertVideo(ctx, video))

	var title string
	var duration int
	err := st.db.QueryRowContext(ctx,
		`SELECT title, duration_seconds FROM videos WHERE id = ?`, "vid1",
	).Scan(&title, &duration)
	require.NoError(t, err)
	assert.Equal(t, "Updated Title", title)
	assert.Equal(t, 900, duration)

	var count int
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&count))
	assert.Equal(t, 1, count)
}

// --- Places ---

func TestSQLite_UpsertPlace_SameKeyReturnsSameID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	place := model.Place{
		Name:      "Big Bob's Diner",
		City:      "Manchester",
		Source:    model.PlaceSourceFeatured,
		SourceRef: "https://maps.app.goo.gl/abc",
	}
	id1, err := st.UpsertPlace(ctx, place)
	require.NoError(t, err)
	require.Positive(t, id1)

	id2, err := st.UpsertPlace(ctx, place)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestSQLite_UpsertPlace_FillsGapsWithoutClobbering(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	lat, lng := 53.48, -2.24
	first := model.Place{
		Name:      "Big Bob's Diner",
		City:      "Manchester",
		Latitude:  &lat,
		Longitude: &lng,
		Source:    model.PlaceSourceFeatured,
		SourceRef: "ref-1",
	}
	id1, err := st.UpsertPlace(ctx, first)
	require.NoError(t, err)

	// Second write supplies the missing country but no coordinates or city.
	second := model.Place{
		Name:        "Big Bob's Diner",
		CountryCode: "UK",
		Source:      model.PlaceSourceFeatured,
		SourceRef:   "ref-1",
	}
	id2, err := st.UpsertPlace(ctx, second)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	var city, country string
	var gotLat, gotLng float64
	err = st.db.QueryRowContext(ctx,
		`SELECT city, country_code, latitude, longitude FROM places WHERE id = ?`, id1,
	).Scan(&city, &country, &gotLat, &gotLng)
	require.NoError(t, err)
	assert.Equal(t, "Manchester", city)
	assert.Equal(t, "UK", country)
	assert.InDelta(t, 53.48, gotLat, 0.001)
	assert.InDelta(t, -2.24, gotLng, 0.001)
}

// --- Challenges ---

func TestSQLite_ChallengeExists_GatesDuplicates(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertVideo(ctx, testVideo("vid1")))

	exists, err := st.ChallengeExists(ctx, "vid1")
	require.NoError(t, err)
	assert.False(t, exists)

	id, err := st.InsertChallenge(ctx, testChallenge("vid1"))
	require.NoError(t, err)
	assert.Positive(t, id)

	exists, err = st.ChallengeExists(ctx, "vid1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSQLite_InsertChallenge_ZeroDateStoredAsNull(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertVideo(ctx, testVideo("vid1")))

	ch := testChallenge("vid1")
	ch.DateAttempted = time.Time{}
	id, err := st.InsertChallenge(ctx, ch)
	require.NoError(t, err)

	var date any
	err = st.db.QueryRowContext(ctx,
		`SELECT date_attempted FROM challenges WHERE id = ?`, id,
	).Scan(&date)
	require.NoError(t, err)
	assert.Nil(t, date)
}

func TestSQLite_ListChallenges_JoinsAndOrders(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	older := testVideo("vid-old")
	older.PublishedAt = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := testVideo("vid-new")
	newer.PublishedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.UpsertVideo(ctx, older))
	require.NoError(t, st.UpsertVideo(ctx, newer))

	lat, lng := 53.48, -2.24
	placeID, err := st.UpsertPlace(ctx, model.Place{
		Name:        "Big Bob's Diner",
		City:        "Manchester",
		CountryCode: "UK",
		Latitude:    &lat,
		Longitude:   &lng,
		Source:      model.PlaceSourceFeatured,
		SourceRef:   "ref-1",
	})
	require.NoError(t, err)

	chOld := testChallenge("vid-old")
	_, err = st.InsertChallenge(ctx, chOld)
	require.NoError(t, err)

	chNew := testChallenge("vid-new")
	chNew.PlaceID = &placeID
	_, err = st.InsertChallenge(ctx, chNew)
	require.NoError(t, err)

	rows, err := st.ListChallenges(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Newest published video first.
	assert.Equal(t, "vid-new", rows[0].Challenge.VideoID)
	assert.Equal(t, "vid-old", rows[1].Challenge.VideoID)

	require.NotNil(t, rows[0].Place)
	assert.Equal(t, "Big Bob's Diner", rows[0].Place.Name)
	assert.Equal(t, placeID, rows[0].Place.ID)
	require.NotNil(t, rows[0].Place.Latitude)
	assert.InDelta(t, 53.48, *rows[0].Place.Latitude, 0.001)

	assert.Nil(t, rows[1].Place)
	assert.Equal(t, "https://www.youtube.com/watch?v=vid-old", rows[1].VideoURL)
	assert.Equal(t, model.ResultSuccess, rows[1].Challenge.Result)
	assert.Equal(t, 8, rows[1].Challenge.Scores.FoodVolume)
}

func TestSQLite_ListChallenges_Limit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		v := testVideo(id)
		require.NoError(t, st.UpsertVideo(ctx, v))
		_, err := st.InsertChallenge(ctx, testChallenge(id))
		require.NoError(t, err)
	}

	rows, err := st.ListChallenges(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

// --- Runs ---

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	require.NoError(t, st.FinishRun(ctx, run.ID, 12, 2))

	var processed, failed int
	var finished any
	err = st.db.QueryRowContext(ctx,
		`SELECT processed, failed, finished_at FROM ingest_runs WHERE id = ?`, run.ID,
	).Scan(&processed, &failed, &finished)
	require.NoError(t, err)
	assert.Equal(t, 12, processed)
	assert.Equal(t, 2, failed)
	assert.NotNil(t, finished)
}

func TestSQLite_FinishRun_UnknownID(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.FinishRun(context.Background(), "no-such-run", 0, 0)
	assert.Error(t, err)
}
