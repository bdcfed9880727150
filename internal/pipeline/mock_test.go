package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/chowmap/ingest-cli/internal/model"
	"github.com/chowmap/ingest-cli/internal/store"
	"github.com/chowmap/ingest-cli/pkg/llm"
)

// memStore is an in-memory store.Store for pipeline tests.
type memStore struct {
	videos     map[string]model.Video
	places     []model.Place
	challenges []model.Challenge
	runs       map[string]*model.IngestRun

	failUpsertVideo     map[string]bool
	failInsertChallenge map[string]bool

	finishedProcessed int
	finishedFailed    int
}

func newMemStore() *memStore {
	return &memStore{
		videos:              make(map[string]model.Video),
		runs:                make(map[string]*model.IngestRun),
		failUpsertVideo:     make(map[string]bool),
		failInsertChallenge: make(map[string]bool),
	}
}

func (m *memStore) UpsertVideo(_ context.Context, video model.Video) error {
	if m.failUpsertVideo[video.ID] {
		return eris.New("upsert video boom")
	}
	m.videos[video.ID] = video
	return nil
}

func (m *memStore) UpsertPlace(_ context.Context, place model.Place) (int64, error) {
	for _, p := range m.places {
		if p.Source == place.Source && p.SourceRef == place.SourceRef {
			return p.ID, nil
		}
	}
	place.ID = int64(len(m.places) + 1)
	m.places = append(m.places, place)
	return place.ID, nil
}

func (m *memStore) ChallengeExists(_ context.Context, videoID string) (bool, error) {
	for _, ch := range m.challenges {
		if ch.VideoID == videoID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) InsertChallenge(_ context.Context, ch model.Challenge) (int64, error) {
	if m.failInsertChallenge[ch.VideoID] {
		return 0, eris.New("insert challenge boom")
	}
	ch.ID = int64(len(m.challenges) + 1)
	m.challenges = append(m.challenges, ch)
	return ch.ID, nil
}

func (m *memStore) ListChallenges(_ context.Context, limit int) ([]store.ChallengeRow, error) {
	rows := make([]store.ChallengeRow, 0, len(m.challenges))
	for _, ch := range m.challenges {
		if limit > 0 && len(rows) == limit {
			break
		}
		rows = append(rows, store.ChallengeRow{Challenge: ch})
	}
	return rows, nil
}

func (m *memStore) CreateRun(_ context.Context) (*model.IngestRun, error) {
	run := &model.IngestRun{ID: "run-1", StartedAt: time.Now()}
	m.runs[run.ID] = run
	return run, nil
}

func (m *memStore) FinishRun(_ context.Context, runID string, processed, failed int) error {
	if _, ok := m.runs[runID]; !ok {
		return eris.Errorf("run not found: %s", runID)
	}
	m.finishedProcessed = processed
	m.finishedFailed = failed
	return nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

// stubSource returns canned uploads and records the cutoff it was asked for.
type stubSource struct {
	videos []model.Video
	err    error

	gotChannel string
	gotAfter   time.Time
}

func (s *stubSource) ListUploads(_ context.Context, channelID string, publishedAfter time.Time) ([]model.Video, error) {
	s.gotChannel = channelID
	s.gotAfter = publishedAfter
	return s.videos, s.err
}

// stubResolver returns a fixed place per video ID.
type stubResolver struct {
	byVideo map[string]*model.Place
}

func (s *stubResolver) Resolve(_ context.Context, video *model.Video, _ model.ExtractedSignals) *model.Place {
	return s.byVideo[video.ID]
}

// stubLLM returns a canned extraction or error.
type stubLLM struct {
	extraction *llm.Extraction
	err        error
	calls      int
	lastInput  llm.Input
}

func (s *stubLLM) ExtractChallenge(_ context.Context, in llm.Input) (*llm.Extraction, error) {
	s.calls++
	s.lastInput = in
	return s.extraction, s.err
}

// stubCaptions maps video IDs to caption file paths.
type stubCaptions struct {
	paths map[string]string
}

func (s *stubCaptions) Download(_ context.Context, videoID string) (string, bool) {
	path, ok := s.paths[videoID]
	return path, ok
}
