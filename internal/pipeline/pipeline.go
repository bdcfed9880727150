// Package pipeline orchestrates the ingest flow: list channel uploads,
// extract challenge signals per video, resolve a place, and persist the
// result. One bad video never halts a run.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/chowmap/ingest-cli/internal/captions"
	"github.com/chowmap/ingest-cli/internal/config"
	"github.com/chowmap/ingest-cli/internal/extract"
	"github.com/chowmap/ingest-cli/internal/model"
	"github.com/chowmap/ingest-cli/internal/store"
	"github.com/chowmap/ingest-cli/pkg/llm"
)

// VideoSource lists a channel's uploads. Implemented by youtube.Client.
type VideoSource interface {
	ListUploads(ctx context.Context, channelID string, publishedAfter time.Time) ([]model.Video, error)
}

// CaptionFetcher fetches a caption file for a video, returning its local
// path. Implemented by youtube.CaptionDownloader.
type CaptionFetcher interface {
	Download(ctx context.Context, videoID string) (string, bool)
}

// PlaceResolver resolves a video plus its signals to a place, or nil when
// no tier qualifies. Implemented by places.Resolver.
type PlaceResolver interface {
	Resolve(ctx context.Context, video *model.Video, sig model.ExtractedSignals) *model.Place
}

// Pipeline wires the ingest stages together.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	source    VideoSource
	captions  CaptionFetcher
	extractor *extract.Extractor
	llm       llm.Extractor
	resolver  PlaceResolver
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCaptionFetcher enables caption-based transcript intros.
func WithCaptionFetcher(f CaptionFetcher) Option {
	return func(p *Pipeline) { p.captions = f }
}

// WithLLM enables the LLM extraction pass over heuristic results.
func WithLLM(ext llm.Extractor) Option {
	return func(p *Pipeline) { p.llm = ext }
}

// New creates a Pipeline. Source, extractor, and resolver are required;
// captions and LLM are optional stages.
func New(cfg *config.Config, st store.Store, source VideoSource, extractor *extract.Extractor, resolver PlaceResolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		store:     st,
		source:    source,
		extractor: extractor,
		resolver:  resolver,
		logger:    zap.L().With(zap.String("component", "pipeline")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunStats summarizes one batch invocation.
type RunStats struct {
	RunID     string
	Listed    int
	Processed int
	Skipped   int
	Failed    int
}

// Backfill ingests the channel's full upload history.
func (p *Pipeline) Backfill(ctx context.Context) (*RunStats, error) {
	return p.run(ctx, time.Time{})
}

// Refresh ingests uploads published in the configured recent window.
func (p *Pipeline) Refresh(ctx context.Context) (*RunStats, error) {
	since := time.Now().UTC().AddDate(0, 0, -p.cfg.Pipeline.SinceDays)
	return p.run(ctx, since)
}

func (p *Pipeline) run(ctx context.Context, publishedAfter time.Time) (*RunStats, error) {
	run, err := p.store.CreateRun(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	videos, err := p.source.ListUploads(ctx, p.cfg.YouTube.ChannelID, publishedAfter)
	if err != nil {
		if finishErr := p.store.FinishRun(ctx, run.ID, 0, 0); finishErr != nil {
			p.logger.Warn("finish run failed", zap.Error(finishErr))
		}
		return nil, eris.Wrap(err, "pipeline: list uploads")
	}

	stats := &RunStats{RunID: run.ID, Listed: len(videos)}
	for i := range videos {
		if ctx.Err() != nil {
			break
		}
		video := videos[i]
		log := p.logger.With(zap.String("video_id", video.ID))

		result, err := p.processVideo(ctx, &video)
		switch {
		case err != nil:
			stats.Failed++
			log.Error("video failed", zap.Error(err))
		case result == outcomeSkipped:
			stats.Skipped++
			log.Debug("video already ingested")
		default:
			stats.Processed++
			log.Info("video ingested")
		}
	}

	if err := p.store.FinishRun(ctx, run.ID, stats.Processed, stats.Failed); err != nil {
		p.logger.Warn("finish run failed", zap.String("run_id", run.ID), zap.Error(err))
	}

	p.logger.Info("run complete",
		zap.String("run_id", run.ID),
		zap.Int("listed", stats.Listed),
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed))
	return stats, ctx.Err()
}

type outcome int

const (
	outcomeIngested outcome = iota
	outcomeSkipped
)

// processVideo runs the full per-video flow. The video row is always
// upserted so metadata stays fresh; the challenge insert is gated on the
// video not having one already.
func (p *Pipeline) processVideo(ctx context.Context, video *model.Video) (outcome, error) {
	if err := p.store.UpsertVideo(ctx, *video); err != nil {
		return 0, err
	}

	exists, err := p.store.ChallengeExists(ctx, video.ID)
	if err != nil {
		return 0, err
	}
	if exists {
		return outcomeSkipped, nil
	}

	sig := p.extractSignals(ctx, video)

	var placeID *int64
	if place := p.resolver.Resolve(ctx, video, sig); place != nil {
		id, err := p.store.UpsertPlace(ctx, *place)
		if err != nil {
			return 0, err
		}
		placeID = &id
	}

	if _, err := p.store.InsertChallenge(ctx, buildChallenge(video.ID, placeID, sig)); err != nil {
		return 0, err
	}
	return outcomeIngested, nil
}

// extractSignals runs heuristics, then the optional LLM pass. LLM failures
// are logged and the heuristic result stands.
func (p *Pipeline) extractSignals(ctx context.Context, video *model.Video) model.ExtractedSignals {
	transcript := p.transcriptIntro(ctx, video)

	sig := p.extractor.Extract(extract.SourceText{
		Title:         video.Title,
		Description:   video.Description,
		Tags:          video.Tags,
		Localizations: video.Localizations,
	}, video.PublishedAt)

	if p.llm == nil {
		return sig
	}

	ext, err := p.llm.ExtractChallenge(ctx, llm.Input{
		Title:       video.Title,
		Description: video.Description,
		Tags:        video.Tags,
		Transcript:  transcript,
	})
	if err != nil {
		p.logger.Warn("llm extraction failed, keeping heuristics",
			zap.String("video_id", video.ID), zap.Error(err))
		return sig
	}
	return extract.Merge(sig, ext)
}

// transcriptIntro downloads captions and clips the intro window. Any
// failure yields an empty transcript.
func (p *Pipeline) transcriptIntro(ctx context.Context, video *model.Video) string {
	if p.captions == nil || !video.CaptionsAvailable {
		return ""
	}
	path, ok := p.captions.Download(ctx, video.ID)
	if !ok {
		return ""
	}
	intro, ok := captions.ExtractIntroFile(path, p.cfg.Captions.MaxDurationSecs, p.cfg.Captions.MaxWords)
	if !ok {
		return ""
	}
	return intro.Text
}

func buildChallenge(videoID string, placeID *int64, sig model.ExtractedSignals) model.Challenge {
	return model.Challenge{
		VideoID:       videoID,
		PlaceID:       placeID,
		DateAttempted: sig.DateAttempted,
		Result:        sig.Result,
		ChallengeType: sig.ChallengeType,
		FoodType:      sig.FoodType,
		Provenance:    sig.Provenance,
		Confidence:    sig.Confidence,
		Scores:        sig.Scores,
	}
}
