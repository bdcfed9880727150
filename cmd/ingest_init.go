package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/chowmap/ingest-cli/internal/extract"
	"github.com/chowmap/ingest-cli/internal/featured"
	"github.com/chowmap/ingest-cli/internal/pipeline"
	"github.com/chowmap/ingest-cli/internal/places"
	"github.com/chowmap/ingest-cli/internal/store"
	"github.com/chowmap/ingest-cli/pkg/geocode"
	"github.com/chowmap/ingest-cli/pkg/llm"
	"github.com/chowmap/ingest-cli/pkg/youtube"
)

// ingestEnv holds the initialized store and pipeline shared by the
// backfill/refresh/prototype commands.
type ingestEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *ingestEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initIngest sets up the store, the YouTube client, the extraction and
// place-resolution stages, and builds the Pipeline. Callers should defer
// env.Close().
func initIngest(ctx context.Context) (*ingestEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	ytClient, err := youtube.NewClient(cfg.YouTube.APIKey)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	extractor, err := initExtractor()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	resolver := places.NewResolver(
		places.WithGeocoder(initGeocoder()),
		places.WithMapLinkFinder(featured.NewScraper()),
	)

	opts := []pipeline.Option{}

	downloader, err := youtube.NewCaptionDownloader(cfg.Captions.Dir,
		youtube.WithYtDlpPath(cfg.Captions.YtDlpPath))
	if err != nil {
		zap.L().Warn("caption downloader init failed, transcripts disabled", zap.Error(err))
	} else {
		opts = append(opts, pipeline.WithCaptionFetcher(downloader))
	}

	if cfg.LLM.Enabled {
		aiClient, err := llm.NewClient(cfg.LLM.APIKey,
			llm.WithModel(cfg.LLM.Model),
			llm.WithMaxTokens(cfg.LLM.MaxTokens))
		if err != nil {
			zap.L().Warn("llm client init failed, heuristics only", zap.Error(err))
		} else {
			opts = append(opts, pipeline.WithLLM(aiClient))
			zap.L().Info("llm extraction enabled", zap.String("model", cfg.LLM.Model))
		}
	}

	p := pipeline.New(cfg, st, ytClient, extractor, resolver, opts...)

	return &ingestEnv{Store: st, Pipeline: p}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	dsn := cfg.Store.Path
	if cfg.Store.Driver == "postgres" {
		dsn = cfg.Store.DatabaseURL
	}
	st, err := store.New(ctx, cfg.Store.Driver, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	zap.L().Info("store initialized", zap.String("driver", cfg.Store.Driver))
	return st, nil
}

func initExtractor() (*extract.Extractor, error) {
	if cfg.Extract.GazetteerPath == "" {
		return extract.New(), nil
	}
	gaz, err := extract.LoadGazetteer(cfg.Extract.GazetteerPath)
	if err != nil {
		return nil, eris.Wrap(err, "load gazetteer")
	}
	zap.L().Info("gazetteer loaded", zap.String("path", cfg.Extract.GazetteerPath))
	return extract.New(extract.WithGazetteer(gaz)), nil
}

func initGeocoder() geocode.Client {
	opts := []geocode.Option{
		geocode.WithRateLimit(cfg.Geocode.RatePerSec),
	}
	if cfg.Geocode.APIKey != "" {
		opts = append(opts, geocode.WithAPIKey(cfg.Geocode.APIKey))
	}
	if cfg.Geocode.TimeoutSecs > 0 {
		opts = append(opts, geocode.WithHTTPClient(
			&http.Client{Timeout: time.Duration(cfg.Geocode.TimeoutSecs) * time.Second}))
	}
	return geocode.NewClient(opts...)
}
