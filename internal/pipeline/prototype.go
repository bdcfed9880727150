package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/chowmap/ingest-cli/internal/model"
)

// PrototypeRow pairs a video with everything the pipeline derived for it.
type PrototypeRow struct {
	VideoID     string                 `json:"video_id"`
	Title       string                 `json:"title"`
	WatchURL    string                 `json:"watch_url"`
	PublishedAt string                 `json:"published_at"`
	Signals     model.ExtractedSignals `json:"signals"`
	Place       *model.Place           `json:"place,omitempty"`
}

// Prototype runs extraction and place resolution over the newest uploads
// without touching the store. Useful for eyeballing heuristic quality.
func (p *Pipeline) Prototype(ctx context.Context, limit int) ([]PrototypeRow, error) {
	if limit <= 0 {
		limit = p.cfg.Pipeline.PrototypeLimit
	}

	videos, err := p.source.ListUploads(ctx, p.cfg.YouTube.ChannelID, time.Time{})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list uploads")
	}
	if len(videos) > limit {
		videos = videos[:limit]
	}

	rows := make([]PrototypeRow, 0, len(videos))
	for i := range videos {
		if ctx.Err() != nil {
			return rows, ctx.Err()
		}
		video := videos[i]
		sig := p.extractSignals(ctx, &video)
		place := p.resolver.Resolve(ctx, &video, sig)

		rows = append(rows, PrototypeRow{
			VideoID:     video.ID,
			Title:       video.Title,
			WatchURL:    video.WatchURL(),
			PublishedAt: video.PublishedAt.Format("2006-01-02"),
			Signals:     sig,
			Place:       place,
		})
		p.logger.Debug("prototype row",
			zap.String("video_id", video.ID),
			zap.String("restaurant", sig.RestaurantName),
			zap.Float64("confidence", sig.Confidence))
	}
	return rows, nil
}
