// Package publish renders stored challenges into static map artifacts:
// a GeoJSON FeatureCollection for located challenges, a JSON table of
// every challenge, and an optional XLSX export.
package publish

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/chowmap/ingest-cli/internal/model"
	"github.com/chowmap/ingest-cli/internal/store"
)

const (
	geoJSONFile = "challenges.geojson"
	tableFile   = "table.json"
	xlsxFile    = "challenges.xlsx"
)

// Publisher writes challenge artifacts to an output directory.
type Publisher struct {
	outDir   string
	withXLSX bool
	logger   *zap.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithXLSX enables the spreadsheet export alongside the JSON artifacts.
func WithXLSX(enabled bool) Option {
	return func(p *Publisher) { p.withXLSX = enabled }
}

// New creates a Publisher targeting outDir.
func New(outDir string, opts ...Option) *Publisher {
	p := &Publisher{
		outDir: outDir,
		logger: zap.L().With(zap.String("component", "publish")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Summary reports what a publish pass produced.
type Summary struct {
	GeoFeatures int      `json:"geo_features"`
	TableRows   int      `json:"table_rows"`
	Files       []string `json:"files"`
}

// tableRow is the flat shape the frontend table consumes.
type tableRow struct {
	VideoID       string                 `json:"video_id"`
	VideoTitle    string                 `json:"video_title"`
	VideoURL      string                 `json:"video_url"`
	ThumbnailURL  string                 `json:"thumbnail_url,omitempty"`
	PublishedAt   time.Time              `json:"published_at"`
	DateAttempted *time.Time             `json:"date_attempted,omitempty"`
	Result        model.ChallengeResult  `json:"result"`
	ChallengeType model.ChallengeType    `json:"challenge_type,omitempty"`
	FoodType      string                 `json:"food_type,omitempty"`
	Confidence    float64                `json:"confidence"`
	Provenance    model.ExtractionSource `json:"provenance"`
	Scores        model.DifficultyScores `json:"scores"`
	Place         *model.Place           `json:"place,omitempty"`
}

// Publish writes every artifact for the given rows and returns a summary.
func (p *Publisher) Publish(rows []store.ChallengeRow) (*Summary, error) {
	if err := os.MkdirAll(p.outDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "publish: create output dir")
	}

	summary := &Summary{}

	features, err := p.writeGeoJSON(rows)
	if err != nil {
		return nil, err
	}
	summary.GeoFeatures = features
	summary.Files = append(summary.Files, filepath.Join(p.outDir, geoJSONFile))

	if err := p.writeTable(rows); err != nil {
		return nil, err
	}
	summary.TableRows = len(rows)
	summary.Files = append(summary.Files, filepath.Join(p.outDir, tableFile))

	if p.withXLSX {
		if err := p.writeXLSX(rows); err != nil {
			return nil, err
		}
		summary.Files = append(summary.Files, filepath.Join(p.outDir, xlsxFile))
	}

	p.logger.Info("artifacts published",
		zap.Int("geo_features", summary.GeoFeatures),
		zap.Int("table_rows", summary.TableRows),
		zap.String("out_dir", p.outDir))
	return summary, nil
}

// writeGeoJSON emits a FeatureCollection containing only challenges whose
// place has coordinates. Coordless rows still appear in the table artifact.
func (p *Publisher) writeGeoJSON(rows []store.ChallengeRow) (int, error) {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	for _, row := range rows {
		if row.Place == nil || !row.Place.HasCoordinates() {
			continue
		}

		props := map[string]any{
			"video_id":    row.Challenge.VideoID,
			"video_title": row.VideoTitle,
			"video_url":   row.VideoURL,
			"place_name":  row.Place.Name,
			"result":      string(row.Challenge.Result),
			"confidence":  row.Challenge.Confidence,
			"provenance":  string(row.Challenge.Provenance),
		}
		if row.ThumbnailURL != "" {
			props["thumbnail_url"] = row.ThumbnailURL
		}
		if row.Challenge.ChallengeType != "" {
			props["challenge_type"] = string(row.Challenge.ChallengeType)
		}
		if row.Challenge.FoodType != "" {
			props["food_type"] = row.Challenge.FoodType
		}
		if row.Place.City != "" {
			props["city"] = row.Place.City
		}
		if row.Place.CountryCode != "" {
			props["country_code"] = row.Place.CountryCode
		}
		if !row.Challenge.DateAttempted.IsZero() {
			props["date_attempted"] = row.Challenge.DateAttempted.Format("2006-01-02")
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			ID: strconv.FormatInt(row.Challenge.ID, 10),
			Geometry: geom.NewPointFlat(geom.XY, []float64{
				*row.Place.Longitude, *row.Place.Latitude,
			}),
			Properties: props,
		})
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return 0, eris.Wrap(err, "publish: marshal geojson")
	}
	path := filepath.Join(p.outDir, geoJSONFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, eris.Wrap(err, "publish: write geojson")
	}
	return len(fc.Features), nil
}

func (p *Publisher) writeTable(rows []store.ChallengeRow) error {
	table := make([]tableRow, 0, len(rows))
	for _, row := range rows {
		tr := tableRow{
			VideoID:       row.Challenge.VideoID,
			VideoTitle:    row.VideoTitle,
			VideoURL:      row.VideoURL,
			ThumbnailURL:  row.ThumbnailURL,
			PublishedAt:   row.PublishedAt,
			Result:        row.Challenge.Result,
			ChallengeType: row.Challenge.ChallengeType,
			FoodType:      row.Challenge.FoodType,
			Confidence:    row.Challenge.Confidence,
			Provenance:    row.Challenge.Provenance,
			Scores:        row.Challenge.Scores,
			Place:         row.Place,
		}
		if !row.Challenge.DateAttempted.IsZero() {
			d := row.Challenge.DateAttempted
			tr.DateAttempted = &d
		}
		table = append(table, tr)
	}

	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return eris.Wrap(err, "publish: marshal table")
	}
	path := filepath.Join(p.outDir, tableFile)
	return eris.Wrap(os.WriteFile(path, data, 0o644), "publish: write table")
}

var xlsxHeader = []string{
	"Video ID", "Title", "Published", "Result", "Type", "Food",
	"Place", "City", "Country", "Latitude", "Longitude", "Confidence", "URL",
}

func (p *Publisher) writeXLSX(rows []store.ChallengeRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Challenges")
	if err != nil {
		return eris.Wrap(err, "publish: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range xlsxHeader {
		header.AddCell().SetString(col)
	}

	for _, row := range rows {
		r := sheet.AddRow()
		r.AddCell().SetString(row.Challenge.VideoID)
		r.AddCell().SetString(row.VideoTitle)
		r.AddCell().SetString(row.PublishedAt.Format("2006-01-02"))
		r.AddCell().SetString(string(row.Challenge.Result))
		r.AddCell().SetString(string(row.Challenge.ChallengeType))
		r.AddCell().SetString(row.Challenge.FoodType)
		if row.Place != nil {
			r.AddCell().SetString(row.Place.Name)
			r.AddCell().SetString(row.Place.City)
			r.AddCell().SetString(row.Place.CountryCode)
			if row.Place.HasCoordinates() {
				r.AddCell().SetFloat(*row.Place.Latitude)
				r.AddCell().SetFloat(*row.Place.Longitude)
			} else {
				r.AddCell()
				r.AddCell()
			}
		} else {
			for i := 0; i < 5; i++ {
				r.AddCell()
			}
		}
		r.AddCell().SetFloat(row.Challenge.Confidence)
		r.AddCell().SetString(row.VideoURL)
	}

	path := filepath.Join(p.outDir, xlsxFile)
	return eris.Wrap(f.Save(path), "publish: write xlsx")
}
