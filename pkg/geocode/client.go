// Package geocode resolves free-text place queries via OpenCage (primary)
// and Nominatim (fallback).
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Client geocodes free-text queries such as "Big Bob's Manchester UK".
type Client interface {
	// Geocode resolves a single query. An unmatched query is not an error.
	Geocode(ctx context.Context, query string) (*Result, error)

	// BatchGeocode resolves multiple queries, preserving order.
	BatchGeocode(ctx context.Context, queries []string) ([]Result, error)
}

// Result holds the geocoding output for one query.
type Result struct {
	Latitude    float64
	Longitude   float64
	Name        string // formatted place name from the provider
	City        string
	Region      string
	CountryCode string // upper-cased two-letter code
	Source      string // "opencage" or "nominatim"
	SourceRef   string // provider-stable reference for the match
	Matched     bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithAPIKey sets the OpenCage API key. Without a key only Nominatim is used.
func WithAPIKey(key string) Option {
	return func(g *geocoder) {
		g.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client for all provider requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit shared by both providers.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithBatchConcurrency sets the max parallel calls for BatchGeocode.
func WithBatchConcurrency(n int) Option {
	return func(g *geocoder) {
		if n > 0 {
			g.batchConcurrency = n
		}
	}
}

type geocoder struct {
	httpClient       *http.Client
	apiKey           string
	limiter          *rate.Limiter
	batchConcurrency int
}

// NewClient creates a geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient:       &http.Client{Timeout: 15 * time.Second},
		limiter:          rate.NewLimiter(1, 1), // free tiers of both providers want ~1 req/s
		batchConcurrency: 4,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode tries OpenCage first when a key is configured, then Nominatim.
func (g *geocoder) Geocode(ctx context.Context, query string) (*Result, error) {
	if query == "" {
		return &Result{Matched: false}, nil
	}

	if g.apiKey != "" {
		result, err := g.geocodeOpenCage(ctx, query)
		if err == nil && result.Matched {
			return result, nil
		}
	}

	result, err := g.geocodeNominatim(ctx, query)
	if err == nil && result.Matched {
		return result, nil
	}

	// No match from any provider. Only surface context cancellation.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return &Result{Matched: false}, nil
}

// BatchGeocode resolves queries in parallel. Individual failures produce
// unmatched results instead of failing the batch.
func (g *geocoder) BatchGeocode(ctx context.Context, queries []string) ([]Result, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	results := make([]Result, len(queries))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.batchConcurrency)

	for i, q := range queries {
		eg.Go(func() error {
			r, err := g.Geocode(gCtx, q)
			if err != nil || r == nil {
				results[i] = Result{Matched: false}
				return nil
			}
			results[i] = *r
			return nil
		})
	}

	_ = eg.Wait()
	return results, nil
}
