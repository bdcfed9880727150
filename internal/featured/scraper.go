// Package featured finds Google Maps links a creator placed on a video watch
// page. A link to a map is the strongest location evidence short of recorded
// coordinates, because the creator put it there on purpose.
package featured

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/chowmap/ingest-cli/internal/resilience"
)

// Chrome-like UA. The watch page serves a stripped document to unknown agents.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

var (
	mapURLRe = regexp.MustCompile(`https?://(?:(?:www\.)?google\.[^/\s"'<>]+/maps|maps\.app\.goo\.gl|goo\.gl/maps|g\.page)[^\s"'<>\\]*`)
	coordRe  = regexp.MustCompile(`/@(-?\d+\.\d+),(-?\d+\.\d+)`)
)

// Hint is a map link found on a watch page. Coordinates are present only when
// the link itself carries them.
type Hint struct {
	Name      string
	MapURL    string
	Latitude  *float64
	Longitude *float64
}

// Scraper fetches watch pages and extracts map links.
type Scraper struct {
	httpClient *http.Client
	retry      resilience.RetryConfig
	logger     *zap.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Scraper) { s.httpClient = hc }
}

// WithRetryConfig overrides the fetch retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(s *Scraper) { s.retry = cfg }
}

// NewScraper creates a Scraper.
func NewScraper(opts ...Option) *Scraper {
	s := &Scraper{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		retry:      resilience.DefaultRetryConfig(),
		logger:     zap.L().With(zap.String("component", "featured")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup fetches the watch page and returns the first map link found, or nil.
// Scrape failures of any kind produce nil; the caller falls through to weaker
// location evidence.
func (s *Scraper) Lookup(ctx context.Context, watchURL string) *Hint {
	html, err := s.fetch(ctx, watchURL)
	if err != nil {
		s.logger.Debug("watch page fetch failed",
			zap.String("url", watchURL),
			zap.Error(err))
		return nil
	}

	if hint := findAnchorHint(html); hint != nil {
		return hint
	}
	return findRawURLHint(html)
}

func (s *Scraper) fetch(ctx context.Context, watchURL string) (string, error) {
	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger("featured", "fetch watch page")

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return "", eris.Wrap(err, "featured: build request")
		}
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Accept-Language", "en")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return "", resilience.NewTransientError(eris.Wrap(err, "featured: fetch watch page"), 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("featured: watch page returned status %d", resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return "", resilience.NewTransientError(err, resp.StatusCode)
			}
			return "", err
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", eris.Wrap(err, "featured: read watch page")
		}
		return string(body), nil
	})
}

// findAnchorHint scans anchor tags for a map href and uses the anchor text as
// the place name when the text says more than "maps".
func findAnchorHint(html string) *Hint {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var hint *Hint
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if !mapURLRe.MatchString(href) {
			return true
		}

		h := &Hint{MapURL: href}
		h.Latitude, h.Longitude = parseCoords(href)

		text := strings.TrimSpace(sel.Text())
		if len(text) > 1 && !isGenericAnchorText(text) {
			h.Name = text
		}
		if h.Name == "" {
			h.Name = nameFromPlaceURL(href)
		}

		hint = h
		return false
	})
	return hint
}

// findRawURLHint scans the raw HTML for a map URL outside an anchor. Watch
// pages embed the description links inside script payloads.
func findRawURLHint(html string) *Hint {
	raw := mapURLRe.FindString(html)
	if raw == "" {
		return nil
	}

	h := &Hint{MapURL: raw}
	h.Latitude, h.Longitude = parseCoords(raw)
	h.Name = nameFromPlaceURL(raw)
	return h
}

// nameFromPlaceURL pulls the place name out of a /maps/place/<name>/ path.
func nameFromPlaceURL(mapURL string) string {
	u, err := url.Parse(mapURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg != "place" || i+1 >= len(segments) {
			continue
		}
		name := segments[i+1]
		name = strings.ReplaceAll(name, "+", " ")
		if decoded, err := url.PathUnescape(name); err == nil {
			name = decoded
		}
		return strings.TrimSpace(name)
	}
	return ""
}

func parseCoords(mapURL string) (*float64, *float64) {
	m := coordRe.FindStringSubmatch(mapURL)
	if m == nil {
		return nil, nil
	}
	lat, latErr := strconv.ParseFloat(m[1], 64)
	lng, lngErr := strconv.ParseFloat(m[2], 64)
	if latErr != nil || lngErr != nil {
		return nil, nil
	}
	return &lat, &lng
}

func isGenericAnchorText(text string) bool {
	switch strings.ToLower(text) {
	case "google maps", "maps", "map":
		return true
	}
	return false
}
