package featured

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chowmap/ingest-cli/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		Attempts:  3,
		BaseDelay: time.Millisecond,
		MaxDelay:  5 * time.Millisecond,
	}
}

func serveHTML(t *testing.T, html string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html)) //nolint:errcheck
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLookupAnchorWithName(t *testing.T) {
	t.Parallel()

	server := serveHTML(t, `<html><body>
		<a href="https://www.google.com/maps/place/Big+Bob's/@53.4808,-2.2426,15z">Big Bob's Diner</a>
	</body></html>`)

	s := NewScraper(WithRetryConfig(fastRetry()))
	hint := s.Lookup(context.Background(), server.URL)

	require.NotNil(t, hint)
	assert.Equal(t, "Big Bob's Diner", hint.Name)
	require.NotNil(t, hint.Latitude)
	assert.InDelta(t, 53.4808, *hint.Latitude, 1e-6)
	assert.InDelta(t, -2.2426, *hint.Longitude, 1e-6)
}

func TestLookupGenericAnchorTextUsesPlacePath(t *testing.T) {
	t.Parallel()

	server := serveHTML(t, `<html><body>
		<a href="https://www.google.com/maps/place/Fat+Frank%27s/data=xyz">Google Maps</a>
	</body></html>`)

	s := NewScraper(WithRetryConfig(fastRetry()))
	hint := s.Lookup(context.Background(), server.URL)

	require.NotNil(t, hint)
	assert.Equal(t, "Fat Frank's", hint.Name)
	assert.Nil(t, hint.Latitude)
}

func TestLookupRawURLFallback(t *testing.T) {
	t.Parallel()

	server := serveHTML(t, `<html><body>
		<script>var d = {"text": "find us https://maps.app.goo.gl/AbCdEf123"}</script>
	</body></html>`)

	s := NewScraper(WithRetryConfig(fastRetry()))
	hint := s.Lookup(context.Background(), server.URL)

	require.NotNil(t, hint)
	assert.Equal(t, "https://maps.app.goo.gl/AbCdEf123", hint.MapURL)
	assert.Empty(t, hint.Name)
}

func TestLookupShortLinkDomains(t *testing.T) {
	t.Parallel()

	for _, u := range []string{
		"https://goo.gl/maps/xyz",
		"https://g.page/big-bobs",
		"https://google.co.uk/maps/place/Somewhere",
	} {
		assert.True(t, mapURLRe.MatchString(u), u)
	}
	assert.False(t, mapURLRe.MatchString("https://example.com/maps/place/X"))
}

func TestLookupNoMapLink(t *testing.T) {
	t.Parallel()

	server := serveHTML(t, `<html><body><a href="https://example.com">elsewhere</a></body></html>`)

	s := NewScraper(WithRetryConfig(fastRetry()))
	assert.Nil(t, s.Lookup(context.Background(), server.URL))
}

func TestLookupRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`<a href="https://g.page/big-bobs">Big Bob's</a>`)) //nolint:errcheck
	}))
	t.Cleanup(server.Close)

	s := NewScraper(WithRetryConfig(fastRetry()))
	hint := s.Lookup(context.Background(), server.URL)

	require.NotNil(t, hint)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLookupGivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	s := NewScraper(WithRetryConfig(fastRetry()))
	assert.Nil(t, s.Lookup(context.Background(), server.URL))
	assert.Equal(t, int32(3), calls.Load())
}

func TestLookupPermanentStatusDoesNotRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	s := NewScraper(WithRetryConfig(fastRetry()))
	assert.Nil(t, s.Lookup(context.Background(), server.URL))
	assert.Equal(t, int32(1), calls.Load())
}

func TestNameFromPlaceURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://www.google.com/maps/place/Big+Bob's/@53.4,-2.2,15z", "Big Bob's"},
		{"https://www.google.com/maps/place/Fat%20Frank%27s", "Fat Frank's"},
		{"https://www.google.com/maps/@53.4,-2.2,15z", ""},
		{"https://maps.app.goo.gl/AbCdEf", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nameFromPlaceURL(tt.url), tt.url)
	}
}
