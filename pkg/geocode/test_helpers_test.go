package geocode

import (
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// newTestLimiter creates a rate limiter that effectively does not limit.
func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// newRewriteClient creates an HTTP client that redirects requests matching
// any of the given URL prefixes to the corresponding test server.
func newRewriteClient(rewrites map[string]string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:     http.DefaultTransport,
			rewrites: rewrites,
		},
	}
}

type rewriteTransport struct {
	base     http.RoundTripper
	rewrites map[string]string // target prefix → test server URL
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	for prefix, server := range t.rewrites {
		if !strings.HasPrefix(origURL, prefix) {
			continue
		}
		newURL := server + origURL[len(prefix):]
		newReq := req.Clone(req.Context())
		parsed, err := req.URL.Parse(newURL)
		if err != nil {
			return nil, err
		}
		newReq.URL = parsed
		newReq.Host = parsed.Host
		return t.base.RoundTrip(newReq)
	}
	return t.base.RoundTrip(req)
}
