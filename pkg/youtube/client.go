// Package youtube lists a channel's uploads via the YouTube Data API v3 and
// fetches caption tracks with yt-dlp.
package youtube

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/chowmap/ingest-cli/internal/model"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"

	pageSize      = 50
	videoBatchMax = 50
)

// Client calls the YouTube Data API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// NewClient creates a Data API client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, eris.New("youtube: api key is required")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		logger:     zap.L().With(zap.String("component", "youtube")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListUploads returns every upload of the channel published at or after the
// cutoff, newest first as the API serves them. A zero cutoff lists the whole
// channel.
func (c *Client) ListUploads(ctx context.Context, channelID string, publishedAfter time.Time) ([]model.Video, error) {
	playlistID, err := c.uploadsPlaylistID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	ids, err := c.playlistVideoIDs(ctx, playlistID, publishedAfter)
	if err != nil {
		return nil, err
	}

	videos, err := c.hydrateVideos(ctx, ids)
	if err != nil {
		return nil, err
	}

	c.logger.Info("listed channel uploads",
		zap.String("channel_id", channelID),
		zap.Int("count", len(videos)))
	return videos, nil
}

// uploadsPlaylistID resolves the channel's uploads playlist.
func (c *Client) uploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	params := url.Values{
		"part": {"contentDetails"},
		"id":   {channelID},
	}

	var resp channelListResponse
	if err := c.get(ctx, "/channels", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", eris.Errorf("youtube: channel %s not found", channelID)
	}

	id := resp.Items[0].ContentDetails.RelatedPlaylists.Uploads
	if id == "" {
		return "", eris.Errorf("youtube: channel %s has no uploads playlist", channelID)
	}
	return id, nil
}

// playlistVideoIDs pages through the uploads playlist. Paging stops once a
// full page falls before the cutoff, since uploads playlists are ordered
// newest first.
func (c *Client) playlistVideoIDs(ctx context.Context, playlistID string, publishedAfter time.Time) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		params := url.Values{
			"part":       {"contentDetails"},
			"playlistId": {playlistID},
			"maxResults": {"50"},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp playlistItemsResponse
		if err := c.get(ctx, "/playlistItems", params, &resp); err != nil {
			return nil, err
		}

		pageAllOld := len(resp.Items) > 0
		for _, item := range resp.Items {
			publishedAt := item.ContentDetails.VideoPublishedAt
			if !publishedAfter.IsZero() && !publishedAt.IsZero() && publishedAt.Before(publishedAfter) {
				continue
			}
			pageAllOld = false
			ids = append(ids, item.ContentDetails.VideoID)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" || (pageAllOld && !publishedAfter.IsZero()) {
			return ids, nil
		}
	}
}

// hydrateVideos fetches full metadata in batches of 50.
func (c *Client) hydrateVideos(ctx context.Context, ids []string) ([]model.Video, error) {
	videos := make([]model.Video, 0, len(ids))

	for start := 0; start < len(ids); start += videoBatchMax {
		end := start + videoBatchMax
		if end > len(ids) {
			end = len(ids)
		}

		params := url.Values{
			"part": {"snippet,contentDetails,recordingDetails,localizations,topicDetails"},
			"id":   {strings.Join(ids[start:end], ",")},
		}

		var resp videoListResponse
		if err := c.get(ctx, "/videos", params, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			videos = append(videos, item.toModel())
		}
	}

	return videos, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.apiKey)
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrapf(err, "youtube: build request %s", path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrapf(err, "youtube: request %s", path)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "youtube: read response %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("youtube: %s returned status %d", path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "youtube: parse response %s", path)
	}
	return nil
}
