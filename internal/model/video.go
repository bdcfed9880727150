package model

import "time"

// Video is a single video record fetched from the platform API.
type Video struct {
	ID                string                  `json:"id"`
	Title             string                  `json:"title"`
	Description       string                  `json:"description"`
	PublishedAt       time.Time               `json:"published_at"`
	DurationSeconds   int                     `json:"duration_seconds,omitempty"`
	CaptionsAvailable bool                    `json:"captions_available"`
	ThumbnailURL      string                  `json:"thumbnail_url,omitempty"`
	ChannelID         string                  `json:"channel_id,omitempty"`
	Tags              []string                `json:"tags,omitempty"`
	Topics            []string                `json:"topics,omitempty"`
	Localizations     map[string]Localization `json:"localizations,omitempty"`
	RecordingLocation *RecordingLocation      `json:"recording_location,omitempty"`
}

// Localization holds a translated title/description pair keyed by language tag.
type Localization struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// RecordingLocation is the structured geodata some videos carry.
// Latitude/Longitude are pointers because the API may return a description
// with no coordinates, or vice versa.
type RecordingLocation struct {
	Latitude    *float64 `json:"lat,omitempty"`
	Longitude   *float64 `json:"lng,omitempty"`
	Description string   `json:"description,omitempty"`
}

// HasCoordinates reports whether both coordinates are present.
func (r *RecordingLocation) HasCoordinates() bool {
	return r != nil && r.Latitude != nil && r.Longitude != nil
}

// WatchURL returns the public watch page URL for the video.
func (v Video) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}
