package model

// Place source tags, in cascade priority order. Geocoder-derived places carry
// the geocoder's own source name instead.
const (
	PlaceSourceRecording = "recording"
	PlaceSourceFeatured  = "featured"
	PlaceSourceApprox    = "approx"
)

// Place is the single resolved physical location for a challenge attempt.
// (Source, SourceRef) is the de-duplication key: re-resolving the same
// video/source updates the existing row instead of inserting a new one.
type Place struct {
	ID          int64    `json:"id,omitempty"`
	Name        string   `json:"name"`
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city,omitempty"`
	Region      string   `json:"region,omitempty"`
	CountryCode string   `json:"country_code,omitempty"`
	Latitude    *float64 `json:"lat,omitempty"`
	Longitude   *float64 `json:"lng,omitempty"`
	Source      string   `json:"source,omitempty"`
	SourceRef   string   `json:"source_ref,omitempty"`
}

// HasCoordinates reports whether both coordinates are present.
func (p *Place) HasCoordinates() bool {
	return p != nil && p.Latitude != nil && p.Longitude != nil
}
