// Package places turns location evidence for a video into a concrete place.
// Evidence sources are ranked: recorded coordinates beat a creator-placed map
// link, which beats geocoding the venue name, which beats a city-level
// approximation. The first tier that qualifies wins.
package places

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/chowmap/ingest-cli/internal/featured"
	"github.com/chowmap/ingest-cli/internal/model"
	"github.com/chowmap/ingest-cli/pkg/geocode"
)

// MapLinkFinder finds a creator-placed map link for a video.
type MapLinkFinder interface {
	Lookup(ctx context.Context, watchURL string) *featured.Hint
}

// Resolver resolves videos to places. Both collaborators are optional; a nil
// geocoder disables the geocoding tiers, a nil finder disables the map-link
// tier.
type Resolver struct {
	geocoder geocode.Client
	finder   MapLinkFinder
	logger   *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithGeocoder enables the geocoding tiers.
func WithGeocoder(c geocode.Client) Option {
	return func(r *Resolver) { r.geocoder = c }
}

// WithMapLinkFinder enables the featured map-link tier.
func WithMapLinkFinder(f MapLinkFinder) Option {
	return func(r *Resolver) { r.finder = f }
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		logger: zap.L().With(zap.String("component", "places")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve walks the evidence tiers in priority order and returns the first
// qualifying place, or nil when no tier qualifies.
func (r *Resolver) Resolve(ctx context.Context, video *model.Video, sig model.ExtractedSignals) *model.Place {
	if p := r.fromRecording(video, sig); p != nil {
		return p
	}
	if p := r.fromFeaturedLink(ctx, video, sig); p != nil {
		return p
	}
	if p := r.fromRestaurantGeocode(ctx, sig); p != nil {
		return p
	}
	if p := r.fromApproxGeocode(ctx, sig); p != nil {
		return p
	}

	r.logger.Debug("no place resolved", zap.String("video_id", video.ID))
	return nil
}

// fromRecording uses coordinates the creator recorded on the upload itself.
func (r *Resolver) fromRecording(video *model.Video, sig model.ExtractedSignals) *model.Place {
	rec := video.RecordingLocation
	if rec == nil || !rec.HasCoordinates() {
		return nil
	}

	name := sig.RestaurantName
	if name == "" {
		name = rec.Description
	}
	if name == "" {
		city := sig.City
		if city == "" {
			city = "Unknown"
		}
		name = city + " (Recording Location)"
	}

	return &model.Place{
		Name:        name,
		City:        sig.City,
		CountryCode: sig.Country,
		Latitude:    rec.Latitude,
		Longitude:   rec.Longitude,
		Source:      model.PlaceSourceRecording,
		SourceRef:   video.ID,
	}
}

// fromFeaturedLink uses a map link found on the watch page. A link without
// coordinates is still a qualifying place; geocoding may fill the gaps but
// never overwrites what the link itself said, and an enrichment failure never
// disqualifies the tier.
func (r *Resolver) fromFeaturedLink(ctx context.Context, video *model.Video, sig model.ExtractedSignals) *model.Place {
	if r.finder == nil {
		return nil
	}
	hint := r.finder.Lookup(ctx, video.WatchURL())
	if hint == nil {
		return nil
	}

	name := hint.Name
	if name == "" {
		name = sig.RestaurantName
	}
	if name == "" {
		name = "Featured Location"
	}

	place := &model.Place{
		Name:        name,
		City:        sig.City,
		CountryCode: sig.Country,
		Latitude:    hint.Latitude,
		Longitude:   hint.Longitude,
		Source:      model.PlaceSourceFeatured,
		SourceRef:   video.ID,
	}

	if !place.HasCoordinates() && r.geocoder != nil {
		r.enrichFromGeocode(ctx, place, buildQuery(name, sig.City, sig.Country))
	}
	return place
}

// enrichFromGeocode fills only the fields still missing on place.
func (r *Resolver) enrichFromGeocode(ctx context.Context, place *model.Place, query string) {
	result, err := r.geocoder.Geocode(ctx, query)
	if err != nil || result == nil || !result.Matched {
		r.logger.Debug("featured enrichment geocode missed", zap.String("query", query))
		return
	}

	if !place.HasCoordinates() {
		lat, lng := result.Latitude, result.Longitude
		place.Latitude, place.Longitude = &lat, &lng
	}
	if place.Address == "" {
		place.Address = result.Name
	}
	if place.City == "" {
		place.City = result.City
	}
	if place.Region == "" {
		place.Region = result.Region
	}
	if place.CountryCode == "" {
		place.CountryCode = result.CountryCode
	}
}

// fromRestaurantGeocode geocodes the extracted venue name.
func (r *Resolver) fromRestaurantGeocode(ctx context.Context, sig model.ExtractedSignals) *model.Place {
	if r.geocoder == nil || sig.RestaurantName == "" {
		return nil
	}

	query := buildQuery(sig.RestaurantName, sig.City, sig.Country)
	result, err := r.geocoder.Geocode(ctx, query)
	if err != nil || result == nil || !result.Matched {
		return nil
	}

	city := result.City
	if city == "" {
		city = sig.City
	}
	country := result.CountryCode
	if country == "" {
		country = sig.Country
	}

	lat, lng := result.Latitude, result.Longitude
	return &model.Place{
		Name:        sig.RestaurantName,
		Address:     result.Name,
		City:        city,
		Region:      result.Region,
		CountryCode: country,
		Latitude:    &lat,
		Longitude:   &lng,
		Source:      result.Source,
		SourceRef:   result.SourceRef,
	}
}

// fromApproxGeocode geocodes just the city or country. The result only
// qualifies with coordinates, because an approximate place is worthless
// without a point to put on the map.
func (r *Resolver) fromApproxGeocode(ctx context.Context, sig model.ExtractedSignals) *model.Place {
	if r.geocoder == nil || (sig.City == "" && sig.Country == "") {
		return nil
	}

	query := joinNonEmpty(", ", sig.City, sig.Country)
	result, err := r.geocoder.Geocode(ctx, query)
	if err != nil || result == nil || !result.Matched {
		return nil
	}

	label := sig.City
	if label == "" {
		label = sig.Country
	}

	lat, lng := result.Latitude, result.Longitude
	return &model.Place{
		Name:        label + " (approx)",
		City:        sig.City,
		Region:      result.Region,
		CountryCode: sig.Country,
		Latitude:    &lat,
		Longitude:   &lng,
		Source:      model.PlaceSourceApprox,
		SourceRef:   query,
	}
}

func buildQuery(parts ...string) string {
	return joinNonEmpty(" ", parts...)
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
