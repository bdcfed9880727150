package places

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chowmap/ingest-cli/internal/featured"
	"github.com/chowmap/ingest-cli/internal/model"
	"github.com/chowmap/ingest-cli/pkg/geocode"
)

type stubGeocoder struct {
	results map[string]*geocode.Result
	queries []string
}

func (s *stubGeocoder) Geocode(_ context.Context, query string) (*geocode.Result, error) {
	s.queries = append(s.queries, query)
	if r, ok := s.results[query]; ok {
		return r, nil
	}
	return &geocode.Result{Matched: false}, nil
}

func (s *stubGeocoder) BatchGeocode(ctx context.Context, queries []string) ([]geocode.Result, error) {
	out := make([]geocode.Result, len(queries))
	for i, q := range queries {
		r, _ := s.Geocode(ctx, q)
		out[i] = *r
	}
	return out, nil
}

type stubFinder struct {
	hint *featured.Hint
}

func (s *stubFinder) Lookup(context.Context, string) *featured.Hint {
	return s.hint
}

func floatPtr(f float64) *float64 { return &f }

func videoFixture() *model.Video {
	return &model.Video{ID: "vid123", Title: "some challenge"}
}

func TestResolveRecordingWins(t *testing.T) {
	t.Parallel()

	video := videoFixture()
	video.RecordingLocation = &model.RecordingLocation{
		Latitude:  floatPtr(53.48),
		Longitude: floatPtr(-2.24),
	}

	// Even with a map link and a geocoder available, recorded coordinates win.
	geo := &stubGeocoder{}
	r := NewResolver(
		WithGeocoder(geo),
		WithMapLinkFinder(&stubFinder{hint: &featured.Hint{MapURL: "https://g.page/x", Name: "Other"}}),
	)

	place := r.Resolve(context.Background(), video, model.ExtractedSignals{
		RestaurantName: "Big Bob's",
		City:           "Manchester",
		Country:        "UK",
	})

	require.NotNil(t, place)
	assert.Equal(t, model.PlaceSourceRecording, place.Source)
	assert.Equal(t, "Big Bob's", place.Name)
	assert.Equal(t, "vid123", place.SourceRef)
	assert.Equal(t, 53.48, *place.Latitude)
	assert.Empty(t, geo.queries)
}

func TestResolveRecordingNameFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sig      model.ExtractedSignals
		rec      model.RecordingLocation
		wantName string
	}{
		{
			name:     "recording description",
			rec:      model.RecordingLocation{Latitude: floatPtr(1), Longitude: floatPtr(2), Description: "Bob's back room"},
			wantName: "Bob's back room",
		},
		{
			name:     "city placeholder",
			sig:      model.ExtractedSignals{City: "Oslo"},
			rec:      model.RecordingLocation{Latitude: floatPtr(1), Longitude: floatPtr(2)},
			wantName: "Oslo (Recording Location)",
		},
		{
			name:     "unknown placeholder",
			rec:      model.RecordingLocation{Latitude: floatPtr(1), Longitude: floatPtr(2)},
			wantName: "Unknown (Recording Location)",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			video := videoFixture()
			video.RecordingLocation = &tt.rec

			place := NewResolver().Resolve(context.Background(), video, tt.sig)
			require.NotNil(t, place)
			assert.Equal(t, tt.wantName, place.Name)
		})
	}
}

func TestResolveFeaturedLink(t *testing.T) {
	t.Parallel()

	r := NewResolver(WithMapLinkFinder(&stubFinder{hint: &featured.Hint{
		Name:      "Big Bob's",
		MapURL:    "https://www.google.com/maps/place/Big+Bob's/@53.48,-2.24,15z",
		Latitude:  floatPtr(53.48),
		Longitude: floatPtr(-2.24),
	}}))

	place := r.Resolve(context.Background(), videoFixture(), model.ExtractedSignals{City: "Manchester"})

	require.NotNil(t, place)
	assert.Equal(t, model.PlaceSourceFeatured, place.Source)
	assert.Equal(t, "Big Bob's", place.Name)
	assert.Equal(t, "vid123", place.SourceRef, "featured places key on the video, not the link")
	assert.True(t, place.HasCoordinates())
}

func TestResolveFeaturedEnrichmentFillsOnlyMissing(t *testing.T) {
	t.Parallel()

	geo := &stubGeocoder{results: map[string]*geocode.Result{
		"Big Bob's Manchester UK": {
			Latitude: 53.0, Longitude: -2.0,
			Name: "Big Bob's, Manchester", City: "Salford", Region: "England",
			CountryCode: "GB", Source: "opencage", SourceRef: "q", Matched: true,
		},
	}}
	r := NewResolver(
		WithGeocoder(geo),
		WithMapLinkFinder(&stubFinder{hint: &featured.Hint{Name: "Big Bob's", MapURL: "https://g.page/bb"}}),
	)

	place := r.Resolve(context.Background(), videoFixture(), model.ExtractedSignals{
		City:    "Manchester",
		Country: "UK",
	})

	require.NotNil(t, place)
	assert.Equal(t, model.PlaceSourceFeatured, place.Source, "tier identity survives enrichment")
	assert.True(t, place.HasCoordinates())
	assert.Equal(t, 53.0, *place.Latitude)
	// The link's own fields are kept over geocoder output.
	assert.Equal(t, "Big Bob's", place.Name)
	assert.Equal(t, "Manchester", place.City)
	assert.Equal(t, "UK", place.CountryCode)
	// Fields the link did not carry are filled.
	assert.Equal(t, "England", place.Region)
}

func TestResolveFeaturedEnrichmentFailureKeepsTier(t *testing.T) {
	t.Parallel()

	geo := &stubGeocoder{} // every query misses
	r := NewResolver(
		WithGeocoder(geo),
		WithMapLinkFinder(&stubFinder{hint: &featured.Hint{Name: "Big Bob's", MapURL: "https://g.page/bb"}}),
	)

	place := r.Resolve(context.Background(), videoFixture(), model.ExtractedSignals{})

	require.NotNil(t, place)
	assert.Equal(t, model.PlaceSourceFeatured, place.Source)
	assert.False(t, place.HasCoordinates())
}

func TestResolveRestaurantGeocode(t *testing.T) {
	t.Parallel()

	geo := &stubGeocoder{results: map[string]*geocode.Result{
		"Big Bob's Manchester UK": {
			Latitude: 53.48, Longitude: -2.24,
			Name: "Big Bob's, 1 High St, Manchester", City: "Manchester",
			CountryCode: "GB", Source: "opencage", SourceRef: "Big Bob's Manchester UK", Matched: true,
		},
	}}
	r := NewResolver(WithGeocoder(geo))

	place := r.Resolve(context.Background(), videoFixture(), model.ExtractedSignals{
		RestaurantName: "Big Bob's",
		City:           "Manchester",
		Country:        "UK",
	})

	require.NotNil(t, place)
	assert.Equal(t, "opencage", place.Source)
	assert.Equal(t, "Big Bob's", place.Name)
	assert.Equal(t, "Big Bob's, 1 High St, Manchester", place.Address)
	assert.Equal(t, "GB", place.CountryCode)
	assert.True(t, place.HasCoordinates())
}

func TestResolveApproxFallback(t *testing.T) {
	t.Parallel()

	geo := &stubGeocoder{results: map[string]*geocode.Result{
		"Oslo, NO": {
			Latitude: 59.91, Longitude: 10.75,
			City: "Oslo", CountryCode: "NO", Source: "nominatim", SourceRef: "1", Matched: true,
		},
	}}
	r := NewResolver(WithGeocoder(geo))

	place := r.Resolve(context.Background(), videoFixture(), model.ExtractedSignals{
		City:    "Oslo",
		Country: "NO",
	})

	require.NotNil(t, place)
	assert.Equal(t, model.PlaceSourceApprox, place.Source)
	assert.Equal(t, "Oslo (approx)", place.Name)
	assert.Equal(t, "Oslo, NO", place.SourceRef)
	assert.True(t, place.HasCoordinates())
}

func TestResolveApproxCountryOnly(t *testing.T) {
	t.Parallel()

	geo := &stubGeocoder{results: map[string]*geocode.Result{
		"NO": {Latitude: 60.0, Longitude: 8.0, CountryCode: "NO", Source: "nominatim", Matched: true},
	}}
	r := NewResolver(WithGeocoder(geo))

	place := r.Resolve(context.Background(), videoFixture(), model.ExtractedSignals{Country: "NO"})

	require.NotNil(t, place)
	assert.Equal(t, "NO (approx)", place.Name)
}

func TestResolveApproxRequiresCoordinates(t *testing.T) {
	t.Parallel()

	// The geocoder misses, so no qualifying approximation exists.
	r := NewResolver(WithGeocoder(&stubGeocoder{}))

	place := r.Resolve(context.Background(), videoFixture(), model.ExtractedSignals{City: "Oslo"})
	assert.Nil(t, place)
}

func TestResolveNothingQualifies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		r    *Resolver
		sig  model.ExtractedSignals
	}{
		{name: "no collaborators at all", r: NewResolver(), sig: model.ExtractedSignals{RestaurantName: "X", City: "Y"}},
		{name: "no signals", r: NewResolver(WithGeocoder(&stubGeocoder{})), sig: model.ExtractedSignals{}},
		{name: "no map link found", r: NewResolver(WithMapLinkFinder(&stubFinder{})), sig: model.ExtractedSignals{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Nil(t, tt.r.Resolve(context.Background(), videoFixture(), tt.sig))
		})
	}
}

func TestResolveTierOrder(t *testing.T) {
	t.Parallel()

	// With no recording and no map link, the restaurant geocode outranks the
	// approximate one even though both would match.
	geo := &stubGeocoder{results: map[string]*geocode.Result{
		"Big Bob's Manchester UK": {Latitude: 1, Longitude: 2, Source: "opencage", Matched: true},
		"Manchester, UK":          {Latitude: 3, Longitude: 4, Source: "nominatim", Matched: true},
	}}
	r := NewResolver(WithGeocoder(geo), WithMapLinkFinder(&stubFinder{}))

	place := r.Resolve(context.Background(), videoFixture(), model.ExtractedSignals{
		RestaurantName: "Big Bob's",
		City:           "Manchester",
		Country:        "UK",
	})

	require.NotNil(t, place)
	assert.Equal(t, "opencage", place.Source)
	assert.Equal(t, []string{"Big Bob's Manchester UK"}, geo.queries)
}
