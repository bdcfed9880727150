package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const nominatimURL = "https://nominatim.openstreetmap.org/search"

// Nominatim's usage policy requires an identifying user agent.
const nominatimUserAgent = "chow-ingest/1.0 (food challenge map)"

// nominatimResult is one entry of the JSON array Nominatim answers with.
type nominatimResult struct {
	PlaceID     int64  `json:"place_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Address     struct {
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		State       string `json:"state"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

// geocodeNominatim resolves a query via the public Nominatim instance.
func (g *geocoder) geocodeNominatim(ctx context.Context, query string) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate limit")
	}

	params := url.Values{
		"q":              {query},
		"format":         {"jsonv2"},
		"limit":          {"1"},
		"addressdetails": {"1"},
	}

	reqURL := nominatimURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim build request")
	}
	req.Header.Set("User-Agent", nominatimUserAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim read body")
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}

	if len(results) == 0 {
		return &Result{Matched: false, Source: "nominatim"}, nil
	}

	r := results[0]
	lat, latErr := strconv.ParseFloat(r.Lat, 64)
	lng, lngErr := strconv.ParseFloat(r.Lon, 64)
	if latErr != nil || lngErr != nil {
		return nil, eris.New("geocode: nominatim returned unparseable coordinates")
	}

	return &Result{
		Latitude:    lat,
		Longitude:   lng,
		Name:        r.DisplayName,
		City:        nominatimCity(r),
		Region:      r.Address.State,
		CountryCode: strings.ToUpper(r.Address.CountryCode),
		Source:      "nominatim",
		SourceRef:   strconv.FormatInt(r.PlaceID, 10),
		Matched:     true,
	}, nil
}

func nominatimCity(r nominatimResult) string {
	switch {
	case r.Address.City != "":
		return r.Address.City
	case r.Address.Town != "":
		return r.Address.Town
	case r.Address.Village != "":
		return r.Address.Village
	}
	return ""
}
