package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

const opencageURL = "https://api.opencagedata.com/geocode/v1/json"

// opencageResponse is the JSON response from the OpenCage geocoding API.
type opencageResponse struct {
	Results []opencageResult `json:"results"`
	Status  struct {
		Code int `json:"code"`
	} `json:"status"`
}

type opencageResult struct {
	Formatted string `json:"formatted"`
	Geometry  struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"geometry"`
	Components struct {
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		State       string `json:"state"`
		CountryCode string `json:"country_code"`
	} `json:"components"`
	Confidence int `json:"confidence"`
}

// geocodeOpenCage resolves a query via the OpenCage forward geocoder.
func (g *geocoder) geocodeOpenCage(ctx context.Context, query string) (*Result, error) {
	if g.apiKey == "" {
		return nil, eris.New("geocode: opencage api key not configured")
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: opencage rate limit")
	}

	params := url.Values{
		"q":              {query},
		"key":            {g.apiKey},
		"limit":          {"1"},
		"no_annotations": {"1"},
	}

	reqURL := opencageURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: opencage build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: opencage request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: opencage returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: opencage read body")
	}

	var ocResp opencageResponse
	if err := json.Unmarshal(body, &ocResp); err != nil {
		return nil, eris.Wrap(err, "geocode: opencage parse response")
	}

	if ocResp.Status.Code != 200 || len(ocResp.Results) == 0 {
		return &Result{Matched: false, Source: "opencage"}, nil
	}

	r := ocResp.Results[0]
	return &Result{
		Latitude:    r.Geometry.Lat,
		Longitude:   r.Geometry.Lng,
		Name:        r.Formatted,
		City:        opencageCity(r),
		Region:      r.Components.State,
		CountryCode: strings.ToUpper(r.Components.CountryCode),
		Source:      "opencage",
		SourceRef:   query,
		Matched:     true,
	}, nil
}

// opencageCity picks the most specific settlement component present.
func opencageCity(r opencageResult) string {
	switch {
	case r.Components.City != "":
		return r.Components.City
	case r.Components.Town != "":
		return r.Components.Town
	case r.Components.Village != "":
		return r.Components.Village
	}
	return ""
}
