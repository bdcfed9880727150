package extract

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Location is a gazetteer entry: the canonical city/region name plus its
// country code.
type Location struct {
	City    string `yaml:"city"`
	Country string `yaml:"country"`
}

// Gazetteer resolves free-text location mentions against a fixed table of
// known cities, states, regions and countries, and normalizes country names
// to codes.
type Gazetteer struct {
	locations map[string]Location // upper-cased mention → canonical entry
	countries map[string]string   // upper-cased country/region name → code
}

// DefaultGazetteer returns the built-in table covering the locations that
// recur in the channel's titles.
func DefaultGazetteer() *Gazetteer {
	return &Gazetteer{
		locations: map[string]Location{
			// Countries
			"AUSTRIA":  {City: "Austria", Country: "AT"},
			"NORWAY":   {City: "Norway", Country: "NO"},
			"FINLAND":  {City: "Finland", Country: "FI"},
			"WALES":    {City: "Wales", Country: "UK"},
			"SCOTLAND": {City: "Scotland", Country: "UK"},
			"ENGLAND":  {City: "England", Country: "UK"},
			"IRELAND":  {City: "Ireland", Country: "IE"},
			"GERMANY":  {City: "Germany", Country: "DE"},
			"FRANCE":   {City: "France", Country: "FR"},
			"ITALY":    {City: "Italy", Country: "IT"},
			"SPAIN":    {City: "Spain", Country: "ES"},
			"JAPAN":    {City: "Japan", Country: "JP"},
			"CANADA":   {City: "Canada", Country: "CA"},
			// US cities and states
			"LAS VEGAS":      {City: "Las Vegas", Country: "US"},
			"PENNSYLVANIA":   {City: "Pennsylvania", Country: "US"},
			"SOUTH CAROLINA": {City: "South Carolina", Country: "US"},
			"KENTUCKY":       {City: "Kentucky", Country: "US"},
			"DALLAS":         {City: "Dallas", Country: "US"},
			"TEXAS":          {City: "Texas", Country: "US"},
		},
		countries: map[string]string{
			"UK":               "UK",
			"UNITED KINGDOM":   "UK",
			"ENGLAND":          "UK",
			"SCOTLAND":         "UK",
			"WALES":            "UK",
			"NORTHERN IRELAND": "UK",
			"USA":              "US",
			"UNITED STATES":    "US",
			"AMERICA":          "US",
			"CANADA":           "CA",
			"AUSTRALIA":        "AU",
			"GERMANY":          "DE",
			"FRANCE":           "FR",
			"SPAIN":            "ES",
			"ITALY":            "IT",
			"JAPAN":            "JP",
			"NORWAY":           "NO",
			"FINLAND":          "FI",
			"AUSTRIA":          "AT",
		},
	}
}

// gazetteerFile is the on-disk override format.
type gazetteerFile struct {
	Locations map[string]Location `yaml:"locations"`
	Countries map[string]string   `yaml:"countries"`
}

// LoadGazetteer reads a YAML override file and merges it over the built-in
// table. Override keys are case-insensitive.
func LoadGazetteer(path string) (*Gazetteer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read gazetteer %s", path)
	}

	var f gazetteerFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "extract: parse gazetteer")
	}

	g := DefaultGazetteer()
	for k, v := range f.Locations {
		g.locations[strings.ToUpper(k)] = v
	}
	for k, v := range f.Countries {
		g.countries[strings.ToUpper(k)] = strings.ToUpper(v)
	}
	return g, nil
}

// ResolveLocation looks up a location mention. The lookup is case-insensitive
// when the mention is known; unknown mentions miss.
func (g *Gazetteer) ResolveLocation(mention string) (Location, bool) {
	loc, ok := g.locations[strings.ToUpper(strings.TrimSpace(mention))]
	return loc, ok
}

// ResolveLocationPrefix tries the longest word-prefix of mention that
// resolves in the table. Titles often run the location into the rest of the
// sentence ("NORWAY YOU HAVE TO STAY SEATED"), so a full-string miss retries
// shrinking prefixes.
func (g *Gazetteer) ResolveLocationPrefix(mention string) (Location, bool) {
	words := strings.Fields(strings.TrimSpace(mention))
	for n := len(words); n >= 1; n-- {
		if loc, ok := g.ResolveLocation(strings.Join(words[:n], " ")); ok {
			return loc, true
		}
	}
	return Location{}, false
}

// KnownCountryCode looks up a country or region name in the table.
func (g *Gazetteer) KnownCountryCode(name string) (string, bool) {
	code, ok := g.countries[strings.ToUpper(strings.TrimSpace(name))]
	return code, ok
}

// CountryCode normalizes a country or region name to a code. Unknown names
// pass through unchanged.
func (g *Gazetteer) CountryCode(name string) string {
	if code, ok := g.KnownCountryCode(name); ok {
		return code
	}
	return strings.TrimSpace(name)
}
