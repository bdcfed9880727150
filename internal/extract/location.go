package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	pipeLocationRe = regexp.MustCompile(`^([^,]+?)(?:,\s*(.+))?$`)
	upperRegionRe  = regexp.MustCompile(`^[A-Z]{2}$`)

	// Shouty title formats: "IN NORWAY FOR ..." and "IN WALES YOU HAVE TO ...".
	inForRe          = regexp.MustCompile(`\bIN\s+([A-Z][A-Za-z\s]+?)\s+FOR\s+`)
	inContinuationRe = regexp.MustCompile(`\bIN\s+([A-Z][A-Za-z\s]+?)(?:\s*[|!]|\s+(?:HAS|FOR|YOU|TO|IS|HAVE|I'VE)\b)`)

	// Mixed-case prose: "in Manchester at ...", "in Austin, TX."
	genericInRe = regexp.MustCompile(`(?m)\bin\s+([A-Z][A-Za-z'\- ]+?)(?:,\s*([A-Z]{2}))?(?:\s+(?:at|with|near|from|and)\b|[,.;:|]|$)`)
)

// countryScan is the ordered list of country mentions checked as the last
// resort, when no structured pattern matched.
var countryScan = []string{
	"USA", "United States", "US",
	"UK", "United Kingdom", "England", "Scotland", "Wales", "Ireland",
	"Canada", "Australia", "New Zealand",
	"Germany", "France", "Spain", "Italy", "Japan", "Mexico",
	"New York",
}

var ukFamily = map[string]bool{
	"UK": true, "United Kingdom": true,
	"England": true, "Scotland": true, "Wales": true,
}

var usFamily = map[string]bool{
	"USA": true, "United States": true, "US": true, "New York": true,
}

// findCityCountry runs the location heuristics in priority order against the
// title and the combined text. The first pattern that produces a value wins.
func (e *Extractor) findCityCountry(title, text string) (string, string) {
	// A pipe-delimited title carries the location in its second segment.
	if segments := splitPipeTitle(title); len(segments) >= 2 {
		if city, country, ok := e.parsePipeLocation(segments[1]); ok {
			return city, country
		}
	}

	if m := inForRe.FindStringSubmatch(title); m != nil {
		if city, country, ok := e.resolveShoutyMention(m[1]); ok {
			return city, country
		}
	}

	if m := inContinuationRe.FindStringSubmatch(title); m != nil {
		if city, country, ok := e.resolveShoutyMention(m[1]); ok {
			return city, country
		}
	}

	if m := genericInRe.FindStringSubmatch(text); m != nil {
		city := strings.TrimSpace(m[1])
		if m[2] != "" {
			return city + ", " + m[2], "US"
		}
		return city, ""
	}

	for _, name := range countryScan {
		if !containsWord(text, name) {
			continue
		}
		switch {
		case ukFamily[name]:
			return "", "UK"
		case usFamily[name]:
			return "", "US"
		default:
			return "", name
		}
	}

	return "", ""
}

// parsePipeLocation interprets the second pipe segment as "City, Region" or
// "City, Country". A two-letter uppercase region is treated as a US state.
func (e *Extractor) parsePipeLocation(segment string) (string, string, bool) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "", "", false
	}

	m := pipeLocationRe.FindStringSubmatch(segment)
	if m == nil {
		return "", "", false
	}
	city := strings.TrimSpace(m[1])
	region := strings.TrimSpace(m[2])

	if region == "" {
		return city, "", city != ""
	}
	// The country table is checked before the two-letter state rule so that
	// "Manchester, UK" does not read as a US state.
	if code, ok := e.gaz.KnownCountryCode(region); ok {
		return city, code, true
	}
	if upperRegionRe.MatchString(region) {
		return city + ", " + region, "US", true
	}
	return city, region, true
}

// resolveShoutyMention maps an all-caps location capture through the
// gazetteer. Unresolved captures of a few words still count as a city; longer
// ones are noise from the capture running into the sentence.
func (e *Extractor) resolveShoutyMention(mention string) (string, string, bool) {
	mention = strings.TrimSpace(mention)
	if loc, ok := e.gaz.ResolveLocationPrefix(mention); ok {
		return loc.City, loc.Country, true
	}
	if words := strings.Fields(mention); len(words) >= 1 && len(words) <= 3 {
		return titleCase(mention), "", true
	}
	return "", "", false
}

func splitPipeTitle(title string) []string {
	firstLine := title
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}
	if !strings.Contains(firstLine, "|") {
		return nil
	}
	parts := strings.Split(firstLine, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func containsWord(text, word string) bool {
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	return re.MatchString(text)
}

func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(s)))
}
