package extract

import (
	"regexp"
	"strings"
)

var (
	trailingVenueRe = regexp.MustCompile(`\s+(Challenge|Eating|Food|Restaurant|Diner|Cafe|Grill|Bar|Pub)$`)

	// "Man vs Food at Big Bob's in Manchester" style titles.
	atInTitleRe = regexp.MustCompile(`\s+(?:at|@)\s+(.+?)\s+in\s+`)

	// Description lines such as "Today I'm at The Hungry Horse in Leeds".
	descAtRe = regexp.MustCompile(`\bat\s+([A-Z][A-Za-z'&\-. ]+?)(?:\s+(?:in|on|near|located)\b|[,.!;:|]|$)`)

	// Loose fallbacks over the whole text, tried in order.
	fallbackRes = []*regexp.Regexp{
		regexp.MustCompile(`\bat\s+(?:a\s+(?:place|restaurant|spot)\s+called\s+)?['"]?([A-Z][\w'&\- ]{2,})`),
		regexp.MustCompile(`\bcalled\s+['"]?([A-Z][\w'&\- ]{2,})`),
		regexp.MustCompile(`\bat\s+(?:the\s+|a\s+)?['"]?([A-Z][\w'&\- ]{2,})`),
	}

	calledPrefixRe  = regexp.MustCompile(`(?i)^(?:a|the)\s+(?:restaurant|place|spot)\s+called\s+`)
	atInPrefixRe    = regexp.MustCompile(`(?i)^(?:at|in)\s+`)
	restaurantCutRe = regexp.MustCompile(`\s+(?:in|at|near|with|by|from)\b|[,.;\n|\-]`)
	spacesRe        = regexp.MustCompile(`\s+`)
)

// findRestaurantName runs the venue heuristics in priority order. Returns ""
// when no pattern produces a plausible name.
func (e *Extractor) findRestaurantName(title, description, text string) string {
	if segments := splitPipeTitle(title); len(segments) >= 2 {
		if name := cleanPipeVenue(segments[0]); name != "" {
			return name
		}
	}

	firstLine := title
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}
	if m := atInTitleRe.FindStringSubmatch(firstLine); m != nil {
		if name := cleanRestaurantName(m[1]); plausibleName(name, 1, 8) {
			return name
		}
	}

	for _, line := range firstLines(description, 5) {
		if m := descAtRe.FindStringSubmatch(line); m != nil {
			if name := cleanRestaurantName(m[1]); plausibleName(name, 2, 6) {
				return name
			}
		}
	}

	for _, re := range fallbackRes {
		if m := re.FindStringSubmatch(text); m != nil {
			if name := cleanRestaurantName(m[1]); plausibleName(name, 1, 8) {
				return name
			}
		}
	}

	return ""
}

// cleanPipeVenue normalizes the first segment of a pipe-delimited title. The
// channel pads venue names with generic words ("Big Bob's Diner", "The Kraken
// Challenge") that are stripped before the name is accepted.
func cleanPipeVenue(segment string) string {
	name := strings.TrimSpace(segment)
	name = strings.TrimPrefix(name, "The ")
	name = trailingVenueRe.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if !plausibleName(name, 1, 8) {
		return ""
	}
	return name
}

// cleanRestaurantName strips filler around a captured venue name and cuts it
// at the first location word or punctuation. Cleaning is idempotent.
func cleanRestaurantName(raw string) string {
	name := strings.Trim(raw, ` '"`)
	name = calledPrefixRe.ReplaceAllString(name, "")
	name = atInPrefixRe.ReplaceAllString(name, "")
	if loc := restaurantCutRe.FindStringIndex(name); loc != nil {
		name = name[:loc[0]]
	}
	name = spacesRe.ReplaceAllString(name, " ")
	return strings.Trim(name, ` '"`)
}

func plausibleName(name string, minWords, maxWords int) bool {
	n := len(strings.Fields(name))
	return n >= minWords && n <= maxWords
}

func firstLines(text string, n int) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}
