// Package extract derives structured challenge signals from video text using
// layered heuristics. Every heuristic is deterministic: the same input text
// always produces the same signals.
package extract

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/language"

	"github.com/chowmap/ingest-cli/internal/model"
)

const localizedDescriptionLimit = 500

// SourceText is the text surface of a single video.
type SourceText struct {
	Title         string
	Description   string
	Tags          []string
	Localizations map[string]model.Localization
}

// Extractor runs the heuristic pipeline. Safe for concurrent use.
type Extractor struct {
	gaz *Gazetteer
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithGazetteer replaces the built-in location table.
func WithGazetteer(g *Gazetteer) Option {
	return func(e *Extractor) {
		if g != nil {
			e.gaz = g
		}
	}
}

// New builds an Extractor with the default gazetteer.
func New(opts ...Option) *Extractor {
	e := &Extractor{gaz: DefaultGazetteer()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var (
	successRe = regexp.MustCompile(`(?i)\b(completed|did it|won|success)\b`)
	failureRe = regexp.MustCompile(`(?i)\b(failed|couldn'?t|loss|dnf)\b`)

	quantityRe = regexp.MustCompile(`(?i)\b(all-you-can-eat|massive|giant|huge|stack|kilo|challenge)\b`)
	spicyRe    = regexp.MustCompile(`(?i)\b(spicy|carolina reaper|ghost pepper|hot wing)\b`)
	speedRe    = regexp.MustCompile(`(?i)\b(speed|fastest|time trial|\d+ ?min(?:ute)?s?)\b`)

	handleRe   = regexp.MustCompile(`@([A-Za-z0-9_.]+)`)
	withNameRe = regexp.MustCompile(`\bwith\s+([A-Z][\w\s&]{2,40})`)

	dateMentionRe = regexp.MustCompile(`\b\d{1,2}\s+\w+\s+\d{4}\b|\b\w+\s+\d{1,2},\s*\d{4}\b|\b\d{4}-\d{2}-\d{2}\b`)
)

// Extract runs all heuristics over the video text. publishedAt is the fallback
// attempt date when the text mentions none.
func (e *Extractor) Extract(src SourceText, publishedAt time.Time) model.ExtractedSignals {
	text := combinedText(src)

	sig := model.ExtractedSignals{
		Provenance: model.SourceHeuristic,
	}

	sig.RestaurantName = e.findRestaurantName(src.Title, src.Description, text)
	sig.City, sig.Country = e.findCityCountry(src.Title, text)

	var resultConf, typeConf float64
	sig.Result, resultConf = findResult(text)
	sig.ChallengeType, typeConf = findChallengeType(text)
	sig.Collaborators = findCollaborators(text)
	sig.DateAttempted = findDate(text, publishedAt)

	// Fields the text did not yield retry against localized variants.
	e.fillFromLocalizations(&sig, src.Localizations)

	hasMeta := len(src.Tags) > 0 || len(src.Localizations) > 0
	sig.Confidence = confidence(sig.RestaurantName != "", resultConf, typeConf, hasMeta)

	return sig
}

// fillFromLocalizations retries empty fields against each localized
// title/description pair, English variants first. Restaurant and location fill
// independently, so they may come from different localizations.
func (e *Extractor) fillFromLocalizations(sig *model.ExtractedSignals, locs map[string]model.Localization) {
	if len(locs) == 0 {
		return
	}
	needRestaurant := sig.RestaurantName == ""
	needLocation := sig.City == "" && sig.Country == ""
	if !needRestaurant && !needLocation {
		return
	}

	for _, key := range orderedLocalizationKeys(locs) {
		loc := locs[key]
		desc := loc.Description
		if len(desc) > localizedDescriptionLimit {
			desc = desc[:localizedDescriptionLimit]
		}
		text := loc.Title + "\n" + desc

		if needRestaurant {
			if name := e.findRestaurantName(loc.Title, desc, text); name != "" {
				sig.RestaurantName = name
				needRestaurant = false
			}
		}
		if needLocation {
			if city, country := e.findCityCountry(loc.Title, text); city != "" || country != "" {
				sig.City, sig.Country = city, country
				needLocation = false
			}
		}
		if !needRestaurant && !needLocation {
			return
		}
	}
}

// orderedLocalizationKeys sorts localization keys so English variants come
// first, then the rest alphabetically. Map iteration order would make the
// fallback nondeterministic otherwise.
func orderedLocalizationKeys(locs map[string]model.Localization) []string {
	keys := make([]string, 0, len(locs))
	for k := range locs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ei, ej := isEnglishTag(keys[i]), isEnglishTag(keys[j])
		if ei != ej {
			return ei
		}
		return keys[i] < keys[j]
	})
	return keys
}

func isEnglishTag(key string) bool {
	tag, err := language.Parse(key)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base.String() == "en"
}

func findResult(text string) (model.ChallengeResult, float64) {
	if successRe.MatchString(text) {
		return model.ResultSuccess, 1.0
	}
	if failureRe.MatchString(text) {
		return model.ResultFailure, 1.0
	}
	return model.ResultUnknown, 0.2
}

// findChallengeType tags the challenge kind, or leaves it empty when no
// keyword matches.
func findChallengeType(text string) (model.ChallengeType, float64) {
	switch {
	case quantityRe.MatchString(text):
		return model.TypeQuantity, 0.8
	case spicyRe.MatchString(text):
		return model.TypeSpicy, 0.8
	case speedRe.MatchString(text):
		return model.TypeSpeed, 0.8
	}
	return "", 0.2
}

// findCollaborators collects @handles and "with <Name>" mentions, handles
// first, deduplicated in order of appearance.
func findCollaborators(text string) []string {
	var out []string
	seen := map[string]bool{}

	for _, m := range handleRe.FindAllStringSubmatch(text, -1) {
		h := "@" + m[1]
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	if m := withNameRe.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(m[1])
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// findDate parses the first date-looking mention in the text, falling back to
// the publish date.
func findDate(text string, publishedAt time.Time) time.Time {
	if m := dateMentionRe.FindString(text); m != "" {
		if t, err := dateparse.ParseAny(m); err == nil {
			return t
		}
	}
	return publishedAt
}

// confidence combines the per-signal scores into one bounded value.
func confidence(hasRestaurant bool, resultConf, typeConf float64, hasMeta bool) float64 {
	c := 0.2
	if hasRestaurant {
		c = 0.4
	}
	c += 0.2
	c += resultConf * 0.2
	c += typeConf * 0.2
	if hasMeta {
		c += 0.1
	}
	if c > 1.0 {
		c = 1.0
	}
	return c
}

func combinedText(src SourceText) string {
	parts := []string{src.Title, src.Description}
	if len(src.Tags) > 0 {
		parts = append(parts, strings.Join(src.Tags, " "))
	}
	return strings.Join(parts, "\n")
}
