package extract

import (
	"github.com/chowmap/ingest-cli/internal/model"
	"github.com/chowmap/ingest-cli/pkg/llm"
)

// Merge folds a model extraction into heuristic signals. The model wins on
// fields it answered; the heuristics keep everything else. With a nil
// extraction the heuristic signals pass through unchanged.
func Merge(heur model.ExtractedSignals, ext *llm.Extraction) model.ExtractedSignals {
	if ext == nil {
		return heur
	}

	out := heur
	out.Provenance = model.SourceLLM

	if v := deref(ext.Restaurant); v != "" {
		out.RestaurantName = v
	}
	if v := deref(ext.City); v != "" {
		out.City = v
	}
	if v := deref(ext.Country); v != "" {
		out.Country = v
	}
	if ext.Result != "" && ext.Result != string(model.ResultUnknown) {
		out.Result = model.ChallengeResult(ext.Result)
	}
	if ext.Confidence > out.Confidence {
		out.Confidence = ext.Confidence
	}

	out.FoodType = deref(ext.FoodType)
	out.Scores = model.DifficultyScores{
		FoodVolume:    ext.FoodVolumeScore,
		TimeLimit:     ext.TimeLimitScore,
		SuccessRate:   ext.SuccessRateScore,
		Spiciness:     ext.SpicinessScore,
		FoodDiversity: ext.FoodDiversityScore,
		RiskLevel:     ext.RiskLevelScore,
	}

	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
