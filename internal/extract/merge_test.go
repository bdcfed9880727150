package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chowmap/ingest-cli/internal/model"
	"github.com/chowmap/ingest-cli/pkg/llm"
)

func strPtr(s string) *string { return &s }

func heuristicFixture() model.ExtractedSignals {
	return model.ExtractedSignals{
		RestaurantName: "Big Bob's",
		City:           "Manchester",
		Country:        "UK",
		Result:         model.ResultUnknown,
		ChallengeType:  model.TypeQuantity,
		Confidence:     0.48,
		Provenance:     model.SourceHeuristic,
	}
}

func TestMergeNilExtraction(t *testing.T) {
	t.Parallel()

	heur := heuristicFixture()
	got := Merge(heur, nil)
	assert.Equal(t, heur, got)
	assert.Equal(t, model.SourceHeuristic, got.Provenance)
}

func TestMergeModelOverrides(t *testing.T) {
	t.Parallel()

	got := Merge(heuristicFixture(), &llm.Extraction{
		Restaurant:      strPtr("Big Bob's Diner"),
		City:            strPtr("Salford"),
		Country:         nil,
		Result:          "success",
		FoodType:        strPtr("burger"),
		Confidence:      0.9,
		FoodVolumeScore: 8,
		RiskLevelScore:  5,
	})

	assert.Equal(t, "Big Bob's Diner", got.RestaurantName)
	assert.Equal(t, "Salford", got.City)
	assert.Equal(t, "UK", got.Country, "null field keeps the heuristic value")
	assert.Equal(t, model.ResultSuccess, got.Result)
	assert.Equal(t, "burger", got.FoodType)
	assert.Equal(t, 0.9, got.Confidence)
	assert.Equal(t, 8, got.Scores.FoodVolume)
	assert.Equal(t, 5, got.Scores.RiskLevel)
	assert.Equal(t, model.SourceLLM, got.Provenance)
}

func TestMergeUnknownResultKeepsHeuristic(t *testing.T) {
	t.Parallel()

	heur := heuristicFixture()
	heur.Result = model.ResultFailure

	got := Merge(heur, &llm.Extraction{Result: "unknown", Confidence: 0.3})
	assert.Equal(t, model.ResultFailure, got.Result)
}

func TestMergeConfidenceIsMax(t *testing.T) {
	t.Parallel()

	heur := heuristicFixture()
	heur.Confidence = 0.8

	got := Merge(heur, &llm.Extraction{Result: "unknown", Confidence: 0.3})
	assert.Equal(t, 0.8, got.Confidence)

	got = Merge(heur, &llm.Extraction{Result: "unknown", Confidence: 0.95})
	assert.Equal(t, 0.95, got.Confidence)
}

func TestMergeScoresComeFromModelOnly(t *testing.T) {
	t.Parallel()

	got := Merge(heuristicFixture(), &llm.Extraction{Result: "unknown"})
	assert.Equal(t, model.DifficultyScores{}, got.Scores)
	assert.Empty(t, got.FoodType)
}
