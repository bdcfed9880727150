package model

import "time"

// ChallengeResult is the outcome of a challenge attempt.
type ChallengeResult string

const (
	ResultSuccess ChallengeResult = "success"
	ResultFailure ChallengeResult = "failure"
	ResultUnknown ChallengeResult = "unknown"
)

// ChallengeType classifies the kind of challenge. Empty means unclassified.
type ChallengeType string

const (
	TypeQuantity ChallengeType = "quantity"
	TypeSpicy    ChallengeType = "spicy"
	TypeSpeed    ChallengeType = "speed"
)

// ExtractionSource records which extraction path produced a challenge record.
type ExtractionSource string

const (
	SourceHeuristic ExtractionSource = "auto"
	SourceLLM       ExtractionSource = "llm"
)

// ExtractedSignals is the structured guess produced by the text-signal
// extractor for one video. Instances are never mutated in place; the merge
// step returns a new value.
type ExtractedSignals struct {
	RestaurantName string          `json:"restaurant_name,omitempty"`
	City           string          `json:"city,omitempty"`
	Country        string          `json:"country,omitempty"`
	DateAttempted  time.Time       `json:"date_attempted"`
	Collaborators  []string        `json:"collaborators,omitempty"`
	Result         ChallengeResult `json:"result"`
	ChallengeType  ChallengeType   `json:"challenge_type,omitempty"`
	Confidence     float64         `json:"confidence"`

	// Set by the merge step only; the heuristic path has no equivalent.
	FoodType   string           `json:"food_type,omitempty"`
	Scores     DifficultyScores `json:"scores"`
	Provenance ExtractionSource `json:"provenance,omitempty"`
}

// DifficultyScores are six independent 0-10 difficulty dimensions scored by
// the LLM extractor. All zero when no LLM result was available.
type DifficultyScores struct {
	FoodVolume    int `json:"food_volume_score"`
	TimeLimit     int `json:"time_limit_score"`
	SuccessRate   int `json:"success_rate_score"`
	Spiciness     int `json:"spiciness_score"`
	FoodDiversity int `json:"food_diversity_score"`
	RiskLevel     int `json:"risk_level_score"`
}
