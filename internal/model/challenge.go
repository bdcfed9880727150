package model

import "time"

// Challenge is one challenge attempt, foreign-keyed to a video and optionally
// to a resolved place. At most one exists per video ID.
type Challenge struct {
	ID            int64            `json:"id,omitempty"`
	VideoID       string           `json:"video_id"`
	PlaceID       *int64           `json:"place_id,omitempty"`
	DateAttempted time.Time        `json:"date_attempted"`
	Result        ChallengeResult  `json:"result"`
	ChallengeType ChallengeType    `json:"challenge_type,omitempty"`
	FoodType      string           `json:"food_type,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	CharityFlag   bool             `json:"charity_flag"`
	Provenance    ExtractionSource `json:"provenance"`
	Confidence    float64          `json:"confidence"`
	Scores        DifficultyScores `json:"scores"`
}

// IngestRun records one batch invocation for observability.
type IngestRun struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Processed  int        `json:"processed"`
	Failed     int        `json:"failed"`
}
