package models

// RecommendationCandidate is a ranked movie with its computed score and
// reason.
type RecommendationCandidate struct {
	Movie
	Score  float64 `json:"score"`
	Reason string  `json:"recommendation_reason"`
}

// RecommendationResponse wraps the ranked list and the caller's state.
type RecommendationResponse struct {
	Recommendations []RecommendationCandidate `json:"recommendations"`
	WatchListIDs    []int                     `json:"watch_list_ids"`
	PreferenceIDs   []int                     `json:"preference_ids"`
	User            *User                     `json:"user"`
	GeneratedAt     string                    `json:"generated_at"`
}
