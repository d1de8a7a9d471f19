package domain

// Rating is a single keyed score attached to a review.
type Rating struct {
	ReviewID int64
	Key      string
	Value    float64
}

// RatingStats is the star histogram of a reviewable.
type RatingStats struct {
	Counts      map[int]int     `json:"counts"`
	Percentages map[int]float64 `json:"percentages"`
	Total       int             `json:"total"`
}

// RatingSummary bundles the headline aggregates shown on a reviewable's page.
type RatingSummary struct {
	TotalReviews   int                `json:"totalReviews"`
	OverallAverage *float64           `json:"overallAverage"`
	Averages       map[string]float64 `json:"averages"`
	Stats          RatingStats        `json:"stats"`
}
