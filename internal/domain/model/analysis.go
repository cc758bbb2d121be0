package model

import "time"

// VideoAnalysis is a model-generated travel summary of a single video.
type VideoAnalysis struct {
	VideoID         string    `json:"video_id"`
	CityName        string    `json:"city_name"`
	Summary         string    `json:"summary"`
	Highlights      []string  `json:"highlights"`
	PlacesMentioned []string  `json:"places_mentioned"`
	TravelTips      []string  `json:"travel_tips"`
	BestTimeToVisit string    `json:"best_time_to_visit,omitempty"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}
