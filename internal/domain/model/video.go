package model

import "time"

// VideoType buckets a video by its length.
type VideoType string

const (
	VideoTypeShort  VideoType = "short"
	VideoTypeMedium VideoType = "medium"
	VideoTypeLong   VideoType = "long"
)

func (t VideoType) String() string {
	return string(t)
}

// Video is a search result before enrichment with duration and statistics.
type Video struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ThumbnailURL string    `json:"thumbnail_url"`
	ChannelTitle string    `json:"channel_title"`
	PublishedAt  time.Time `json:"published_at"`
}

// EnrichedVideo is a Video with duration, statistics and a relevance score.
// Score is derived from the other fields and recomputed whenever they change.
type EnrichedVideo struct {
	Video
	DurationSeconds int       `json:"duration_seconds"`
	VideoType       VideoType `json:"video_type"`
	Score           float64   `json:"score"`
	ViewCount       uint64    `json:"view_count"`
	LikeCount       uint64    `json:"like_count"`
	Source          string    `json:"source"`
}

// WatchURL returns the public YouTube URL for the video.
func (v Video) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + v.VideoID
}
