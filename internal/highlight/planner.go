// Package highlight plans highlight reels: which part of each trip video
// goes into the reel and in what order.
package highlight

import (
	"time"

	"github.com/hszk-dev/tripreel/internal/domain/model"
)

// Config holds the reel shape.
type Config struct {
	// ClipSeconds is the target length of each clip.
	ClipSeconds int
	// MinClipSeconds is the shortest clip worth including.
	MinClipSeconds int
	// MaxReelSeconds caps the total reel length.
	MaxReelSeconds int
}

// DefaultConfig returns a Config for a short social-style reel.
func DefaultConfig() Config {
	return Config{
		ClipSeconds:    8,
		MinClipSeconds: 3,
		MaxReelSeconds: 90,
	}
}

// Planner builds edit lists for export jobs.
type Planner struct {
	cfg Config
}

// NewPlanner creates a Planner. Non-positive fields fall back to DefaultConfig.
func NewPlanner(cfg Config) *Planner {
	def := DefaultConfig()
	if cfg.ClipSeconds <= 0 {
		cfg.ClipSeconds = def.ClipSeconds
	}
	if cfg.MinClipSeconds <= 0 {
		cfg.MinClipSeconds = def.MinClipSeconds
	}
	if cfg.MaxReelSeconds <= 0 {
		cfg.MaxReelSeconds = def.MaxReelSeconds
	}
	cfg.MinClipSeconds = min(cfg.MinClipSeconds, cfg.ClipSeconds)
	return &Planner{cfg: cfg}
}

// Plan takes one clip from the middle of each video, in job order, until the
// reel is full. Videos with no known duration, videos shorter than the
// minimum clip, and videos that no longer fit are listed as skipped.
func (p *Planner) Plan(job *model.ExportJob, durations map[string]int, now time.Time) model.HighlightReel {
	reel := model.HighlightReel{
		ExportID:    job.ID,
		TripName:    job.TripName,
		City:        job.City,
		Clips:       []model.Clip{},
		GeneratedAt: now.UTC(),
	}

	for _, id := range job.VideoIDs {
		duration, ok := durations[id]
		remaining := p.cfg.MaxReelSeconds - reel.TotalSeconds
		length := min(p.cfg.ClipSeconds, duration, remaining)

		if !ok || length < p.cfg.MinClipSeconds {
			reel.SkippedVideos = append(reel.SkippedVideos, id)
			continue
		}

		start := (duration - length) / 2
		reel.Clips = append(reel.Clips, model.Clip{
			VideoID:      id,
			StartSeconds: start,
			EndSeconds:   start + length,
		})
		reel.TotalSeconds += length
	}

	return reel
}
