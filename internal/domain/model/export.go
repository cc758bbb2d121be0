package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents the processing state of an export job.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusReady      Status = "READY"
	StatusFailed     Status = "FAILED"
)

// Valid status transitions:
// PENDING -> PROCESSING -> READY
//    \                  \-> FAILED
//     \-> FAILED (task could not be queued)
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusReady, StatusFailed},
	StatusReady:      {},
	StatusFailed:     {},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusReady, StatusFailed:
		return true
	default:
		return false
	}
}

func (s Status) CanTransitionTo(next Status) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, status := range allowed {
		if status == next {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ExportJob is a request to build a highlight reel for a trip.
type ExportJob struct {
	ID          uuid.UUID
	TripName    string
	City        string
	VideoIDs    []string
	Status      Status
	ManifestKey string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var (
	ErrEmptyTripName     = errors.New("trip name cannot be empty")
	ErrTripNameTooLong   = errors.New("trip name exceeds maximum length of 255 characters")
	ErrNoVideos          = errors.New("at least one video is required")
	ErrTooManyVideos     = errors.New("too many videos for a single export")
	ErrInvalidTransition = errors.New("invalid status transition")
)

const (
	maxTripNameLength = 255
	// MaxExportVideos caps the number of clips in one reel.
	MaxExportVideos = 20
)

// NewExportJob creates a new ExportJob with PENDING status.
func NewExportJob(tripName, city string, videoIDs []string) (*ExportJob, error) {
	if tripName == "" {
		return nil, ErrEmptyTripName
	}
	if len(tripName) > maxTripNameLength {
		return nil, ErrTripNameTooLong
	}
	if len(videoIDs) == 0 {
		return nil, ErrNoVideos
	}
	if len(videoIDs) > MaxExportVideos {
		return nil, ErrTooManyVideos
	}

	now := time.Now()
	return &ExportJob{
		ID:        uuid.New(),
		TripName:  tripName,
		City:      city,
		VideoIDs:  append([]string(nil), videoIDs...),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TransitionTo attempts to change the job status.
// Returns error if the transition is not allowed.
func (j *ExportJob) TransitionTo(next Status) error {
	if !next.IsValid() {
		return ErrInvalidTransition
	}
	if !j.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	j.Status = next
	j.UpdatedAt = time.Now()
	return nil
}

// SetManifestKey records where the finished reel manifest is stored.
func (j *ExportJob) SetManifestKey(key string) {
	j.ManifestKey = key
	j.UpdatedAt = time.Now()
}

// IsReady returns true if the reel manifest can be downloaded.
func (j *ExportJob) IsReady() bool {
	return j.Status == StatusReady
}

// IsFailed returns true if building the reel failed.
func (j *ExportJob) IsFailed() bool {
	return j.Status == StatusFailed
}

// Clip is one segment of a highlight reel.
type Clip struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title,omitempty"`
	StartSeconds int    `json:"start_seconds"`
	EndSeconds   int    `json:"end_seconds"`
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() int {
	return c.EndSeconds - c.StartSeconds
}

// HighlightReel is the edit list produced for an export job.
type HighlightReel struct {
	ExportID      uuid.UUID `json:"export_id"`
	TripName      string    `json:"trip_name"`
	City          string    `json:"city"`
	Clips         []Clip    `json:"clips"`
	TotalSeconds  int       `json:"total_seconds"`
	GeneratedAt   time.Time `json:"generated_at"`
	SkippedVideos []string  `json:"skipped_videos,omitempty"`
}
