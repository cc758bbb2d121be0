package youtube

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hszk-dev/tripreel/internal/domain/model"
)

const (
	viewWeight         = 0.04
	engagementWeight   = 10.0
	engagementCap      = 0.3
	shortFormBonus     = 0.2
	keywordWeight      = 0.025
	keywordCap         = 0.1
	shortFormMaxSecond = 60
	mediumMaxSecond    = 1200
)

// travelKeywords mark titles that read like travel content.
var travelKeywords = []string{
	"travel",
	"guide",
	"tour",
	"things to do",
	"hidden gems",
	"vlog",
	"food",
	"walking",
	"explore",
	"itinerary",
	"4k",
	"cinematic",
}

var durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseDuration converts an ISO 8601 duration such as "PT4M13S" to seconds.
// Only hours, minutes and seconds are understood; anything else, including
// a total that does not fit in an int, yields 0.
func ParseDuration(iso string) int {
	m := durationPattern.FindStringSubmatch(iso)
	if m == nil {
		return 0
	}

	total := 0
	for i, mult := range []int{3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil || n > (math.MaxInt-total)/mult {
			return 0
		}
		total += n * mult
	}
	return total
}

// FormatDuration renders seconds as "m:ss", or "h:mm:ss" from one hour up.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ClassifyVideo buckets a duration: short up to 60s, medium up to 20 minutes, long beyond.
func ClassifyVideo(durationSeconds int) model.VideoType {
	switch {
	case durationSeconds <= shortFormMaxSecond:
		return model.VideoTypeShort
	case durationSeconds <= mediumMaxSecond:
		return model.VideoTypeMedium
	default:
		return model.VideoTypeLong
	}
}

// CalculateVideoScore is a relative ranking heuristic, not a probability:
//
//	log10(views)*0.04 + min(likes/views*10, 0.3) + 0.2 if duration <= 60s + min(0.025*keywords, 0.1)
//
// rounded to two decimals.
func CalculateVideoScore(viewCount, likeCount uint64, durationSeconds int, title string) float64 {
	score := 0.0

	if viewCount > 0 {
		views := float64(viewCount)
		score += math.Log10(views) * viewWeight
		score += math.Min(float64(likeCount)/views*engagementWeight, engagementCap)
	}

	if durationSeconds <= shortFormMaxSecond {
		score += shortFormBonus
	}

	score += math.Min(keywordWeight*float64(countTravelKeywords(title)), keywordCap)

	return math.Round(score*100) / 100
}

func countTravelKeywords(title string) int {
	lower := strings.ToLower(title)
	n := 0
	for _, kw := range travelKeywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}
