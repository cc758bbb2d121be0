package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hszk-dev/tripreel/internal/domain/model"
)

const analysisSystemPrompt = `You are a travel research assistant. Given a YouTube video's title and description, ` +
	`extract what a traveller planning a trip would want to know. ` +
	`Respond with a single JSON object with exactly these keys: ` +
	`"summary" (string, at most 3 sentences), "highlights" (array of strings), ` +
	`"places_mentioned" (array of place names), "travel_tips" (array of strings), ` +
	`"best_time_to_visit" (string, empty if unknown). Do not invent places that are not mentioned.`

const analysisMaxTokens = 800

// maxDescriptionRunes bounds the description sent to the model.
const maxDescriptionRunes = 4000

// AnalyzeInput identifies the video to analyze.
type AnalyzeInput struct {
	VideoID     string
	Title       string
	Description string
	CityName    string
}

type analysisResponse struct {
	Summary         string   `json:"summary"`
	Highlights      []string `json:"highlights"`
	PlacesMentioned []string `json:"places_mentioned"`
	TravelTips      []string `json:"travel_tips"`
	BestTimeToVisit string   `json:"best_time_to_visit"`
}

// Analyzer produces travel summaries of videos.
type Analyzer struct {
	client *Client
	now    func() time.Time
}

// NewAnalyzer creates an Analyzer backed by client.
func NewAnalyzer(client *Client) *Analyzer {
	return &Analyzer{client: client, now: time.Now}
}

// Enabled reports whether the underlying client can make calls.
func (a *Analyzer) Enabled() bool {
	return a.client.Enabled()
}

// Analyze asks the model for a structured summary of the video.
func (a *Analyzer) Analyze(ctx context.Context, in AnalyzeInput) (*model.VideoAnalysis, error) {
	content, err := a.client.Complete(ctx, Request{
		System:    analysisSystemPrompt,
		User:      analysisPrompt(in),
		MaxTokens: analysisMaxTokens,
		JSON:      true,
	})
	if err != nil {
		return nil, err
	}

	var resp analysisResponse
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &resp); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}
	if strings.TrimSpace(resp.Summary) == "" {
		return nil, fmt.Errorf("analysis has no summary: %w", ErrEmptyCompletion)
	}

	return &model.VideoAnalysis{
		VideoID:         in.VideoID,
		CityName:        in.CityName,
		Summary:         resp.Summary,
		Highlights:      nonNil(resp.Highlights),
		PlacesMentioned: nonNil(resp.PlacesMentioned),
		TravelTips:      nonNil(resp.TravelTips),
		BestTimeToVisit: resp.BestTimeToVisit,
		AnalyzedAt:      a.now().UTC(),
	}, nil
}

func analysisPrompt(in AnalyzeInput) string {
	desc := in.Description
	if r := []rune(desc); len(r) > maxDescriptionRunes {
		desc = string(r[:maxDescriptionRunes])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "City: %s\n", in.CityName)
	fmt.Fprintf(&b, "Title: %s\n", in.Title)
	if desc != "" {
		fmt.Fprintf(&b, "Description:\n%s\n", desc)
	}
	return b.String()
}

// stripCodeFence removes a surrounding ```json fence some models add despite JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
