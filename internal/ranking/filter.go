// Package ranking reorders video candidates by relevance using a language
// model, falling back to search order whenever the model cannot help.
package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hszk-dev/tripreel/internal/domain/model"
	"github.com/hszk-dev/tripreel/internal/infrastructure/llm"
	"github.com/hszk-dev/tripreel/internal/infrastructure/metrics"
)

// maxTokens keeps the model's answer to a short index list.
const maxTokens = 100

const systemPrompt = `You rank travel videos for a trip planner. ` +
	`You receive a user query, a location and a numbered list of video titles. ` +
	`Reply ONLY with the numbers of the most relevant videos, comma-separated, most relevant first, ` +
	`for example: 3,0,7. No words, no explanations. ` +
	`Rules: prefer videos actually filmed in or about the location. ` +
	`"Where to stay" means tourist accommodation such as hotels, hostels and neighbourhoods to base a trip in; ` +
	`never rank apartment tours, relocation, cost-of-living or expat lifestyle videos for it.`

// Completer sends one system + user exchange to a language model.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Filter reranks candidates with a Completer.
type Filter struct {
	completer Completer
}

// NewFilter creates a Filter.
func NewFilter(completer Completer) *Filter {
	return &Filter{completer: completer}
}

// FilterByRelevance returns at most limit candidates, most relevant first.
//
// Candidates that already fit within limit are returned unchanged without a
// model call. When the model returns fewer usable indices than limit, the
// remaining slots are filled with unused candidates in their original order.
// Any model failure yields the first limit candidates in original order.
func (f *Filter) FilterByRelevance(ctx context.Context, candidates []model.Video, query, location string, limit int) []model.Video {
	if limit < 0 {
		limit = 0
	}
	if len(candidates) <= limit {
		metrics.RankingOutcomesTotal.WithLabelValues(metrics.RankingSkipped).Inc()
		return candidates
	}

	content, err := f.completer.Complete(ctx, llm.Request{
		System:    systemPrompt,
		User:      buildPrompt(candidates, query, location),
		MaxTokens: maxTokens,
	})
	if err != nil {
		slog.Warn("relevance ranking failed, using search order",
			"query", query,
			"location", location,
			"candidates", len(candidates),
			"error", err,
		)
		metrics.RankingOutcomesTotal.WithLabelValues(metrics.RankingFallback).Inc()
		return truncate(candidates, limit)
	}

	ranked := ParseIndices(content, len(candidates))
	result := make([]model.Video, 0, limit)
	used := make(map[int]bool, limit)
	for _, idx := range ranked {
		if len(result) == limit {
			break
		}
		result = append(result, candidates[idx])
		used[idx] = true
	}

	outcome := metrics.RankingRanked
	for i := 0; i < len(candidates) && len(result) < limit; i++ {
		if used[i] {
			continue
		}
		result = append(result, candidates[i])
		outcome = metrics.RankingBackfilled
	}
	metrics.RankingOutcomesTotal.WithLabelValues(outcome).Inc()

	return result
}

func buildPrompt(candidates []model.Video, query, location string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n", query)
	if location != "" {
		fmt.Fprintf(&b, "Location: %s\n", location)
	}
	b.WriteString("Videos:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i, c.Title)
	}
	return b.String()
}

// ParseIndices reads a comma-separated index list, dropping tokens that are
// not integers, fall outside [0, n), or repeat an earlier index.
func ParseIndices(content string, n int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, tok := range strings.Split(content, ",") {
		idx, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil || idx < 0 || idx >= n || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}

func truncate(candidates []model.Video, limit int) []model.Video {
	if len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}
