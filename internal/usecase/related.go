package usecase

import (
	"strings"
	"unicode"
)

// maxRelatedKeywords bounds how many title words feed a related search.
const maxRelatedKeywords = 5

// titleStopwords are words that say nothing about a video's subject.
var titleStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "of": true, "in": true,
	"on": true, "to": true, "for": true, "with": true, "at": true, "by": true,
	"is": true, "my": true, "our": true, "your": true, "this": true, "from": true,
	"best": true, "top": true, "video": true, "vlog": true, "episode": true,
	"part": true, "vs": true, "how": true, "what": true, "why": true,
}

// relatedQuery builds a search from the distinctive words of a title and the city.
func relatedQuery(title, city string) string {
	cityLower := strings.ToLower(strings.TrimSpace(city))
	cityWords := make(map[string]bool)
	for _, w := range strings.Fields(cityLower) {
		cityWords[w] = true
	}

	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})

	seen := make(map[string]bool)
	keywords := make([]string, 0, maxRelatedKeywords+1)
	for _, w := range words {
		w = strings.Trim(w, "'")
		if len([]rune(w)) < 3 || titleStopwords[w] || cityWords[w] || seen[w] || isNumber(w) {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
		if len(keywords) == maxRelatedKeywords {
			break
		}
	}

	if cityLower != "" {
		keywords = append(keywords, strings.TrimSpace(city))
	}
	return strings.Join(keywords, " ")
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
