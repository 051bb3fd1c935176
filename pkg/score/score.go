// Package score rates how relevant a scraped page is for outreach.
package score

import (
	"strings"
	"unicode/utf8"
)

const (
	base = 0.5

	// ShortPage is the text length below which a page is penalized.
	ShortPage = 500
)

type rule struct {
	terms  []string
	weight float64
}

// rules are applied in order; each contributes its weight at most once.
var rules = []rule{
	{[]string{"music submission", "demo", "press kit"}, 0.3},
	{[]string{"electronic", "jazz", "lofi", "experimental"}, 0.2},
	{[]string{"independent", "indie", "underground"}, 0.1},
	{[]string{"contact"}, 0.1},
	{[]string{"country", "pop", "rock", "metal"}, -0.1},
}

// Score returns a relevance value in [0,1] for a page. The url is part of the
// signature for callers that have it but does not affect the result.
func Score(pageText, url string) float64 {
	text := strings.ToLower(pageText)
	s := base
	for _, r := range rules {
		if containsAny(text, r.terms) {
			s += r.weight
		}
	}
	if utf8.RuneCountInString(pageText) < ShortPage {
		s -= 0.1
	}
	return clamp(s)
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	// avoid values like 0.7999999999
	return float64(int(v*1000+0.5)) / 1000
}
