// Package keywords derives an ordered set of keywords from a book summary.
// Extraction is pure and deterministic: tokenize, drop stopwords and short
// tokens, rank by frequency with ties broken by first occurrence.
package keywords

import (
	"regexp"
	"sort"
	"strings"
)

const (
	// MinSummaryLength is the inclusive threshold below which no keywords
	// are extracted. A summary of exactly this length is extracted.
	MinSummaryLength = 30

	// DefaultLimit bounds how many keywords Extract returns.
	DefaultLimit = 10

	minTokenLength = 3
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Extract returns up to DefaultLimit keywords from summary, in descending
// rank order. Summaries shorter than MinSummaryLength yield nil.
func Extract(summary string) []string {
	return ExtractN(summary, DefaultLimit)
}

// ExtractN is Extract with a caller-supplied limit.
func ExtractN(summary string, limit int) []string {
	trimmed := strings.TrimSpace(summary)
	if len([]rune(trimmed)) < MinSummaryLength || limit <= 0 {
		return nil
	}

	type candidate struct {
		token string
		count int
		first int // index of first occurrence, for deterministic tie-breaks
	}

	counts := map[string]*candidate{}
	order := []*candidate{}

	for i, token := range tokenPattern.FindAllString(strings.ToLower(trimmed), -1) {
		if len(token) < minTokenLength {
			continue
		}
		if _, ok := stopwords[token]; ok {
			continue
		}
		if c, ok := counts[token]; ok {
			c.count++
			continue
		}
		c := &candidate{token: token, count: 1, first: i}
		counts[token] = c
		order = append(order, c)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})

	if len(order) > limit {
		order = order[:limit]
	}

	result := make([]string, len(order))
	for i, c := range order {
		result[i] = c.token
	}
	return result
}

// stopwords is a small English stopword set. Matching is done on lowercased
// tokens.
var stopwords = map[string]struct{}{}

func init() {
	list := []string{
		"about", "after", "all", "also", "and", "any", "are", "because",
		"been", "before", "being", "between", "both", "but", "can", "could",
		"did", "does", "down", "each", "few", "for", "from", "further",
		"had", "has", "have", "having", "her", "here", "hers", "him", "his",
		"how", "into", "its", "just", "like", "more", "most", "nor", "not",
		"now", "off", "once", "only", "other", "our", "out", "over", "own",
		"same", "she", "should", "some", "such", "than", "that", "the",
		"their", "them", "then", "there", "these", "they", "this", "those",
		"through", "too", "under", "until", "very", "was", "were", "what",
		"when", "where", "which", "while", "who", "whom", "why", "will",
		"with", "would", "you", "your",
	}
	for _, w := range list {
		stopwords[w] = struct{}{}
	}
}
