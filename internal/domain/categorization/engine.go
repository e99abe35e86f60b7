// Package categorization predicts a spending category from a transaction
// description. Keywords are matched in a single pass with Aho-Corasick.
package categorization

import (
	"strings"
	"sync"
	"unicode"

	"github.com/cloudflare/ahocorasick"
	"github.com/google/uuid"
)

// userPriority lifts user-defined rules above every built-in keyword.
const userPriority = 1000

// MatchResult is a keyword hit and the category it assigns.
type MatchResult struct {
	Keyword  string
	Category string
	RuleID   *uuid.UUID
	Priority int
	// WholeWord is false when the keyword only occurs inside a longer word
	// ("UBER" inside "SUBERB").
	WholeWord bool
	UserRule  bool
}

// Confidence scores a hit between 0 and 1.
func (m *MatchResult) Confidence() float64 {
	switch {
	case m == nil:
		return 0
	case !m.WholeWord:
		return 0.4
	case m.UserRule:
		return 0.95
	default:
		return 0.8
	}
}

// Engine matches every keyword against a description in one pass.
// Time complexity is O(n + m) for text length n and m hits, independent of
// the number of keywords.
type Engine struct {
	// the matcher keeps per-call state, so Match takes the full lock
	mu       sync.Mutex
	matcher  *ahocorasick.Matcher
	patterns []string
	metadata [][]MatchResult
}

// NewEngine creates an engine from rules.
func NewEngine(rules []Rule) *Engine {
	e := &Engine{}
	e.Build(rules)
	return e
}

// Build replaces the keyword set. Rules sharing a keyword are grouped so one
// hit yields all of them.
func (e *Engine) Build(rules []Rule) {
	index := make(map[string]int, len(rules))
	patterns := make([]string, 0, len(rules))
	metadata := make([][]MatchResult, 0, len(rules))

	for _, rule := range rules {
		keyword := strings.ToUpper(strings.TrimSpace(rule.Keyword))
		if keyword == "" || rule.Category == "" {
			continue
		}

		result := MatchResult{
			Keyword:  keyword,
			Category: rule.Category,
			Priority: rule.Priority,
		}
		if rule.UserID != nil {
			result.UserRule = true
			result.Priority += userPriority
		}
		if rule.ID != uuid.Nil {
			id := rule.ID
			result.RuleID = &id
		}

		if idx, ok := index[keyword]; ok {
			metadata[idx] = append(metadata[idx], result)
			continue
		}
		index[keyword] = len(patterns)
		patterns = append(patterns, keyword)
		metadata = append(metadata, []MatchResult{result})
	}

	var matcher *ahocorasick.Matcher
	if len(patterns) > 0 {
		matcher = ahocorasick.NewStringMatcher(patterns)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.matcher, e.patterns, e.metadata = matcher, patterns, metadata
}

// Match returns the best hit for description, or nil. Whole-word hits beat
// partial ones, then priority, then the longer keyword.
func (e *Engine) Match(description string) *MatchResult {
	text := strings.ToUpper(description)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.best(text)
}

// MatchBatch matches several descriptions under one lock.
func (e *Engine) MatchBatch(descriptions []string) []*MatchResult {
	results := make([]*MatchResult, len(descriptions))

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, desc := range descriptions {
		results[i] = e.best(strings.ToUpper(desc))
	}
	return results
}

// PatternCount returns the number of distinct keywords loaded.
func (e *Engine) PatternCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.patterns)
}

func (e *Engine) best(text string) *MatchResult {
	if e.matcher == nil || text == "" {
		return nil
	}

	var best *MatchResult
	for _, idx := range e.matcher.Match([]byte(text)) {
		if idx < 0 || idx >= len(e.metadata) {
			continue
		}
		whole := wholeWord(text, e.patterns[idx])
		for i := range e.metadata[idx] {
			candidate := e.metadata[idx][i]
			candidate.WholeWord = whole
			if best == nil || better(candidate, *best) {
				c := candidate
				best = &c
			}
		}
	}
	return best
}

func better(a, b MatchResult) bool {
	if a.WholeWord != b.WholeWord {
		return a.WholeWord
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return len(a.Keyword) > len(b.Keyword)
}

// wholeWord reports whether keyword occurs in text bounded by non-alphanumerics.
func wholeWord(text, keyword string) bool {
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], keyword)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(keyword)
		if boundary(text, start-1) && boundary(text, end) {
			return true
		}
		offset = start + 1
	}
	return false
}

func boundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	r := rune(text[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
