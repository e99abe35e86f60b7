package dedup

import (
	"slices"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Similarity scores two merchant or description strings from 0 to 100. Word
// order is ignored: "SWIGGY BANGALORE" and "BANGALORE SWIGGY" score 100.
func Similarity(a, b string) int {
	a, b = canonical(a), canonical(b)
	if a == "" || b == "" {
		return 0
	}
	return max(fuzzyScore(a, b), fuzzyScore(sortTokens(a), sortTokens(b)))
}

// fuzzyScore combines containment, edit distance and subsequence rank.
func fuzzyScore(s1, s2 string) int {
	if s1 == s2 {
		return 100
	}

	// "SWIGGY LTD" vs "SWIGGY" is the common merchant variation
	if strings.Contains(s1, s2) {
		return 75 + (25 * len(s2) / len(s1))
	}
	if strings.Contains(s2, s1) {
		return 75 + (25 * len(s1) / len(s2))
	}

	maxLen := max(len(s1), len(s2))
	distance := fuzzy.LevenshteinDistance(s1, s2)
	levenshteinScore := 100 * (maxLen - distance) / maxLen

	// the shorter string spelled out in order inside the longer one
	short, long := s1, s2
	if len(short) > len(long) {
		short, long = long, short
	}
	rankScore := 0
	if rank := fuzzy.RankMatch(short, long); rank >= 0 {
		rankScore = 60 - (rank * 40 / len(long))
	}

	return max(levenshteinScore, rankScore)
}

// canonical upper-cases s, turns punctuation into spaces and collapses runs.
func canonical(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func sortTokens(s string) string {
	toks := strings.Fields(s)
	slices.Sort(toks)
	return strings.Join(toks, " ")
}
