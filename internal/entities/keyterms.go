package entities

import (
	"regexp"
	"sort"
	"strings"
)

// Term is a word and its number of occurrences.
type Term struct {
	Word  string
	Count int
}

var wordPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// KeyTerms ranks non-stopword terms by frequency, most frequent first, ties
// broken alphabetically. n <= 0 returns every term.
func KeyTerms(text string, n int) []Term {
	freq := map[string]int{}
	for _, w := range contentWords(text) {
		freq[w]++
	}
	terms := make([]Term, 0, len(freq))
	for w, c := range freq {
		terms = append(terms, Term{Word: w, Count: c})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Word < terms[j].Word
	})
	if n > 0 && n < len(terms) {
		terms = terms[:n]
	}
	return terms
}

// contentWords lowercases text and drops stopwords and words under three letters.
func contentWords(text string) []string {
	var out []string
	for _, tok := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len([]rune(tok)) < 3 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		// drafting words that dominate contracts without saying anything
		"shall", "may", "any", "all", "each", "other", "its", "their", "which", "who", "hereby", "herein", "thereof", "hereof", "hereto", "not", "has", "have", "such", "upon", "under", "party", "parties",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
