package entities

import (
	"math"
	"sort"
	"strings"
)

// DefaultKeySentences is the number of sentences KeySentences selects when
// asked for none.
const DefaultKeySentences = 5

// KeySentences ranks sentences by the normalised frequency of their content
// words and returns the best n in document order. A sentence that repeats an
// earlier one, or is the tail of the sentence before it (chunk overlap),
// is ignored.
func KeySentences(text string, n int) []string {
	if n <= 0 {
		n = DefaultKeySentences
	}
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	words := make([][]string, len(sentences))
	freq := map[string]float64{}
	for i, s := range sentences {
		words[i] = contentWords(s)
		for _, w := range words[i] {
			freq[w]++
		}
	}
	peak := 0.0
	for _, v := range freq {
		peak = max(peak, v)
	}
	if peak > 0 {
		for w, v := range freq {
			freq[w] = v / peak
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i := range sentences {
		sum := 0.0
		for _, w := range words[i] {
			sum += freq[w]
		}
		if l := len(words[i]); l > 0 {
			sum /= math.Sqrt(float64(l))
		}
		scores[i] = scored{idx: i, score: sum}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	n = min(n, len(scores))

	picked := make([]int, n)
	for i := range picked {
		picked[i] = scores[i].idx
	}
	sort.Ints(picked)
	out := make([]string, n)
	for i, idx := range picked {
		out[i] = sentences[idx]
	}
	return out
}

// splitSentences cuts at sentence punctuation followed by whitespace and at
// blank lines, collapsing inner whitespace.
func splitSentences(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	flush := func(s string) {
		s = strings.Join(strings.Fields(s), " ")
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		if len(out) > 0 && strings.HasSuffix(out[len(out)-1], s) {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) || isSpace(text[i+1]) {
				flush(text[start : i+1])
				start = i + 1
			}
		case '\n':
			if i+1 < len(text) && text[i+1] == '\n' {
				flush(text[start:i])
				start = i + 1
			}
		}
	}
	flush(text[start:])
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
