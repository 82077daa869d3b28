package hashing

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// Embedder is an offline term-frequency embedder. Terms are hashed into a
// fixed number of buckets, so no vocabulary has to be built or persisted
// and query vectors are comparable with vectors built earlier.
type Embedder struct {
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewEmbedder creates a hashing embedder producing vectors of the given dimension.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = 512
	}
	return &Embedder{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hashing" }

// ErrNoTokens is returned by Embed for text without any indexable term.
var ErrNoTokens = errors.New("no indexable tokens in text")

// Embed computes the L2-normalised hashed term-frequency vector for text.
// Text without indexable terms, such as a query made of stopwords, fails
// with ErrNoTokens.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := e.tokenize(text)
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}
	return e.vector(tokens), nil
}

// EmbedTexts embeds document chunks. A chunk without indexable terms, such
// as a signature line, does not abort indexing: it gets a vector of norm
// farAway, whose squared distance to any unit vector is at least 9, so it
// ranks after every chunk with terms.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tokens := e.tokenize(text)
		if len(tokens) == 0 {
			out[i] = e.parked()
			continue
		}
		out[i] = e.vector(tokens)
	}
	return out, nil
}

const farAway = 4.0

func (e *Embedder) parked() []float32 {
	out := make([]float32, e.dimension)
	v := float32(farAway / math.Sqrt(float64(e.dimension)))
	for i := range out {
		out[i] = v
	}
	return out
}

func (e *Embedder) vector(tokens []string) []float32 {
	vec := make([]float64, e.dimension)
	for _, tok := range tokens {
		idx, sign := e.bucket(tok)
		vec[idx] += sign
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	out := make([]float32, e.dimension)
	for i, v := range vec {
		if norm > 0 {
			v /= norm
		}
		out[i] = float32(v)
	}
	return out
}

// bucket hashes a term to an index and a +/-1 sign; the sign keeps
// collisions from always adding up.
func (e *Embedder) bucket(term string) (int, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(term))
	sum := h.Sum64()
	sign := 1.0
	if sum>>63 == 1 {
		sign = -1.0
	}
	return int(sum % uint64(e.dimension)), sign // #nosec G115 -- dimension is positive
}

func (e *Embedder) tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := e.tokenPattern.FindAllString(lower, -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
