// Package synth turns retrieved context into model prompts and wraps the
// model's reply in a tagged Result.
package synth

import (
	"context"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/logger"
)

// DefaultTemperature keeps answers close to the source text.
const DefaultTemperature float32 = 0.3

const (
	DefaultMaxTokens = 1200
	DefaultNumChunks = 10
	DefaultMaxChars  = 15000
)

// Kind tags the outcome of a synthesis call.
type Kind int

const (
	Answered Kind = iota
	NoContext
	Failed
)

func (k Kind) String() string {
	switch k {
	case Answered:
		return "answered"
	case NoContext:
		return "no_context"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of Answer or Summarize. Text is always the string
// to show a user; Err is set when Kind is Failed.
type Result struct {
	Kind Kind
	Text string
	Err  error
}

func (r Result) String() string { return r.Text }

// TokenCounter counts prompt tokens for logging.
type TokenCounter interface {
	Count(text string) int
}

// Options holds model parameters and summary sampling settings. Zero
// values take the package defaults.
type Options struct {
	Temperature float32
	MaxTokens   int
	NumChunks   int
	MaxChars    int
	Tokens      TokenCounter
}

// Synthesizer builds prompts and calls the language model.
type Synthesizer struct {
	llm  domain.Completer
	opts Options
	log  logger.Logger
}

// New returns a Synthesizer over llm.
func New(llm domain.Completer, opts Options, log logger.Logger) *Synthesizer {
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.NumChunks <= 0 {
		opts.NumChunks = DefaultNumChunks
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Synthesizer{llm: llm, opts: opts, log: log}
}

// Answer asks the model to answer query from rc. An empty context returns
// NoContext without calling the model.
func (s *Synthesizer) Answer(ctx context.Context, query string, rc domain.RetrievedContext) Result {
	if len(rc) == 0 {
		s.log.Info("no context retrieved", "query", query)
		return Result{Kind: NoContext, Text: NoContextText}
	}
	s.log.Info("answering question", "query", query, "chunks", len(rc))
	text, err := s.complete(ctx, answerSystemPrompt, answerPrompt(query, rc.Texts()))
	if err != nil {
		s.log.Error("answer failed", "error", err)
		return Result{Kind: Failed, Text: answerFailurePrefix + err.Error(), Err: err}
	}
	return Result{Kind: Answered, Text: text}
}

// Summarize samples up to numChunks evenly spaced chunks and asks the model
// for a summary. numChunks <= 0 uses the configured default.
func (s *Synthesizer) Summarize(ctx context.Context, chunks []string, numChunks int) Result {
	if numChunks <= 0 {
		numChunks = s.opts.NumChunks
	}
	sample := Truncate(strings.Join(Sample(chunks, numChunks), "\n\n"), s.opts.MaxChars)
	s.log.Info("generating summary", "chunks", len(chunks), "sample_chars", len([]rune(sample)))
	text, err := s.complete(ctx, summarySystemPrompt, summaryPrompt(sample))
	if err != nil {
		s.log.Error("summary failed", "error", err)
		return Result{Kind: Failed, Text: SummaryFailedText, Err: err}
	}
	return Result{Kind: Answered, Text: text}
}

func (s *Synthesizer) complete(ctx context.Context, system, user string) (string, error) {
	if s.opts.Tokens != nil {
		s.log.Debug("prompt size", "system_tokens", s.opts.Tokens.Count(system), "user_tokens", s.opts.Tokens.Count(user))
	}
	return s.llm.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: system},
			{Role: domain.RoleUser, Content: user},
		},
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
}

// Sample picks at most num chunks at a stride of max(1, len/num),
// starting with the first.
func Sample(chunks []string, num int) []string {
	if num <= 0 {
		num = DefaultNumChunks
	}
	step := max(1, len(chunks)/num)
	out := make([]string, 0, min(num, len(chunks)))
	for i := 0; i < len(chunks) && len(out) < num; i += step {
		out = append(out, chunks[i])
	}
	return out
}

// Truncate cuts s to maxChars runes and appends "..." when it was longer.
func Truncate(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	return string(r[:maxChars]) + "..."
}
