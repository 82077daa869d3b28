// Package openaicompat builds go-openai clients for any OpenAI-compatible
// endpoint and applies a shared retry policy to their calls.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sethvargo/go-retry"
)

// Config holds connection settings.
type Config struct {
	BaseURL    string
	APIKey     string
	APIKeyEnv  string
	Timeout    time.Duration
	MaxRetries int
	// BackoffBase is the first retry delay; defaults to 200ms.
	BackoffBase time.Duration
}

// NewClient creates a go-openai client. The API key comes from APIKey or,
// when empty, from the APIKeyEnv environment variable. A missing key is only
// an error for the public OpenAI endpoint; local servers usually accept any.
func NewClient(cfg Config) (*openai.Client, error) {
	key := cfg.APIKey
	if key == "" && cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if key == "" && (cfg.BaseURL == "" || strings.Contains(cfg.BaseURL, "api.openai.com")) {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	oc := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}
	return openai.NewClientWithConfig(oc), nil
}

// Do runs fn, retrying rate-limit and server errors with exponential backoff.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	base := cfg.BackoffBase
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	backoff := retry.WithCappedDuration(5*time.Second, retry.NewExponential(base))
	backoff = retry.WithMaxRetries(uint64(retries), backoff) // #nosec G115 -- clamped above
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && Retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// Retryable reports whether err is a 429 or 5xx from the service.
func Retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
