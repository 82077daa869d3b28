package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/entities"
)

const lease = `RESIDENTIAL LEASE AGREEMENT

This Lease is made on January 5, 2024 between Acme Holdings LLC ("Landlord") and Jane Doe ("Tenant").

The Tenant shall pay rent of $1,200.00 to the Landlord on the first day of each month.

This Agreement shall be governed by the laws of the State of California.`

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b c", preview("a\n\n b\t c", 10))
	assert.Equal(t, "abc…", preview("abcdef", 3))
	assert.Equal(t, "", preview("   ", 5))
}

func TestFormatTerms(t *testing.T) {
	got := formatTerms([]entities.Term{{Word: "rent", Count: 3}, {Word: "tenant", Count: 2}})
	assert.Equal(t, "rent (3), tenant (2)", got)
	assert.Equal(t, "", formatTerms(nil))
}

// fakeChat answers every chat completion with the same text.
func fakeChat(t *testing.T, answer string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": answer},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeConfig(t *testing.T, llmURL, storeDir string) string {
	t.Helper()
	cfg := fmt.Sprintf(`chunker:
  size: 200
  overlap: 20
embedder:
  type: hashing
  batch_size: 8
  hashing:
    dimension: 128
llm:
  base_url: %s
  api_key_env: DOCQA_TEST_API_KEY
  max_retries: 0
  tokenizer: estimate
vector_store:
  type: file
  file:
    dir: %s
logging:
  level: error
`, llmURL, storeDir)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	processID, askTopK, summarizeChunks = "", 0, 0
	summarizeOffline, summarizeSentences = false, 0
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandsEndToEnd(t *testing.T) {
	srv, calls := fakeChat(t, "Rent is due on the first day of each month.")
	storeDir := filepath.Join(t.TempDir(), "store")
	cfgPath := writeConfig(t, srv.URL, storeDir)
	doc := filepath.Join(t.TempDir(), "lease.txt")
	require.NoError(t, os.WriteFile(doc, []byte(lease), 0o644))

	out, err := run(t, "--config", cfgPath, "process", doc, "--id", "lease-1")
	require.NoError(t, err)
	assert.Contains(t, out, "lease-1")
	assert.Contains(t, out, "chunks indexed")
	assert.Contains(t, out, "Rent is due on the first day of each month.")
	assert.Contains(t, out, "Acme Holdings LLC")
	assert.Contains(t, out, "$1,200.00")
	assert.DirExists(t, filepath.Join(storeDir, "lease-1"))
	assert.EqualValues(t, 1, calls.Load())

	out, err = run(t, "--config", cfgPath, "ask", "lease-1", "When", "is", "rent", "due?")
	require.NoError(t, err)
	assert.Contains(t, out, "Rent is due on the first day of each month.")
	assert.Contains(t, out, "Sources")
	assert.EqualValues(t, 2, calls.Load())

	out, err = run(t, "--config", cfgPath, "summarize", "lease-1", "--offline", "--sentences", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "- "))
	assert.EqualValues(t, 2, calls.Load())

	out, err = run(t, "--config", cfgPath, "summarize", "lease-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Rent is due on the first day of each month.")
	assert.EqualValues(t, 3, calls.Load())

	out, err = run(t, "--config", cfgPath, "list")
	require.NoError(t, err)
	assert.Equal(t, "lease-1\n", out)

	out, err = run(t, "--config", cfgPath, "chunks", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "#0")
	assert.Contains(t, out, "tokens")

	out, err = run(t, "--config", cfgPath, "delete", "lease-1")
	require.NoError(t, err)
	assert.Equal(t, "deleted lease-1\n", out)
	out, err = run(t, "--config", cfgPath, "list")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = run(t, "--config", cfgPath, "ask", "lease-1", "anything")
	require.Error(t, err)
}

func TestProcessRejectsUnsupportedFile(t *testing.T) {
	srv, calls := fakeChat(t, "unused")
	cfgPath := writeConfig(t, srv.URL, t.TempDir())
	png := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o644))

	_, err := run(t, "--config", cfgPath, "process", png)
	require.Error(t, err)
	assert.EqualValues(t, 0, calls.Load())
}

func TestInvalidConfigIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker:\n  size: 10\n  overlap: 10\n"), 0o644))

	_, err := run(t, "--config", path, "list")
	require.Error(t, err)
}

func TestProcessReportsFailedStage(t *testing.T) {
	srv, calls := fakeChat(t, "unused")
	cfgPath := writeConfig(t, srv.URL, t.TempDir())
	blank := filepath.Join(t.TempDir(), "blank.txt")
	require.NoError(t, os.WriteFile(blank, []byte("   \n\n  \n"), 0o644))

	_, err := run(t, "--config", cfgPath, "process", blank, "--id", "blank")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processing blank failed during chunking")
	assert.EqualValues(t, 0, calls.Load())
}

func TestSummarizeOfflineWithoutAPIKey(t *testing.T) {
	srv, _ := fakeChat(t, "A residential lease.")
	storeDir := filepath.Join(t.TempDir(), "store")
	doc := filepath.Join(t.TempDir(), "lease.txt")
	require.NoError(t, os.WriteFile(doc, []byte(lease), 0o644))
	_, err := run(t, "--config", writeConfig(t, srv.URL, storeDir), "process", doc, "--id", "lease-2")
	require.NoError(t, err)

	t.Setenv("DOCQA_TEST_API_KEY", "")
	public := writeConfig(t, "https://api.openai.com/v1", storeDir)

	out, err := run(t, "--config", public, "summarize", "lease-2", "--offline", "--sentences", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "- "))

	out, err = run(t, "--config", public, "list")
	require.NoError(t, err)
	assert.Equal(t, "lease-2\n", out)

	_, err = run(t, "--config", public, "summarize", "lease-2")
	require.ErrorContains(t, err, "missing API key")
}
