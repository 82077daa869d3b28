package cli

import (
	"fmt"
	"os"
	"time"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/embedding"
	"docqa/internal/embedding/hashing"
	embopenai "docqa/internal/embedding/openai"
	llmopenai "docqa/internal/llm/openai"
	"docqa/internal/logger"
	"docqa/internal/retriever"
	"docqa/internal/service"
	"docqa/internal/synth"
	"docqa/internal/tokens"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/filestore"
	"docqa/internal/vectorstore/qdrant"
)

// components assembles the pipeline described by cfg.
func components(cfg *config.AppConfig, log logger.Logger) (*service.Pipeline, error) {
	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "hashing":
		emb = hashing.NewEmbedder(cfg.Embedder.Hashing.Dimension)
	case "openai":
		oc := cfg.Embedder.OpenAI
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:    oc.BaseURL,
			APIKeyEnv:  oc.APIKeyEnv,
			Model:      oc.Model,
			Timeout:    oc.Timeout(),
			MaxRetries: oc.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	store, err := newStore(cfg, log)
	if err != nil {
		return nil, err
	}

	llm, err := llmopenai.NewClient(llmopenai.Config{
		BaseURL:    cfg.LLM.BaseURL,
		APIKeyEnv:  cfg.LLM.APIKeyEnv,
		Model:      cfg.LLM.Model,
		Timeout:    cfg.LLM.Timeout(),
		MaxRetries: cfg.LLM.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("llm init failed: %w", err)
	}
	log.Debug("pipeline ready", "embedder", emb.Name(), "store", cfg.VectorStore.Type, "model", llm.Model())

	opts := synth.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		NumChunks:   cfg.Summary.NumChunks,
		MaxChars:    cfg.Summary.MaxChars,
	}
	if cfg.Logging.Level == "debug" {
		opts.Tokens = tokenCounter(cfg, log)
	}

	return service.NewPipeline(service.Components{
		Chunker:     chunker.NewParagraphChunker(cfg.Chunker.Size, cfg.Chunker.Overlap),
		Builder:     vectorstore.NewBuilder(emb, cfg.Embedder.BatchSize, log),
		Store:       store,
		Retriever:   retriever.New(emb, cfg.Retrieval.TopK, log),
		Synthesizer: synth.New(llm, opts, log),
		Logger:      log,
	}), nil
}

// documents assembles a pipeline that only reaches the snapshot store, for
// commands that need neither the embedder nor the language model.
func documents(cfg *config.AppConfig, log logger.Logger) (*service.Pipeline, error) {
	store, err := newStore(cfg, log)
	if err != nil {
		return nil, err
	}
	return service.NewPipeline(service.Components{Store: store, Logger: log}), nil
}

func newStore(cfg *config.AppConfig, log logger.Logger) (vectorstore.Store, error) {
	switch cfg.VectorStore.Type {
	case "file":
		fc := cfg.VectorStore.File
		return filestore.New(fc.Dir, fc.CacheSize, log)
	case "qdrant":
		qc := cfg.VectorStore.Qdrant
		return qdrant.NewStore(qdrant.Config{
			URL:     qc.URL,
			APIKey:  os.Getenv(qc.APIKeyEnv),
			Prefix:  qc.Prefix,
			Timeout: time.Duration(qc.TimeoutSecs) * time.Second,
		}, log)
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}

// tokenCounter falls back to an estimate when the model's encoding cannot be loaded.
func tokenCounter(cfg *config.AppConfig, log logger.Logger) tokens.Counter {
	if cfg.LLM.Tokenizer == "estimate" {
		return tokens.Estimate{}
	}
	c, err := tokens.New(cfg.LLM.Model)
	if err != nil {
		log.Warn("token encoding unavailable, estimating", "model", cfg.LLM.Model, "error", err)
		return c
	}
	if t, ok := c.(*tokens.Tiktoken); ok {
		log.Debug("counting tokens", "encoding", t.Encoding())
	}
	return c
}
