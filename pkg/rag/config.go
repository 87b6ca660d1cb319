package rag

import (
	"fmt"

	"github.com/recallmem/recallmem-go/pkg/core"
	"github.com/recallmem/recallmem-go/pkg/embedder"
	"github.com/recallmem/recallmem-go/pkg/embedder/charpresence"
	embedderollama "github.com/recallmem/recallmem-go/pkg/embedder/ollama"
	embedderopenai "github.com/recallmem/recallmem-go/pkg/embedder/openai"
	"github.com/recallmem/recallmem-go/pkg/embedder/tfidf"
	"github.com/recallmem/recallmem-go/pkg/llm"
	llmollama "github.com/recallmem/recallmem-go/pkg/llm/ollama"
	llmopenai "github.com/recallmem/recallmem-go/pkg/llm/openai"
	"github.com/recallmem/recallmem-go/pkg/vectorstore"
	"github.com/recallmem/recallmem-go/pkg/vectorstore/inmem"
	"github.com/recallmem/recallmem-go/pkg/vectorstore/mysql"
	"github.com/recallmem/recallmem-go/pkg/vectorstore/postgres"
	"github.com/recallmem/recallmem-go/pkg/vectorstore/sqlite"
)

// NewSystemFromConfig builds a RAG system from configuration, constructing
// the embedder, vector store, and optional LLM from their provider names.
func NewSystemFromConfig(cfg *core.Config) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := initEmbedder(&cfg.Embedder)
	if err != nil {
		return nil, err
	}

	store, err := initStore(&cfg.VectorStore, provider.Dimensions())
	if err != nil {
		return nil, err
	}

	var opts []Option
	generation, err := initLLM(&cfg.LLM)
	if err != nil {
		return nil, err
	}
	if generation != nil {
		opts = append(opts, WithLLM(generation))
	}

	return NewSystem(store, provider, opts...)
}

// initEmbedder creates the embedding provider from configuration.
func initEmbedder(cfg *core.EmbedderConfig) (embedder.Provider, error) {
	switch cfg.Provider {
	case "charpresence":
		return charpresence.New(), nil

	case "tfidf":
		return tfidf.New(nil), nil

	case "openai":
		return embedderopenai.NewClient(&embedderopenai.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})

	case "ollama":
		return embedderollama.NewClient(&embedderollama.Config{
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})

	default:
		return nil, core.NewMemoryError("init embedder",
			fmt.Errorf("%w: unknown embedding provider %q", core.ErrInvalidConfig, cfg.Provider))
	}
}

// initStore creates the vector store backend from configuration.
func initStore(cfg *core.VectorStoreConfig, dims int) (vectorstore.Store, error) {
	switch cfg.Provider {
	case "", "memory":
		return inmem.New(), nil

	case "sqlite":
		return sqlite.NewClient(&sqlite.Config{
			DBPath:             getString(cfg.Config, "db_path", "./recallmem.db"),
			CollectionName:     getString(cfg.Config, "collection_name", "documents"),
			EmbeddingModelDims: dims,
		})

	case "postgres":
		return postgres.NewClient(&postgres.Config{
			Host:               getString(cfg.Config, "host", "localhost"),
			Port:               getInt(cfg.Config, "port", 5432),
			User:               getString(cfg.Config, "user", "postgres"),
			Password:           getString(cfg.Config, "password", ""),
			DBName:             getString(cfg.Config, "db_name", "recallmem"),
			CollectionName:     getString(cfg.Config, "collection_name", "documents"),
			EmbeddingModelDims: dims,
			SSLMode:            getString(cfg.Config, "ssl_mode", "disable"),
		})

	case "mysql":
		return mysql.NewClient(&mysql.Config{
			Host:               getString(cfg.Config, "host", "127.0.0.1"),
			Port:               getInt(cfg.Config, "port", 3306),
			User:               getString(cfg.Config, "user", "root"),
			Password:           getString(cfg.Config, "password", ""),
			DBName:             getString(cfg.Config, "db_name", "recallmem"),
			CollectionName:     getString(cfg.Config, "collection_name", "documents"),
			EmbeddingModelDims: dims,
		})

	default:
		return nil, core.NewMemoryError("init vector store",
			fmt.Errorf("%w: unknown vector store provider %q", core.ErrInvalidConfig, cfg.Provider))
	}
}

// initLLM creates the generation provider from configuration. Returns
// (nil, nil) when generation is disabled.
func initLLM(cfg *core.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil

	case "openai":
		return llmopenai.NewClient(&llmopenai.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})

	case "ollama":
		return llmollama.NewClient(&llmollama.Config{
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
		})

	default:
		return nil, core.NewMemoryError("init llm",
			fmt.Errorf("%w: unknown LLM provider %q", core.ErrInvalidConfig, cfg.Provider))
	}
}

// getString extracts a string value from a provider config map.
func getString(config map[string]interface{}, key, defaultValue string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return defaultValue
}

// getInt extracts an int value from a provider config map. JSON decoding
// produces float64 for numbers, so both are accepted.
func getInt(config map[string]interface{}, key string, defaultValue int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return defaultValue
	}
}
