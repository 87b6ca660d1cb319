package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for the RecallMem components.
//
// It includes settings for:
//   - Memory tiers (session id, storage directory, capacity)
//   - Embedding provider (for the vector store)
//   - Vector store backend (in-memory, SQLite, PostgreSQL, MySQL)
//   - LLM provider (for RAG answer generation, optional)
//
// Example:
//
//	config := &core.Config{
//	    Memory: core.MemoryConfig{
//	        SessionID:  "support_42",
//	        StorageDir: "./memory",
//	    },
//	    Embedder: core.EmbedderConfig{Provider: "charpresence"},
//	    VectorStore: core.VectorStoreConfig{Provider: "memory"},
//	}
type Config struct {
	// Memory contains memory-tier configuration.
	Memory MemoryConfig `json:"memory"`

	// Embedder contains embedding provider configuration.
	Embedder EmbedderConfig `json:"embedder"`

	// VectorStore contains vector store configuration.
	VectorStore VectorStoreConfig `json:"vector_store"`

	// LLM contains LLM provider configuration (optional; the RAG system
	// degrades to templated excerpt answers without one).
	LLM LLMConfig `json:"llm"`
}

// MemoryConfig contains configuration for the memory tiers.
type MemoryConfig struct {
	// SessionID identifies the conversation session. Empty derives one from
	// the current time.
	SessionID string `json:"session_id,omitempty"`

	// StorageDir is the directory backing the persistent tier.
	// Empty selects DefaultStorageDir.
	StorageDir string `json:"storage_dir,omitempty"`

	// MaxConversationEntries bounds the conversational tier.
	// Zero selects DefaultMaxEntries.
	MaxConversationEntries int `json:"max_conversation_entries,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
//
// Supported providers: charpresence, tfidf, openai, ollama
type EmbedderConfig struct {
	// Provider is the embedding provider name.
	Provider string `json:"provider"`

	// APIKey is the API key for hosted providers.
	APIKey string `json:"api_key,omitempty"`

	// Model is the embedding model name (e.g. "text-embedding-3-small").
	Model string `json:"model,omitempty"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the embedding vector dimension. Ignored by the
	// charpresence provider, which is fixed at 26.
	Dimensions int `json:"dimensions,omitempty"`
}

// VectorStoreConfig contains configuration for the vector store backend.
//
// Supported providers: memory, sqlite, postgres, mysql
type VectorStoreConfig struct {
	// Provider is the vector store provider name.
	Provider string `json:"provider"`

	// Config contains provider-specific configuration.
	// For sqlite: db_path, collection_name
	// For postgres: host, port, user, password, db_name, collection_name, ssl_mode
	// For mysql: host, port, user, password, db_name, collection_name
	Config map[string]interface{} `json:"config,omitempty"`
}

// LLMConfig contains configuration for the generation provider.
//
// Supported providers: none, openai, ollama
type LLMConfig struct {
	// Provider is the LLM provider name. "none" (or empty) disables
	// generation; RAG answers fall back to templated excerpts.
	Provider string `json:"provider"`

	// APIKey is the API key for hosted providers.
	APIKey string `json:"api_key,omitempty"`

	// Model is the model name (e.g. "gpt-4", "llama3.1").
	Model string `json:"model,omitempty"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `json:"base_url,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - SESSION_ID, MEMORY_DIR, MAX_CONVERSATION_ENTRIES
//   - EMBEDDING_PROVIDER (charpresence, tfidf, openai, ollama),
//     EMBEDDING_API_KEY, EMBEDDING_MODEL, EMBEDDING_BASE_URL,
//     EMBEDDING_DIMENSIONS
//   - VECTOR_STORE_PROVIDER (memory, sqlite, postgres, mysql)
//   - SQLITE_PATH, SQLITE_COLLECTION
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_COLLECTION, POSTGRES_SSLMODE
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE,
//     MYSQL_COLLECTION
//   - LLM_PROVIDER (none, openai, ollama), LLM_API_KEY, LLM_MODEL,
//     LLM_BASE_URL
func LoadConfigFromEnv() (*Config, error) {
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	maxEntries, _ := strconv.Atoi(getEnvOrDefault("MAX_CONVERSATION_ENTRIES", "0"))

	storeProvider := getEnvOrDefault("VECTOR_STORE_PROVIDER", "memory")
	storeConfig := make(map[string]interface{})

	switch storeProvider {
	case "sqlite":
		storeConfig = map[string]interface{}{
			"db_path":         getEnvOrDefault("SQLITE_PATH", "./recallmem.db"),
			"collection_name": getEnvOrDefault("SQLITE_COLLECTION", "documents"),
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		storeConfig = map[string]interface{}{
			"host":            getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":            port,
			"user":            getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password":        os.Getenv("POSTGRES_PASSWORD"),
			"db_name":         getEnvOrDefault("POSTGRES_DATABASE", "recallmem"),
			"collection_name": getEnvOrDefault("POSTGRES_COLLECTION", "documents"),
			"ssl_mode":        getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))
		storeConfig = map[string]interface{}{
			"host":            getEnvOrDefault("MYSQL_HOST", "127.0.0.1"),
			"port":            port,
			"user":            getEnvOrDefault("MYSQL_USER", "root"),
			"password":        os.Getenv("MYSQL_PASSWORD"),
			"db_name":         getEnvOrDefault("MYSQL_DATABASE", "recallmem"),
			"collection_name": getEnvOrDefault("MYSQL_COLLECTION", "documents"),
		}
	}

	embedderProvider := getEnvOrDefault("EMBEDDING_PROVIDER", "charpresence")
	embedderModel := os.Getenv("EMBEDDING_MODEL")
	embedderBaseURL := os.Getenv("EMBEDDING_BASE_URL")

	switch embedderProvider {
	case "openai":
		if embedderModel == "" {
			embedderModel = "text-embedding-3-small"
		}
	case "ollama":
		if embedderModel == "" {
			embedderModel = "nomic-embed-text"
		}
		if embedderBaseURL == "" {
			embedderBaseURL = "http://localhost:11434"
		}
	}
	dims, _ := strconv.Atoi(getEnvOrDefault("EMBEDDING_DIMENSIONS", "0"))

	llmProvider := getEnvOrDefault("LLM_PROVIDER", "none")
	llmModel := os.Getenv("LLM_MODEL")
	llmBaseURL := os.Getenv("LLM_BASE_URL")

	switch llmProvider {
	case "openai":
		if llmModel == "" {
			llmModel = "gpt-4"
		}
	case "ollama":
		if llmModel == "" {
			llmModel = "llama3.1"
		}
		if llmBaseURL == "" {
			llmBaseURL = "http://localhost:11434"
		}
	}

	config := &Config{
		Memory: MemoryConfig{
			SessionID:              os.Getenv("SESSION_ID"),
			StorageDir:             getEnvOrDefault("MEMORY_DIR", DefaultStorageDir),
			MaxConversationEntries: maxEntries,
		},
		Embedder: EmbedderConfig{
			Provider:   embedderProvider,
			APIKey:     os.Getenv("EMBEDDING_API_KEY"),
			Model:      embedderModel,
			BaseURL:    embedderBaseURL,
			Dimensions: dims,
		},
		VectorStore: VectorStoreConfig{
			Provider: storeProvider,
			Config:   storeConfig,
		},
		LLM: LLMConfig{
			Provider: llmProvider,
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    llmModel,
			BaseURL:  llmBaseURL,
		},
	}

	return config, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
//
// The embedder and vector store providers must be set; the LLM provider is
// optional ("none" disables generation).
func (c *Config) Validate() error {
	if c.Embedder.Provider == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.VectorStore.Provider == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches the working directory and up to 5 parent levels for
// a .env or .env.example file, preferring .env at each level.
//
// Returns the path to the found file and whether one was found.
func FindEnvFile() (string, bool) {
	dir, _ := os.Getwd()
	for i := 0; i <= 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
