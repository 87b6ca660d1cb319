package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recallmem "github.com/recallmem/recallmem-go/pkg/core"
)

func TestLoadConfigFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, config *recallmem.Config)
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			check: func(t *testing.T, config *recallmem.Config) {
				assert.Equal(t, "charpresence", config.Embedder.Provider)
				assert.Equal(t, "memory", config.VectorStore.Provider)
				assert.Equal(t, "none", config.LLM.Provider)
			},
		},
		{
			name: "sqlite store",
			envVars: map[string]string{
				"VECTOR_STORE_PROVIDER": "sqlite",
				"SQLITE_PATH":           "/tmp/test.db",
			},
			check: func(t *testing.T, config *recallmem.Config) {
				assert.Equal(t, "sqlite", config.VectorStore.Provider)
				assert.Equal(t, "/tmp/test.db", config.VectorStore.Config["db_path"])
				assert.Equal(t, "documents", config.VectorStore.Config["collection_name"])
			},
		},
		{
			name: "postgres store",
			envVars: map[string]string{
				"VECTOR_STORE_PROVIDER": "postgres",
				"POSTGRES_HOST":         "db.internal",
				"POSTGRES_PORT":         "5433",
			},
			check: func(t *testing.T, config *recallmem.Config) {
				assert.Equal(t, "postgres", config.VectorStore.Provider)
				assert.Equal(t, "db.internal", config.VectorStore.Config["host"])
				assert.Equal(t, 5433, config.VectorStore.Config["port"])
			},
		},
		{
			name: "openai llm defaults model",
			envVars: map[string]string{
				"LLM_PROVIDER": "openai",
				"LLM_API_KEY":  "test-key",
			},
			check: func(t *testing.T, config *recallmem.Config) {
				assert.Equal(t, "openai", config.LLM.Provider)
				assert.Equal(t, "gpt-4", config.LLM.Model)
			},
		},
		{
			name: "ollama embedder defaults",
			envVars: map[string]string{
				"EMBEDDING_PROVIDER": "ollama",
			},
			check: func(t *testing.T, config *recallmem.Config) {
				assert.Equal(t, "nomic-embed-text", config.Embedder.Model)
				assert.Equal(t, "http://localhost:11434", config.Embedder.BaseURL)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			config, err := recallmem.LoadConfigFromEnv()
			require.NoError(t, err)
			require.NotNil(t, config)
			tt.check(t, config)
		})
	}
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"memory": {"session_id": "json_session", "storage_dir": "./mem"},
		"embedder": {"provider": "tfidf"},
		"vector_store": {"provider": "memory"},
		"llm": {"provider": "none"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	config, err := recallmem.LoadConfigFromJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "json_session", config.Memory.SessionID)
	assert.Equal(t, "tfidf", config.Embedder.Provider)
	assert.NoError(t, config.Validate())
}

func TestLoadConfigFromJSONMissingFile(t *testing.T) {
	_, err := recallmem.LoadConfigFromJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFindEnvFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	// Nothing anywhere on the search path yet.
	_, found := recallmem.FindEnvFile()
	assert.False(t, found)

	// A .env.example two levels up is found through the upward search.
	examplePath := filepath.Join(root, ".env.example")
	require.NoError(t, os.WriteFile(examplePath, []byte("SESSION_ID=x\n"), 0o644))
	path, found := recallmem.FindEnvFile()
	require.True(t, found)
	assert.Equal(t, ".env.example", filepath.Base(path))

	// A .env in the working directory wins over the parent's .env.example.
	require.NoError(t, os.WriteFile(filepath.Join(nested, ".env"), []byte("SESSION_ID=y\n"), 0o644))
	path, found = recallmem.FindEnvFile()
	require.True(t, found)
	assert.Equal(t, ".env", filepath.Base(path))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *recallmem.Config
		wantErr bool
	}{
		{
			name: "valid",
			config: &recallmem.Config{
				Embedder:    recallmem.EmbedderConfig{Provider: "charpresence"},
				VectorStore: recallmem.VectorStoreConfig{Provider: "memory"},
			},
			wantErr: false,
		},
		{
			name: "missing embedder",
			config: &recallmem.Config{
				VectorStore: recallmem.VectorStoreConfig{Provider: "memory"},
			},
			wantErr: true,
		},
		{
			name: "missing vector store",
			config: &recallmem.Config{
				Embedder: recallmem.EmbedderConfig{Provider: "charpresence"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
