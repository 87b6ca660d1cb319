package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recallmem "github.com/recallmem/recallmem-go/pkg/core"
)

func TestStoreImportantThreshold(t *testing.T) {
	tests := []struct {
		name       string
		importance float64
		wantStored bool
	}{
		{"below threshold", 0.75, false},
		{"at threshold", 0.8, true},
		{"above threshold", 0.95, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm, err := recallmem.NewPersistentMemory(t.TempDir())
			require.NoError(t, err)

			id, err := pm.StoreImportant("service account rotation policy", tt.importance)
			require.NoError(t, err)

			if tt.wantStored {
				assert.NotEmpty(t, id)
				assert.Equal(t, 1, pm.LongTermCount())
			} else {
				assert.Empty(t, id)
				assert.Equal(t, 0, pm.LongTermCount())
			}
		})
	}
}

func TestStoreImportantPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	pm, err := recallmem.NewPersistentMemory(dir)
	require.NoError(t, err)

	id, err := pm.StoreImportant("primary region is eu-west-1", 0.85)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	reopened, err := recallmem.NewPersistentMemory(dir)
	require.NoError(t, err)
	require.Equal(t, 1, reopened.LongTermCount())

	entries := reopened.LongTermEntries()
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, recallmem.TypePersistent, entries[0].Type)
	assert.Equal(t, "primary region is eu-west-1", entries[0].Content)
	assert.Equal(t, 0.85, entries[0].Importance)
}

func TestSearchLongTerm(t *testing.T) {
	pm, err := recallmem.NewPersistentMemory(t.TempDir())
	require.NoError(t, err)

	_, err = pm.StoreImportant("staging database credentials rotated", 0.8)
	require.NoError(t, err)
	_, err = pm.StoreImportant("production database sharding plan", 0.95)
	require.NoError(t, err)
	_, err = pm.StoreImportant("frontend bundle size budget", 0.85)
	require.NoError(t, err)

	results := pm.SearchLongTerm("database", 5)
	require.Len(t, results, 2)

	// Sorted descending by importance.
	assert.Equal(t, "production database sharding plan", results[0].Content)
	assert.Equal(t, "staging database credentials rotated", results[1].Content)

	// Case-insensitive matching.
	assert.Len(t, pm.SearchLongTerm("DATABASE", 5), 2)

	// Limit applies.
	assert.Len(t, pm.SearchLongTerm("database", 1), 1)
}

func TestSessionRoundTrip(t *testing.T) {
	pm, err := recallmem.NewPersistentMemory(t.TempDir())
	require.NoError(t, err)

	cm, err := recallmem.NewConversationMemory(10)
	require.NoError(t, err)
	cm.AddUserInput("enable debug logging on the ingest worker")
	cm.AddAssistantResponse("Done, log level set to debug.")

	require.NoError(t, pm.SaveSession("ops_review", cm))

	loaded := pm.LoadSession("ops_review")
	require.Len(t, loaded, 2)

	saved := cm.Entries()
	for i := range saved {
		assert.Equal(t, saved[i].ID, loaded[i].ID)
		assert.Equal(t, saved[i].Type, loaded[i].Type)
		assert.Equal(t, saved[i].Content, loaded[i].Content)
		assert.Equal(t, saved[i].Importance, loaded[i].Importance)
		assert.Equal(t, saved[i].Timestamp, loaded[i].Timestamp)
	}
}

func TestLoadSessionUnknownID(t *testing.T) {
	pm, err := recallmem.NewPersistentMemory(t.TempDir())
	require.NoError(t, err)

	assert.Nil(t, pm.LoadSession("never_saved"))
}

func TestLoadSessionCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	pm, err := recallmem.NewPersistentMemory(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "sessions", "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	assert.Nil(t, pm.LoadSession("broken"))
}

func TestListSessions(t *testing.T) {
	pm, err := recallmem.NewPersistentMemory(t.TempDir())
	require.NoError(t, err)

	cm, err := recallmem.NewConversationMemory(10)
	require.NoError(t, err)
	cm.AddUserInput("hello")

	require.NoError(t, pm.SaveSession("beta", cm))
	require.NoError(t, pm.SaveSession("alpha", cm))

	assert.Equal(t, []string{"alpha", "beta"}, pm.ListSessions())
}

func TestCorruptLongTermFileDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "long_term.json")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(path, []byte("]["), 0o644))

	pm, err := recallmem.NewPersistentMemory(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, pm.LongTermCount())
}
