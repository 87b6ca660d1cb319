package core_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recallmem "github.com/recallmem/recallmem-go/pkg/core"
)

func newTestManager(t *testing.T, sessionID string) *recallmem.Manager {
	t.Helper()
	mgr, err := recallmem.NewManager(&recallmem.MemoryConfig{
		SessionID:  sessionID,
		StorageDir: t.TempDir(),
	})
	require.NoError(t, err)
	return mgr
}

func TestManagerDefaults(t *testing.T) {
	mgr, err := recallmem.NewManager(&recallmem.MemoryConfig{
		StorageDir: t.TempDir(),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(mgr.SessionID(), "session_"))
	assert.NotNil(t, mgr.Conversation())
	assert.NotNil(t, mgr.Persistent())
}

func TestManagerAssistantPromotion(t *testing.T) {
	tests := []struct {
		name         string
		response     string
		wantPromoted bool
	}{
		{
			name:         "short response stays short-term",
			response:     "Sure.",
			wantPromoted: false,
		},
		{
			name: "long response promoted",
			response: "The deployment pipeline runs lint, unit tests, and an " +
				"integration suite before promoting the build to staging.",
			wantPromoted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := newTestManager(t, "promotion_test")

			id := mgr.AddAssistantResponse(tt.response)
			assert.NotEmpty(t, id)
			assert.Equal(t, 1, mgr.Conversation().Len())

			if tt.wantPromoted {
				require.Equal(t, 1, mgr.Persistent().LongTermCount())
				promoted := mgr.Persistent().LongTermEntries()[0]
				assert.Contains(t, promoted.Content, "the assistant replied:")
				assert.Equal(t, 0.7, promoted.Importance)
			} else {
				assert.Equal(t, 0, mgr.Persistent().LongTermCount())
			}
		})
	}
}

func TestManagerSummaryAlwaysPromoted(t *testing.T) {
	mgr := newTestManager(t, "summary_test")

	mgr.AddSummary("User prefers terse answers with code samples.")

	require.Equal(t, 1, mgr.Persistent().LongTermCount())
	promoted := mgr.Persistent().LongTermEntries()[0]
	assert.Equal(t, "User prefers terse answers with code samples.", promoted.Content)
	assert.Equal(t, 0.9, promoted.Importance)
}

func TestManagerGetContextForAgent(t *testing.T) {
	mgr := newTestManager(t, "context_test")

	_, err := mgr.Persistent().StoreImportant("The billing service depends on the ledger database.", 0.9)
	require.NoError(t, err)

	mgr.AddUserInput("why is the billing service slow?")

	context := mgr.GetContextForAgent()
	assert.Contains(t, context, "## Conversation History")
	assert.Contains(t, context, "User: why is the billing service slow?")
	assert.Contains(t, context, "## Related Historical Information")
	assert.Contains(t, context, "- The billing service depends on the ledger database.")
}

func TestManagerSearchMemoryMergesTiers(t *testing.T) {
	mgr := newTestManager(t, "search_test")

	mgr.AddUserInput("check the backup schedule")
	_, err := mgr.Persistent().StoreImportant("backup retention is 30 days", 0.9)
	require.NoError(t, err)

	results := mgr.SearchMemory("backup")
	require.Len(t, results, 2)

	// Sorted descending by importance: long-term 0.9 before user 0.8.
	assert.Equal(t, "backup retention is 30 days", results[0].Content)
	assert.Equal(t, "check the backup schedule", results[1].Content)
}

func TestManagerSemanticSearchMemorySyntheticScore(t *testing.T) {
	mgr := newTestManager(t, "semantic_test")

	_, err := mgr.Persistent().StoreImportant("incident runbook for queue saturation", 0.9)
	require.NoError(t, err)

	results := mgr.SemanticSearchMemory("incident runbook", 5)
	require.Len(t, results, 1)

	// Long-term-only matches carry importance * 5.0.
	assert.InDelta(t, 0.9*5.0, results[0].Score, 1e-9)
	assert.Equal(t, recallmem.TypePersistent, results[0].Entry.Type)
}

func TestManagerSessionContinuity(t *testing.T) {
	dir := t.TempDir()

	first, err := recallmem.NewManager(&recallmem.MemoryConfig{
		SessionID:  "continuity",
		StorageDir: dir,
	})
	require.NoError(t, err)
	first.AddUserInput("remember the vault token path")
	require.NoError(t, first.SaveSession())

	second, err := recallmem.NewManager(&recallmem.MemoryConfig{
		SessionID:  "continuity",
		StorageDir: dir,
	})
	require.NoError(t, err)

	// History is restored before any new turn.
	require.Equal(t, 1, second.Conversation().Len())
	assert.Equal(t, "remember the vault token path", second.Conversation().Entries()[0].Content)

	// And restored entries are reachable through semantic search.
	results := second.SemanticSearchMemory("vault token", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "remember the vault token path", results[0].Entry.Content)
}

func TestManagerClearConversationMemory(t *testing.T) {
	mgr := newTestManager(t, "clear_test")

	mgr.AddUserInput("ephemeral note")
	mgr.AddSummary("durable summary")
	require.Equal(t, 1, mgr.Persistent().LongTermCount())

	mgr.ClearConversationMemory()

	assert.Equal(t, 0, mgr.Conversation().Len())
	// Long-term storage is untouched.
	assert.Equal(t, 1, mgr.Persistent().LongTermCount())
}

func TestManagerGetStats(t *testing.T) {
	mgr := newTestManager(t, "stats_test")

	mgr.AddUserInput("one")
	mgr.AddSummary("two")

	stats := mgr.GetStats()
	assert.Equal(t, "stats_test", stats.SessionID)
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1, stats.LongTermCount)
}

func TestManagerListAllMemories(t *testing.T) {
	mgr := newTestManager(t, "dump_test")
	mgr.AddUserInput("inspect the audit log")

	dump := mgr.ListAllMemories()
	assert.Contains(t, dump, "## Memory Statistics")
	assert.Contains(t, dump, "Session ID: dump_test")
	assert.Contains(t, dump, "## Conversation History")
	assert.Contains(t, dump, "inspect the audit log")
}
