package core

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// assistantPromotionMinLen is the response length above which an
	// assistant response is also promoted to long-term storage.
	assistantPromotionMinLen = 50

	// assistantPreviewLen is how much of a promoted assistant response is
	// stored long-term.
	assistantPreviewLen = 200

	// agentContextLimit is how many recent entries feed the agent context
	// block.
	agentContextLimit = 15

	// relatedKeywordCap is how many keywords of the latest entry are used
	// to look up related long-term memories.
	relatedKeywordCap = 3

	// relatedEntryCap is how many related long-term entries are appended to
	// the agent context.
	relatedEntryCap = 3

	// persistentScoreFactor converts a long-term entry's importance into a
	// synthetic semantic-search score so it can be merged with the keyword
	// ranked conversational results.
	persistentScoreFactor = 5.0
)

// Manager composes the conversational and persistent tiers into one facade.
//
// It records turns, decides what gets promoted to long-term storage, builds
// the agent-facing context block, merges search results across tiers, and
// persists/restores sessions.
//
// Example:
//
//	mgr, _ := core.NewManager(&core.MemoryConfig{SessionID: "demo"})
//	mgr.AddUserInput("remember that staging runs postgres 15")
//	mgr.AddAssistantResponse("Noted: staging runs postgres 15 behind pgbouncer.")
//	fmt.Println(mgr.GetContextForAgent())
type Manager struct {
	sessionID    string
	conversation *ConversationMemory
	persistent   *PersistentMemory
}

// NewManager creates a memory manager from cfg. A nil cfg selects all
// defaults; an empty SessionID derives one from the current time.
//
// If a snapshot already exists for the session id, its entries are restored
// into conversational memory (through the normal indexing path) before any
// new turn is recorded.
func NewManager(cfg *MemoryConfig) (*Manager, error) {
	if cfg == nil {
		cfg = &MemoryConfig{}
	}

	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("session_%d", time.Now().Unix())
	}

	conversation, err := NewConversationMemory(cfg.MaxConversationEntries)
	if err != nil {
		return nil, err
	}

	persistent, err := NewPersistentMemory(cfg.StorageDir)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		sessionID:    sessionID,
		conversation: conversation,
		persistent:   persistent,
	}

	if historical := persistent.LoadSession(sessionID); len(historical) > 0 {
		conversation.Restore(historical)
	}

	return m, nil
}

// SessionID returns the current session id.
func (m *Manager) SessionID() string {
	return m.sessionID
}

// Conversation exposes the short-term tier.
func (m *Manager) Conversation() *ConversationMemory {
	return m.conversation
}

// Persistent exposes the long-term tier.
func (m *Manager) Persistent() *PersistentMemory {
	return m.persistent
}

// AddUserInput records user input in conversational memory.
func (m *Manager) AddUserInput(input string) string {
	return m.conversation.AddUserInput(input)
}

// AddAssistantResponse records an assistant response. Responses longer than
// 50 characters are additionally promoted to long-term storage at
// importance 0.7, stored as a templated wrapper around the first 200
// characters rather than the raw response.
func (m *Manager) AddAssistantResponse(response string) string {
	id := m.conversation.AddAssistantResponse(response)

	if utf8.RuneCountInString(response) > assistantPromotionMinLen {
		wrapped := fmt.Sprintf("After a user question, the assistant replied: %s...",
			truncateRunes(response, assistantPreviewLen))
		if _, err := m.persistent.promote(wrapped, ImportanceAssistant); err != nil {
			log.Printf("[MEMORY] failed to promote assistant response: %v", err)
		}
	}

	return id
}

// AddToolExecution records a tool execution in conversational memory.
func (m *Manager) AddToolExecution(toolName, input, output string) string {
	return m.conversation.AddToolExecution(toolName, input, output)
}

// AddSummary records a summary and always promotes it to long-term storage
// at importance 0.9.
func (m *Manager) AddSummary(summary string) string {
	id := m.conversation.AddSummary(summary)

	if _, err := m.persistent.StoreImportant(summary, ImportanceSummary); err != nil {
		log.Printf("[MEMORY] failed to promote summary: %v", err)
	}

	return id
}

// GetContextForAgent builds the text block consumed by the agent's prompt
// builder: the recent conversation context followed by a related-history
// section of long-term entries matching keywords of the latest entry.
func (m *Manager) GetContextForAgent() string {
	var b strings.Builder
	b.WriteString(m.conversation.GetContext(agentContextLimit))

	b.WriteString("\n\n## Related Historical Information\n")
	if recent := m.conversation.GetRecent(1); len(recent) > 0 {
		keywords := ExtractKeywords(recent[0].Content, relatedKeywordCap)

		var related []*Entry
		for _, kw := range keywords {
			related = append(related, m.persistent.GetRelatedMemories(kw)...)
		}
		if len(related) > relatedEntryCap {
			related = related[:relatedEntryCap]
		}
		for _, e := range related {
			fmt.Fprintf(&b, "- %s\n", e.Content)
		}
	}

	return b.String()
}

// SearchMemory substring-searches both tiers and returns the concatenated
// results sorted descending by importance.
//
// Results are not de-duplicated: an entry promoted to long-term storage and
// still present in conversational memory can appear twice, once per tier.
func (m *Manager) SearchMemory(query string) []*Entry {
	matches := m.conversation.Search(query)
	matches = append(matches, m.persistent.SearchLongTerm(query, 5)...)

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Importance > matches[j].Importance
	})
	return matches
}

// SemanticSearchMemory merges keyword-ranked conversational results with
// long-term matches. Long-term entries not already present in the
// conversational result set receive a synthetic score of importance × 5.0.
// The merged list is sorted descending by score and truncated to limit.
func (m *Manager) SemanticSearchMemory(query string, limit int) []ScoredEntry {
	results := m.conversation.SemanticSearch(query, limit)

	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		seen[r.Entry.ID] = struct{}{}
	}

	for _, e := range m.persistent.SearchLongTerm(query, limit) {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		results = append(results, ScoredEntry{
			Entry: e,
			Score: e.Importance * persistentScoreFactor,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// GetRelatedMemories is SemanticSearchMemory without the scores.
func (m *Manager) GetRelatedMemories(query string, limit int) []*Entry {
	scored := m.SemanticSearchMemory(query, limit)
	entries := make([]*Entry, len(scored))
	for i, s := range scored {
		entries[i] = s.Entry
	}
	return entries
}

// SaveSession snapshots the current conversational memory under the
// session id.
func (m *Manager) SaveSession() error {
	return m.persistent.SaveSession(m.sessionID, m.conversation)
}

// GetStats returns conversational stats plus the long-term count and
// session id.
func (m *Manager) GetStats() *ManagerStats {
	return &ManagerStats{
		Stats:         *m.conversation.GetStats(),
		LongTermCount: m.persistent.LongTermCount(),
		SessionID:     m.sessionID,
	}
}

// ClearConversationMemory empties the short-term tier. Long-term storage is
// unaffected.
func (m *Manager) ClearConversationMemory() {
	m.conversation.Clear()
}

// ListAllMemories renders a human-readable dump of the memory state:
// the stats header followed by the full conversation history.
func (m *Manager) ListAllMemories() string {
	stats := m.GetStats()

	var b strings.Builder
	b.WriteString("## Memory Statistics\n\n")
	fmt.Fprintf(&b, "Session ID: %s\n", stats.SessionID)
	fmt.Fprintf(&b, "Conversation entries: %d\n", stats.TotalEntries)
	fmt.Fprintf(&b, "Long-term entries: %d\n", stats.LongTermCount)
	fmt.Fprintf(&b, "Session duration: %.1f seconds\n", stats.SessionDuration)
	b.WriteString("\n## Conversation History\n\n")

	for _, e := range m.conversation.Entries() {
		fmt.Fprintf(&b, "[%s] [%s] %s\n", e.Time().Format("15:04:05"), e.Type, e.Content)
	}

	return b.String()
}
