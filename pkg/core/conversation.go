package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Importance tiers assigned by the convenience adders. Higher tiers survive
// eviction longer and are more likely to qualify for long-term promotion.
const (
	ImportanceUser      = 0.8
	ImportanceAssistant = 0.7
	ImportanceTool      = 0.6
	ImportanceSummary   = 0.9
	ImportanceDefault   = 0.5
)

const (
	// DefaultMaxEntries is the default capacity bound of a ConversationMemory.
	DefaultMaxEntries = 100

	// indexKeywordCap caps how many keywords of an entry's content are
	// indexed at add time.
	indexKeywordCap = 10

	// queryKeywordCap caps how many keywords are extracted from a semantic
	// search query.
	queryKeywordCap = 5

	// candidateKeywordCap caps how many keywords of a candidate entry are
	// considered when scoring it against a query.
	candidateKeywordCap = 20

	// toolOutputPreviewLen is the length of the tool output preview stored
	// in entry metadata.
	toolOutputPreviewLen = 100
)

// ConversationMemory is the short-term, in-memory tier: a bounded ordered
// collection of entries plus an inverted keyword index used for cheap
// semantic retrieval.
//
// Insertion order is recency order. When the capacity bound is exceeded the
// lowest-importance entries are evicted, so after heavy use the sequence is
// ordered by importance rather than strict recency; this is intentional
// eviction-by-importance. Evicted entries are purged from the keyword index,
// which therefore stays consistent with the entry sequence at all times.
//
// All methods are safe for concurrent use; mutating access is serialized
// behind a single writer lock.
type ConversationMemory struct {
	mu sync.RWMutex

	maxEntries   int
	entries      []*Entry
	sessionStart time.Time

	// index maps keyword -> set of entry ids containing it.
	index map[string]map[string]struct{}

	// entryKeywords maps entry id -> its indexed keywords, so eviction can
	// purge the index without re-extracting.
	entryKeywords map[string][]string

	node *snowflake.Node
}

// NewConversationMemory creates a conversational memory bounded to
// maxEntries entries. A maxEntries <= 0 selects DefaultMaxEntries.
func NewConversationMemory(maxEntries int) (*ConversationMemory, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewMemoryError("NewConversationMemory", err)
	}

	return &ConversationMemory{
		maxEntries:    maxEntries,
		sessionStart:  time.Now(),
		index:         make(map[string]map[string]struct{}),
		entryKeywords: make(map[string][]string),
		node:          node,
	}, nil
}

// Add records a new entry and returns its id.
//
// Up to 10 keywords are extracted from the content and added to the
// inverted index. If the store then exceeds its capacity bound, the entire
// sequence is stably sorted ascending by importance and only the
// highest-importance maxEntries entries are kept.
func (m *ConversationMemory) Add(content string, typ EntryType, metadata map[string]interface{}, importance float64) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := &Entry{
		ID:         m.node.Generate().Base36(),
		Timestamp:  now(),
		Type:       typ,
		Content:    content,
		Metadata:   metadata,
		Importance: importance,
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]interface{}{}
	}

	m.insert(entry)
	return entry.ID
}

// AddUserInput records user input at importance 0.8.
func (m *ConversationMemory) AddUserInput(input string) string {
	return m.Add(input, TypeUser, nil, ImportanceUser)
}

// AddAssistantResponse records an assistant response at importance 0.7.
func (m *ConversationMemory) AddAssistantResponse(response string) string {
	return m.Add(response, TypeAssistant, nil, ImportanceAssistant)
}

// AddToolExecution records a tool execution at importance 0.6.
//
// The entry content is a composite of tool name, input, and output; metadata
// carries the tool name, the input, and a preview of the first 100
// characters of the output.
func (m *ConversationMemory) AddToolExecution(toolName, input, output string) string {
	content := fmt.Sprintf("Tool: %s\nInput: %s\nOutput: %s", toolName, input, output)
	metadata := map[string]interface{}{
		"tool":           toolName,
		"input":          input,
		"output_preview": truncateRunes(output, toolOutputPreviewLen),
	}
	return m.Add(content, TypeTool, metadata, ImportanceTool)
}

// AddSummary records a conversation summary at importance 0.9, the highest
// tier, so summaries are the last to be evicted.
func (m *ConversationMemory) AddSummary(summary string) string {
	return m.Add(summary, TypeSummary, nil, ImportanceSummary)
}

// Restore replays previously persisted entries into the store, preserving
// their ids, timestamps, and importances. Entries pass through the same
// indexing and capacity enforcement as fresh adds, so restored history is
// visible to SemanticSearch.
func (m *ConversationMemory) Restore(entries []*Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if e == nil || e.ID == "" {
			continue
		}
		cp := *e
		if cp.Metadata == nil {
			cp.Metadata = map[string]interface{}{}
		}
		m.insert(&cp)
	}
}

// insert indexes the entry, appends it, and enforces the capacity bound.
// Callers must hold the write lock.
func (m *ConversationMemory) insert(entry *Entry) {
	keywords := ExtractKeywords(entry.Content, indexKeywordCap)
	for _, kw := range keywords {
		bucket, ok := m.index[kw]
		if !ok {
			bucket = make(map[string]struct{})
			m.index[kw] = bucket
		}
		bucket[entry.ID] = struct{}{}
	}
	m.entryKeywords[entry.ID] = keywords

	m.entries = append(m.entries, entry)

	if len(m.entries) > m.maxEntries {
		sort.SliceStable(m.entries, func(i, j int) bool {
			return m.entries[i].Importance < m.entries[j].Importance
		})
		evicted := m.entries[:len(m.entries)-m.maxEntries]
		for _, e := range evicted {
			m.unindex(e.ID)
		}
		kept := make([]*Entry, m.maxEntries)
		copy(kept, m.entries[len(m.entries)-m.maxEntries:])
		m.entries = kept
	}
}

// unindex removes an entry id from every keyword bucket it occupies.
// Callers must hold the write lock.
func (m *ConversationMemory) unindex(id string) {
	for _, kw := range m.entryKeywords[id] {
		if bucket, ok := m.index[kw]; ok {
			delete(bucket, id)
			if len(bucket) == 0 {
				delete(m.index, kw)
			}
		}
	}
	delete(m.entryKeywords, id)
}

// GetRecent returns the last n entries in insertion order. n is capped to
// the current size.
func (m *ConversationMemory) GetRecent(n int) []*Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n < 0 {
		n = 0
	}
	if n > len(m.entries) {
		n = len(m.entries)
	}
	out := make([]*Entry, n)
	copy(out, m.entries[len(m.entries)-n:])
	return out
}

// GetByType returns all entries of the given type, preserving order.
func (m *ConversationMemory) GetByType(typ EntryType) []*Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Entry
	for _, e := range m.entries {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// Search returns entries whose content contains the query as a
// case-insensitive substring. No ranking is applied.
func (m *ConversationMemory) Search(query string) []*Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(query)
	var out []*Entry
	for _, e := range m.entries {
		if strings.Contains(strings.ToLower(e.Content), q) {
			out = append(out, e)
		}
	}
	return out
}

// SemanticSearch ranks entries against the query using the inverted keyword
// index and returns at most limit scored entries, best first.
//
// Up to 5 keywords are extracted from the query; each carries a weight of
// its rune length plus one. Candidate entries are the union of all index
// buckets for those keywords. A candidate's score is the sum of the weights
// of query keywords appearing among its own top 20 content keywords,
// multiplied by the entry's importance as a prior. Zero-score candidates
// are dropped.
func (m *ConversationMemory) SemanticSearch(query string, limit int) []ScoredEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	queryKeywords := ExtractKeywords(query, queryKeywordCap)
	if len(queryKeywords) == 0 {
		return nil
	}

	weights := make(map[string]float64, len(queryKeywords))
	candidateIDs := make(map[string]struct{})
	for _, kw := range queryKeywords {
		weights[kw] = keywordWeight(kw)
		for id := range m.index[kw] {
			candidateIDs[id] = struct{}{}
		}
	}

	var scored []ScoredEntry
	for _, e := range m.entries {
		if _, ok := candidateIDs[e.ID]; !ok {
			continue
		}

		contentKeywords := ExtractKeywords(e.Content, candidateKeywordCap)
		var score float64
		for _, kw := range contentKeywords {
			if w, ok := weights[kw]; ok {
				score += w
			}
		}
		score *= e.Importance

		if score > 0 {
			scored = append(scored, ScoredEntry{Entry: e, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// GetContext formats the most recent limit entries into a text block for
// prompt assembly. Tool entries show only the tool name, not full I/O.
func (m *ConversationMemory) GetContext(limit int) string {
	recent := m.GetRecent(limit)

	var b strings.Builder
	b.WriteString("## Conversation History\n\n")

	for _, e := range recent {
		ts := e.Time().Format("15:04:05")
		switch e.Type {
		case TypeUser:
			fmt.Fprintf(&b, "[%s] User: %s\n", ts, e.Content)
		case TypeAssistant:
			fmt.Fprintf(&b, "[%s] Assistant: %s\n", ts, e.Content)
		case TypeTool:
			tool := "unknown"
			if name, ok := e.Metadata["tool"].(string); ok {
				tool = name
			}
			fmt.Fprintf(&b, "[%s] Tool execution: %s\n", ts, tool)
		}
	}

	return b.String()
}

// GetStats returns summary statistics for the store.
func (m *ConversationMemory) GetStats() *Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{
		TotalEntries:    len(m.entries),
		SessionDuration: time.Since(m.sessionStart).Seconds(),
		TypeCounts:      make(map[EntryType]int),
	}

	var total float64
	for _, e := range m.entries {
		stats.TypeCounts[e.Type]++
		total += e.Importance
	}
	if len(m.entries) > 0 {
		stats.AvgImportance = total / float64(len(m.entries))
	}
	return stats
}

// Entries returns a copy of the entry sequence in insertion order.
func (m *ConversationMemory) Entries() []*Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of entries currently held.
func (m *ConversationMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Clear removes all entries and purges the keyword index.
func (m *ConversationMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = nil
	m.index = make(map[string]map[string]struct{})
	m.entryKeywords = make(map[string][]string)
}

// truncateRunes returns s truncated to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
