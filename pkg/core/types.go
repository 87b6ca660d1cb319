// Package core provides the RecallMem conversational and persistent memory tiers.
package core

import "time"

// EntryType classifies a memory entry by what produced it.
//
// Types drive the importance tiers used by the convenience adders and,
// indirectly, which entries survive eviction and qualify for long-term
// promotion:
//   - TypeUser: user input (importance 0.8)
//   - TypeAssistant: assistant response (importance 0.7)
//   - TypeTool: a tool execution record (importance 0.6)
//   - TypeSummary: a conversation summary (importance 0.9)
//   - TypePersistent: an entry promoted into long-term storage
type EntryType string

const (
	// TypeUser marks an entry recorded from user input.
	TypeUser EntryType = "user"

	// TypeAssistant marks an entry recorded from an assistant response.
	TypeAssistant EntryType = "assistant"

	// TypeTool marks an entry recorded from a tool execution.
	TypeTool EntryType = "tool"

	// TypeSummary marks a conversation summary entry.
	TypeSummary EntryType = "summary"

	// TypePersistent marks an entry created by long-term promotion.
	TypePersistent EntryType = "persistent"
)

// Entry is the atomic unit stored by both memory tiers.
//
// An entry is immutable once created: the conversational tier may evict it
// and the persistent tier may copy its content into a new entry, but no
// operation mutates an entry in place.
//
// Example:
//
//	entry := &core.Entry{
//	    ID:         "8fk2m1q0z5w",
//	    Timestamp:  float64(time.Now().UnixNano()) / 1e9,
//	    Type:       core.TypeUser,
//	    Content:    "deploy the staging cluster",
//	    Importance: 0.8,
//	}
type Entry struct {
	// ID is an opaque short unique token identifying the entry within its
	// owning store.
	ID string `json:"id"`

	// Timestamp is seconds since the Unix epoch, fractional part included.
	Timestamp float64 `json:"timestamp"`

	// Type is the entry classification (user, assistant, tool, summary,
	// persistent).
	Type EntryType `json:"type"`

	// Content is the text content of the entry.
	Content string `json:"content"`

	// Metadata carries additional structured information (tool name, input,
	// output preview, ...). Insertion order is irrelevant.
	Metadata map[string]interface{} `json:"metadata"`

	// Importance is the significance score in [0, 1]. It orders eviction in
	// the conversational tier and gates promotion into the persistent tier.
	Importance float64 `json:"importance"`
}

// Time returns the entry timestamp as a time.Time.
func (e *Entry) Time() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// ScoredEntry pairs an entry with a relevance score from semantic search.
type ScoredEntry struct {
	// Entry is the matched entry.
	Entry *Entry

	// Score is the keyword-weighted relevance score. Higher is better.
	Score float64
}

// Stats summarizes the state of a ConversationMemory.
type Stats struct {
	// TotalEntries is the number of entries currently held.
	TotalEntries int `json:"total_entries"`

	// SessionDuration is the time elapsed since the session started,
	// in seconds.
	SessionDuration float64 `json:"session_duration"`

	// TypeCounts maps entry type to the number of entries of that type.
	TypeCounts map[EntryType]int `json:"type_counts"`

	// AvgImportance is the mean importance across all entries
	// (0 when the store is empty).
	AvgImportance float64 `json:"avg_importance"`
}

// ManagerStats extends Stats with the manager-level counters.
type ManagerStats struct {
	Stats

	// LongTermCount is the number of entries in the persistent tier.
	LongTermCount int `json:"long_term_count"`

	// SessionID identifies the current session.
	SessionID string `json:"session_id"`
}

// now returns the current time as fractional seconds since the epoch.
func now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
