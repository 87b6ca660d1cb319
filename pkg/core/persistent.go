package core

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// PromotionThreshold is the minimum importance an entry must carry to be
// accepted into long-term storage.
const PromotionThreshold = 0.8

// DefaultStorageDir is the default directory backing a PersistentMemory.
const DefaultStorageDir = "memory"

const longTermFileName = "long_term.json"

// sessionSnapshot is the on-disk shape of a saved session.
type sessionSnapshot struct {
	SessionID string   `json:"session_id"`
	Timestamp float64  `json:"timestamp"`
	Entries   []*Entry `json:"entries"`
	Stats     *Stats   `json:"stats"`
}

// PersistentMemory is the long-term, disk-backed tier. It holds entries
// whose importance crossed the promotion threshold, plus per-session
// snapshots of conversational memory.
//
// The long-term store is a single JSON file rewritten synchronously on
// every accepted promotion; sessions are one JSON file each. All writes go
// through a write-temp-then-rename step so an interrupted write never
// leaves a truncated file behind.
type PersistentMemory struct {
	mu sync.RWMutex

	storageDir   string
	longTermFile string
	sessionsDir  string

	entries []*Entry

	node *snowflake.Node
}

// NewPersistentMemory opens (creating if needed) the persistent tier rooted
// at storageDir. An empty storageDir selects DefaultStorageDir.
//
// Existing long-term entries are loaded eagerly; a corrupt long-term file
// is logged and treated as empty rather than failing construction.
func NewPersistentMemory(storageDir string) (*PersistentMemory, error) {
	if storageDir == "" {
		storageDir = DefaultStorageDir
	}

	sessionsDir := filepath.Join(storageDir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0o755); err != nil {
		return nil, NewMemoryError("NewPersistentMemory", err)
	}

	node, err := snowflake.NewNode(2)
	if err != nil {
		return nil, NewMemoryError("NewPersistentMemory", err)
	}

	p := &PersistentMemory{
		storageDir:   storageDir,
		longTermFile: filepath.Join(storageDir, longTermFileName),
		sessionsDir:  sessionsDir,
		node:         node,
	}
	p.entries = p.loadLongTerm()

	return p, nil
}

// loadLongTerm reads the long-term file, degrading to an empty store on
// any failure.
func (p *PersistentMemory) loadLongTerm() []*Entry {
	data, err := os.ReadFile(p.longTermFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[MEMORY] failed to read long-term store: %v", err)
		}
		return nil
	}

	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("[MEMORY] corrupt long-term store, starting empty: %v", err)
		return nil
	}
	return entries
}

// saveLongTerm rewrites the entire long-term file. Callers must hold the
// write lock.
func (p *PersistentMemory) saveLongTerm() error {
	data, err := json.MarshalIndent(p.entries, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(p.longTermFile, data)
}

// StoreImportant promotes content into long-term storage and returns the
// new entry's id.
//
// Promotion is importance-gated: below the 0.8 threshold the call is a
// no-op returning an empty id. The stored entry is a fresh entry of type
// persistent, not a reference to any conversational entry. The backing file
// is rewritten synchronously before the call returns.
func (p *PersistentMemory) StoreImportant(content string, importance float64) (string, error) {
	if importance < PromotionThreshold {
		return "", nil
	}
	return p.promote(content, importance)
}

// promote appends a long-term entry without the importance gate. The manager
// uses it for assistant-response promotion, which carries its own length
// gate instead of the importance threshold.
func (p *PersistentMemory) promote(content string, importance float64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry := &Entry{
		ID:         p.node.Generate().Base36(),
		Timestamp:  now(),
		Type:       TypePersistent,
		Content:    content,
		Metadata:   map[string]interface{}{},
		Importance: importance,
	}

	p.entries = append(p.entries, entry)
	if err := p.saveLongTerm(); err != nil {
		// Roll back the in-memory append so the store matches disk.
		p.entries = p.entries[:len(p.entries)-1]
		return "", NewMemoryError("StoreImportant", err)
	}

	return entry.ID, nil
}

// SearchLongTerm returns long-term entries whose content contains the query
// as a case-insensitive substring, sorted descending by importance and
// truncated to limit. A limit <= 0 selects 5.
func (p *PersistentMemory) SearchLongTerm(query string, limit int) []*Entry {
	if limit <= 0 {
		limit = 5
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	q := strings.ToLower(query)
	var matches []*Entry
	for _, e := range p.entries {
		if strings.Contains(strings.ToLower(e.Content), q) {
			matches = append(matches, e)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Importance > matches[j].Importance
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// GetRelatedMemories returns up to 5 long-term entries related to keyword.
func (p *PersistentMemory) GetRelatedMemories(keyword string) []*Entry {
	return p.SearchLongTerm(keyword, 5)
}

// SaveSession serializes the conversational memory's entries and stats as
// the snapshot for sessionID, replacing any previous snapshot.
func (p *PersistentMemory) SaveSession(sessionID string, memory *ConversationMemory) error {
	snapshot := sessionSnapshot{
		SessionID: sessionID,
		Timestamp: now(),
		Entries:   memory.Entries(),
		Stats:     memory.GetStats(),
	}

	data, err := json.MarshalIndent(&snapshot, "", "  ")
	if err != nil {
		return NewMemoryError("SaveSession", err)
	}

	path := filepath.Join(p.sessionsDir, sessionID+".json")
	if err := writeFileAtomic(path, data); err != nil {
		return NewMemoryError("SaveSession", err)
	}
	return nil
}

// LoadSession returns the entries stored for sessionID, or nil if no
// snapshot exists. The snapshot's stats block is ignored on load.
func (p *PersistentMemory) LoadSession(sessionID string) []*Entry {
	path := filepath.Join(p.sessionsDir, sessionID+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[MEMORY] failed to read session %s: %v", sessionID, err)
		}
		return nil
	}

	var snapshot sessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		log.Printf("[MEMORY] corrupt session snapshot %s: %v", sessionID, err)
		return nil
	}
	return snapshot.Entries
}

// ListSessions returns the ids of all stored session snapshots.
func (p *PersistentMemory) ListSessions() []string {
	pattern := filepath.Join(p.sessionsDir, "*.json")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}

	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, strings.TrimSuffix(filepath.Base(f), ".json"))
	}
	sort.Strings(ids)
	return ids
}

// LongTermEntries returns a copy of the long-term entry sequence.
func (p *PersistentMemory) LongTermEntries() []*Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// LongTermCount returns the number of long-term entries.
func (p *PersistentMemory) LongTermCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// writeFileAtomic writes data to path via a temp file and rename, so
// readers never observe a partially written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
