// Package store persists the conversation→forum-topic mapping.
//
// The mapping lives in one JSON file keyed by conversation ID. Writes are
// whole-file read-modify-write behind a single mutex; the disk copy is the
// source of truth after a restart. Completed and FirstMessageSent are
// intentionally memory-only and reset on restart.
package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Session tracks one support conversation's bridge state.
type Session struct {
	ConversationID   string
	ThreadID         int // Telegram forum topic; assigned once, immutable
	AnchorMessageID  int // pinned metadata message; replaced if the original vanishes
	AIEnabled        bool
	Completed        bool   // memory-only
	FirstMessageSent bool   // memory-only; true once the toggle hint was shown
	LastMetas        string // memory-only; last rendered metadata block
}

// record is the persisted shape of a session.
type record struct {
	ThreadID  int  `json:"thread_id"`
	MessageID int  `json:"message_id"`
	EnableAI  bool `json:"enable_ai"`
}

// Store maps conversation IDs to sessions, mirrored between an in-memory
// cache and a JSON mapping file. All mutations are serialized by one mutex
// so a visitor event and an operator reply racing on the same conversation
// cannot lose an update.
type Store struct {
	mu       sync.Mutex
	path     string
	sessions map[string]*Session
}

// New creates a store backed by the mapping file at path. The file is loaded
// eagerly; a missing, corrupt, or partially written file starts empty.
func New(path string) *Store {
	s := &Store{
		path:     path,
		sessions: make(map[string]*Session),
	}
	s.mu.Lock()
	s.reloadLocked()
	s.mu.Unlock()
	return s
}

// Get returns the session for a conversation. On a cache miss the mapping
// file is reloaded once and the lookup retried, covering a cold cache after
// restart. Absent is not an error: it means "new conversation".
func (s *Store) Get(conversationID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[conversationID]; ok {
		return sess.clone(), true
	}
	s.reloadLocked()
	if sess, ok := s.sessions[conversationID]; ok {
		return sess.clone(), true
	}
	return nil, false
}

// GetByThread resolves a Telegram topic back to its conversation, with the
// same reload-and-retry fallback as Get.
func (s *Store) GetByThread(threadID int) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.findThreadLocked(threadID); ok {
		return sess.clone(), true
	}
	s.reloadLocked()
	if sess, ok := s.findThreadLocked(threadID); ok {
		return sess.clone(), true
	}
	return nil, false
}

// Put upserts the session in the cache and rewrites the mapping file.
// A disk failure is logged and degrades to cache-only for this call.
func (s *Store) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ConversationID] = sess.clone()
	if err := s.flushLocked(); err != nil {
		slog.Error("session store write failed, continuing with cache only",
			"conversation_id", sess.ConversationID, "error", err)
	}
}

// Update mutates the session for a conversation under the store lock and
// flushes the result. fn always sees the freshest state, so two goroutines
// updating different fields of the same session cannot revert each other.
// Returns a clone of the updated session, or false when the conversation is
// unknown.
func (s *Store) Update(conversationID string, fn func(*Session)) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[conversationID]
	if !ok {
		s.reloadLocked()
		if sess, ok = s.sessions[conversationID]; !ok {
			return nil, false
		}
	}
	fn(sess)
	if err := s.flushLocked(); err != nil {
		slog.Error("session store write failed, continuing with cache only",
			"conversation_id", conversationID, "error", err)
	}
	return sess.clone(), true
}

// Len reports the number of cached sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) findThreadLocked(threadID int) (*Session, bool) {
	for _, sess := range s.sessions {
		if sess.ThreadID == threadID {
			return sess, true
		}
	}
	return nil, false
}

// reloadLocked fills the cache from the on-disk mapping. The cache wins for
// conversations it already holds: after a failed flush the memory copy is
// newer than the file, and a reload must not revert it. Only conversations
// the cache has never seen are loaded. Unreadable or corrupt files load as
// empty.
func (s *Store) reloadLocked() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("session mapping unreadable, treating as empty", "path", s.path, "error", err)
		}
		return
	}

	var records map[string]record
	if err := json.Unmarshal(data, &records); err != nil {
		slog.Warn("session mapping corrupt, treating as empty", "path", s.path, "error", err)
		return
	}

	for id, r := range records {
		if _, ok := s.sessions[id]; ok {
			continue
		}
		s.sessions[id] = &Session{
			ConversationID:  id,
			ThreadID:        r.ThreadID,
			AnchorMessageID: r.MessageID,
			AIEnabled:       r.EnableAI,
		}
	}
}

// flushLocked rewrites the whole mapping file atomically (temp file + rename).
func (s *Store) flushLocked() error {
	if s.path == "" {
		return nil
	}

	records := make(map[string]record, len(s.sessions))
	for id, sess := range s.sessions {
		records[id] = record{
			ThreadID:  sess.ThreadID,
			MessageID: sess.AnchorMessageID,
			EnableAI:  sess.AIEnabled,
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "sessions-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	tmp.Close()

	if err := os.Rename(tmpPath, s.path); err != nil {
		return err
	}
	cleanup = false
	return nil
}

func (sess *Session) clone() *Session {
	c := *sess
	return &c
}
