package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetAbsentIsNotAnError(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "sessions.json"))
	if _, ok := s.Get("nope"); ok {
		t.Error("Get on empty store returned a session")
	}
	if _, ok := s.GetByThread(99); ok {
		t.Error("GetByThread on empty store returned a session")
	}
}

func TestPutThenGet(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "sessions.json"))
	s.Put(&Session{
		ConversationID:  "conv-1",
		ThreadID:        42,
		AnchorMessageID: 7,
		AIEnabled:       true,
		Completed:       true,
		LastMetas:       "metas",
	})

	got, ok := s.Get("conv-1")
	if !ok {
		t.Fatal("session missing after Put")
	}
	if got.ThreadID != 42 || got.AnchorMessageID != 7 || !got.AIEnabled {
		t.Errorf("session = %+v", got)
	}
	if !got.Completed || got.LastMetas != "metas" {
		t.Errorf("memory-only fields not cached: %+v", got)
	}

	// Returned sessions are copies; mutating one must not leak into the cache.
	got.AIEnabled = false
	again, _ := s.Get("conv-1")
	if !again.AIEnabled {
		t.Error("Get returned a shared pointer into the cache")
	}
}

func TestThreadResolutionSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")

	warm := New(path)
	warm.Put(&Session{ConversationID: "conv-1", ThreadID: 42, AnchorMessageID: 7, AIEnabled: true, Completed: true})
	warm.Put(&Session{ConversationID: "conv-2", ThreadID: 43, AnchorMessageID: 8})

	// Fresh store, cold cache: only the on-disk mapping is available.
	cold := New(path)
	got, ok := cold.GetByThread(42)
	if !ok {
		t.Fatal("GetByThread failed after restart")
	}
	if got.ConversationID != "conv-1" || !got.AIEnabled {
		t.Errorf("resolved session = %+v", got)
	}
	// Memory-only flags reset to defaults on restart.
	if got.Completed || got.FirstMessageSent || got.LastMetas != "" {
		t.Errorf("memory-only fields should reset: %+v", got)
	}
}

func TestCorruptMappingLoadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	if err := os.WriteFile(path, []byte(`{"conv-1": {"thread_id": 1,`), 0600); err != nil {
		t.Fatal(err)
	}

	s := New(path)
	if _, ok := s.Get("conv-1"); ok {
		t.Error("corrupt file should load as empty")
	}

	// A subsequent Put recovers the file.
	s.Put(&Session{ConversationID: "conv-2", ThreadID: 5})
	fresh := New(path)
	if _, ok := fresh.Get("conv-2"); !ok {
		t.Error("store did not recover from corrupt file")
	}
}

func TestReloadPreservesMemoryOnlyFlagsOfCachedSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	s := New(path)
	s.Put(&Session{ConversationID: "conv-1", ThreadID: 1, Completed: true, FirstMessageSent: true})

	// Force the reload path via a miss.
	s.Get("unknown")

	got, _ := s.Get("conv-1")
	if !got.Completed || !got.FirstMessageSent {
		t.Errorf("reload clobbered memory-only flags: %+v", got)
	}
}

func TestUpdateMutatesFreshStateAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	s := New(path)
	s.Put(&Session{ConversationID: "conv-1", ThreadID: 1, AIEnabled: true, Completed: true})

	got, ok := s.Update("conv-1", func(sess *Session) {
		sess.AIEnabled = false
	})
	if !ok {
		t.Fatal("Update missed an existing session")
	}
	if got.AIEnabled || !got.Completed || got.ThreadID != 1 {
		t.Errorf("updated session = %+v", got)
	}

	// Returned sessions are copies, same as Get.
	got.ThreadID = 99
	if again, _ := s.Get("conv-1"); again.ThreadID != 1 {
		t.Error("Update returned a shared pointer into the cache")
	}

	// The mutation reached disk.
	if cold, _ := New(path).Get("conv-1"); cold.AIEnabled {
		t.Error("Update did not persist the flag")
	}

	if _, ok := s.Update("unknown", func(*Session) {}); ok {
		t.Error("Update invented a session for an unknown conversation")
	}
}

func TestReloadDoesNotRevertCachedSessionsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	s := New(path)
	s.Put(&Session{ConversationID: "conv-1", ThreadID: 1, AIEnabled: false})

	// An older copy of the file resurfaces (e.g. a flush failed after the
	// flag changed). The cache is newer and must win on reload.
	stale := `{
		"conv-1": {"thread_id": 1, "message_id": 0, "enable_ai": true},
		"conv-2": {"thread_id": 2, "message_id": 3, "enable_ai": true}
	}`
	if err := os.WriteFile(path, []byte(stale), 0600); err != nil {
		t.Fatal(err)
	}

	// Cache miss on conv-2 triggers a reload and fills it in.
	if got, ok := s.Get("conv-2"); !ok || got.ThreadID != 2 {
		t.Fatalf("reload did not pick up new conversation: %+v ok=%v", got, ok)
	}
	if got, _ := s.Get("conv-1"); got.AIEnabled {
		t.Error("reload reverted a cached session to the stale disk value")
	}
}

func TestDiskFailureDegradesToCacheOnly(t *testing.T) {
	// Point the store at a path whose parent is a file, so writes fail.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	s := New(filepath.Join(blocker, "sessions.json"))
	s.Put(&Session{ConversationID: "conv-1", ThreadID: 9})

	if got, ok := s.Get("conv-1"); !ok || got.ThreadID != 9 {
		t.Errorf("cache-only operation broken: %+v ok=%v", got, ok)
	}
}
