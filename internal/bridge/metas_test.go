package bridge

import (
	"strings"
	"testing"

	"github.com/deskgram/deskgram/internal/crisp"
)

func TestRenderMetasStableOrder(t *testing.T) {
	metas := &crisp.ConversationMetas{
		Nickname: "Ada",
		Email:    "ada@example.com",
		Data:     map[string]any{"plan": "pro", "age": 37},
	}

	a := renderMetas("conv-1", metas)
	b := renderMetas("conv-1", metas)
	if a != b {
		t.Fatal("rendering is not deterministic")
	}
	if !strings.Contains(a, "Ada") || !strings.Contains(a, "ada@example.com") {
		t.Fatalf("rendered = %q", a)
	}
	// Data keys come out sorted.
	if strings.Index(a, "age") > strings.Index(a, "plan") {
		t.Fatalf("data keys unsorted in %q", a)
	}
}

func TestRenderMetasNilAndEscaping(t *testing.T) {
	if got := renderMetas("conv-1", nil); !strings.Contains(got, "conv-1") {
		t.Fatalf("nil metas rendering = %q", got)
	}
	got := renderMetas("conv-1", &crisp.ConversationMetas{Nickname: "<b>Ada</b>"})
	if strings.Contains(got, "<b>Ada</b>") {
		t.Fatalf("nickname not escaped: %q", got)
	}
}

func TestThreadTitle(t *testing.T) {
	if got := threadTitle("short", nil); got != "short" {
		t.Fatalf("title = %q", got)
	}
	if got := threadTitle("session-abcdef123456789", nil); len(got) != 12 {
		t.Fatalf("title = %q, want 12-char prefix", got)
	}
	if got := threadTitle("x", &crisp.ConversationMetas{Nickname: "Ada"}); got != "Ada" {
		t.Fatalf("title = %q, want nickname", got)
	}
}
