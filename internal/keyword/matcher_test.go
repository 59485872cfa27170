package keyword

import (
	"testing"

	"github.com/deskgram/deskgram/internal/config"
)

func TestMatch(t *testing.T) {
	m := New([]config.KeywordRule{
		{Aliases: "hello|hi", Reply: "Welcome"},
		{Aliases: "price|pricing", Reply: "See the pricing page"},
		{Aliases: "", Reply: "We are off duty"},
	})

	tests := []struct {
		name    string
		content string
		want    string
		wantOK  bool
	}{
		{"first alias", "hello there", "Welcome", true},
		{"second alias substring", "hi there", "Welcome", true},
		{"later rule", "what is the price?", "See the pricing page", true},
		{"first match wins", "hi, price?", "Welcome", true},
		{"no match", "goodbye", "", false},
		{"case sensitive", "Hello", "", false},
		{"off-duty rule not consulted", "unrelated", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Match(tt.content)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Match(%q) = (%q, %v), want (%q, %v)", tt.content, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestOffDutyReply(t *testing.T) {
	m := New([]config.KeywordRule{
		{Aliases: "hello", Reply: "Welcome"},
		{Aliases: "", Reply: "Back tomorrow"},
	})
	reply, ok := m.OffDutyReply()
	if !ok || reply != "Back tomorrow" {
		t.Errorf("OffDutyReply() = (%q, %v)", reply, ok)
	}

	none := New([]config.KeywordRule{{Aliases: "hello", Reply: "Welcome"}})
	if _, ok := none.OffDutyReply(); ok {
		t.Error("OffDutyReply() should be absent without an empty-alias rule")
	}
}

func TestUpsertAndRemove(t *testing.T) {
	m := New(nil)

	rules := m.Upsert("hello|hi", "Welcome")
	if len(rules) != 1 {
		t.Fatalf("rules after insert = %d", len(rules))
	}

	rules = m.Upsert("hello|hi", "Hey")
	if len(rules) != 1 || rules[0].Reply != "Hey" {
		t.Errorf("upsert should replace reply in place: %+v", rules)
	}

	if _, ok := m.Match("hi"); !ok {
		t.Error("inserted rule does not match")
	}

	rules, removed := m.Remove("hello|hi")
	if !removed || len(rules) != 0 {
		t.Errorf("Remove = (%v, %v)", rules, removed)
	}
	if _, removed := m.Remove("missing"); removed {
		t.Error("Remove of missing rule reported true")
	}
}

func TestReplaceRulesIsolatesCallerSlice(t *testing.T) {
	src := []config.KeywordRule{{Aliases: "a", Reply: "1"}}
	m := New(src)
	src[0].Reply = "mutated"

	if got, _ := m.Match("a"); got != "1" {
		t.Errorf("matcher shares caller slice: got %q", got)
	}
}
