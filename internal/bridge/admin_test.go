package bridge

import (
	"context"
	"strings"
	"testing"
	"time"
)

func adminCallback(data string) Callback {
	return Callback{ID: "cb", Data: data, ChatID: -100, UserID: 7, ThreadID: 3}
}

func TestAdminAddRuleDialog(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	f.bridge.HandleCallback(ctx, adminCallback("admin:add"))
	if !f.bridge.HandleAdminInput(ctx, -100, 7, 3, "refund|refunds") {
		t.Fatal("aliases message not consumed by the dialog")
	}
	if !f.bridge.HandleAdminInput(ctx, -100, 7, 3, "Refunds take 3-5 business days.") {
		t.Fatal("reply message not consumed by the dialog")
	}

	reply, ok := f.bridge.deps.Matcher.Match("I want a refund")
	if !ok || reply != "Refunds take 3-5 business days." {
		t.Fatalf("match = %q, %v after add", reply, ok)
	}
	rules := f.cfg.KeywordRules()
	if len(rules) != 1 || rules[0].Aliases != "refund|refunds" {
		t.Fatalf("persisted rules = %+v", rules)
	}

	// Dialog is over: ordinary messages pass through again.
	if f.bridge.HandleAdminInput(ctx, -100, 7, 3, "regular operator reply") {
		t.Fatal("message consumed after dialog completed")
	}
}

func TestAdminDeleteRule(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	f.bridge.deps.Matcher.Upsert("ship|shipping", "Ships in 2 days.")

	f.bridge.HandleCallback(ctx, adminCallback("admin:del"))
	if !f.bridge.HandleAdminInput(ctx, -100, 7, 3, "ship|shipping") {
		t.Fatal("delete input not consumed")
	}

	if _, ok := f.bridge.deps.Matcher.Match("shipping cost?"); ok {
		t.Fatal("rule still matches after delete")
	}
}

func TestAdminDialogIsPerUser(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	f.bridge.HandleCallback(ctx, adminCallback("admin:add"))

	// A different operator's message in the same chat is not part of the dialog.
	if f.bridge.HandleAdminInput(ctx, -100, 8, 3, "hello visitor") {
		t.Fatal("dialog consumed another user's message")
	}
}

func TestAdminDialogExpires(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	f.bridge.HandleCallback(ctx, adminCallback("admin:add"))
	base := time.Now()
	f.bridge.admin.now = func() time.Time { return base.Add(adminStateTTL + time.Minute) }

	if f.bridge.HandleAdminInput(ctx, -100, 7, 3, "late|aliases") {
		t.Fatal("expired dialog still consumed input")
	}
}

func TestAdminCancel(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	f.bridge.HandleCallback(ctx, adminCallback("admin:add"))
	f.bridge.HandleCallback(ctx, adminCallback("admin:cancel"))

	if f.bridge.HandleAdminInput(ctx, -100, 7, 3, "should pass through") {
		t.Fatal("cancelled dialog still consumed input")
	}
}

func TestAdminOffDutyToggle(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	f.bridge.HandleCallback(ctx, adminCallback("admin:offduty"))
	if !f.cfg.OffDutySnapshot().Enabled {
		t.Fatal("off-duty not enabled")
	}
	f.bridge.HandleCallback(ctx, adminCallback("admin:offduty"))
	if f.cfg.OffDutySnapshot().Enabled {
		t.Fatal("off-duty not disabled on second press")
	}
}

func TestAdminListRendersRules(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	f.bridge.deps.Matcher.Upsert("hi|hello", "Welcome!")
	f.bridge.deps.Matcher.Upsert("", "We are away right now.")

	f.bridge.HandleCallback(ctx, adminCallback("admin:list"))

	last := f.chat.sent[len(f.chat.sent)-1]
	if !strings.Contains(last.text, "hi|hello") || !strings.Contains(last.text, "off-duty catch-all") {
		t.Fatalf("list = %q", last.text)
	}
}
