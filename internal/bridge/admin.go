package bridge

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/deskgram/deskgram/internal/config"
)

// adminStateTTL expires abandoned keyword-edit dialogs.
const adminStateTTL = 5 * time.Minute

type adminPhase int

const (
	phaseAwaitKeyword adminPhase = iota + 1
	phaseAwaitReply
	phaseAwaitDelete
)

type adminState struct {
	phase   adminPhase
	aliases string // set once phaseAwaitReply is reached
	started time.Time
}

type adminKey struct {
	chatID int64
	userID int64
}

// adminStates tracks in-flight keyword-edit dialogs per admin. Dialogs are
// keyed by chat and user so two admins never interleave.
type adminStates struct {
	mu     sync.Mutex
	states map[adminKey]*adminState
	now    func() time.Time
}

func newAdminStates() *adminStates {
	return &adminStates{states: make(map[adminKey]*adminState), now: time.Now}
}

func (a *adminStates) get(k adminKey) (*adminState, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.states[k]
	if !ok {
		return nil, false
	}
	if a.now().Sub(st.started) > adminStateTTL {
		delete(a.states, k)
		return nil, false
	}
	return st, true
}

func (a *adminStates) set(k adminKey, st *adminState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st.started = a.now()
	a.states[k] = st
}

func (a *adminStates) clear(k adminKey) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.states, k)
}

// ShowAdminMenu posts the admin keyboard into a thread.
func (b *Bridge) ShowAdminMenu(ctx context.Context, threadID int) {
	od := b.deps.Config.OffDutySnapshot()
	if err := b.deps.Chat.SendAdminMenu(ctx, threadID, od.Enabled); err != nil {
		b.log.Warn("admin menu failed", "error", err)
	}
}

func (b *Bridge) handleAdminCallback(ctx context.Context, log *slog.Logger, cb Callback) {
	key := adminKey{chatID: cb.ChatID, userID: cb.UserID}
	var ack string

	switch strings.TrimPrefix(cb.Data, cbPrefixAdmin) {
	case "add":
		b.admin.set(key, &adminState{phase: phaseAwaitKeyword})
		b.adminPrompt(ctx, cb.ThreadID, "Send the keyword aliases for the new rule, pipe-delimited (e.g. price|pricing|cost).")
		ack = "Adding a rule"
	case "del":
		b.admin.set(key, &adminState{phase: phaseAwaitDelete})
		b.adminPrompt(ctx, cb.ThreadID, "Send the exact alias string of the rule to remove.")
		ack = "Removing a rule"
	case "list":
		b.adminPrompt(ctx, cb.ThreadID, renderRules(b.deps.Matcher.Rules()))
		ack = ""
	case "offduty":
		od := b.deps.Config.OffDutySnapshot()
		b.deps.Config.SetOffDuty(!od.Enabled)
		if err := config.Save(b.cfgPath, b.deps.Config); err != nil {
			log.Error("off-duty persist failed", "error", err)
		}
		if od.Enabled {
			ack = "Off-duty mode disabled"
		} else {
			ack = "Off-duty mode enabled"
		}
		log.Info("off-duty toggled", "enabled", !od.Enabled)
	case "cancel":
		b.admin.clear(key)
		ack = "Cancelled"
	default:
		log.Warn("unknown admin action")
		ack = "Unknown action"
	}
	if err := b.deps.Chat.AnswerCallback(ctx, cb.ID, ack); err != nil {
		log.Warn("answer callback failed", "error", err)
	}
}

// HandleAdminInput consumes a group message if the sender has a keyword-edit
// dialog in flight. Returns true when the message was part of a dialog and
// must not be treated as an operator reply.
func (b *Bridge) HandleAdminInput(ctx context.Context, chatID, userID int64, threadID int, text string) bool {
	key := adminKey{chatID: chatID, userID: userID}
	st, ok := b.admin.get(key)
	if !ok {
		return false
	}
	log := b.log.With("admin", userID)

	switch st.phase {
	case phaseAwaitKeyword:
		aliases := strings.TrimSpace(text)
		if aliases == "" {
			b.adminPrompt(ctx, threadID, "Aliases cannot be empty. Try again or press Cancel.")
			return true
		}
		st.aliases = aliases
		st.phase = phaseAwaitReply
		b.admin.set(key, st)
		b.adminPrompt(ctx, threadID, fmt.Sprintf("Now send the reply for <code>%s</code>.", html.EscapeString(aliases)))
	case phaseAwaitReply:
		rules := b.deps.Matcher.Upsert(st.aliases, text)
		b.persistRules(log, rules)
		b.admin.clear(key)
		b.adminPrompt(ctx, threadID, fmt.Sprintf("Rule saved for <code>%s</code>.", html.EscapeString(st.aliases)))
		log.Info("keyword rule saved", "aliases", st.aliases)
	case phaseAwaitDelete:
		aliases := strings.TrimSpace(text)
		rules, removed := b.deps.Matcher.Remove(aliases)
		b.admin.clear(key)
		if !removed {
			b.adminPrompt(ctx, threadID, fmt.Sprintf("No rule with aliases <code>%s</code>.", html.EscapeString(aliases)))
			return true
		}
		b.persistRules(log, rules)
		b.adminPrompt(ctx, threadID, fmt.Sprintf("Rule <code>%s</code> removed.", html.EscapeString(aliases)))
		log.Info("keyword rule removed", "aliases", aliases)
	}
	return true
}

func (b *Bridge) persistRules(log *slog.Logger, rules []config.KeywordRule) {
	b.deps.Config.SetKeywordRules(rules)
	if err := config.Save(b.cfgPath, b.deps.Config); err != nil {
		log.Error("keyword persist failed", "error", err)
	}
}

func (b *Bridge) adminPrompt(ctx context.Context, threadID int, text string) {
	if _, err := b.deps.Chat.SendThreadMessage(ctx, threadID, text); err != nil {
		b.log.Warn("admin prompt failed", "error", err)
	}
}

func renderRules(rules []config.KeywordRule) string {
	if len(rules) == 0 {
		return "No auto-reply rules configured."
	}
	var sb strings.Builder
	sb.WriteString("<b>Auto-reply rules</b>\n")
	for i, r := range rules {
		aliases := r.Aliases
		if aliases == "" {
			aliases = "(off-duty catch-all)"
		}
		reply := r.Reply
		if len(reply) > 60 {
			reply = reply[:60] + "…"
		}
		fmt.Fprintf(&sb, "%d. <code>%s</code> → %s\n", i+1, html.EscapeString(aliases), html.EscapeString(reply))
	}
	return strings.TrimRight(sb.String(), "\n")
}
