package bridge

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/deskgram/deskgram/internal/crisp"
	"github.com/deskgram/deskgram/internal/store"
)

// Callback data formats. The conversation id rides in the payload so a
// button press resolves its session without consulting the pressed message.
const (
	cbPrefixAIOn   = "ai:on:"  // ai:on:<conversationID>
	cbPrefixAIOff  = "ai:off:" // ai:off:<conversationID>
	cbPrefixDone   = "done:"   // done:<conversationID>
	cbPrefixUndone = "undone:" // undone:<conversationID>
	cbPrefixAdmin  = "admin:"  // admin:<action>
)

// HandleCallback routes one inline-button press.
func (b *Bridge) HandleCallback(ctx context.Context, cb Callback) {
	log := b.log.With("callback", cb.Data, "user", cb.UserID)

	if strings.HasPrefix(cb.Data, cbPrefixAdmin) {
		b.handleAdminCallback(ctx, log, cb)
		return
	}

	var ack string
	switch {
	case strings.HasPrefix(cb.Data, cbPrefixAIOn):
		ack = b.setAI(ctx, log, strings.TrimPrefix(cb.Data, cbPrefixAIOn), true)
	case strings.HasPrefix(cb.Data, cbPrefixAIOff):
		ack = b.setAI(ctx, log, strings.TrimPrefix(cb.Data, cbPrefixAIOff), false)
	case strings.HasPrefix(cb.Data, cbPrefixDone):
		ack = b.setCompleted(ctx, log, strings.TrimPrefix(cb.Data, cbPrefixDone), true)
	case strings.HasPrefix(cb.Data, cbPrefixUndone):
		ack = b.setCompleted(ctx, log, strings.TrimPrefix(cb.Data, cbPrefixUndone), false)
	default:
		log.Warn("unknown callback")
		ack = "Unknown action"
	}
	if err := b.deps.Chat.AnswerCallback(ctx, cb.ID, ack); err != nil {
		log.Warn("answer callback failed", "error", err)
	}
}

func (b *Bridge) setAI(ctx context.Context, log *slog.Logger, conversationID string, enable bool) string {
	if !b.aiAvailable() {
		return "No AI provider configured"
	}
	sess, ok := b.deps.Store.Update(conversationID, func(cur *store.Session) {
		cur.AIEnabled = enable
	})
	if !ok {
		log.Warn("callback for unknown conversation")
		return "Conversation not found"
	}
	b.refreshControls(ctx, log, sess)

	notice := "A human operator has taken over this conversation."
	ack := "AI disabled"
	if enable {
		notice = "The AI assistant is handling this conversation again."
		ack = "AI enabled"
	}
	b.sendSystemNotice(ctx, log, conversationID, notice)
	log.Info("ai toggled", "enabled", enable)
	return ack
}

func (b *Bridge) setCompleted(ctx context.Context, log *slog.Logger, conversationID string, done bool) string {
	if _, ok := b.deps.Store.Get(conversationID); !ok {
		log.Warn("callback for unknown conversation")
		return "Conversation not found"
	}
	state := crisp.StatePending
	ack := "Reopened"
	if done {
		state = crisp.StateResolved
		ack = "Marked complete"
	}
	if err := b.deps.Support.SetConversationState(ctx, conversationID, state); err != nil {
		log.Error("state change failed", "state", state, "error", err)
		return "Could not update conversation state"
	}
	sess, ok := b.deps.Store.Update(conversationID, func(cur *store.Session) {
		cur.Completed = done
	})
	if !ok {
		return "Conversation not found"
	}
	b.refreshControls(ctx, log, sess)
	log.Info("conversation state changed", "state", state)
	return ack
}

func (b *Bridge) refreshControls(ctx context.Context, log *slog.Logger, sess *store.Session) {
	err := b.deps.Chat.EditControls(ctx, sess.AnchorMessageID, b.controls(sess))
	if err != nil && !errors.Is(err, ErrMessageNotModified) {
		log.Warn("controls refresh failed", "error", err)
	}
}
