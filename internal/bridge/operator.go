package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// HandleThreadMessage relays one operator message from a forum thread back to
// the visitor. Messages in threads no session maps to are logged and dropped.
func (b *Bridge) HandleThreadMessage(ctx context.Context, m ThreadMessage) {
	log := b.log.With("thread", m.ThreadID)

	sess, ok := b.deps.Store.GetByThread(m.ThreadID)
	if !ok {
		log.Warn("no session for thread, dropping message")
		return
	}
	log = log.With("conversation", sess.ConversationID)

	if len(m.Photo) > 0 {
		b.relayOperatorPhoto(ctx, log, sess.ConversationID, m)
	} else if m.Text != "" {
		msg := b.operatorMessage(m.Text, m.SenderName)
		if err := b.deps.Support.SendMessage(ctx, sess.ConversationID, msg); err != nil {
			log.Error("operator relay failed", "error", err)
			return
		}
	} else {
		return
	}

	// A human answered; refresh the anchor so its controls reflect any state
	// changed elsewhere since the last edit.
	err := b.deps.Chat.EditControls(ctx, sess.AnchorMessageID, b.controls(sess))
	if err != nil && !errors.Is(err, ErrMessageNotModified) {
		log.Warn("controls refresh failed", "error", err)
	}
}

// relayOperatorPhoto uploads the photo to a public host and sends it as a
// markdown image. When every host fails the visitor still gets a note.
func (b *Bridge) relayOperatorPhoto(ctx context.Context, log *slog.Logger, sessionID string, m ThreadMessage) {
	url, err := b.deps.Uploader.Upload(ctx, m.Photo)
	if err != nil {
		log.Error("photo upload failed", "error", err)
		b.sendSystemNotice(ctx, log, sessionID,
			"The agent sent an image but it could not be delivered. They will follow up.")
		return
	}
	content := fmt.Sprintf("![image](%s)", url)
	if m.Text != "" {
		content = fmt.Sprintf("![%s](%s)", m.Text, url)
	}
	if err := b.deps.Support.SendMessage(ctx, sessionID, b.operatorMessage(content, m.SenderName)); err != nil {
		log.Error("photo message failed", "error", err)
	}
	log.Info("photo relayed", "url", url)
}
