package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"

	"github.com/deskgram/deskgram/internal/config"
	"github.com/deskgram/deskgram/internal/crisp"
	"github.com/deskgram/deskgram/internal/keyword"
	"github.com/deskgram/deskgram/internal/providers"
	"github.com/deskgram/deskgram/internal/store"
)

const (
	// completionTimeout bounds one AI auto-reply so a slow provider cannot
	// stall the event stream.
	completionTimeout = 20 * time.Second

	// Visitor-typed toggle tokens for the AI assistant.
	tokenDisableAI = "111"
	tokenEnableAI  = "222"
)

// Dependencies are the ports the bridge drives. Completer may be nil when no
// AI provider is configured; everything else is required.
type Dependencies struct {
	Support   SupportClient
	Chat      ChatClient
	Store     *store.Store
	Matcher   *keyword.Matcher
	Completer providers.Completer
	Uploader  AttachmentUploader
	Config    *config.Config
}

// Bridge relays conversation turns between the support service and the chat
// platform. One event is handled at a time per listener goroutine, which
// keeps per-conversation ordering without extra synchronization.
type Bridge struct {
	deps    Dependencies
	cfgPath string
	admin   *adminStates
	gron    *gronx.Gronx
	log     *slog.Logger
	now     func() time.Time
}

// New builds a Bridge. cfgPath is where admin keyword edits get persisted.
func New(deps Dependencies, cfgPath string) *Bridge {
	return &Bridge{
		deps:    deps,
		cfgPath: cfgPath,
		admin:   newAdminStates(),
		gron:    gronx.New(),
		log:     slog.Default().With("component", "bridge"),
		now:     time.Now,
	}
}

// HandleVisitorEvent processes one inbound RTM message event. Failures of
// individual steps are logged and skipped; one bad turn never takes the
// listener down.
func (b *Bridge) HandleVisitorEvent(ctx context.Context, ev crisp.MessageEvent) {
	log := b.log.With("turn", uuid.NewString()[:8], "conversation", ev.SessionID, "type", ev.Type)
	log.Info("visitor event")

	if err := b.deps.Support.MarkRead(ctx, ev.SessionID, ev.Fingerprint); err != nil {
		log.Warn("mark read failed", "error", err)
	}

	sess, err := b.ensureSession(ctx, log, &ev)
	if err != nil {
		log.Error("session setup failed", "error", err)
		return
	}

	switch ev.Type {
	case "text":
		b.handleVisitorText(ctx, log, sess, &ev)
	case "file":
		b.handleVisitorFile(ctx, log, sess, &ev)
	case "audio":
		b.handleVisitorAudio(ctx, log, sess, &ev)
	default:
		log.Debug("ignoring event type")
	}
}

// ensureSession resolves or creates the session for an event and keeps the
// pinned anchor message current.
func (b *Bridge) ensureSession(ctx context.Context, log *slog.Logger, ev *crisp.MessageEvent) (*store.Session, error) {
	metas, metasErr := b.deps.Support.GetConversationMetas(ctx, ev.SessionID)
	if metasErr != nil {
		log.Warn("metas fetch failed", "error", metasErr)
	}
	rendered := renderMetas(ev.SessionID, metas)

	sess, ok := b.deps.Store.Get(ev.SessionID)
	if !ok {
		threadID, err := b.deps.Chat.CreateThread(ctx, threadTitle(ev.SessionID, metas))
		if err != nil {
			return nil, fmt.Errorf("create thread: %w", err)
		}
		sess = &store.Session{
			ConversationID: ev.SessionID,
			ThreadID:       threadID,
			AIEnabled:      b.aiAvailable(),
			LastMetas:      rendered,
		}
		msgID, err := b.deps.Chat.SendControlMessage(ctx, threadID, rendered, b.controls(sess))
		if err != nil {
			return nil, fmt.Errorf("send anchor: %w", err)
		}
		sess.AnchorMessageID = msgID
		if err := b.deps.Chat.Pin(ctx, msgID); err != nil {
			log.Warn("pin anchor failed", "error", err)
		}
		b.deps.Store.Put(sess)
		log.Info("session created", "thread", threadID)
		return sess, nil
	}

	// A failed fetch renders a bare block; don't clobber a good anchor with it.
	if metasErr == nil && rendered != sess.LastMetas {
		b.refreshAnchor(ctx, log, sess, rendered)
	}
	return sess, nil
}

// refreshAnchor edits the anchor in place, recreating it when the original
// message no longer exists.
func (b *Bridge) refreshAnchor(ctx context.Context, log *slog.Logger, sess *store.Session, rendered string) {
	err := b.deps.Chat.EditControlMessage(ctx, sess.AnchorMessageID, rendered, b.controls(sess))
	switch {
	case err == nil, errors.Is(err, ErrMessageNotModified):
	case errors.Is(err, ErrMessageNotFound):
		msgID, sendErr := b.deps.Chat.SendControlMessage(ctx, sess.ThreadID, rendered, b.controls(sess))
		if sendErr != nil {
			log.Warn("anchor resend failed", "error", sendErr)
			return
		}
		sess.AnchorMessageID = msgID
		if pinErr := b.deps.Chat.Pin(ctx, msgID); pinErr != nil {
			log.Warn("pin anchor failed", "error", pinErr)
		}
		log.Info("anchor recreated", "message", msgID)
	default:
		log.Warn("anchor edit failed", "error", err)
		return
	}
	sess.LastMetas = rendered
	// Touch only the fields this path owns; a control-surface toggle may have
	// landed since this turn's snapshot was taken.
	b.deps.Store.Update(sess.ConversationID, func(cur *store.Session) {
		cur.AnchorMessageID = sess.AnchorMessageID
		cur.LastMetas = rendered
	})
}

func (b *Bridge) handleVisitorText(ctx context.Context, log *slog.Logger, sess *store.Session, ev *crisp.MessageEvent) {
	content := ev.Text()
	if content == "" {
		return
	}

	if content == tokenDisableAI || content == tokenEnableAI {
		b.toggleAIFromVisitor(ctx, log, sess, content == tokenEnableAI)
		return
	}

	if _, err := b.deps.Chat.SendThreadMessage(ctx, sess.ThreadID, formatVisitorLine(ev.User.Nickname, content)); err != nil {
		log.Error("thread relay failed", "error", err)
	}

	if b.aiAvailable() && !sess.FirstMessageSent {
		sess.FirstMessageSent = true
		b.deps.Store.Update(sess.ConversationID, func(cur *store.Session) {
			cur.FirstMessageSent = true
		})
		b.sendSystemNotice(ctx, log, sess.ConversationID,
			"You are chatting with our AI assistant. Send 111 to turn it off, 222 to turn it back on.")
	}

	reply, source := b.resolveAutoReply(ctx, log, sess, content)
	if reply == "" {
		return
	}
	if err := b.deps.Support.SendMessage(ctx, sess.ConversationID, b.aiMessage(reply)); err != nil {
		log.Error("auto-reply send failed", "source", source, "error", err)
		return
	}
	log.Info("auto-reply sent", "source", source)
	if _, err := b.deps.Chat.SendThreadMessage(ctx, sess.ThreadID, formatAutoReplyLine(source, reply)); err != nil {
		log.Warn("auto-reply echo failed", "error", err)
	}
}

// resolveAutoReply picks at most one automated answer for a visitor turn.
// Precedence: off-duty catch-all, then keyword table, then the AI provider.
func (b *Bridge) resolveAutoReply(ctx context.Context, log *slog.Logger, sess *store.Session, content string) (reply, source string) {
	if b.offDutyActive() {
		if r, ok := b.deps.Matcher.OffDutyReply(); ok {
			return r, "offduty"
		}
	}
	if r, ok := b.deps.Matcher.Match(content); ok {
		return r, "keyword"
	}
	if !b.aiAvailable() || !b.aiEnabledNow(sess) {
		return "", ""
	}

	cctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()
	r, err := b.deps.Completer.Complete(cctx, b.systemPrompt(), content)
	if err != nil {
		log.Error("completion failed", "provider", b.deps.Completer.Name(), "error", err)
		return "", ""
	}
	// A completion can take seconds; an operator may have taken over meanwhile.
	if !b.aiEnabledNow(sess) {
		log.Info("auto-reply dropped, ai disabled mid-turn")
		return "", ""
	}
	return r, "ai"
}

// aiEnabledNow reads the AI flag fresh from the store instead of trusting
// the turn's snapshot, so a control-surface toggle landing mid-turn wins.
func (b *Bridge) aiEnabledNow(sess *store.Session) bool {
	if cur, ok := b.deps.Store.Get(sess.ConversationID); ok {
		return cur.AIEnabled
	}
	return sess.AIEnabled
}

func (b *Bridge) handleVisitorFile(ctx context.Context, log *slog.Logger, sess *store.Session, ev *crisp.MessageEvent) {
	fc, ok := ev.File()
	if !ok {
		log.Warn("file event without url")
		return
	}
	var err error
	switch {
	case isImageMIME(fc.Type):
		err = b.deps.Chat.SendPhoto(ctx, sess.ThreadID, fc.URL, formatVisitorLine(ev.User.Nickname, fc.Name))
	case isVideoMIME(fc.Type):
		err = b.deps.Chat.SendVideo(ctx, sess.ThreadID, fc.URL)
	default:
		// Already the link form; there is no further fallback.
		if _, err := b.deps.Chat.SendThreadMessage(ctx, sess.ThreadID,
			formatVisitorHTML(ev.User.Nickname, attachmentLink(fc.Name, fc.URL))); err != nil {
			log.Error("file relay failed", "mime", fc.Type, "error", err)
		}
		return
	}
	if err != nil {
		log.Error("file relay failed", "mime", fc.Type, "error", err)
		// Degrade to a plain link so the turn still reaches the operator.
		if _, err := b.deps.Chat.SendThreadMessage(ctx, sess.ThreadID,
			formatVisitorHTML(ev.User.Nickname, attachmentLink(fc.Name, fc.URL))); err != nil {
			log.Error("file link fallback failed", "error", err)
		}
	}
}

func (b *Bridge) handleVisitorAudio(ctx context.Context, log *slog.Logger, sess *store.Session, ev *crisp.MessageEvent) {
	fc, ok := ev.File()
	if !ok {
		log.Warn("audio event without url")
		return
	}
	if err := b.deps.Chat.SendVoice(ctx, sess.ThreadID, fc.URL); err != nil {
		log.Warn("voice relay failed, sending link", "error", err)
		if _, err := b.deps.Chat.SendThreadMessage(ctx, sess.ThreadID,
			formatVisitorHTML(ev.User.Nickname, attachmentLink("voice message", fc.URL))); err != nil {
			log.Error("audio link fallback failed", "error", err)
		}
	}
}

func (b *Bridge) toggleAIFromVisitor(ctx context.Context, log *slog.Logger, sess *store.Session, enable bool) {
	if !b.aiAvailable() {
		b.sendSystemNotice(ctx, log, sess.ConversationID, "The AI assistant is not available right now.")
		return
	}
	sess.AIEnabled = enable
	b.deps.Store.Update(sess.ConversationID, func(cur *store.Session) {
		cur.AIEnabled = enable
	})
	notice := "AI assistant is off. A human will pick this up."
	if enable {
		notice = "AI assistant is back on."
	}
	b.sendSystemNotice(ctx, log, sess.ConversationID, notice)
	err := b.deps.Chat.EditControls(ctx, sess.AnchorMessageID, b.controls(sess))
	if err != nil && !errors.Is(err, ErrMessageNotModified) {
		log.Warn("controls refresh failed", "error", err)
	}
	log.Info("visitor toggled ai", "enabled", enable)
}

// offDutyActive reports whether automated off-duty answering applies right
// now, from the manual toggle or the cron schedule.
func (b *Bridge) offDutyActive() bool {
	od := b.deps.Config.OffDutySnapshot()
	if od.Enabled {
		return true
	}
	if od.Schedule == "" {
		return false
	}
	due, err := b.gron.IsDue(od.Schedule, b.now())
	if err != nil {
		b.log.Warn("bad off-duty schedule", "schedule", od.Schedule, "error", err)
		return false
	}
	return due
}

func (b *Bridge) aiAvailable() bool {
	return b.deps.Completer != nil && b.deps.Config.HasAIProvider()
}

func (b *Bridge) systemPrompt() string {
	if p := b.deps.Config.OpenAI.Prompt; p != "" {
		return p
	}
	return "You are a concise, friendly customer support assistant. Answer in the visitor's language."
}

func (b *Bridge) controls(sess *store.Session) Controls {
	return Controls{
		ConversationID: sess.ConversationID,
		AIEnabled:      sess.AIEnabled,
		Completed:      sess.Completed,
		AIAvailable:    b.aiAvailable(),
	}
}

func (b *Bridge) sendSystemNotice(ctx context.Context, log *slog.Logger, sessionID, text string) {
	id := b.deps.Config.Identities.System
	msg := crisp.MessageParams{
		Type:    "text",
		Content: text,
		From:    "operator",
		Origin:  "chat",
		User:    &crisp.MessageUser{Nickname: id.Nickname, Avatar: id.Avatar},
	}
	if err := b.deps.Support.SendMessage(ctx, sessionID, msg); err != nil {
		log.Warn("system notice failed", "error", err)
	}
}

// operatorMessage attributes a message to the human operator identity,
// preferring the actual sender's display name when known.
func (b *Bridge) operatorMessage(text, senderName string) crisp.MessageParams {
	id := b.deps.Config.Identities.Operator
	nickname := id.Nickname
	if senderName != "" {
		nickname = senderName
	}
	return crisp.MessageParams{
		Type:    "text",
		Content: text,
		From:    "operator",
		Origin:  "chat",
		User:    &crisp.MessageUser{Nickname: nickname, Avatar: id.Avatar},
	}
}

func (b *Bridge) aiMessage(text string) crisp.MessageParams {
	id := b.deps.Config.Identities.AI
	return crisp.MessageParams{
		Type:    "text",
		Content: text,
		From:    "operator",
		Origin:  "chat",
		User:    &crisp.MessageUser{Nickname: id.Nickname, Avatar: id.Avatar},
	}
}
