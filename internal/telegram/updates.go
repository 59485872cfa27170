package telegram

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/deskgram/deskgram/internal/bridge"
)

// Handler receives routed group activity. Implemented by bridge.Bridge.
type Handler interface {
	HandleThreadMessage(ctx context.Context, m bridge.ThreadMessage)
	HandleCallback(ctx context.Context, cb bridge.Callback)
	HandleAdminInput(ctx context.Context, chatID, userID int64, threadID int, text string) bool
	ShowAdminMenu(ctx context.Context, threadID int)
}

// Run long-polls for updates and routes group messages and button presses to
// the handler until ctx is cancelled. Blocking; meant for an errgroup.
func (b *Bot) Run(ctx context.Context, handler Handler) error {
	updates, err := b.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		return err
	}
	slog.Info("telegram polling started", "group", b.groupID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				slog.Info("telegram updates channel closed")
				return nil
			}
			switch {
			case update.Message != nil:
				b.routeMessage(ctx, handler, update.Message)
			case update.CallbackQuery != nil:
				b.routeCallback(ctx, handler, update.CallbackQuery)
			}
		}
	}
}

func (b *Bot) routeMessage(ctx context.Context, handler Handler, msg *telego.Message) {
	if msg.Chat.ID != b.groupID {
		slog.Debug("message outside support group skipped", "chat", msg.Chat.ID)
		return
	}
	if msg.From == nil || msg.From.IsBot {
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	// Keyword-edit dialogs eat the sender's next messages.
	if handler.HandleAdminInput(ctx, msg.Chat.ID, msg.From.ID, msg.MessageThreadID, text) {
		return
	}
	if isAdminCommand(text) {
		handler.ShowAdminMenu(ctx, msg.MessageThreadID)
		return
	}

	tm := bridge.ThreadMessage{
		ThreadID:   msg.MessageThreadID,
		Text:       text,
		SenderName: senderName(msg.From),
	}
	if len(msg.Photo) > 0 {
		data, err := b.downloadPhoto(ctx, msg.Photo)
		if err != nil {
			slog.Warn("photo download failed", "error", err)
		} else {
			tm.Photo = data
		}
	}
	handler.HandleThreadMessage(ctx, tm)
}

func (b *Bot) routeCallback(ctx context.Context, handler Handler, query *telego.CallbackQuery) {
	cb := bridge.Callback{
		ID:     query.ID,
		Data:   query.Data,
		UserID: query.From.ID,
	}
	if query.Message != nil {
		cb.ChatID = query.Message.GetChat().ID
		cb.MessageID = query.Message.GetMessageID()
		if m, ok := query.Message.(*telego.Message); ok {
			cb.ThreadID = m.MessageThreadID
		}
	}
	if cb.ChatID != 0 && cb.ChatID != b.groupID {
		return
	}
	handler.HandleCallback(ctx, cb)
}

// isAdminCommand matches "/admin" including the @botname form Telegram
// appends in groups.
func isAdminCommand(text string) bool {
	if text == "/admin" {
		return true
	}
	return strings.HasPrefix(text, "/admin@")
}

func senderName(u *telego.User) string {
	if u == nil {
		return ""
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}
