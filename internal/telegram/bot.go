package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"golang.org/x/time/rate"

	"github.com/deskgram/deskgram/internal/bridge"
	"github.com/deskgram/deskgram/internal/config"
)

// defaultSendRate caps outbound Bot API calls per second when the config
// does not say otherwise. Telegram throttles well above this for a single
// group, so the limiter mostly smooths bursts.
const defaultSendRate = 10

// Bot wraps the Telegram Bot API for one forum supergroup. All sends and
// edits go through a shared rate limiter. Implements bridge.ChatClient.
type Bot struct {
	bot     *telego.Bot
	token   string
	groupID int64
	limiter *rate.Limiter
}

// New creates the bot client from config. The token is validated lazily; call
// Ping to verify credentials at startup.
func New(cfg config.TelegramConfig) (*Bot, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	sendRate := cfg.SendRate
	if sendRate <= 0 {
		sendRate = defaultSendRate
	}
	return &Bot{
		bot:     bot,
		token:   cfg.Token,
		groupID: cfg.GroupID,
		limiter: rate.NewLimiter(rate.Limit(sendRate), 5),
	}, nil
}

// Ping verifies the bot token against the API.
func (b *Bot) Ping(ctx context.Context) error {
	if _, err := b.bot.GetMe(ctx); err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	return nil
}

func (b *Bot) CreateThread(ctx context.Context, title string) (int, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	topic, err := b.bot.CreateForumTopic(ctx, &telego.CreateForumTopicParams{
		ChatID: tu.ID(b.groupID),
		Name:   title,
	})
	if err != nil {
		return 0, fmt.Errorf("create forum topic: %w", err)
	}
	return topic.MessageThreadID, nil
}

func (b *Bot) SendThreadMessage(ctx context.Context, threadID int, text string) (int, error) {
	return b.send(ctx, threadID, text, nil)
}

func (b *Bot) SendControlMessage(ctx context.Context, threadID int, text string, ctl bridge.Controls) (int, error) {
	return b.send(ctx, threadID, text, controlKeyboard(ctl))
}

func (b *Bot) send(ctx context.Context, threadID int, text string, markup *telego.InlineKeyboardMarkup) (int, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	msg := tu.Message(tu.ID(b.groupID), text)
	msg.MessageThreadID = threadID
	msg.ParseMode = telego.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := b.bot.SendMessage(ctx, msg)
	if err != nil {
		return 0, classify(err)
	}
	return sent.MessageID, nil
}

func (b *Bot) EditControlMessage(ctx context.Context, messageID int, text string, ctl bridge.Controls) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := b.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:      tu.ID(b.groupID),
		MessageID:   messageID,
		Text:        text,
		ParseMode:   telego.ModeHTML,
		ReplyMarkup: controlKeyboard(ctl),
	})
	return classify(err)
}

func (b *Bot) EditControls(ctx context.Context, messageID int, ctl bridge.Controls) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := b.bot.EditMessageReplyMarkup(ctx, &telego.EditMessageReplyMarkupParams{
		ChatID:      tu.ID(b.groupID),
		MessageID:   messageID,
		ReplyMarkup: controlKeyboard(ctl),
	})
	return classify(err)
}

func (b *Bot) Pin(ctx context.Context, messageID int) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	err := b.bot.PinChatMessage(ctx, &telego.PinChatMessageParams{
		ChatID:              tu.ID(b.groupID),
		MessageID:           messageID,
		DisableNotification: true,
	})
	return classify(err)
}

func (b *Bot) SendPhoto(ctx context.Context, threadID int, url, caption string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	params := &telego.SendPhotoParams{
		ChatID:          tu.ID(b.groupID),
		MessageThreadID: threadID,
		Photo:           tu.FileFromURL(url),
		Caption:         caption,
		ParseMode:       telego.ModeHTML,
	}
	_, err := b.bot.SendPhoto(ctx, params)
	return classify(err)
}

func (b *Bot) SendVoice(ctx context.Context, threadID int, url string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := b.bot.SendVoice(ctx, &telego.SendVoiceParams{
		ChatID:          tu.ID(b.groupID),
		MessageThreadID: threadID,
		Voice:           tu.FileFromURL(url),
	})
	return classify(err)
}

func (b *Bot) SendVideo(ctx context.Context, threadID int, url string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := b.bot.SendVideo(ctx, &telego.SendVideoParams{
		ChatID:          tu.ID(b.groupID),
		MessageThreadID: threadID,
		Video:           tu.FileFromURL(url),
	})
	return classify(err)
}

func (b *Bot) SendAdminMenu(ctx context.Context, threadID int, offDuty bool) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tu.Message(tu.ID(b.groupID), "<b>Bridge admin</b>")
	msg.MessageThreadID = threadID
	msg.ParseMode = telego.ModeHTML
	msg.ReplyMarkup = adminKeyboard(offDuty)
	_, err := b.bot.SendMessage(ctx, msg)
	return classify(err)
}

func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return classify(b.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	}))
}

// classify maps Bot API errors onto the sentinels the bridge branches on.
// Telegram reports both conditions as 400 Bad Request with a descriptive
// string, so string matching is the only handle available.
func classify(err error) error {
	if err == nil {
		return nil
	}
	desc := strings.ToLower(err.Error())
	switch {
	case strings.Contains(desc, "message is not modified"):
		return fmt.Errorf("%w: %v", bridge.ErrMessageNotModified, err)
	case strings.Contains(desc, "message to edit not found"),
		strings.Contains(desc, "message to pin not found"),
		strings.Contains(desc, "message not found"):
		return fmt.Errorf("%w: %v", bridge.ErrMessageNotFound, err)
	}
	return err
}
