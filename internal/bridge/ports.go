package bridge

import (
	"context"
	"errors"

	"github.com/deskgram/deskgram/internal/crisp"
)

// Sentinel errors the chat-platform client maps platform failures onto.
// The bridge branches on these for its idempotent-refresh and
// resend-and-repin recovery paths.
var (
	// ErrMessageNotModified: an edit changed nothing. Swallowed as a no-op.
	ErrMessageNotModified = errors.New("message not modified")
	// ErrMessageNotFound: the edit target is gone (pruned history, deleted
	// anchor). Triggers anchor resend and repin.
	ErrMessageNotFound = errors.New("message not found")
)

// SupportClient is the support-service boundary (implemented by crisp.Client).
type SupportClient interface {
	SendMessage(ctx context.Context, sessionID string, msg crisp.MessageParams) error
	GetConversationMetas(ctx context.Context, sessionID string) (*crisp.ConversationMetas, error)
	MarkRead(ctx context.Context, sessionID string, fingerprint int64) error
	SetConversationState(ctx context.Context, sessionID, state string) error
}

// Controls describes the inline control row under the anchor message.
type Controls struct {
	ConversationID string
	AIEnabled      bool
	Completed      bool
	// AIAvailable hides the AI toggle entirely when no provider is configured.
	AIAvailable bool
}

// ChatClient is the chat-platform boundary (implemented by telegram.Bot).
// Thread 0 addresses the group's general chat.
type ChatClient interface {
	CreateThread(ctx context.Context, title string) (threadID int, err error)
	SendThreadMessage(ctx context.Context, threadID int, text string) (messageID int, err error)
	SendControlMessage(ctx context.Context, threadID int, text string, ctl Controls) (messageID int, err error)
	EditControlMessage(ctx context.Context, messageID int, text string, ctl Controls) error
	EditControls(ctx context.Context, messageID int, ctl Controls) error
	Pin(ctx context.Context, messageID int) error
	SendPhoto(ctx context.Context, threadID int, url, caption string) error
	SendVoice(ctx context.Context, threadID int, url string) error
	SendVideo(ctx context.Context, threadID int, url string) error
	SendAdminMenu(ctx context.Context, threadID int, offDuty bool) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// AttachmentUploader relays operator image bytes to a public URL.
type AttachmentUploader interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

// ThreadMessage is an operator/AI-typed message observed in a forum thread.
type ThreadMessage struct {
	ThreadID   int
	Text       string
	Photo      []byte // raw bytes of the largest photo size, if any
	SenderName string
}

// Callback is one inline-button press.
type Callback struct {
	ID        string // callback query id, for AnswerCallback
	Data      string
	ChatID    int64
	MessageID int
	ThreadID  int
	UserID    int64
}
