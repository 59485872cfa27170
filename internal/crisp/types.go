package crisp

import "encoding/json"

// MessageEvent is one "message:send" RTM event: a visitor wrote something.
type MessageEvent struct {
	WebsiteID   string          `json:"website_id"`
	SessionID   string          `json:"session_id"`
	Type        string          `json:"type"` // "text", "file", "audio", "animation"
	From        string          `json:"from"`
	Origin      string          `json:"origin"`
	Content     json.RawMessage `json:"content"` // string for text, object for file/audio
	Fingerprint int64           `json:"fingerprint"`
	User        EventUser       `json:"user"`
}

// EventUser identifies the visitor on an RTM event.
type EventUser struct {
	Nickname string `json:"nickname"`
	UserID   string `json:"user_id"`
}

// FileContent is the content object of "file" and "audio" events.
type FileContent struct {
	Name     string `json:"name,omitempty"`
	URL      string `json:"url"`
	Type     string `json:"type"` // MIME type, e.g. "image/png", "audio/webm"
	Duration int    `json:"duration,omitempty"`
}

// Text returns the content of a text event.
func (e *MessageEvent) Text() string {
	var s string
	if err := json.Unmarshal(e.Content, &s); err != nil {
		return ""
	}
	return s
}

// File returns the content object of a file/audio event.
func (e *MessageEvent) File() (FileContent, bool) {
	var fc FileContent
	if err := json.Unmarshal(e.Content, &fc); err != nil || fc.URL == "" {
		return FileContent{}, false
	}
	return fc, true
}

// MessageParams is the body of a conversation message written through the
// REST API. From is "operator" for everything the bridge writes; the user
// block carries the authoring identity shown to the visitor.
type MessageParams struct {
	Type    string       `json:"type"`
	Content string       `json:"content"`
	From    string       `json:"from"`
	Origin  string       `json:"origin"`
	User    *MessageUser `json:"user,omitempty"`
}

// MessageUser is the identity a REST message is attributed to.
type MessageUser struct {
	Nickname string `json:"nickname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// ConversationMetas is the visitor metadata block of a conversation.
// Data values are operator-defined and not guaranteed to be strings.
type ConversationMetas struct {
	Nickname string         `json:"nickname,omitempty"`
	Email    string         `json:"email,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Conversation states accepted by SetConversationState.
const (
	StatePending  = "pending"
	StateResolved = "resolved"
)
