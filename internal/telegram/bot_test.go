package telegram

import (
	"errors"
	"testing"

	"github.com/mymmrac/telego"

	"github.com/deskgram/deskgram/internal/bridge"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil passes through", nil, nil},
		{
			"not modified",
			errors.New("telego: editMessageText: api: 400 Bad Request: message is not modified"),
			bridge.ErrMessageNotModified,
		},
		{
			"edit target gone",
			errors.New("telego: editMessageText: api: 400 Bad Request: message to edit not found"),
			bridge.ErrMessageNotFound,
		},
		{
			"pin target gone",
			errors.New("telego: pinChatMessage: api: 400 Bad Request: message to pin not found"),
			bridge.ErrMessageNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("classify() = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Fatalf("classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyLeavesOtherErrorsAlone(t *testing.T) {
	err := errors.New("telego: sendMessage: api: 429 Too Many Requests")
	got := classify(err)
	if errors.Is(got, bridge.ErrMessageNotModified) || errors.Is(got, bridge.ErrMessageNotFound) {
		t.Fatalf("classify() = %v, must not match a sentinel", got)
	}
}

func keyboardData(markup *telego.InlineKeyboardMarkup) []string {
	var data []string
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			data = append(data, btn.CallbackData)
		}
	}
	return data
}

func TestControlKeyboard(t *testing.T) {
	tests := []struct {
		name string
		ctl  bridge.Controls
		want []string
	}{
		{
			"ai on, open",
			bridge.Controls{ConversationID: "c1", AIEnabled: true, AIAvailable: true},
			[]string{"ai:off:c1", "done:c1"},
		},
		{
			"ai off, open",
			bridge.Controls{ConversationID: "c1", AIAvailable: true},
			[]string{"ai:on:c1", "done:c1"},
		},
		{
			"completed",
			bridge.Controls{ConversationID: "c1", AIAvailable: true, Completed: true},
			[]string{"ai:on:c1", "undone:c1"},
		},
		{
			"no ai provider hides toggle",
			bridge.Controls{ConversationID: "c1"},
			[]string{"done:c1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keyboardData(controlKeyboard(tt.ctl))
			if len(got) != len(tt.want) {
				t.Fatalf("buttons = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("buttons = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestAdminKeyboardTogglesLabel(t *testing.T) {
	data := keyboardData(adminKeyboard(false))
	want := []string{"admin:add", "admin:del", "admin:list", "admin:offduty", "admin:cancel"}
	if len(data) != len(want) {
		t.Fatalf("buttons = %v, want %v", data, want)
	}
	for i := range data {
		if data[i] != want[i] {
			t.Fatalf("buttons = %v, want %v", data, want)
		}
	}
}

func TestIsAdminCommand(t *testing.T) {
	for text, want := range map[string]bool{
		"/admin":            true,
		"/admin@deskbot":    true,
		"/administrator":    false,
		"admin":             false,
		"please run /admin": false,
	} {
		if got := isAdminCommand(text); got != want {
			t.Errorf("isAdminCommand(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestSenderName(t *testing.T) {
	if got := senderName(&telego.User{FirstName: "Grace", LastName: "Hopper"}); got != "Grace Hopper" {
		t.Fatalf("senderName = %q", got)
	}
	if got := senderName(&telego.User{FirstName: "Grace"}); got != "Grace" {
		t.Fatalf("senderName = %q", got)
	}
	if got := senderName(nil); got != "" {
		t.Fatalf("senderName(nil) = %q", got)
	}
}
