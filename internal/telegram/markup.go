package telegram

import (
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/deskgram/deskgram/internal/bridge"
)

// controlKeyboard builds the inline controls under a conversation's anchor
// message. Button data carries the conversation id so presses resolve
// without consulting the message they hang off.
func controlKeyboard(ctl bridge.Controls) *telego.InlineKeyboardMarkup {
	var rows [][]telego.InlineKeyboardButton

	if ctl.AIAvailable {
		ai := tu.InlineKeyboardButton("\U0001F916 AI: off").WithCallbackData("ai:on:" + ctl.ConversationID)
		if ctl.AIEnabled {
			ai = tu.InlineKeyboardButton("\U0001F916 AI: on").WithCallbackData("ai:off:" + ctl.ConversationID)
		}
		rows = append(rows, tu.InlineKeyboardRow(ai))
	}

	state := tu.InlineKeyboardButton("✅ Complete").WithCallbackData("done:" + ctl.ConversationID)
	if ctl.Completed {
		state = tu.InlineKeyboardButton("↩ Reopen").WithCallbackData("undone:" + ctl.ConversationID)
	}
	rows = append(rows, tu.InlineKeyboardRow(state))

	return tu.InlineKeyboard(rows...)
}

// adminKeyboard is the menu posted in response to /admin.
func adminKeyboard(offDuty bool) *telego.InlineKeyboardMarkup {
	offDutyLabel := "\U0001F319 Off-duty: off"
	if offDuty {
		offDutyLabel = "\U0001F319 Off-duty: on"
	}
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("➕ Add rule").WithCallbackData("admin:add"),
			tu.InlineKeyboardButton("➖ Remove rule").WithCallbackData("admin:del"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("\U0001F4CB List rules").WithCallbackData("admin:list"),
			tu.InlineKeyboardButton(offDutyLabel).WithCallbackData("admin:offduty"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("❌ Cancel").WithCallbackData("admin:cancel"),
		),
	)
}
