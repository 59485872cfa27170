package bridge

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/deskgram/deskgram/internal/crisp"
)

// renderMetas produces the anchor message body for a conversation.
// Field order is fixed so the rendered text is stable across turns and the
// last-rendered comparison can short-circuit redundant edits.
func renderMetas(sessionID string, metas *crisp.ConversationMetas) string {
	var b strings.Builder
	b.WriteString("\U0001F4E0 <b>Support conversation</b>\n")
	fmt.Fprintf(&b, "\U0001FAAA ID: <code>%s</code>\n", html.EscapeString(sessionID))
	if metas == nil {
		return strings.TrimRight(b.String(), "\n")
	}
	if metas.Nickname != "" {
		fmt.Fprintf(&b, "\U0001F464 Name: %s\n", html.EscapeString(metas.Nickname))
	}
	if metas.Email != "" {
		fmt.Fprintf(&b, "\U0001F4E7 Email: %s\n", html.EscapeString(metas.Email))
	}
	if len(metas.Data) > 0 {
		keys := make([]string, 0, len(metas.Data))
		for k := range metas.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := fmt.Sprint(metas.Data[k])
			fmt.Fprintf(&b, "\U0001F5D2 %s: %s\n", html.EscapeString(k), html.EscapeString(v))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// threadTitle picks the forum topic name for a new conversation.
func threadTitle(sessionID string, metas *crisp.ConversationMetas) string {
	if metas != nil && metas.Nickname != "" {
		return metas.Nickname
	}
	if len(sessionID) > 12 {
		return sessionID[:12]
	}
	return sessionID
}
