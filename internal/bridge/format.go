package bridge

import (
	"fmt"
	"html"
	"strings"
)

func isImageMIME(mime string) bool {
	return strings.HasPrefix(mime, "image/")
}

func isVideoMIME(mime string) bool {
	return strings.HasPrefix(mime, "video/")
}

// formatVisitorLine renders one visitor turn for the forum thread.
func formatVisitorLine(nickname, content string) string {
	if nickname == "" {
		nickname = "Visitor"
	}
	return fmt.Sprintf("\U0001F4AC <b>%s</b>\n%s", html.EscapeString(nickname), html.EscapeString(content))
}

// formatAutoReplyLine echoes an automated answer into the thread so
// operators see what the visitor was told.
func formatAutoReplyLine(source, reply string) string {
	label := "Auto-reply"
	switch source {
	case "ai":
		label = "AI reply"
	case "offduty":
		label = "Off-duty reply"
	}
	return fmt.Sprintf("\U0001F916 <i>%s</i>\n%s", label, html.EscapeString(reply))
}

// formatVisitorHTML is formatVisitorLine for content that is already HTML
// (attachment links).
func formatVisitorHTML(nickname, content string) string {
	if nickname == "" {
		nickname = "Visitor"
	}
	return fmt.Sprintf("\U0001F4AC <b>%s</b>\n%s", html.EscapeString(nickname), content)
}

func attachmentLink(name, url string) string {
	if name == "" {
		name = "attachment"
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`, url, html.EscapeString(name))
}
