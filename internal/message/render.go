// Package message renders the bot's user-facing texts. Texts are authored in
// Markdown, converted with goldmark and then reduced to the small HTML tag
// subset the Telegram Bot API accepts.
package message

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// Renderer converts Markdown message bodies to Telegram-safe HTML.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a renderer with CommonMark defaults.
func NewRenderer() *Renderer {
	return &Renderer{md: goldmark.New()}
}

// RenderHTML converts one Markdown body to sanitized HTML.
func (r *Renderer) RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return sanitizeTelegramHTML(buf.String())
}
