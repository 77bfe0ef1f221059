// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

// SendMessageParams describes one outgoing chat message.
type SendMessageParams struct {
	ChatID    int64
	Text      string
	ParseMode string // "" | "Markdown" | "MarkdownV2" | "HTML"
}

type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, params SendMessageParams) error
}
