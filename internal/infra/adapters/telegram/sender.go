package telegram

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-medkit/internal/domain/ports/adapter"
)

// maxMessageRunes is the Telegram limit for one text message.
const maxMessageRunes = 4096

var _ adapter.TelegramBotAdapter = (*Sender)(nil)

// botAPI is the part of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Sender delivers plain messages; the expiry scanner and command replies share it.
type Sender struct {
	bot botAPI
}

func NewSender(bot botAPI) *Sender {
	return &Sender{bot: bot}
}

// SendMessage sends params.Text, split over several messages when it is longer
// than Telegram allows.
func (s *Sender) SendMessage(ctx context.Context, params adapter.SendMessageParams) error {
	for _, part := range splitText(params.Text, maxMessageRunes) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(params.ChatID, part)
		msg.ParseMode = params.ParseMode
		if _, err := s.bot.Send(msg); err != nil {
			return fmt.Errorf("send message to %d: %w", params.ChatID, err)
		}
	}
	return nil
}

// splitText cuts text into chunks of at most limit runes, preferring line breaks.
func splitText(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var (
		parts []string
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, strings.TrimSuffix(cur.String(), "\n"))
			cur.Reset()
			n = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		ln := utf8.RuneCountInString(line)
		if n+ln > limit {
			flush()
		}
		for ln > limit {
			r := []rune(line)
			parts = append(parts, string(r[:limit]))
			line = string(r[limit:])
			ln -= limit
		}
		cur.WriteString(line)
		n += ln
	}
	flush()
	return parts
}
