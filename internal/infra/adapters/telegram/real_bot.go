package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-medkit/internal/application"
	"telegram-medkit/internal/config"
	"telegram-medkit/internal/domain/ports/adapter"
	"telegram-medkit/internal/infra/logging"
	"telegram-medkit/internal/infra/metrics"
	red "telegram-medkit/internal/infra/redis"
	"telegram-medkit/internal/infra/worker"
)

// RateLimiter is satisfied by the Redis and in-process limiters.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RealTelegramBotAdapter uses tgbotapi to poll updates and delegates to BotFacade.
type RealTelegramBotAdapter struct {
	*Sender
	bot         botAPI
	facade      *application.BotFacade
	rateLimiter RateLimiter
	pool        *worker.Pool
	log         *zerolog.Logger
}

// NewBotAPI logs in with the configured token.
func NewBotAPI(cfg *config.BotConfig) (*tgbotapi.BotAPI, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	return tgbotapi.NewBotAPI(cfg.Token)
}

func NewRealTelegramBotAdapter(bot botAPI, facade *application.BotFacade, rateLimiter RateLimiter, pool *worker.Pool, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if bot == nil {
		return nil, errors.New("bot api is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	if pool == nil {
		return nil, errors.New("worker pool is nil")
	}
	botLog := logger.With().Str("component", "TelegramBot").Logger()
	return &RealTelegramBotAdapter{
		Sender:      NewSender(bot),
		bot:         bot,
		facade:      facade,
		rateLimiter: rateLimiter,
		pool:        pool,
		log:         &botLog,
	}, nil
}

// StartPolling feeds updates to the worker pool until ctx is done. Updates of
// one chat are handled in arrival order.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)
	defer r.bot.StopReceivingUpdates()

	r.log.Info().Int("workers", r.pool.Size()).Msg("polling started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("polling stopped")
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			if up.Message == nil || up.Message.Chat == nil {
				continue
			}
			if err := r.pool.Submit(ctx, up.Message.Chat.ID, func(ctx context.Context) error {
				return r.handleUpdate(ctx, up)
			}); err != nil && ctx.Err() == nil {
				r.log.Error().Err(err).Int("update_id", up.UpdateID).Msg("failed to queue update")
			}
		}
	}
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return nil
	}
	chatID := msg.Chat.ID
	command := strings.ToLower(msg.Command())

	ctx = logging.WithTraceID(ctx, uuid.NewString())
	ctx = logging.WithChatID(ctx, chatID)
	ctx = logging.WithCommand(ctx, command)
	log := logging.With(ctx, r.log)

	metrics.IncTelegramCommand(command)

	if r.rateLimiter != nil {
		allowed, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(chatID, command))
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable, allowing")
		} else if !allowed {
			metrics.IncRateLimitTriggered()
			return r.reply(ctx, chatID, application.Reply{Text: r.facade.RateLimited()})
		}
	}

	handler, ok := r.commandRoutes()[command]
	if !ok {
		handler = func(ctx context.Context, chatID int64, _ []string) (application.Reply, error) {
			return r.facade.HandleUnknown(ctx, chatID)
		}
	}

	log.Debug().Msg("handling command")
	reply, err := handler(ctx, chatID, strings.Fields(msg.CommandArguments()))
	if err != nil {
		log.Error().Err(err).Msg("command failed")
	}
	if reply.Text == "" {
		return nil
	}
	return r.reply(ctx, chatID, reply)
}

func (r *RealTelegramBotAdapter) reply(ctx context.Context, chatID int64, reply application.Reply) error {
	return r.SendMessage(ctx, adapter.SendMessageParams{ChatID: chatID, Text: reply.Text, ParseMode: reply.ParseMode})
}

// SetMenuCommands publishes the command menu shown by Telegram clients.
func (r *RealTelegramBotAdapter) SetMenuCommands(ctx context.Context) error {
	menu := r.facade.MenuCommands()
	cmds := make([]tgbotapi.BotCommand, 0, len(menu))
	for _, c := range menu {
		cmds = append(cmds, tgbotapi.BotCommand{Command: c.Command, Description: c.Description})
	}
	_, err := r.bot.Request(tgbotapi.NewSetMyCommands(cmds...))
	return err
}
