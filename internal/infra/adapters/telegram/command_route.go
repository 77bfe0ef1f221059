package telegram

import (
	"context"

	"telegram-medkit/internal/application"
)

type commandHandler func(ctx context.Context, chatID int64, args []string) (application.Reply, error)

// commandRoutes defines all available bot commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	f := r.facade
	return map[string]commandHandler{
		"start":   r.handleStartCommand,
		"help":    noArgs(f.HandleHelp),
		"group":   f.HandleGroup,
		"add":     f.HandleAdd,
		"use":     f.HandleUse,
		"remove":  f.HandleRemove,
		"delete":  f.HandleRemove,
		"clear":   noArgs(f.HandleClear),
		"list":    noArgs(f.HandleList),
		"find":    f.HandleFind,
		"symptom": f.HandleSymptom,
		"check":   noArgs(f.HandleCheck),
	}
}

func noArgs(h func(ctx context.Context, chatID int64) (application.Reply, error)) commandHandler {
	return func(ctx context.Context, chatID int64, _ []string) (application.Reply, error) {
		return h(ctx, chatID)
	}
}

// handleStartCommand greets the user and refreshes the command menu.
func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, chatID int64, _ []string) (application.Reply, error) {
	if err := r.SetMenuCommands(ctx); err != nil {
		// Log the error but don't block the user
		r.log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to set menu commands")
	}
	return r.facade.HandleStart(ctx, chatID)
}
