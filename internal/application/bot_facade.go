package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"telegram-medkit/internal/domain"
	"telegram-medkit/internal/domain/model"
	"telegram-medkit/internal/infra/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Reply is the text a command answers with.
type Reply struct {
	Text      string
	ParseMode string
}

// MenuCommand is one entry of the bot's command menu.
type MenuCommand struct {
	Command     string
	Description string
}

// BotFacade composes usecases into high-level bot commands.
// Handlers always return a reply for the chat. A non-nil error means the reply
// is the generic failure text and the error should be logged.
type BotFacade struct {
	GroupUC     GroupUseCaseIface
	InventoryUC InventoryUseCaseIface
	ExpiryUC    ExpiryUseCaseIface
	tr          Translator
}

func NewBotFacade(groupUC GroupUseCaseIface, inventoryUC InventoryUseCaseIface, expiryUC ExpiryUseCaseIface, translator Translator) *BotFacade {
	return &BotFacade{
		GroupUC:     groupUC,
		InventoryUC: inventoryUC,
		ExpiryUC:    expiryUC,
		tr:          translator,
	}
}

func (b *BotFacade) text(key string, args ...interface{}) Reply {
	return Reply{Text: b.tr.T(key, args...)}
}

func (b *BotFacade) failed(err error) (Reply, error) {
	return b.text("error_generic"), err
}

// MenuCommands lists the commands advertised through setMyCommands.
func (b *BotFacade) MenuCommands() []MenuCommand {
	cmds := []string{"group", "add", "use", "remove", "clear", "list", "find", "symptom", "check", "help"}
	out := make([]MenuCommand, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, MenuCommand{Command: c, Description: b.tr.T("menu_" + c)})
	}
	return out
}

func (b *BotFacade) HandleStart(ctx context.Context, chatID int64) (Reply, error) {
	return b.text("welcome_message"), nil
}

func (b *BotFacade) HandleHelp(ctx context.Context, chatID int64) (Reply, error) {
	return b.text("help_message"), nil
}

// RateLimited is the reply for a chat that sends commands too fast.
func (b *BotFacade) RateLimited() string {
	return b.tr.T("error_rate_limited")
}

func (b *BotFacade) HandleUnknown(ctx context.Context, chatID int64) (Reply, error) {
	return b.text("unknown_command"), nil
}

// HandleGroup binds the chat to the kit named by its single argument.
func (b *BotFacade) HandleGroup(ctx context.Context, chatID int64, args []string) (Reply, error) {
	if len(args) != 1 {
		return b.text("usage_group"), nil
	}
	binding, err := b.GroupUC.SetGroup(ctx, chatID, args[0])
	if errors.Is(err, domain.ErrInvalidArgument) {
		return b.text("usage_group"), nil
	}
	if err != nil {
		return b.failed(err)
	}
	return Reply{
		Text:      b.tr.T("group_set", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, binding.GroupID)),
		ParseMode: tgbotapi.ModeMarkdown,
	}, nil
}

// groupOf resolves the caller's kit. A non-nil reply means the handler must stop and send it.
func (b *BotFacade) groupOf(ctx context.Context, chatID int64) (string, *Reply, error) {
	groupID, err := b.GroupUC.GetGroup(ctx, chatID)
	if errors.Is(err, domain.ErrNoGroup) {
		r := b.text("error_no_group")
		return "", &r, nil
	}
	if err != nil {
		r := b.text("error_generic")
		return "", &r, err
	}
	return groupID, nil, nil
}

// HandleAdd: /add <name> <YYYY-MM-DD> <qty> <symptoms...>
func (b *BotFacade) HandleAdd(ctx context.Context, chatID int64, args []string) (Reply, error) {
	groupID, stop, err := b.groupOf(ctx, chatID)
	if stop != nil {
		return *stop, err
	}
	if len(args) < 4 {
		return b.text("usage_add"), nil
	}

	expiry, err := model.ParseDate(args[1])
	if err != nil {
		return b.text("error_add_params"), nil
	}
	qty, err := strconv.Atoi(args[2])
	if err != nil || qty <= 0 {
		return b.text("error_add_params"), nil
	}
	symptoms := model.ParseSymptomInput(strings.Join(args[3:], " "))

	if _, err := b.InventoryUC.Add(ctx, groupID, args[0], expiry, qty, symptoms); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return b.text("error_add_params"), nil
		}
		return b.failed(err)
	}
	return b.text("added", model.Capitalize(model.Fold(args[0])), qty, model.FormatDate(expiry), symptoms.String()), nil
}

// HandleUse: /use <name> <qty>
func (b *BotFacade) HandleUse(ctx context.Context, chatID int64, args []string) (Reply, error) {
	groupID, stop, err := b.groupOf(ctx, chatID)
	if stop != nil {
		return *stop, err
	}
	if len(args) < 2 {
		return b.text("usage_use"), nil
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil || qty < 0 {
		return b.text("usage_use"), nil
	}

	m, err := b.InventoryUC.Use(ctx, groupID, args[0], qty)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return b.text("error_not_found"), nil
	case errors.Is(err, domain.ErrInsufficientQuantity):
		return b.text("error_insufficient"), nil
	case errors.Is(err, domain.ErrInvalidArgument):
		return b.text("usage_use"), nil
	case err != nil:
		return b.failed(err)
	}
	return b.text("used", m.DisplayName(), qty), nil
}

// HandleRemove serves /remove and /delete.
func (b *BotFacade) HandleRemove(ctx context.Context, chatID int64, args []string) (Reply, error) {
	groupID, stop, err := b.groupOf(ctx, chatID)
	if stop != nil {
		return *stop, err
	}
	if len(args) == 0 {
		return b.text("usage_remove"), nil
	}

	err = b.InventoryUC.Remove(ctx, groupID, args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return b.text("error_not_found"), nil
	}
	if err != nil {
		return b.failed(err)
	}
	return b.text("removed", model.Capitalize(model.Fold(args[0]))), nil
}

func (b *BotFacade) HandleClear(ctx context.Context, chatID int64) (Reply, error) {
	groupID, stop, err := b.groupOf(ctx, chatID)
	if stop != nil {
		return *stop, err
	}

	_, err = b.InventoryUC.Clear(ctx, groupID)
	if errors.Is(err, domain.ErrInventoryEmpty) {
		return b.text("inventory_already_empty"), nil
	}
	if err != nil {
		return b.failed(err)
	}
	return b.text("inventory_cleared"), nil
}

func (b *BotFacade) HandleList(ctx context.Context, chatID int64) (Reply, error) {
	groupID, stop, err := b.groupOf(ctx, chatID)
	if stop != nil {
		return *stop, err
	}

	meds, err := b.InventoryUC.List(ctx, groupID)
	if err != nil {
		return b.failed(err)
	}
	if len(meds) == 0 {
		return b.text("list_empty"), nil
	}
	items := make([]string, 0, len(meds))
	for _, m := range meds {
		items = append(items, b.tr.T("list_item", m.DisplayName(), m.Quantity, m.ExpiryString(), m.Symptoms.String()))
	}
	return Reply{Text: b.tr.T("list_header") + strings.Join(items, "\n")}, nil
}

func (b *BotFacade) HandleFind(ctx context.Context, chatID int64, args []string) (Reply, error) {
	groupID, stop, err := b.groupOf(ctx, chatID)
	if stop != nil {
		return *stop, err
	}
	if len(args) == 0 {
		return b.text("usage_find"), nil
	}

	m, err := b.InventoryUC.Find(ctx, groupID, args[0])
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return b.text("error_not_found"), nil
	case errors.Is(err, domain.ErrInvalidArgument):
		return b.text("usage_find"), nil
	case err != nil:
		return b.failed(err)
	}
	return b.text("find_result", m.DisplayName(), m.Quantity, m.ExpiryString(), m.Symptoms.String()), nil
}

func (b *BotFacade) HandleSymptom(ctx context.Context, chatID int64, args []string) (Reply, error) {
	groupID, stop, err := b.groupOf(ctx, chatID)
	if stop != nil {
		return *stop, err
	}
	query := model.Fold(strings.Join(args, " "))
	if query == "" {
		return b.text("usage_symptom"), nil
	}

	meds, err := b.InventoryUC.SearchBySymptom(ctx, groupID, query)
	if err != nil {
		return b.failed(err)
	}
	if len(meds) == 0 {
		return b.text("symptom_none", query), nil
	}
	lines := make([]string, 0, len(meds))
	for _, m := range meds {
		lines = append(lines, b.tr.T("symptom_item", m.DisplayName(), m.Quantity, m.ExpiryString()))
	}
	return b.text("symptom_header", query, strings.Join(lines, "\n")), nil
}

// HandleCheck runs the expiry scan on demand. The scan covers every group.
func (b *BotFacade) HandleCheck(ctx context.Context, chatID int64) (Reply, error) {
	report, err := b.ExpiryUC.CheckAndNotify(ctx)
	if report == nil {
		metrics.IncExpiryScan("manual", "error")
		return b.failed(fmt.Errorf("expiry check: %w", err))
	}
	if err != nil {
		metrics.IncExpiryScan("manual", "partial")
		return b.text("check_done"), fmt.Errorf("expiry check: %w", err)
	}
	metrics.IncExpiryScan("manual", "ok")
	return b.text("check_done"), nil
}
