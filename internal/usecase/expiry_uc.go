package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"telegram-medkit/internal/domain/model"
	"telegram-medkit/internal/domain/ports/adapter"
	"telegram-medkit/internal/domain/ports/repository"
	"telegram-medkit/internal/infra/i18n"
	"telegram-medkit/internal/infra/logging"
	"telegram-medkit/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ExpiryUseCase = (*expiryUC)(nil)

// ExpiryReport summarises one scan.
type ExpiryReport struct {
	Today   time.Time
	Expired int // expired in-stock entries
	Groups  int // groups with at least one expired entry
	Sent    int
	Failed  int
}

// ExpiryUseCase finds expired, in-stock medicines and warns every member of the owning group.
type ExpiryUseCase interface {
	CheckAndNotify(ctx context.Context) (*ExpiryReport, error)
}

type expiryUC struct {
	meds     repository.MedicineRepository
	groups   repository.GroupRepository
	notifier adapter.TelegramBotAdapter
	tr       *i18n.Translator
	loc      *time.Location
	now      func() time.Time
	log      *zerolog.Logger
}

func NewExpiryUseCase(
	meds repository.MedicineRepository,
	groups repository.GroupRepository,
	notifier adapter.TelegramBotAdapter,
	translator *i18n.Translator,
	loc *time.Location,
	logger *zerolog.Logger,
) *expiryUC {
	if loc == nil {
		loc = time.Local
	}
	return &expiryUC{
		meds:     meds,
		groups:   groups,
		notifier: notifier,
		tr:       translator,
		loc:      loc,
		now:      time.Now,
		log:      logger,
	}
}

// WithClock replaces the wall clock; used by tests and the ops CLI.
func (e *expiryUC) WithClock(now func() time.Time) *expiryUC {
	e.now = now
	return e
}

func (e *expiryUC) CheckAndNotify(ctx context.Context) (*ExpiryReport, error) {
	defer logging.TraceDuration(e.log, "ExpiryUC.CheckAndNotify")()

	today := model.DateOf(e.now().In(e.loc))
	all, err := e.meds.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load medicines: %w", err)
	}

	byGroup, order := ExpiredByGroup(all, today)
	report := &ExpiryReport{Today: today, Groups: len(order)}
	for _, g := range order {
		report.Expired += len(byGroup[g])
	}
	metrics.SetExpiredFound(report.Expired)

	var errs []error
	for _, groupID := range order {
		members, err := e.groups.MembersOf(ctx, groupID)
		if err != nil {
			e.log.Error().Err(err).Str("group_id", groupID).Msg("failed to resolve group members")
			errs = append(errs, fmt.Errorf("members of %s: %w", groupID, err))
			continue
		}
		text := e.message(byGroup[groupID])
		for _, chatID := range members {
			if err := e.notifier.SendMessage(ctx, adapter.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
				report.Failed++
				metrics.IncExpiryNotification("failed")
				e.log.Warn().Err(err).Int64("chat_id", chatID).Str("group_id", groupID).Msg("expiry notification not delivered")
				continue
			}
			report.Sent++
			metrics.IncExpiryNotification("sent")
		}
	}

	e.log.Info().
		Str("today", model.FormatDate(today)).
		Int("expired", report.Expired).
		Int("groups", report.Groups).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Msg("expiry scan finished")
	return report, errors.Join(errs...)
}

func (e *expiryUC) message(meds []*model.Medicine) string {
	lines := make([]string, 0, len(meds))
	for _, m := range meds {
		lines = append(lines, e.tr.T("expired_item", m.DisplayName(), m.ExpiryString()))
	}
	return e.tr.T("expired_header", strings.Join(lines, "\n"))
}

// ExpiredByGroup buckets the expired in-stock rows by group. order lists the
// groups by first appearance in rows.
func ExpiredByGroup(rows []*model.Medicine, today time.Time) (byGroup map[string][]*model.Medicine, order []string) {
	byGroup = make(map[string][]*model.Medicine)
	for _, m := range rows {
		if !m.IsExpired(today) {
			continue
		}
		if _, seen := byGroup[m.GroupID]; !seen {
			order = append(order, m.GroupID)
		}
		byGroup[m.GroupID] = append(byGroup[m.GroupID], m)
	}
	return byGroup, order
}
