package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"telegram-medkit/internal/domain"
	"telegram-medkit/internal/domain/model"
	"telegram-medkit/internal/domain/ports/repository"
	"telegram-medkit/internal/infra/logging"
	"telegram-medkit/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ InventoryUseCase = (*inventoryUC)(nil)

// InventoryUseCase is the per-group medicine kit.
type InventoryUseCase interface {
	// Add merges into an existing (group, name) entry or appends a new one and
	// returns the stored entry.
	Add(ctx context.Context, groupID, name string, expiry time.Time, qty int, symptoms model.SymptomSet) (*model.Medicine, error)
	// Use returns domain.ErrNotFound or domain.ErrInsufficientQuantity without writing.
	Use(ctx context.Context, groupID, name string, qty int) (*model.Medicine, error)
	// Remove deletes the entry whatever its quantity; domain.ErrNotFound when absent.
	Remove(ctx context.Context, groupID, name string) error
	// Clear returns the number of deleted rows or domain.ErrInventoryEmpty.
	Clear(ctx context.Context, groupID string) (int, error)
	List(ctx context.Context, groupID string) ([]*model.Medicine, error)
	// Find returns the first entry whose name contains query.
	Find(ctx context.Context, groupID, query string) (*model.Medicine, error)
	// SearchBySymptom returns in-stock entries with a symptom token containing query.
	SearchBySymptom(ctx context.Context, groupID, query string) ([]*model.Medicine, error)
}

type inventoryUC struct {
	meds repository.MedicineRepository
	log  *zerolog.Logger
}

func NewInventoryUseCase(meds repository.MedicineRepository, logger *zerolog.Logger) *inventoryUC {
	return &inventoryUC{meds: meds, log: logger}
}

func (u *inventoryUC) Add(ctx context.Context, groupID, name string, expiry time.Time, qty int, symptoms model.SymptomSet) (*model.Medicine, error) {
	defer logging.TraceDuration(u.log, "InventoryUC.Add")()

	incoming, err := model.NewMedicine(groupID, name, expiry, qty, symptoms)
	if err != nil {
		metrics.IncInventoryOperation("add", "invalid")
		return nil, err
	}

	var stored model.Medicine
	err = u.meds.Mutate(ctx, func(rows []*model.Medicine) ([]*model.Medicine, error) {
		for _, m := range rows {
			if m.Is(incoming.GroupID, incoming.Name) {
				m.Merge(incoming.Quantity, incoming.Expiry, incoming.Symptoms)
				stored = *m
				return rows, nil
			}
		}
		stored = *incoming
		return append(rows, incoming), nil
	})
	if err != nil {
		metrics.IncInventoryOperation("add", "error")
		return nil, fmt.Errorf("add medicine: %w", err)
	}

	metrics.IncInventoryOperation("add", "ok")
	logging.With(ctx, u.log).Info().
		Str("group_id", groupID).
		Str("name", stored.Name).
		Int("quantity", stored.Quantity).
		Msg("medicine added")
	return &stored, nil
}

func (u *inventoryUC) Use(ctx context.Context, groupID, name string, qty int) (*model.Medicine, error) {
	defer logging.TraceDuration(u.log, "InventoryUC.Use")()

	if qty < 0 {
		metrics.IncInventoryOperation("use", "invalid")
		return nil, fmt.Errorf("quantity must not be negative: %w", domain.ErrInvalidArgument)
	}
	name = model.Fold(name)

	var stored model.Medicine
	err := u.meds.Mutate(ctx, func(rows []*model.Medicine) ([]*model.Medicine, error) {
		for _, m := range rows {
			if !m.Is(groupID, name) {
				continue
			}
			if err := m.Consume(qty); err != nil {
				return nil, err
			}
			stored = *m
			if qty == 0 {
				return nil, repository.ErrNoChange
			}
			return rows, nil
		}
		return nil, domain.ErrNotFound
	})
	if err != nil {
		metrics.IncInventoryOperation("use", resultOf(err))
		if isDomainErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("use medicine: %w", err)
	}

	metrics.IncInventoryOperation("use", "ok")
	return &stored, nil
}

func (u *inventoryUC) Remove(ctx context.Context, groupID, name string) error {
	defer logging.TraceDuration(u.log, "InventoryUC.Remove")()

	name = model.Fold(name)
	err := u.meds.Mutate(ctx, func(rows []*model.Medicine) ([]*model.Medicine, error) {
		kept := rows[:0:0]
		for _, m := range rows {
			if !m.Is(groupID, name) {
				kept = append(kept, m)
			}
		}
		if len(kept) == len(rows) {
			return nil, domain.ErrNotFound
		}
		return kept, nil
	})
	if err != nil {
		metrics.IncInventoryOperation("remove", resultOf(err))
		if isDomainErr(err) {
			return err
		}
		return fmt.Errorf("remove medicine: %w", err)
	}
	metrics.IncInventoryOperation("remove", "ok")
	return nil
}

func (u *inventoryUC) Clear(ctx context.Context, groupID string) (int, error) {
	defer logging.TraceDuration(u.log, "InventoryUC.Clear")()

	removed := 0
	err := u.meds.Mutate(ctx, func(rows []*model.Medicine) ([]*model.Medicine, error) {
		kept := rows[:0:0]
		for _, m := range rows {
			if m.GroupID == groupID {
				removed++
				continue
			}
			kept = append(kept, m)
		}
		if removed == 0 {
			return nil, domain.ErrInventoryEmpty
		}
		return kept, nil
	})
	if err != nil {
		metrics.IncInventoryOperation("clear", resultOf(err))
		if isDomainErr(err) {
			return 0, err
		}
		return 0, fmt.Errorf("clear inventory: %w", err)
	}

	metrics.IncInventoryOperation("clear", "ok")
	logging.With(ctx, u.log).Info().Str("group_id", groupID).Int("removed", removed).Msg("inventory cleared")
	return removed, nil
}

func (u *inventoryUC) List(ctx context.Context, groupID string) ([]*model.Medicine, error) {
	defer logging.TraceDuration(u.log, "InventoryUC.List")()

	meds, err := u.meds.ByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return meds, nil
}

func (u *inventoryUC) Find(ctx context.Context, groupID, query string) (*model.Medicine, error) {
	defer logging.TraceDuration(u.log, "InventoryUC.Find")()

	query = model.Fold(query)
	if query == "" {
		return nil, domain.ErrInvalidArgument
	}
	meds, err := u.meds.ByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("find medicine: %w", err)
	}
	for _, m := range meds {
		if strings.Contains(m.Name, query) {
			return m, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (u *inventoryUC) SearchBySymptom(ctx context.Context, groupID, query string) ([]*model.Medicine, error) {
	defer logging.TraceDuration(u.log, "InventoryUC.SearchBySymptom")()

	meds, err := u.meds.ByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("search by symptom: %w", err)
	}
	var out []*model.Medicine
	for _, m := range meds {
		if m.InStock() && m.Symptoms.Matches(query) {
			out = append(out, m)
		}
	}
	return out, nil
}

func isDomainErr(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInsufficientQuantity) ||
		errors.Is(err, domain.ErrInventoryEmpty) ||
		errors.Is(err, domain.ErrInvalidArgument)
}

// resultOf maps an error to the "result" label of inventory metrics.
func resultOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientQuantity):
		return "insufficient"
	case errors.Is(err, domain.ErrInventoryEmpty):
		return "empty"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid"
	default:
		return "error"
	}
}
