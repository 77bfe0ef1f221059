package csvstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"telegram-medkit/internal/domain/model"
	"telegram-medkit/internal/domain/ports/repository"
)

var _ repository.MedicineRepository = (*MedicineRepo)(nil)

// MedicineHeader is the column layout of the medicines file.
var MedicineHeader = []string{"group_id", "name", "expiry_date", "quantity", "symptom"}

type MedicineRepo struct {
	table *Table
}

func NewMedicineRepo(path string, logger *zerolog.Logger, opts ...Option) (*MedicineRepo, error) {
	t, err := OpenTable(path, MedicineHeader, logger, opts...)
	if err != nil {
		return nil, err
	}
	return &MedicineRepo{table: t}, nil
}

func (r *MedicineRepo) All(ctx context.Context) ([]*model.Medicine, error) {
	rows, err := r.table.Read(ctx)
	if err != nil {
		return nil, err
	}
	return decodeMedicines(rows)
}

func (r *MedicineRepo) ByGroup(ctx context.Context, groupID string) ([]*model.Medicine, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Medicine, 0, len(all))
	for _, m := range all {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MedicineRepo) Mutate(ctx context.Context, fn repository.MutateFunc) error {
	return r.table.Update(ctx, func(rows [][]string) ([][]string, error) {
		meds, err := decodeMedicines(rows)
		if err != nil {
			return nil, err
		}
		out, err := fn(meds)
		if err != nil {
			return nil, err
		}
		return encodeMedicines(out), nil
	})
}

func (r *MedicineRepo) Ping(ctx context.Context) error { return r.table.Ping(ctx) }

func decodeMedicines(rows [][]string) ([]*model.Medicine, error) {
	out := make([]*model.Medicine, 0, len(rows))
	for i, row := range rows {
		m, err := decodeMedicine(row)
		if err != nil {
			// +2: one for the header, one for 1-based lines
			return nil, fmt.Errorf("medicines line %d: %w", i+2, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func decodeMedicine(row []string) (*model.Medicine, error) {
	qty, err := strconv.Atoi(row[3])
	if err != nil {
		return nil, fmt.Errorf("quantity %q: %w", row[3], err)
	}
	expiry, err := model.ParseStoredDate(row[2])
	if err != nil {
		return nil, err
	}
	return &model.Medicine{
		GroupID:  row[0],
		Name:     model.Fold(row[1]),
		Expiry:   expiry,
		Quantity: qty,
		Symptoms: model.ParseStoredSymptoms(row[4]),
	}, nil
}

func encodeMedicines(meds []*model.Medicine) [][]string {
	rows := make([][]string, 0, len(meds))
	for _, m := range meds {
		rows = append(rows, []string{
			m.GroupID,
			m.Name,
			m.ExpiryString(),
			strconv.Itoa(m.Quantity),
			m.Symptoms.String(),
		})
	}
	return rows
}
