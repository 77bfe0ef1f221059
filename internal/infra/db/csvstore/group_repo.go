package csvstore

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"telegram-medkit/internal/domain/model"
	"telegram-medkit/internal/domain/ports/repository"
)

var _ repository.GroupRepository = (*GroupRepo)(nil)

// GroupHeader is the column layout of the user→group mapping file.
var GroupHeader = []string{"user_id", "group_id"}

type GroupRepo struct {
	table *Table
	log   *zerolog.Logger
}

func NewGroupRepo(path string, logger *zerolog.Logger, opts ...Option) (*GroupRepo, error) {
	t, err := OpenTable(path, GroupHeader, logger, opts...)
	if err != nil {
		return nil, err
	}
	return &GroupRepo{table: t, log: t.log}, nil
}

func (r *GroupRepo) FindGroup(ctx context.Context, userID int64) (string, bool, error) {
	rows, err := r.table.Read(ctx)
	if err != nil {
		return "", false, err
	}
	key := strconv.FormatInt(userID, 10)
	for _, row := range rows {
		if row[0] == key {
			return row[1], true, nil
		}
	}
	return "", false, nil
}

func (r *GroupRepo) SetGroup(ctx context.Context, userID int64, groupID string) error {
	key := strconv.FormatInt(userID, 10)
	return r.table.Update(ctx, func(rows [][]string) ([][]string, error) {
		for _, row := range rows {
			if row[0] == key {
				if row[1] == groupID {
					return nil, repository.ErrNoChange
				}
				row[1] = groupID
				return rows, nil
			}
		}
		return append(rows, []string{key, groupID}), nil
	})
}

func (r *GroupRepo) MembersOf(ctx context.Context, groupID string) ([]int64, error) {
	rows, err := r.table.Read(ctx)
	if err != nil {
		return nil, err
	}
	var out []int64
	for i, row := range rows {
		if row[1] != groupID {
			continue
		}
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			r.log.Warn().Err(err).Int("line", i+2).Msg("skipping binding with a malformed user id")
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// Bindings returns every well-formed binding in file order.
func (r *GroupRepo) Bindings(ctx context.Context) ([]model.GroupBinding, error) {
	rows, err := r.table.Read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.GroupBinding, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			r.log.Warn().Err(err).Int("line", i+2).Msg("skipping binding with a malformed user id")
			continue
		}
		out = append(out, model.GroupBinding{UserID: id, GroupID: row[1]})
	}
	return out, nil
}

func (r *GroupRepo) Ping(ctx context.Context) error { return r.table.Ping(ctx) }
