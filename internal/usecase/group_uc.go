package usecase

import (
	"context"
	"fmt"

	"telegram-medkit/internal/domain"
	"telegram-medkit/internal/domain/model"
	"telegram-medkit/internal/domain/ports/repository"
	"telegram-medkit/internal/infra/logging"
	"telegram-medkit/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ GroupUseCase = (*groupUC)(nil)

// GroupUseCase binds chats to shared kits.
type GroupUseCase interface {
	SetGroup(ctx context.Context, userID int64, groupID string) (*model.GroupBinding, error)
	// GetGroup returns domain.ErrNoGroup when userID has never chosen a kit.
	GetGroup(ctx context.Context, userID int64) (string, error)
	MembersOf(ctx context.Context, groupID string) ([]int64, error)
}

type groupUC struct {
	groups repository.GroupRepository
	log    *zerolog.Logger
}

func NewGroupUseCase(groups repository.GroupRepository, logger *zerolog.Logger) *groupUC {
	return &groupUC{groups: groups, log: logger}
}

func (g *groupUC) SetGroup(ctx context.Context, userID int64, groupID string) (*model.GroupBinding, error) {
	defer logging.TraceDuration(g.log, "GroupUC.SetGroup")()

	b, err := model.NewGroupBinding(userID, groupID)
	if err != nil {
		return nil, err
	}
	if err := g.groups.SetGroup(ctx, b.UserID, b.GroupID); err != nil {
		return nil, fmt.Errorf("set group: %w", err)
	}
	metrics.IncGroupBinding()
	logging.With(ctx, g.log).Info().Str("group_id", b.GroupID).Msg("group bound")
	return b, nil
}

func (g *groupUC) GetGroup(ctx context.Context, userID int64) (string, error) {
	groupID, ok, err := g.groups.FindGroup(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("find group: %w", err)
	}
	if !ok {
		return "", domain.ErrNoGroup
	}
	return groupID, nil
}

func (g *groupUC) MembersOf(ctx context.Context, groupID string) ([]int64, error) {
	return g.groups.MembersOf(ctx, groupID)
}
