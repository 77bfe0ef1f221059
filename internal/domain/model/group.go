package model

import (
	"strings"

	"telegram-medkit/internal/domain"
)

// GroupBinding ties a Telegram chat to the medicine kit (group) it works with.
type GroupBinding struct {
	UserID  int64
	GroupID string
}

func NewGroupBinding(userID int64, groupID string) (*GroupBinding, error) {
	groupID = strings.TrimSpace(groupID)
	if userID == 0 || groupID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &GroupBinding{UserID: userID, GroupID: groupID}, nil
}
