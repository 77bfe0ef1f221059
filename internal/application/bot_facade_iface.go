package application

import (
	"context"
	"time"

	"telegram-medkit/internal/domain/model"
	"telegram-medkit/internal/usecase"
)

// ---- small interfaces to decouple the facade from concrete usecase structs ----

type GroupUseCaseIface interface {
	SetGroup(ctx context.Context, userID int64, groupID string) (*model.GroupBinding, error)
	GetGroup(ctx context.Context, userID int64) (string, error)
}

type InventoryUseCaseIface interface {
	Add(ctx context.Context, groupID, name string, expiry time.Time, qty int, symptoms model.SymptomSet) (*model.Medicine, error)
	Use(ctx context.Context, groupID, name string, qty int) (*model.Medicine, error)
	Remove(ctx context.Context, groupID, name string) error
	Clear(ctx context.Context, groupID string) (int, error)
	List(ctx context.Context, groupID string) ([]*model.Medicine, error)
	Find(ctx context.Context, groupID, query string) (*model.Medicine, error)
	SearchBySymptom(ctx context.Context, groupID, query string) ([]*model.Medicine, error)
}

type ExpiryUseCaseIface interface {
	CheckAndNotify(ctx context.Context) (*usecase.ExpiryReport, error)
}

// Translator is satisfied by *i18n.Translator.
type Translator interface {
	T(key string, args ...interface{}) string
}
