// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing/fstest"

	"telegram-medkit/internal/domain/model"
	"telegram-medkit/internal/domain/ports/adapter"
	"telegram-medkit/internal/domain/ports/repository"
	"telegram-medkit/internal/infra/i18n"

	"github.com/rs/zerolog"
)

// --- Mock MedicineRepository

// memMedicineRepo keeps rows in memory and mirrors the store contract:
// a failing MutateFunc leaves the rows untouched.
type memMedicineRepo struct {
	mu     sync.Mutex
	rows   []*model.Medicine
	writes int
	err    error // returned by every call when set
}

func newMemMedicineRepo(rows ...*model.Medicine) *memMedicineRepo {
	return &memMedicineRepo{rows: rows}
}

func (m *memMedicineRepo) snapshot() []*model.Medicine {
	out := make([]*model.Medicine, 0, len(m.rows))
	for _, r := range m.rows {
		cp := *r
		cp.Symptoms = append(model.SymptomSet(nil), r.Symptoms...)
		out = append(out, &cp)
	}
	return out
}

func (m *memMedicineRepo) All(ctx context.Context) ([]*model.Medicine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshot(), nil
}

func (m *memMedicineRepo) ByGroup(ctx context.Context, groupID string) ([]*model.Medicine, error) {
	all, err := m.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []*model.Medicine
	for _, r := range all {
		if r.GroupID == groupID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memMedicineRepo) Mutate(ctx context.Context, fn repository.MutateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	out, err := fn(m.snapshot())
	if errors.Is(err, repository.ErrNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	m.rows = out
	m.writes++
	return nil
}

// --- Mock GroupRepository

type memGroupRepo struct {
	mu       sync.Mutex
	bindings []model.GroupBinding
	err      error
}

func (g *memGroupRepo) FindGroup(ctx context.Context, userID int64) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", false, g.err
	}
	for _, b := range g.bindings {
		if b.UserID == userID {
			return b.GroupID, true, nil
		}
	}
	return "", false, nil
}

func (g *memGroupRepo) SetGroup(ctx context.Context, userID int64, groupID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	for i := range g.bindings {
		if g.bindings[i].UserID == userID {
			g.bindings[i].GroupID = groupID
			return nil
		}
	}
	g.bindings = append(g.bindings, model.GroupBinding{UserID: userID, GroupID: groupID})
	return nil
}

func (g *memGroupRepo) MembersOf(ctx context.Context, groupID string) ([]int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	var out []int64
	for _, b := range g.bindings {
		if b.GroupID == groupID {
			out = append(out, b.UserID)
		}
	}
	return out, nil
}

// --- Mock TelegramBotAdapter

type mockNotifier struct {
	mu              sync.Mutex
	sent            []adapter.SendMessageParams
	SendMessageFunc func(ctx context.Context, params adapter.SendMessageParams) error
}

func (n *mockNotifier) SendMessage(ctx context.Context, params adapter.SendMessageParams) error {
	if n.SendMessageFunc != nil {
		if err := n.SendMessageFunc(ctx, params); err != nil {
			return err
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, params)
	return nil
}

// --- Helpers

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func newTestTranslator() *i18n.Translator {
	testFS := fstest.MapFS{
		"locales/ru.yaml": {
			Data: []byte("expired_header: \"⚠️ Внимание! Просрочены лекарства:\\n%s\"\nexpired_item: \"%s (годен до %s)\"\n"),
		},
	}
	translator, err := i18n.NewTranslator(testFS, "ru")
	if err != nil {
		panic(err)
	}
	return translator
}
