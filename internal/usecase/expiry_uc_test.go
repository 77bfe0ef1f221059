//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-medkit/internal/domain/model"
	"telegram-medkit/internal/domain/ports/adapter"
	"telegram-medkit/internal/usecase"
)

func TestExpiryUseCase_CheckAndNotify(t *testing.T) {
	ctx := context.Background()
	moscow := time.FixedZone("MSK", 3*60*60)
	// 22:30 UTC on the 14th is already the 15th in Moscow.
	clock := func() time.Time { return time.Date(2024, 3, 14, 22, 30, 0, 0, time.UTC) }

	newFixture := func(t *testing.T) (*memMedicineRepo, *memGroupRepo, *mockNotifier) {
		meds := newMemMedicineRepo(
			med(t, "fam1", "aspirin", "2024-03-14", 3, ""),
			med(t, "fam2", "nurofen", "2024-01-01", 1, ""),
			med(t, "fam1", "citramon", "2024-03-15", 2, ""), // expires today: not yet expired
			med(t, "fam1", "ibuprofen", "2023-12-31", 0, ""), // out of stock
			med(t, "fam1", "paracetamol", "2024-02-01", 5, ""),
		)
		groups := &memGroupRepo{bindings: []model.GroupBinding{
			{UserID: 10, GroupID: "fam1"},
			{UserID: 20, GroupID: "fam2"},
			{UserID: 11, GroupID: "fam1"},
		}}
		return meds, groups, &mockNotifier{}
	}

	t.Run("should send one aggregated message per member", func(t *testing.T) {
		// --- Arrange ---
		meds, groups, notifier := newFixture(t)
		uc := usecase.NewExpiryUseCase(meds, groups, notifier, newTestTranslator(), moscow, newTestLogger()).WithClock(clock)

		// --- Act ---
		report, err := uc.CheckAndNotify(ctx)

		// --- Assert ---
		if err != nil {
			t.Fatalf("CheckAndNotify failed: %v", err)
		}
		if report.Expired != 3 || report.Groups != 2 || report.Sent != 3 || report.Failed != 0 {
			t.Errorf("unexpected report %+v", report)
		}
		if got := model.FormatDate(report.Today); got != "2024-03-15" {
			t.Errorf("today must follow the configured zone, got %s", got)
		}

		wantFam1 := "⚠️ Внимание! Просрочены лекарства:\nAspirin (годен до 2024-03-14)\nParacetamol (годен до 2024-02-01)"
		wantFam2 := "⚠️ Внимание! Просрочены лекарства:\nNurofen (годен до 2024-01-01)"
		want := []adapter.SendMessageParams{
			{ChatID: 10, Text: wantFam1},
			{ChatID: 11, Text: wantFam1},
			{ChatID: 20, Text: wantFam2},
		}
		if len(notifier.sent) != len(want) {
			t.Fatalf("expected %d messages, got %d", len(want), len(notifier.sent))
		}
		for i := range want {
			if notifier.sent[i] != want[i] {
				t.Errorf("message %d:\nwant %+v\ngot  %+v", i, want[i], notifier.sent[i])
			}
		}
	})

	t.Run("delivery failures are counted, not returned", func(t *testing.T) {
		meds, groups, notifier := newFixture(t)
		notifier.SendMessageFunc = func(ctx context.Context, p adapter.SendMessageParams) error {
			if p.ChatID == 10 {
				return errors.New("bot was blocked by the user")
			}
			return nil
		}
		uc := usecase.NewExpiryUseCase(meds, groups, notifier, newTestTranslator(), moscow, newTestLogger()).WithClock(clock)

		report, err := uc.CheckAndNotify(ctx)
		if err != nil {
			t.Fatalf("CheckAndNotify failed: %v", err)
		}
		if report.Sent != 2 || report.Failed != 1 {
			t.Errorf("unexpected report %+v", report)
		}
	})

	t.Run("nothing expired sends nothing", func(t *testing.T) {
		meds := newMemMedicineRepo(med(t, "fam1", "aspirin", "2099-01-01", 3, ""))
		notifier := &mockNotifier{}
		uc := usecase.NewExpiryUseCase(meds, &memGroupRepo{}, notifier, newTestTranslator(), moscow, newTestLogger()).WithClock(clock)

		report, err := uc.CheckAndNotify(ctx)
		if err != nil {
			t.Fatalf("CheckAndNotify failed: %v", err)
		}
		if report.Expired != 0 || len(notifier.sent) != 0 {
			t.Errorf("expected a quiet scan, got %+v", report)
		}
	})

	t.Run("store failure aborts the scan", func(t *testing.T) {
		meds := newMemMedicineRepo()
		meds.err = errors.New("read error")
		uc := usecase.NewExpiryUseCase(meds, &memGroupRepo{}, &mockNotifier{}, newTestTranslator(), moscow, newTestLogger())

		if _, err := uc.CheckAndNotify(ctx); err == nil {
			t.Fatal("expected an error")
		}
	})
}
