//go:build !integration

package telegram

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-medkit/internal/application"
	"telegram-medkit/internal/domain/ports/adapter"
	"telegram-medkit/internal/infra/db/csvstore"
	"telegram-medkit/internal/infra/i18n"
	"telegram-medkit/internal/infra/worker"
	"telegram-medkit/internal/usecase"
)

// --- fakes

type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	sendErr  error
	stopped  bool
}

func newFakeBot() *fakeBot {
	return &fakeBot{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return f.updates }

func (f *fakeBot) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeBot) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Text)
	}
	return out
}

type fakeLimiter struct {
	AllowFunc func(ctx context.Context, key string) (bool, error)
}

func (l *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.AllowFunc(ctx, key)
}

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func commandUpdate(chatID int64, text string) tgbotapi.Update {
	cmdLen := strings.IndexByte(text, ' ')
	if cmdLen < 0 {
		cmdLen = len(text)
	}
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat:     &tgbotapi.Chat{ID: chatID},
			Text:     text,
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
		},
	}
}

func newTestAdapter(t *testing.T, bot *fakeBot, limiter RateLimiter) *RealTelegramBotAdapter {
	t.Helper()
	dir := t.TempDir()
	log := newTestLogger()
	meds, err := csvstore.NewMedicineRepo(filepath.Join(dir, "medicines.csv"), log)
	if err != nil {
		t.Fatal(err)
	}
	groups, err := csvstore.NewGroupRepo(filepath.Join(dir, "groups.csv"), log)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "ru")
	if err != nil {
		t.Fatal(err)
	}
	sender := NewSender(bot)
	facade := application.NewBotFacade(
		usecase.NewGroupUseCase(groups, log),
		usecase.NewInventoryUseCase(meds, log),
		usecase.NewExpiryUseCase(meds, groups, sender, tr, time.UTC, log),
		tr,
	)
	a, err := NewRealTelegramBotAdapter(bot, facade, limiter, worker.NewPool(2, 4, log), log)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

// --- tests

func TestHandleUpdate_Commands(t *testing.T) {
	ctx := context.Background()
	bot := newFakeBot()
	a := newTestAdapter(t, bot, nil)

	steps := []struct {
		text string
		want string
	}{
		{"/list", "Сначала установите аптечку через /group <имя>"},
		{"/group fam_1", "Теперь вы используете аптечку группы: *fam\\_1*"},
		{"/add Aspirin 2099-01-01 10 fever headache", "Добавлено: Aspirin — 10 шт., годен до 2099-01-01\nСимптомы: fever; headache"},
		{"/use aspirin 15", "Недостаточно лекарства."},
		{"/delete aspirin", "Удалено: Aspirin"},
		{"/frobnicate", "Неизвестная команда. Список команд: /help"},
	}
	for _, s := range steps {
		if err := a.handleUpdate(ctx, commandUpdate(42, s.text)); err != nil {
			t.Fatalf("%s: %v", s.text, err)
		}
	}

	got := bot.texts()
	if len(got) != len(steps) {
		t.Fatalf("expected %d replies, got %d: %q", len(steps), len(got), got)
	}
	for i, s := range steps {
		if got[i] != s.want {
			t.Errorf("%s:\nwant %q\ngot  %q", s.text, s.want, got[i])
		}
	}
	if bot.sent[1].ParseMode != tgbotapi.ModeMarkdown {
		t.Errorf("/group reply must use Markdown")
	}
}

func TestHandleUpdate_IgnoresPlainText(t *testing.T) {
	bot := newFakeBot()
	a := newTestAdapter(t, bot, nil)

	up := tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}, Text: "hello"}}
	if err := a.handleUpdate(context.Background(), up); err != nil {
		t.Fatal(err)
	}
	if len(bot.texts()) != 0 {
		t.Errorf("plain text must not be answered")
	}
}

func TestHandleUpdate_RateLimited(t *testing.T) {
	bot := newFakeBot()
	var gotKey string
	limiter := &fakeLimiter{AllowFunc: func(ctx context.Context, key string) (bool, error) {
		gotKey = key
		return false, nil
	}}
	a := newTestAdapter(t, bot, limiter)

	if err := a.handleUpdate(context.Background(), commandUpdate(7, "/list")); err != nil {
		t.Fatal(err)
	}
	if gotKey != "rate_limit:7:list" {
		t.Errorf("unexpected limiter key %q", gotKey)
	}
	if got := bot.texts(); len(got) != 1 || got[0] != "Слишком много запросов. Попробуйте через минуту." {
		t.Errorf("unexpected replies %q", got)
	}
}

func TestHandleUpdate_LimiterFailureAllows(t *testing.T) {
	bot := newFakeBot()
	limiter := &fakeLimiter{AllowFunc: func(ctx context.Context, key string) (bool, error) {
		return false, errors.New("redis down")
	}}
	a := newTestAdapter(t, bot, limiter)

	if err := a.handleUpdate(context.Background(), commandUpdate(7, "/help")); err != nil {
		t.Fatal(err)
	}
	if got := bot.texts(); len(got) != 1 || !strings.HasPrefix(got[0], "Команды:") {
		t.Errorf("unexpected replies %q", got)
	}
}

func TestHandleUpdate_StartSetsMenu(t *testing.T) {
	bot := newFakeBot()
	a := newTestAdapter(t, bot, nil)

	if err := a.handleUpdate(context.Background(), commandUpdate(7, "/start")); err != nil {
		t.Fatal(err)
	}
	if len(bot.requests) != 1 {
		t.Fatalf("expected one setMyCommands request, got %d", len(bot.requests))
	}
	cfg, ok := bot.requests[0].(tgbotapi.SetMyCommandsConfig)
	if !ok {
		t.Fatalf("unexpected request %T", bot.requests[0])
	}
	if len(cfg.Commands) != len(a.facade.MenuCommands()) {
		t.Errorf("menu has %d commands", len(cfg.Commands))
	}
}

func TestStartPolling_KeepsChatOrder(t *testing.T) {
	bot := newFakeBot()
	a := newTestAdapter(t, bot, nil)

	ctx, cancel := context.WithCancel(context.Background())
	a.pool.Start(ctx)
	defer a.pool.Stop()

	done := make(chan error, 1)
	go func() { done <- a.StartPolling(ctx) }()

	bot.updates <- commandUpdate(5, "/group fam1")
	bot.updates <- commandUpdate(5, "/add aspirin 2099-01-01 3 fever")
	bot.updates <- commandUpdate(5, "/use aspirin 1")
	bot.updates <- commandUpdate(5, "/find asp")

	deadline := time.Now().Add(3 * time.Second)
	for len(bot.texts()) < 4 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	got := bot.texts()
	if len(got) != 4 {
		t.Fatalf("expected 4 replies, got %q", got)
	}
	if got[3] != "Лекарство: Aspirin\nКоличество: 2 шт.\nГоден до: 2099-01-01\nСимптомы: fever" {
		t.Errorf("commands of one chat ran out of order: %q", got)
	}
	if !bot.stopped {
		t.Errorf("polling must stop receiving updates on exit")
	}
}

func TestSender(t *testing.T) {
	t.Run("splits long text on line breaks", func(t *testing.T) {
		line := strings.Repeat("я", 100)
		var lines []string
		for i := 0; i < 60; i++ {
			lines = append(lines, line)
		}
		parts := splitText(strings.Join(lines, "\n"), maxMessageRunes)
		if len(parts) != 2 {
			t.Fatalf("expected 2 parts, got %d", len(parts))
		}
		if strings.Count(parts[0], "\n")+strings.Count(parts[1], "\n")+1 != 59 {
			t.Errorf("line breaks between parts must be dropped, not duplicated")
		}
	})

	t.Run("cuts a single oversized line", func(t *testing.T) {
		parts := splitText(strings.Repeat("a", 10), 4)
		if len(parts) != 3 || parts[0] != "aaaa" || parts[2] != "aa" {
			t.Errorf("unexpected parts %q", parts)
		}
	})

	t.Run("wraps send errors", func(t *testing.T) {
		bot := newFakeBot()
		bot.sendErr = errors.New("Forbidden: bot was blocked by the user")
		err := NewSender(bot).SendMessage(context.Background(), adapter.SendMessageParams{ChatID: 9, Text: "hi"})
		if !errors.Is(err, bot.sendErr) {
			t.Fatalf("expected wrapped error, got %v", err)
		}
	})
}
