package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-medkit/internal/domain/ports/repository"
)

const defaultLockTTL = 10 * time.Second

// Table is one CSV file with a fixed header. Every write replaces the whole file
// through a temp file and rename, so readers never observe a partial rewrite.
type Table struct {
	path   string
	header []string
	log    *zerolog.Logger

	mu      sync.RWMutex
	locker  repository.Locker
	lockKey string
	lockTTL time.Duration
}

type Option func(*Table)

// WithLocker serialises writers across processes in addition to the in-process mutex.
func WithLocker(l repository.Locker, ttl time.Duration) Option {
	return func(t *Table) {
		t.locker = l
		if ttl > 0 {
			t.lockTTL = ttl
		}
	}
}

// OpenTable makes sure the file exists (writing just the header when it does not).
func OpenTable(path string, header []string, logger *zerolog.Logger, opts ...Option) (*Table, error) {
	if path == "" {
		return nil, errors.New("csv path is empty")
	}
	tblLog := logger.With().Str("component", "csvstore").Str("file", filepath.Base(path)).Logger()
	t := &Table{
		path:    path,
		header:  header,
		log:     &tblLog,
		lockKey: "medkit:lock:" + filepath.Base(path),
		lockTTL: defaultLockTTL,
	}
	for _, o := range opts {
		o(t)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir for %s: %w", path, err)
		}
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := t.write(nil); err != nil {
			return nil, fmt.Errorf("init %s: %w", path, err)
		}
		t.log.Info().Msg("created empty table")
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return t, nil
}

func (t *Table) Path() string { return t.path }

// Read returns the data rows, each reordered to match the table header.
func (t *Table) Read(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.read()
}

// Update performs one serialised read-modify-write. fn returning
// repository.ErrNoChange skips the write.
func (t *Table) Update(ctx context.Context, fn func(rows [][]string) ([][]string, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.locker != nil {
		token, err := t.locker.TryLock(ctx, t.lockKey, t.lockTTL)
		if err != nil {
			return fmt.Errorf("lock %s: %w", t.lockKey, err)
		}
		defer func() {
			if err := t.locker.Unlock(context.WithoutCancel(ctx), t.lockKey, token); err != nil {
				t.log.Warn().Err(err).Msg("failed to release store lock")
			}
		}()
	}

	rows, err := t.read()
	if err != nil {
		return err
	}
	out, err := fn(rows)
	if errors.Is(err, repository.ErrNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	return t.write(out)
}

// Ping checks that the file is still there and readable.
func (t *Table) Ping(ctx context.Context) error {
	_, err := t.Read(ctx)
	return err
}

func (t *Table) read() ([][]string, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", t.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", t.path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	index, hasHeader := t.columnIndex(records[0])
	if hasHeader {
		records = records[1:]
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(t.header))
		for col, pos := range index {
			if pos >= 0 && pos < len(rec) {
				row[col] = strings.TrimSpace(rec[pos])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// columnIndex maps header columns to positions in the file. Files without a
// recognisable header row are read positionally.
func (t *Table) columnIndex(first []string) ([]int, bool) {
	pos := make(map[string]int, len(first))
	for i, name := range first {
		pos[strings.ToLower(strings.TrimSpace(name))] = i
	}
	index := make([]int, len(t.header))
	matched := 0
	for col, name := range t.header {
		if p, ok := pos[name]; ok {
			index[col] = p
			matched++
		} else {
			index[col] = -1 // missing column reads as ""
		}
	}
	if matched == 0 {
		for col := range index {
			index[col] = col
		}
		return index, false
	}
	return index, true
}

func (t *Table) write(rows [][]string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(t.path), filepath.Base(t.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", t.path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err = w.Write(t.header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err = w.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err = os.Rename(tmp.Name(), t.path); err != nil {
		return fmt.Errorf("replace %s: %w", t.path, err)
	}
	t.log.Debug().Int("rows", len(rows)).Msg("table rewritten")
	return nil
}
