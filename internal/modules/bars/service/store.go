package service

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"momentum_bot/internal/models"
)

const (
	fileExt     = ".json"
	indexPrefix = "index_"
)

// Store - дневные свечи по файлу на символ: <dir>/<symbol>.json, старые первыми.
// Индексы лежат рядом как index_<code>.json.
type Store struct {
	dir string

	mu    sync.RWMutex
	cache map[string][]models.Bar
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, cache: make(map[string][]models.Bar)}
}

// Bars returns bars with dates in [start, end] by calendar day.
func (s *Store) Bars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := s.load(symbol)
	if err != nil {
		return nil, err
	}

	from, to := models.DayKey(start), models.DayKey(end)
	out := make([]models.Bar, 0, len(all))
	for _, b := range all {
		k := models.DayKey(b.Date.In(start.Location()))
		if k < from || k > to {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// DailySeries отдаёт закрытия индекса за период.
func (s *Store) DailySeries(ctx context.Context, indexCode string, start, end time.Time) ([]float64, error) {
	bars, err := s.Bars(ctx, indexPrefix+indexCode, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(bars))
	for _, b := range bars {
		out = append(out, float64(b.Close))
	}
	return out, nil
}

// Save merges bars into the symbol file, newer data wins on the same day.
func (s *Store) Save(symbol string, bars []models.Bar) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrapf(err, "Store.Save %s", symbol)
		}
	}()

	existing, err := s.load(symbol)
	if err != nil {
		return err
	}

	byDay := make(map[string]models.Bar, len(existing)+len(bars))
	for _, b := range existing {
		byDay[models.DayKey(b.Date)] = b
	}
	for _, b := range bars {
		b.Symbol = symbol
		byDay[models.DayKey(b.Date)] = b
	}
	merged := make([]models.Bar, 0, len(byDay))
	for _, b := range byDay {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })

	body, err := sonic.Marshal(merged)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp := s.path(symbol) + ".tmp"
	if err = os.WriteFile(tmp, body, 0o644); err != nil {
		return err
	}
	if err = os.Rename(tmp, s.path(symbol)); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[symbol] = merged
	s.mu.Unlock()
	return nil
}

// Symbols lists stored symbols, indexes excluded.
func (s *Store) Symbols() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read bar dir")
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, indexPrefix) {
			continue
		}
		out = append(out, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) load(symbol string) ([]models.Bar, error) {
	s.mu.RLock()
	bars, ok := s.cache[symbol]
	s.mu.RUnlock()
	if ok {
		return bars, nil
	}

	body, err := os.ReadFile(s.path(symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read bars %s", symbol)
	}
	if err := sonic.Unmarshal(body, &bars); err != nil {
		return nil, errors.Wrapf(err, "decode bars %s", symbol)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	s.mu.Lock()
	s.cache[symbol] = bars
	s.mu.Unlock()
	return bars, nil
}

func (s *Store) path(symbol string) string {
	return filepath.Join(s.dir, symbol+fileExt)
}
