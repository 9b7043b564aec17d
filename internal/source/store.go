package source

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "swintt/internal/log"
	"swintt/internal/model"
)

// Store caches course rows in memory. Courses are loaded on first use and
// reloaded by Refresh, typically on a cron schedule.
type Store struct {
	loader Loader

	mu      sync.RWMutex
	courses map[string]storeEntry

	cron *cron.Cron
}

type storeEntry struct {
	rows      []model.SessionRecord
	updatedAt time.Time
}

func NewStore(l Loader) *Store {
	return &Store{
		loader:  l,
		courses: make(map[string]storeEntry),
	}
}

// Rows returns the cached rows of code, loading them on a miss. Rows are
// shared; callers must not modify them.
func (s *Store) Rows(ctx context.Context, code string) ([]model.SessionRecord, error) {
	s.mu.RLock()
	e, ok := s.courses[code]
	s.mu.RUnlock()
	if ok {
		return e.rows, nil
	}

	rows, err := s.loader.Load(ctx, code)
	if err != nil {
		return nil, err
	}
	s.put(code, rows)
	return rows, nil
}

// Load implements Loader so a Store can stand in for its own loader.
func (s *Store) Load(ctx context.Context, code string) ([]model.SessionRecord, error) {
	return s.Rows(ctx, code)
}

func (s *Store) put(code string, rows []model.SessionRecord) {
	s.mu.Lock()
	s.courses[code] = storeEntry{rows: rows, updatedAt: time.Now()}
	s.mu.Unlock()
}

// CourseInfo describes one cached course.
type CourseInfo struct {
	Code      string    `json:"code"`
	Rows      int       `json:"rows"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Courses lists the cached courses in code order with the time their rows
// were last loaded.
func (s *Store) Courses() []CourseInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CourseInfo, 0, len(s.courses))
	for code, e := range s.courses {
		out = append(out, CourseInfo{Code: code, Rows: len(e.rows), UpdatedAt: e.updatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Codes lists the cached courses in sorted order.
func (s *Store) Codes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.courses))
	for code := range s.courses {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Refresh reloads every cached course. A course that fails keeps its
// previous rows; the failures are returned keyed by course.
func (s *Store) Refresh(ctx context.Context) map[string]error {
	errs := make(map[string]error)
	for _, code := range s.Codes() {
		rows, err := s.loader.Load(ctx, code)
		if err != nil {
			errs[code] = err
			appLog.Error("timetable refresh failed; keeping previous rows", err, "course", code)
			continue
		}
		s.put(code, rows)
	}
	appLog.Info("timetable refresh completed", "courses", len(s.Codes()), "failed", len(errs))
	return errs
}

// Schedule runs Refresh on the given cron spec (standard five fields)
// until Stop is called.
func (s *Store) Schedule(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		s.Refresh(context.Background())
	}); err != nil {
		return fmt.Errorf("source: invalid refresh schedule %q: %w", spec, err)
	}
	c.Start()

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	appLog.Info("timetable refresh scheduled", "cron", spec)
	return nil
}

// Stop halts the refresh schedule and waits for a running refresh.
func (s *Store) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
