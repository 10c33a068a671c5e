package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/colthorp/likes-cli-go/internal/api"
	"github.com/colthorp/likes-cli-go/internal/core"
)

// Manager owns the per-kind stores for one run and answers fetches through
// them.
//
// Stores are loaded from the backend on first use and written back after
// every mutation. A missing or malformed document loads as an empty store
// and is repaired by the next write.
//
// Public methods are serialized by an internal lock. Sharing one cache
// directory between processes is not supported.
type Manager struct {
	source     Source
	backend    Backend
	logger     *slog.Logger
	now        func() time.Time
	frozenDays int

	mu         sync.Mutex
	activities *Store[*api.Activity]
	plans      *Store[*api.Plan]
	feedback   *Store[*api.Feedback]
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for warnings and debug output.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithFrozenDays sets how many days back the frozen window starts.
func WithFrozenDays(days int) Option {
	return func(m *Manager) {
		if days >= 0 {
			m.frozenDays = days
		}
	}
}

// NewManager creates a new cache manager with the given source and backend.
// If backend is nil, uses the default FilesystemBackend.
func NewManager(source Source, backend Backend, opts ...Option) *Manager {
	if backend == nil {
		backend = NewFilesystemBackend("")
	}
	m := &Manager{
		source:     source,
		backend:    backend,
		logger:     core.DiscardLogger(),
		now:        time.Now,
		frozenDays: core.FrozenDays,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "cache")
	return m
}

func (m *Manager) today() string {
	return core.Today(m.now())
}

func (m *Manager) stamp() string {
	return m.now().UTC().Format(time.RFC3339)
}

// frozenBoundary is the first day of the fresh window.
func (m *Manager) frozenBoundary() string {
	b, _ := core.ShiftDate(m.today(), -m.frozenDays)
	return b
}

func (m *Manager) activityStore() *Store[*api.Activity] {
	return loadStore(m, KindActivities, &m.activities)
}

func (m *Manager) planStore() *Store[*api.Plan] {
	return loadStore(m, KindPlans, &m.plans)
}

func (m *Manager) feedbackStore() *Store[*api.Feedback] {
	return loadStore(m, KindFeedback, &m.feedback)
}

// loadStore returns *slot, reading it from the backend on first use.
func loadStore[R Record](m *Manager, kind Kind, slot **Store[R]) *Store[R] {
	if *slot != nil {
		return *slot
	}
	s := newStore[R](kind)
	data, err := m.backend.Read(kind)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		m.logger.Warn("cache document unreadable, starting empty", "kind", kind, "error", err)
	default:
		decoded, derr := decodeStore[R](kind, data, func(key string, err error) {
			m.logger.Warn("cache record unreadable, dropped", "kind", kind, "key", key, "error", err)
		})
		if derr != nil {
			m.logger.Warn("cache document malformed, starting empty", "kind", kind, "path", m.backend.Path(kind), "error", derr)
		} else {
			s = decoded
		}
	}
	*slot = s
	return s
}

// kindStore is the kind-independent view of a Store.
type kindStore interface {
	Kind() Kind
	Len() int
	DayBounds() (oldest, newest string)
	DeleteBefore(day string) int
	encode() ([]byte, error)
}

func (m *Manager) store(kind Kind) (kindStore, error) {
	switch kind {
	case KindActivities:
		return m.activityStore(), nil
	case KindPlans:
		return m.planStore(), nil
	case KindFeedback:
		return m.feedbackStore(), nil
	}
	return nil, fmt.Errorf("unknown kind %q", kind)
}

func (m *Manager) save(s kindStore) error {
	data, err := s.encode()
	if err != nil {
		return fmt.Errorf("encode %s cache: %w", s.Kind(), err)
	}
	if err := m.backend.Write(s.Kind(), data); err != nil {
		return fmt.Errorf("write %s cache: %w", s.Kind(), err)
	}
	return nil
}

// persist saves s and downgrades failures to a warning; the caller still
// has the data it fetched.
func (m *Manager) persist(s kindStore) {
	if err := m.save(s); err != nil {
		m.logger.Warn("cache write failed", "kind", s.Kind(), "error", err)
	}
}

// KindStats describes one cache document.
type KindStats struct {
	Kind      Kind   `json:"kind"`
	Present   bool   `json:"present"`
	Records   int    `json:"records"`
	SizeBytes int64  `json:"size_bytes"`
	Oldest    string `json:"oldest,omitempty"`
	Newest    string `json:"newest,omitempty"`
	Path      string `json:"path"`
}

// Stats reports record counts, document sizes and date bounds per kind.
func (m *Manager) Stats() ([]KindStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]KindStats, 0, len(Kinds))
	for _, kind := range Kinds {
		st := KindStats{Kind: kind, Path: m.backend.Path(kind)}
		size, ok := m.backend.Size(kind)
		if ok {
			s, err := m.store(kind)
			if err != nil {
				return nil, err
			}
			st.Present = true
			st.SizeBytes = size
			st.Records = s.Len()
			st.Oldest, st.Newest = s.DayBounds()
		}
		out = append(out, st)
	}
	return out, nil
}

// Clear wipes the cache. With before set, only records dated strictly before
// that day are removed and fetched ranges are kept, so those windows are not
// re-fetched on demand. It returns the number of records removed; a full
// wipe reports what was held in memory.
func (m *Manager) Clear(before string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if before == "" {
		var errs []error
		removed := 0
		for _, kind := range Kinds {
			if _, ok := m.backend.Size(kind); ok {
				if s, err := m.store(kind); err == nil {
					removed += s.Len()
				}
			}
			if err := m.backend.Remove(kind); err != nil {
				errs = append(errs, err)
			}
		}
		m.activities, m.plans, m.feedback = nil, nil, nil
		return removed, errors.Join(errs...)
	}

	if _, err := core.ParseDate(before); err != nil {
		return 0, err
	}
	removed := 0
	for _, kind := range Kinds {
		s, err := m.store(kind)
		if err != nil {
			return removed, err
		}
		n := s.DeleteBefore(before)
		if n == 0 {
			continue
		}
		removed += n
		if err := m.save(s); err != nil {
			return removed, err
		}
		m.logger.Debug("cleared records", "kind", kind, "before", before, "count", n)
	}
	return removed, nil
}
