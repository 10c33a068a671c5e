package cache

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/colthorp/likes-cli-go/internal/api"
	"github.com/colthorp/likes-cli-go/internal/core"
)

// Query selects a date window of activities or feedback.
type Query struct {
	Start string
	End   string
	// Limit caps the returned list after sorting; <= 0 means unlimited.
	Limit int
	// NoCache skips the store entirely: one API call, no fallback.
	NoCache bool
}

// PlanQuery selects plans from Start onward.
type PlanQuery struct {
	Start   string
	GameID  *int
	NoCache bool
}

// FetchActivities returns activities signed within [Start, End], newest
// first. End defaults to today and Start to 30 days before End.
func (m *Manager) FetchActivities(ctx context.Context, q Query) (*api.ActivityPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if q.End == "" {
		q.End = m.today()
	}
	if q.Start == "" {
		start, err := core.ShiftDate(q.End, -core.ChunkDays)
		if err != nil {
			return nil, err
		}
		q.Start = start
	}

	if q.NoCache {
		limit := q.Limit
		if limit <= 0 {
			limit = core.FetchPageLimit
		}
		page, err := m.source.GetActivities(ctx, q.Start, q.End, limit)
		recordAPICall(KindActivities, err)
		if err != nil {
			if ferr := m.noCacheFailure(KindActivities, q.Start, q.End, err); ferr != nil {
				return nil, ferr
			}
			return &api.ActivityPage{List: []*api.Activity{}}, nil
		}
		s := m.activityStore()
		if s.MergeInsert(page.List, m.stamp()) > 0 {
			m.persist(s)
		}
		recordServed(KindActivities, sourceAPI, len(page.List))
		return page, nil
	}

	items, err := fetchWindowed(ctx, m, window[*api.Activity]{
		kind:  KindActivities,
		store: m.activityStore(),
		fetch: func(ctx context.Context, start, end string) ([]*api.Activity, error) {
			page, err := m.source.GetActivities(ctx, start, end, core.FetchPageLimit)
			if err != nil {
				return nil, err
			}
			return page.List, nil
		},
		less: func(a, b *api.Activity) bool { return a.Unix() > b.Unix() },
	}, q)
	if err != nil {
		return nil, err
	}
	return &api.ActivityPage{Total: len(items), List: applyLimit(items, q.Limit)}, nil
}

// FetchFeedback returns feedback created within [Start, End], newest first.
// Both bounds are required; a missing one yields an empty page.
func (m *Manager) FetchFeedback(ctx context.Context, q Query) (*api.FeedbackPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if q.Start == "" || q.End == "" {
		return &api.FeedbackPage{Rows: []*api.Feedback{}}, nil
	}

	if q.NoCache {
		page, err := m.source.GetFeedback(ctx, q.Start, q.End)
		recordAPICall(KindFeedback, err)
		if err != nil {
			if ferr := m.noCacheFailure(KindFeedback, q.Start, q.End, err); ferr != nil {
				return nil, ferr
			}
			return &api.FeedbackPage{Rows: []*api.Feedback{}}, nil
		}
		s := m.feedbackStore()
		if s.MergeInsert(page.Rows, m.stamp()) > 0 {
			m.persist(s)
		}
		recordServed(KindFeedback, sourceAPI, len(page.Rows))
		return page, nil
	}

	items, err := fetchWindowed(ctx, m, window[*api.Feedback]{
		kind:  KindFeedback,
		store: m.feedbackStore(),
		fetch: func(ctx context.Context, start, end string) ([]*api.Feedback, error) {
			page, err := m.source.GetFeedback(ctx, start, end)
			if err != nil {
				return nil, err
			}
			return page.Rows, nil
		},
		less: func(a, b *api.Feedback) bool { return a.Unix() > b.Unix() },
	}, q)
	if err != nil {
		return nil, err
	}
	return &api.FeedbackPage{Total: len(items), Rows: applyLimit(items, q.Limit)}, nil
}

// FetchPlans always asks the API, since upstream plans stay editable. When
// the API is unavailable, cached plans in [Start, Start+42d] are served.
// Rows are sorted by start day, earliest first.
func (m *Manager) FetchPlans(ctx context.Context, q PlanQuery) (*api.PlanPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byStart := func(a, b *api.Plan) bool { return a.Start < b.Start }

	page, err := m.source.GetPlans(ctx, q.Start, q.GameID)
	recordAPICall(KindPlans, err)
	if err == nil {
		s := m.planStore()
		if s.MergeInsert(page.Rows, m.stamp()) > 0 {
			m.persist(s)
		}
		c := newCollector[*api.Plan]()
		c.add(page.Rows, sourceAPI, true)
		rows := c.sorted(byStart)
		recordEntries(KindPlans, rows)
		return &api.PlanPage{Total: len(rows), Rows: records(rows)}, nil
	}

	if q.NoCache {
		if ferr := m.noCacheFailure(KindPlans, q.Start, "", err); ferr != nil {
			return nil, ferr
		}
		return &api.PlanPage{Rows: []*api.Plan{}}, nil
	}
	if api.Classify(err) == api.OutcomeFailed {
		return nil, err
	}

	start := q.Start
	if start == "" {
		start = m.today()
	}
	end, serr := core.ShiftDate(start, core.PlanChunkDays)
	if serr != nil {
		return nil, serr
	}
	m.logger.Warn("using cached plans, API unavailable", "kind", KindPlans, "range", DateRange{start, end}.String(), "error", err)
	recordFallback(KindPlans)

	c := newCollector[*api.Plan]()
	c.add(m.planStore().Select(start, end), sourceFallback, false)
	rows := c.sorted(byStart)
	recordEntries(KindPlans, rows)
	return &api.PlanPage{Total: len(rows), Rows: records(rows)}, nil
}

// noCacheFailure turns a degraded API outcome into a warning and nil error;
// authentication failures and cancellation are returned.
func (m *Manager) noCacheFailure(kind Kind, start, end string, err error) error {
	if api.Classify(err) == api.OutcomeFailed {
		return err
	}
	m.logger.Warn("API unavailable and cache bypassed, returning nothing",
		"kind", kind, "range", DateRange{start, end}.String(), "error", err)
	return nil
}

// window describes one windowed kind for fetchWindowed.
type window[R Record] struct {
	kind  Kind
	store *Store[R]
	fetch func(ctx context.Context, start, end string) ([]R, error)
	less  func(a, b R) bool
}

// fetchWindowed answers [q.Start, q.End] from the frozen store plus its gaps
// and a fresh API call, and returns the deduplicated, sorted records.
func fetchWindowed[R Record](ctx context.Context, m *Manager, w window[R], q Query) ([]R, error) {
	if _, err := core.ParseDate(q.Start); err != nil {
		return nil, err
	}
	if _, err := core.ParseDate(q.End); err != nil {
		return nil, err
	}
	if q.Start > q.End {
		return nil, fmt.Errorf("invalid range %s: start is after end", DateRange{q.Start, q.End})
	}

	boundary := m.frozenBoundary()
	c := newCollector[R]()

	if q.Start < boundary {
		frozenEnd := min(q.End, boundary)
		c.add(w.store.Select(q.Start, frozenEnd), sourceCache, false)

		for _, gap := range w.store.Gaps(q.Start, frozenEnd) {
			items, err := w.fetch(ctx, gap.Start, gap.End)
			recordAPICall(w.kind, err)
			if err != nil {
				if api.Classify(err) == api.OutcomeFailed {
					return nil, err
				}
				m.logger.Warn("using cached data, API unavailable", "kind", w.kind, "range", gap.String(), "error", err)
				recordFallback(w.kind)
				continue
			}
			w.store.MergeInsert(items, m.stamp())
			w.store.RecordRange(gap.Start, gap.End)
			m.persist(w.store)
			c.add(items, sourceAPI, true)
			m.logger.Debug("filled gap", "kind", w.kind, "range", gap.String(), "count", len(items))
		}
	}

	freshStart := max(q.Start, boundary)
	if freshStart <= q.End {
		items, err := w.fetch(ctx, freshStart, q.End)
		recordAPICall(w.kind, err)
		if err != nil {
			if api.Classify(err) == api.OutcomeFailed {
				return nil, err
			}
			m.logger.Warn("using cached data, API unavailable for recent window",
				"kind", w.kind, "range", DateRange{freshStart, q.End}.String(), "error", err)
			recordFallback(w.kind)
			c.add(w.store.Select(freshStart, q.End), sourceFallback, false)
		} else {
			w.store.MergeInsert(items, m.stamp())
			w.store.RecordRange(freshStart, q.End)
			m.persist(w.store)
			c.add(items, sourceAPI, true)
		}
	}

	entries := c.sorted(w.less)
	recordEntries(w.kind, applyLimit(entries, q.Limit))
	return records(entries), nil
}

// collector deduplicates records by identity key while keeping first-seen
// order. Records without a key are kept and never collide.
type collector[R Record] struct {
	order []string
	byKey map[string]entry[R]
	anon  int
}

// entry is a collected record and where it came from.
type entry[R Record] struct {
	rec    R
	source string
}

func newCollector[R Record]() *collector[R] {
	return &collector[R]{byKey: make(map[string]entry[R])}
}

// add appends items under source. With replace set, an item overwrites an
// earlier record with the same key in place; otherwise it is dropped.
func (c *collector[R]) add(items []R, source string, replace bool) {
	for _, item := range items {
		key := item.Key()
		if key == "" {
			c.anon++
			key = "\x00" + strconv.Itoa(c.anon)
		}
		if _, seen := c.byKey[key]; seen {
			if replace {
				c.byKey[key] = entry[R]{rec: item, source: source}
			}
			continue
		}
		c.byKey[key] = entry[R]{rec: item, source: source}
		c.order = append(c.order, key)
	}
}

// sorted returns the collected entries ordered by less, ties kept in
// collection order.
func (c *collector[R]) sorted(less func(a, b R) bool) []entry[R] {
	out := make([]entry[R], 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.byKey[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i].rec, out[j].rec) })
	return out
}

func records[R Record](entries []entry[R]) []R {
	out := make([]R, len(entries))
	for i, e := range entries {
		out[i] = e.rec
	}
	return out
}

func recordEntries[R Record](kind Kind, entries []entry[R]) {
	counts := map[string]int{}
	for _, e := range entries {
		counts[e.source]++
	}
	for source, n := range counts {
		recordServed(kind, source, n)
	}
}

func applyLimit[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
