package cache

import (
	"context"
	"fmt"

	"github.com/colthorp/likes-cli-go/internal/api"
	"github.com/colthorp/likes-cli-go/internal/core"
)

// ChunkResult is what happened to one backfill chunk.
type ChunkResult string

const (
	ChunkFetched ChunkResult = "fetched"
	ChunkEmpty   ChunkResult = "empty"
	ChunkCached  ChunkResult = "cached"
	ChunkFailed  ChunkResult = "failed"
)

// StopReason explains why a backfill ended.
type StopReason string

const (
	// StopHorizon: the requested number of months was covered.
	StopHorizon StopReason = "horizon"
	// StopEmptyStreak: BackfillEmptyStop empty chunks in a row.
	StopEmptyStreak StopReason = "empty_streak"
	// StopNetwork: the API failed and the walk was abandoned.
	StopNetwork StopReason = "network_error"
	// StopExhausted: the chunk safety cap was reached.
	StopExhausted StopReason = "max_chunks"
)

// ChunkReport records one chunk of a backfill.
type ChunkReport struct {
	Index   int         `json:"index"`
	Range   DateRange   `json:"range"`
	Result  ChunkResult `json:"result"`
	Records int         `json:"records"`
	Error   string      `json:"error,omitempty"`
}

// BackfillReport summarizes a backfill run.
type BackfillReport struct {
	Kind    Kind          `json:"kind"`
	Months  int           `json:"months,omitempty"`
	Chunks  []ChunkReport `json:"chunks"`
	Records int           `json:"records"`
	Stop    StopReason    `json:"stop"`
}

// BackfillOptions bounds a backfill.
type BackfillOptions struct {
	// Months limits the walk to Months*30 days back; 0 walks until
	// BackfillEmptyStop empty chunks in a row.
	Months int
	// Progress, when set, is called after every chunk.
	Progress func(ChunkReport)
}

// chunkFetcher fetches one chunk. cached reports that the chunk was already
// covered and no call was made.
type chunkFetcher func(ctx context.Context, start, end string) (n int, cached bool, err error)

// Backfill populates history for kind by walking backward from today in
// chunks (30 days, 42 for plans). Chunks of activities or feedback that are
// already covered are skipped without a call. A degraded API response ends
// the walk and is reported in the result; authentication failures and
// cancellation are returned as errors.
func (m *Manager) Backfill(ctx context.Context, kind Kind, opts BackfillOptions) (*BackfillReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var fetch chunkFetcher
	switch kind {
	case KindActivities:
		fetch = trackedChunks(m, m.activityStore(), func(ctx context.Context, start, end string) ([]*api.Activity, error) {
			page, err := m.source.GetActivities(ctx, start, end, core.FetchPageLimit)
			if err != nil {
				return nil, err
			}
			return page.List, nil
		})
	case KindFeedback:
		fetch = trackedChunks(m, m.feedbackStore(), func(ctx context.Context, start, end string) ([]*api.Feedback, error) {
			page, err := m.source.GetFeedback(ctx, start, end)
			if err != nil {
				return nil, err
			}
			return page.Rows, nil
		})
	case KindPlans:
		fetch = m.planChunks
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}

	return m.walkBack(ctx, kind, opts, fetch)
}

func (m *Manager) walkBack(ctx context.Context, kind Kind, opts BackfillOptions, fetch chunkFetcher) (*BackfillReport, error) {
	today, err := core.ParseDate(m.today())
	if err != nil {
		return nil, err
	}
	size := kind.ChunkDays()

	report := &BackfillReport{Kind: kind, Months: opts.Months, Chunks: []ChunkReport{}, Stop: StopExhausted}
	maxChunks := core.BackfillMaxChunks
	horizon := ""
	if opts.Months > 0 {
		days := opts.Months * core.DaysPerMonth
		maxChunks = (days+size-1)/size + 1
		horizon = core.FormatDate(today.AddDate(0, 0, -days))
		report.Stop = StopHorizon
	}

	streak := 0
	for i := 0; i < maxChunks; i++ {
		end := core.FormatDate(today.AddDate(0, 0, -i*size))
		start := core.FormatDate(today.AddDate(0, 0, -(i+1)*size))
		if horizon != "" && end < horizon {
			report.Stop = StopHorizon
			break
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		chunk := ChunkReport{Index: i + 1, Range: DateRange{Start: start, End: end}}
		n, cached, err := fetch(ctx, start, end)
		switch {
		case err != nil:
			chunk.Result = ChunkFailed
			chunk.Error = err.Error()
		case cached:
			chunk.Result = ChunkCached
		case n == 0:
			chunk.Result = ChunkEmpty
			streak++
		default:
			chunk.Result = ChunkFetched
			chunk.Records = n
			streak = 0
		}
		report.Chunks = append(report.Chunks, chunk)
		report.Records += chunk.Records
		recordBackfillChunk(kind, chunk.Result)
		m.logger.Debug("backfill chunk", "kind", kind, "chunk", chunk.Index, "range", chunk.Range.String(), "result", chunk.Result, "records", n)
		if opts.Progress != nil {
			opts.Progress(chunk)
		}

		if err != nil {
			if api.Classify(err) == api.OutcomeFailed {
				return report, err
			}
			m.logger.Warn("backfill stopped, API unavailable", "kind", kind, "range", chunk.Range.String(), "error", err)
			report.Stop = StopNetwork
			break
		}
		if opts.Months == 0 && streak >= core.BackfillEmptyStop {
			report.Stop = StopEmptyStreak
			break
		}
	}
	return report, nil
}

// trackedChunks fetches a chunk of a range-tracked kind unless its range is
// already fully fetched.
func trackedChunks[R Record](m *Manager, s *Store[R], call func(ctx context.Context, start, end string) ([]R, error)) chunkFetcher {
	return func(ctx context.Context, start, end string) (int, bool, error) {
		if len(s.Gaps(start, end)) == 0 {
			return 0, true, nil
		}
		items, err := call(ctx, start, end)
		recordAPICall(s.Kind(), err)
		if err != nil {
			return 0, false, err
		}
		s.MergeInsert(items, m.stamp())
		s.RecordRange(start, end)
		m.persist(s)
		return len(items), false, nil
	}
}

// planChunks always calls: plans have no range tracking.
func (m *Manager) planChunks(ctx context.Context, start, _ string) (int, bool, error) {
	page, err := m.source.GetPlans(ctx, start, nil)
	recordAPICall(KindPlans, err)
	if err != nil {
		return 0, false, err
	}
	s := m.planStore()
	if s.MergeInsert(page.Rows, m.stamp()) > 0 {
		m.persist(s)
	}
	return len(page.Rows), false, nil
}
