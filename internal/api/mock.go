package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
)

// InMemoryTransport is a lightweight simulation of the Likes open API.
// It serves seeded activities, plans and feedback with the same filtering the
// real endpoints apply, sufficient for unit testing cache logic.
type InMemoryTransport struct {
	activities []*Activity
	plans      []*Plan
	feedback   []*Feedback

	RequestLog []RequestLogEntry
	Pushed     []PlanPush

	// OnRequest runs before each request is served; n counts from 1.
	// A non-nil error is returned to the caller instead of a response.
	OnRequest func(n int, path string) error
}

// RequestLogEntry records a request made to the transport.
type RequestLogEntry struct {
	Method string
	Path   string
	Query  url.Values
}

// NewInMemoryTransport creates a new in-memory transport for testing.
func NewInMemoryTransport() *InMemoryTransport {
	return &InMemoryTransport{}
}

// SeedActivities adds activities to the simulated account.
func (t *InMemoryTransport) SeedActivities(items ...*Activity) {
	t.activities = append(t.activities, items...)
}

// SeedPlans adds plans to the simulated account.
func (t *InMemoryTransport) SeedPlans(items ...*Plan) {
	t.plans = append(t.plans, items...)
}

// SeedFeedback adds feedback entries to the simulated account.
func (t *InMemoryTransport) SeedFeedback(items ...*Feedback) {
	t.feedback = append(t.feedback, items...)
}

// RequestsMade returns the number of requests made to this transport.
func (t *InMemoryTransport) RequestsMade() int {
	return len(t.RequestLog)
}

// RequestsTo counts requests made to one path.
func (t *InMemoryTransport) RequestsTo(path string) int {
	n := 0
	for _, r := range t.RequestLog {
		if r.Path == path {
			n++
		}
	}
	return n
}

// Reset clears all seeded data and recorded requests.
func (t *InMemoryTransport) Reset() {
	t.activities, t.plans, t.feedback = nil, nil, nil
	t.RequestLog, t.Pushed = nil, nil
}

// Do simulates a Likes API request. Responses pass through JSON so callers
// see the same decoding as with the HTTP client.
func (t *InMemoryTransport) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.RequestLog = append(t.RequestLog, RequestLogEntry{Method: method, Path: path, Query: cloneQuery(query)})
	if t.OnRequest != nil {
		if err := t.OnRequest(len(t.RequestLog), path); err != nil {
			return err
		}
	}

	var resp any
	switch {
	case method == http.MethodGet && path == "/activity":
		resp = t.serveActivities(query)
	case method == http.MethodGet && path == "/plans":
		resp = t.servePlans(query)
	case method == http.MethodGet && path == "/feedback":
		resp = t.serveFeedback(query)
	case method == http.MethodPost && path == "/plans/push":
		resp = t.servePush(body)
	default:
		return &APIError{StatusCode: http.StatusNotFound, Path: path, Message: "not found"}
	}

	if out == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to parse %s response: %w", ErrUnavailable, path, err)
	}
	return nil
}

func (t *InMemoryTransport) serveActivities(q url.Values) *ActivityPage {
	start, end := q.Get("start_date"), q.Get("end_date")
	var subset []*Activity
	for _, a := range t.activities {
		if start != "" && a.Day() < start {
			continue
		}
		if end != "" && a.Day() > end {
			continue
		}
		subset = append(subset, a)
	}
	sort.SliceStable(subset, func(i, j int) bool { return subset[i].Unix() > subset[j].Unix() })

	total := len(subset)
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit < len(subset) {
		subset = subset[:limit]
	}
	return &ActivityPage{Total: total, List: nonNil(subset)}
}

func (t *InMemoryTransport) servePlans(q url.Values) *PlanPage {
	start := q.Get("start")
	gameID := q.Get("game_id")
	var subset []*Plan
	for _, p := range t.plans {
		if start != "" && p.Start < start {
			continue
		}
		if gameID != "" && p.GameID.String() != gameID {
			continue
		}
		subset = append(subset, p)
	}
	sort.SliceStable(subset, func(i, j int) bool { return subset[i].Start < subset[j].Start })
	return &PlanPage{Total: len(subset), Rows: nonNil(subset)}
}

func (t *InMemoryTransport) serveFeedback(q url.Values) *FeedbackPage {
	start, end := q.Get("start"), q.Get("end")
	var subset []*Feedback
	for _, f := range t.feedback {
		if f.Day() < start || f.Day() > end {
			continue
		}
		subset = append(subset, f)
	}
	sort.SliceStable(subset, func(i, j int) bool { return subset[i].Unix() > subset[j].Unix() })
	return &FeedbackPage{Total: len(subset), Rows: nonNil(subset)}
}

func (t *InMemoryTransport) servePush(body any) *PushResult {
	req, _ := body.(map[string][]PlanPush)
	result := &PushResult{}
	for _, p := range req["plans"] {
		t.Pushed = append(t.Pushed, p)
		result.ParseOK++
		result.Results = append(result.Results, PushItemResult{Status: "ok", Title: p.Title})
	}
	return result
}

func cloneQuery(q url.Values) url.Values {
	if q == nil {
		return nil
	}
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
