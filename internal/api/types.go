// Package api provides the HTTP client and types for the Likes open API.
package api

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/colthorp/likes-cli-go/internal/core"
)

// CachedAtField is the member name stamped on records when they are cached.
const CachedAtField = "_cached_at"

// Activity is a recorded training session, identified by id and dated by
// sign_date (unix seconds).
type Activity struct {
	ID         Flex
	SignDate   Flex
	Title      string
	RunType    Flex
	RunKm      Flex
	RunTime    Flex
	RunPace    Flex
	AvgHR      Flex
	AvgCadence Flex
	TSS        Flex
	CachedAt   string

	// Extra carries every member not modeled above.
	Extra map[string]json.RawMessage
}

func (a *Activity) UnmarshalJSON(data []byte) error {
	m, err := decodeFields(data)
	if err != nil {
		return err
	}
	*a = Activity{}
	if err := m.take("id", &a.ID); err != nil {
		return err
	}
	if err := m.take("sign_date", &a.SignDate); err != nil {
		return err
	}
	for _, f := range []struct {
		key string
		dst any
	}{
		{"title", &a.Title},
		{"run_type", &a.RunType},
		{"run_km", &a.RunKm},
		{"run_time", &a.RunTime},
		{"run_pace", &a.RunPace},
		{"run_avg_hr", &a.AvgHR},
		{"run_avg_step_freq", &a.AvgCadence},
		{"tss", &a.TSS},
		{CachedAtField, &a.CachedAt},
	} {
		m.keep(f.key, f.dst)
	}
	a.Extra = m.rest()
	return nil
}

func (a Activity) MarshalJSON() ([]byte, error) {
	out := withExtra(a.Extra)
	out.putFlex("id", a.ID)
	out.putFlex("sign_date", a.SignDate)
	out.putString("title", a.Title)
	out.putFlex("run_type", a.RunType)
	out.putFlex("run_km", a.RunKm)
	out.putFlex("run_time", a.RunTime)
	out.putFlex("run_pace", a.RunPace)
	out.putFlex("run_avg_hr", a.AvgHR)
	out.putFlex("run_avg_step_freq", a.AvgCadence)
	out.putFlex("tss", a.TSS)
	out.putString(CachedAtField, a.CachedAt)
	return json.Marshal(map[string]json.RawMessage(out))
}

// Key returns the identity key; empty when the id is missing.
func (a *Activity) Key() string { return a.ID.String() }

// Unix returns sign_date in unix seconds, 0 when missing.
func (a *Activity) Unix() int64 { return a.SignDate.Int64() }

// Day returns the UTC calendar day of sign_date.
func (a *Activity) Day() string { return core.UnixDate(a.Unix()) }

// InRange reports whether sign_date falls within [start 00:00, end+1d 00:00] UTC.
func (a *Activity) InRange(start, end string) bool {
	return unixInRange(a.Unix(), start, end)
}

// SetCachedAt stamps the cache timestamp.
func (a *Activity) SetCachedAt(ts string) { a.CachedAt = ts }

// IsRun reports whether the activity is a run (run_type 1).
func (a *Activity) IsRun() bool { return a.RunType.Int64() == 1 }

// FilterRuns keeps only running activities, preserving order.
func FilterRuns(list []*Activity) []*Activity {
	out := make([]*Activity, 0, len(list))
	for _, a := range list {
		if a.IsRun() {
			out = append(out, a)
		}
	}
	return out
}

// Plan is a scheduled workout, identified and dated by its start day.
type Plan struct {
	Start       string
	Title       string
	Name        string
	Weight      string
	Type        string
	Description string
	Sports      Flex
	GameID      Flex
	CachedAt    string

	Extra map[string]json.RawMessage
}

func (p *Plan) UnmarshalJSON(data []byte) error {
	m, err := decodeFields(data)
	if err != nil {
		return err
	}
	*p = Plan{}
	if err := m.take("start", &p.Start); err != nil {
		return err
	}
	for _, f := range []struct {
		key string
		dst any
	}{
		{"title", &p.Title},
		{"name", &p.Name},
		{"weight", &p.Weight},
		{"type", &p.Type},
		{"description", &p.Description},
		{"sports", &p.Sports},
		{"game_id", &p.GameID},
		{CachedAtField, &p.CachedAt},
	} {
		m.keep(f.key, f.dst)
	}
	p.Extra = m.rest()
	return nil
}

func (p Plan) MarshalJSON() ([]byte, error) {
	out := withExtra(p.Extra)
	out.putString("start", p.Start)
	out.putString("title", p.Title)
	out.putString("name", p.Name)
	out.putString("weight", p.Weight)
	out.putString("type", p.Type)
	out.putString("description", p.Description)
	out.putFlex("sports", p.Sports)
	out.putFlex("game_id", p.GameID)
	out.putString(CachedAtField, p.CachedAt)
	return json.Marshal(map[string]json.RawMessage(out))
}

func (p *Plan) Key() string { return p.Start }

func (p *Plan) Day() string { return p.Start }

// InRange compares the start day lexicographically against [start, end].
func (p *Plan) InRange(start, end string) bool {
	return p.Start != "" && start <= p.Start && p.Start <= end
}

func (p *Plan) SetCachedAt(ts string) { p.CachedAt = ts }

// Feedback is an athlete's note on a workout, identified and dated by
// created_time (unix seconds).
type Feedback struct {
	CreatedTime Flex
	Content     string
	PlanTitle   string
	Img         string
	CachedAt    string

	Extra map[string]json.RawMessage
}

func (f *Feedback) UnmarshalJSON(data []byte) error {
	m, err := decodeFields(data)
	if err != nil {
		return err
	}
	*f = Feedback{}
	if err := m.take("created_time", &f.CreatedTime); err != nil {
		return err
	}
	for _, fl := range []struct {
		key string
		dst any
	}{
		{"content", &f.Content},
		{"plan_title", &f.PlanTitle},
		{"img", &f.Img},
		{CachedAtField, &f.CachedAt},
	} {
		m.keep(fl.key, fl.dst)
	}
	f.Extra = m.rest()
	return nil
}

func (f Feedback) MarshalJSON() ([]byte, error) {
	out := withExtra(f.Extra)
	out.putFlex("created_time", f.CreatedTime)
	out.putString("content", f.Content)
	out.putString("plan_title", f.PlanTitle)
	out.putString("img", f.Img)
	out.putString(CachedAtField, f.CachedAt)
	return json.Marshal(map[string]json.RawMessage(out))
}

// Key is created_time as text. A zero timestamp counts as missing.
func (f *Feedback) Key() string {
	if f.Unix() == 0 {
		return ""
	}
	return f.CreatedTime.String()
}

func (f *Feedback) Unix() int64 { return f.CreatedTime.Int64() }

func (f *Feedback) Day() string { return core.UnixDate(f.Unix()) }

func (f *Feedback) InRange(start, end string) bool {
	return unixInRange(f.Unix(), start, end)
}

func (f *Feedback) SetCachedAt(ts string) { f.CachedAt = ts }

// unixInRange treats end as inclusive through midnight of the following day.
func unixInRange(ts int64, start, end string) bool {
	if ts == 0 {
		return false
	}
	s, err := core.ParseDate(start)
	if err != nil {
		return false
	}
	e, err := core.ParseDate(end)
	if err != nil {
		return false
	}
	return s.Unix() <= ts && ts <= e.AddDate(0, 0, 1).Unix()
}

// ActivityPage is the /activity response shape.
type ActivityPage struct {
	Total int         `json:"total"`
	List  []*Activity `json:"list"`
}

// PlanPage is the /plans response shape.
type PlanPage struct {
	Total int     `json:"total"`
	Rows  []*Plan `json:"rows"`
}

// FeedbackPage is the /feedback response shape.
type FeedbackPage struct {
	Total int         `json:"total"`
	Rows  []*Feedback `json:"rows"`
}

// PushResult is the /plans/push response.
type PushResult struct {
	ParseOK     int              `json:"parse_ok"`
	ParseFailed int              `json:"parse_failed"`
	Results     []PushItemResult `json:"results"`
}

// PushItemResult reports the outcome for one pushed plan.
type PushItemResult struct {
	Status  string `json:"status"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Transport is the interface for making API requests. Implementations decode
// the JSON response into out.
type Transport interface {
	Do(ctx context.Context, method, path string, query url.Values, body, out any) error
}

// ClientOptions configures an HTTP Client.
type ClientOptions struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	DefaultCooldown time.Duration
	Cooldowns       map[string]time.Duration
	RateLimitWait   time.Duration
	MaxAttempts     int
}
