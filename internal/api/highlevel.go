package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/colthorp/likes-cli-go/internal/core"
)

// LikesAPI provides a typed convenience layer over the Likes REST API.
type LikesAPI struct {
	transport Transport
}

// NewLikesAPI creates a new high-level API client.
func NewLikesAPI(transport Transport) *LikesAPI {
	return &LikesAPI{transport: transport}
}

// GetActivities fetches the first page of activities signed within
// [start, end], newest first. Empty bounds are omitted from the query.
func (a *LikesAPI) GetActivities(ctx context.Context, start, end string, limit int) (*ActivityPage, error) {
	if limit <= 0 {
		limit = core.FetchPageLimit
	}
	q := url.Values{}
	q.Set("page", "1")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("order_by", "sign_date")
	q.Set("order", "desc")
	if start != "" {
		q.Set("start_date", start)
	}
	if end != "" {
		q.Set("end_date", end)
	}

	var page ActivityPage
	if err := a.transport.Do(ctx, http.MethodGet, "/activity", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPlans fetches scheduled plans from start onward, optionally for one game.
func (a *LikesAPI) GetPlans(ctx context.Context, start string, gameID *int) (*PlanPage, error) {
	q := url.Values{}
	if start != "" {
		q.Set("start", start)
	}
	if gameID != nil {
		q.Set("game_id", strconv.Itoa(*gameID))
	}

	var page PlanPage
	if err := a.transport.Do(ctx, http.MethodGet, "/plans", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetFeedback fetches feedback created within [start, end].
func (a *LikesAPI) GetFeedback(ctx context.Context, start, end string) (*FeedbackPage, error) {
	q := url.Values{}
	q.Set("start", start)
	q.Set("end", end)

	var page FeedbackPage
	if err := a.transport.Do(ctx, http.MethodGet, "/feedback", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// PushPlans uploads new plans. Every plan is validated before anything is sent.
func (a *LikesAPI) PushPlans(ctx context.Context, plans []PlanPush) (*PushResult, error) {
	if len(plans) == 0 {
		return nil, fmt.Errorf("no plans to push")
	}
	if len(plans) > core.MaxPlansPerPush {
		return nil, fmt.Errorf("max %d plans per push, got %d", core.MaxPlansPerPush, len(plans))
	}
	for i, p := range plans {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("plan %d: %w", i+1, err)
		}
	}

	var result PushResult
	body := map[string][]PlanPush{"plans": plans}
	if err := a.transport.Do(ctx, http.MethodPost, "/plans/push", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Plan intensity weights accepted by /plans/push.
var PlanWeights = []any{"q1", "q2", "q3", "xuanxiu"}

// Sport codes accepted by /plans/push.
var PlanSports = []any{1, 2, 3, 5, 254}

// PlanPush is one plan in a /plans/push request.
type PlanPush struct {
	Title       string `json:"title"`
	Start       string `json:"start"`
	Name        string `json:"name"`
	Weight      string `json:"weight,omitempty"`
	Type        string `json:"type,omitempty"`
	Sports      *int   `json:"sports,omitempty"`
	Description string `json:"description,omitempty"`
	GameID      *int   `json:"game_id,omitempty"`
}

// Validate implements validation.Validatable.
func (p PlanPush) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.RuneLength(1, core.MaxPlanTitleLen)),
		validation.Field(&p.Start, validation.Required, validation.Date(core.APIDateFmt)),
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Weight, validation.In(PlanWeights...)),
		validation.Field(&p.Sports, validation.NilOrNotEmpty, validation.In(PlanSports...)),
	)
}
