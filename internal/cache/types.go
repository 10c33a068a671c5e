// Package cache provides the date-range-aware cache for Likes training data.
//
// # Overview
//
// Each entity kind (activities, plans, feedback) is kept in one JSON document
// under the cache root, e.g. ~/.cache/likes-running/activities.json:
//
//	{
//	  "records": {"<identity key>": {..., "_cached_at": "2024-07-15T08:00:00Z"}},
//	  "_fetched_ranges": [["2024-05-01", "2024-06-30"]]
//	}
//
// The _fetched_ranges list remembers which date windows were already queried.
// It is kept merged (sorted, non-overlapping) after every mutation.
//
// # Frozen and fresh windows
//
// Data older than FrozenDays is assumed immutable upstream. Requests over
// that frozen history are answered from the store, and only the gaps between
// fetched ranges go to the API. The fresh window (the last FrozenDays days)
// is re-fetched on every request. When the API is unavailable or rate
// limited, cached records are served in its place with a warning.
//
// Plans have no frozen window: the upstream schedule stays editable, so the
// API is always asked and the store is only a fallback.
//
// # Backfill
//
// Backfill walks backward from today in fixed chunks, skipping chunks that
// are already covered, until it reaches a horizon or sees BackfillEmptyStop
// empty chunks in a row.
package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/colthorp/likes-cli-go/internal/api"
	"github.com/colthorp/likes-cli-go/internal/core"
)

// Kind names an entity kind and its document.
type Kind string

const (
	KindActivities Kind = "activities"
	KindPlans      Kind = "plans"
	KindFeedback   Kind = "feedback"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindActivities, KindPlans, KindFeedback}

// ParseKind accepts a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown endpoint %q (expected activities, plans or feedback)", s)
}

// ChunkDays is the backfill chunk size for the kind.
func (k Kind) ChunkDays() int {
	if k == KindPlans {
		return core.PlanChunkDays
	}
	return core.ChunkDays
}

// Record is what the store needs from a cached entity.
type Record interface {
	// Key is the identity key; empty means the record cannot be stored.
	Key() string
	// Day is the UTC calendar day of the date field, empty when missing.
	Day() string
	// InRange reports membership of the date field in [start, end].
	InRange(start, end string) bool
	SetCachedAt(ts string)
}

// Backend is the interface for cache storage backends.
// The default implementation is FilesystemBackend which stores JSON files on disk.
type Backend interface {
	// Read returns the stored document for kind. A missing document yields
	// an error satisfying errors.Is(err, fs.ErrNotExist).
	Read(kind Kind) ([]byte, error)

	// Write replaces the document atomically.
	Write(kind Kind, data []byte) error

	// Remove deletes the document. Removing a missing document is not an error.
	Remove(kind Kind) error

	// Size reports the stored document size and whether it exists.
	Size(kind Kind) (int64, bool)

	// Path returns where the document lives (for display).
	Path(kind Kind) string
}

// Source is the remote collaborator the cache fills itself from.
// *api.LikesAPI implements it.
type Source interface {
	GetActivities(ctx context.Context, start, end string, limit int) (*api.ActivityPage, error)
	GetPlans(ctx context.Context, start string, gameID *int) (*api.PlanPage, error)
	GetFeedback(ctx context.Context, start, end string) (*api.FeedbackPage, error)
}

var _ Source = (*api.LikesAPI)(nil)
