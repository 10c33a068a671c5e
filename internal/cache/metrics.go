package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/colthorp/likes-cli-go/internal/api"
)

// Registry collects the cache counters. The CLI can dump it in textfile
// collector format after a run.
var Registry = prometheus.NewRegistry()

// Sources of served records.
const (
	sourceAPI      = "api"
	sourceCache    = "cache"
	sourceFallback = "fallback"
)

var (
	apiCallCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "likes",
		Subsystem: "cache",
		Name:      "api_calls_total",
		Help:      "Calls made to the Likes API by the cache, by kind and outcome.",
	}, []string{"kind", "outcome"})

	servedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "likes",
		Subsystem: "cache",
		Name:      "records_served_total",
		Help:      "Records returned to callers, by kind and where they came from.",
	}, []string{"kind", "source"})

	fallbackCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "likes",
		Subsystem: "cache",
		Name:      "fallbacks_total",
		Help:      "Times cached records were served because the API failed.",
	}, []string{"kind"})

	backfillChunkCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "likes",
		Subsystem: "cache",
		Name:      "backfill_chunks_total",
		Help:      "Backfill chunks processed, by kind and result.",
	}, []string{"kind", "result"})
)

func init() {
	Registry.MustRegister(apiCallCounter, servedCounter, fallbackCounter, backfillChunkCounter)
}

func recordAPICall(kind Kind, err error) {
	apiCallCounter.WithLabelValues(string(kind), api.Classify(err).String()).Inc()
}

func recordServed(kind Kind, source string, n int) {
	if n > 0 {
		servedCounter.WithLabelValues(string(kind), source).Add(float64(n))
	}
}

func recordFallback(kind Kind) {
	fallbackCounter.WithLabelValues(string(kind)).Inc()
}

func recordBackfillChunk(kind Kind, result ChunkResult) {
	backfillChunkCounter.WithLabelValues(string(kind), string(result)).Inc()
}
