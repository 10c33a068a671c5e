package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/colthorp/likes-cli-go/internal/api"
	"github.com/colthorp/likes-cli-go/internal/cache"
	"github.com/colthorp/likes-cli-go/internal/config"
)

type testEnv struct {
	configPath string
	cacheDir   string
	metrics    string
	calls      *atomic.Int32
}

// newTestEnv writes a config pointing at handler with cooldowns disabled.
func newTestEnv(t *testing.T, key string, handler http.HandlerFunc) *testEnv {
	t.Helper()
	t.Setenv("LIKES_API_KEY", "")

	calls := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	e := &testEnv{
		configPath: filepath.Join(dir, "config.yaml"),
		cacheDir:   filepath.Join(dir, "cache"),
		metrics:    filepath.Join(dir, "likes.prom"),
		calls:      calls,
	}
	body := fmt.Sprintf(`api:
  base_url: %s
  key: %q
  default_cooldown: 0s
  cooldowns:
    /activity: 0s
  rate_limit_wait: 0s
cache:
  dir: %s
metrics:
  textfile: %s
log:
  level: error
`, srv.URL, key, e.cacheDir, e.metrics)
	require.NoError(t, os.WriteFile(e.configPath, []byte(body), 0o600))
	return e
}

func (e *testEnv) run(args ...string) (string, error) {
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", e.configPath, "--quiet"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestActivitiesCommand(t *testing.T) {
	signed := time.Now().Add(-24 * time.Hour).Unix()
	env := newTestEnv(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `{"total":2,"list":[
			{"id":1,"sign_date":%d,"run_type":1,"run_km":5.2},
			{"id":2,"sign_date":%d,"run_type":2}]}`, signed, signed-60)
	})

	out, err := env.run("--json", "activities", "--start", "d-3")
	require.NoError(t, err)

	var page api.ActivityPage
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Equal(t, 1, page.Total, "running only by default")
	require.Equal(t, "1", page.List[0].Key())
	require.EqualValues(t, 1, env.calls.Load())

	_, err = os.Stat(filepath.Join(env.cacheDir, "activities.json"))
	require.NoError(t, err, "fetched records are cached")

	metrics, err := os.ReadFile(env.metrics)
	require.NoError(t, err)
	require.Contains(t, string(metrics), `likes_cache_api_calls_total{kind="activities",outcome="ok"}`)

	out, err = env.run("activities", "--start", "d-3", "--all-types")
	require.NoError(t, err)
	require.Contains(t, out, "活动记录 (2 total, showing 2)")
	require.Contains(t, out, "5.2km")
}

func TestMissingAPIKey(t *testing.T) {
	env := newTestEnv(t, "", func(w http.ResponseWriter, r *http.Request) {})

	_, err := env.run("plans")
	require.True(t, errors.Is(err, config.ErrMissingAPIKey), "got %v", err)
	require.Zero(t, env.calls.Load())
}

func TestCacheCommandsNeedNoKey(t *testing.T) {
	env := newTestEnv(t, "", func(w http.ResponseWriter, r *http.Request) {})

	out, err := env.run("--json", "cache", "stats")
	require.NoError(t, err)
	var stats []cache.KindStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Len(t, stats, 3)

	out, err = env.run("cache", "clear", "--before", "2024-01-01")
	require.NoError(t, err)
	require.Contains(t, out, "before 2024-01-01")
}

func TestPushValidatesBeforeSending(t *testing.T) {
	env := newTestEnv(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"parse_ok":1,"parse_failed":0,"results":[{"status":"ok","title":"Easy"}]}`)
	})

	_, err := env.run("push", "--title", strings.Repeat("长", 21), "--start", "2024-07-21", "--name", "e30")
	require.Error(t, err)
	require.Zero(t, env.calls.Load())

	out, err := env.run("push", "--title", "Easy", "--start", "2024-07-21", "--name", "e30", "--weight", "q3", "--sports", "1")
	require.NoError(t, err)
	require.Contains(t, out, "推送结果: 1 ok")
	require.EqualValues(t, 1, env.calls.Load())
}

func TestFeedbackRequiresBounds(t *testing.T) {
	env := newTestEnv(t, "secret", func(w http.ResponseWriter, r *http.Request) {})
	_, err := env.run("feedback", "--start", "2024-07-01")
	require.Error(t, err)
}

func TestBackfillRejectsUnknownEndpoint(t *testing.T) {
	env := newTestEnv(t, "secret", func(w http.ResponseWriter, r *http.Request) {})
	_, err := env.run("backfill", "--endpoint", "sleep")
	require.ErrorContains(t, err, "unknown endpoint")
	require.Zero(t, env.calls.Load())
}
