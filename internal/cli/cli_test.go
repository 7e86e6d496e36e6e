package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umq7573/streaky-shooter/internal/config"
)

// statsBackend is a canned stats API that counts hits per endpoint, so
// tests can prove which calls were served from cache.
type statsBackend struct {
	mu   sync.Mutex
	hits map[string]int
	srv  *httptest.Server
}

func envelope(headers []string, rows [][]any) map[string]any {
	return map[string]any{
		"resultSets": []map[string]any{{
			"name":    "Test",
			"headers": headers,
			"rowSet":  rows,
		}},
	}
}

func newStatsBackend(t *testing.T) *statsBackend {
	t.Helper()
	b := &statsBackend{hits: map[string]int{}}

	tables := map[string]map[string]any{
		"/commonallplayers": envelope(
			[]string{"PERSON_ID", "DISPLAY_FIRST_LAST"},
			[][]any{
				{201939, "Stephen Curry"},
				{202691, "Klay Thompson"},
			},
		),
		"/playercareerstats": envelope(
			[]string{"SEASON_ID", "TEAM_ID"},
			[][]any{{"2023-24", 1610612744}},
		),
		"/shotchartdetail": envelope(
			[]string{"GAME_DATE", "GAME_ID", "GAME_EVENT_ID", "SHOT_TYPE", "SHOT_MADE_FLAG"},
			[][]any{
				{"20240101", "0022300001", 5, "3PT Field Goal", 1},
				{"20240101", "0022300001", 9, "3PT Field Goal", 1},
				{"20240103", "0022300002", 2, "2PT Field Goal", 0},
				{"20240103", "0022300002", 8, "3PT Field Goal", 0},
			},
		),
		"/leagueleaders": envelope(
			[]string{"PLAYER_ID", "PLAYER", "MIN"},
			[][]any{
				{201939, "Stephen Curry", 2600},
				{202691, "Klay Thompson", 2300},
			},
		),
	}

	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits[r.URL.Path]++
		b.mu.Unlock()

		table, ok := tables[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(table)
		assert.NoError(t, err)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *statsBackend) hitCount(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

// writeTestConfig points the CLI at the fake backend and a temp cache dir.
func writeTestConfig(t *testing.T, baseURL, cacheDir string) string {
	t.Helper()
	body := fmt.Sprintf(`cache:
  enabled: true
  directory: %s
  max_size_mb: 10
logging:
  level: error
api:
  base_url: %s
  delay: 1ms
  max_retries: 2
  timeout: 5s
`, cacheDir, baseURL)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

// runCommand executes the command tree the way main() does, with a fresh
// root (and so a fresh cache manager) per invocation.
func runCommand(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	for _, env := range []string{config.EnvCacheEnabled, config.EnvCacheDir, config.EnvCacheMaxSizeMB} {
		t.Setenv(env, "")
	}

	cmd := NewRootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestShotsCommand(t *testing.T) {
	backend := newStatsBackend(t)
	cacheDir := t.TempDir()
	cfgPath := writeTestConfig(t, backend.srv.URL, cacheDir)

	out, err := runCommand(t, cfgPath,
		"shots", "--players", "Stephen Curry", "--seasons", "2023-24", "--shot-type", "All")
	require.NoError(t, err)
	assert.Contains(t, out, "Stephen Curry")
	// Two makes then two misses: 2 runs over 4 shots is maximal clumping.
	assert.Contains(t, out, "0.000")
	assert.Contains(t, out, "lower = more streaky")
	assert.Equal(t, 1, backend.hitCount("/shotchartdetail"))

	t.Run("SecondRunServedFromCache", func(t *testing.T) {
		out, err := runCommand(t, cfgPath,
			"shots", "--players", "Stephen Curry", "--seasons", "2023-24", "--shot-type", "All")
		require.NoError(t, err)
		assert.Contains(t, out, "Stephen Curry")
		assert.Equal(t, 1, backend.hitCount("/shotchartdetail"), "expected a cache hit, not a refetch")
		assert.Equal(t, 1, backend.hitCount("/commonallplayers"))
		assert.Equal(t, 1, backend.hitCount("/playercareerstats"))
	})

	t.Run("ForceRefreshRefetches", func(t *testing.T) {
		_, err := runCommand(t, cfgPath,
			"shots", "--players", "Stephen Curry", "--seasons", "2023-24", "--shot-type", "All",
			"--force-refresh")
		require.NoError(t, err)
		assert.Equal(t, 2, backend.hitCount("/shotchartdetail"))
	})

	t.Run("UnknownPlayer", func(t *testing.T) {
		_, err := runCommand(t, cfgPath,
			"shots", "--players", "Michael Jordan", "--seasons", "2023-24")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("UnknownMetric", func(t *testing.T) {
		_, err := runCommand(t, cfgPath,
			"shots", "--players", "Stephen Curry", "--seasons", "2023-24", "--metric", "vibes")
		require.Error(t, err)
	})
}

func TestRankingsCommand(t *testing.T) {
	backend := newStatsBackend(t)
	cacheDir := t.TempDir()
	cfgPath := writeTestConfig(t, backend.srv.URL, cacheDir)

	csvPath := filepath.Join(t.TempDir(), "rankings.csv")
	out, err := runCommand(t, cfgPath,
		"rankings", "--seasons", "2023-24", "--top-n", "2", "--min-shots", "1",
		"--shot-type", "All", "--output", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Stephen Curry")
	assert.Contains(t, out, "Klay Thompson")
	assert.Equal(t, 1, backend.hitCount("/leagueleaders"))

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "RANK,PLAYER,MIN,SHOTS")
	assert.Contains(t, string(data), "Stephen Curry")

	t.Run("MinShotsFloor", func(t *testing.T) {
		_, err := runCommand(t, cfgPath,
			"rankings", "--seasons", "2023-24", "--top-n", "2", "--min-shots", "500",
			"--shot-type", "All")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no players qualified")
	})
}

func TestCacheCommands(t *testing.T) {
	backend := newStatsBackend(t)
	cacheDir := t.TempDir()
	cfgPath := writeTestConfig(t, backend.srv.URL, cacheDir)

	// Populate: one shots run caches the player index, career stats, and
	// the shot chart.
	_, err := runCommand(t, cfgPath,
		"shots", "--players", "Stephen Curry", "--seasons", "2023-24", "--shot-type", "All")
	require.NoError(t, err)

	t.Run("Info", func(t *testing.T) {
		out, err := runCommand(t, cfgPath, "cache", "info")
		require.NoError(t, err)
		assert.Contains(t, out, "Directory")
		assert.Contains(t, out, cacheDir)
		assert.Contains(t, out, "Entries")
	})

	t.Run("ClearPattern", func(t *testing.T) {
		out, err := runCommand(t, cfgPath, "cache", "clear", "shot_charts/*")
		require.NoError(t, err)
		assert.Contains(t, out, "Removed 1 cached record(s).")
	})

	t.Run("ClearAll", func(t *testing.T) {
		out, err := runCommand(t, cfgPath, "cache", "clear")
		require.NoError(t, err)
		assert.Contains(t, out, "Removed 2 cached record(s).")
	})

	t.Run("ClearOldOnEmptyCache", func(t *testing.T) {
		out, err := runCommand(t, cfgPath, "cache", "clear-old")
		require.NoError(t, err)
		assert.Contains(t, out, "Removed 0 expired record(s).")
	})

	t.Run("DisabledCache", func(t *testing.T) {
		t.Setenv(config.EnvCacheEnabled, "false")
		cmd := NewRootCmd("test")
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs([]string{"--config", cfgPath, "cache", "info"})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "Cache is disabled")
	})
}

func TestNoCacheFlag(t *testing.T) {
	backend := newStatsBackend(t)
	cfgPath := writeTestConfig(t, backend.srv.URL, t.TempDir())

	for run := 0; run < 2; run++ {
		_, err := runCommand(t, cfgPath,
			"shots", "--players", "Stephen Curry", "--seasons", "2023-24", "--shot-type", "All",
			"--no-cache")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, backend.hitCount("/shotchartdetail"), "no-cache must refetch every run")
}
