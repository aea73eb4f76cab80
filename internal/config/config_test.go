package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ROLE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, RoleAll, cfg.Role)
	assert.Equal(t, 5*time.Minute, cfg.Solver.TimeLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.Messaging.PollInterval)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
role: worker
redis_url: redis://localhost:6379/0
solver:
  time_limit: 90s
  max_concurrent: 4
recovery:
  unqueue_time_limit: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SOLVER_TIME_LIMIT", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, RoleWorker, cfg.Role)
	assert.True(t, cfg.Role.RunsWorker())
	assert.False(t, cfg.Role.RunsGateway())
	assert.Equal(t, 2*time.Minute, cfg.Solver.TimeLimit)
	assert.Equal(t, 4, cfg.Solver.MaxConcurrent)
	assert.Equal(t, 30*time.Second, cfg.Recovery.UnqueueTimeLimit)
	assert.Equal(t, 5*time.Minute, cfg.Recovery.RunningSweepInterval)
}

func TestSplitRoleNeedsBroker(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ROLE", "gateway")
	t.Setenv("REDIS_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestBadDuration(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ROLE", "")
	t.Setenv("QUEUE_POLL_INTERVAL", "soon")

	_, err := Load()
	assert.Error(t, err)
}
