package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/go-nav-guide/internal/browser"
	"github.com/nbenliogludev/go-nav-guide/internal/llm"
	"github.com/nbenliogludev/go-nav-guide/internal/snapshot"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, browser.DriverPlaywright, cfg.Browser.Driver)
	assert.Equal(t, llm.DefaultPromptBudget, cfg.Prompt.Budget)
	assert.Equal(t, snapshot.DefaultMaxChars, cfg.Snapshot.MaxChars)
	assert.Equal(t, string(snapshot.ModeStructured), cfg.Snapshot.Mode)
	assert.Equal(t, snapshot.DefaultMarkers, cfg.Snapshot.Markers)
	assert.Equal(t, 500*time.Millisecond, cfg.Executor.StreamDelay)
	assert.Equal(t, time.Second, cfg.Executor.SettleDelay)
	assert.False(t, cfg.Executor.AutoInteract)
	assert.Equal(t, llm.DefaultGroqModel, cfg.Models[llm.BackendGroq])

	opts := cfg.ExecutorOptions()
	assert.Equal(t, cfg.Prompt.Budget, opts.PromptBudget)
	assert.Equal(t, cfg.Executor.AfterClickDelay, opts.AfterClickDelay)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "navguide.yaml")
	yaml := `browser:
  driver: chromedp
  headless: true
prompt:
  budget: 4000
executor:
  auto_interact: true
  stream_delay: 10ms
models:
  gemini: gemini-2.0-flash
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("NAVGUIDE_PROMPT_BUDGET", "2500")
	t.Setenv("NAVGUIDE_SNAPSHOT_MODE", "markup")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, browser.DriverChromedp, cfg.Browser.Driver)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 2500, cfg.Prompt.Budget)
	assert.True(t, cfg.Executor.AutoInteract)
	assert.Equal(t, 10*time.Millisecond, cfg.Executor.StreamDelay)
	assert.Equal(t, "gemini-2.0-flash", cfg.Models[llm.BackendGemini])
	assert.Equal(t, snapshot.ModeMarkup, cfg.SnapshotConfig().Mode)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"unknown driver", "NAVGUIDE_BROWSER_DRIVER", "firefox"},
		{"unknown snapshot mode", "NAVGUIDE_SNAPSHOT_MODE", "screenshot"},
		{"zero budget", "NAVGUIDE_PROMPT_BUDGET", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
