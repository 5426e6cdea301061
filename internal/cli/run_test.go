package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizpractice/pkge2e/pkg/browser"
	"github.com/quizpractice/pkge2e/pkg/fixture"
	"github.com/quizpractice/pkge2e/pkg/scenario"
)

// deadBrowser launches but cannot open pages
type deadBrowser struct {
	closed bool
}

func (b *deadBrowser) NewPage(ctx context.Context) (browser.Page, error) {
	return nil, &browser.BrowserError{Code: browser.ErrCodeBrowserCrash, Message: "target crashed"}
}

func (b *deadBrowser) Close() error {
	b.closed = true
	return nil
}

func stubLaunch(t *testing.T, b browser.Browser, err error) *browser.Config {
	t.Helper()

	var got browser.Config
	orig := launchBrowser
	launchBrowser = func(ctx context.Context, cfg browser.Config, logger zerolog.Logger) (browser.Browser, error) {
		got = cfg
		return b, err
	}
	t.Cleanup(func() { launchBrowser = orig })
	return &got
}

func TestRunCommand(t *testing.T) {
	t.Run("failed scenario stops the suite and writes the report", func(t *testing.T) {
		configPath, dbPath := writeConfig(t)
		b := &deadBrowser{}
		launched := stubLaunch(t, b, nil)
		reportPath := filepath.Join(t.TempDir(), "out", "report.json")

		out, _, err := execute(t, "run", "TC1", "TC0", "--config", configPath, "--report", reportPath, "--engine", "playwright", "--headed")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 scenario(s) failed")

		assert.True(t, b.closed)
		assert.Equal(t, browser.EnginePlaywright, launched.Engine)
		assert.False(t, launched.Headless)

		// catalog order, not argument order
		assert.Contains(t, out, "failed  TC0")
		assert.Contains(t, out, "skipped TC1")
		assert.Contains(t, out, "0 passed, 1 failed, 1 skipped")

		data, err := os.ReadFile(reportPath)
		require.NoError(t, err)
		var report scenario.Report
		require.NoError(t, json.Unmarshal(data, &report))
		require.Len(t, report.Results, 2)
		assert.Equal(t, scenario.StatusFailed, report.Results[0].Status)
		assert.Contains(t, report.Results[0].Error, "target crashed")
		assert.Equal(t, scenario.StatusSkipped, report.Results[1].Status)

		// the hook reseeded before the page failed to open
		assert.Equal(t, fixture.Canonical(), loadPackages(t, dbPath, 1))
	})

	t.Run("unknown scenario", func(t *testing.T) {
		configPath, _ := writeConfig(t)
		stubLaunch(t, &deadBrowser{}, nil)

		_, _, err := execute(t, "run", "TC42", "--config", configPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown scenario "TC42"`)
	})

	t.Run("launch failure", func(t *testing.T) {
		configPath, _ := writeConfig(t)
		stubLaunch(t, nil, errors.New("chrome not found"))

		_, _, err := execute(t, "run", "--config", configPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to launch browser")
	})

	t.Run("fixtures override", func(t *testing.T) {
		configPath, _ := writeConfig(t)
		stubLaunch(t, &deadBrowser{}, nil)

		cfg := map[string]interface{}{}
		data, err := os.ReadFile(configPath)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &cfg))
		cfg["runner"] = map[string]interface{}{"fixtures_file": filepath.Join(t.TempDir(), "missing.yaml")}
		data, err = json.Marshal(cfg)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(configPath, data, 0644))

		_, _, err = execute(t, "run", "--config", configPath)
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestRunCommandFiresHooks(t *testing.T) {
	configPath, _ := writeConfig(t)
	stubLaunch(t, &deadBrowser{}, nil)
	marker := filepath.Join(t.TempDir(), "hook.txt")

	cfg := map[string]interface{}{}
	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &cfg))
	cfg["hooks"] = []map[string]interface{}{
		{"id": "alert", "event": "run:failed", "script": `echo "$PKGE2E_HOOK_DATA_FAILED" > ` + marker},
		{"id": "ok", "event": "run:passed", "script": "echo passed >> " + marker},
	}
	data, err = json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0644))

	_, _, err = execute(t, "run", "TC0", "--config", configPath)
	require.Error(t, err)

	out, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "1\n", string(out))
}

func TestRunCommandRejectsBadHook(t *testing.T) {
	configPath, _ := writeConfig(t)
	stubLaunch(t, &deadBrowser{}, nil)

	cfg := map[string]interface{}{}
	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &cfg))
	cfg["hooks"] = []map[string]interface{}{{"event": "suite:started", "script": "true"}}
	data, err = json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0644))

	_, _, err = execute(t, "run", "--config", configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown event "suite:started"`)
}

func TestScheduleCommandRejectsBadExpression(t *testing.T) {
	configPath, _ := writeConfig(t)

	_, _, err := execute(t, "schedule", "--config", configPath, "--cron", "every night")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}
