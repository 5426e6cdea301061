package hooks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizpractice/pkge2e/pkg/scenario"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestNewManagerValidation(t *testing.T) {
	tests := []struct {
		name string
		hook Hook
		want string
	}{
		{"missing event", Hook{Script: "true"}, "event is required"},
		{"unknown event", Hook{Event: "daemon:startup", Script: "true"}, `unknown event "daemon:startup"`},
		{"missing script", Hook{Event: EventRunFailed}, "script is required"},
		{"negative timeout", Hook{Event: EventRunFailed, Script: "true", Timeout: -time.Second}, "timeout must be >= 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager([]Hook{tt.hook}, zerolog.Nop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	m, err := NewManager([]Hook{
		{Event: " run:failed ", Script: "true"},
		{Event: EventRunFinished, Script: "true"},
	}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
}

func TestTriggerExportsEventData(t *testing.T) {
	out := filepath.Join(t.TempDir(), "env.txt")
	m, err := NewManager([]Hook{{
		ID:     "notify",
		Event:  EventRunFailed,
		Script: `echo "$PKGE2E_HOOK_EVENT:$PKGE2E_HOOK_DATA_RUN_ID:$PKGE2E_HOOK_DATA_FAILED" > ` + out,
	}}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, m.Trigger(context.Background(), EventRunFailed, map[string]interface{}{
		"run-id": "r1",
		"failed": 2,
	}))
	assert.Equal(t, "run:failed:r1:2\n", readFile(t, out))
}

func TestTriggerRunsEveryHookAndJoinsErrors(t *testing.T) {
	out := filepath.Join(t.TempDir(), "second.txt")
	m, err := NewManager([]Hook{
		{ID: "broken", Event: EventRunFinished, Script: "echo boom; exit 3"},
		{ID: "second", Event: EventRunFinished, Script: "echo ran > " + out},
	}, zerolog.Nop())
	require.NoError(t, err)

	err = m.Trigger(context.Background(), EventRunFinished, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hook broken failed")
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, "ran\n", readFile(t, out))
}

func TestTriggerTimeout(t *testing.T) {
	m, err := NewManager([]Hook{{
		ID:      "slow",
		Event:   EventRunPassed,
		Script:  "sleep 5",
		Timeout: 50 * time.Millisecond,
	}}, zerolog.Nop())
	require.NoError(t, err)

	start := time.Now()
	err = m.Trigger(context.Background(), EventRunPassed, nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestTriggerWithoutHooks(t *testing.T) {
	var nilManager *Manager
	assert.NoError(t, nilManager.Trigger(context.Background(), EventRunPassed, nil))
	assert.NoError(t, nilManager.ReportRun(context.Background(), &scenario.Report{}, ""))

	m, err := NewManager(nil, zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, m.Trigger(context.Background(), EventRunPassed, nil))
}

func TestReportRunFiresOutcomeEvents(t *testing.T) {
	dir := t.TempDir()
	log := filepath.Join(dir, "events.txt")
	script := `echo "$PKGE2E_HOOK_EVENT $PKGE2E_HOOK_DATA_PASSED/$PKGE2E_HOOK_DATA_FAILED/$PKGE2E_HOOK_DATA_SKIPPED $PKGE2E_HOOK_DATA_REPORT" >> ` + log

	m, err := NewManager([]Hook{
		{Event: EventRunFinished, Script: script},
		{Event: EventRunPassed, Script: script},
		{Event: EventRunFailed, Script: script},
	}, zerolog.Nop())
	require.NoError(t, err)

	failed := &scenario.Report{
		RunID: "r1",
		Suite: "Price Package",
		Results: []scenario.Result{
			{ID: "TC0", Status: scenario.StatusPassed},
			{ID: "TC1", Status: scenario.StatusFailed},
			{ID: "TC2", Status: scenario.StatusSkipped},
		},
	}
	require.NoError(t, m.ReportRun(context.Background(), failed, "/tmp/report.json"))

	passed := &scenario.Report{
		RunID:   "r2",
		Results: []scenario.Result{{ID: "TC0", Status: scenario.StatusPassed}},
	}
	require.NoError(t, m.ReportRun(context.Background(), passed, ""))

	lines := strings.Split(strings.TrimSpace(readFile(t, log)), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	assert.Equal(t, []string{
		"run:finished 1/1/1 /tmp/report.json",
		"run:failed 1/1/1 /tmp/report.json",
		"run:finished 1/0/0",
		"run:passed 1/0/0",
	}, lines)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "RUN_ID", envKey("run_id"))
	assert.Equal(t, "REPORT_FILE", envKey(" report.file "))
	assert.Equal(t, "UNKNOWN", envKey(""))
}
