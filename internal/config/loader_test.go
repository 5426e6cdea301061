package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizpractice/pkge2e/pkg/browser"
	"github.com/quizpractice/pkge2e/pkg/dbsession"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.json", loader.configPath)
}

func TestLoaderLoad(t *testing.T) {
	t.Run("load default config when file doesn't exist", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "nonexistent.json")

		loader := NewLoader(configPath)
		cfg, err := loader.Load()

		require.NoError(t, err)
		assert.NotNil(t, cfg)
		assert.Equal(t, dbsession.DriverSQLServer, cfg.Database.Driver)
		assert.Equal(t, "day@gmail.com", cfg.Target.AdminEmail)
	})

	t.Run("load config from file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")

		testConfig := `{
			"database": {
				"driver": "sqlite3",
				"path": "/var/lib/quiz.db",
				"idle_timeout": "5s"
			},
			"browser": {
				"engine": "playwright",
				"timeout": "10s"
			},
			"target": {
				"base_url": "https://qa.example.com/QuizPractice",
				"subject_id": 4
			}
		}`
		err := os.WriteFile(configPath, []byte(testConfig), 0644)
		require.NoError(t, err)

		loader := NewLoader(configPath)
		cfg, err := loader.Load()

		require.NoError(t, err)
		assert.Equal(t, dbsession.DriverSQLite, cfg.Database.Driver)
		assert.Equal(t, "/var/lib/quiz.db", cfg.Database.Path)
		assert.Equal(t, 5*time.Second, cfg.Database.IdleTimeout)
		assert.Equal(t, browser.EnginePlaywright, cfg.Browser.Engine)
		assert.Equal(t, 10*time.Second, cfg.Browser.Timeout)
		assert.Equal(t, 4, cfg.Target.SubjectID)

		// untouched keys keep their defaults
		assert.True(t, cfg.Browser.Headless)
		assert.Equal(t, "day@gmail.com", cfg.Target.AdminEmail)
		assert.Equal(t, "Quiz_Practice", cfg.Database.Database)
	})

	t.Run("set default paths", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")

		err := os.WriteFile(configPath, []byte(`{}`), 0644)
		require.NoError(t, err)

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, tmpDir, cfg.DataDir)
		assert.Equal(t, filepath.Join(tmpDir, "artifacts"), cfg.Runner.ArtifactsDir)
	})

	t.Run("environment overrides", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")

		err := os.WriteFile(configPath, []byte(`{"database": {"password": "from-file"}}`), 0644)
		require.NoError(t, err)

		t.Setenv("PKGE2E_DATABASE_PASSWORD", "from-env")
		t.Setenv("PKGE2E_BROWSER_HEADLESS", "false")
		t.Setenv("PKGE2E_RUNNER_REPORT_FILE", "/tmp/report.json")

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Database.Password)
		assert.False(t, cfg.Browser.Headless)
		assert.Equal(t, "/tmp/report.json", cfg.Runner.ReportFile)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "invalid.json")

		err := os.WriteFile(configPath, []byte("invalid json"), 0644)
		require.NoError(t, err)

		loader := NewLoader(configPath)
		_, err = loader.Load()

		assert.Error(t, err)
	})
}

func TestLoaderSave(t *testing.T) {
	t.Run("save config to file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")

		cfg := DefaultConfig()
		cfg.Database.Host = "db.internal"
		cfg.Browser.Timeout = 12 * time.Second
		cfg.Target.SubjectID = 9

		loader := NewLoader(configPath)
		err := loader.Save(cfg)

		require.NoError(t, err)

		// Verify file was created
		_, err = os.Stat(configPath)
		assert.NoError(t, err)

		// Load and verify
		loadedCfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)
		assert.Equal(t, "db.internal", loadedCfg.Database.Host)
		assert.Equal(t, 12*time.Second, loadedCfg.Browser.Timeout)
		assert.Equal(t, 9, loadedCfg.Target.SubjectID)
	})

	t.Run("create directory if not exists", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "subdir", "config.json")

		loader := NewLoader(configPath)
		err := loader.Save(DefaultConfig())

		require.NoError(t, err)

		// Verify directory was created
		_, err = os.Stat(filepath.Dir(configPath))
		assert.NoError(t, err)
	})
}

func TestLoaderGetConfigPath(t *testing.T) {
	t.Run("custom path", func(t *testing.T) {
		loader := NewLoader("/custom/path/config.json")
		path := loader.GetConfigPath()
		assert.Equal(t, "/custom/path/config.json", path)
	})

	t.Run("default path", func(t *testing.T) {
		loader := NewLoader("")
		path := loader.GetConfigPath()
		assert.NotEmpty(t, path)
		assert.Contains(t, path, ".pkge2e")
	})
}

func TestLoaderLoadHooks(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(configPath, []byte(`{
		"hooks": [
			{"id": "page-oncall", "event": "run:failed", "script": "notify.sh", "timeout": "30s"}
		]
	}`), 0644)
	require.NoError(t, err)

	cfg, err := NewLoader(configPath).Load()
	require.NoError(t, err)

	require.Len(t, cfg.Hooks, 1)
	assert.Equal(t, "page-oncall", cfg.Hooks[0].ID)
	assert.Equal(t, "run:failed", cfg.Hooks[0].Event)
	assert.Equal(t, 30*time.Second, cfg.Hooks[0].Timeout)
	assert.NoError(t, cfg.Validate())

	cfg.Hooks[0].Event = "daemon:startup"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hooks:")
}
