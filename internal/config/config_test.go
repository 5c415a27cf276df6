package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "mcpwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("loads a single glob-string watch_pattern", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "server_command: node\nserver_args: [server.js]\nwatch_pattern: ./src/**/*.ts\n")

		cfg, err := Load(path, viper.New())
		require.NoError(t, err)
		assert.Equal(t, "node", cfg.ServerCommand)
		assert.Equal(t, []string{"server.js"}, cfg.ServerArgs)
		assert.Equal(t, []string{"./src/**/*.ts"}, []string(cfg.WatchPattern))
		assert.Equal(t, 300, cfg.DebounceMs)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads a list watch_pattern", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "server_command: node\nwatch_pattern:\n  - ./src/**/*.ts\n  - ./lib/**/*.js\ndebounce_ms: 500\n")

		cfg, err := Load(path, viper.New())
		require.NoError(t, err)
		assert.Equal(t, []string{"./src/**/*.ts", "./lib/**/*.js"}, []string(cfg.WatchPattern))
		assert.Equal(t, 500, cfg.DebounceMs)
	})

	t.Run("missing required server_command fails validation", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "watch_pattern: ./src\n")

		_, err := Load(path, viper.New())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})

	t.Run("rejects insecure permissions", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "mcpwatch.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server_command: node\nwatch_pattern: ./src\n"), 0644))

		_, err := Load(path, viper.New())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insecure permissions")
	})

	t.Run("env vars override config file", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "server_command: node\nwatch_pattern: ./src\nlog_level: info\n")
		t.Setenv("MCPWATCH_LOG_LEVEL", "debug")

		cfg, err := Load(path, viper.New())
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("no config file still honors defaults plus env", func(t *testing.T) {
		t.Setenv("MCPWATCH_SERVER_COMMAND", "python")
		t.Setenv("MCPWATCH_WATCH_PATTERN", "./app")

		cfg, err := Load("", viper.New())
		require.NoError(t, err)
		assert.Equal(t, "python", cfg.ServerCommand)
		assert.Equal(t, 300, cfg.DebounceMs)
	})
}

func TestResolveEnv(t *testing.T) {
	t.Run("resolves $VAR references", func(t *testing.T) {
		t.Setenv("MY_SECRET", "s3cret")
		env := map[string]string{
			"API_KEY":  "$MY_SECRET",
			"LITERAL":  "plain-value",
			"COMBINED": "prefix-$MY_SECRET-suffix",
		}
		resolved := ResolveEnv(env)
		assert.Equal(t, "s3cret", resolved["API_KEY"])
		assert.Equal(t, "plain-value", resolved["LITERAL"])
		assert.Equal(t, "prefix-s3cret-suffix", resolved["COMBINED"])
	})

	t.Run("unset var resolves to empty string", func(t *testing.T) {
		env := map[string]string{"KEY": "$UNSET_VAR_MCPWATCH_TEST"}
		resolved := ResolveEnv(env)
		assert.Equal(t, "", resolved["KEY"])
	})

	t.Run("nil env returns nil", func(t *testing.T) {
		assert.Nil(t, ResolveEnv(nil))
	})
}
