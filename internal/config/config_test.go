package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inEmptyDir runs the test from a directory without .env or trgovina.yaml
// and with the user config dir pointed at it.
func inEmptyDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inEmptyDir(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "trgovina.sqlite3", cfg.Server.DB)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, "@every 15m", cfg.Scheduler.StockSpec)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 50*time.Millisecond, cfg.Scanner.MaxKeyInterval)
	assert.Equal(t, 4, cfg.Scanner.MinLength)
	assert.Equal(t, 300*time.Millisecond, cfg.POS.SearchDebounce)
	assert.Equal(t, "http://localhost:8080/api", cfg.Client.BaseURL)
}

func TestLoadPriority(t *testing.T) {
	dir := inEmptyDir(t)

	yaml := "server:\n  addr: \":9000\"\n  db: from-file.db\nlog:\n  level: debug\nscanner:\n  min_length: 6\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trgovina.yaml"), []byte(yaml), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TRGOVINA_LOG_FORMAT=json\n"), 0o600))
	t.Setenv("TRGOVINA_SERVER_DB", "from-env.db")
	t.Cleanup(func() { os.Unsetenv("TRGOVINA_LOG_FORMAT") })

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("addr", "", "")
	require.NoError(t, fs.Parse([]string{"--addr", ":7000"}))

	cfg, err := Load("", fs, FlagKey{Flag: "addr", Key: "server.addr"})
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr, "flag beats file")
	assert.Equal(t, "from-env.db", cfg.Server.DB, "env beats file")
	assert.Equal(t, "debug", cfg.Log.Level, "file beats default")
	assert.Equal(t, "json", cfg.Log.Format, ".env is loaded")
	assert.Equal(t, 6, cfg.Scanner.MinLength)
}

func TestUnchangedFlagKeepsConfigValue(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("TRGOVINA_SERVER_ADDR", ":6000")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("addr", "", "")
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load("", fs, FlagKey{Flag: "addr", Key: "server.addr"})
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.Server.Addr)
}

func TestExplicitFileMustExist(t *testing.T) {
	dir := inEmptyDir(t)
	_, err := Load(filepath.Join(dir, "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestUnknownFlag(t *testing.T) {
	inEmptyDir(t)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	_, err := Load("", fs, FlagKey{Flag: "missing", Key: "server.addr"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	inEmptyDir(t)
	base, err := Load("", nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero access ttl", func(c *Config) { c.JWT.AccessTTL = 0 }},
		{"refresh shorter than access", func(c *Config) { c.JWT.RefreshTTL = time.Minute }},
		{"no login burst", func(c *Config) { c.Auth.LoginBurst = 0 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"zero scanner length", func(c *Config) { c.Scanner.MinLength = 0 }},
		{"negative debounce", func(c *Config) { c.POS.SearchDebounce = -time.Second }},
		{"no base url", func(c *Config) { c.Client.BaseURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
