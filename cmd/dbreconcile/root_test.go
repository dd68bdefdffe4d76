package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/spf13/viper"

	"github.com/stokaro/dbreconcile/cmd/updatestructure"
)

func TestInitConfig_File(t *testing.T) {
	c := qt.New(t)

	cfgFile := filepath.Join(t.TempDir(), "dbreconcile.yaml")
	c.Assert(os.WriteFile(cfgFile, []byte(`
db-url: mysql://root@localhost/typo3
remove: true
compare:
  ignored-tables:
    - sys_log
  ignore-not-null: true
`), 0644), qt.IsNil)

	v := viper.New()
	updatestructure.NewUpdateStructureCommand(v)
	c.Assert(initConfig(v, cfgFile), qt.IsNil)

	opts, err := updatestructure.ReconcileOptions(v)
	c.Assert(err, qt.IsNil)
	c.Assert(opts.Remove, qt.IsTrue)
	c.Assert(opts.Compare, qt.IsNotNil)
	c.Assert(opts.Compare.IgnoredTables, qt.DeepEquals, []string{"sys_log"})
	c.Assert(opts.Compare.IgnoreNotNull, qt.IsTrue)

	settings, err := updatestructure.ReadSettings(v)
	c.Assert(err, qt.IsNil)
	c.Assert(settings.DatabaseURL, qt.Equals, "mysql://root@localhost/typo3")
}

func TestInitConfig_MissingExplicitFile(t *testing.T) {
	c := qt.New(t)

	err := initConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	c.Assert(err, qt.ErrorMatches, "failed to read config file: .*")
}

func TestInitConfig_Environment(t *testing.T) {
	c := qt.New(t)
	t.Setenv("DBRECONCILE_DB_URL", "postgres://postgres@localhost/app")
	t.Setenv("DBRECONCILE_DROP_KEYS", "true")

	v := viper.New()
	updatestructure.NewUpdateStructureCommand(v)
	c.Assert(initConfig(v, ""), qt.IsNil)

	settings, err := updatestructure.ReadSettings(v)
	c.Assert(err, qt.IsNil)
	c.Assert(settings.DatabaseURL, qt.Equals, "postgres://postgres@localhost/app")

	opts, err := updatestructure.ReconcileOptions(v)
	c.Assert(err, qt.IsNil)
	c.Assert(opts.AllowKeyModifications, qt.IsTrue)
}

func TestLoadEnvFile(t *testing.T) {
	c := qt.New(t)

	t.Setenv("DBRECONCILE_DATABASE", "")
	c.Assert(os.Unsetenv("DBRECONCILE_DATABASE"), qt.IsNil)

	envFile := filepath.Join(t.TempDir(), ".env")
	c.Assert(os.WriteFile(envFile, []byte("DBRECONCILE_DATABASE=typo3\n"), 0644), qt.IsNil)

	c.Assert(loadEnvFile(envFile), qt.IsNil)
	c.Assert(os.Getenv("DBRECONCILE_DATABASE"), qt.Equals, "typo3")

	c.Assert(loadEnvFile(filepath.Join(t.TempDir(), "missing.env")), qt.IsNil)
	c.Assert(loadEnvFile(""), qt.IsNil)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c := qt.New(t)

			level, err := parseLogLevel(tt.in)
			if tt.wantErr {
				c.Assert(err, qt.ErrorMatches, `invalid log level "loud".*`)
				return
			}
			c.Assert(err, qt.IsNil)
			c.Assert(level, qt.Equals, tt.want)
		})
	}
}

func TestRootCommand_RequiresDatabaseURL(t *testing.T) {
	c := qt.New(t)
	t.Setenv("DBRECONCILE_DB_URL", "")

	cmd := newRootCommand()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"update-structure", "--env-file", ""})

	err := cmd.Execute()
	c.Assert(err, qt.ErrorMatches, "database URL is required.*")
}
