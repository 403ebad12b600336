/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/rentkit/utils"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{SearchPaths: []string{t.TempDir()}})
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "rentkit", cfg.Database.DBName)
	assert.Equal(t, 2*time.Second, cfg.Database.SlowQueryTime)
	assert.True(t, cfg.Migrate.OnStartup)
	assert.True(t, cfg.Migrate.ForeignKeys)
	assert.Equal(t, "prod", cfg.Seed.Environment)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, "rentkit.yaml", `
database:
  type: postgres
  host: db.local
  port: 5432
  username: rent
  dbname: rentals
  schema: shop
  sslmode: disable
  conn_max_lifetime: 15m
migrate:
  foreign_key_file: configs/foreign_keys.yaml
seed:
  environment: dev
log:
  level: debug
  format: json
`)
	cfg, err := Load(Options{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 15*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "json", cfg.Log.Format)

	db := cfg.ConfigLoader()
	assert.Equal(t, "db.local", db.ConnectionConfig.Host)
	assert.Equal(t, "shop", db.ConnectionConfig.DefaultSchema())
	assert.Equal(t, "configs/foreign_keys.yaml", db.DataMigrateConfig.ForeignKeyFile)
	assert.True(t, db.DataMigrateConfig.EnableForeignKey)
	assert.Equal(t, "dev", db.DataInitConfig.Environment)
	assert.Equal(t, 30*time.Second, db.ConnectionConfig.ReadTimeout)
}

func TestLoadSearchPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte("database:\n  dbname: found\n"), 0644))

	cfg, err := Load(Options{ConfigName: "custom", SearchPaths: []string{dir}})
	require.NoError(t, err)
	assert.Equal(t, "found", cfg.Database.DBName)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "rentkit.yaml", "database:\n  dbname: from-file\n")
	t.Setenv("RENTKIT_DATABASE_DBNAME", "from-env")
	t.Setenv("RENTKIT_MIGRATE_ON_STARTUP", "false")

	cfg, err := Load(Options{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Database.DBName)
	assert.False(t, cfg.Migrate.OnStartup)
}

func TestLoadEnvFile(t *testing.T) {
	envFile := writeConfig(t, ".env", "RENTKIT_SEED_ENVIRONMENT=staging\n")
	t.Cleanup(func() { _ = os.Unsetenv("RENTKIT_SEED_ENVIRONMENT") })

	cfg, err := Load(Options{SearchPaths: []string{t.TempDir()}, EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Seed.Environment)

	_, err = Load(Options{SearchPaths: []string{t.TempDir()}, EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	assert.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorContains(t, err, "error reading config file")

	path := writeConfig(t, "bad-type.yaml", "database:\n  type: oracle\n")
	_, err = Load(Options{ConfigFile: path})
	assert.ErrorContains(t, err, "Config.Database.Type must be one of")

	path = writeConfig(t, "no-host.yaml", "database:\n  type: mysql\n")
	_, err = Load(Options{ConfigFile: path})
	assert.ErrorContains(t, err, "database.host is required for mysql")

	path = writeConfig(t, "bad-port.yaml", "database:\n  port: 70000\n")
	_, err = Load(Options{ConfigFile: path})
	assert.ErrorContains(t, err, "Config.Database.Port is out of range")
}

func TestApplyLogging(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "warn", Format: "text"}}
	assert.NoError(t, cfg.ApplyLogging().Close())

	t.Cleanup(func() { utils.ConfigureConsoleOutput(os.Stdout) })
	cfg.Log.File = filepath.Join(t.TempDir(), "rentkit.log")
	closer := cfg.ApplyLogging()
	require.NotNil(t, closer)

	lg := utils.NewLogger("APPLY_LOGGING_TEST")
	lg.Warn("into the file")
	require.NoError(t, closer.Close())
	before, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(before), "into the file")

	lg.Warn("console only")
	after, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
