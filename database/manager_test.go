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

package database

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqliteDSN(t *testing.T) {
	for _, name := range []string{"", ":memory:"} {
		dsn := sqliteDSN(name)
		assert.True(t, strings.HasPrefix(dsn, "file:rentkit-"), dsn)
		assert.True(t, strings.HasSuffix(dsn, "?mode=memory&cache=shared"), dsn)
		assert.NotEqual(t, dsn, sqliteDSN(name), "each in-memory database is private")
	}
	assert.Equal(t, "file:x?mode=memory", sqliteDSN("file:x?mode=memory"))
	assert.Equal(t, "/tmp/data.db", sqliteDSN("/tmp/data.db"))
	assert.Equal(t, "rentkit.db", sqliteDSN("rentkit"))
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_SCHEMA", "rentals")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90")

	cfg := DefaultConnectionConfig()
	overrideFromEnv(cfg)

	assert.Equal(t, "postgres", cfg.Type)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "rentals", cfg.DefaultSchema())
	assert.Equal(t, DefaultConnectionConfig().MaxOpenConns, cfg.MaxOpenConns)
	assert.Equal(t, 90*time.Second, cfg.ConnMaxLifetime)
}

func TestDefaultSchema(t *testing.T) {
	cfg := DefaultConnectionConfig()
	assert.Empty(t, cfg.DefaultSchema())
	cfg.Type = "pgx"
	assert.Equal(t, "public", cfg.DefaultSchema())
}

func TestCreateFromConfigRejectsUnknownType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConnectionConfig.Type = "oracle"
	_, err := NewDatabaseFactory().CreateFromConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestFactoryWithoutManager(t *testing.T) {
	f := NewDatabaseFactory()
	assert.Nil(t, f.GetDB())
	assert.NoError(t, f.Close())
	assert.False(t, f.GetHealthStatus(context.Background()).Healthy)
	assert.Equal(t, &DBStats{}, f.GetStats())
	assert.Error(t, f.InitializeDatabase(context.Background(), false))
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	manager := NewDatabaseManager(memoryConfig())

	assert.Error(t, manager.Ping(ctx))
	require.NoError(t, manager.Connect(ctx))
	require.NoError(t, manager.Connect(ctx))
	require.NoError(t, manager.Ping(ctx))

	status := manager.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.Equal(t, "sqlite", status.Dialect)
	assert.Equal(t, 1, status.MaxOpenConns)

	var fkOn int
	require.NoError(t, manager.GetDB().QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fkOn))
	assert.Equal(t, 1, fkOn)

	require.NoError(t, manager.Disconnect())
	assert.Nil(t, manager.GetDB())
	assert.False(t, manager.HealthCheck(ctx).Healthy)
}

func TestGlobalDatabase(t *testing.T) {
	t.Cleanup(func() { _ = CloseDB() })

	assert.Nil(t, GetDB())
	assert.False(t, GetHealthStatus(context.Background()).Healthy)

	db, err := InitDB(memoryConfig())
	require.NoError(t, err)
	assert.Same(t, db, GetDB())
	assert.NotNil(t, GetDatabaseManager())
	assert.True(t, GetHealthStatus(context.Background()).Healthy)
	assert.Equal(t, 1, GetDatabaseStats().MaxOpenConns)

	require.NoError(t, CloseDB())
	assert.Nil(t, GetDB())
}

func TestPostgresDSNEscapesCredentials(t *testing.T) {
	cfg := ConnectionConfig{
		Type:           "postgres",
		Host:           "db.internal",
		Port:           5433,
		Username:       "rent@kit",
		Password:       "p@ss/w:rd?#",
		DBName:         "rentals",
		ConnectTimeout: 5 * time.Second,
	}

	u, err := url.Parse(postgresDSN(cfg, "require"))
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "rent@kit", u.User.Username())
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss/w:rd?#", password)
	assert.Equal(t, "db.internal:5433", u.Host)
	assert.Equal(t, "/rentals", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
	assert.Equal(t, "5", u.Query().Get("connect_timeout"))
	assert.False(t, u.Query().Has("search_path"))

	cfg.Schema = "rentals"
	u, err = url.Parse(postgresDSN(cfg, "disable"))
	require.NoError(t, err)
	assert.Equal(t, "rentals", u.Query().Get("search_path"))
}

func TestGlobalDatabaseSeeding(t *testing.T) {
	ctx := context.Background()
	t.Cleanup(func() { _ = CloseDB() })

	assert.Error(t, InitData(ctx))
	_, err := InitDataWithSQL(ctx, "test")
	assert.Error(t, err)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "common", "001_notes.sql"), "INSERT INTO notes (body) VALUES ('{{.ENVIRONMENT}}');")
	writeFile(t, filepath.Join(root, "environments", "test", "001_notes.sql"), "INSERT INTO notes (body) VALUES ('only test');")

	cfg := memoryConfig()
	cfg.DataInitConfig.Filepath = root
	cfg.DataInitConfig.Environment = "prod"
	db, err := InitDB(cfg)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL)")
	require.NoError(t, err)

	require.NoError(t, InitData(ctx))
	results, err := InitDataWithSQL(ctx, "test")
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Success, r.File)
	}

	var bodies []string
	require.NoError(t, db.NewSelect().Table("notes").Column("body").Order("id ASC").Scan(ctx, &bodies))
	assert.Equal(t, []string{"prod", "test", "only test"}, bodies)
}
