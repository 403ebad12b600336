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

package rentkit

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/tomoncle/rentkit/database"
	"github.com/tomoncle/rentkit/generator"
	"github.com/tomoncle/rentkit/models"
	"github.com/tomoncle/rentkit/repository"
	"github.com/uptrace/bun"
)

// Model is the data-access object over one database connection. It is
// meant for a single synchronous caller.
type Model struct {
	factory *database.BaseDatabaseFactory
	config  *database.Config
	db      *bun.DB
	repo    *repository.TableRepository
	fkm     *database.ForeignKeyManager
	gen     *generator.Generator
	logger  database.Logger
	rnd     *rand.Rand
}

type Option func(*Model)

func WithLogger(logger database.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRand seeds data generation, for reproducible runs.
func WithRand(rnd *rand.Rand) Option {
	return func(m *Model) { m.rnd = rnd }
}

// New registers the rental models, connects according to cfg and, when
// cfg.DataMigrateConfig.EnableMigrateOnStartup is set, creates the tables.
func New(ctx context.Context, cfg *database.Config, opts ...Option) (*Model, error) {
	if cfg == nil {
		cfg = database.DefaultConfig()
	}
	models.Register()

	m := &Model{config: cfg, logger: database.GetLogger()}
	for _, opt := range opts {
		opt(m)
	}

	factory, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	factory.SetLogger(m.logger)

	m.factory = factory
	m.db = factory.GetDB()
	m.fkm = database.NewForeignKeyManagerFromConfig(&cfg.DataMigrateConfig, m.logger)
	schemaName := cfg.ConnectionConfig.DefaultSchema()
	m.repo = repository.NewTableRepository(m.db, schemaName)
	m.gen = generator.New(m.db, schemaName,
		generator.WithForeignKeys(m.fkm),
		generator.WithLogger(m.logger),
		generator.WithRand(m.rnd),
	)
	return m, nil
}

// DB returns the underlying Bun handle.
func (m *Model) DB() *bun.DB { return m.db }

// ForeignKeys returns the foreign key constraints in effect.
func (m *Model) ForeignKeys() *database.ForeignKeyManager { return m.fkm }

// GetAllTables returns the names of the registered tables, parents first.
func (m *Model) GetAllTables() []string {
	tables := database.RegisteredTables(m.db)
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}

// GetAllColumns returns the column names of a registered table in
// declaration order.
func (m *Model) GetAllColumns(table string) ([]string, error) {
	t, ok := database.LookupTable(m.db, table)
	if !ok {
		return nil, fmt.Errorf("%w: %s", database.ErrTableNotFound, table)
	}
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names, nil
}

// LiveTables returns the tables present in the database, registered or not.
func (m *Model) LiveTables(ctx context.Context) ([]string, error) {
	return m.repo.Tables(ctx)
}

// LiveColumns returns the columns of table as the database reports them.
func (m *Model) LiveColumns(ctx context.Context, table string) ([]database.ColumnInfo, error) {
	return m.repo.Columns(ctx, table)
}

// AddData inserts one row made of columns zipped with values and reports
// whether it was stored.
func (m *Model) AddData(ctx context.Context, table string, columns []string, values []interface{}) bool {
	if _, err := m.repo.Insert(ctx, table, columns, values); err != nil {
		m.logFailure("Failed to insert data", table, err)
		return false
	}
	return true
}

// UpdateData sets column to newValue on the row whose id is id. It reports
// false when the statement fails or no row has that id.
func (m *Model) UpdateData(ctx context.Context, table, column string, id, newValue interface{}) bool {
	n, err := m.repo.UpdateByID(ctx, table, column, id, newValue)
	if err != nil {
		m.logFailure("Failed to update data", table, err, "column", column, "id", id)
		return false
	}
	if n == 0 {
		m.logger.Warn("No row to update", "table", table, "id", id)
		return false
	}
	return true
}

// DeleteData removes the row whose id is id. It reports false when the
// statement fails or no row has that id.
func (m *Model) DeleteData(ctx context.Context, table string, id interface{}) bool {
	n, err := m.repo.DeleteByID(ctx, table, id)
	if err != nil {
		m.logFailure("Failed to delete data", table, err, "id", id)
		return false
	}
	if n == 0 {
		m.logger.Warn("No row to delete", "table", table, "id", id)
		return false
	}
	return true
}

// FindData reads the row whose id is id.
func (m *Model) FindData(ctx context.Context, table string, id interface{}) (map[string]interface{}, error) {
	return m.repo.FindByID(ctx, table, id)
}

// GenerateData inserts count synthetic rows into table and returns how many
// were inserted.
func (m *Model) GenerateData(ctx context.Context, table string, count int) (int, error) {
	n, err := m.gen.Generate(ctx, table, count)
	if err != nil {
		m.logFailure("Failed to generate data", table, err, "count", count)
		return 0, err
	}
	return n, nil
}

// Migrate creates the registered tables if they do not exist yet.
func (m *Model) Migrate(ctx context.Context) error {
	return m.factory.GetManager().RunMigrations(ctx)
}

// Seed runs the SQL seed files of environment; an empty environment means
// the configured one.
func (m *Model) Seed(ctx context.Context, environment string) ([]database.ExecutionResult, error) {
	if environment == "" {
		environment = m.config.DataInitConfig.Environment
	}
	sqlManager := database.NewSQLInitManager(m.db, environment)
	if m.config.DataInitConfig.Filepath != "" {
		sqlManager.SetSQLRootPath(m.config.DataInitConfig.Filepath)
	}
	sqlManager.SetLogger(m.logger)
	return sqlManager.ExecuteInitialization(ctx)
}

func (m *Model) Health(ctx context.Context) *database.HealthStatus {
	return m.factory.GetHealthStatus(ctx)
}

func (m *Model) Stats() *database.DBStats {
	return m.factory.GetStats()
}

// Close releases the connection. The Model must not be used afterwards.
func (m *Model) Close() error {
	if m.factory == nil {
		return nil
	}
	return m.factory.Close()
}

func (m *Model) logFailure(msg, table string, err error, fields ...interface{}) {
	fields = append([]interface{}{"table", table, "kind", database.ErrorKind(err).String(), "error", err}, fields...)
	m.logger.Error(msg, fields...)
}
