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

package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jinzhu/inflection"
	"github.com/tomoncle/rentkit/database"
	"github.com/tomoncle/rentkit/repository"
	"github.com/uptrace/bun"
)

// ErrEmptyReference is returned when a foreign key column has no parent row to point at.
var ErrEmptyReference = errors.New("referenced table has no rows")

// Generator inserts synthetic rows. It is not safe for concurrent use.
type Generator struct {
	db     *bun.DB
	repo   *repository.TableRepository
	fkm    *database.ForeignKeyManager
	rnd    *rand.Rand
	logger database.Logger
}

type Option func(*Generator)

// WithRand sets the random source, e.g. a seeded one in tests.
func WithRand(rnd *rand.Rand) Option {
	return func(g *Generator) { g.rnd = rnd }
}

// WithForeignKeys sets the constraints consulted before the naming convention.
func WithForeignKeys(fkm *database.ForeignKeyManager) Option {
	return func(g *Generator) { g.fkm = fkm }
}

func WithLogger(logger database.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New returns a Generator writing through db. schemaName qualifies table
// names on PostgreSQL.
func New(db *bun.DB, schemaName string, opts ...Option) *Generator {
	g := &Generator{
		db:     db,
		repo:   repository.NewTableRepository(db, schemaName),
		logger: database.GetLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rnd == nil {
		g.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if g.fkm == nil {
		g.fkm = database.NewForeignKeyManager(g.logger)
	}
	return g
}

// Generate inserts count rows into table in a single transaction and
// returns how many were inserted. On error nothing is inserted.
func (g *Generator) Generate(ctx context.Context, table string, count int) (int, error) {
	if count <= 0 {
		return 0, nil
	}

	plan, err := g.plan(ctx, table)
	if err != nil {
		return 0, err
	}

	inserted := 0
	err = g.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		repo := g.repo.WithTx(tx)
		for i := 0; i < count; i++ {
			columns, values, err := g.row(ctx, repo, table, plan)
			if err != nil {
				return err
			}
			if _, err := repo.Insert(ctx, table, columns, values); err != nil {
				return fmt.Errorf("failed to insert generated row %d into %s: %w", i+1, table, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	g.logger.Info("Generated rows", "table", table, "count", inserted)
	return inserted, nil
}

// row builds the values of one row. ids and foreign keys are read through
// repo so that rows inserted earlier in the same transaction are seen.
func (g *Generator) row(ctx context.Context, repo *repository.TableRepository, table string, plan []columnPlan) ([]string, []interface{}, error) {
	columns := make([]string, 0, len(plan))
	values := make([]interface{}, 0, len(plan))
	for _, p := range plan {
		var value interface{}
		switch p.kind {
		case kindSkip:
			continue
		case kindID:
			maxID, err := repo.MaxID(ctx, table, p.column.Name)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read max %s of %s: %w", p.column.Name, table, err)
			}
			value = maxID + 1
		case kindForeignKey:
			ref, ok, err := repo.RandomValue(ctx, p.refTable, p.refColumn, g.rnd)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to pick %s.%s: %w", p.refTable, p.refColumn, err)
			}
			if !ok {
				return nil, nil, fmt.Errorf("%w: %s (for %s.%s)", ErrEmptyReference, p.refTable, table, p.column.Name)
			}
			value = ref
		default:
			value = g.value(table, p)
		}
		columns = append(columns, p.column.Name)
		values = append(values, value)
	}
	return columns, values, nil
}

// plan classifies every column of table once per Generate call.
func (g *Generator) plan(ctx context.Context, table string) ([]columnPlan, error) {
	cols, err := g.repo.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	idCol, err := g.repo.IDColumn(ctx, table)
	if err != nil {
		return nil, err
	}

	plan := make([]columnPlan, 0, len(cols))
	for _, col := range cols {
		p := columnPlan{column: col}
		switch {
		case strings.EqualFold(col.Name, idCol):
			p.kind = kindID
		default:
			refTable, refColumn, ok, err := g.reference(ctx, table, col.Name)
			if err != nil {
				return nil, err
			}
			if ok {
				p.kind, p.refTable, p.refColumn = kindForeignKey, refTable, refColumn
			} else {
				p.kind = classify(col)
			}
		}
		if p.kind == kindSkip {
			g.logger.Debug("Skipping column of unsupported type", "table", table, "column", col.Name, "type", col.DataType)
		}
		plan = append(plan, p)
	}
	return plan, nil
}

// reference resolves the parent of a foreign key column: a declared
// constraint first, then "<x>_id" naming a table x or its plural.
func (g *Generator) reference(ctx context.Context, table, column string) (string, string, bool, error) {
	if fk, ok := g.fkm.FindConstraint(table, column); ok {
		return fk.ReferenceTable, fk.ReferenceColumn, true, nil
	}

	lower := strings.ToLower(column)
	if !strings.HasSuffix(lower, "_id") {
		return "", "", false, nil
	}
	base := strings.TrimSuffix(lower, "_id")
	qualifier, _ := database.SplitTableName(table)
	for _, candidate := range []string{base, inflection.Plural(base)} {
		if qualifier != "" {
			candidate = qualifier + "." + candidate
		}
		exists, err := g.repo.TableExists(ctx, candidate)
		if err != nil {
			return "", "", false, err
		}
		if !exists {
			continue
		}
		refColumn, err := g.repo.IDColumn(ctx, candidate)
		if err != nil {
			return "", "", false, err
		}
		return candidate, refColumn, true, nil
	}
	return "", "", false, nil
}
