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

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/jinzhu/inflection"
	"github.com/tomoncle/rentkit/database"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// ErrColumnValueMismatch is returned by Insert when columns and values differ in length.
var ErrColumnValueMismatch = errors.New("number of columns does not match number of values")

// TableRepository addresses tables by name instead of by Go type. Names may
// be schema-qualified ("public.users"); the schema is used on PostgreSQL
// only.
type TableRepository struct {
	db     *bun.DB
	conn   bun.IDB
	schema string
}

// NewTableRepository returns a repository on db. schemaName qualifies
// unqualified names on PostgreSQL and may be empty.
func NewTableRepository(db *bun.DB, schemaName string) *TableRepository {
	return &TableRepository{db: db, conn: db, schema: schemaName}
}

// WithTx returns a copy of r whose statements run inside tx.
func (r *TableRepository) WithTx(tx bun.Tx) *TableRepository {
	return &TableRepository{db: r.db, conn: tx, schema: r.schema}
}

// DB returns the connection statements are issued on.
func (r *TableRepository) DB() bun.IDB { return r.conn }

func (r *TableRepository) isPostgres() bool {
	return r.db.Dialect().Name() == dialect.PG
}

// schemaFor returns the schema to use for name.
func (r *TableRepository) schemaFor(name string) string {
	qualifier, _ := database.SplitTableName(name)
	if qualifier != "" {
		return qualifier
	}
	return r.schema
}

// Ident returns the quoted, possibly schema-qualified identifier of table.
func (r *TableRepository) Ident(table string) bun.Ident {
	qualifier, bare := database.SplitTableName(table)
	if !r.isPostgres() {
		return bun.Ident(bare)
	}
	if qualifier == "" {
		qualifier = r.schema
	}
	if qualifier == "" {
		qualifier = "public"
	}
	return bun.Ident(qualifier + "." + bare)
}

// Columns returns the live columns of table, or ErrTableNotFound.
func (r *TableRepository) Columns(ctx context.Context, table string) ([]database.ColumnInfo, error) {
	cols, err := database.ListColumns(ctx, r.conn, table, r.schemaFor(table))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", database.ErrTableNotFound, table)
	}
	return cols, nil
}

// Tables returns the tables that exist in the database.
func (r *TableRepository) Tables(ctx context.Context) ([]string, error) {
	return database.ListTables(ctx, r.conn, r.schema)
}

// IDColumn resolves the id column of table: the registered model's primary
// key, then the live primary key, then "<singular>_id", then "<table>_id".
func (r *TableRepository) IDColumn(ctx context.Context, table string) (string, error) {
	cols, err := r.Columns(ctx, table)
	if err != nil {
		return "", err
	}
	return r.idColumn(table, cols)
}

func (r *TableRepository) idColumn(table string, cols []database.ColumnInfo) (string, error) {
	if t, ok := database.LookupTable(r.db, table); ok && len(t.PKs) > 0 {
		return t.PKs[0].Name, nil
	}
	if pk, ok := database.PrimaryKeyColumn(cols); ok {
		return pk, nil
	}
	_, bare := database.SplitTableName(table)
	for _, candidate := range []string{inflection.Singular(bare) + "_id", bare + "_id"} {
		if database.HasColumn(cols, candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", database.ErrNoPrimaryKey, table)
}

func requireColumns(table string, cols []database.ColumnInfo, names ...string) error {
	for _, name := range names {
		if !database.HasColumn(cols, name) {
			return fmt.Errorf("%w: %s.%s", database.ErrColumnNotFound, table, name)
		}
	}
	return nil
}

// Insert adds one row made of columns zipped with values.
func (r *TableRepository) Insert(ctx context.Context, table string, columns []string, values []interface{}) (int64, error) {
	if len(columns) != len(values) {
		return 0, fmt.Errorf("%w: %d columns, %d values", ErrColumnValueMismatch, len(columns), len(values))
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("no columns to insert into %s", table)
	}
	cols, err := r.Columns(ctx, table)
	if err != nil {
		return 0, err
	}
	if err := requireColumns(table, cols, columns...); err != nil {
		return 0, err
	}

	row := make(map[string]interface{}, len(columns))
	for i, column := range columns {
		row[column] = values[i]
	}
	res, err := r.conn.NewInsert().
		Model(&row).
		TableExpr("?", r.Ident(table)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateByID sets column to value on the row whose id column equals id and
// returns the number of rows changed.
func (r *TableRepository) UpdateByID(ctx context.Context, table, column string, id, value interface{}) (int64, error) {
	cols, err := r.Columns(ctx, table)
	if err != nil {
		return 0, err
	}
	if err := requireColumns(table, cols, column); err != nil {
		return 0, err
	}
	idCol, err := r.idColumn(table, cols)
	if err != nil {
		return 0, err
	}

	res, err := r.conn.NewUpdate().
		TableExpr("?", r.Ident(table)).
		Set("? = ?", bun.Ident(column), value).
		Where("? = ?", bun.Ident(idCol), id).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteByID removes the row whose id column equals id and returns the
// number of rows removed.
func (r *TableRepository) DeleteByID(ctx context.Context, table string, id interface{}) (int64, error) {
	idCol, err := r.IDColumn(ctx, table)
	if err != nil {
		return 0, err
	}

	res, err := r.conn.NewDelete().
		TableExpr("?", r.Ident(table)).
		Where("? = ?", bun.Ident(idCol), id).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindByID reads the row whose id column equals id. It returns
// sql.ErrNoRows when there is none.
func (r *TableRepository) FindByID(ctx context.Context, table string, id interface{}) (map[string]interface{}, error) {
	idCol, err := r.IDColumn(ctx, table)
	if err != nil {
		return nil, err
	}

	row := make(map[string]interface{})
	err = r.conn.NewSelect().
		TableExpr("?", r.Ident(table)).
		Where("? = ?", bun.Ident(idCol), id).
		Limit(1).
		Scan(ctx, &row)
	if err != nil {
		return nil, err
	}
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return row, nil
}

// Count returns the number of rows in table.
func (r *TableRepository) Count(ctx context.Context, table string) (int, error) {
	return r.conn.NewSelect().TableExpr("?", r.Ident(table)).Count(ctx)
}

// MaxID returns the largest value of column in table, 0 when it is empty.
func (r *TableRepository) MaxID(ctx context.Context, table, column string) (int64, error) {
	var maxID sql.NullInt64
	err := r.conn.NewSelect().
		TableExpr("?", r.Ident(table)).
		ColumnExpr("MAX(?)", bun.Ident(column)).
		Scan(ctx, &maxID)
	if err != nil {
		return 0, err
	}
	return maxID.Int64, nil
}

// RandomValue returns column of a randomly chosen row of table. ok is false
// when the table is empty. With a nil rnd the database picks the row;
// otherwise rnd picks an offset into the rows ordered by column, so a
// seeded source picks the same rows again.
func (r *TableRepository) RandomValue(ctx context.Context, table, column string, rnd *rand.Rand) (value interface{}, ok bool, err error) {
	q := r.conn.NewSelect().
		TableExpr("?", r.Ident(table)).
		ColumnExpr("?", bun.Ident(column)).
		Limit(1)
	if rnd == nil {
		random := "RANDOM()"
		if r.db.Dialect().Name() == dialect.MySQL {
			random = "RAND()"
		}
		q = q.OrderExpr(random)
	} else {
		n, err := r.Count(ctx, table)
		if err != nil {
			return nil, false, err
		}
		if n == 0 {
			return nil, false, nil
		}
		q = q.OrderExpr("? ASC", bun.Ident(column)).Offset(rnd.Intn(n))
	}

	err = q.Scan(ctx, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if b, isBytes := value.([]byte); isBytes {
		value = string(b)
	}
	return value, true, nil
}

// TableExists reports whether table is present in the database.
func (r *TableRepository) TableExists(ctx context.Context, table string) (bool, error) {
	_, bare := database.SplitTableName(table)
	tables, err := database.ListTables(ctx, r.conn, r.schemaFor(table))
	if err != nil {
		return false, err
	}
	for _, t := range tables {
		if strings.EqualFold(t, bare) {
			return true, nil
		}
	}
	return false, nil
}
