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
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// ColumnInfo is a column as the database itself reports it.
type ColumnInfo struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	Nullable   bool   `json:"nullable"`
	Default    string `json:"default,omitempty"`
	PrimaryKey bool   `json:"primary_key"`
}

// ListColumns returns the live columns of table in declaration order. The
// schema part of a qualified name wins over schemaName; both are ignored
// outside PostgreSQL. An unknown table yields an empty slice.
func ListColumns(ctx context.Context, db bun.IDB, table, schemaName string) ([]ColumnInfo, error) {
	qualifier, bare := SplitTableName(table)
	if qualifier != "" {
		schemaName = qualifier
	}
	if schemaName == "" {
		schemaName = "public"
	}

	var rows *sql.Rows
	var err error
	name := db.Dialect().Name()
	switch name {
	case dialect.PG:
		rows, err = db.QueryContext(ctx, `SELECT c.column_name, c.data_type, c.is_nullable, c.column_default,
	EXISTS (
		SELECT 1 FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage k
			ON k.constraint_name = tc.constraint_name AND k.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = c.table_schema
			AND tc.table_name = c.table_name
			AND k.column_name = c.column_name
	) AS is_pk
FROM information_schema.columns c
WHERE c.table_schema = ? AND c.table_name = ?
ORDER BY c.ordinal_position`, schemaName, bare)
	case dialect.MySQL:
		rows, err = db.QueryContext(ctx, `SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_DEFAULT, COLUMN_KEY = 'PRI'
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`, bare)
	case dialect.SQLite:
		rows, err = db.QueryContext(ctx, "PRAGMA table_info(?)", bare)
	default:
		return nil, fmt.Errorf("column introspection is not supported for dialect %s", name)
	}
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var cols []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		var defaultNS sql.NullString
		switch name {
		case dialect.SQLite:
			var cid, notnull, pk int
			if err := rows.Scan(&cid, &col.Name, &col.DataType, &notnull, &defaultNS, &pk); err != nil {
				return nil, err
			}
			col.Nullable = notnull == 0 && pk == 0
			col.PrimaryKey = pk > 0
		default:
			var nullable string
			if err := rows.Scan(&col.Name, &col.DataType, &nullable, &defaultNS, &col.PrimaryKey); err != nil {
				return nil, err
			}
			col.Nullable = strings.EqualFold(nullable, "YES")
		}
		if defaultNS.Valid {
			col.Default = defaultNS.String
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// ListTables returns the base tables that exist in the connected database.
func ListTables(ctx context.Context, db bun.IDB, schemaName string) ([]string, error) {
	if schemaName == "" {
		schemaName = "public"
	}

	var rows *sql.Rows
	var err error
	switch name := db.Dialect().Name(); name {
	case dialect.PG:
		rows, err = db.QueryContext(ctx, `SELECT table_name FROM information_schema.tables
WHERE table_schema = ? AND table_type = 'BASE TABLE' ORDER BY table_name`, schemaName)
	case dialect.MySQL:
		rows, err = db.QueryContext(ctx, `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`)
	case dialect.SQLite:
		rows, err = db.QueryContext(ctx, `SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	default:
		return nil, fmt.Errorf("table introspection is not supported for dialect %s", name)
	}
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var tables []string
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, rows.Err()
}

// PrimaryKeyColumn returns the first primary key column of cols.
func PrimaryKeyColumn(cols []ColumnInfo) (string, bool) {
	for _, c := range cols {
		if c.PrimaryKey {
			return c.Name, true
		}
	}
	return "", false
}

// HasColumn reports whether cols contains name, case-insensitively.
func HasColumn(cols []ColumnInfo, name string) bool {
	for _, c := range cols {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}
