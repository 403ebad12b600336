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
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"github.com/shopspring/decimal"
	"github.com/tomoncle/rentkit/database"
)

type columnKind int

const (
	kindSkip columnKind = iota
	kindID
	kindForeignKey
	kindInteger
	kindText
	kindDecimal
	kindDate
	kindTimestamp
	kindBool
)

type columnPlan struct {
	column    database.ColumnInfo
	kind      columnKind
	refTable  string
	refColumn string
}

var (
	baseDate      = time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)
	baseTimestamp = time.Date(2022, time.January, 1, 8, 30, 0, 0, time.FixedZone("", 3*60*60))

	firstNames     = []string{"Alice", "Bob", "Carol", "David", "Erin", "Frank", "Grace", "Heidi", "Ivan", "Judy"}
	lastNames      = []string{"Smith", "Johnson", "Brown", "Taylor", "Anderson", "Thomas", "Moore", "Martin"}
	streets        = []string{"Main St", "Oak Ave", "Pine Rd", "Maple Dr", "Cedar Ln", "Elm St", "Lake View"}
	equipmentNames = []string{"Mountain Bike", "Kayak", "Camping Tent", "Snowboard", "Drill", "Ladder", "Pressure Washer", "Canoe"}
)

// classify maps a declared SQL type onto a value kind. Order matters:
// "datetime" must not be taken for "date" and "bigint" is still an int.
func classify(col database.ColumnInfo) columnKind {
	t := strings.ToLower(col.DataType)
	switch {
	case strings.Contains(t, "timestamp"), strings.Contains(t, "datetime"):
		return kindTimestamp
	case strings.Contains(t, "date"):
		return kindDate
	case strings.Contains(t, "bool"):
		return kindBool
	case strings.Contains(t, "int"), strings.Contains(t, "serial"):
		return kindInteger
	case strings.Contains(t, "char"), strings.Contains(t, "text"), strings.Contains(t, "clob"):
		return kindText
	case strings.Contains(t, "numeric"), strings.Contains(t, "decimal"), strings.Contains(t, "money"),
		strings.Contains(t, "real"), strings.Contains(t, "double"), strings.Contains(t, "float"):
		return kindDecimal
	}
	return kindSkip
}

func (g *Generator) value(table string, p columnPlan) interface{} {
	name := strings.ToLower(p.column.Name)
	switch p.kind {
	case kindInteger:
		if strings.Contains(name, "rating") {
			return 1 + g.rnd.Intn(5)
		}
		return g.rnd.Intn(100)
	case kindText:
		return g.text(table, name, p.column.Name)
	case kindDecimal:
		// 1.00 to 200.00
		return decimal.New(int64(100+g.rnd.Intn(19901)), -2)
	case kindDate:
		if isEndDate(name) {
			return baseDate.AddDate(0, 0, 1+g.rnd.Intn(14))
		}
		return baseDate
	case kindTimestamp:
		return baseTimestamp
	case kindBool:
		return g.rnd.Intn(2) == 1
	}
	return nil
}

func (g *Generator) text(table, name, column string) string {
	switch {
	case strings.Contains(name, "email"):
		// drawn from g.rnd so that seeded runs repeat
		id, err := uuid.NewRandomFromReader(g.rnd)
		if err != nil {
			id = uuid.New()
		}
		return fmt.Sprintf("user-%s@example.com", id)
	case name == "name":
		_, bare := database.SplitTableName(table)
		if inflection.Singular(strings.ToLower(bare)) == "user" {
			return pick(g, firstNames) + " " + pick(g, lastNames)
		}
		return pick(g, equipmentNames)
	case strings.Contains(name, "address"):
		return fmt.Sprintf("%d %s", 1+g.rnd.Intn(999), pick(g, streets))
	}
	return "Text " + column
}

// isEndDate reports whether a date column closes a range, e.g. "end_date"
// or "rental_end". "weekend" and "attendance_date" are not.
func isEndDate(name string) bool {
	return name == "end" || strings.HasPrefix(name, "end_") || strings.HasSuffix(name, "_end")
}

func pick(g *Generator, values []string) string {
	return values[g.rnd.Intn(len(values))]
}
