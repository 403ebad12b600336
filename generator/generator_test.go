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
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/tomoncle/rentkit/database"
	"github.com/tomoncle/rentkit/models"
	"github.com/tomoncle/rentkit/repository"
)

func openDB(t *testing.T) *bun.DB {
	t.Helper()
	models.Register()

	cfg := database.DefaultConfig()
	cfg.ConnectionConfig.DBName = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.ConnectionConfig.SlowQueryTime = 0

	factory, err := database.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })
	return factory.GetDB()
}

func newSeeded(db *bun.DB) *Generator {
	return New(db, "", WithRand(rand.New(rand.NewSource(7))))
}

func TestClassify(t *testing.T) {
	cases := map[string]columnKind{
		"INTEGER":                  kindInteger,
		"bigint":                   kindInteger,
		"SMALLINT":                 kindInteger,
		"serial":                   kindInteger,
		"VARCHAR(100)":             kindText,
		"character varying":        kindText,
		"text":                     kindText,
		"NUMERIC(10,2)":            kindDecimal,
		"double precision":         kindDecimal,
		"DATE":                     kindDate,
		"DATETIME":                 kindTimestamp,
		"timestamp with time zone": kindTimestamp,
		"boolean":                  kindBool,
		"BLOB":                     kindSkip,
		"jsonb":                    kindSkip,
	}
	for dataType, want := range cases {
		assert.Equal(t, want, classify(database.ColumnInfo{Name: "c", DataType: dataType}), dataType)
	}
}

func TestValue(t *testing.T) {
	g := &Generator{rnd: rand.New(rand.NewSource(1))}
	plan := func(name string, kind columnKind) columnPlan {
		return columnPlan{column: database.ColumnInfo{Name: name}, kind: kind}
	}

	for i := 0; i < 50; i++ {
		rating := g.value("review", plan("rating", kindInteger)).(int)
		assert.True(t, rating >= 1 && rating <= 5)

		price := g.value("equipment", plan("price_per_day", kindDecimal)).(decimal.Decimal)
		assert.True(t, price.GreaterThanOrEqual(decimal.NewFromInt(1)))
		assert.True(t, price.LessThanOrEqual(decimal.NewFromInt(200)))

		end := g.value("rental", plan("end_date", kindDate)).(time.Time)
		assert.True(t, end.After(baseDate))
		assert.False(t, end.After(baseDate.AddDate(0, 0, 14)))
	}

	assert.Equal(t, baseDate, g.value("rental", plan("start_date", kindDate)))
	assert.Equal(t, baseTimestamp, g.value("events", plan("created_at", kindTimestamp)))
	assert.Contains(t, equipmentNames, g.value("equipment", plan("name", kindText)))
	assert.Equal(t, "Text comment", g.value("review", plan("comment", kindText)))

	person := g.value("public.users", plan("name", kindText)).(string)
	assert.Len(t, strings.Fields(person), 2)

	email := g.value("users", plan("email", kindText)).(string)
	assert.True(t, strings.HasPrefix(email, "user-"))
	assert.True(t, strings.HasSuffix(email, "@example.com"))

	assert.Regexp(t, `^\d+ \w+`, g.value("users", plan("address", kindText)))

	for _, name := range []string{"weekend", "attendance_date", "endorsed_on"} {
		assert.Equal(t, baseDate, g.value("events", plan(name, kindDate)), name)
	}
	for _, name := range []string{"end", "end_date", "rental_end"} {
		assert.True(t, g.value("events", plan(name, kindDate)).(time.Time).After(baseDate), name)
	}
}

func TestValueSameSeedSameValues(t *testing.T) {
	plans := []columnPlan{
		{column: database.ColumnInfo{Name: "name"}, kind: kindText},
		{column: database.ColumnInfo{Name: "email"}, kind: kindText},
		{column: database.ColumnInfo{Name: "address"}, kind: kindText},
		{column: database.ColumnInfo{Name: "end_date"}, kind: kindDate},
		{column: database.ColumnInfo{Name: "price"}, kind: kindDecimal},
	}
	draw := func(seed int64) []interface{} {
		g := &Generator{rnd: rand.New(rand.NewSource(seed))}
		var out []interface{}
		for i := 0; i < 3; i++ {
			for _, p := range plans {
				out = append(out, g.value("users", p))
			}
		}
		return out
	}

	first := draw(1)
	assert.Equal(t, first, draw(1))
	assert.NotEqual(t, first, draw(2))
	assert.NotEqual(t, first[1], first[len(plans)+1], "emails repeat within a run")
}

func TestGenerateUsers(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	n, err := newSeeded(db).Generate(ctx, models.TableUsers, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	var users []models.User
	require.NoError(t, db.NewSelect().Model(&users).Order("user_id ASC").Scan(ctx))
	require.Len(t, users, 5)

	emails := make(map[string]bool)
	for i, u := range users {
		assert.EqualValues(t, i+1, u.UserID)
		assert.NotEmpty(t, u.Name)
		assert.NotEmpty(t, u.Address)
		emails[u.Email] = true
	}
	assert.Len(t, emails, 5)

	n, err = newSeeded(db).Generate(ctx, models.TableUsers, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	maxID, err := repository.NewTableRepository(db, "").MaxID(ctx, models.TableUsers, "user_id")
	require.NoError(t, err)
	assert.EqualValues(t, 7, maxID)
}

func TestGenerateRequiresParents(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	g := newSeeded(db)

	_, err := g.Generate(ctx, models.TableUsers, 3)
	require.NoError(t, err)

	n, err := g.Generate(ctx, models.TableRental, 4)
	assert.ErrorIs(t, err, ErrEmptyReference)
	assert.Zero(t, n)

	count, err := repository.NewTableRepository(db, "").Count(ctx, models.TableRental)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGenerateRespectsForeignKeys(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	g := newSeeded(db)

	for table, count := range map[string]int{models.TableUsers: 3, models.TableEquipment: 4} {
		_, err := g.Generate(ctx, table, count)
		require.NoError(t, err)
	}
	n, err := g.Generate(ctx, models.TableRental, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	n, err = g.Generate(ctx, models.TableReview, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	var rentals []models.Rental
	require.NoError(t, db.NewSelect().Model(&rentals).Relation("User").Relation("Equipment").Scan(ctx))
	require.Len(t, rentals, 20)
	for _, r := range rentals {
		require.NotNil(t, r.User)
		require.NotNil(t, r.Equipment)
		assert.True(t, r.UserID >= 1 && r.UserID <= 3)
		assert.True(t, r.EquipmentID >= 1 && r.EquipmentID <= 4)
		assert.False(t, r.EndDate.Before(r.StartDate))
	}

	var reviews []models.Review
	require.NoError(t, db.NewSelect().Model(&reviews).Scan(ctx))
	for _, rv := range reviews {
		assert.True(t, rv.Rating >= 1 && rv.Rating <= 5)
	}
}

func TestGenerateSameSeedSameRows(t *testing.T) {
	ctx := context.Background()
	fill := func() ([]models.User, []models.Rental) {
		db := openDB(t)
		g := newSeeded(db)
		for _, step := range []struct {
			table string
			count int
		}{{models.TableUsers, 4}, {models.TableEquipment, 3}, {models.TableRental, 6}} {
			_, err := g.Generate(ctx, step.table, step.count)
			require.NoError(t, err)
		}

		var users []models.User
		require.NoError(t, db.NewSelect().Model(&users).Order("user_id ASC").Scan(ctx))
		var rentals []models.Rental
		require.NoError(t, db.NewSelect().Model(&rentals).Order("rental_id ASC").Scan(ctx))
		return users, rentals
	}

	users, rentals := fill()
	usersAgain, rentalsAgain := fill()
	assert.Equal(t, users, usersAgain)
	assert.Equal(t, rentals, rentalsAgain)
}

func TestGenerateFollowsNamingConvention(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	for _, stmt := range []string{
		"CREATE TABLE categories (category_id INTEGER PRIMARY KEY, label TEXT)",
		"CREATE TABLE product (product_id INTEGER PRIMARY KEY, category_id INTEGER NOT NULL REFERENCES categories (category_id), title TEXT, payload BLOB)",
	} {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	g := newSeeded(db)

	_, err := g.Generate(ctx, "product", 1)
	assert.ErrorIs(t, err, ErrEmptyReference)

	_, err = g.Generate(ctx, "categories", 2)
	require.NoError(t, err)
	n, err := g.Generate(ctx, "product", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	row, err := repository.NewTableRepository(db, "").FindByID(ctx, "product", 5)
	require.NoError(t, err)
	assert.Contains(t, []interface{}{int64(1), int64(2)}, row["category_id"])
	assert.Equal(t, "Text title", row["title"])
	assert.Nil(t, row["payload"])
}

func TestGenerateEdgeCases(t *testing.T) {
	ctx := context.Background()
	g := newSeeded(openDB(t))

	n, err := g.Generate(ctx, models.TableUsers, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = g.Generate(ctx, "invoices", 3)
	assert.ErrorIs(t, err, database.ErrTableNotFound)
	assert.Zero(t, n)
}
