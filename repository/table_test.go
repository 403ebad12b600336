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

package repository_test

import (
	"context"
	"database/sql"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/tomoncle/rentkit/database"
	"github.com/tomoncle/rentkit/models"
	"github.com/tomoncle/rentkit/repository"
	"github.com/tomoncle/rentkit/types"
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

func insertUser(t *testing.T, repo *repository.TableRepository, id int64, name string) {
	t.Helper()
	n, err := repo.Insert(context.Background(), models.TableUsers,
		[]string{"user_id", "name", "email", "address"},
		[]interface{}{id, name, name + "@example.com", "1 Main St"})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestTableRepositoryInsertAndFind(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTableRepository(openDB(t), "")

	insertUser(t, repo, 1, "alice")

	row, err := repo.FindByID(ctx, models.TableUsers, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", row["name"])
	assert.Equal(t, "alice@example.com", row["email"])

	_, err = repo.FindByID(ctx, models.TableUsers, 2)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	count, err := repo.Count(ctx, models.TableUsers)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTableRepositoryInsertValidation(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTableRepository(openDB(t), "")

	_, err := repo.Insert(ctx, models.TableUsers, []string{"user_id", "name"}, []interface{}{1})
	assert.ErrorIs(t, err, repository.ErrColumnValueMismatch)

	_, err = repo.Insert(ctx, models.TableUsers, []string{"user_id", "nickname"}, []interface{}{1, "al"})
	assert.ErrorIs(t, err, database.ErrColumnNotFound)

	_, err = repo.Insert(ctx, "customers", []string{"id"}, []interface{}{1})
	assert.ErrorIs(t, err, database.ErrTableNotFound)

	_, err = repo.Insert(ctx, models.TableRental,
		[]string{"rental_id", "equipment_id", "user_id", "start_date", "end_date", "total_price"},
		[]interface{}{1, 99, 99, "2024-01-01", "2024-01-03", 30})
	require.Error(t, err)
	assert.Equal(t, database.ForeignKeyViolationErr, database.ErrorKind(err))
}

func TestTableRepositoryUpdateByID(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTableRepository(openDB(t), "")
	insertUser(t, repo, 1, "alice")
	insertUser(t, repo, 2, "bob")

	n, err := repo.UpdateByID(ctx, models.TableUsers, "address", 2, "9 Side St")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	bob, err := repo.FindByID(ctx, models.TableUsers, 2)
	require.NoError(t, err)
	assert.Equal(t, "9 Side St", bob["address"])
	alice, err := repo.FindByID(ctx, models.TableUsers, 1)
	require.NoError(t, err)
	assert.Equal(t, "1 Main St", alice["address"])

	n, err = repo.UpdateByID(ctx, models.TableUsers, "address", 3, "nowhere")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = repo.UpdateByID(ctx, models.TableUsers, "age", 1, 30)
	assert.ErrorIs(t, err, database.ErrColumnNotFound)
}

func TestTableRepositoryDeleteByID(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTableRepository(openDB(t), "")
	insertUser(t, repo, 1, "alice")
	insertUser(t, repo, 2, "bob")

	n, err := repo.DeleteByID(ctx, models.TableUsers, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.DeleteByID(ctx, models.TableUsers, 1)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := repo.Count(ctx, models.TableUsers)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTableRepositoryIDColumn(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	repo := repository.NewTableRepository(db, "")

	for _, stmt := range []string{
		"CREATE TABLE widgets (widget_id INTEGER, label TEXT)",
		"CREATE TABLE data (data_id INTEGER, label TEXT)",
		"CREATE TABLE gadgets (code TEXT PRIMARY KEY, gadget_id INTEGER)",
		"CREATE TABLE things (label TEXT)",
	} {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	cases := map[string]string{
		models.TableUsers:     "user_id",
		models.TableEquipment: "equipment_id",
		"public.review":       "review_id",
		"widgets":             "widget_id",
		"data":                "data_id",
		"gadgets":             "code",
	}
	for table, want := range cases {
		got, err := repo.IDColumn(ctx, table)
		require.NoError(t, err, table)
		assert.Equal(t, want, got, table)
	}

	_, err := repo.IDColumn(ctx, "things")
	assert.ErrorIs(t, err, database.ErrNoPrimaryKey)
}

func TestTableRepositoryIdentOnSQLite(t *testing.T) {
	repo := repository.NewTableRepository(openDB(t), "public")
	assert.Equal(t, bun.Ident("users"), repo.Ident("public.users"))
	assert.Equal(t, bun.Ident("rental"), repo.Ident("rental"))
}

func TestTableRepositoryTables(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTableRepository(openDB(t), "")

	tables, err := repo.Tables(ctx)
	require.NoError(t, err)
	assert.Subset(t, tables, []string{"users", "equipment", "rental", "review"})

	ok, err := repo.TableExists(ctx, "public.Equipment")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.TableExists(ctx, "invoices")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTableRepositoryMaxIDAndRandomValue(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTableRepository(openDB(t), "")

	maxID, err := repo.MaxID(ctx, models.TableUsers, "user_id")
	require.NoError(t, err)
	assert.Zero(t, maxID)
	_, ok, err := repo.RandomValue(ctx, models.TableUsers, "user_id", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	insertUser(t, repo, 4, "dana")
	insertUser(t, repo, 9, "erin")

	maxID, err = repo.MaxID(ctx, models.TableUsers, "user_id")
	require.NoError(t, err)
	assert.EqualValues(t, 9, maxID)

	value, ok, err := repo.RandomValue(ctx, models.TableUsers, "name", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, []interface{}{"dana", "erin"}, value)

	_, ok, err = repo.RandomValue(ctx, models.TableRental, "rental_id", rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.False(t, ok)

	for seed := int64(0); seed < 5; seed++ {
		first, ok, err := repo.RandomValue(ctx, models.TableUsers, "user_id", rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		require.True(t, ok)
		again, _, err := repo.RandomValue(ctx, models.TableUsers, "user_id", rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		assert.Equal(t, first, again)
		assert.Contains(t, []interface{}{int64(4), int64(9)}, first)
	}
}

func TestTableRepositoryWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	repo := repository.NewTableRepository(db, "")

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		txRepo := repo.WithTx(tx)
		if _, err := txRepo.Insert(ctx, models.TableUsers,
			[]string{"user_id", "name", "email", "address"},
			[]interface{}{1, "alice", "a@example.com", "x"}); err != nil {
			return err
		}
		count, err := txRepo.Count(ctx, models.TableUsers)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		return sql.ErrTxDone
	})
	require.ErrorIs(t, err, sql.ErrTxDone)

	count, err := repo.Count(ctx, models.TableUsers)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	repo := repository.NewRepository[models.Equipment](db)
	assert.Equal(t, "equipment_id", repo.PrimaryKey())

	desc := "cordless"
	require.NoError(t, repo.Create(ctx,
		&models.Equipment{EquipmentID: 1, Name: "Drill", Description: &desc, PricePerDay: decimal.RequireFromString("12.50")},
		&models.Equipment{EquipmentID: 2, Name: "Ladder", PricePerDay: decimal.NewFromInt(8)},
		&models.Equipment{EquipmentID: 3, Name: "Saw", PricePerDay: decimal.NewFromInt(15)},
	))

	drill, err := repo.GetOne(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Drill", drill.Name)
	require.NotNil(t, drill.Description)
	assert.Equal(t, "cordless", *drill.Description)
	assert.True(t, drill.PricePerDay.Equal(decimal.RequireFromString("12.5")))

	drill.Name = "Hammer Drill"
	require.NoError(t, repo.Update(ctx, drill))

	cheap, err := repo.List(ctx, types.NewQueryFilter("price_per_day < ?", 13))
	require.NoError(t, err)
	assert.Len(t, cheap, 2)

	page, err := repo.Page(ctx, types.NewPageRequest(2, 2, nil))
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages())
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Saw", page.Items[0].Name)

	require.NoError(t, repo.Upsert(ctx, []string{"name"}, nil,
		&models.Equipment{EquipmentID: 2, Name: "Step Ladder", PricePerDay: decimal.NewFromInt(8)}))
	ladder, err := repo.GetOne(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Step Ladder", ladder.Name)

	require.NoError(t, repo.Delete(ctx, 3))
	_, err = repo.GetOne(ctx, 3)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
