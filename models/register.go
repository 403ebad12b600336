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

package models

import (
	"sync"

	"github.com/tomoncle/rentkit/database"
)

// Table names.
const (
	TableUsers     = "users"
	TableEquipment = "equipment"
	TableRental    = "rental"
	TableReview    = "review"
)

var registerOnce sync.Once

// Register adds the models and their foreign keys to the database
// registries. Parents get a lower priority so their tables are created first.
func Register() {
	registerOnce.Do(func() {
		database.RegisteredModel(database.NewModelAdapter((*User)(nil), 10))
		database.RegisteredModel(database.NewModelAdapter((*Equipment)(nil), 10))
		database.RegisteredModel(database.NewModelAdapter((*Rental)(nil), 20))
		database.RegisteredModel(database.NewModelAdapter((*Review)(nil), 20))

		database.RegisterForeignKeys(ForeignKeys()...)
	})
}

// ForeignKeys returns the relationships between the rental tables.
func ForeignKeys() []database.ForeignKeyConstraint {
	return []database.ForeignKeyConstraint{
		{Table: TableRental, Column: "user_id", ReferenceTable: TableUsers, ReferenceColumn: "user_id", OnDelete: "CASCADE"},
		{Table: TableRental, Column: "equipment_id", ReferenceTable: TableEquipment, ReferenceColumn: "equipment_id", OnDelete: "CASCADE"},
		{Table: TableReview, Column: "user_id", ReferenceTable: TableUsers, ReferenceColumn: "user_id", OnDelete: "CASCADE"},
		{Table: TableReview, Column: "equipment_id", ReferenceTable: TableEquipment, ReferenceColumn: "equipment_id", OnDelete: "CASCADE"},
	}
}
