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
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// User is a customer who rents and reviews equipment.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	UserID  int64  `bun:"user_id,pk" json:"user_id"`
	Name    string `bun:"name,type:varchar(100),notnull" json:"name"`
	Email   string `bun:"email,type:varchar(100),notnull" json:"email"`
	Address string `bun:"address,type:varchar(100),notnull" json:"address"`

	Rentals []*Rental `bun:"rel:has-many,join:user_id=user_id" json:"rentals,omitempty"`
	Reviews []*Review `bun:"rel:has-many,join:user_id=user_id" json:"reviews,omitempty"`
}

// Equipment is a catalog item rented by the day.
type Equipment struct {
	bun.BaseModel `bun:"table:equipment,alias:e"`

	EquipmentID int64           `bun:"equipment_id,pk,autoincrement" json:"equipment_id"`
	Name        string          `bun:"name,type:varchar(100),notnull" json:"name"`
	Description *string         `bun:"description,type:varchar(255)" json:"description,omitempty"`
	PricePerDay decimal.Decimal `bun:"price_per_day,type:numeric(10,2),notnull" json:"price_per_day"`
}

// Rental links a user and an equipment item over a date range.
type Rental struct {
	bun.BaseModel `bun:"table:rental,alias:r"`

	RentalID    int64     `bun:"rental_id,pk" json:"rental_id"`
	EquipmentID int64     `bun:"equipment_id,notnull" json:"equipment_id"`
	UserID      int64     `bun:"user_id,notnull" json:"user_id"`
	StartDate   time.Time `bun:"start_date,type:date,notnull" json:"start_date"`
	EndDate     time.Time `bun:"end_date,type:date,notnull" json:"end_date"`
	TotalPrice  int       `bun:"total_price,type:integer,notnull" json:"total_price"`

	User      *User      `bun:"rel:belongs-to,join:user_id=user_id" json:"user,omitempty"`
	Equipment *Equipment `bun:"rel:belongs-to,join:equipment_id=equipment_id" json:"equipment,omitempty"`
}

// Review is a user's rating of an equipment item.
type Review struct {
	bun.BaseModel `bun:"table:review,alias:rv"`

	ReviewID    int64   `bun:"review_id,pk" json:"review_id"`
	UserID      int64   `bun:"user_id,notnull" json:"user_id"`
	EquipmentID int64   `bun:"equipment_id,notnull" json:"equipment_id"`
	Rating      int16   `bun:"rating,type:smallint,notnull" json:"rating"`
	Comment     *string `bun:"comment,type:varchar(255)" json:"comment,omitempty"`

	User      *User      `bun:"rel:belongs-to,join:user_id=user_id" json:"user,omitempty"`
	Equipment *Equipment `bun:"rel:belongs-to,join:equipment_id=equipment_id" json:"equipment,omitempty"`
}
