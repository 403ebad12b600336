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

// Package rentkit is a data-access layer for a rental and review domain.
//
// Model wraps one database handle and offers table introspection, row
// insert, update and delete by id, and synthetic data generation:
//
//	m, err := rentkit.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer m.Close()
//	ok := m.AddData(ctx, "users",
//		[]string{"user_id", "name", "email", "address"},
//		[]interface{}{1, "Alice", "alice@example.com", "1 Main St"})
//	n, err := m.GenerateData(ctx, "rental", 20)
//
// Service offers typed CRUD over a single Bun model.
package rentkit
