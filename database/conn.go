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
	"fmt"
	"sync"

	"github.com/uptrace/bun"
)

var (
	globalMu      sync.RWMutex
	globalFactory *BaseDatabaseFactory
	globalConfig  *Config
)

// Open connects a new, independent database for cfg, registers the models
// with Bun and creates the tables when EnableMigrateOnStartup is set. The
// returned factory owns the connection.
func Open(ctx context.Context, cfg *Config) (*BaseDatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	factory := NewDatabaseFactory()
	if _, err := factory.CreateFromConfig(cfg); err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(ctx, cfg.DataMigrateConfig.EnableMigrateOnStartup); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	factory.GetDB().RegisterModel(RegisteredModelInstances()...)
	return factory, nil
}

// InitDB initializes the process-wide database. A previous one is closed.
func InitDB(cfg *Config) (*bun.DB, error) {
	factory, err := Open(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	globalMu.Lock()
	previous := globalFactory
	globalFactory, globalConfig = factory, cfg
	globalMu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
	return factory.GetDB(), nil
}

// GetDB returns the process-wide database, or nil before InitDB.
func GetDB() *bun.DB {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory == nil {
		return nil
	}
	return globalFactory.GetDB()
}

func GetDatabaseManager() AbstractDatabaseManager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory == nil {
		return nil
	}
	return globalFactory.GetManager()
}

// CloseDB closes the process-wide database.
func CloseDB() error {
	globalMu.Lock()
	factory := globalFactory
	globalFactory, globalConfig = nil, nil
	globalMu.Unlock()

	if factory == nil {
		return nil
	}
	return factory.Close()
}

// GetHealthStatus returns the process-wide database health status.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	globalMu.RLock()
	factory := globalFactory
	globalMu.RUnlock()

	if factory == nil {
		return &HealthStatus{LastError: "Database not initialized"}
	}
	return factory.GetHealthStatus(ctx)
}

func GetDatabaseStats() *DBStats {
	globalMu.RLock()
	factory := globalFactory
	globalMu.RUnlock()

	if factory == nil {
		return &DBStats{}
	}
	return factory.GetStats()
}

// InitData seeds the process-wide database from the configured SQL files.
func InitData(ctx context.Context) error {
	manager := GetDatabaseManager()
	if manager == nil {
		return fmt.Errorf("database not initialized")
	}
	return manager.InitData(ctx)
}

// InitDataWithSQL seeds the process-wide database using the files of
// environment instead of the configured one.
func InitDataWithSQL(ctx context.Context, environment string) ([]ExecutionResult, error) {
	globalMu.RLock()
	factory, cfg := globalFactory, globalConfig
	globalMu.RUnlock()

	if factory == nil || factory.GetDB() == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	sqlManager := NewSQLInitManager(factory.GetDB(), environment)
	if cfg != nil && cfg.DataInitConfig.Filepath != "" {
		sqlManager.SetSQLRootPath(cfg.DataInitConfig.Filepath)
	}
	return sqlManager.ExecuteInitialization(ctx)
}
