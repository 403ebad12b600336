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

// Package cli implements the rentkit command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tomoncle/rentkit"
	"github.com/tomoncle/rentkit/config"
)

// app carries the state shared by the commands of one invocation.
type app struct {
	configFile string
	envFile    string
	output     string
	dbType     string
	dbName     string

	cfg       *config.Config
	model     *rentkit.Model
	logCloser io.Closer
}

// NewRootCommand builds the command tree. Each call returns an independent tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "rentkit",
		Short: "Rental data-access toolkit",
		Long: `rentkit inspects and edits the users, equipment, rental and review
tables and fills them with synthetic rows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default: ./rentkit.yaml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the config")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", outputTable, "Output format: table, json")
	root.PersistentFlags().StringVar(&a.dbType, "db-type", "", "override database.type")
	root.PersistentFlags().StringVar(&a.dbName, "db", "", "override database.dbname")

	root.AddCommand(
		newTablesCommand(a),
		newColumnsCommand(a),
		newInsertCommand(a),
		newUpdateCommand(a),
		newDeleteCommand(a),
		newGenerateCommand(a),
		newMigrateCommand(a),
		newSeedCommand(a),
		newStatusCommand(a),
		newForeignKeysCommand(a),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func (a *app) loadConfig() error {
	if a.cfg != nil {
		return nil
	}
	opts := config.DefaultOptions()
	opts.ConfigFile = a.configFile
	opts.EnvFile = a.envFile

	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}
	if a.dbType != "" {
		cfg.Database.Type = a.dbType
	}
	if a.dbName != "" {
		cfg.Database.DBName = a.dbName
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.logCloser = cfg.ApplyLogging()
	a.cfg = cfg
	return nil
}

// open loads configuration and connects. Commands call it from RunE and
// defer close.
func (a *app) open(ctx context.Context) (*rentkit.Model, error) {
	if a.model != nil {
		return a.model, nil
	}
	if err := a.loadConfig(); err != nil {
		return nil, err
	}
	m, err := rentkit.New(ctx, a.cfg.ConfigLoader())
	if err != nil {
		return nil, err
	}
	a.model = m
	return m, nil
}

func (a *app) close() {
	if a.model != nil {
		_ = a.model.Close()
		a.model = nil
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
		a.logCloser = nil
	}
}

// withModel adapts a model-using function to a cobra RunE.
func (a *app) withModel(fn func(cmd *cobra.Command, m *rentkit.Model, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		m, err := a.open(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, m, args)
	}
}
