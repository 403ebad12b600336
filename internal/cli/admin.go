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

package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tomoncle/rentkit"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the registered tables and their foreign keys",
		Args:  cobra.NoArgs,
		RunE: a.withModel(func(cmd *cobra.Command, m *rentkit.Model, args []string) error {
			if err := m.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		}),
	}
}

func newSeedCommand(a *app) *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Run the SQL seed files",
		Args:  cobra.NoArgs,
		RunE: a.withModel(func(cmd *cobra.Command, m *rentkit.Model, args []string) error {
			results, err := m.Seed(cmd.Context(), env)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return printFormatted(out, a.output, results, func() error {
				rows := make([][]string, len(results))
				for i, r := range results {
					rows[i] = []string{r.File, strconv.Itoa(r.Statements), strconv.FormatInt(r.RowsAffected, 10), r.Duration.String()}
				}
				return printTable(out, []string{"FILE", "STATEMENTS", "ROWS", "DURATION"}, rows)
			})
		}),
	}
	cmd.Flags().StringVar(&env, "env", "", "seed environment (default: seed.environment)")
	return cmd
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection health and pool statistics",
		Args:  cobra.NoArgs,
		RunE: a.withModel(func(cmd *cobra.Command, m *rentkit.Model, args []string) error {
			health := m.Health(cmd.Context())
			stats := m.Stats()
			out := cmd.OutOrStdout()
			data := map[string]interface{}{"health": health, "stats": stats}
			return printFormatted(out, a.output, data, func() error {
				return printTable(out, []string{"FIELD", "VALUE"}, [][]string{
					{"Healthy", strconv.FormatBool(health.Healthy)},
					{"Dialect", health.Dialect},
					{"Response time", health.ResponseTime.String()},
					{"Open connections", strconv.Itoa(stats.OpenConns)},
					{"In use", strconv.Itoa(stats.InUse)},
					{"Idle", strconv.Itoa(stats.Idle)},
					{"Last error", health.LastError},
				})
			})
		}),
	}
}

func newForeignKeysCommand(a *app) *cobra.Command {
	var export string
	cmd := &cobra.Command{
		Use:   "foreign-keys",
		Short: "List the foreign key constraints",
		Args:  cobra.NoArgs,
		RunE: a.withModel(func(cmd *cobra.Command, m *rentkit.Model, args []string) error {
			fkm := m.ForeignKeys()
			out := cmd.OutOrStdout()
			if export != "" {
				if err := fkm.ExportToConfig(export); err != nil {
					return err
				}
				fmt.Fprintf(out, "Exported %d constraints to %s\n", len(fkm.ListAllConstraints()), export)
				return nil
			}
			constraints := fkm.ListAllConstraints()
			return printFormatted(out, a.output, constraints, func() error {
				rows := make([][]string, len(constraints))
				for i, fk := range constraints {
					rows[i] = []string{fk.GenerateConstraintName(), fk.Table + "." + fk.Column, fk.ReferenceTable + "." + fk.ReferenceColumn, fk.OnDelete}
				}
				return printTable(out, []string{"NAME", "COLUMN", "REFERENCES", "ON DELETE"}, rows)
			})
		}),
	}
	cmd.Flags().StringVar(&export, "export", "", "write the constraints to this YAML file instead")
	return cmd
}
