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
	"strings"

	"github.com/spf13/cobra"
	"github.com/tomoncle/rentkit"
)

func newTablesCommand(a *app) *cobra.Command {
	var live bool
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the registered tables",
		Args:  cobra.NoArgs,
		RunE: a.withModel(func(cmd *cobra.Command, m *rentkit.Model, args []string) error {
			tables := m.GetAllTables()
			if live {
				var err error
				if tables, err = m.LiveTables(cmd.Context()); err != nil {
					return err
				}
			}
			return printFormatted(cmd.OutOrStdout(), a.output, tables, func() error {
				rows := make([][]string, len(tables))
				for i, t := range tables {
					rows[i] = []string{t}
				}
				return printTable(cmd.OutOrStdout(), []string{"TABLE"}, rows)
			})
		}),
	}
	cmd.Flags().BoolVar(&live, "live", false, "list the tables present in the database instead")
	return cmd
}

func newColumnsCommand(a *app) *cobra.Command {
	var live bool
	cmd := &cobra.Command{
		Use:   "columns <table>",
		Short: "List the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: a.withModel(func(cmd *cobra.Command, m *rentkit.Model, args []string) error {
			out := cmd.OutOrStdout()
			if !live {
				columns, err := m.GetAllColumns(args[0])
				if err != nil {
					return err
				}
				return printFormatted(out, a.output, columns, func() error {
					rows := make([][]string, len(columns))
					for i, c := range columns {
						rows[i] = []string{c}
					}
					return printTable(out, []string{"COLUMN"}, rows)
				})
			}

			columns, err := m.LiveColumns(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printFormatted(out, a.output, columns, func() error {
				rows := make([][]string, len(columns))
				for i, c := range columns {
					rows[i] = []string{c.Name, c.DataType, strconv.FormatBool(c.Nullable), strconv.FormatBool(c.PrimaryKey)}
				}
				return printTable(out, []string{"COLUMN", "TYPE", "NULLABLE", "PRIMARY KEY"}, rows)
			})
		}),
	}
	cmd.Flags().BoolVar(&live, "live", false, "show the columns as the database reports them")
	return cmd
}

// parseAssignments splits "column=value" arguments. The literal NULL maps to nil.
func parseAssignments(args []string) ([]string, []interface{}, error) {
	columns := make([]string, 0, len(args))
	values := make([]interface{}, 0, len(args))
	for _, arg := range args {
		column, value, ok := strings.Cut(arg, "=")
		if !ok || column == "" {
			return nil, nil, fmt.Errorf("expected column=value, got %q", arg)
		}
		columns = append(columns, column)
		values = append(values, parseValue(value))
	}
	return columns, values, nil
}

func parseValue(s string) interface{} {
	if s == "NULL" {
		return nil
	}
	return s
}

func newInsertCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "insert <table> <column=value>...",
		Short:   "Insert one row",
		Example: "  rentkit insert users user_id=1 name=Alice email=alice@example.com address='1 Main St'",
		Args:    cobra.MinimumNArgs(2),
		RunE: a.withModel(func(cmd *cobra.Command, m *rentkit.Model, args []string) error {
			columns, values, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			if !m.AddData(cmd.Context(), args[0], columns, values) {
				return fmt.Errorf("insert into %s failed", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Inserted 1 row into %s\n", args[0])
			return nil
		}),
	}
}

func newUpdateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <table> <id> <column> <value>",
		Short: "Update one column of the row with the given id",
		Args:  cobra.ExactArgs(4),
		RunE: a.withModel(func(cmd *cobra.Command, m *rentkit.Model, args []string) error {
			if !m.UpdateData(cmd.Context(), args[0], args[2], args[1], parseValue(args[3])) {
				return fmt.Errorf("update of %s id %s failed", args[0], args[1])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s id %s\n", args[0], args[1])
			return nil
		}),
	}
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Delete the row with the given id",
		Args:  cobra.ExactArgs(2),
		RunE: a.withModel(func(cmd *cobra.Command, m *rentkit.Model, args []string) error {
			if !m.DeleteData(cmd.Context(), args[0], args[1]) {
				return fmt.Errorf("delete of %s id %s failed", args[0], args[1])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s id %s\n", args[0], args[1])
			return nil
		}),
	}
}

func newGenerateCommand(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "generate <table>",
		Short: "Insert synthetic rows",
		Args:  cobra.ExactArgs(1),
		RunE: a.withModel(func(cmd *cobra.Command, m *rentkit.Model, args []string) error {
			n, err := m.GenerateData(cmd.Context(), args[0], count)
			if err != nil {
				return err
			}
			result := map[string]interface{}{"table": args[0], "inserted": n}
			return printFormatted(cmd.OutOrStdout(), a.output, result, func() error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Generated %d rows in %s\n", n, args[0])
				return err
			})
		}),
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of rows to generate")
	return cmd
}
