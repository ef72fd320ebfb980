// Copyright 2025 the bitool authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/subhatta123/bitool-sub002/internal/database"
)

var (
	runTable  string
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:     "run [question]",
	Short:   "Generate SQL for a question and execute it",
	Example: `./bitool run "total sales by region" --dialect cloudsqlpostgres --username user --password pass --database sales --cloudsql-instance-connection-name my-project:my-region:my-instance`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	ctx := cmd.Context()

	db, err := setupDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	llm, err := setupLLMClient(ctx)
	if err != nil {
		return err
	}
	defer llm.Close()

	service := setupService(db, llm)

	if runDryRun {
		result, err := service.GenerateSQL(ctx, question, runTable)
		if err != nil {
			return err
		}
		printQueryResult(result)
		return nil
	}

	result, err := service.Run(ctx, question, runTable)
	if err != nil {
		return err
	}

	printQueryResult(result.Query)
	if result.Execution != nil {
		printResultSet(result.Execution.Result)
		fmt.Printf("(%d rows in %s)\n", result.Execution.Result.RowCount(), result.Execution.Elapsed.Round(time.Millisecond))
	}
	return nil
}

func printResultSet(rs *database.ResultSet) {
	fmt.Println(strings.Join(rs.Columns, " | "))
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprintf("%v", v)
		}
		fmt.Println(strings.Join(cells, " | "))
	}
}

func init() {
	runCmd.Flags().StringVarP(&runTable, "table", "t", "", "Table to query (optional, defaults to the best discovered table)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Generate and print SQL without executing it")
}
