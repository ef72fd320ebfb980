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

	"github.com/spf13/cobra"

	"github.com/subhatta123/bitool-sub002/internal/pipeline"
)

var askTable string

var askCmd = &cobra.Command{
	Use:     "ask [question]",
	Short:   "Generate SQL for a question without executing it",
	Example: `./bitool ask "top 3 selling items in the south in 2015" --dialect postgres --host localhost --port 5432 --username user --password pass --database sales`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	result, err := setupService(db, llm).GenerateSQL(ctx, question, askTable)
	if err != nil {
		return err
	}

	printQueryResult(result)
	return nil
}

func printQueryResult(result *pipeline.QueryResult) {
	fmt.Printf("Table: %s\n", result.Table)
	if result.Resolution != nil && result.Resolution.Strategy != "exact" {
		fmt.Printf("Resolved %q via %s\n", result.Resolution.Requested, result.Resolution.Strategy)
	}
	fmt.Printf("Confidence: %d\n", result.Confidence)
	if len(result.Clarifications) > 0 {
		fmt.Println("The question is ambiguous. Please clarify:")
		for _, q := range result.Clarifications {
			fmt.Printf("  - %s\n", q)
		}
		return
	}
	fmt.Printf("SQL:\n%s\n", result.SQL)
}

func init() {
	askCmd.Flags().StringVarP(&askTable, "table", "t", "", "Table to query (optional, defaults to the best discovered table)")
}
