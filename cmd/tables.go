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

	"github.com/subhatta123/bitool-sub002/internal/metastore"
	"github.com/subhatta123/bitool-sub002/internal/pipeline"
)

var tablesCmd = &cobra.Command{
	Use:     "tables",
	Short:   "Discover and rank the queryable tables in the database",
	Example: `./bitool tables --dialect mysql --host localhost --port 3306 --username user --password pass --database sales`,
	RunE:    runTables,
}

func runTables(cmd *cobra.Command, args []string) error {
	db, err := setupDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	service := pipeline.NewService(db, nil, metastore.NewMemoryStore(), logger, cfg)
	profiles, err := service.Tables(cmd.Context())
	if err != nil {
		return err
	}

	for _, p := range profiles {
		fmt.Printf("%s (%d rows, score %.1f)\n", p.Name, p.RowCount, p.Score)
		if p.HasSemanticLayer {
			fmt.Println("  semantic layer: present")
		}
		fmt.Printf("  columns: %s\n", strings.Join(p.ColumnNames(), ", "))
	}
	return nil
}
