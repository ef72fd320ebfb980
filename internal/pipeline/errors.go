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

package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/subhatta123/bitool-sub002/internal/database"
)

// ErrRepairExhausted is returned when a query still fails after the single
// aggressive repair retry.
var ErrRepairExhausted = errors.New("query failed after aggressive repair retry")

// ExecutionError wraps a database failure with its classification and, for
// column errors, the columns that actually exist on the queried table.
type ExecutionError struct {
	Kind    database.ErrorKind
	Query   string
	Columns []string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Kind == database.ErrorKindColumnNotFound && len(e.Columns) > 0 {
		return fmt.Sprintf("query failed (%s): %v; available columns: %s",
			e.Kind, e.Err, strings.Join(e.Columns, ", "))
	}
	return fmt.Sprintf("query failed (%s): %v", e.Kind, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// SchemaUnavailableError reports that a table could not be profiled, so no
// generation context exists for it.
type SchemaUnavailableError struct {
	Table string
	Err   error
}

func (e *SchemaUnavailableError) Error() string {
	return fmt.Sprintf("no schema available for table %q: %v", e.Table, e.Err)
}

func (e *SchemaUnavailableError) Unwrap() error {
	return e.Err
}

// GenerationError reports a language model failure. Generation failures are
// never retried; the caller surfaces them directly.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("SQL generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
