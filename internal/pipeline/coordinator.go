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
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/subhatta123/bitool-sub002/internal/database"
	"github.com/subhatta123/bitool-sub002/internal/repair"
)

// Repair strategy levels reported in ExecutionResult.RepairLevel.
const (
	RepairLevelStandard   = "standard"
	RepairLevelAggressive = "aggressive"
)

// ExecutionResult is the outcome of one executed query.
type ExecutionResult struct {
	SQL         string
	Result      *database.ResultSet
	RepairLevel string
	Elapsed     time.Duration
}

// Coordinator normalizes generated SQL, executes it, and on a syntax failure
// retries exactly once with the aggressive repair chain. Every other failure
// kind is terminal; there is no simplified substitute query.
type Coordinator struct {
	db         database.DBAdapter
	logger     *zap.Logger
	standard   *repair.Engine
	aggressive *repair.Engine
}

func NewCoordinator(db database.DBAdapter, logger *zap.Logger, cfg repair.Config) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		db:         db,
		logger:     logger,
		standard:   repair.NewStandardEngine(cfg),
		aggressive: repair.NewAggressiveEngine(cfg),
	}
}

// Execute runs sql against table after standard normalization. The table name
// is only used to report the real column list on a column-not-found failure.
func (c *Coordinator) Execute(ctx context.Context, table, sql string) (*ExecutionResult, error) {
	start := time.Now()

	normalized, applied := c.standard.RepairWithTrace(sql)
	if len(applied) > 0 {
		c.logger.Debug("applied standard repairs", zap.Strings("rules", applied))
	}

	result, err := c.db.ExecuteQuery(ctx, normalized)
	if err == nil {
		return c.finish(table, normalized, RepairLevelStandard, result, start), nil
	}

	kind := c.db.ClassifyError(err)
	if kind != database.ErrorKindSyntax {
		c.logger.Error("query failed",
			zap.String("sql", normalized),
			zap.String("kind", kind.String()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("repair_level", RepairLevelStandard),
			zap.Error(err))
		return nil, c.wrap(ctx, table, normalized, kind, err)
	}

	// One aggressive retry, and only if the caller has not given up.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	repaired, applied := c.aggressive.RepairWithTrace(normalized)
	c.logger.Warn("syntax error, retrying with aggressive repair",
		zap.Error(err), zap.Strings("rules", applied))

	result, retryErr := c.db.ExecuteQuery(ctx, repaired)
	if retryErr != nil {
		c.logger.Error("aggressive repair retry failed",
			zap.String("sql", repaired),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("repair_level", RepairLevelAggressive),
			zap.Error(retryErr))
		execErr := c.wrap(ctx, table, repaired, c.db.ClassifyError(retryErr), retryErr)
		return nil, &wrappedExhaustion{execErr}
	}
	return c.finish(table, repaired, RepairLevelAggressive, result, start), nil
}

func (c *Coordinator) finish(table, sql, level string, result *database.ResultSet, start time.Time) *ExecutionResult {
	elapsed := time.Since(start)
	c.logger.Info("query executed",
		zap.String("table", table),
		zap.String("sql", sql),
		zap.Int("rows", result.RowCount()),
		zap.Duration("elapsed", elapsed),
		zap.String("repair_level", level))
	return &ExecutionResult{SQL: sql, Result: result, RepairLevel: level, Elapsed: elapsed}
}

func (c *Coordinator) wrap(ctx context.Context, table, sql string, kind database.ErrorKind, err error) *ExecutionError {
	execErr := &ExecutionError{Kind: kind, Query: sql, Err: err}
	if kind == database.ErrorKindColumnNotFound {
		if cols, colErr := c.db.ListColumns(ctx, table); colErr == nil {
			for _, col := range cols {
				execErr.Columns = append(execErr.Columns, col.Name)
			}
		}
	}
	return execErr
}

// wrappedExhaustion makes a post-retry failure match both ErrRepairExhausted
// and the underlying ExecutionError.
type wrappedExhaustion struct {
	execErr *ExecutionError
}

func (w *wrappedExhaustion) Error() string {
	return ErrRepairExhausted.Error() + ": " + w.execErr.Error()
}

func (w *wrappedExhaustion) Unwrap() []error {
	return []error{ErrRepairExhausted, w.execErr}
}
