/*
 * Copyright 2025 the bitool authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package schema discovers and profiles the tables available in the data
// engine, scoring each by analytical usefulness.
package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/subhatta123/bitool-sub002/internal/database"
	"github.com/subhatta123/bitool-sub002/internal/semantic"
)

// ErrNoUsableTable indicates that discovery found no tables to query.
var ErrNoUsableTable = errors.New("no usable table found in the data engine")

// ColumnKind is the coarse type bucket used for scoring.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindNumeric
	KindTemporal
)

func (k ColumnKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindTemporal:
		return "temporal"
	default:
		return "text"
	}
}

// ColumnProfile describes one discovered column.
type ColumnProfile struct {
	Name     string
	DataType string
	Kind     ColumnKind
	Category semantic.Category
	Samples  []string
	Nullable bool
}

// TableProfile describes one discovered table.
type TableProfile struct {
	Name             string
	RowCount         int64
	Columns          []ColumnProfile
	Score            float64
	HasSemanticLayer bool
}

// ColumnNames returns the profiled column names in declaration order.
func (t *TableProfile) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// SemanticLayerChecker reports whether a persisted semantic schema exists for
// a table. The metadata store implements it; discovery only needs the flag.
type SemanticLayerChecker interface {
	HasSemanticSchema(table string) bool
}

// Discovery profiles tables against the data engine.
type Discovery struct {
	db         database.DBAdapter
	semantics  SemanticLayerChecker
	logger     *zap.Logger
	sampleSize int
}

// NewDiscovery constructs a Discovery. semantics may be nil when no metadata
// store is available.
func NewDiscovery(db database.DBAdapter, semantics SemanticLayerChecker, logger *zap.Logger, sampleSize int) *Discovery {
	if sampleSize <= 0 {
		sampleSize = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discovery{db: db, semantics: semantics, logger: logger, sampleSize: sampleSize}
}

// DiscoverAll profiles every available table and returns the profiles ordered
// by descending usefulness score. An empty discoverable set yields
// ErrNoUsableTable rather than an empty slice.
func (d *Discovery) DiscoverAll(ctx context.Context) ([]TableProfile, error) {
	tables, err := d.db.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	if len(tables) == 0 {
		return nil, ErrNoUsableTable
	}

	profiles := make([]TableProfile, 0, len(tables))
	for _, table := range tables {
		profile, err := d.ProfileTable(ctx, table)
		if err != nil {
			d.logger.Warn("skipping table that failed profiling",
				zap.String("table", table), zap.Error(err))
			continue
		}
		profiles = append(profiles, *profile)
	}
	if len(profiles) == 0 {
		return nil, ErrNoUsableTable
	}

	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].Score > profiles[j].Score
	})
	return profiles, nil
}

// ProfileTable fetches columns and row count for one table, re-examines text
// columns for date-shaped content, and computes the usefulness score.
func (d *Discovery) ProfileTable(ctx context.Context, table string) (*TableProfile, error) {
	columns, err := d.db.ListColumns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns for %s: %w", table, err)
	}
	rowCount, err := d.db.CountRows(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows for %s: %w", table, err)
	}

	profile := &TableProfile{Name: table, RowCount: rowCount}
	for _, col := range columns {
		cp := ColumnProfile{
			Name:     col.Name,
			DataType: col.DataType,
			Kind:     bucketByDeclaredType(col.DataType),
			Nullable: col.Nullable,
		}
		// Text columns frequently hold dates exported as formatted strings.
		// Sample them and reclassify when the values are date-shaped.
		if cp.Kind == KindText {
			samples, sampleErr := d.db.SampleColumnValues(ctx, table, col.Name, d.sampleSize)
			if sampleErr != nil {
				d.logger.Warn("failed to sample column values",
					zap.String("table", table), zap.String("column", col.Name), zap.Error(sampleErr))
			} else {
				cp.Samples = samples
				if looksTemporal(samples) {
					cp.Kind = KindTemporal
				}
			}
		}
		cp.Category = semantic.Categorize(cp.Name, cp.DataType, cp.Samples)
		profile.Columns = append(profile.Columns, cp)
	}

	if d.semantics != nil && d.semantics.HasSemanticSchema(table) {
		profile.HasSemanticLayer = true
	}
	profile.Score = scoreTable(profile)
	return profile, nil
}

// BestTable returns the highest-scoring profile.
func BestTable(profiles []TableProfile) (*TableProfile, error) {
	if len(profiles) == 0 {
		return nil, ErrNoUsableTable
	}
	best := &profiles[0]
	for i := range profiles[1:] {
		if profiles[i+1].Score > best.Score {
			best = &profiles[i+1]
		}
	}
	return best, nil
}

// scoreTable computes the usefulness score. Column breadth, numeric measures
// and temporal columns are weighted up; row count contributes a capped bonus.
// A pre-existing semantic layer dominates selection outright.
func scoreTable(p *TableProfile) float64 {
	var numeric, temporal int
	for _, c := range p.Columns {
		switch c.Kind {
		case KindNumeric:
			numeric++
		case KindTemporal:
			temporal++
		}
	}
	score := 2*float64(len(p.Columns)) + 3*float64(numeric) + 4*float64(temporal)
	rowBonus := float64(p.RowCount) / 1000
	if rowBonus > 10 {
		rowBonus = 10
	}
	score += rowBonus
	if p.HasSemanticLayer {
		score += 1000
	}
	return score
}

// bucketByDeclaredType buckets a declared type into numeric, temporal or text.
func bucketByDeclaredType(dataType string) ColumnKind {
	lower := strings.ToLower(dataType)
	switch {
	case strings.Contains(lower, "int"),
		strings.Contains(lower, "decimal"),
		strings.Contains(lower, "numeric"),
		strings.Contains(lower, "float"),
		strings.Contains(lower, "double"),
		strings.Contains(lower, "real"),
		strings.Contains(lower, "money"):
		return KindNumeric
	case strings.Contains(lower, "date"),
		strings.Contains(lower, "time"):
		return KindTemporal
	default:
		return KindText
	}
}
