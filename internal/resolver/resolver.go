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

// Package resolver maps requested table names onto the tables that actually
// exist in the connected database. Generated SQL and user hints frequently
// carry mangled names (wrong case, stripped hyphens, shortened prefixes), so
// resolution walks a chain of strategies from exact match down to a logged
// fallback instead of failing the query outright.
package resolver

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// ErrNoTablesAvailable is returned when the database exposes no tables at
// all, which is the only case resolution cannot recover from.
var ErrNoTablesAvailable = errors.New("no tables available to resolve against")

// Strategy names reported in Result.Strategy, ordered from most to least
// precise.
const (
	StrategyExact      = "exact"
	StrategyCaseFold   = "case_insensitive"
	StrategyFragment   = "fragment"
	StrategySimilarity = "similarity"
	StrategyFirstAvail = "first_available"
)

// Result describes how a requested name was resolved.
type Result struct {
	Requested string
	Matched   string
	Score     int
	Strategy  string
}

// Known table-name prefixes produced by ingestion jobs. A candidate that
// carries one of these scores higher during similarity ranking.
var knownPrefixes = []string{"source_id_", "dataset_", "ds_", "tbl_"}

// similarityThreshold is the minimum score a similarity candidate must reach
// before it beats the first-available fallback.
const similarityThreshold = 12

var hexRunPattern = regexp.MustCompile(`[0-9a-fA-F]{8,}`)

// Resolver resolves requested table names against a fixed list of available
// tables.
type Resolver struct {
	tables []string
	logger *zap.Logger
}

func New(tables []string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{tables: tables, logger: logger}
}

// Resolve maps requested onto one of the available tables. It never returns
// an unmatched result while at least one table exists: the final strategy
// falls back to the first available table and logs the substitution.
func (r *Resolver) Resolve(requested string) (Result, error) {
	if len(r.tables) == 0 {
		return Result{}, ErrNoTablesAvailable
	}

	requested = strings.TrimSpace(strings.Trim(requested, `"`))

	for _, t := range r.tables {
		if t == requested {
			return Result{Requested: requested, Matched: t, Strategy: StrategyExact}, nil
		}
	}

	lower := strings.ToLower(requested)
	for _, t := range r.tables {
		if strings.ToLower(t) == lower {
			return Result{Requested: requested, Matched: t, Strategy: StrategyCaseFold}, nil
		}
	}

	if matched, score, ok := r.matchFragment(requested); ok {
		return Result{Requested: requested, Matched: matched, Score: score, Strategy: StrategyFragment}, nil
	}

	if matched, score, ok := r.matchSimilarity(requested); ok {
		return Result{Requested: requested, Matched: matched, Score: score, Strategy: StrategySimilarity}, nil
	}

	r.logger.Warn("no table matched requested name, falling back to first available",
		zap.String("requested", requested),
		zap.String("fallback", r.tables[0]))
	return Result{Requested: requested, Matched: r.tables[0], Strategy: StrategyFirstAvail}, nil
}

// matchFragment extracts long hex runs from the requested name and looks for
// a table containing the same run in any of its common spellings: plain,
// hyphenated (UUID layout) or with separators stripped. This recovers names
// like ds_1b06f79ff18940fca287183c7d3b73c4 pointing at
// source_id_1b06f79f-f189-40fc-a287-183c7d3b73c4.
func (r *Resolver) matchFragment(requested string) (string, int, bool) {
	runs := hexRunPattern.FindAllString(normalizeSeparators(requested), -1)
	if len(runs) == 0 {
		return "", 0, false
	}

	best := ""
	bestScore := 0
	for _, t := range r.tables {
		flat := normalizeSeparators(t)
		for _, run := range runs {
			if !strings.Contains(strings.ToLower(flat), strings.ToLower(run)) {
				continue
			}
			score := len(run)
			if hasKnownPrefix(t) {
				score += 10
			}
			if score > bestScore {
				best = t
				bestScore = score
			}
		}
	}
	if best == "" {
		return "", 0, false
	}
	return best, bestScore, true
}

// matchSimilarity scores each table by shared name fragments and structural
// markers. A match is only accepted above similarityThreshold so weak
// resemblance does not silently redirect queries.
func (r *Resolver) matchSimilarity(requested string) (string, int, bool) {
	reqParts := splitFragments(requested)
	if len(reqParts) == 0 {
		return "", 0, false
	}

	best := ""
	bestScore := 0
	for _, t := range r.tables {
		score := 0
		flat := strings.ToLower(normalizeSeparators(t))
		for _, part := range reqParts {
			if strings.Contains(flat, strings.ToLower(part)) {
				score += len(part)
			}
		}
		if score == 0 {
			continue
		}
		if hasKnownPrefix(t) {
			score += 10
		}
		if hasKnownPrefix(requested) {
			score += 5
		}
		if score > bestScore {
			best = t
			bestScore = score
		}
	}
	if best == "" || bestScore < similarityThreshold {
		return "", 0, false
	}
	return best, bestScore, true
}

func normalizeSeparators(s string) string {
	return strings.NewReplacer("-", "", "_", "", ".", "").Replace(s)
}

func hasKnownPrefix(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range knownPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// splitFragments breaks a name into comparable pieces, dropping known
// prefixes and short noise fragments.
func splitFragments(s string) []string {
	lower := strings.ToLower(s)
	for _, p := range knownPrefixes {
		lower = strings.TrimPrefix(lower, p)
	}
	raw := strings.FieldsFunc(lower, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	})
	var parts []string
	for _, p := range raw {
		if len(p) >= 3 {
			parts = append(parts, p)
		}
	}
	return parts
}
