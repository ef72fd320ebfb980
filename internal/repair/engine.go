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

// Package repair fixes common syntax defects in generated SQL through an
// ordered chain of textual transformations. Every rule, and therefore every
// engine, is idempotent: Repair(Repair(x)) == Repair(x).
package repair

// Rule is one deterministic text transformation correcting a single class of
// SQL defect. Rules are pure functions and keep no shared state.
type Rule struct {
	Name  string
	Apply func(string) string
}

// Config parameterizes rules that depend on the resolved schema.
type Config struct {
	// DateColumns are columns stored as formatted text that must be parsed
	// before year/month/day extraction.
	DateColumns []string
	// DateFormat is the stored text format of those columns.
	DateFormat string
}

// DefaultDateFormat matches how the ingestion process writes dates.
const DefaultDateFormat = "DD-MM-YYYY"

func (c Config) dateFormat() string {
	if c.DateFormat == "" {
		return DefaultDateFormat
	}
	return c.DateFormat
}

// Engine applies its rules in order.
type Engine struct {
	rules []Rule
}

func NewEngine(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// NewStandardEngine builds the engine used on every first pass.
func NewStandardEngine(cfg Config) *Engine {
	return NewEngine(StandardRules(cfg))
}

// NewAggressiveEngine builds the broader engine used for the single
// post-execution-failure retry. It is never applied on the first pass.
func NewAggressiveEngine(cfg Config) *Engine {
	return NewEngine(AggressiveRules(cfg))
}

// Repair runs the rule chain over the candidate SQL.
func (e *Engine) Repair(sql string) string {
	for _, rule := range e.rules {
		sql = rule.Apply(sql)
	}
	return sql
}

// RepairWithTrace also reports which rules changed the text, for logging.
func (e *Engine) RepairWithTrace(sql string) (string, []string) {
	var fired []string
	for _, rule := range e.rules {
		out := rule.Apply(sql)
		if out != sql {
			fired = append(fired, rule.Name)
		}
		sql = out
	}
	return sql, fired
}
