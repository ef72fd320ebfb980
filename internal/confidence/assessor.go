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

// Package confidence scores how well-specified a natural-language question is
// and, once SQL has been generated, how plausible that SQL looks. Scores live
// in [0,100]; low scores route to clarification instead of execution.
package confidence

import (
	"regexp"
	"strings"
)

// DefaultThreshold is the score below which the pipeline asks for
// clarification instead of generating or executing SQL.
const DefaultThreshold = 40

var (
	numericLiteral = regexp.MustCompile(`\d`)

	vagueQualifiers = []string{
		"top", "best", "worst", "high", "low", "most", "least", "good", "bad", "popular", "main",
	}

	// Generic analytical vocabulary. A question with none of these typically
	// has no discernible analytical intent.
	domainTerms = []string{
		"sales", "revenue", "profit", "cost", "price", "amount", "total", "sum",
		"count", "average", "number", "quantity", "orders", "customers", "products",
		"items", "show", "list", "compare", "trend", "share", "distribution", "growth",
	}

	regionalKeywords = []string{
		"region", "country", "state", "city", "territory", "area",
		"north", "south", "east", "west", "local",
	}

	temporalKeywords = []string{
		"year", "month", "day", "week", "quarter", "date", "when",
		"daily", "monthly", "yearly", "annual", "recent", "last", "latest",
	}
)

// Assess scores a question against the recognized schema columns. sql may be
// empty before generation; when present it contributes plausibility signals.
func Assess(question, sql string, columns []string) int {
	score := 100
	lower := strings.ToLower(question)
	words := strings.Fields(lower)

	switch {
	case len(words) < 3:
		score -= 30
	case len(words) <= 4:
		score -= 15
	}

	recognized := recognizedColumns(lower, columns)

	switch countDomainTerms(words) {
	case 0:
		score -= 25
	case 1:
		score -= 10
	}

	score -= 8 * countVagueQualifiers(words, recognized)

	if !numericLiteral.MatchString(question) {
		score -= 15
	}

	switch {
	case len(recognized) == 0:
		score -= 20
	case len(recognized) >= 2:
		score += 10
	}

	if containsAny(lower, regionalKeywords) {
		score += 5
	}
	if containsAny(lower, temporalKeywords) {
		score += 5
	}

	if sql != "" {
		upper := strings.ToUpper(sql)
		if strings.Contains(upper, "WHERE") && strings.Contains(upper, "GROUP BY") {
			score += 10
		}
		if !strings.Contains(upper, "SELECT") || !strings.Contains(upper, "FROM") {
			score -= 30
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// recognizedColumns returns the schema columns whose name, read as words,
// appears in the question.
func recognizedColumns(lowerQuestion string, columns []string) []string {
	var matched []string
	for _, col := range columns {
		phrase := strings.ToLower(strings.NewReplacer("_", " ", "-", " ").Replace(col))
		if phrase == "" {
			continue
		}
		if strings.Contains(lowerQuestion, phrase) {
			matched = append(matched, col)
			continue
		}
		// A multi-word column also counts when every word appears.
		parts := strings.Fields(phrase)
		if len(parts) > 1 {
			all := true
			for _, p := range parts {
				if !strings.Contains(lowerQuestion, p) {
					all = false
					break
				}
			}
			if all {
				matched = append(matched, col)
			}
		}
	}
	return matched
}

func countDomainTerms(words []string) int {
	count := 0
	for _, w := range words {
		trimmed := strings.Trim(w, ".,?!;:'\"")
		for _, term := range domainTerms {
			if trimmed == term {
				count++
				break
			}
		}
	}
	return count
}

// countVagueQualifiers counts vague words that are not part of a recognized
// column name, so a column literally named e.g. "Top_Speed" never penalizes
// the question that mentions it.
func countVagueQualifiers(words []string, recognized []string) int {
	count := 0
	for _, w := range words {
		trimmed := strings.Trim(w, ".,?!;:'\"")
		if !isVague(trimmed) {
			continue
		}
		partOfColumn := false
		for _, col := range recognized {
			colWords := strings.Fields(strings.ToLower(strings.NewReplacer("_", " ", "-", " ").Replace(col)))
			for _, cw := range colWords {
				if cw == trimmed {
					partOfColumn = true
					break
				}
			}
			if partOfColumn {
				break
			}
		}
		if !partOfColumn {
			count++
		}
	}
	return count
}

func isVague(word string) bool {
	for _, v := range vagueQualifiers {
		if word == v {
			return true
		}
	}
	return false
}

func containsAny(lower string, keywords []string) bool {
	for _, k := range keywords {
		for _, w := range strings.Fields(lower) {
			if strings.Trim(w, ".,?!;:'\"") == k {
				return true
			}
		}
	}
	return false
}
