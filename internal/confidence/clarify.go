package confidence

import (
	"fmt"
	"strings"

	"github.com/subhatta123/bitool-sub002/internal/semantic"
)

// maxClarifications caps how many questions are returned for one request.
const maxClarifications = 3

// Clarify builds targeted follow-up questions for an underspecified question.
// Intent categories reuse the same pattern vocabulary the semantic layer is
// built from; when nothing matches, the fallback lists available columns and
// asks what analysis is wanted.
func Clarify(question string, sem *semantic.Schema) []string {
	lower := strings.ToLower(question)
	var questions []string

	add := func(q string) {
		if len(questions) < maxClarifications {
			questions = append(questions, q)
		}
	}

	if matchesRanking(lower) {
		metric := exampleColumn(sem, semantic.CategoryMonetary, semantic.CategoryQuantity)
		if metric != "" {
			add(fmt.Sprintf("Which metric should rank the results, for example \"%s\"?", metric))
		} else {
			add("Which metric should rank the results?")
		}
		add("How many results do you want returned?")
	}
	if matchesCounting(lower) {
		add("What exactly should be counted: rows, distinct values, or something else?")
	}
	if matchesCategorical(lower) {
		dim := exampleColumn(sem, semantic.CategoryCategorical, semantic.CategoryName)
		if dim != "" {
			add(fmt.Sprintf("Which category should the results be grouped by, for example \"%s\"?", dim))
		} else {
			add("Which category should the results be grouped by?")
		}
	}
	if matchesGeographic(lower) {
		geo := exampleColumn(sem, semantic.CategoryGeographic)
		if geo != "" {
			add(fmt.Sprintf("Which location value should filter the results (column \"%s\")?", geo))
		} else {
			add("Which location should the results be restricted to?")
		}
	}
	if matchesTemporal(lower) {
		when := exampleColumn(sem, semantic.CategoryTemporal)
		if when != "" {
			add(fmt.Sprintf("Which time period should be considered (column \"%s\")?", when))
		} else {
			add("Which time period should be considered?")
		}
	}

	if len(questions) > 0 {
		return questions
	}

	// No intent matched: fall back to listing available columns.
	names := sem.ColumnNames()
	if len(names) > 10 {
		names = names[:10]
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("\"%s\"", n)
	}
	return []string{fmt.Sprintf(
		"The available columns are %s. What analysis would you like to run on them?",
		strings.Join(quoted, ", "),
	)}
}

func matchesRanking(lower string) bool {
	return containsAny(lower, []string{"top", "best", "worst", "highest", "lowest", "most", "least", "rank", "ranking"})
}

func matchesCounting(lower string) bool {
	if strings.Contains(lower, "how many") || strings.Contains(lower, "number of") {
		return true
	}
	return containsAny(lower, []string{"count"})
}

func matchesCategorical(lower string) bool {
	if strings.Contains(lower, "per ") || strings.Contains(lower, "breakdown") {
		return true
	}
	return containsAny(lower, []string{"each", "category", "type", "group", "segment"})
}

func matchesGeographic(lower string) bool {
	return containsAny(lower, regionalKeywords)
}

func matchesTemporal(lower string) bool {
	return containsAny(lower, temporalKeywords)
}

// exampleColumn returns the first column in any of the given categories.
func exampleColumn(sem *semantic.Schema, categories ...semantic.Category) string {
	if sem == nil {
		return ""
	}
	for _, cat := range categories {
		if names := sem.ColumnsByCategory(cat); len(names) > 0 {
			return names[0]
		}
	}
	return ""
}
