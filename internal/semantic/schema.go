package semantic

import (
	"fmt"
	"sort"
	"strings"
)

// ColumnDescriptor is the per-column part of a semantic schema.
type ColumnDescriptor struct {
	Name        string
	DataType    string
	Category    Category
	Description string
	Samples     []string
	Nullable    bool
}

// Schema is the enriched description of one table used as generation context.
// A persisted schema written by the ingestion process is reused as-is; when
// none exists a transient one is generated for the current request only.
type Schema struct {
	Table           string
	DisplayName     string
	Description     string
	BusinessPurpose string
	Columns         []ColumnDescriptor
	ETLTransformed  bool
	Persisted       bool
}

// ColumnInput carries the raw facts needed to enrich one column.
type ColumnInput struct {
	Name     string
	DataType string
	Samples  []string
	Nullable bool
}

// BuildSchema constructs a transient semantic schema for a table.
func BuildSchema(table string, cols []ColumnInput) *Schema {
	s := &Schema{
		Table:       table,
		DisplayName: displayName(table),
	}
	counts := make(map[Category]int)
	for _, c := range cols {
		cat := Categorize(c.Name, c.DataType, c.Samples)
		counts[cat]++
		s.Columns = append(s.Columns, ColumnDescriptor{
			Name:        c.Name,
			DataType:    c.DataType,
			Category:    cat,
			Description: describeColumn(c.Name, cat),
			Samples:     c.Samples,
			Nullable:    c.Nullable,
		})
	}
	s.Description = summarize(s.DisplayName, counts, len(cols))
	s.BusinessPurpose = purpose(counts)
	return s
}

// ColumnNames returns every column name in declaration order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the descriptor for a column name, matched case-insensitively.
func (s *Schema) Column(name string) (ColumnDescriptor, bool) {
	for _, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ColumnDescriptor{}, false
}

// ColumnsByCategory returns the names of all columns in the given category.
func (s *Schema) ColumnsByCategory(cat Category) []string {
	var names []string
	for _, c := range s.Columns {
		if c.Category == cat {
			names = append(names, c.Name)
		}
	}
	return names
}

// ContextString renders the schema as generation context. Each column line
// embeds the exact column identifier in double quotes; generated SQL must
// reuse those identifiers unchanged.
func (s *Schema) ContextString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table: \"%s\"\n", s.Table)
	if s.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", s.Description)
	}
	if s.BusinessPurpose != "" {
		fmt.Fprintf(&b, "Purpose: %s\n", s.BusinessPurpose)
	}
	b.WriteString("Columns:\n")
	for _, c := range s.Columns {
		fmt.Fprintf(&b, "- \"%s\" (%s, %s): %s", c.Name, c.DataType, c.Category, c.Description)
		if len(c.Samples) > 0 {
			shown := c.Samples
			if len(shown) > 3 {
				shown = shown[:3]
			}
			fmt.Fprintf(&b, " Examples: %s.", strings.Join(shown, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Glossary returns generic analytical term definitions independent of any
// specific dataset.
func Glossary() string {
	terms := map[string]string{
		"measure":     "a numeric column that can be aggregated (summed, averaged)",
		"dimension":   "a descriptive column used for grouping or filtering",
		"aggregation": "combining many rows into one value, e.g. SUM, COUNT, AVG",
		"grouping":    "splitting rows by the values of a dimension before aggregating",
		"filter":      "a condition restricting which rows are considered",
		"ranking":     "ordering groups by a measure and keeping the first N",
		"granularity": "the level of detail of a result, set by the grouped dimensions",
	}
	keys := make([]string, 0, len(terms))
	for k := range terms {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Glossary:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, terms[k])
	}
	return b.String()
}

func describeColumn(name string, cat Category) string {
	return fmt.Sprintf("column \"%s\" is a %s: %s.", name, cat, cat.describe())
}

func displayName(table string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ").Replace(table)
	words := strings.Fields(cleaned)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func summarize(display string, counts map[Category]int, total int) string {
	var parts []string
	for _, cat := range []Category{CategoryMonetary, CategoryQuantity, CategoryTemporal, CategoryGeographic, CategoryCategorical, CategoryIdentifier} {
		if n := counts[cat]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, cat))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s with %d columns.", display, total)
	}
	return fmt.Sprintf("%s with %d columns (%s).", display, total, strings.Join(parts, ", "))
}

func purpose(counts map[Category]int) string {
	hasMeasure := counts[CategoryMonetary] > 0 || counts[CategoryQuantity] > 0
	hasTime := counts[CategoryTemporal] > 0
	hasGeo := counts[CategoryGeographic] > 0
	switch {
	case hasMeasure && hasTime && hasGeo:
		return "supports trend analysis of measures over time and across regions"
	case hasMeasure && hasTime:
		return "supports trend analysis of measures over time"
	case hasMeasure && hasGeo:
		return "supports regional comparison of measures"
	case hasMeasure:
		return "supports aggregate analysis of numeric measures"
	default:
		return "supports descriptive listing and filtering"
	}
}
