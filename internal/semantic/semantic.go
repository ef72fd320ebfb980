// Package semantic derives human-readable descriptions for tables and columns
// from naming and value-shape patterns. It carries no dataset-specific
// vocabulary; every rule is a generic pattern that works against arbitrary
// uploaded data.
package semantic

import (
	"regexp"
	"strings"
)

// Category classifies a column by its analytical role.
type Category int

const (
	CategoryGeneric Category = iota
	CategoryIdentifier
	CategoryName
	CategoryMonetary
	CategoryQuantity
	CategoryTemporal
	CategoryGeographic
	CategoryCategorical
)

func (c Category) String() string {
	switch c {
	case CategoryIdentifier:
		return "identifier"
	case CategoryName:
		return "name"
	case CategoryMonetary:
		return "monetary"
	case CategoryQuantity:
		return "quantity"
	case CategoryTemporal:
		return "temporal"
	case CategoryGeographic:
		return "geographic"
	case CategoryCategorical:
		return "categorical"
	default:
		return "generic"
	}
}

var (
	identifierPattern  = regexp.MustCompile(`(?i)(^id$|_id$|^id_|_key$|_code$|_no$|_num$|number$|^uuid$|_uuid$)`)
	namePattern        = regexp.MustCompile(`(?i)(name|title|label)`)
	monetaryPattern    = regexp.MustCompile(`(?i)(price|cost|amount|revenue|sales|total|fee|salary|budget|profit|discount|payment)`)
	quantityPattern    = regexp.MustCompile(`(?i)(qty|quantity|count|units|stock|volume)`)
	temporalPattern    = regexp.MustCompile(`(?i)(date|time|year|month|day|week|quarter|created|updated|timestamp)`)
	geographicPattern  = regexp.MustCompile(`(?i)(country|city|state|region|province|zip|postal|latitude|longitude|address|location|territory)`)
	categoricalPattern = regexp.MustCompile(`(?i)(type|status|category|class|segment|group|tier|grade|level)`)

	decimalShape = regexp.MustCompile(`^-?\d+\.\d{1,4}$`)
	integerShape = regexp.MustCompile(`^-?\d+$`)
	currencyShape = regexp.MustCompile(`^[$€£₹]\s?-?[\d,]+(\.\d+)?$`)
	uuidShape     = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	dateShape     = regexp.MustCompile(`^\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}`)
)

// Categorize assigns exactly one category to a column using its name, declared
// type, and sampled values. Name patterns win over shape patterns because the
// identifier chosen by the dataset author is the stronger signal.
func Categorize(name, dataType string, samples []string) Category {
	switch {
	case identifierPattern.MatchString(name):
		return CategoryIdentifier
	case temporalPattern.MatchString(name):
		return CategoryTemporal
	case monetaryPattern.MatchString(name):
		return CategoryMonetary
	case quantityPattern.MatchString(name):
		return CategoryQuantity
	case geographicPattern.MatchString(name):
		return CategoryGeographic
	case namePattern.MatchString(name):
		return CategoryName
	case categoricalPattern.MatchString(name):
		return CategoryCategorical
	}

	if cat, ok := categorizeByShape(samples); ok {
		return cat
	}

	lower := strings.ToLower(dataType)
	switch {
	case strings.Contains(lower, "date") || strings.Contains(lower, "time"):
		return CategoryTemporal
	case strings.Contains(lower, "decimal") || strings.Contains(lower, "numeric") ||
		strings.Contains(lower, "money") || strings.Contains(lower, "float") ||
		strings.Contains(lower, "double") || strings.Contains(lower, "real"):
		return CategoryMonetary
	case strings.Contains(lower, "int"):
		return CategoryQuantity
	}
	return CategoryGeneric
}

// categorizeByShape inspects sampled values. A category is assigned only when
// a clear majority of samples share the shape.
func categorizeByShape(samples []string) (Category, bool) {
	if len(samples) == 0 {
		return CategoryGeneric, false
	}
	var uuids, currencies, dates, decimals, integers int
	for _, s := range samples {
		trimmed := strings.TrimSpace(s)
		switch {
		case uuidShape.MatchString(trimmed):
			uuids++
		case currencyShape.MatchString(trimmed):
			currencies++
		case dateShape.MatchString(trimmed):
			dates++
		case decimalShape.MatchString(trimmed):
			decimals++
		case integerShape.MatchString(trimmed):
			integers++
		}
	}
	majority := (len(samples) + 1) / 2
	switch {
	case uuids >= majority:
		return CategoryIdentifier, true
	case currencies >= majority:
		return CategoryMonetary, true
	case dates >= majority:
		return CategoryTemporal, true
	case decimals >= majority:
		return CategoryMonetary, true
	case integers >= majority:
		return CategoryQuantity, true
	}

	// Low-cardinality short text reads as categorical.
	distinct := make(map[string]struct{}, len(samples))
	short := true
	for _, s := range samples {
		distinct[strings.TrimSpace(s)] = struct{}{}
		if len(s) > 32 {
			short = false
		}
	}
	if short && len(samples) >= 5 && len(distinct)*2 <= len(samples) {
		return CategoryCategorical, true
	}
	return CategoryGeneric, false
}

// describe returns a one-line semantic description for a category.
func (c Category) describe() string {
	switch c {
	case CategoryIdentifier:
		return "unique identifier; use for joins and lookups, not for aggregation"
	case CategoryName:
		return "display name or label; group or filter by it, do not aggregate it"
	case CategoryMonetary:
		return "monetary or numeric measure; suitable for SUM and AVG aggregation"
	case CategoryQuantity:
		return "count or quantity measure; suitable for SUM aggregation"
	case CategoryTemporal:
		return "date or time value; use for temporal filtering and trend grouping"
	case CategoryGeographic:
		return "geographic attribute; use for regional filtering and grouping"
	case CategoryCategorical:
		return "categorical attribute with a limited set of values; use for grouping"
	default:
		return "general-purpose attribute"
	}
}
