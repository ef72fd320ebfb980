package schema

import (
	"regexp"
	"strings"
)

// Text columns are reclassified as temporal when at least this share of the
// sampled non-null values match a date shape.
const temporalMatchThreshold = 0.8

// Date shapes recognized in text columns: day-month-year with common
// separators, ISO year-first order, and compact eight-digit numeric dates.
var dateShapePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}$`), // 31-01-2015, 31/1/15
	regexp.MustCompile(`^\d{4}[-/.]\d{1,2}[-/.]\d{1,2}$`),   // 2015-01-31
	regexp.MustCompile(`^\d{8}$`),                           // 20150131
}

// looksTemporal reports whether the sampled values are predominantly
// date-shaped. Empty values are ignored; an empty sample never reclassifies.
func looksTemporal(samples []string) bool {
	var considered, matched int
	for _, s := range samples {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			continue
		}
		considered++
		for _, p := range dateShapePatterns {
			if p.MatchString(trimmed) {
				matched++
				break
			}
		}
	}
	if considered == 0 {
		return false
	}
	return float64(matched)/float64(considered) >= temporalMatchThreshold
}
