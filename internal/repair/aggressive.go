package repair

import (
	"fmt"
	"regexp"
	"strings"
)

// AggressiveRules returns the broader rule chain for the single
// post-execution-failure retry. It contains every standard rule plus wider
// alias and ORDER BY coverage, and stays idempotent.
func AggressiveRules(cfg Config) []Rule {
	return []Rule{
		{Name: "convert_backticks", Apply: convertBackticks},
		{Name: "collapse_quote_runs", Apply: collapseQuoteRuns},
		{Name: "repair_aliases", Apply: repairAliases},
		{Name: "quote_multiword_aliases", Apply: quoteMultiwordAliases},
		{Name: "normalize_order_by", Apply: normalizeOrderBy},
		{Name: "quote_multiword_order_by", Apply: quoteMultiwordOrderBy},
		{Name: "underscore_quoted_identifiers", Apply: underscoreQuotedIdentifiers},
		{Name: "wrap_text_date_extraction", Apply: wrapTextDateExtraction(cfg)},
		{Name: "ensure_trailing_semicolon", Apply: ensureTrailingSemicolon},
	}
}

var asKeyword = regexp.MustCompile(`(?i)\bas\b`)

// aliasTerminators end an alias token run during the aggressive scan. The
// type names keep multi-word casts such as CAST(x AS DOUBLE PRECISION)
// untouched.
var aliasTerminators = map[string]struct{}{
	"FROM": {}, "WHERE": {}, "GROUP": {}, "ORDER": {}, "HAVING": {},
	"LIMIT": {}, "OFFSET": {}, "UNION": {}, "JOIN": {}, "ON": {}, "AS": {},
	"DOUBLE": {}, "CHARACTER": {}, "TIMESTAMP": {}, "TIME": {}, "INTERVAL": {},
}

// quoteMultiwordAliases finds bare aliases made of several words, such as
// `SUM(x) AS Total Sales FROM ...`, and joins them into one quoted alias.
// Single-word and already quoted aliases are left untouched, which makes the
// pass idempotent.
func quoteMultiwordAliases(sql string) string {
	locs := asKeyword.FindAllStringIndex(sql, -1)
	if locs == nil {
		return sql
	}

	var b strings.Builder
	prev := 0
	for _, loc := range locs {
		b.WriteString(sql[prev:loc[1]])
		prev = loc[1]

		rest := sql[loc[1]:]
		words, consumed := scanAliasWords(rest)
		if len(words) < 2 {
			continue
		}
		fragments := []string{strings.Join(words, " ")}
		// A quoted fragment glued straight onto the bare words belongs to
		// the same broken alias and must be absorbed, or the rewrite would
		// leave the new closing quote adjacent to the fragment's opening
		// quote. A stray quote whose pair closes over non-identifier text
		// (or never closes) means the alias boundary is unknowable, so the
		// whole rewrite is declined.
		if consumed < len(rest) && rest[consumed] == '"' {
			inner, n := gluedQuotedFragment(rest[consumed:])
			if n == 0 || !looksLikeIdentifier(inner) {
				continue
			}
			fragments = append(fragments, inner)
			consumed += n
		}
		fmt.Fprintf(&b, ` "%s"`, sanitizeAlias(fragments...))
		prev = loc[1] + consumed
	}
	b.WriteString(sql[prev:])
	return b.String()
}

// scanAliasWords collects bare identifier words following an AS keyword and
// returns how many input bytes they span. Scanning stops at punctuation,
// quotes, a newline, or a terminator keyword.
func scanAliasWords(rest string) ([]string, int) {
	var words []string
	i := 0
	for i < len(rest) {
		// Skip spaces and tabs between words; a newline ends the alias.
		start := i
		for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t') {
			i++
		}
		if i >= len(rest) || rest[i] == '\n' || rest[i] == ',' || rest[i] == '"' || rest[i] == '(' || rest[i] == ')' || rest[i] == ';' {
			i = start
			break
		}
		wordStart := i
		for i < len(rest) && isAliasWordByte(rest[i]) {
			i++
		}
		if i == wordStart {
			i = start
			break
		}
		word := rest[wordStart:i]
		if _, stop := aliasTerminators[strings.ToUpper(word)]; stop {
			i = start
			break
		}
		words = append(words, word)
	}
	return words, i
}

// gluedQuotedFragment reads a complete double-quoted fragment at the start of
// rest and returns its contents plus the bytes consumed, or 0 when the quote
// is never closed.
func gluedQuotedFragment(rest string) (string, int) {
	end := strings.IndexByte(rest[1:], '"')
	if end == -1 {
		return "", 0
	}
	return rest[1 : 1+end], end + 2
}

func isAliasWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// Matches a bare multiword ORDER BY target: `ORDER BY Total Sales DESC`.
var bareOrderBy = regexp.MustCompile(`(?i)\border\s+by\s+([A-Za-z_][A-Za-z0-9_]*(?:[ \t]+[A-Za-z_][A-Za-z0-9_]*)+)`)

// quoteMultiwordOrderBy quotes and underscore-joins a bare multiword ORDER BY
// column, keeping direction keywords outside the quotes.
func quoteMultiwordOrderBy(sql string) string {
	return bareOrderBy.ReplaceAllStringFunc(sql, func(match string) string {
		parts := bareOrderBy.FindStringSubmatch(match)
		tokens := strings.Fields(parts[1])

		var columnWords, suffix []string
		for _, token := range tokens {
			upper := strings.ToUpper(token)
			if upper == "ASC" || upper == "DESC" || upper == "LIMIT" || upper == "OFFSET" {
				suffix = append(suffix, upper)
				continue
			}
			if len(suffix) > 0 {
				// Words after a keyword (e.g. a LIMIT count) stay outside.
				suffix = append(suffix, token)
				continue
			}
			columnWords = append(columnWords, token)
		}
		if len(columnWords) < 2 {
			return match
		}

		rebuilt := fmt.Sprintf(`ORDER BY "%s"`, strings.Join(columnWords, "_"))
		if len(suffix) > 0 {
			rebuilt += " " + strings.Join(suffix, " ")
		}
		return rebuilt
	})
}
