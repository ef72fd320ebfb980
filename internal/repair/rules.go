package repair

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderAlias substitutes an alias whose characters were all disallowed.
const placeholderAlias = "col"

// StandardRules returns the ordered rule chain applied to every candidate.
func StandardRules(cfg Config) []Rule {
	return []Rule{
		{Name: "convert_backticks", Apply: convertBackticks},
		{Name: "collapse_quote_runs", Apply: collapseQuoteRuns},
		{Name: "repair_aliases", Apply: repairAliases},
		{Name: "normalize_order_by", Apply: normalizeOrderBy},
		{Name: "underscore_quoted_identifiers", Apply: underscoreQuotedIdentifiers},
		{Name: "wrap_text_date_extraction", Apply: wrapTextDateExtraction(cfg)},
		{Name: "ensure_trailing_semicolon", Apply: ensureTrailingSemicolon},
	}
}

// convertBackticks rewrites MySQL-style backtick quoting to double quotes.
func convertBackticks(sql string) string {
	return strings.ReplaceAll(sql, "`", `"`)
}

var quoteRun = regexp.MustCompile(`"{2,}`)

// collapseQuoteRuns reduces doubled or tripled quote runs to a single quote,
// so `""Total Sales""` becomes `"Total Sales"`.
func collapseQuoteRuns(sql string) string {
	return quoteRun.ReplaceAllString(sql, `"`)
}

// Matches `as Foo"Bar"`: an optional bare prefix glued to a quoted remainder.
var brokenAlias = regexp.MustCompile(`(?i)\b(as)\s+([A-Za-z0-9_]*)"([^"]*)"`)

// repairAliases merges alias fragments split by a stray quote into one quoted
// underscore-joined alias. `SUM(x) as Total"Sales"` becomes
// `SUM(x) as "Total_Sales"`.
func repairAliases(sql string) string {
	return brokenAlias.ReplaceAllStringFunc(sql, func(match string) string {
		parts := brokenAlias.FindStringSubmatch(match)
		keyword, prefix, inner := parts[1], parts[2], parts[3]
		alias := sanitizeAlias(prefix, inner)
		return fmt.Sprintf(`%s "%s"`, keyword, alias)
	})
}

var disallowedAliasChars = regexp.MustCompile(`[^A-Za-z0-9_]`)
var underscoreRun = regexp.MustCompile(`_{2,}`)

// sanitizeAlias joins alias fragments with underscores and strips characters
// that are not legal in a bare identifier.
func sanitizeAlias(fragments ...string) string {
	var kept []string
	for _, f := range fragments {
		f = strings.TrimSpace(f)
		if f != "" {
			kept = append(kept, f)
		}
	}
	joined := strings.Join(kept, "_")
	joined = strings.ReplaceAll(joined, " ", "_")
	joined = disallowedAliasChars.ReplaceAllString(joined, "")
	joined = underscoreRun.ReplaceAllString(joined, "_")
	joined = strings.Trim(joined, "_")
	if joined == "" {
		return placeholderAlias
	}
	return joined
}

// Matches an ORDER BY whose quoted blob swallowed the direction keyword
// and/or a LIMIT/OFFSET suffix, plus an optional stray semicolon after it.
var orderByBlob = regexp.MustCompile(`(?is)\border\s+by\s+"([^"]+)"\s*(;?)`)

// normalizeOrderBy rebuilds a malformed single quoted ORDER BY blob such as
// `ORDER BY "Total Sales DESC\nLIMIT 3;"` into
// `ORDER BY "Total_Sales" DESC LIMIT 3;`.
func normalizeOrderBy(sql string) string {
	return orderByBlob.ReplaceAllStringFunc(sql, func(match string) string {
		parts := orderByBlob.FindStringSubmatch(match)
		blob, trailing := parts[1], parts[2]
		if !blobNeedsSplitting(blob) {
			return match
		}

		var columnWords []string
		direction := ""
		limit := ""
		offset := ""
		sawSemicolon := trailing == ";"

		tokens := strings.Fields(blob)
		for i := 0; i < len(tokens); i++ {
			token := strings.TrimSpace(tokens[i])
			if strings.HasSuffix(token, ";") {
				sawSemicolon = true
				token = strings.TrimSuffix(token, ";")
			}
			if token == "" {
				continue
			}
			switch strings.ToUpper(token) {
			case "ASC", "DESC":
				direction = strings.ToUpper(token)
			case "LIMIT":
				if i+1 < len(tokens) {
					i++
					next := strings.TrimSpace(tokens[i])
					if strings.HasSuffix(next, ";") {
						sawSemicolon = true
						next = strings.TrimSuffix(next, ";")
					}
					limit = next
				}
			case "OFFSET":
				if i+1 < len(tokens) {
					i++
					next := strings.TrimSpace(tokens[i])
					if strings.HasSuffix(next, ";") {
						sawSemicolon = true
						next = strings.TrimSuffix(next, ";")
					}
					offset = next
				}
			default:
				columnWords = append(columnWords, token)
			}
		}
		if len(columnWords) == 0 {
			return match
		}

		var b strings.Builder
		fmt.Fprintf(&b, `ORDER BY "%s"`, strings.Join(columnWords, "_"))
		if direction != "" {
			b.WriteString(" " + direction)
		}
		if limit != "" {
			b.WriteString(" LIMIT " + limit)
		}
		if offset != "" {
			b.WriteString(" OFFSET " + offset)
		}
		if sawSemicolon {
			b.WriteString(";")
		}
		return b.String()
	})
}

// blobNeedsSplitting reports whether a quoted ORDER BY argument contains
// keywords that belong outside the quotes.
func blobNeedsSplitting(blob string) bool {
	upper := strings.ToUpper(blob)
	for _, keyword := range []string{"ASC", "DESC", "LIMIT", "OFFSET"} {
		for _, token := range strings.Fields(upper) {
			if strings.TrimSuffix(token, ";") == keyword {
				return true
			}
		}
	}
	return strings.ContainsAny(blob, ";\n")
}

var quotedToken = regexp.MustCompile(`"([^"]*)"`)

// sqlKeywords inside a quoted token indicate the token is not a plain
// identifier and must be left alone.
var sqlKeywords = map[string]struct{}{
	"SELECT": {}, "FROM": {}, "WHERE": {}, "GROUP": {}, "ORDER": {}, "BY": {},
	"HAVING": {}, "LIMIT": {}, "OFFSET": {}, "ASC": {}, "DESC": {}, "AND": {},
	"OR": {}, "NOT": {}, "AS": {}, "JOIN": {}, "ON": {}, "UNION": {}, "DISTINCT": {},
}

// underscoreQuotedIdentifiers joins spaces inside quoted identifier-shaped
// tokens with underscores, because the resolved schema stores underscore
// joined column names. Tokens containing SQL keywords or punctuation are not
// identifiers and are skipped, as is anything inside a single-quoted string
// literal.
func underscoreQuotedIdentifiers(sql string) string {
	var b strings.Builder
	for len(sql) > 0 {
		open := strings.IndexByte(sql, '\'')
		if open == -1 {
			b.WriteString(rewriteQuotedIdentifiers(sql))
			break
		}
		b.WriteString(rewriteQuotedIdentifiers(sql[:open]))
		end := strings.IndexByte(sql[open+1:], '\'')
		if end == -1 {
			b.WriteString(sql[open:])
			break
		}
		b.WriteString(sql[open : open+2+end])
		sql = sql[open+2+end:]
	}
	return b.String()
}

func rewriteQuotedIdentifiers(segment string) string {
	return quotedToken.ReplaceAllStringFunc(segment, func(match string) string {
		inner := match[1 : len(match)-1]
		if !strings.Contains(inner, " ") {
			return match
		}
		if !looksLikeIdentifier(inner) {
			return match
		}
		return `"` + strings.ReplaceAll(inner, " ", "_") + `"`
	})
}

var identifierWord = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func looksLikeIdentifier(inner string) bool {
	for _, word := range strings.Fields(inner) {
		if !identifierWord.MatchString(word) {
			return false
		}
		if _, isKeyword := sqlKeywords[strings.ToUpper(word)]; isKeyword {
			return false
		}
	}
	return true
}

var (
	extractOnColumn = regexp.MustCompile(`(?i)\bextract\s*\(\s*(year|month|day)\s+from\s+"([^"]+)"\s*\)`)
	dateFnOnColumn  = regexp.MustCompile(`(?i)\b(year|month|day)\s*\(\s*"([^"]+)"\s*\)`)
)

// wrapTextDateExtraction wraps date-typed columns in an explicit text-to-date
// parse before year/month/day extraction, because the store keeps dates as
// formatted text rather than a native date type. Only the configured date
// columns are rewritten; an already wrapped reference no longer matches the
// bare-column pattern, which keeps the rule idempotent.
func wrapTextDateExtraction(cfg Config) func(string) string {
	format := cfg.dateFormat()
	isDateColumn := make(map[string]struct{}, len(cfg.DateColumns))
	for _, c := range cfg.DateColumns {
		isDateColumn[strings.ToLower(c)] = struct{}{}
	}

	return func(sql string) string {
		if len(isDateColumn) == 0 {
			return sql
		}
		sql = extractOnColumn.ReplaceAllStringFunc(sql, func(match string) string {
			parts := extractOnColumn.FindStringSubmatch(match)
			field, column := strings.ToUpper(parts[1]), parts[2]
			if _, ok := isDateColumn[strings.ToLower(column)]; !ok {
				return match
			}
			return fmt.Sprintf(`EXTRACT(%s FROM TO_DATE("%s", '%s'))`, field, column, format)
		})
		sql = dateFnOnColumn.ReplaceAllStringFunc(sql, func(match string) string {
			parts := dateFnOnColumn.FindStringSubmatch(match)
			field, column := strings.ToUpper(parts[1]), parts[2]
			if _, ok := isDateColumn[strings.ToLower(column)]; !ok {
				return match
			}
			return fmt.Sprintf(`EXTRACT(%s FROM TO_DATE("%s", '%s'))`, field, column, format)
		})
		return sql
	}
}

// ensureTrailingSemicolon terminates the statement exactly once.
func ensureTrailingSemicolon(sql string) string {
	trimmed := strings.TrimRight(sql, " \t\n\r")
	if trimmed == "" {
		return trimmed
	}
	if strings.HasSuffix(trimmed, ";") {
		return trimmed
	}
	return trimmed + ";"
}
