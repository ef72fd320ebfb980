// Package prompt assembles provider-targeted instruction text for SQL
// generation. All providers share one template parameterized by framing
// strings; only the framing differs, never the rules.
package prompt

import (
	"fmt"
	"strings"
)

// Provider identifies the text-completion backend a prompt targets. The set
// is closed; adding a provider means adding framing here, not a new builder.
type Provider int

const (
	ProviderGemini Provider = iota
	ProviderOpenAI
)

func (p Provider) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	default:
		return "gemini"
	}
}

// Context carries everything a prompt is built from.
type Context struct {
	Question          string
	SchemaDescription string
	Glossary          string
	Provider          Provider
}

// framing holds the provider-specific surrounding text.
type framing struct {
	opening string
	closing string
}

var framings = map[Provider]framing{
	ProviderGemini: {
		opening: "You are an expert SQL analyst. Generate a single SQL query answering the user's question using ONLY the schema below.",
		closing: "Respond with the SQL query only. No markdown fences, no commentary.",
	},
	ProviderOpenAI: {
		opening: "You convert natural language analytics questions into a single SQL query. Use ONLY the tables and columns listed in the schema context.",
		closing: "Return ONLY SQL. No markdown, no explanation.",
	},
}

// dialectRules is the fixed, non-negotiable rule block embedded in every
// prompt regardless of provider. The compliance check below keys on its
// marker phrases; changing the wording requires updating both together.
const dialectRules = `SQL dialect rules (mandatory):
1. Enclose every column and table identifier in double quotes, exactly as written in the schema, e.g. "Order_Date".
2. Never use backticks to quote identifiers. Backticks are forbidden.
3. Column aliases must be plain identifiers with no quotes and no spaces; join words with underscores, e.g. AS Total_Sales.
4. ASC, DESC, LIMIT and OFFSET must appear outside any quoted identifier. Never place a sort direction or row limit inside quotes.
5. End the statement with a semicolon.`

// requiredMarkers are phrases every built prompt must contain. A prompt
// missing one is a programming error, not a condition to paper over.
var requiredMarkers = []string{
	"double quotes",
	"backticks",
	"no quotes and no spaces",
	"outside any quoted identifier",
}

// Build is a pure function assembling the full prompt text. It returns an
// error only when the assembled prompt fails its own compliance check.
func Build(c Context) (string, error) {
	f, ok := framings[c.Provider]
	if !ok {
		return "", fmt.Errorf("unknown provider: %d", int(c.Provider))
	}

	var b strings.Builder
	b.WriteString(f.opening)
	b.WriteString("\n\n")
	b.WriteString(c.SchemaDescription)
	if c.Glossary != "" {
		b.WriteString("\n")
		b.WriteString(c.Glossary)
	}
	b.WriteString("\n")
	b.WriteString(dialectRules)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(strings.TrimSpace(c.Question))
	b.WriteString("\n\n")
	b.WriteString(f.closing)

	text := b.String()
	if err := Verify(text); err != nil {
		return "", err
	}
	return text, nil
}

// Verify scans a prompt for the required dialect-rule marker phrases.
func Verify(text string) error {
	for _, marker := range requiredMarkers {
		if !strings.Contains(text, marker) {
			return fmt.Errorf("prompt is missing required dialect rule marker %q", marker)
		}
	}
	return nil
}
