package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContainsAllSections(t *testing.T) {
	for _, provider := range []Provider{ProviderGemini, ProviderOpenAI} {
		t.Run(provider.String(), func(t *testing.T) {
			text, err := Build(Context{
				Question:          "top 3 selling items in the south in 2015",
				SchemaDescription: "Table: \"orders\"\nColumns:\n- \"Sales\" (numeric, monetary)",
				Glossary:          "Glossary:\nmeasure: a numeric value",
				Provider:          provider,
			})
			require.NoError(t, err)

			assert.Contains(t, text, `"orders"`)
			assert.Contains(t, text, "Glossary:")
			assert.Contains(t, text, "Question: top 3 selling items in the south in 2015")
			assert.NoError(t, Verify(text))
		})
	}
}

func TestBuildEmbedsDialectRules(t *testing.T) {
	text, err := Build(Context{
		Question:          "total sales",
		SchemaDescription: "Table: \"orders\"",
		Provider:          ProviderGemini,
	})
	require.NoError(t, err)

	assert.Contains(t, text, `e.g. "Order_Date"`)
	assert.Contains(t, text, "Backticks are forbidden")
	assert.Contains(t, text, "AS Total_Sales")
	assert.Contains(t, text, "End the statement with a semicolon")
}

func TestBuildProviderFramingsDiffer(t *testing.T) {
	base := Context{
		Question:          "total sales",
		SchemaDescription: "Table: \"orders\"",
	}

	gemini, err := Build(base)
	require.NoError(t, err)

	base.Provider = ProviderOpenAI
	openai, err := Build(base)
	require.NoError(t, err)

	assert.NotEqual(t, gemini, openai)

	// The rule block itself must be byte-identical across providers.
	assert.True(t, strings.Contains(gemini, dialectRules))
	assert.True(t, strings.Contains(openai, dialectRules))
}

func TestBuildUnknownProvider(t *testing.T) {
	_, err := Build(Context{Question: "q", Provider: Provider(99)})
	assert.Error(t, err)
}

func TestVerifyRejectsStrippedPrompt(t *testing.T) {
	assert.Error(t, Verify("generate some SQL please"))
}
