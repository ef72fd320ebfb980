package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subhatta123/bitool-sub002/internal/semantic"
)

var orderColumns = []string{"Product_Name", "Sales", "Region", "Order_Date"}

func TestAssessWellSpecifiedQuestion(t *testing.T) {
	question := "top 3 selling items in the south in 2015"
	sql := `SELECT "Product_Name", SUM("Sales") AS Total_Sales FROM "orders" WHERE "Region" = 'South' GROUP BY "Product_Name" ORDER BY Total_Sales DESC LIMIT 3;`

	score := Assess(question, sql, orderColumns)
	assert.GreaterOrEqual(t, score, DefaultThreshold)
}

func TestAssessVagueQuestion(t *testing.T) {
	score := Assess("top customers", "", orderColumns)
	assert.Less(t, score, DefaultThreshold)
}

func TestAssessScoreBounds(t *testing.T) {
	questions := []string{
		"",
		"x",
		"top best worst most least",
		"show total sales and revenue by region and order date in 2020",
	}
	for _, q := range questions {
		score := Assess(q, "", orderColumns)
		assert.GreaterOrEqual(t, score, 0, "question: %q", q)
		assert.LessOrEqual(t, score, 100, "question: %q", q)
	}
}

func TestAssessSQLSignals(t *testing.T) {
	question := "show total sales by region in 2020"

	base := Assess(question, "", orderColumns)
	structured := Assess(question, `SELECT "Region", SUM("Sales") FROM "orders" WHERE "Order_Date" LIKE '%2020%' GROUP BY "Region";`, orderColumns)
	broken := Assess(question, `DROP TABLE "orders";`, orderColumns)

	assert.GreaterOrEqual(t, structured, base)
	assert.Less(t, broken, base)
}

// A larger recognized-column set must never lower the score for the same
// question, even when a column name contains a vague word.
func TestAssessColumnRecognitionIsMonotonic(t *testing.T) {
	questions := []string{
		"show total sales by region in 2020",
		"what is the top speed of cars",
		"compare revenue per region",
	}
	smaller := []string{"Region"}
	larger := []string{"Region", "Sales", "Top_Speed"}

	for _, q := range questions {
		assert.GreaterOrEqual(t, Assess(q, "", larger), Assess(q, "", smaller), "question: %q", q)
		assert.GreaterOrEqual(t, Assess(q, "", smaller), Assess(q, "", nil), "question: %q", q)
	}
}

func TestClarifyRankingQuestion(t *testing.T) {
	sem := semantic.BuildSchema("orders", []semantic.ColumnInput{
		{Name: "Product_Name", DataType: "text"},
		{Name: "Sales", DataType: "numeric"},
		{Name: "Region", DataType: "text"},
		{Name: "Order_Date", DataType: "text"},
	})

	questions := Clarify("top customers", sem)
	require.Len(t, questions, 2)
	assert.Contains(t, questions[0], "Sales")
	assert.Contains(t, questions[1], "How many results")
}

func TestClarifyFallsBackToColumnList(t *testing.T) {
	sem := semantic.BuildSchema("orders", []semantic.ColumnInput{
		{Name: "Product_Name", DataType: "text"},
		{Name: "Sales", DataType: "numeric"},
	})

	questions := Clarify("data please", sem)
	require.Len(t, questions, 1)
	assert.Contains(t, questions[0], `"Product_Name"`)
	assert.Contains(t, questions[0], `"Sales"`)
}

func TestClarifyCapsQuestionCount(t *testing.T) {
	sem := semantic.BuildSchema("orders", []semantic.ColumnInput{
		{Name: "Sales", DataType: "numeric"},
		{Name: "Region", DataType: "text"},
		{Name: "Order_Date", DataType: "text"},
		{Name: "Segment", DataType: "text"},
	})

	// Ranking, counting, categorical, geographic and temporal all match.
	questions := Clarify("top count per region by month", sem)
	assert.Len(t, questions, maxClarifications)
}
