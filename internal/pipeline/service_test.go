package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subhatta123/bitool-sub002/internal/config"
	"github.com/subhatta123/bitool-sub002/internal/database"
	"github.com/subhatta123/bitool-sub002/internal/genai"
	"github.com/subhatta123/bitool-sub002/internal/metastore"
	"github.com/subhatta123/bitool-sub002/internal/resolver"
)

var (
	errSyntax = errors.New("syntax error at or near \"LIMIT\"")
	errColumn = errors.New("column \"Total Sales\" does not exist")
)

// fakeEngine serves a fixed catalog and scripts ExecuteQuery outcomes.
type fakeEngine struct {
	tables   []string
	columns  map[string][]database.ColumnInfo
	samples  map[string]map[string][]string
	script   []scriptedResult
	executed []string
}

type scriptedResult struct {
	result *database.ResultSet
	err    error
}

func (f *fakeEngine) ListTables(ctx context.Context) ([]string, error) { return f.tables, nil }

func (f *fakeEngine) ListColumns(ctx context.Context, table string) ([]database.ColumnInfo, error) {
	return f.columns[table], nil
}

func (f *fakeEngine) CountRows(ctx context.Context, table string) (int64, error) { return 1000, nil }

func (f *fakeEngine) SampleColumnValues(ctx context.Context, table, column string, limit int) ([]string, error) {
	return f.samples[table][column], nil
}

func (f *fakeEngine) ExecuteQuery(ctx context.Context, query string) (*database.ResultSet, error) {
	f.executed = append(f.executed, query)
	if len(f.script) == 0 {
		return &database.ResultSet{Columns: []string{"ok"}}, nil
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next.result, next.err
}

func (f *fakeEngine) QuoteIdentifier(name string) string { return `"` + name + `"` }

func (f *fakeEngine) ClassifyError(err error) database.ErrorKind {
	switch {
	case errors.Is(err, errSyntax):
		return database.ErrorKindSyntax
	case errors.Is(err, errColumn):
		return database.ErrorKindColumnNotFound
	default:
		return database.ErrorKindOther
	}
}

func (f *fakeEngine) Ping(ctx context.Context) error { return nil }

func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) GetConfig() config.DatabaseConfig { return config.DatabaseConfig{} }

type fakeLLM struct {
	sql     string
	err     error
	prompts []string
}

func (f *fakeLLM) GenerateSQL(ctx context.Context, prompt string, opts genai.Options) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.sql, f.err
}

func (f *fakeLLM) Close() error { return nil }

func ordersEngine() *fakeEngine {
	return &fakeEngine{
		tables: []string{"orders"},
		columns: map[string][]database.ColumnInfo{
			"orders": {
				{Name: "Product_Name", DataType: "text"},
				{Name: "Sales", DataType: "numeric"},
				{Name: "Region", DataType: "text"},
				{Name: "Order_Date", DataType: "varchar"},
			},
		},
		samples: map[string]map[string][]string{
			"orders": {
				"Product_Name": {"Stapler", "Bookcase", "Chair"},
				"Region":       {"South", "West", "East"},
				"Order_Date":   {"13-11-2015", "01-02-2016", "28-06-2015"},
			},
		},
	}
}

func testConfig() *config.Config {
	return &config.Config{Generation: config.GenerationConfig{Provider: "gemini"}}
}

func newTestService(engine *fakeEngine, llm *fakeLLM) *Service {
	return NewService(engine, llm, metastore.NewMemoryStore(), nil, testConfig())
}

func TestRunEndToEnd(t *testing.T) {
	engine := ordersEngine()
	llm := &fakeLLM{
		sql: "SELECT \"Product_Name\", SUM(\"Sales\") AS Total_Sales FROM \"orders\" WHERE \"Region\" = 'South' GROUP BY \"Product_Name\" ORDER BY \"Total Sales DESC\nLIMIT 3;\"",
	}

	result, err := newTestService(engine, llm).Run(context.Background(), "top 3 selling items in the south in 2015", "")
	require.NoError(t, err)
	require.NotNil(t, result.Execution)

	assert.Empty(t, result.Query.Clarifications)
	assert.Equal(t, "orders", result.Query.Table)
	assert.Equal(t, RepairLevelStandard, result.Execution.RepairLevel)

	// The malformed ORDER BY clause was rebuilt before execution.
	require.Len(t, engine.executed, 1)
	assert.Contains(t, engine.executed[0], `ORDER BY "Total_Sales" DESC LIMIT 3;`)

	// The prompt carried the schema context and the question.
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], `"Order_Date"`)
	assert.Contains(t, llm.prompts[0], "top 3 selling items in the south in 2015")
}

func TestRunAmbiguousQuestionAsksForClarification(t *testing.T) {
	engine := ordersEngine()
	llm := &fakeLLM{sql: `SELECT "Product_Name" FROM "orders";`}

	result, err := newTestService(engine, llm).Run(context.Background(), "top customers", "")
	require.NoError(t, err)

	assert.Nil(t, result.Execution)
	require.Len(t, result.Query.Clarifications, 2)
	assert.Contains(t, result.Query.Clarifications[0], "Sales")
	assert.Contains(t, result.Query.Clarifications[1], "How many results")
	assert.Empty(t, engine.executed, "low-confidence question must not reach the database")
}

func TestRunVagueQuestionSkipsGeneration(t *testing.T) {
	engine := ordersEngine()
	// SQL with filter and grouping shape that would score above the
	// threshold; the clarity gate must reject the question before the
	// model is ever asked.
	llm := &fakeLLM{sql: `SELECT "Product_Name", SUM("Sales") FROM "orders" WHERE 1 = 1 GROUP BY "Product_Name" LIMIT 5;`}

	result, err := newTestService(engine, llm).Run(context.Background(), "top 5 best items", "")
	require.NoError(t, err)

	assert.Nil(t, result.Execution)
	assert.NotEmpty(t, result.Query.Clarifications)
	assert.Empty(t, result.Query.SQL)
	assert.Empty(t, llm.prompts, "vague questions never reach the model")
	assert.Empty(t, engine.executed)
}

func TestRunRetriesOnceOnSyntaxError(t *testing.T) {
	engine := ordersEngine()
	engine.script = []scriptedResult{
		{err: errSyntax},
		{result: &database.ResultSet{Columns: []string{"Total_Sales"}, Rows: [][]any{{"100"}}}},
	}
	llm := &fakeLLM{sql: `SELECT SUM("Sales") AS Total Sales FROM "orders" WHERE "Region" = 'South' GROUP BY "Region" LIMIT 3;`}

	result, err := newTestService(engine, llm).Run(context.Background(), "total sales in the south region in 2015", "")
	require.NoError(t, err)
	require.NotNil(t, result.Execution)

	assert.Equal(t, RepairLevelAggressive, result.Execution.RepairLevel)
	require.Len(t, engine.executed, 2)
	assert.Contains(t, engine.executed[1], `AS "Total_Sales"`)
}

func TestRunRepairExhausted(t *testing.T) {
	engine := ordersEngine()
	engine.script = []scriptedResult{{err: errSyntax}, {err: errSyntax}}
	llm := &fakeLLM{sql: `SELECT SUM("Sales") AS Total_Sales FROM "orders" WHERE "Region" = 'South' GROUP BY "Region";`}

	_, err := newTestService(engine, llm).Run(context.Background(), "total sales in the south region in 2015", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRepairExhausted)
	assert.Len(t, engine.executed, 2, "exactly one retry after the first syntax failure")
}

func TestRunGenerationErrorIsNotRetried(t *testing.T) {
	engine := ordersEngine()
	llm := &fakeLLM{err: &genai.BackendError{Kind: genai.ErrorKindRateLimit, Msg: "quota exceeded"}}

	_, err := newTestService(engine, llm).Run(context.Background(), "total sales by region in 2015", "")
	require.Error(t, err)

	var genErr *GenerationError
	assert.ErrorAs(t, err, &genErr)
	assert.Empty(t, engine.executed)
	assert.Len(t, llm.prompts, 1, "generation is attempted exactly once")
}

func TestRunColumnErrorReportsAvailableColumns(t *testing.T) {
	engine := ordersEngine()
	engine.script = []scriptedResult{{err: errColumn}}
	llm := &fakeLLM{sql: `SELECT "Total Sales" FROM "orders" WHERE "Region" = 'South' GROUP BY "Region";`}

	_, err := newTestService(engine, llm).Run(context.Background(), "total sales in the south region in 2015", "")
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, database.ErrorKindColumnNotFound, execErr.Kind)
	assert.Equal(t, []string{"Product_Name", "Sales", "Region", "Order_Date"}, execErr.Columns)
	assert.Len(t, engine.executed, 1, "column errors are not retried")
}

func TestRunWrapsTextDateExtraction(t *testing.T) {
	engine := ordersEngine()
	llm := &fakeLLM{sql: `SELECT "Region", SUM("Sales") AS Total_Sales FROM "orders" WHERE EXTRACT(YEAR FROM "Order_Date") = 2015 GROUP BY "Region";`}

	result, err := newTestService(engine, llm).Run(context.Background(), "total sales by region in 2015", "")
	require.NoError(t, err)
	require.NotNil(t, result.Execution)

	assert.Contains(t, result.Execution.SQL, `TO_DATE("Order_Date", 'DD-MM-YYYY')`)
}

func TestGenerateSQLResolvesTableHint(t *testing.T) {
	engine := ordersEngine()
	full := "source_id_1b06f79f-f189-40fc-a287-183c7d3b73c4"
	engine.tables = append(engine.tables, full)
	engine.columns[full] = []database.ColumnInfo{{Name: "Sales", DataType: "numeric"}}

	llm := &fakeLLM{sql: `SELECT SUM("Sales") FROM "` + full + `" WHERE 1 = 1 GROUP BY "Sales";`}

	result, err := newTestService(engine, llm).GenerateSQL(context.Background(),
		"total sales amount for the year 2015", "ds_1b06f79ff18940fca287183c7d3b73c4")
	require.NoError(t, err)

	assert.Equal(t, full, result.Table)
	require.NotNil(t, result.Resolution)
	assert.Equal(t, resolver.StrategyFragment, result.Resolution.Strategy)
}

func TestGenerateSQLReusesPersistedSemanticSchema(t *testing.T) {
	engine := ordersEngine()
	llm := &fakeLLM{sql: `SELECT "Region", SUM("Sales") FROM "orders" WHERE 1 = 1 GROUP BY "Region";`}
	store := metastore.NewMemoryStore()
	service := NewService(engine, llm, store, nil, testConfig())

	_, err := service.GenerateSQL(context.Background(), "total sales by region in 2015", "")
	require.NoError(t, err)
	assert.True(t, store.HasSemanticSchema("orders"), "transient schema is persisted for reuse")

	_, err = service.GenerateSQL(context.Background(), "total sales by region in 2016", "")
	require.NoError(t, err)
}
