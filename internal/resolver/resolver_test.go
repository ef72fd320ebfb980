package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveExact(t *testing.T) {
	r := New([]string{"orders", "customers"}, nil)

	result, err := r.Resolve("orders")
	require.NoError(t, err)
	assert.Equal(t, "orders", result.Matched)
	assert.Equal(t, StrategyExact, result.Strategy)
}

func TestResolveCaseInsensitive(t *testing.T) {
	r := New([]string{"Orders", "Customers"}, nil)

	result, err := r.Resolve("orders")
	require.NoError(t, err)
	assert.Equal(t, "Orders", result.Matched)
	assert.Equal(t, StrategyCaseFold, result.Strategy)
}

func TestResolveHexFragment(t *testing.T) {
	tables := []string{
		"customers",
		"source_id_1b06f79f-f189-40fc-a287-183c7d3b73c4",
		"source_id_9e21aa04-77b1-4df2-9c81-55aa01b22c33",
	}
	r := New(tables, nil)

	tests := []struct {
		name      string
		requested string
		want      string
	}{
		{
			name:      "compact form with shortened prefix",
			requested: "ds_1b06f79ff18940fca287183c7d3b73c4",
			want:      "source_id_1b06f79f-f189-40fc-a287-183c7d3b73c4",
		},
		{
			name:      "underscored form",
			requested: "source_id_1b06f79f_f189_40fc_a287_183c7d3b73c4",
			want:      "source_id_1b06f79f-f189-40fc-a287-183c7d3b73c4",
		},
		{
			name:      "different uuid picks the other table",
			requested: "ds_9e21aa0477b14df29c8155aa01b22c33",
			want:      "source_id_9e21aa04-77b1-4df2-9c81-55aa01b22c33",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := r.Resolve(tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Matched)
			assert.Equal(t, StrategyFragment, result.Strategy)
		})
	}
}

func TestResolveSimilarity(t *testing.T) {
	r := New([]string{"dataset_customer_orders", "dataset_inventory"}, nil)

	result, err := r.Resolve("customer_orders_table")
	require.NoError(t, err)
	assert.Equal(t, "dataset_customer_orders", result.Matched)
	assert.Equal(t, StrategySimilarity, result.Strategy)
}

// Resolution is total: any requested name maps to some table as long as at
// least one table exists.
func TestResolveAlwaysMatches(t *testing.T) {
	r := New([]string{"orders"}, nil)

	for _, requested := range []string{"zzz", "", "nonexistent_table", "query"} {
		result, err := r.Resolve(requested)
		require.NoError(t, err, "requested: %q", requested)
		assert.Equal(t, "orders", result.Matched)
	}
}

func TestResolveNoTables(t *testing.T) {
	r := New(nil, nil)

	_, err := r.Resolve("orders")
	assert.ErrorIs(t, err, ErrNoTablesAvailable)
}
