package infer

import (
	"context"
	"testing"

	"github.com/cottand/ilesolve/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// counterValues flattens the int64 sums collected by reader into name or
// name{kind} -> value
func counterValues(t *testing.T, reader sdkmetric.Reader) map[string]int64 {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	values := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, point := range sum.DataPoints {
				name := m.Name
				if kind, ok := point.Attributes.Value("kind"); ok {
					name += "{" + kind.AsString() + "}"
				}
				values[name] += point.Value
			}
		}
	}
	return values
}

func TestTableMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	require.NoError(t, SetMeterProvider(provider))
	t.Cleanup(func() {
		current.Store(nil)
		_ = provider.Shutdown(context.Background())
	})

	table := NewInferenceTable()
	a := table.NewVariable(ir.Root)
	b := table.NewVariable(ir.Root)

	_, err := table.Unify(a.ToTy(), ir.MustParse("Int"))
	require.NoError(t, err)
	_, err = table.Unify(b.ToTy(), ir.MustParse("Vec<?1>"))
	kind, ok := FailureKindOf(err)
	require.True(t, ok)
	require.Equal(t, Cycle, kind)

	values := counterValues(t, reader)
	assert.Equal(t, int64(1), values["ilesolve_infer_commit_total"])
	assert.Equal(t, int64(1), values["ilesolve_infer_rollback_total"])
	assert.Equal(t, int64(1), values["ilesolve_infer_unify_failures_total{cycle}"])

	snapshot := table.Snapshot()
	table.RollbackTo(snapshot)
	assert.Equal(t, int64(2), counterValues(t, reader)["ilesolve_infer_rollback_total"])
}
