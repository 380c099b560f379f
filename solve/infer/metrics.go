package infer

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/cottand/ilesolve/solve/infer"

type tableMetrics struct {
	commits       metric.Int64Counter
	rollbacks     metric.Int64Counter
	unifyFailures metric.Int64Counter
}

// current is nil until first use or SetMeterProvider
var current atomic.Pointer[tableMetrics]

// SetMeterProvider records snapshot and unification metrics of every table through mp
// from now on. Until it is called, the global otel provider is used.
func SetMeterProvider(mp metric.MeterProvider) error {
	m, err := newTableMetrics(mp.Meter(meterName))
	if err != nil {
		return err
	}
	current.Store(m)
	return nil
}

func newTableMetrics(meter metric.Meter) (*tableMetrics, error) {
	commits, err := meter.Int64Counter(
		"ilesolve_infer_commit_total",
		metric.WithDescription("Snapshots of an inference table that were committed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating commit counter")
	}
	rollbacks, err := meter.Int64Counter(
		"ilesolve_infer_rollback_total",
		metric.WithDescription("Snapshots of an inference table that were rolled back"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating rollback counter")
	}
	unifyFailures, err := meter.Int64Counter(
		"ilesolve_infer_unify_failures_total",
		metric.WithDescription("Unification attempts that found no solution, by failure kind"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating unification failure counter")
	}
	return &tableMetrics{commits: commits, rollbacks: rollbacks, unifyFailures: unifyFailures}, nil
}

func metrics() *tableMetrics {
	if m := current.Load(); m != nil {
		return m
	}
	m, err := newTableMetrics(otel.GetMeterProvider().Meter(meterName))
	if err != nil {
		otel.Handle(err)
		return nil
	}
	current.CompareAndSwap(nil, m)
	return current.Load()
}

func recordCommit() {
	if m := metrics(); m != nil {
		m.commits.Add(context.Background(), 1)
	}
}

func recordRollback() {
	if m := metrics(); m != nil {
		m.rollbacks.Add(context.Background(), 1)
	}
}

func recordUnifyFailure(kind FailureKind) {
	if m := metrics(); m != nil {
		m.unifyFailures.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("kind", kind.String()),
		))
	}
}
