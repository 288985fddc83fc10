package workflow

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/gosuda/taskflow/internal/telemetry"
)

const scopeName = "github.com/gosuda/taskflow/workflow"

type instruments struct {
	tracer      trace.Tracer
	transitions metric.Int64Counter
	cascades    metric.Int64Counter
	cascadeErrs metric.Int64Counter
	batchItems  metric.Int64Counter
}

func newInstruments() *instruments {
	m := telemetry.Meter(scopeName)
	transitions := newCounter(m, "taskflow.workflow.transitions",
		"Status transitions committed, by action")
	cascades := newCounter(m, "taskflow.workflow.cascade.transitions",
		"Auto-triggered transitions written by cascades")
	cascadeErrs := newCounter(m, "taskflow.workflow.cascade.errors",
		"Cascade steps rolled back after a failure")
	batchItems := newCounter(m, "taskflow.workflow.batch.items",
		"Batch items processed, by operation and outcome")
	return &instruments{
		tracer:      telemetry.Tracer(scopeName),
		transitions: transitions,
		cascades:    cascades,
		cascadeErrs: cascadeErrs,
		batchItems:  batchItems,
	}
}

// newCounter creates a counter on m. A failed registration is logged and
// replaced by a no-op counter so recording never fails.
func newCounter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		log.Warn().Err(err).Str("instrument", name).Msg("workflow: create counter")
	}
	if c == nil {
		return noop.Int64Counter{}
	}
	return c
}

func (in *instruments) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return in.tracer.Start(ctx, "workflow."+name, trace.WithAttributes(attrs...))
}

// end records err on span and ends it.
func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (in *instruments) transition(ctx context.Context, action string, auto bool) {
	in.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.Bool("auto", auto),
	))
	if auto {
		in.cascades.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
	}
}

func (in *instruments) batchItem(ctx context.Context, op, outcome string) {
	in.batchItems.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}
