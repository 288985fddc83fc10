package workflow

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// brokenMeter refuses to create counters.
type brokenMeter struct {
	noop.Meter
}

func (brokenMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return nil, errors.New("instrument rejected")
}

// Not parallel: swaps the global logger.
func TestNewCounter_LogsAndFallsBack(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	c := newCounter(brokenMeter{}, "taskflow.workflow.transitions", "test")
	require.NotNil(t, c)
	assert.NotPanics(t, func() { c.Add(t.Context(), 1) })

	assert.Contains(t, buf.String(), "instrument rejected")
	assert.Contains(t, buf.String(), "taskflow.workflow.transitions")
}

func TestNewCounter_Healthy(t *testing.T) {
	t.Parallel()

	c := newCounter(noop.NewMeterProvider().Meter("test"), "taskflow.workflow.batch.items", "test")
	require.NotNil(t, c)
	assert.NotPanics(t, func() { c.Add(t.Context(), 1) })
}
