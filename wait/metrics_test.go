package wait

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-expect"
	"github.com/goliatone/go-expect/compare"
	"github.com/goliatone/go-expect/count"
	"github.com/goliatone/go-expect/message"
	"github.com/goliatone/go-expect/stream"
)

func TestOrchestratorMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics("goexpect", registry)
	orchestrator := New(compare.Default{},
		WithMetrics(metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	filter := message.New("Order").With("Side", "BUY")

	open := func(msgs ...message.Message) *stream.Cursor {
		q := stream.NewQueue("orders", stream.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		for _, msg := range msgs {
			_, _, err := q.Publish(msg)
			require.NoError(t, err)
		}
		q.Close()
		cursor, err := q.Open(context.Background(), "t1")
		require.NoError(t, err)
		return cursor
	}
	buy := message.New("Order").With("Side", "BUY")
	sell := message.New("Order").With("Side", "SELL")

	_, err := orchestrator.WaitForMessage(context.Background(), open(sell, buy), filter, time.Second)
	require.NoError(t, err)
	_, err = orchestrator.WaitForMessage(context.Background(), open(), filter, time.Second)
	require.Error(t, err)
	_, err = orchestrator.CountMessages(context.Background(), open(buy, buy), filter, expect.NewCountFilter(count.MustParse("2")), time.Second)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomesTotal.WithLabelValues(operationWait, "matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomesTotal.WithLabelValues(operationWait, "mismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomesTotal.WithLabelValues(operationCount, "matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.candidatesTotal.WithLabelValues(candidateExact)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.candidatesTotal.WithLabelValues(candidateRejected)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.candidatesTotal.WithLabelValues(candidateAccepted)))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.scanDuration))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.RecordOutcome("wait", "matched")
	metrics.RecordCandidate(candidateExact)
	metrics.ObserveScan("wait", time.Second)
}
