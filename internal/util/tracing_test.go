package util

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := tracer
	tracer = tp.Tracer(ServiceName)
	t.Cleanup(func() { tracer = prev })
	return rec
}

func TestStartSpanAttributes(t *testing.T) {
	rec := withRecorder(t)

	_, span := StartSpan(context.Background(), "PlanService.GetPlan", AttrPlanID.Int64(7), AttrPartCode.String("X"))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "PlanService.GetPlan", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), AttrPlanID.Int64(7))
	assert.Contains(t, ended[0].Attributes(), AttrPartCode.String("X"))
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
}

func TestRecordError(t *testing.T) {
	rec := withRecorder(t)

	ctx, span := StartSpan(context.Background(), "op")
	assert.NoError(t, RecordError(ctx, nil))
	boom := errors.New("boom")
	assert.Same(t, boom, RecordError(ctx, boom))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
}

func TestRecordErrorWithoutSpan(t *testing.T) {
	err := errors.New("x")
	assert.Equal(t, err, RecordError(context.Background(), err))
}
