package telemetry_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/memo/internal/adapters/telemetry"
)

func TestBridge_WritesEndedSpans(t *testing.T) {
	var buf bytes.Buffer
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(telemetry.NewBridge(&buf)))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	tracer := tp.Tracer("test")

	ctx, root := tracer.Start(t.Context(), "run")
	_, step := tracer.Start(ctx, "A")
	step.SetAttributes(attribute.String("memo.step_key", "A"))
	step.RecordError(errors.New("exit 1"))
	step.SetStatus(codes.Error, "exit 1")
	step.End()
	root.End()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var stepRec, rootRec telemetry.SpanRecord
	require.NoError(t, json.Unmarshal(lines[0], &stepRec))
	require.NoError(t, json.Unmarshal(lines[1], &rootRec))

	assert.Equal(t, "A", stepRec.Name)
	assert.Equal(t, "error", stepRec.Status)
	assert.Equal(t, "exit 1", stepRec.Error)
	assert.Equal(t, "A", stepRec.Attributes["memo.step_key"])
	assert.Equal(t, rootRec.SpanID, stepRec.ParentID)
	assert.Equal(t, rootRec.TraceID, stepRec.TraceID)

	assert.Equal(t, "run", rootRec.Name)
	assert.Equal(t, "ok", rootRec.Status)
	assert.Empty(t, rootRec.ParentID)
	assert.False(t, rootRec.End.Before(rootRec.Start))
}
