package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/memo/internal/core/ports"
)

// LogBufferSize is the capacity of the step output queue. Output is dropped
// when the queue is full so a slow renderer never blocks a step.
const LogBufferSize = 4096

// StepLogSink receives step output.
type StepLogSink interface {
	OnStepLog(stepKey string, data []byte)
}

// stepLog is one chunk of step output. A non-nil barrier is closed once every
// earlier chunk has been delivered.
type stepLog struct {
	stepKey string
	data    []byte
	barrier chan struct{}
}

var _ ports.Tracer = (*OTelTracer)(nil)

// OTelTracer implements ports.Tracer using OpenTelemetry. Output written to a
// step span is batched and delivered to the sink in order.
type OTelTracer struct {
	name    string
	logChan chan stepLog
	done    chan struct{}
	once    sync.Once

	mu   sync.RWMutex
	sink StepLogSink
}

// NewOTelTracer creates a new OTelTracer with the given instrumentation name.
func NewOTelTracer(name string) *OTelTracer {
	t := &OTelTracer{
		name:    name,
		logChan: make(chan stepLog, LogBufferSize),
		done:    make(chan struct{}),
	}
	go t.runLoop()
	return t
}

func (t *OTelTracer) runLoop() {
	defer close(t.done)
	for msg := range t.logChan {
		if msg.barrier != nil {
			close(msg.barrier)
			continue
		}
		t.mu.RLock()
		sink := t.sink
		t.mu.RUnlock()
		if sink != nil {
			sink.OnStepLog(msg.stepKey, msg.data)
		}
	}
}

// WithSink sets the receiver of step output.
func (t *OTelTracer) WithSink(sink StepLogSink) *OTelTracer {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sink = sink
	return t
}

// Sync blocks until all output queued so far has been delivered.
func (t *OTelTracer) Sync(ctx context.Context) error {
	barrier := make(chan struct{})
	select {
	case t.logChan <- stepLog{barrier: barrier}:
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown delivers the queued output and stops the background loop. Spans
// must not be written to afterwards.
func (t *OTelTracer) Shutdown(ctx context.Context) error {
	t.once.Do(func() { close(t.logChan) })
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start creates a new span. Spans started with ports.WithStepKey forward
// their output to the sink.
func (t *OTelTracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	// The global provider is looked up per span so a provider installed after
	// construction, such as the trace file exporter, receives every span.
	ctx, span := otel.Tracer(t.name).Start(ctx, name)

	var batcher *BatchProcessor
	if cfg.StepKey != "" {
		key := cfg.StepKey
		batcher = NewBatchProcessor(0, 0, func(data []byte) {
			select {
			case t.logChan <- stepLog{stepKey: key, data: data}:
			default:
			}
		})
	}

	return ctx, &OTelSpan{span: span, batcher: batcher, tracer: t}
}

// EmitPlan records the selected step keys as an event on the current span.
func (t *OTelTracer) EmitPlan(ctx context.Context, stepKeys []string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("plan_emitted", trace.WithAttributes(
			attribute.StringSlice("memo.step_keys", stepKeys),
		))
	}
}

// OTelSpan implements ports.Span using OpenTelemetry.
type OTelSpan struct {
	span    trace.Span
	batcher *BatchProcessor
	tracer  *OTelTracer
}

// Batcher returns the span's output batcher, or nil.
func (s *OTelSpan) Batcher() *BatchProcessor {
	return s.batcher
}

// End flushes buffered output, waits until the sink has received it and
// completes the span.
func (s *OTelSpan) End() {
	if s.batcher != nil {
		_ = s.batcher.Close()
		_ = s.tracer.Sync(context.Background())
	}
	s.span.End()
}

// RecordError records err and marks the span as failed.
func (s *OTelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetAttribute adds a key-value pair to the span.
func (s *OTelSpan) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case []string:
		s.span.SetAttributes(attribute.StringSlice(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

// Write sends p to the batcher of a step span, or records it as a span event.
func (s *OTelSpan) Write(p []byte) (n int, err error) {
	if s.batcher != nil {
		return s.batcher.Write(p)
	}
	s.span.AddEvent("log", trace.WithAttributes(attribute.String("message", string(p))))
	return len(p), nil
}
