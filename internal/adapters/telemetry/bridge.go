package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var _ sdktrace.SpanProcessor = (*Bridge)(nil)

// SpanRecord is the JSON form of an ended span.
type SpanRecord struct {
	Name       string         `json:"name"`
	TraceID    string         `json:"trace_id"`
	SpanID     string         `json:"span_id"`
	ParentID   string         `json:"parent_span_id,omitempty"`
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end"`
	DurationMS int64          `json:"duration_ms"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Bridge implements sdktrace.SpanProcessor and writes every ended span to w
// as one JSON line.
type Bridge struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewBridge returns a new Bridge writing to w.
func NewBridge(w io.Writer) *Bridge {
	return &Bridge{enc: json.NewEncoder(w)}
}

// OnStart does nothing.
func (b *Bridge) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

// OnEnd writes the span.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	sc := s.SpanContext()
	if !sc.IsValid() {
		return
	}

	rec := SpanRecord{
		Name:       s.Name(),
		TraceID:    sc.TraceID().String(),
		SpanID:     sc.SpanID().String(),
		Start:      s.StartTime(),
		End:        s.EndTime(),
		DurationMS: s.EndTime().Sub(s.StartTime()).Milliseconds(),
		Status:     "ok",
	}
	if parent := s.Parent(); parent.IsValid() {
		rec.ParentID = parent.SpanID().String()
	}
	if s.Status().Code == codes.Error {
		rec.Status = "error"
		rec.Error = s.Status().Description
	}
	if attrs := s.Attributes(); len(attrs) > 0 {
		rec.Attributes = make(map[string]any, len(attrs))
		for _, kv := range attrs {
			rec.Attributes[string(kv.Key)] = kv.Value.AsInterface()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.enc.Encode(rec)
}

// ForceFlush does nothing.
func (b *Bridge) ForceFlush(context.Context) error {
	return nil
}

// Shutdown does nothing.
func (b *Bridge) Shutdown(context.Context) error {
	return nil
}
