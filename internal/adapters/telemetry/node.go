package telemetry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/internal/core/ports"
)

// TracerNodeID is the unique identifier for the tracer Graft node.
const TracerNodeID graft.ID = "adapter.telemetry"

// OTelTracerNodeID is the unique identifier for the concrete tracer Graft node.
const OTelTracerNodeID graft.ID = "adapter.telemetry.otel"

// InstrumentationName names the tracer of every memo span.
const InstrumentationName = "go.trai.ch/memo"

func init() {
	graft.Register(graft.Node[*OTelTracer]{
		ID:        OTelTracerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*OTelTracer, error) {
			return NewOTelTracer(InstrumentationName), nil
		},
	})

	graft.Register(graft.Node[ports.Tracer]{
		ID:        TracerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{OTelTracerNodeID},
		Run: func(ctx context.Context) (ports.Tracer, error) {
			return graft.Dep[*OTelTracer](ctx)
		},
	})
}
