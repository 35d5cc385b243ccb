package ports

import (
	"context"
	"io"

	"go.trai.ch/memo/internal/core/domain"
)

// StepRunner runs the compute of a single step.
//
//go:generate go run go.uber.org/mock/mockgen -source=step_runner.go -destination=mocks/mock_step_runner.go -package=mocks
type StepRunner interface {
	// Run executes the step described by req, streaming its output to output.
	//
	// Fan-out steps report their mapping keys in the result. A returned error
	// fails the step; it never aborts the run.
	Run(ctx context.Context, req domain.StepRequest, output io.Writer) (domain.StepResult, error)
}
