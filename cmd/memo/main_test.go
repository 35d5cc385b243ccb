package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/memo/internal/adapters/logger"
	"go.trai.ch/memo/internal/app"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func newTestApp(t *testing.T, loader *mocks.MockConfigLoader, log *mocks.MockLogger) *app.App {
	t.Helper()
	return app.New(app.Dependencies{
		Loader: loader,
		Logger: log,
		Root:   domain.WorkspaceRoot(t.TempDir()),
	})
}

func provide(a *app.App, log *mocks.MockLogger) ComponentProvider {
	return func(context.Context) (*app.Components, func(), error) {
		return &app.Components{App: a, Logger: log}, func() {}, nil
	}
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	application := newTestApp(t, mocks.NewMockConfigLoader(ctrl), mockLogger)

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provide(application, mockLogger))
	assert.Equal(t, 0, exitCode)
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_PreExecutionError verifies that a workflow error exits with 2.
func TestRun_PreExecutionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLoader := mocks.NewMockConfigLoader(ctrl)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Error(gomock.Any()).Times(1)

	mockLoader.EXPECT().Load(gomock.Any()).Return(nil, zerr.With(zerr.Wrap(domain.ErrCycleDetected, "load"), "cycle", "A -> B -> A"))

	application := newTestApp(t, mockLoader, mockLogger)
	exitCode := run(context.Background(), []string{"run"}, io.Discard, provide(application, mockLogger))

	assert.Equal(t, 2, exitCode)
}

// TestRun_ExecutionError verifies that run returns 1 when the command execution fails.
func TestRun_ExecutionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLoader := mocks.NewMockConfigLoader(ctrl)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Error(gomock.Any()).Times(1)

	mockLoader.EXPECT().Load(gomock.Any()).Return(nil, errors.New("load failed"))

	application := newTestApp(t, mockLoader, mockLogger)
	exitCode := run(context.Background(), []string{"run"}, io.Discard, provide(application, mockLogger))

	assert.Equal(t, 1, exitCode)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   int
		logged bool
	}{
		{name: "success", err: nil, want: 0},
		{name: "run failed is not logged again", err: zerr.Wrap(domain.ErrRunFailed, "run"), want: 1},
		{name: "graph error", err: domain.ErrUnknownStepKey, want: 2, logged: true},
		{name: "config error", err: domain.ErrSchemaViolation, want: 2, logged: true},
		{name: "version error", err: domain.ErrMissingCodeVersion, want: 2, logged: true},
		{name: "other error", err: errors.New("disk full"), want: 1, logged: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockLogger := mocks.NewMockLogger(ctrl)
			if tt.logged {
				mockLogger.EXPECT().Error(tt.err).Times(1)
			}
			assert.Equal(t, tt.want, exitCode(tt.err, &app.Components{Logger: mockLogger}))
		})
	}
}

// TestRun_JSONLogs verifies that --json-logs switches the logger to JSON.
func TestRun_JSONLogs(t *testing.T) {
	log := logger.New()
	out := new(bytes.Buffer)
	log.SetOutput(out)

	application := app.New(app.Dependencies{
		Logger: log,
		Root:   domain.WorkspaceRoot(t.TempDir()),
	})
	provider := func(context.Context) (*app.Components, func(), error) {
		return &app.Components{App: application, Logger: log}, func() {}, nil
	}

	exitCode := run(context.Background(), []string{"clean", "--index", "--json-logs"}, io.Discard, provider)
	assert.Equal(t, 0, exitCode)
	assert.Contains(t, out.String(), `"msg":"removing materialization index..."`)
}

// TestRun_Signal verifies that the context is canceled on signal.
func TestRun_Signal(t *testing.T) {
	ctrl := gomock.NewController(t)

	// We need a loader that blocks until the context is done.
	blockCh := make(chan struct{})

	mockLoader := mocks.NewMockConfigLoader(ctrl)
	mockLoader.EXPECT().Load(gomock.Any()).DoAndReturn(func(_ string) (*domain.Workflow, error) {
		select {
		case <-blockCh:
			return nil, context.Canceled
		case <-time.After(5 * time.Second):
			return nil, errors.New("timeout in mock")
		}
	})

	mockLogger := mocks.NewMockLogger(ctrl)
	// Allow logging of the error when context is canceled
	mockLogger.EXPECT().Error(gomock.Any()).AnyTimes()

	application := newTestApp(t, mockLoader, mockLogger)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan int)

	go func() {
		errCh <- run(ctx, []string{"run"}, io.Discard, provide(application, mockLogger))
	}()

	// Wait a bit to ensure run() reaches Load()
	time.Sleep(100 * time.Millisecond)

	cancel()
	close(blockCh)

	select {
	case ret := <-errCh:
		assert.NotEqual(t, 0, ret)
	case <-time.After(2 * time.Second):
		t.Fatal("TestRun_Signal timed out waiting for run() to return")
	}
}
