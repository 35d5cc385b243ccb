package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/cmd/memo/commands"
	"go.trai.ch/memo/internal/app"
	"go.trai.ch/memo/internal/build"
	"go.trai.ch/memo/internal/core/domain"
)

type mockApp struct {
	runFunc       func(ctx context.Context, opts app.RunOptions) (*app.Result, error)
	reexecuteFunc func(ctx context.Context, parentID uuid.UUID, opts app.ReexecuteOptions) (*app.Result, error)
	latestFunc    func(ctx context.Context) (uuid.UUID, error)
	planFunc      func(ctx context.Context, opts app.PlanOptions) (*app.PlanReport, error)
	watchFunc     func(ctx context.Context, opts app.RunOptions) error
	cleanFunc     func(ctx context.Context, opts app.CleanOptions) error
}

func (m *mockApp) Run(ctx context.Context, opts app.RunOptions) (*app.Result, error) {
	if m.runFunc != nil {
		return m.runFunc(ctx, opts)
	}
	return &app.Result{}, nil
}

func (m *mockApp) Reexecute(ctx context.Context, parentID uuid.UUID, opts app.ReexecuteOptions) (*app.Result, error) {
	if m.reexecuteFunc != nil {
		return m.reexecuteFunc(ctx, parentID, opts)
	}
	return &app.Result{}, nil
}

func (m *mockApp) LatestRun(ctx context.Context) (uuid.UUID, error) {
	if m.latestFunc != nil {
		return m.latestFunc(ctx)
	}
	return uuid.Nil, domain.ErrRunNotFound
}

func (m *mockApp) Plan(ctx context.Context, opts app.PlanOptions) (*app.PlanReport, error) {
	if m.planFunc != nil {
		return m.planFunc(ctx, opts)
	}
	return &app.PlanReport{}, nil
}

func (m *mockApp) Watch(ctx context.Context, opts app.RunOptions) error {
	if m.watchFunc != nil {
		return m.watchFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) Clean(ctx context.Context, opts app.CleanOptions) error {
	if m.cleanFunc != nil {
		return m.cleanFunc(ctx, opts)
	}
	return nil
}

func execute(t *testing.T, a commands.Application, args ...string) (string, error) {
	t.Helper()
	cli := commands.New(a)
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs(args)
	err := cli.Execute(context.Background())
	return buf.String(), err
}

func TestCommands_Run(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var captured app.RunOptions
		mock := &mockApp{
			runFunc: func(_ context.Context, opts app.RunOptions) (*app.Result, error) {
				captured = opts
				return &app.Result{}, nil
			},
		}

		_, err := execute(t, mock, "run",
			"--config", "run.yaml", "--mode", "prod",
			"--tag", "team=data", "--tag", "ticket=",
			"-j", "3", "--continue-on-failure", "--output", "ci", "--trace-file", "trace.jsonl")
		require.NoError(t, err)

		assert.Equal(t, app.RunOptions{
			ExecOptions: app.ExecOptions{
				Parallelism:       3,
				ContinueOnFailure: true,
				OutputMode:        "ci",
				TraceFile:         "trace.jsonl",
			},
			ConfigPath: "run.yaml",
			Mode:       "prod",
			Tags:       map[string]string{"team": "data", "ticket": ""},
		}, captured)
	})

	t.Run("watch", func(t *testing.T) {
		watched := false
		mock := &mockApp{
			runFunc: func(context.Context, app.RunOptions) (*app.Result, error) {
				panic("should not be called")
			},
			watchFunc: func(_ context.Context, opts app.RunOptions) error {
				watched = true
				assert.Equal(t, "run.yaml", opts.ConfigPath)
				return nil
			},
		}

		_, err := execute(t, mock, "run", "--watch", "-c", "run.yaml")
		require.NoError(t, err)
		assert.True(t, watched)
	})

	t.Run("rejects malformed tags", func(t *testing.T) {
		_, err := execute(t, &mockApp{}, "run", "--tag", "novalue")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key=value")
	})

	t.Run("returns error on run failure", func(t *testing.T) {
		mock := &mockApp{
			runFunc: func(context.Context, app.RunOptions) (*app.Result, error) {
				return nil, domain.ErrRunFailed
			},
		}

		_, err := execute(t, mock, "run")
		require.ErrorIs(t, err, domain.ErrRunFailed)
	})
}

func TestCommands_Reexecute(t *testing.T) {
	parent := uuid.New()

	t.Run("passes run id and steps", func(t *testing.T) {
		var (
			gotID   uuid.UUID
			gotOpts app.ReexecuteOptions
		)
		mock := &mockApp{
			reexecuteFunc: func(_ context.Context, id uuid.UUID, opts app.ReexecuteOptions) (*app.Result, error) {
				gotID = id
				gotOpts = opts
				return &app.Result{}, nil
			},
		}

		_, err := execute(t, mock, "reexecute", parent.String(), "--step", "B", "-s", "C", "--output", "quiet")
		require.NoError(t, err)
		assert.Equal(t, parent, gotID)
		assert.Equal(t, []string{"B", "C"}, gotOpts.Steps)
		assert.Equal(t, "quiet", gotOpts.OutputMode)
	})

	t.Run("latest", func(t *testing.T) {
		var gotID uuid.UUID
		mock := &mockApp{
			latestFunc: func(context.Context) (uuid.UUID, error) { return parent, nil },
			reexecuteFunc: func(_ context.Context, id uuid.UUID, _ app.ReexecuteOptions) (*app.Result, error) {
				gotID = id
				return &app.Result{}, nil
			},
		}

		_, err := execute(t, mock, "reexecute", "latest")
		require.NoError(t, err)
		assert.Equal(t, parent, gotID)
	})

	t.Run("latest without runs", func(t *testing.T) {
		_, err := execute(t, &mockApp{}, "reexecute", "latest")
		require.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("invalid run id", func(t *testing.T) {
		_, err := execute(t, &mockApp{}, "reexecute", "not-a-uuid")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid run id")
	})

	t.Run("requires run id", func(t *testing.T) {
		_, err := execute(t, &mockApp{}, "reexecute")
		require.Error(t, err)
	})
}

func TestCommands_Plan(t *testing.T) {
	report := &app.PlanReport{
		Workflow: "chain",
		Mode:     "default",
		Steps: []app.PlanStep{
			{Key: "A", Kind: domain.StepPlain, DataVersion: "aaaaaaaaaaaaaaaa"},
			{Key: "B", Kind: domain.StepPlain, DataVersion: "bbbbbbbbbbbbbbbb", Upstream: []string{"A"}, Execute: true},
		},
	}
	var captured app.PlanOptions
	mock := &mockApp{
		planFunc: func(_ context.Context, opts app.PlanOptions) (*app.PlanReport, error) {
			captured = opts
			return report, nil
		},
	}

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, mock, "plan", "-c", "run.yaml", "-m", "prod")
		require.NoError(t, err)
		assert.Equal(t, app.PlanOptions{ConfigPath: "run.yaml", Mode: "prod"}, captured)
		assert.Contains(t, out, "Workflow chain in mode default")
		assert.Contains(t, out, "memoized  A  aaaaaaaaaaaa")
		assert.Contains(t, out, "execute   B  bbbbbbbbbbbb")
		assert.Contains(t, out, "1 of 2 step(s) would execute.")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, mock, "plan", "--json")
		require.NoError(t, err)

		var decoded app.PlanReport
		require.NoError(t, json.Unmarshal([]byte(out), &decoded))
		assert.Equal(t, *report, decoded)
	})

	t.Run("up to date", func(t *testing.T) {
		upToDate := &mockApp{
			planFunc: func(context.Context, app.PlanOptions) (*app.PlanReport, error) {
				return &app.PlanReport{Workflow: "chain", Mode: "default", Steps: report.Steps[:1]}, nil
			},
		}
		out, err := execute(t, upToDate, "plan")
		require.NoError(t, err)
		assert.Contains(t, out, "Everything is up to date.")
	})

	t.Run("error", func(t *testing.T) {
		failing := &mockApp{
			planFunc: func(context.Context, app.PlanOptions) (*app.PlanReport, error) {
				return nil, domain.ErrCycleDetected
			},
		}
		_, err := execute(t, failing, "plan")
		require.ErrorIs(t, err, domain.ErrCycleDetected)
	})
}

func TestCommands_Clean(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want app.CleanOptions
	}{
		{name: "default cleans everything", args: nil, want: app.CleanOptions{Index: true, Runs: true}},
		{name: "index only", args: []string{"--index"}, want: app.CleanOptions{Index: true}},
		{name: "runs only", args: []string{"-r"}, want: app.CleanOptions{Runs: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured app.CleanOptions
			mock := &mockApp{
				cleanFunc: func(_ context.Context, opts app.CleanOptions) error {
					captured = opts
					return nil
				},
			}
			_, err := execute(t, mock, append([]string{"clean"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, captured)
		})
	}

	t.Run("returns error", func(t *testing.T) {
		mock := &mockApp{
			cleanFunc: func(context.Context, app.CleanOptions) error {
				return errors.New("permission denied")
			},
		}
		_, err := execute(t, mock, "clean")
		require.Error(t, err)
	})
}

func TestCommands_JSONLogs(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		cli := commands.New(&mockApp{})
		var got *bool
		cli.OnJSONLogs(func(v bool) { got = &v })
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
		args := []string{"clean"}
		if enabled {
			args = append(args, "--json-logs")
		}
		cli.SetArgs(args)

		require.NoError(t, cli.Execute(context.Background()))
		require.NotNil(t, got)
		assert.Equal(t, enabled, *got)
	}
}

func TestCommands_Version(t *testing.T) {
	out, err := execute(t, &mockApp{}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "memo version "+build.Version)
}

func TestCommands_VersionFlag(t *testing.T) {
	out, err := execute(t, &mockApp{}, "--version")
	require.NoError(t, err)
	assert.Equal(t, build.Summary()+"\n", out)
}

func TestCommands_HelpGroups(t *testing.T) {
	out, err := execute(t, &mockApp{}, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Runs:")
	assert.Contains(t, out, "Workspace:")
	assert.Contains(t, out, "reexecute")
}
