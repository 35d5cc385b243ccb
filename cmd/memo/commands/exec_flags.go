package commands

import (
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/memo/internal/app"
	"go.trai.ch/zerr"
)

// errInvalidTag is returned when a --tag value is not of the form key=value.
var errInvalidTag = zerr.New("tag must be of the form key=value")

func addExecFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("tag", nil, "Attach a key=value tag to the run (repeatable)")
	cmd.Flags().IntP("parallelism", "j", 0, "Maximum number of steps running at once (0 uses the number of CPUs)")
	cmd.Flags().Bool("continue-on-failure", false, "Keep running steps that do not depend on a failed step")
	cmd.Flags().StringP("output", "o", "auto", "Output mode: auto, interactive, ci, or quiet")
	cmd.Flags().String("trace-file", "", "Write finished spans to this file as JSON lines")
}

func execOptions(cmd *cobra.Command) app.ExecOptions {
	parallelism, _ := cmd.Flags().GetInt("parallelism")
	continueOnFailure, _ := cmd.Flags().GetBool("continue-on-failure")
	output, _ := cmd.Flags().GetString("output")
	traceFile, _ := cmd.Flags().GetString("trace-file")

	return app.ExecOptions{
		Parallelism:       parallelism,
		ContinueOnFailure: continueOnFailure,
		OutputMode:        output,
		TraceFile:         traceFile,
	}
}

func tags(cmd *cobra.Command) (map[string]string, error) {
	values, _ := cmd.Flags().GetStringArray("tag")
	if len(values) == 0 {
		return nil, nil
	}

	out := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		if !ok || key == "" {
			return nil, zerr.With(zerr.Wrap(errInvalidTag, "parse tags"), "tag", v)
		}
		out[key] = value
	}
	return out, nil
}
