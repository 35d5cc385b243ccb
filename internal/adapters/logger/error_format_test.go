package logger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/memo/internal/adapters/logger"
	"go.trai.ch/zerr"
)

func TestCollectErrorEntries(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []logger.ErrorEntry
	}{
		{
			name: "standard error",
			err:  errors.New("simple error"),
			want: []logger.ErrorEntry{{Message: "simple error"}},
		},
		{
			name: "wrapped chain",
			err:  zerr.Wrap(zerr.Wrap(errors.New("root cause"), "middle layer"), "outer layer"),
			want: []logger.ErrorEntry{
				{Message: "outer layer", Metadata: map[string]any{}},
				{Message: "middle layer", Metadata: map[string]any{}},
				{Message: "root cause"},
			},
		},
		{
			name: "metadata stays with its link",
			err: func() error {
				inner := zerr.With(zerr.New("inner"), "inner_key", "inner_val")
				return zerr.With(zerr.Wrap(inner, "outer"), "outer_key", 42)
			}(),
			want: []logger.ErrorEntry{
				{Message: "outer", Metadata: map[string]any{"outer_key": 42}},
				{Message: "inner", Metadata: map[string]any{"inner_key": "inner_val"}},
			},
		},
		{
			name: "metadata on a standard error",
			err:  zerr.With(errors.New("not found"), "path", "/tmp/x"),
			want: []logger.ErrorEntry{
				{Message: "not found", Metadata: map[string]any{"path": "/tmp/x"}},
			},
		},
		{
			name: "nil",
			err:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logger.CollectErrorEntries(tt.err))
		})
	}
}

func TestFormatErrorEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []logger.ErrorEntry
		want    string
	}{
		{
			name:    "single entry",
			entries: []logger.ErrorEntry{{Message: "single error"}},
			want:    "Error: single error",
		},
		{
			name: "caused by",
			entries: []logger.ErrorEntry{
				{Message: "resolve config", Metadata: map[string]any{"task": "b", "mode": "local"}},
				{Message: "config does not match schema"},
			},
			want: "Error: resolve config (mode=local, task=b)\n\n  Caused by:\n    → config does not match schema",
		},
		{
			name: "multiline messages",
			entries: []logger.ErrorEntry{
				{Message: "first\nsecond"},
				{Message: "cause\ndetail"},
			},
			want: "Error: first\n       second\n\n  Caused by:\n    → cause\n      detail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logger.FormatErrorEntries(tt.entries))
		})
	}
}
