package logger_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/memo/internal/adapters/logger"
)

func TestPrettyHandler_Attrs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name string
		log  func(*slog.Logger)
		want string
	}{
		{
			name: "record attrs",
			log:  func(l *slog.Logger) { l.Info("run finished", "status", "success", "steps", 2) },
			want: "run finished (status=success, steps=2)\n",
		},
		{
			name: "handler attrs come first",
			log:  func(l *slog.Logger) { l.With("run_id", "r1").Warn("slow step", "step", "A") },
			want: "! slow step (run_id=r1, step=A)\n",
		},
		{
			name: "groups qualify keys",
			log: func(l *slog.Logger) {
				l.WithGroup("step").Info("started", "key", "A", slog.Group("version", "short", "abc"))
			},
			want: "started (step.key=A, step.version.short=abc)\n",
		},
		{
			name: "empty group is ignored",
			log:  func(l *slog.Logger) { l.WithGroup("").Info("plain", "k", "v") },
			want: "plain (k=v)\n",
		},
		{
			name: "below level",
			log:  func(l *slog.Logger) { l.Debug("hidden") },
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.log(slog.New(logger.NewPrettyHandler(buf, nil)))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
