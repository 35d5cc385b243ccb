// Package linear provides a synchronous, line-buffered renderer for terminals
// and CI logs.
package linear

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/memo/internal/ui/output"
	"go.trai.ch/memo/internal/ui/style"
)

// Renderer implements ports.Renderer. It prints one line per step event to
// stderr and the step output, prefixed with the step key, to stdout.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	output *termenv.Output
	quiet  bool

	mu      sync.Mutex
	started map[string]time.Time
	buffers map[string]*bytes.Buffer
	summary summary
}

var _ ports.Renderer = (*Renderer)(nil)

type summary struct {
	events    int
	succeeded int
	memoized  int
	skipped   int
	failed    int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithProfile sets the function that picks the color profile.
func WithProfile(fn func() termenv.Profile) Option {
	return func(r *Renderer) {
		r.output = output.NewWithProfile(r.stderr, fn)
	}
}

// WithQuiet hides step output and progress lines. The output of a failed step
// is still printed once the failure is known.
func WithQuiet(quiet bool) Option {
	return func(r *Renderer) {
		r.quiet = quiet
	}
}

// NewRenderer creates a new Renderer. Nil writers default to the process
// stdout and stderr.
func NewRenderer(stdout, stderr io.Writer, opts ...Option) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	r := &Renderer{
		stdout:  stdout,
		stderr:  stderr,
		started: make(map[string]time.Time),
		buffers: make(map[string]*bytes.Buffer),
	}
	r.output = output.New(stderr)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnPlan prints how many steps of the plan will execute.
func (r *Renderer) OnPlan(plan *domain.VersionedPlan, selected []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.quiet {
		return
	}
	_, _ = fmt.Fprintf(r.stderr, "Planning to execute %d of %d step(s) in mode %s\n",
		len(selected), plan.Plan().Len(), plan.Config().Mode)
}

// OnEvent prints a status line for the event.
func (r *Renderer) OnEvent(event domain.RunEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.summary.events++
	key := event.StepKey

	switch event.Kind {
	case domain.EventStart:
		r.started[key] = event.Timestamp
		if !r.quiet {
			_, _ = fmt.Fprintf(r.stderr, "%s Starting...\n", r.prefix(key))
		}

	case domain.EventSuccess:
		r.summary.succeeded++
		r.flushBufferLocked(key, !r.quiet)
		if !r.quiet {
			symbol := style.Executed.Render(r.output)
			_, _ = fmt.Fprintf(r.stderr, "%s %s Completed%s (version %s)%s\n",
				r.prefix(key), symbol, r.elapsed(event, "in"), event.DataVersion.Short(), mappingSuffix(event))
		}
		delete(r.started, key)

	case domain.EventFailure:
		r.summary.failed++
		r.flushBufferLocked(key, true)
		symbol := style.Failed.Render(r.output)
		_, _ = fmt.Fprintf(r.stderr, "%s %s Failed%s: %s\n", r.prefix(key), symbol, r.elapsed(event, "after"), event.Error)
		delete(r.started, key)

	case domain.EventSkip:
		if event.Annotation == domain.AnnotationMemoized {
			r.summary.memoized++
		} else {
			r.summary.skipped++
		}
		if r.quiet {
			return
		}
		if event.Annotation == domain.AnnotationMemoized {
			symbol := style.Memoized.Render(r.output)
			_, _ = fmt.Fprintf(r.stderr, "%s %s Memoized (version %s)\n",
				r.prefix(key), symbol, event.DataVersion.Short())
			return
		}
		symbol := style.Skipped.Render(r.output)
		_, _ = fmt.Fprintf(r.stderr, "%s %s Skipped: %s\n", r.prefix(key), symbol, event.Annotation)
	}
}

// OnStepLog buffers step output and prints complete lines with the step key
// prefix.
func (r *Renderer) OnStepLog(stepKey string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf, ok := r.buffers[stepKey]
	if !ok {
		buf = new(bytes.Buffer)
		r.buffers[stepKey] = buf
	}
	buf.Write(data)

	// Quiet mode holds on to everything until the step's outcome is known.
	if r.quiet {
		return
	}

	for {
		idx := bytes.IndexByte(buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := buf.Next(idx + 1)
		r.printLineLocked(stepKey, line)
	}
}

// Close flushes remaining output and prints the run summary.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.buffers))
	for key := range r.buffers {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		r.flushBufferLocked(key, !r.quiet)
	}

	if r.summary.events == 0 {
		return nil
	}
	s := r.summary
	_, _ = fmt.Fprintf(r.stderr, "Summary: %d executed, %d memoized, %d skipped, %d failed\n",
		s.succeeded, s.memoized, s.skipped, s.failed)
	r.summary = summary{}
	return nil
}

// flushBufferLocked prints whatever output is buffered for key when emit is
// set and drops it otherwise.
// Must be called with r.mu held.
func (r *Renderer) flushBufferLocked(key string, emit bool) {
	buf, ok := r.buffers[key]
	if !ok {
		return
	}
	delete(r.buffers, key)
	if !emit {
		return
	}

	for buf.Len() > 0 {
		line, _ := buf.ReadBytes('\n')
		r.printLineLocked(key, line)
	}
}

// printLineLocked prints a line with the step key prefix.
// Must be called with r.mu held.
func (r *Renderer) printLineLocked(key string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))

	if len(line) == 0 {
		return
	}

	_, _ = fmt.Fprintf(r.stdout, "[%s] %s\n", key, line)
}

func (r *Renderer) prefix(key string) string {
	return r.output.String(fmt.Sprintf("[%s]", key)).Faint().String()
}

func (r *Renderer) elapsed(event domain.RunEvent, preposition string) string {
	start, ok := r.started[event.StepKey]
	if !ok || event.Timestamp.IsZero() {
		return ""
	}
	return " " + preposition + " " + event.Timestamp.Sub(start).Round(time.Millisecond).String()
}

func mappingSuffix(event domain.RunEvent) string {
	if len(event.MappingKeys) == 0 {
		return ""
	}
	return fmt.Sprintf(", %d mapping key(s)", len(event.MappingKeys))
}
