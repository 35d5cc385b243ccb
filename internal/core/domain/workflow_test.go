package domain_test

import (
	"errors"
	"testing"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/zerr"
)

func task(name string, inputs ...string) *domain.TaskDefinition {
	return &domain.TaskDefinition{
		Name:        domain.NewInternedString(name),
		CodeVersion: "1",
		Inputs:      domain.NewInternedStrings(inputs),
	}
}

func TestWorkflow_AddTask(t *testing.T) {
	w := domain.NewWorkflow("assets")
	a := task("A")

	if err := w.AddTask(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := w.AddTask(a)
	if err == nil {
		t.Fatal("expected error when adding duplicate task, got nil")
	}
	if !errors.Is(err, domain.ErrGraph) {
		t.Errorf("expected a graph error, got %v", err)
	}
	zErr, ok := err.(*zerr.Error)
	if !ok {
		t.Fatalf("expected *zerr.Error, got %T", err)
	}
	if name, ok := zErr.Metadata()["task"].(string); !ok || name != "A" {
		t.Errorf("expected metadata task=A, got %v", zErr.Metadata()["task"])
	}
}

func TestWorkflow_AddMode(t *testing.T) {
	w := domain.NewWorkflow("assets")
	mode := domain.Mode{Name: "local", Resources: map[string]domain.ResourceDefinition{"io": {Version: "1"}}}

	if err := w.AddMode(mode); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.AddMode(mode); !errors.Is(err, domain.ErrModeAlreadyExists) {
		t.Errorf("expected ErrModeAlreadyExists, got %v", err)
	}

	got, ok := w.Mode("local")
	if !ok || got.Resources["io"].Version != "1" {
		t.Errorf("unexpected mode lookup result: %v %v", got, ok)
	}
	if names := w.ModeNames(); len(names) != 1 || names[0] != "local" {
		t.Errorf("unexpected mode names: %v", names)
	}
}

func TestWorkflow_Validate_Cycle(t *testing.T) {
	w := domain.NewWorkflow("assets")
	if err := w.AddTask(task("A", "B")); err != nil {
		t.Fatalf("failed to add task A: %v", err)
	}
	if err := w.AddTask(task("B", "A")); err != nil {
		t.Fatalf("failed to add task B: %v", err)
	}

	err := w.Validate()
	if err == nil {
		t.Fatal("expected error for cycle, got nil")
	}
	if !errors.Is(err, domain.ErrCycleDetected) || !errors.Is(err, domain.ErrGraph) {
		t.Errorf("expected cycle graph error, got %v", err)
	}

	zErr, ok := err.(*zerr.Error)
	if !ok {
		t.Fatalf("expected *zerr.Error, got %T", err)
	}
	if cycle, ok := zErr.Metadata()["cycle"].(string); !ok || cycle != "A -> B -> A" {
		t.Errorf("expected metadata cycle=%q, got %v", "A -> B -> A", zErr.Metadata()["cycle"])
	}
}

func TestWorkflow_Validate_MissingUpstream(t *testing.T) {
	w := domain.NewWorkflow("assets")
	if err := w.AddTask(task("A", "ghost")); err != nil {
		t.Fatalf("failed to add task A: %v", err)
	}

	err := w.Validate()
	if !errors.Is(err, domain.ErrMissingUpstream) {
		t.Fatalf("expected ErrMissingUpstream, got %v", err)
	}
	zErr, ok := err.(*zerr.Error)
	if !ok {
		t.Fatalf("expected *zerr.Error, got %T", err)
	}
	if up := zErr.Metadata()["upstream"]; up != "ghost" {
		t.Errorf("expected metadata upstream=ghost, got %v", up)
	}
}

func TestWorkflow_Validate_MapSource(t *testing.T) {
	t.Run("map over plain task", func(t *testing.T) {
		w := domain.NewWorkflow("assets")
		src := task("src")
		mapped := task("mapped")
		mapped.MapOver = domain.NewInternedString("src")
		_ = w.AddTask(src)
		_ = w.AddTask(mapped)

		if err := w.Validate(); !errors.Is(err, domain.ErrInvalidMapSource) {
			t.Errorf("expected ErrInvalidMapSource, got %v", err)
		}
	})

	t.Run("mapped fan-out", func(t *testing.T) {
		w := domain.NewWorkflow("assets")
		src := task("src")
		src.FanOut = true
		mapped := task("mapped")
		mapped.MapOver = domain.NewInternedString("src")
		mapped.FanOut = true
		_ = w.AddTask(src)
		_ = w.AddTask(mapped)

		if err := w.Validate(); !errors.Is(err, domain.ErrMappedFanOut) {
			t.Errorf("expected ErrMappedFanOut, got %v", err)
		}
	})

	t.Run("chained mapping", func(t *testing.T) {
		w := domain.NewWorkflow("assets")
		src := task("src")
		src.FanOut = true
		first := task("first")
		first.MapOver = domain.NewInternedString("src")
		second := task("second")
		second.MapOver = domain.NewInternedString("first")
		_ = w.AddTask(src)
		_ = w.AddTask(first)
		_ = w.AddTask(second)

		if err := w.Validate(); err != nil {
			t.Fatalf("unexpected validation error: %v", err)
		}
		deps := w.Dependents(domain.NewInternedString("first"))
		if len(deps) != 1 || deps[0].String() != "second" {
			t.Errorf("unexpected dependents of first: %v", deps)
		}
	})
}

func TestWorkflow_Tasks(t *testing.T) {
	w := domain.NewWorkflow("assets")
	// C -> B -> A
	for _, tk := range []*domain.TaskDefinition{task("A", "B"), task("B", "C"), task("C")} {
		if err := w.AddTask(tk); err != nil {
			t.Fatalf("failed to add task %s: %v", tk.Name, err)
		}
	}

	if err := w.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	executed := make([]string, 0, 3)
	for tk := range w.Tasks() {
		executed = append(executed, tk.Name.String())
	}

	if len(executed) != 3 || executed[0] != "C" || executed[1] != "B" || executed[2] != "A" {
		t.Errorf("unexpected execution order: %v", executed)
	}
	if w.TaskCount() != 3 {
		t.Errorf("expected 3 tasks, got %d", w.TaskCount())
	}
}

func TestValidName(t *testing.T) {
	for name, want := range map[string]bool{
		"fetch_ids": true,
		"step-2":    true,
		"bad name":  false,
		"a[b]":      false,
		"":          false,
	} {
		if got := domain.ValidName(name); got != want {
			t.Errorf("ValidName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestWorkflow_DefaultMode(t *testing.T) {
	w := domain.NewWorkflow("assets")

	mode, ok := w.Mode(domain.DefaultModeName)
	if !ok || mode.Name != domain.DefaultModeName || len(mode.Resources) != 0 {
		t.Fatalf("expected implicit default mode, got %v %v", mode, ok)
	}

	if err := w.AddMode(domain.Mode{Name: "local"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := w.Mode(domain.DefaultModeName); ok {
		t.Error("expected no implicit default mode once modes are declared")
	}
}
