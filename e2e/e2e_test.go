//go:build e2e

package e2e_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
	"go.trai.ch/memo/internal/adapters/cas"
	"go.trai.ch/memo/internal/adapters/runstore"
	"go.trai.ch/memo/internal/core/domain"
)

var binDir string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "memo-e2e-*")
	if err != nil {
		panic(err)
	}
	binDir = dir

	//nolint:gosec // Building binary with static arguments, not user input
	build := exec.Command("go", "build", "-o", filepath.Join(binDir, "memo"), "./cmd/memo")
	build.Dir = ".."
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		_ = os.RemoveAll(binDir)
		panic("build memo: " + err.Error())
	}

	code := m.Run()
	_ = os.RemoveAll(binDir)
	os.Exit(code)
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir:   "testdata",
		Setup: setup,
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"runs":         cmdRuns,
			"latest":       cmdLatest,
			"materialized": cmdMaterialized,
		},
	})
}

// setup gives every script plain CI output, the memo binary on PATH and its
// own HOME.
func setup(env *testscript.Env) error {
	env.Setenv("NO_COLOR", "1")
	env.Setenv("CI", "true")
	env.Setenv("PATH", binDir+string(os.PathListSeparator)+env.Getenv("PATH"))

	home := filepath.Join(env.WorkDir, ".home")
	env.Setenv("HOME", home)
	return os.MkdirAll(home, 0o750)
}

// cmdRuns asserts how many runs the workspace recorded.
//
//	runs N
func cmdRuns(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) != 1 {
		ts.Fatalf("usage: runs N")
	}
	want, err := strconv.Atoi(args[0])
	ts.Check(err)

	ids, err := runstore.NewStore(ts.MkAbs(domain.DefaultRunsPath())).List(context.Background())
	ts.Check(err)
	if (len(ids) == want) == neg {
		ts.Fatalf("recorded %d run(s), want %s%d", len(ids), negation(neg), want)
	}
}

// cmdLatest asserts the status of the most recent run.
//
//	latest STATUS
func cmdLatest(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) != 1 {
		ts.Fatalf("usage: latest STATUS")
	}
	store := runstore.NewStore(ts.MkAbs(domain.DefaultRunsPath()))
	ids, err := store.List(context.Background())
	ts.Check(err)
	if len(ids) == 0 {
		ts.Fatalf("no runs recorded")
	}
	run, err := store.GetRun(context.Background(), ids[0])
	ts.Check(err)
	if (string(run.Status) == args[0]) == neg {
		ts.Fatalf("latest run %s is %s, want %s%s", run.ID, run.Status, negation(neg), args[0])
	}
}

// cmdMaterialized asserts that each step key has a materialization in the
// index.
//
//	materialized KEY...
func cmdMaterialized(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) == 0 {
		ts.Fatalf("usage: materialized KEY...")
	}
	index := cas.NewStore(ts.MkAbs(domain.DefaultIndexPath()))
	for _, key := range args {
		m, err := index.Get(context.Background(), key)
		ts.Check(err)
		if (m != nil) == neg {
			ts.Fatalf("step %s: materialized=%t", key, m != nil)
		}
	}
}

func negation(neg bool) string {
	if neg {
		return "not "
	}
	return ""
}
