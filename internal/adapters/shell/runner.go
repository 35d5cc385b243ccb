// Package shell provides a StepRunner that runs each task's command in a pty.
package shell

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/creack/pty"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

// Environment variables passed to every step command.
const (
	EnvRunID           = "MEMO_RUN_ID"
	EnvStepKey         = "MEMO_STEP_KEY"
	EnvTask            = "MEMO_TASK"
	EnvDataVersion     = "MEMO_DATA_VERSION"
	EnvConfig          = "MEMO_CONFIG"
	EnvResources       = "MEMO_RESOURCES"
	EnvMappingKey      = "MEMO_MAPPING_KEY"
	EnvUpstream        = "MEMO_UPSTREAM"
	EnvMappingKeysFile = "MEMO_MAPPING_KEYS_FILE"
)

var _ ports.StepRunner = (*Runner)(nil)

// Runner implements ports.StepRunner using os/exec and pty.
type Runner struct {
	logger  ports.Logger
	workDir string
}

// NewRunner creates a new Runner that starts commands in workDir.
func NewRunner(logger ports.Logger, workDir string) *Runner {
	return &Runner{logger: logger, workDir: workDir}
}

type upstreamEnv struct {
	DataVersion domain.DataVersion `json:"data_version"`
	RunID       string             `json:"run_id"`
	MappingKeys []string           `json:"mapping_keys,omitempty"`
}

// Run starts the task's command and waits for it. Tasks without a command
// succeed immediately. Fan-out tasks write their mapping keys, one per line,
// to the file named by MEMO_MAPPING_KEYS_FILE.
func (r *Runner) Run(ctx context.Context, req domain.StepRequest, output io.Writer) (domain.StepResult, error) {
	var result domain.StepResult
	if len(req.Task.Command) == 0 {
		return result, nil
	}

	env, err := stepEnvironment(req)
	if err != nil {
		return result, zerr.With(err, "step", req.Step.Key)
	}

	var keysFile string
	if req.Step.FanOut {
		keysFile, err = r.createKeysFile()
		if err != nil {
			return result, zerr.With(err, "step", req.Step.Key)
		}
		defer r.removeKeysFile(keysFile)
		env[EnvMappingKeysFile] = keysFile
	}

	if err := r.execute(ctx, req.Task, env, output); err != nil {
		return result, zerr.With(err, "step", req.Step.Key)
	}

	if keysFile != "" {
		keys, err := readMappingKeys(keysFile)
		if err != nil {
			return result, zerr.With(err, "step", req.Step.Key)
		}
		result.MappingKeys = keys
	}
	return result, nil
}

func (r *Runner) execute(ctx context.Context, task domain.TaskDefinition, env map[string]string, output io.Writer) error {
	name := task.Command[0]
	args := task.Command[1:]

	cmdEnv := resolveEnvironment(os.Environ(), task.Environment, env)

	executable := name
	if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, cmdEnv); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, args...) //nolint:gosec // user provided command
	if len(cmd.Args) > 0 {
		cmd.Args[0] = name
	}
	cmd.Dir = r.workDir
	cmd.Env = cmdEnv

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return zerr.Wrap(err, "failed to start pty")
	}

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		defer func() { _ = ptmx.Close() }()
		// PTYs merge stdout and stderr.
		_, _ = io.Copy(output, ptmx)
	}()

	err = cmd.Wait()
	<-ioDone

	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return zerr.With(zerr.Wrap(err, "command failed"), "exit_code", exitCode)
	}
	return nil
}

func (r *Runner) createKeysFile() (string, error) {
	f, err := os.CreateTemp("", "memo-mapping-keys-*")
	if err != nil {
		return "", zerr.Wrap(err, "failed to create mapping keys file")
	}
	if err := f.Close(); err != nil {
		return "", zerr.Wrap(err, "failed to create mapping keys file")
	}
	return f.Name(), nil
}

func (r *Runner) removeKeysFile(name string) {
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.logger.Warn("failed to remove mapping keys file " + name + ": " + err.Error())
	}
}

// readMappingKeys reads one key per line. Blank lines are ignored; key
// validation is left to the executor.
func readMappingKeys(name string) ([]string, error) {
	f, err := os.Open(name) //nolint:gosec // Path is created by the runner
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read mapping keys")
	}
	defer func() { _ = f.Close() }()

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key := strings.TrimSpace(scanner.Text())
		if key != "" {
			keys = append(keys, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, zerr.Wrap(err, "failed to read mapping keys")
	}
	return keys, nil
}

func stepEnvironment(req domain.StepRequest) (map[string]string, error) {
	env := map[string]string{
		EnvRunID:       req.RunID.String(),
		EnvStepKey:     req.Step.Key,
		EnvTask:        req.Task.Name.String(),
		EnvDataVersion: req.DataVersion.String(),
	}
	if req.Step.MappingKey != "" {
		env[EnvMappingKey] = req.Step.MappingKey
	}

	upstream := make(map[string]upstreamEnv, len(req.Upstream))
	for key, m := range req.Upstream {
		upstream[key] = upstreamEnv{DataVersion: m.DataVersion, RunID: m.RunID.String(), MappingKeys: m.MappingKeys}
	}

	for name, value := range map[string]any{
		EnvConfig:    req.Config,
		EnvResources: req.Resources,
		EnvUpstream:  upstream,
	} {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to encode step environment"), "variable", name)
		}
		env[name] = string(data)
	}
	return env, nil
}

// allowListedEnvVars are the system environment variables inherited by every
// step command.
var allowListedEnvVars = map[string]struct{}{
	"HOME":   {},
	"TERM":   {},
	"USER":   {},
	"PATH":   {},
	"TMPDIR": {},
}

// resolveEnvironment merges environment variables with the following priority
// (low to high): the allow-listed system variables, the task's environment,
// and the step variables.
func resolveEnvironment(sysEnv []string, taskEnv, stepEnv map[string]string) []string {
	envMap := filterSystemEnv(sysEnv)
	for k, v := range taskEnv {
		envMap[k] = v
	}
	for k, v := range stepEnv {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}

func filterSystemEnv(sysEnv []string) map[string]string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if _, allowed := allowListedEnvVars[k]; allowed {
			envMap[k] = v
		}
	}
	return envMap
}

// lookPath searches for an executable in the directories named by the PATH environment variable.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
