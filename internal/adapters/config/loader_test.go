package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/adapters/config"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

const yamlWorkflow = `
name: assets
modes:
  local:
    resources:
      io_manager: { version: "1" }
tasks:
  fetch_ids:
    code_version: "1"
    cmd: ["sh", "-c", "echo hi"]
    fan_out: true
  download:
    code_version: "2"
    map: fetch_ids
    resources: [io_manager]
    config_schema:
      type: object
      properties:
        retries: { type: integer }
  combine:
    code_version: "1"
    inputs: [download]
    environment: { FOO: bar }
`

const hclWorkflow = `
name = "assets"

mode "local" {
  resource "io_manager" {
    version = "1"
  }
}

task "fetch_ids" {
  code_version = "1"
  cmd          = ["sh", "-c", "echo hi"]
  fan_out      = true
}

task "download" {
  code_version = "2"
  map          = "fetch_ids"
  resources    = ["io_manager"]
  config_schema = {
    type = "object"
    properties = {
      retries = { type = "integer" }
    }
  }
}

task "combine" {
  code_version = "1"
  inputs       = ["download"]
  environment  = { FOO = "bar" }
}
`

func createFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), domain.PrivateFilePerm))
	return path
}

func newLoader(t *testing.T) *config.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn(gomock.Any()).AnyTimes()
	return config.NewLoader(mockLogger)
}

func assertAssetsWorkflow(t *testing.T, w *domain.Workflow) {
	t.Helper()
	assert.Equal(t, "assets", w.Name)
	assert.True(t, w.StrictVersions)
	assert.Equal(t, 3, w.TaskCount())

	fetch, ok := w.GetTask(domain.NewInternedString("fetch_ids"))
	require.True(t, ok)
	assert.True(t, fetch.FanOut)
	assert.Equal(t, []string{"sh", "-c", "echo hi"}, fetch.Command)

	download, ok := w.GetTask(domain.NewInternedString("download"))
	require.True(t, ok)
	assert.Equal(t, "2", download.CodeVersion)
	assert.Equal(t, "fetch_ids", download.MapOver.String())
	assert.Equal(t, []string{"io_manager"}, download.Resources)
	assert.Equal(t, "object", download.ConfigSchema["type"])
	props, ok := download.ConfigSchema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "retries")

	combine, ok := w.GetTask(domain.NewInternedString("combine"))
	require.True(t, ok)
	assert.Equal(t, domain.NewInternedStrings([]string{"download"}), combine.Inputs)
	assert.Equal(t, map[string]string{"FOO": "bar"}, combine.Environment)

	mode, ok := w.Mode("local")
	require.True(t, ok)
	assert.Equal(t, "1", mode.Resources["io_manager"].Version)

	require.NoError(t, w.Validate())
}

func TestLoader_Load_YAML(t *testing.T) {
	dir := t.TempDir()
	createFile(t, dir, domain.WorkflowFileName, yamlWorkflow)

	w, err := newLoader(t).Load(dir)
	require.NoError(t, err)
	assertAssetsWorkflow(t, w)
}

func TestLoader_Load_HCL(t *testing.T) {
	dir := t.TempDir()
	createFile(t, dir, domain.WorkflowHCLFileName, hclWorkflow)

	w, err := newLoader(t).Load(dir)
	require.NoError(t, err)
	assertAssetsWorkflow(t, w)
}

func TestLoader_Discovery(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.WorkflowFileName, "tasks:\n  a:\n    code_version: \"1\"\n")
	deep := filepath.Join(root, "src", "pkg")
	require.NoError(t, os.MkdirAll(deep, domain.DirPerm))

	loader := newLoader(t)

	got, err := loader.DiscoverRoot(deep)
	require.NoError(t, err)
	assert.Equal(t, root, got)

	w, err := loader.Load(deep)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(root), w.Name, "name defaults to the workflow directory")
}

func TestLoader_PrefersYAML(t *testing.T) {
	dir := t.TempDir()
	createFile(t, dir, domain.WorkflowFileName, "name: from-yaml\n")
	createFile(t, dir, domain.WorkflowHCLFileName, "name = \"from-hcl\"\n")

	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn(gomock.Any()).Times(1)

	w, err := config.NewLoader(mockLogger).Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-yaml", w.Name)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    error
		msg     string
	}{
		{
			name:    "invalid task name",
			file:    domain.WorkflowFileName,
			content: "tasks:\n  \"bad name\": {}\n",
			want:    domain.ErrInvalidTaskName,
		},
		{
			name:    "invalid resource name",
			file:    domain.WorkflowFileName,
			content: "modes:\n  local:\n    resources:\n      \"a/b\": { version: \"1\" }\n",
			want:    domain.ErrInvalidTaskName,
		},
		{
			name:    "malformed yaml",
			file:    domain.WorkflowFileName,
			content: "tasks: [",
			msg:     domain.ErrConfigParseFailed.Error(),
		},
		{
			name:    "malformed hcl",
			file:    domain.WorkflowHCLFileName,
			content: "task \"a\" {",
			msg:     domain.ErrConfigParseFailed.Error(),
		},
		{
			name:    "duplicate hcl task",
			file:    domain.WorkflowHCLFileName,
			content: "task \"a\" {}\ntask \"a\" {}\n",
			want:    domain.ErrTaskAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			createFile(t, dir, tt.file, tt.content)

			_, err := newLoader(t).Load(dir)
			require.Error(t, err)
			if tt.want != nil {
				assert.True(t, errors.Is(err, tt.want), "got %v", err)
			}
			if tt.msg != "" {
				assert.ErrorContains(t, err, tt.msg)
			}
		})
	}
}

func TestLoader_NotFound(t *testing.T) {
	_, err := newLoader(t).Load(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrWorkflowNotFound))
}

func TestLoader_LoadRunConfig(t *testing.T) {
	loader := newLoader(t)

	empty, err := loader.LoadRunConfig("")
	require.NoError(t, err)
	assert.Empty(t, empty.Tasks)

	path := createFile(t, t.TempDir(), "run.yaml", `
tasks:
  download:
    config: { retries: 3 }
    branches: { a: { retries: 5 } }
resources:
  io_manager: { config: { base_dir: /tmp/x } }
`)
	cfg, err := loader.LoadRunConfig(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"retries": 3}, cfg.Tasks["download"].Config)
	assert.Equal(t, map[string]any{"retries": 5}, cfg.Tasks["download"].Branches["a"])
	assert.Equal(t, map[string]any{"base_dir": "/tmp/x"}, cfg.Resources["io_manager"].Config)
}
