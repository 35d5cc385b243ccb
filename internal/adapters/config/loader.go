// Package config loads workflow definitions and resolves run configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader for memo.yaml and memo.hcl files.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load finds the workflow file from cwd upwards and returns its workflow.
func (l *Loader) Load(cwd string) (*domain.Workflow, error) {
	path, err := l.findWorkflowFile(cwd)
	if err != nil {
		return nil, err
	}

	var file Workflowfile
	if filepath.Ext(path) == ".hcl" {
		file, err = decodeHCL(path)
	} else {
		err = readAndUnmarshalYAML(path, &file)
	}
	if err != nil {
		return nil, zerr.With(err, "file", path)
	}

	if file.Name == "" {
		file.Name = filepath.Base(filepath.Dir(path))
	}
	return buildWorkflow(&file)
}

// DiscoverRoot returns the directory holding the workflow file.
func (l *Loader) DiscoverRoot(cwd string) (string, error) {
	path, err := l.findWorkflowFile(cwd)
	if err != nil {
		return "", err
	}
	return filepath.Dir(path), nil
}

// LoadRunConfig reads a run configuration file. An empty path yields an empty
// configuration.
func (l *Loader) LoadRunConfig(path string) (domain.RunConfig, error) {
	var cfg domain.RunConfig
	if path == "" {
		return cfg, nil
	}
	if err := readAndUnmarshalYAML(path, &cfg); err != nil {
		return cfg, zerr.With(err, "file", path)
	}
	return cfg, nil
}

// findWorkflowFile walks up from cwd. When a directory holds both file
// formats the YAML file wins.
func (l *Loader) findWorkflowFile(cwd string) (string, error) {
	currentDir := filepath.Clean(cwd)
	for {
		yamlPath := filepath.Join(currentDir, domain.WorkflowFileName)
		hclPath := filepath.Join(currentDir, domain.WorkflowHCLFileName)
		yamlFound, hclFound := exists(yamlPath), exists(hclPath)

		switch {
		case yamlFound && hclFound:
			if l.Logger != nil {
				l.Logger.Warn(fmt.Sprintf("both %s and %s found in %s, using %s",
					domain.WorkflowFileName, domain.WorkflowHCLFileName, currentDir, domain.WorkflowFileName))
			}
			return yamlPath, nil
		case yamlFound:
			return yamlPath, nil
		case hclFound:
			return hclPath, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			break
		}
		currentDir = parentDir
	}

	return "", zerr.With(zerr.Wrap(domain.ErrWorkflowNotFound, "find workflow"), "cwd", cwd)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

func buildWorkflow(file *Workflowfile) (*domain.Workflow, error) {
	w := domain.NewWorkflow(file.Name)
	if file.StrictVersions != nil {
		w.StrictVersions = *file.StrictVersions
	}

	for _, name := range sortedKeys(file.Modes) {
		if err := validateName(name, "mode"); err != nil {
			return nil, err
		}
		mode := domain.Mode{Name: name, Resources: make(map[string]domain.ResourceDefinition)}
		if dto := file.Modes[name]; dto != nil {
			for resName, res := range dto.Resources {
				if err := validateName(resName, "resource"); err != nil {
					return nil, err
				}
				mode.Resources[resName] = domain.ResourceDefinition{Version: res.Version}
			}
		}
		if err := w.AddMode(mode); err != nil {
			return nil, err
		}
	}

	for _, name := range sortedKeys(file.Tasks) {
		if err := validateName(name, "task"); err != nil {
			return nil, err
		}
		dto := file.Tasks[name]
		if dto == nil {
			dto = &TaskDTO{}
		}
		if err := w.AddTask(buildTask(name, dto)); err != nil {
			return nil, err
		}
	}

	return w, nil
}

func buildTask(name string, dto *TaskDTO) *domain.TaskDefinition {
	task := &domain.TaskDefinition{
		Name:         domain.NewInternedString(name),
		CodeVersion:  dto.CodeVersion,
		Inputs:       canonicalizeStrings(dto.Inputs),
		FanOut:       dto.FanOut,
		ConfigSchema: dto.ConfigSchema,
		Resources:    slices.Compact(slices.Sorted(slices.Values(dto.Resources))),
		Command:      dto.Cmd,
		Environment:  dto.Environment,
	}
	if dto.Map != "" {
		task.MapOver = domain.NewInternedString(dto.Map)
	}
	return task
}

func canonicalizeStrings(strs []string) []domain.InternedString {
	if len(strs) == 0 {
		return nil
	}

	// Sort strings
	sorted := make([]string, len(strs))
	copy(sorted, strs)
	slices.Sort(sorted)

	// Deduplicate and intern
	unique := slices.Compact(sorted)
	return domain.NewInternedStrings(unique)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// validateName checks that a task, mode or resource name contains only valid characters.
func validateName(name, kind string) error {
	if !domain.ValidName(name) {
		return zerr.With(zerr.Wrap(domain.ErrInvalidTaskName, "load workflow"), kind, name)
	}
	return nil
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is validated by caller
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}
