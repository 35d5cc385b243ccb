package config

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ConfigResolver = (*Resolver)(nil)

// Resolver validates raw run configuration against each task's config schema
// and binds the resources of the selected mode.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the validated configuration of every task. Config values are
// normalized to their JSON form so equal configs always hash equally.
func (r *Resolver) Resolve(
	workflow *domain.Workflow,
	mode string,
	raw domain.RunConfig,
) (domain.ResolvedConfig, error) {
	resolved := domain.ResolvedConfig{Mode: mode, Tasks: make(map[string]domain.TaskConfig)}

	if err := workflow.Validate(); err != nil {
		return resolved, err
	}

	m, ok := workflow.Mode(mode)
	if !ok {
		return resolved, zerr.With(zerr.Wrap(domain.ErrUnknownMode, "resolve config"), "mode", mode)
	}

	for _, name := range sortedKeys(raw.Tasks) {
		if _, ok := workflow.GetTask(domain.NewInternedString(name)); !ok {
			return resolved, zerr.With(zerr.Wrap(domain.ErrUnknownTaskConfig, "resolve config"), "task", name)
		}
	}

	resourceConfigs := make(map[string]any, len(raw.Resources))
	for _, name := range sortedKeys(raw.Resources) {
		if _, ok := m.Resources[name]; !ok {
			return resolved, zerr.With(zerr.With(zerr.Wrap(domain.ErrUnknownResourceConfig, "resolve config"),
				"resource", name), "mode", mode)
		}
		cfg, err := normalize(raw.Resources[name].Config)
		if err != nil {
			return resolved, zerr.With(err, "resource", name)
		}
		resourceConfigs[name] = cfg
	}

	for task := range workflow.Tasks() {
		name := task.Name.String()
		cfg, err := r.resolveTask(&task, m, raw.Tasks[name], resourceConfigs)
		if err != nil {
			return resolved, zerr.With(err, "task", name)
		}
		if cfg.Config != nil || len(cfg.Branches) > 0 || len(cfg.Resources) > 0 {
			resolved.Tasks[name] = cfg
		}
	}

	return resolved, nil
}

func (r *Resolver) resolveTask(
	task *domain.TaskDefinition,
	mode domain.Mode,
	raw domain.RawTaskConfig,
	resourceConfigs map[string]any,
) (domain.TaskConfig, error) {
	var out domain.TaskConfig

	if len(raw.Branches) > 0 && !task.IsMapped() {
		return out, zerr.Wrap(domain.ErrBranchConfigWithoutMapping, "resolve config")
	}

	schema, err := compileSchema(task)
	if err != nil {
		return out, err
	}

	cfg, err := normalize(raw.Config)
	if err != nil {
		return out, err
	}
	if err := validate(schema, cfg); err != nil {
		return out, err
	}
	out.Config = cfg

	for _, key := range sortedKeys(raw.Branches) {
		branch, err := normalize(raw.Branches[key])
		if err != nil {
			return out, zerr.With(err, "mapping_key", key)
		}
		if err := validate(schema, branch); err != nil {
			return out, zerr.With(err, "mapping_key", key)
		}
		if out.Branches == nil {
			out.Branches = make(map[string]any, len(raw.Branches))
		}
		out.Branches[key] = branch
	}

	for _, name := range task.Resources {
		def, ok := mode.Resources[name]
		if !ok {
			return out, zerr.With(zerr.With(zerr.Wrap(domain.ErrMissingResource, "resolve config"),
				"resource", name), "mode", mode.Name)
		}
		if out.Resources == nil {
			out.Resources = make(map[string]domain.ResourceBinding, len(task.Resources))
		}
		out.Resources[name] = domain.ResourceBinding{Version: def.Version, Config: resourceConfigs[name]}
	}

	return out, nil
}

// compileSchema compiles the task's config schema. Tasks without a schema
// accept any config.
func compileSchema(task *domain.TaskDefinition) (*jsonschema.Schema, error) {
	if len(task.ConfigSchema) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(task.ConfigSchema)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidSchema, "compile schema"), "reason", err.Error())
	}
	schema, err := jsonschema.CompileString("memo://tasks/"+task.Name.String()+".json", string(data))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidSchema, "compile schema"), "reason", err.Error())
	}
	return schema, nil
}

func validate(schema *jsonschema.Schema, value any) error {
	if schema == nil || value == nil {
		return nil
	}
	if err := schema.Validate(value); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrSchemaViolation, "validate config"), "reason", err.Error())
	}
	return nil
}

// normalize round trips v through JSON so YAML and HCL values share one
// representation. Numbers decode to json.Number, which keeps the literal
// exact.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigValidation, "config is not JSON compatible"), "reason", err.Error())
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigValidation, "config is not JSON compatible"), "reason", err.Error())
	}
	return out, nil
}
