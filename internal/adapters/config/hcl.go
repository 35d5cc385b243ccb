package config

import (
	"encoding/json"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/zerr"
)

// hclFile is the memo.hcl form of Workflowfile.
type hclFile struct {
	Name           string    `hcl:"name,optional"`
	StrictVersions *bool     `hcl:"strict_versions,optional"`
	Modes          []hclMode `hcl:"mode,block"`
	Tasks          []hclTask `hcl:"task,block"`
}

type hclMode struct {
	Name      string        `hcl:"name,label"`
	Resources []hclResource `hcl:"resource,block"`
}

type hclResource struct {
	Name    string `hcl:"name,label"`
	Version string `hcl:"version"`
}

type hclTask struct {
	Name         string            `hcl:"name,label"`
	CodeVersion  string            `hcl:"code_version,optional"`
	Cmd          []string          `hcl:"cmd,optional"`
	Inputs       []string          `hcl:"inputs,optional"`
	FanOut       bool              `hcl:"fan_out,optional"`
	Map          string            `hcl:"map,optional"`
	Resources    []string          `hcl:"resources,optional"`
	ConfigSchema cty.Value         `hcl:"config_schema,optional"`
	Environment  map[string]string `hcl:"environment,optional"`
}

// decodeHCL parses path and converts it into a Workflowfile. Duplicate mode
// or task blocks are reported by the workflow itself.
func decodeHCL(path string) (Workflowfile, error) {
	var out Workflowfile

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return out, zerr.Wrap(diags, domain.ErrConfigParseFailed.Error())
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return out, zerr.Wrap(diags, domain.ErrConfigParseFailed.Error())
	}

	out.Name = parsed.Name
	out.StrictVersions = parsed.StrictVersions
	out.Modes = make(map[string]*ModeDTO, len(parsed.Modes))
	for _, m := range parsed.Modes {
		if _, dup := out.Modes[m.Name]; dup {
			return out, zerr.With(zerr.Wrap(domain.ErrModeAlreadyExists, "decode hcl"), "mode", m.Name)
		}
		dto := &ModeDTO{Resources: make(map[string]ResourceDTO, len(m.Resources))}
		for _, r := range m.Resources {
			dto.Resources[r.Name] = ResourceDTO{Version: r.Version}
		}
		out.Modes[m.Name] = dto
	}

	out.Tasks = make(map[string]*TaskDTO, len(parsed.Tasks))
	for _, t := range parsed.Tasks {
		if _, dup := out.Tasks[t.Name]; dup {
			return out, zerr.With(zerr.Wrap(domain.ErrTaskAlreadyExists, "decode hcl"), "task", t.Name)
		}
		schema, err := ctyToNative(t.ConfigSchema)
		if err != nil {
			return out, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "task", t.Name)
		}
		schemaMap, _ := schema.(map[string]any)
		out.Tasks[t.Name] = &TaskDTO{
			CodeVersion:  t.CodeVersion,
			Cmd:          t.Cmd,
			Inputs:       t.Inputs,
			FanOut:       t.FanOut,
			Map:          t.Map,
			Resources:    t.Resources,
			ConfigSchema: schemaMap,
			Environment:  t.Environment,
		}
	}

	return out, nil
}

// ctyToNative converts a cty value into the plain Go values a JSON decoder
// would produce.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		return json.Number(v.AsBigFloat().Text('f', -1)), nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := []any{}
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, zerr.With(err, "attribute", key.AsString())
			}
			out[key.AsString()] = native
		}
		return out, nil

	default:
		return nil, zerr.With(zerr.New("unsupported value type"), "type", ty.FriendlyName())
	}
}
