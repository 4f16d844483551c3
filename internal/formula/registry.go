// Package formula holds the registry of calculator formulas: their ids,
// clinical family, external function binding and input schemas.
package formula

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var embeddedRegistry []byte

// Family groups formulas that share an inference rule set.
type Family string

const (
	FamilyRenalCyst Family = "renal_cyst"
	FamilyProstate  Family = "prostate"
	FamilyThyroid   Family = "thyroid"
	FamilyAdnexal   Family = "adnexal"
	FamilyGeneric   Family = "generic"
)

// InputType is the value type an input accepts.
type InputType string

const (
	TypeNumber  InputType = "number"
	TypeInteger InputType = "integer"
	TypeBoolean InputType = "boolean"
	TypeString  InputType = "string"
)

// Input describes one formula input.
type Input struct {
	Key      string    `yaml:"key" json:"key"`
	Type     InputType `yaml:"type" json:"type"`
	Required bool      `yaml:"required" json:"required"`
	Validate string    `yaml:"validate" json:"validate,omitempty"`
}

// Formula is a registry entry. An empty Function means the calculator
// service has no implementation wired for it yet.
type Formula struct {
	ID       string  `yaml:"id" json:"id"`
	Name     string  `yaml:"name" json:"name"`
	Family   Family  `yaml:"family" json:"family"`
	Function string  `yaml:"function" json:"function,omitempty"`
	Inputs   []Input `yaml:"inputs" json:"inputs"`
}

// Input returns the named input spec.
func (f *Formula) Input(key string) (Input, bool) {
	for _, in := range f.Inputs {
		if in.Key == key {
			return in, true
		}
	}
	return Input{}, false
}

// Registry is an immutable, versioned set of formulas.
type Registry struct {
	version  string
	formulas map[string]*Formula
	validate *validator.Validate
}

type registryFile struct {
	Version  string    `yaml:"version"`
	Formulas []Formula `yaml:"formulas"`
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry compiled into the binary.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Parse(embeddedRegistry)
		if err != nil {
			panic(fmt.Sprintf("formula: embedded registry is invalid: %v", err))
		}
		defaultReg = reg
	})
	return defaultReg
}

// Load reads a registry from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "formula: read registry %s", path)
	}
	return Parse(data)
}

// Parse builds a registry from YAML, rejecting duplicate ids, unknown
// families or types, and malformed validation tags.
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "formula: parse registry")
	}
	if file.Version == "" {
		return nil, eris.New("formula: registry version is required")
	}

	reg := &Registry{
		version:  file.Version,
		formulas: make(map[string]*Formula, len(file.Formulas)),
		validate: validator.New(),
	}
	for i := range file.Formulas {
		f := file.Formulas[i]
		if f.ID == "" {
			return nil, eris.Errorf("formula: entry %d has no id", i)
		}
		if _, dup := reg.formulas[f.ID]; dup {
			return nil, eris.Errorf("formula: duplicate id %s", f.ID)
		}
		switch f.Family {
		case FamilyRenalCyst, FamilyProstate, FamilyThyroid, FamilyAdnexal, FamilyGeneric:
		default:
			return nil, eris.Errorf("formula: %s has unknown family %q", f.ID, f.Family)
		}
		for _, in := range f.Inputs {
			if err := reg.checkInputSpec(in); err != nil {
				return nil, eris.Wrapf(err, "formula: %s input %s", f.ID, in.Key)
			}
		}
		reg.formulas[f.ID] = &f
	}
	return reg, nil
}

func (r *Registry) checkInputSpec(in Input) (err error) {
	var sample any
	switch in.Type {
	case TypeNumber, TypeInteger:
		sample = 0.0
	case TypeBoolean:
		sample = false
	case TypeString:
		sample = ""
	default:
		return eris.Errorf("unknown type %q", in.Type)
	}
	if in.Validate == "" {
		return nil
	}
	// validator panics on tags it cannot parse.
	defer func() {
		if p := recover(); p != nil {
			err = eris.Errorf("bad validate tag %q: %v", in.Validate, p)
		}
	}()
	_ = r.validate.Var(sample, in.Validate)
	return nil
}

// Version returns the registry version string.
func (r *Registry) Version() string { return r.version }

// Lookup returns the formula with the given id.
func (r *Registry) Lookup(id string) (*Formula, bool) {
	f, ok := r.formulas[id]
	return f, ok
}

// Formulas returns every formula sorted by id.
func (r *Registry) Formulas() []*Formula {
	out := make([]*Formula, 0, len(r.formulas))
	for _, f := range r.formulas {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RequiredKeys returns the required input keys of a formula in declared order.
func (r *Registry) RequiredKeys(id string) []string {
	f, ok := r.formulas[id]
	if !ok {
		return nil
	}
	var keys []string
	for _, in := range f.Inputs {
		if in.Required {
			keys = append(keys, in.Key)
		}
	}
	return keys
}

// FunctionName returns the calculator function bound to a formula. It
// reports false for unknown formulas and for formulas not wired yet.
func (r *Registry) FunctionName(id string) (string, bool) {
	f, ok := r.formulas[id]
	if !ok || f.Function == "" {
		return "", false
	}
	return f.Function, true
}

// FamilyOf returns the family of a formula, or "" if unknown.
func (r *Registry) FamilyOf(id string) Family {
	if f, ok := r.formulas[id]; ok {
		return f.Family
	}
	return ""
}

// IsMissing reports whether an input value counts as absent: nil, or a
// string that is empty after trimming.
func IsMissing(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// ValidateInputs checks inputs against the formula schema and returns one
// message per problem. An empty result means the inputs are valid.
func (r *Registry) ValidateInputs(id string, inputs map[string]any) []string {
	f, ok := r.formulas[id]
	if !ok {
		return []string{fmt.Sprintf("unknown formula %s", id)}
	}

	var problems []string
	for _, in := range f.Inputs {
		v, present := inputs[in.Key]
		if !present || IsMissing(v) {
			if in.Required {
				problems = append(problems, fmt.Sprintf("%s is required", in.Key))
			}
			continue
		}
		if msg := r.checkValue(in, v); msg != "" {
			problems = append(problems, msg)
		}
	}

	var unknown []string
	for key := range inputs {
		if _, ok := f.Input(key); !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		problems = append(problems, fmt.Sprintf("%s is not an input of %s", key, id))
	}
	return problems
}

// ValidateInput checks a single value against its input definition. It
// returns "" for valid values and for formulas the registry does not know.
func (r *Registry) ValidateInput(id, key string, v any) string {
	f, ok := r.formulas[id]
	if !ok {
		return ""
	}
	in, ok := f.Input(key)
	if !ok {
		return fmt.Sprintf("%s is not an input of %s", key, id)
	}
	return r.checkValue(in, v)
}

func (r *Registry) checkValue(in Input, v any) string {
	var val any
	switch in.Type {
	case TypeNumber, TypeInteger:
		n, ok := toFloat(v)
		if !ok {
			return fmt.Sprintf("%s must be a number, got %T", in.Key, v)
		}
		if in.Type == TypeInteger && n != math.Trunc(n) {
			return fmt.Sprintf("%s must be an integer, got %v", in.Key, n)
		}
		val = n
	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return fmt.Sprintf("%s must be a boolean, got %T", in.Key, v)
		}
		val = b
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return fmt.Sprintf("%s must be a string, got %T", in.Key, v)
		}
		val = s
	}

	if in.Validate == "" {
		return ""
	}
	if err := r.validate.Var(val, in.Validate); err != nil {
		return fmt.Sprintf("%s=%v fails %q", in.Key, v, in.Validate)
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
