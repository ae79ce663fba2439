package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/cohort/pkg/domain"
)

// StartParent is the parent name marking a node as a top-level MarkovState.
const StartParent = "__start__"

// ComplementKeyword can be used in place of a probability to request a complement.
const ComplementKeyword = "complement"

var (
	// ErrUnknownReference is returned when a parent, destination or parameter name does not resolve.
	ErrUnknownReference = errors.New("unknown reference")

	// ErrInvalidDefinition is returned for malformed model documents.
	ErrInvalidDefinition = errors.New("invalid model definition")
)

// ParameterType is the kind of a named parameter.
type ParameterType string

const (
	ParamConstant    ParameterType = "constant"
	ParamRange       ParameterType = "range"
	ParamTimeVarying ParameterType = "time_varying"
	ParamComplement  ParameterType = "complement"
)

// ParseParameterType accepts both document names ("range") and the table
// names used by CSV models ("probability with range").
func ParseParameterType(s string) (ParameterType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "constant", "constant probability":
		return ParamConstant, nil
	case "range", "probability with range":
		return ParamRange, nil
	case "time_varying", "time-varying", "time-varying probability", "time-varing probability":
		return ParamTimeVarying, nil
	case "complement", "complement probability":
		return ParamComplement, nil
	default:
		return "", fmt.Errorf("%w: unknown parameter type %q", ErrInvalidDefinition, s)
	}
}

// Definition is a model as written by a user: settings, named parameters,
// nodes and transitions. It is immutable once loaded and can be built any
// number of times.
type Definition struct {
	Name        string               `json:"name" yaml:"name" mapstructure:"name"`
	Settings    domain.Settings      `json:"settings" yaml:"settings" mapstructure:"settings"`
	Parameters  map[string]Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`
	Nodes       []NodeDef            `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
	Transitions []TransitionDef      `json:"transitions" yaml:"transitions" mapstructure:"transitions"`
}

// Parameter is a named probability source shared by nodes, transitions and variables.
type Parameter struct {
	Type ParameterType `json:"type" yaml:"type" mapstructure:"type"`

	// Value is the base value of constant and range parameters.
	Value float64 `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`

	// Params are the two distribution parameters of a range parameter.
	// They default to Value.
	Params []float64 `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`

	// Distribution defaults to uniform.
	Distribution string `json:"distribution,omitempty" yaml:"distribution,omitempty" mapstructure:"distribution"`

	// Values are the per-cycle elements of a time-varying parameter: either
	// [value, p1, p2, distribution] arrays or names of range parameters.
	Values []any `json:"values,omitempty" yaml:"values,omitempty" mapstructure:"values"`
}

// NodeDef declares a MarkovState (parent StartParent) or a ChanceNode.
type NodeDef struct {
	Name   string `json:"name" yaml:"name" mapstructure:"name"`
	Parent string `json:"parent" yaml:"parent" mapstructure:"parent"`

	// Probability is a number, a numeric string, a parameter name or "complement".
	// It defaults to 1.
	Probability any `json:"probability,omitempty" yaml:"probability,omitempty" mapstructure:"probability"`

	// Variables map names to numbers or parameter names.
	Variables map[string]any `json:"variables,omitempty" yaml:"variables,omitempty" mapstructure:"variables"`
}

// TransitionDef declares a StateTransition into Destination.
type TransitionDef struct {
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Parent      string         `json:"parent" yaml:"parent" mapstructure:"parent"`
	Destination string         `json:"destination" yaml:"destination" mapstructure:"destination"`
	Probability any            `json:"probability,omitempty" yaml:"probability,omitempty" mapstructure:"probability"`
	Variables   map[string]any `json:"variables,omitempty" yaml:"variables,omitempty" mapstructure:"variables"`
}

// Validate checks the document shape. References are checked by Build.
func (d *Definition) Validate() error {
	if len(d.Nodes) == 0 {
		return fmt.Errorf("%w: no nodes", ErrInvalidDefinition)
	}
	for i, n := range d.Nodes {
		if n.Name == "" {
			return fmt.Errorf("%w: node #%d has no name", ErrInvalidDefinition, i)
		}
		if n.Parent == "" {
			return fmt.Errorf("%w: node %q has no parent", ErrInvalidDefinition, n.Name)
		}
	}
	for i, t := range d.Transitions {
		if t.Name == "" {
			return fmt.Errorf("%w: transition #%d has no name", ErrInvalidDefinition, i)
		}
		if t.Parent == "" || t.Destination == "" {
			return fmt.Errorf("%w: transition %q needs a parent and a destination", ErrInvalidDefinition, t.Name)
		}
	}
	for name, p := range d.Parameters {
		if _, err := ParseParameterType(string(p.Type)); err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
	}
	return d.Settings.Validate()
}

// States returns the names of the top-level states in declaration order.
func (d *Definition) States() []string {
	var out []string
	for _, n := range d.Nodes {
		if n.Parent == StartParent {
			out = append(out, n.Name)
		}
	}
	return out
}
