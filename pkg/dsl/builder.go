package dsl

import (
	"fmt"

	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/model"
)

// Builder manages the model construction.
type Builder struct {
	def         model.Definition
	nodes       []*NodeBuilder
	transitions []*TransitionBuilder
	index       map[string]bool
	err         error
}

// New creates a new model builder with default settings.
func New(name string) *Builder {
	return &Builder{
		def: model.Definition{
			Name:       name,
			Settings:   domain.DefaultSettings(),
			Parameters: make(map[string]model.Parameter),
		},
		index: make(map[string]bool),
	}
}

// Cycles sets the number of simulated cycles.
func (b *Builder) Cycles(n int) *Builder {
	b.def.Settings.Cycles = n
	return b
}

// CountMethod sets how cycle windows are counted.
func (b *Builder) CountMethod(m domain.CountMethod) *Builder {
	b.def.Settings.CountMethod = m
	return b
}

// DiscountRate sets the per-cycle discount rate.
func (b *Builder) DiscountRate(r float64) *Builder {
	b.def.Settings.DiscountRate = r
	return b
}

// Constant declares a parameter that keeps v under sampling.
func (b *Builder) Constant(name string, v float64) *Builder {
	return b.parameter(name, model.Parameter{Type: model.ParamConstant, Value: v})
}

// Range declares a parameter with base value v, resampled from dist with p1 and p2.
func (b *Builder) Range(name string, v, p1, p2 float64, dist domain.Distribution) *Builder {
	return b.parameter(name, model.Parameter{
		Type:         model.ParamRange,
		Value:        v,
		Params:       []float64{p1, p2},
		Distribution: string(dist),
	})
}

// TimeVarying declares a parameter with one value per cycle. Elements are
// [value, p1, p2, distribution] slices or names of range parameters.
func (b *Builder) TimeVarying(name string, values ...any) *Builder {
	return b.parameter(name, model.Parameter{Type: model.ParamTimeVarying, Values: values})
}

// Complement declares a parameter that evaluates to one minus its siblings.
func (b *Builder) Complement(name string) *Builder {
	return b.parameter(name, model.Parameter{Type: model.ParamComplement})
}

func (b *Builder) parameter(name string, p model.Parameter) *Builder {
	if _, dup := b.def.Parameters[name]; dup {
		b.fail(fmt.Errorf("%w: parameter %q", domain.ErrDuplicateName, name))
	}
	b.def.Parameters[name] = p
	return b
}

// State adds a top-level Markov state.
func (b *Builder) State(name string) *NodeBuilder {
	return b.node(name, model.StartParent)
}

// Chance adds a chance node under parent, a state or another chance node.
func (b *Builder) Chance(name, parent string) *NodeBuilder {
	return b.node(name, parent)
}

func (b *Builder) node(name, parent string) *NodeBuilder {
	b.claim(name)
	nb := &NodeBuilder{def: model.NodeDef{Name: name, Parent: parent}}
	b.nodes = append(b.nodes, nb)
	return nb
}

// Transition adds a transition under parent into the state destination.
func (b *Builder) Transition(name, parent, destination string) *TransitionBuilder {
	b.claim(name)
	tb := &TransitionBuilder{def: model.TransitionDef{Name: name, Parent: parent, Destination: destination}}
	b.transitions = append(b.transitions, tb)
	return tb
}

func (b *Builder) claim(name string) {
	if b.index[name] {
		b.fail(fmt.Errorf("%w: %q", domain.ErrDuplicateName, name))
	}
	b.index[name] = true
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build returns the validated definition. References are resolved later by model.Build.
func (b *Builder) Build() (*model.Definition, error) {
	if b.err != nil {
		return nil, b.err
	}
	def := b.def
	def.Nodes = make([]model.NodeDef, len(b.nodes))
	for i, nb := range b.nodes {
		def.Nodes[i] = nb.def
	}
	def.Transitions = make([]model.TransitionDef, len(b.transitions))
	for i, tb := range b.transitions {
		def.Transitions[i] = tb.def
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
