package dsl

import "github.com/aretw0/cohort/pkg/model"

// NodeBuilder provides a fluent API for configuring a state or a chance node.
type NodeBuilder struct {
	def model.NodeDef
}

// Probability sets the node probability: a number, a numeric string or a
// parameter name. Unset probabilities default to 1.
func (n *NodeBuilder) Probability(p any) *NodeBuilder {
	n.def.Probability = p
	return n
}

// Complement makes the node take what its siblings leave.
func (n *NodeBuilder) Complement() *NodeBuilder {
	n.def.Probability = model.ComplementKeyword
	return n
}

// Var sets a variable to a number or a parameter name.
func (n *NodeBuilder) Var(name string, v any) *NodeBuilder {
	if n.def.Variables == nil {
		n.def.Variables = make(map[string]any)
	}
	n.def.Variables[name] = v
	return n
}

// TransitionBuilder provides a fluent API for configuring a transition.
type TransitionBuilder struct {
	def model.TransitionDef
}

// Probability sets the transition probability.
func (t *TransitionBuilder) Probability(p any) *TransitionBuilder {
	t.def.Probability = p
	return t
}

// Complement makes the transition take what its siblings leave.
func (t *TransitionBuilder) Complement() *TransitionBuilder {
	t.def.Probability = model.ComplementKeyword
	return t
}

// Var sets a variable to a number or a parameter name.
func (t *TransitionBuilder) Var(name string, v any) *TransitionBuilder {
	if t.def.Variables == nil {
		t.def.Variables = make(map[string]any)
	}
	t.def.Variables[name] = v
	return t
}
