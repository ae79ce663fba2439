package domain

import "fmt"

// StateTransition moves mass into a destination state.
// The destination is only referenced; the controller owns every state.
type StateTransition struct {
	node

	destination *MarkovState

	// history holds 0 followed by the mass moved at each cycle.
	history []float64
}

// NewStateTransition creates a transition into destination taken with probability p.
func NewStateTransition(name string, p Probability, destination *MarkovState, vars Variables) *StateTransition {
	return &StateTransition{node: newNode(name, p, vars), destination: destination}
}

// Destination is the state receiving the transition mass.
func (t *StateTransition) Destination() *MarkovState { return t.destination }

// History returns a copy of the per-cycle history.
func (t *StateTransition) History() []float64 {
	return append([]float64(nil), t.history...)
}

// Reset implements Node.
func (t *StateTransition) Reset() { t.history = nil }

// AttachController implements Node. The destination is not touched.
func (t *StateTransition) AttachController(m Mediator) { t.mediator = m }

// Lookup implements Node. Only the transition itself can match.
func (t *StateTransition) Lookup(name string) Node {
	if t.name == name {
		return t
	}
	return nil
}

// InitializeProbabilities implements Node.
func (t *StateTransition) InitializeProbabilities(seed *uint64) error { return t.sampleOwn(seed) }

// Verify implements Node.
func (t *StateTransition) Verify() error {
	if t.destination == nil {
		return fmt.Errorf("transition %q: %w", t.name, ErrTransitionTarget)
	}
	return nil
}

// Forward records the mass moved this cycle and reports it against the destination.
// Reported variables are, for every key of vars or of the transition,
// vars[k] + own[k] + destination[k].
func (t *StateTransition) Forward(cycle int, mass float64, vars Variables) error {
	if t.destination == nil {
		return fmt.Errorf("transition %q: %w", t.name, ErrTransitionTarget)
	}
	p, err := t.prob.Value(cycle)
	if err != nil {
		return wrapNode(t.name, err)
	}
	if cycle == 0 || len(t.history) == 0 {
		t.history = []float64{0}
	}
	t.history = append(t.history, mass*p)

	out := vars.Merge(t.vars)
	dest := t.destination.Variables()
	for k := range out {
		out[k] += dest[k]
	}

	n := len(t.history)
	return t.notify(TransitionReport{
		Transition:  t.name,
		Destination: t.destination.Name(),
		Window:      [2]float64{t.history[n-2], t.history[n-1]},
		Variables:   out,
	})
}
