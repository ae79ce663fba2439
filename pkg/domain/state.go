package domain

import "fmt"

// MarkovState is a state the cohort can occupy.
// The initial probability is the share of the cohort placed in the state before
// the first cycle. It is kept apart from the mass injected each cycle, so a state
// can be run any number of times.
type MarkovState struct {
	node

	// mass is the occupancy injected by the controller for the current cycle.
	mass float64

	// history holds the start-of-run mass followed by one zero per started cycle.
	// The report window of cycle t is history[t:t+2].
	history []float64
}

// NewMarkovState creates a state with the given initial probability.
func NewMarkovState(name string, initial Probability, vars Variables) *MarkovState {
	return &MarkovState{node: newNode(name, initial, vars)}
}

// InitialProbability is the state's share of the cohort at cycle 0.
func (s *MarkovState) InitialProbability() (float64, error) {
	v, err := s.prob.Value(0)
	if err != nil {
		return 0, wrapNode(s.name, err)
	}
	return v, nil
}

// Mass is the mass injected at the last Start.
func (s *MarkovState) Mass() float64 { return s.mass }

// History returns a copy of the per-cycle history.
func (s *MarkovState) History() []float64 {
	return append([]float64(nil), s.history...)
}

// AddChild appends child and hands it the current controller, if any.
func (s *MarkovState) AddChild(child Branch) error { return s.addChild(child) }

// Reset implements Node.
func (s *MarkovState) Reset() {
	s.mass = 0
	s.history = nil
	s.resetChildren()
}

// AttachController implements Node.
func (s *MarkovState) AttachController(m Mediator) { s.attach(m) }

// Lookup implements Node.
func (s *MarkovState) Lookup(name string) Node { return s.lookup(s, name) }

// InitializeProbabilities implements Node.
func (s *MarkovState) InitializeProbabilities(seed *uint64) error { return s.initialize(seed) }

// Verify implements Node.
func (s *MarkovState) Verify() error { return s.verify() }

// Start begins a cycle with the given occupied mass. The state reports its own
// window and variables, then forwards the mass into each child with its
// variable keys set to zero.
func (s *MarkovState) Start(cycle int, mass float64) error {
	if cycle < 0 {
		return fmt.Errorf("state %q: %w: cycle %d", s.name, ErrCycleOutOfRange, cycle)
	}
	if cycle == 0 || len(s.history) == 0 {
		s.history = []float64{mass}
	}
	s.history = append(s.history, 0)
	s.mass = mass

	n := len(s.history)
	err := s.notify(StateReport{
		State:     s.name,
		Window:    [2]float64{s.history[n-2], s.history[n-1]},
		Variables: s.vars.Clone(),
	})
	if err != nil {
		return err
	}
	return s.Forward(cycle)
}

// Forward passes the injected mass into every child.
func (s *MarkovState) Forward(cycle int) error {
	zero := s.vars.Zeroed()
	for _, child := range s.children {
		if err := child.Forward(cycle, s.mass, zero); err != nil {
			return err
		}
	}
	return nil
}

func wrapNode(name string, err error) error {
	return fmt.Errorf("node %q: %w", name, err)
}
