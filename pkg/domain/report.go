package domain

// Report is a message from a node to its controller.
// The set of reports is closed: StateReport and TransitionReport.
type Report interface {
	report()
}

// StateReport is sent by a state when a cycle starts.
type StateReport struct {
	State     string
	Window    [2]float64
	Variables Variables
}

// TransitionReport is sent by a transition after moving mass.
// Window[1] is the mass entering Destination at the next cycle.
type TransitionReport struct {
	Transition  string
	Destination string
	Window      [2]float64
	Variables   Variables
}

func (StateReport) report()      {}
func (TransitionReport) report() {}
