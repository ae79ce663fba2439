package domain

import "errors"

// Model configuration errors. They are detected while building or verifying a tree,
// before any cycle runs.
var (
	// ErrInvalidChild is returned when a node is attached under a parent that cannot own it.
	ErrInvalidChild = errors.New("invalid child")

	// ErrProbabilitySum is returned when the children of a node do not sum to one.
	ErrProbabilitySum = errors.New("probabilities do not sum to 1")

	// ErrTransitionTarget is returned when a transition has no destination state.
	ErrTransitionTarget = errors.New("transition has no destination state")

	// ErrComplementUnbound is returned when a complement is read before it knows its siblings.
	ErrComplementUnbound = errors.New("complement probability not bound to a sibling group")

	// ErrUnknownNode is returned when a name does not resolve to a node.
	ErrUnknownNode = errors.New("unknown node")

	// ErrDuplicateName is returned when two nodes of one model share a name.
	ErrDuplicateName = errors.New("duplicate node name")

	// ErrMultipleComplements is returned when a sibling group holds more than one complement.
	ErrMultipleComplements = errors.New("more than one complement in sibling group")

	// ErrCycleOutOfRange is returned when a time-varying probability is read past its last value.
	ErrCycleOutOfRange = errors.New("cycle out of range")

	// ErrInvalidDistribution is returned for unknown distributions or invalid parameters.
	ErrInvalidDistribution = errors.New("invalid distribution")

	// ErrInvalidCountMethod is returned for a count method other than start, end or half.
	ErrInvalidCountMethod = errors.New("invalid count method")

	// ErrInvalidSettings is returned for a negative horizon or a discount rate <= -1.
	ErrInvalidSettings = errors.New("invalid simulation settings")
)

// ErrNoController is returned when a node reports before it was attached to a controller.
var ErrNoController = errors.New("node is not attached to a controller")

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")
