package domain

import (
	"fmt"
	"math"
	"sort"
)

// SumTolerance is the allowed deviation from 1 when checking that sibling
// probabilities sum to one.
const SumTolerance = 1e-9

// Variables are the named quantities (cost, utility, ...) attached to a node.
// Keys are always visited in sorted order so runs are deterministic.
type Variables map[string]float64

// Keys returns the variable names in sorted order.
func (v Variables) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of v. A nil map clones to an empty one.
func (v Variables) Clone() Variables {
	out := make(Variables, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Zeroed returns the keys of v with every value set to zero.
func (v Variables) Zeroed() Variables {
	out := make(Variables, len(v))
	for k := range v {
		out[k] = 0
	}
	return out
}

// Merge returns, for every key in v or other, v[k] + other[k].
func (v Variables) Merge(other Variables) Variables {
	out := v.Clone()
	for k, val := range other {
		out[k] += val
	}
	return out
}

// Node is an element of the simulation tree.
// The set of implementations is closed: *ChanceNode, *MarkovState and *StateTransition.
type Node interface {
	Name() string
	Probability() Probability
	Variables() Variables
	Children() []Branch

	// Reset clears per-run history in the node and its subtree.
	Reset()
	// AttachController records the mediator every report is sent to.
	AttachController(m Mediator)
	// Lookup finds the first node named name in the subtree, depth first.
	Lookup(name string) Node
	// InitializeProbabilities samples the subtree when seed is non-nil and binds complements.
	InitializeProbabilities(seed *uint64) error
	// Verify checks that every sibling group in the subtree sums to one.
	Verify() error

	sealed()
}

// Branch is a node that can hang below a state or a chance node and receive mass.
type Branch interface {
	Node
	Forward(cycle int, mass float64, vars Variables) error
}

// Mediator receives every report produced during a cycle.
type Mediator interface {
	Deliver(r Report) error
}

// node holds what all node kinds share.
type node struct {
	name     string
	prob     Probability
	vars     Variables
	children []Branch
	mediator Mediator
}

func newNode(name string, p Probability, vars Variables) node {
	if p == nil {
		p = Constant(1)
	}
	return node{name: name, prob: p, vars: vars.Clone()}
}

func (n *node) Name() string             { return n.name }
func (n *node) Probability() Probability { return n.prob }
func (n *node) Variables() Variables     { return n.vars }
func (n *node) Children() []Branch       { return n.children }
func (n *node) sealed()                  {}

// NumSiblings implements SiblingGroup over the node's children.
func (n *node) NumSiblings() int { return len(n.children) }

// SiblingProbability implements SiblingGroup over the node's children.
func (n *node) SiblingProbability(i int) Probability { return n.children[i].Probability() }

func (n *node) addChild(child Branch) error {
	if child == nil {
		return fmt.Errorf("%w: nil child under %q", ErrInvalidChild, n.name)
	}
	n.children = append(n.children, child)
	if n.mediator != nil {
		child.AttachController(n.mediator)
	}
	return nil
}

func (n *node) resetChildren() {
	for _, c := range n.children {
		c.Reset()
	}
}

func (n *node) attach(m Mediator) {
	n.mediator = m
	for _, c := range n.children {
		c.AttachController(m)
	}
}

func (n *node) lookup(self Node, name string) Node {
	if n.name == name {
		return self
	}
	for _, c := range n.children {
		if found := c.Lookup(name); found != nil {
			return found
		}
	}
	return nil
}

func (n *node) sampleOwn(seed *uint64) error {
	if seed == nil {
		return nil
	}
	if _, ok := n.prob.(*ComplementProbability); ok {
		return nil
	}
	if s, ok := n.prob.(Sampler); ok {
		if err := s.Sample(*seed); err != nil {
			return fmt.Errorf("node %q: %w", n.name, err)
		}
	}
	return nil
}

func (n *node) initialize(seed *uint64) error {
	if err := n.sampleOwn(seed); err != nil {
		return err
	}
	for _, c := range n.children {
		if err := c.InitializeProbabilities(seed); err != nil {
			return err
		}
	}
	return BindComplements(n, n.name)
}

func (n *node) verify() error {
	if err := VerifyGroup(n, n.name); err != nil {
		return err
	}
	for _, c := range n.children {
		if err := c.Verify(); err != nil {
			return err
		}
	}
	return nil
}

func (n *node) notify(r Report) error {
	if n.mediator == nil {
		return fmt.Errorf("%w: %q", ErrNoController, n.name)
	}
	return n.mediator.Deliver(r)
}

// BindComplements binds every complement held in group to its slot.
// owner names the group in errors.
func BindComplements(group SiblingGroup, owner string) error {
	for i := 0; i < group.NumSiblings(); i++ {
		c, ok := group.SiblingProbability(i).(*ComplementProbability)
		if !ok {
			continue
		}
		if err := c.SetOtherProbabilities(group, i); err != nil {
			return fmt.Errorf("children of %q: %w", owner, err)
		}
	}
	return nil
}

// VerifyGroup checks that group holds at most one complement and that its
// probabilities sum to one at cycle 0. An empty group is valid.
func VerifyGroup(group SiblingGroup, owner string) error {
	if group.NumSiblings() == 0 {
		return nil
	}
	complements := 0
	for i := 0; i < group.NumSiblings(); i++ {
		if _, ok := group.SiblingProbability(i).(*ComplementProbability); ok {
			complements++
		}
	}
	if complements > 1 {
		return fmt.Errorf("children of %q: %w", owner, ErrMultipleComplements)
	}

	sum := 0.0
	for i := 0; i < group.NumSiblings(); i++ {
		v, err := group.SiblingProbability(i).Value(0)
		if err != nil {
			return fmt.Errorf("children of %q: %w", owner, err)
		}
		sum += v
	}
	if math.Abs(sum-1) >= SumTolerance {
		return fmt.Errorf("children of %q sum to %g: %w", owner, sum, ErrProbabilitySum)
	}
	return nil
}

// Attach adds child under parent after checking, at runtime, that the pairing is allowed.
// States and chance nodes accept chance nodes and transitions; transitions accept nothing.
func Attach(parent, child Node) error {
	branch, ok := child.(Branch)
	if !ok {
		return fmt.Errorf("%w: %T cannot be a child", ErrInvalidChild, child)
	}
	switch p := parent.(type) {
	case *ChanceNode:
		return p.AddChild(branch)
	case *MarkovState:
		return p.AddChild(branch)
	default:
		return fmt.Errorf("%w: %T cannot have children", ErrInvalidChild, parent)
	}
}

// Walk visits n and its subtree depth first. Transition destinations are not followed.
func Walk(n Node, fn func(Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, c := range n.Children() {
		if err := Walk(c, fn); err != nil {
			return err
		}
	}
	return nil
}
