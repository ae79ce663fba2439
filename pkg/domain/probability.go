package domain

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// CurrentCycle asks a Probability for its value at the last requested cycle.
// Cycle-invariant sources ignore the argument entirely.
const CurrentCycle = -1

// Distribution names the family a RangedProbability is drawn from.
type Distribution string

const (
	// Uniform draws from [Param1, Param2).
	Uniform Distribution = "uniform"
	// Beta draws with shape parameters a = Param1, b = Param2.
	Beta Distribution = "beta"
	// Binomial draws a success count with n = Param1 trials and success probability p = Param2.
	Binomial Distribution = "binomial"
	// Gamma draws with shape = Param1 and scale = Param2.
	Gamma Distribution = "gamma"
	// Normal draws with mean = Param1 and standard deviation = Param2.
	Normal Distribution = "normal"
	// LogNormal draws with log-mean = Param1 and log-standard-deviation = Param2.
	LogNormal Distribution = "lognormal"
)

// ParseDistribution validates a distribution name. The empty string means Uniform.
func ParseDistribution(s string) (Distribution, error) {
	switch d := Distribution(s); d {
	case "":
		return Uniform, nil
	case Uniform, Beta, Binomial, Gamma, Normal, LogNormal:
		return d, nil
	default:
		return "", fmt.Errorf("%w: unknown distribution %q", ErrInvalidDistribution, s)
	}
}

// Probability is a value source for a node's transition or initial probability.
type Probability interface {
	// Value returns the probability at the given cycle (or CurrentCycle).
	Value(cycle int) (float64, error)
}

// Sampler is implemented by probabilities that can be redrawn from a distribution.
type Sampler interface {
	// Sample replaces the current value with a draw seeded by seed.
	Sample(seed uint64) error
}

// Scalar reads p at its current cursor, the equivalent of using the probability
// as a plain number.
func Scalar(p Probability) (float64, error) {
	return p.Value(CurrentCycle)
}

// --- Ranged ---

// RangedProbability is a scalar probability with an optional sampling distribution.
// With both parameters equal to the value and a Uniform distribution it behaves as a
// constant, even when sampled.
type RangedProbability struct {
	value        float64
	Param1       float64
	Param2       float64
	Distribution Distribution
}

// Constant returns a probability that keeps v under sampling.
func Constant(v float64) *RangedProbability {
	return &RangedProbability{value: v, Param1: v, Param2: v, Distribution: Uniform}
}

// NewRanged returns a probability with base value v that is resampled from dist
// with the two distribution parameters.
func NewRanged(v, param1, param2 float64, dist Distribution) (*RangedProbability, error) {
	p := &RangedProbability{value: v, Param1: param1, Param2: param2, Distribution: dist}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Value implements Probability. The cycle is ignored.
func (p *RangedProbability) Value(int) (float64, error) {
	return p.value, nil
}

// Set overrides the current value without touching the distribution.
func (p *RangedProbability) Set(v float64) {
	p.value = v
}

// Sample implements Sampler.
func (p *RangedProbability) Sample(seed uint64) error {
	if err := p.validate(); err != nil {
		return err
	}
	src := rand.NewPCG(seed, seed)
	a, b := p.Param1, p.Param2

	switch p.Distribution {
	case Uniform, "":
		p.value = distuv.Uniform{Min: a, Max: b, Src: src}.Rand()
	case Beta:
		p.value = distuv.Beta{Alpha: a, Beta: b, Src: src}.Rand()
	case Binomial:
		p.value = distuv.Binomial{N: a, P: b, Src: src}.Rand()
	case Gamma:
		// distuv parameterises gamma by rate.
		p.value = distuv.Gamma{Alpha: a, Beta: 1 / b, Src: src}.Rand()
	case Normal:
		p.value = distuv.Normal{Mu: a, Sigma: b, Src: src}.Rand()
	case LogNormal:
		p.value = distuv.LogNormal{Mu: a, Sigma: b, Src: src}.Rand()
	}
	return nil
}

func (p *RangedProbability) validate() error {
	a, b := p.Param1, p.Param2
	switch p.Distribution {
	case Uniform, "":
		return nil
	case Beta:
		if a <= 0 || b <= 0 {
			return fmt.Errorf("%w: beta needs a > 0 and b > 0, got (%g, %g)", ErrInvalidDistribution, a, b)
		}
	case Binomial:
		if a < 0 || a != math.Trunc(a) || b < 0 || b > 1 {
			return fmt.Errorf("%w: binomial needs a whole n >= 0 and p in [0, 1], got (%g, %g)", ErrInvalidDistribution, a, b)
		}
	case Gamma:
		if a <= 0 || b <= 0 {
			return fmt.Errorf("%w: gamma needs shape > 0 and scale > 0, got (%g, %g)", ErrInvalidDistribution, a, b)
		}
	case Normal, LogNormal:
		if b < 0 {
			return fmt.Errorf("%w: %s needs a non-negative spread, got %g", ErrInvalidDistribution, p.Distribution, b)
		}
	default:
		return fmt.Errorf("%w: unknown distribution %q", ErrInvalidDistribution, p.Distribution)
	}
	return nil
}

func (p *RangedProbability) String() string {
	return fmt.Sprintf("%g", p.value)
}

// --- Time-varying ---

// TimeVaryingProbability holds one ranged source per cycle.
type TimeVaryingProbability struct {
	values []*RangedProbability
	cursor int
}

// NewTimeVarying returns a probability whose value at cycle t is values[t].
func NewTimeVarying(values ...*RangedProbability) *TimeVaryingProbability {
	return &TimeVaryingProbability{values: values}
}

// Value implements Probability. A non-negative cycle moves the cursor.
func (p *TimeVaryingProbability) Value(cycle int) (float64, error) {
	if cycle >= 0 {
		p.cursor = cycle
	}
	if p.cursor >= len(p.values) {
		return 0, fmt.Errorf("%w: cycle %d, %d values defined", ErrCycleOutOfRange, p.cursor, len(p.values))
	}
	return p.values[p.cursor].Value(CurrentCycle)
}

// Len is the number of cycles covered.
func (p *TimeVaryingProbability) Len() int {
	return len(p.values)
}

// Sample implements Sampler by sampling every element with the same seed.
func (p *TimeVaryingProbability) Sample(seed uint64) error {
	for i, v := range p.values {
		if err := v.Sample(seed); err != nil {
			return fmt.Errorf("cycle %d: %w", i, err)
		}
	}
	return nil
}

func (p *TimeVaryingProbability) String() string {
	if p.cursor < len(p.values) {
		return fmt.Sprintf("%g@%d", p.values[p.cursor].value, p.cursor)
	}
	return fmt.Sprintf("time-varying(%d)", len(p.values))
}

// --- Complement ---

// SiblingGroup exposes the probabilities of a parent's children by position.
type SiblingGroup interface {
	NumSiblings() int
	SiblingProbability(i int) Probability
}

// ComplementProbability evaluates to one minus the sum of its siblings.
// It refers to its siblings through the owning group and its own position,
// never by holding them.
type ComplementProbability struct {
	group SiblingGroup
	self  int
}

// NewComplement returns an unbound complement.
func NewComplement() *ComplementProbability {
	return &ComplementProbability{self: -1}
}

// SetOtherProbabilities binds the complement to group, where it sits at index self.
// Binding again to the same slot is allowed; moving it to another group is not.
func (c *ComplementProbability) SetOtherProbabilities(group SiblingGroup, self int) error {
	if group == nil || self < 0 || self >= group.NumSiblings() {
		return fmt.Errorf("%w: invalid sibling slot %d", ErrComplementUnbound, self)
	}
	if c.group != nil && (c.group != group || c.self != self) {
		return fmt.Errorf("%w: complement already bound to another group", ErrMultipleComplements)
	}
	c.group = group
	c.self = self
	return nil
}

// Bound reports whether the sibling group is known.
func (c *ComplementProbability) Bound() bool {
	return c.group != nil
}

// Value implements Probability.
func (c *ComplementProbability) Value(cycle int) (float64, error) {
	if c.group == nil {
		return 0, ErrComplementUnbound
	}
	sum := 0.0
	for i := 0; i < c.group.NumSiblings(); i++ {
		if i == c.self {
			continue
		}
		v, err := c.group.SiblingProbability(i).Value(cycle)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return 1 - sum, nil
}

// Sample is a no-op: a complement is derived, never drawn.
func (c *ComplementProbability) Sample(uint64) error {
	return nil
}

func (c *ComplementProbability) String() string {
	if c.group == nil {
		return "complement"
	}
	v, err := c.Value(CurrentCycle)
	if err != nil {
		return "complement"
	}
	return fmt.Sprintf("%g", v)
}
