package model

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/aretw0/cohort"
	"github.com/aretw0/cohort/pkg/domain"
)

// BuildOption configures Build.
type BuildOption func(*buildConfig)

type buildConfig struct {
	seed    *uint64
	options []cohort.Option
}

// WithSeed samples every parameter before resolving variables. Each parameter
// draws from its own stream, derived from seed and the parameter name.
func WithSeed(seed uint64) BuildOption {
	return func(c *buildConfig) {
		c.seed = &seed
	}
}

// WithEngineOptions passes options to cohort.New. They are applied after the
// definition settings, so they override them.
func WithEngineOptions(opts ...cohort.Option) BuildOption {
	return func(c *buildConfig) {
		c.options = append(c.options, opts...)
	}
}

// Build constructs a fresh model tree from def and returns an initialized and
// verified engine. def is not modified and can be built again.
func Build(def *Definition, opts ...BuildOption) (*cohort.Engine, error) {
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	params, err := newParameterSet(def.Parameters)
	if err != nil {
		return nil, err
	}
	if cfg.seed != nil {
		if err := params.sample(*cfg.seed); err != nil {
			return nil, err
		}
	}

	engineOpts := append([]cohort.Option{
		cohort.WithSettings(def.Settings),
		cohort.WithName(def.Name),
	}, cfg.options...)
	eng := cohort.New(engineOpts...)

	parents := make(map[string]domain.Node, len(def.Nodes)+len(def.Transitions))
	states := make(map[string]*domain.MarkovState)
	nodes := make([]domain.Node, len(def.Nodes))

	for i, nd := range def.Nodes {
		if _, dup := parents[nd.Name]; dup {
			return nil, fmt.Errorf("%w: %q", domain.ErrDuplicateName, nd.Name)
		}
		p, err := params.probability(nd.Probability)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nd.Name, err)
		}
		vars, err := params.variables(nd.Variables)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nd.Name, err)
		}

		if nd.Parent == StartParent {
			s := domain.NewMarkovState(nd.Name, p, vars)
			states[nd.Name] = s
			nodes[i] = s
		} else {
			nodes[i] = domain.NewChanceNode(nd.Name, p, vars)
		}
		parents[nd.Name] = nodes[i]
	}

	for i, nd := range def.Nodes {
		if nd.Parent == StartParent {
			if err := eng.Attach(nodes[i]); err != nil {
				return nil, err
			}
			continue
		}
		parent, ok := parents[nd.Parent]
		if !ok {
			return nil, fmt.Errorf("node %q: %w: parent %q", nd.Name, ErrUnknownReference, nd.Parent)
		}
		if err := domain.Attach(parent, nodes[i]); err != nil {
			return nil, fmt.Errorf("node %q: %w", nd.Name, err)
		}
	}

	for _, td := range def.Transitions {
		if _, dup := parents[td.Name]; dup {
			return nil, fmt.Errorf("%w: %q", domain.ErrDuplicateName, td.Name)
		}
		dest, ok := states[td.Destination]
		if !ok {
			if _, isNode := parents[td.Destination]; isNode {
				return nil, fmt.Errorf("transition %q: %w: %q is not a state", td.Name, domain.ErrTransitionTarget, td.Destination)
			}
			return nil, fmt.Errorf("transition %q: %w: destination %q", td.Name, ErrUnknownReference, td.Destination)
		}
		parent, ok := parents[td.Parent]
		if !ok {
			return nil, fmt.Errorf("transition %q: %w: parent %q", td.Name, ErrUnknownReference, td.Parent)
		}
		p, err := params.probability(td.Probability)
		if err != nil {
			return nil, fmt.Errorf("transition %q: %w", td.Name, err)
		}
		vars, err := params.variables(td.Variables)
		if err != nil {
			return nil, fmt.Errorf("transition %q: %w", td.Name, err)
		}

		t := domain.NewStateTransition(td.Name, p, dest, vars)
		if err := domain.Attach(parent, t); err != nil {
			return nil, fmt.Errorf("transition %q: %w", td.Name, err)
		}
		parents[td.Name] = t
	}

	// Parameters are already sampled; this only binds complements.
	if err := eng.InitializeProbabilities(nil); err != nil {
		return nil, err
	}
	if err := eng.Verify(); err != nil {
		return nil, err
	}
	return eng, nil
}

// parameterSet holds the instantiated parameters of one build.
type parameterSet struct {
	values      map[string]domain.Probability
	complements map[string]bool
	// inline holds the literal elements of time-varying parameters, by cycle.
	// Elements that name another parameter are sampled with that parameter.
	inline map[string]map[int]*domain.RangedProbability
}

func newParameterSet(defs map[string]Parameter) (*parameterSet, error) {
	ps := &parameterSet{
		values:      make(map[string]domain.Probability, len(defs)),
		complements: make(map[string]bool),
		inline:      make(map[string]map[int]*domain.RangedProbability),
	}

	// Scalars first: time-varying parameters may refer to them by name.
	var timeVarying []string
	for name, def := range defs {
		typ, err := ParseParameterType(string(def.Type))
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		switch typ {
		case ParamComplement:
			ps.complements[name] = true
		case ParamTimeVarying:
			timeVarying = append(timeVarying, name)
		default:
			p, err := rangedFromParameter(def.Value, def.Params, def.Distribution)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", name, err)
			}
			ps.values[name] = p
		}
	}

	for _, name := range timeVarying {
		def := defs[name]
		elems := make([]*domain.RangedProbability, 0, len(def.Values))
		inline := make(map[int]*domain.RangedProbability)
		for i, v := range def.Values {
			elem, err := ps.timeVaryingElement(v)
			if err != nil {
				return nil, fmt.Errorf("parameter %q, cycle %d: %w", name, i, err)
			}
			if _, named := v.(string); !named {
				inline[i] = elem
			}
			elems = append(elems, elem)
		}
		ps.inline[name] = inline
		ps.values[name] = domain.NewTimeVarying(elems...)
	}
	return ps, nil
}

func (ps *parameterSet) timeVaryingElement(v any) (*domain.RangedProbability, error) {
	switch e := v.(type) {
	case string:
		p, ok := ps.values[e].(*domain.RangedProbability)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a constant or range parameter", ErrUnknownReference, e)
		}
		return p, nil
	case []any:
		if len(e) == 0 || len(e) > 4 {
			return nil, fmt.Errorf("%w: expected 1 to 4 values, got %d", ErrInvalidDefinition, len(e))
		}
		nums := make([]float64, 0, 3)
		dist := ""
		for i, c := range e {
			if s, ok := c.(string); ok && i > 0 && i == len(e)-1 {
				if _, err := strconv.ParseFloat(s, 64); err != nil {
					dist = s
					break
				}
			}
			f, err := toFloat(c)
			if err != nil {
				return nil, err
			}
			nums = append(nums, f)
		}
		if len(nums) > 3 {
			return nil, fmt.Errorf("%w: too many numbers in %v", ErrInvalidDefinition, e)
		}
		return rangedFromParameter(nums[0], nums[1:], dist)
	default:
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		return domain.Constant(f), nil
	}
}

// sample draws every range parameter and every literal time-varying element
// from a stream of its own, so no two inputs share a draw.
func (ps *parameterSet) sample(seed uint64) error {
	for name, p := range ps.values {
		if _, ok := p.(*domain.TimeVaryingProbability); ok {
			for i, elem := range ps.inline[name] {
				if err := elem.Sample(deriveSeed(seed, fmt.Sprintf("%s[%d]", name, i))); err != nil {
					return fmt.Errorf("parameter %q, cycle %d: %w", name, i, err)
				}
			}
			continue
		}
		if s, ok := p.(domain.Sampler); ok {
			if err := s.Sample(deriveSeed(seed, name)); err != nil {
				return fmt.Errorf("parameter %q: %w", name, err)
			}
		}
	}
	return nil
}

// deriveSeed mixes seed with the FNV-1a hash of name through the splitmix64
// finalizer. Equal inputs give equal seeds across builds and processes.
func deriveSeed(seed uint64, name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	z := seed ^ h.Sum64()
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// probability resolves a probability cell. A missing value means 1.
func (ps *parameterSet) probability(raw any) (domain.Probability, error) {
	if raw == nil {
		return domain.Constant(1), nil
	}
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if strings.EqualFold(s, ComplementKeyword) || ps.complements[s] {
			return domain.NewComplement(), nil
		}
		if p, ok := ps.values[s]; ok {
			return p, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return domain.Constant(f), nil
		}
		return nil, fmt.Errorf("%w: parameter %q", ErrUnknownReference, s)
	}
	f, err := toFloat(raw)
	if err != nil {
		return nil, err
	}
	return domain.Constant(f), nil
}

// variables resolves numbers and parameter names to their current values.
func (ps *parameterSet) variables(raw map[string]any) (domain.Variables, error) {
	out := make(domain.Variables, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if p, ok := ps.values[s]; ok {
				f, err := domain.Scalar(p)
				if err != nil {
					return nil, fmt.Errorf("variable %q: %w", k, err)
				}
				out[k] = f
				continue
			}
			if ps.complements[s] {
				return nil, fmt.Errorf("variable %q: %w: complement %q has no value here", k, ErrInvalidDefinition, s)
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("variable %q: %w: parameter %q", k, ErrUnknownReference, s)
			}
			out[k] = f
			continue
		}
		f, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

func rangedFromParameter(value float64, params []float64, dist string) (*domain.RangedProbability, error) {
	d, err := domain.ParseDistribution(dist)
	if err != nil {
		return nil, err
	}
	p1, p2 := value, value
	if len(params) > 0 {
		p1 = params[0]
	}
	if len(params) > 1 {
		p2 = params[1]
	}
	if len(params) > 2 {
		return nil, fmt.Errorf("%w: at most two distribution parameters, got %d", ErrInvalidDefinition, len(params))
	}
	return domain.NewRanged(value, p1, p2, d)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidDefinition, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: unexpected value %v (%T)", ErrInvalidDefinition, v, v)
	}
}
