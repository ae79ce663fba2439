package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aretw0/cohort/internal/logging"
	"github.com/aretw0/cohort/pkg/domain"
)

// Controller owns the top-level states of a model and drives the simulation.
// Every report produced by the tree goes through Deliver; nodes never talk to each other.
// A Controller is not safe for concurrent use.
type Controller struct {
	settings domain.Settings
	hooks    domain.LifecycleHooks
	logger   *slog.Logger

	states []*domain.MarkovState
	byName map[string]*domain.MarkovState

	// Per-run state.
	time     int
	nextMass map[string]float64
	incoming map[string][]float64
	probs    accumulator
	vars     accumulator
	probOut  series
	varsOut  series
}

// NewController creates a controller with no states.
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		settings: domain.DefaultSettings(),
		logger:   logging.NewNop(),
		byName:   make(map[string]*domain.MarkovState),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reset()
	return c
}

// Settings returns the run settings.
func (c *Controller) Settings() domain.Settings { return c.settings }

// SetSettings replaces the run settings.
func (c *Controller) SetSettings(s domain.Settings) { c.settings = s }

// AddState registers a top-level state and attaches this controller to its subtree.
func (c *Controller) AddState(s *domain.MarkovState) error {
	if s == nil {
		return fmt.Errorf("%w: nil state", domain.ErrInvalidChild)
	}
	if _, ok := c.byName[s.Name()]; ok {
		return fmt.Errorf("%w: state %q", domain.ErrDuplicateName, s.Name())
	}
	c.states = append(c.states, s)
	c.byName[s.Name()] = s
	s.AttachController(c)
	return nil
}

// Attach accepts any node but only MarkovStates can live under the controller.
func (c *Controller) Attach(n domain.Node) error {
	s, ok := n.(*domain.MarkovState)
	if !ok {
		return fmt.Errorf("%w: controller only accepts states, got %T", domain.ErrInvalidChild, n)
	}
	return c.AddState(s)
}

// States returns the top-level states in declaration order.
func (c *Controller) States() []*domain.MarkovState {
	return append([]*domain.MarkovState(nil), c.states...)
}

// Lookup finds a node anywhere in the model.
func (c *Controller) Lookup(name string) domain.Node {
	for _, s := range c.states {
		if n := s.Lookup(name); n != nil {
			return n
		}
	}
	return nil
}

// NumSiblings implements domain.SiblingGroup over the states.
func (c *Controller) NumSiblings() int { return len(c.states) }

// SiblingProbability implements domain.SiblingGroup over the initial probabilities.
func (c *Controller) SiblingProbability(i int) domain.Probability { return c.states[i].Probability() }

// InitializeProbabilities samples every probability when seed is non-nil and binds complements.
func (c *Controller) InitializeProbabilities(seed *uint64) error {
	for _, s := range c.states {
		if err := s.InitializeProbabilities(seed); err != nil {
			return err
		}
	}
	return domain.BindComplements(c, "controller")
}

// Verify checks the whole model before a run.
func (c *Controller) Verify() error {
	if err := c.settings.Validate(); err != nil {
		return err
	}
	if len(c.states) == 0 {
		return fmt.Errorf("%w: model has no states", domain.ErrProbabilitySum)
	}
	if err := domain.VerifyGroup(c, "controller"); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, s := range c.states {
		err := domain.Walk(s, func(n domain.Node) error {
			if seen[n.Name()] {
				return fmt.Errorf("%w: %q", domain.ErrDuplicateName, n.Name())
			}
			seen[n.Name()] = true

			if tv, ok := n.Probability().(*domain.TimeVaryingProbability); ok && tv.Len() < c.settings.Cycles {
				return fmt.Errorf("node %q covers %d cycles, run has %d: %w",
					n.Name(), tv.Len(), c.settings.Cycles, domain.ErrCycleOutOfRange)
			}
			if t, ok := n.(*domain.StateTransition); ok && t.Destination() != nil {
				if c.byName[t.Destination().Name()] != t.Destination() {
					return fmt.Errorf("transition %q: %w: destination %q is not a model state",
						n.Name(), domain.ErrUnknownNode, t.Destination().Name())
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		if err := s.Verify(); err != nil {
			return err
		}
	}
	return nil
}

// Run simulates settings.Cycles cycles and returns the output tables.
// The context is checked between cycles; a cancelled run returns no result.
func (c *Controller) Run(ctx context.Context) (*domain.Result, error) {
	if err := c.settings.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()
	if c.hooks.OnRunStart != nil {
		c.hooks.OnRunStart(ctx, &domain.RunEvent{
			EventBase: domain.EventBase{Timestamp: started, Type: domain.EventRunStart},
			Settings:  c.settings,
			States:    len(c.states),
		})
	}
	c.logger.DebugContext(ctx, "run started", "cycles", c.settings.Cycles,
		"count_method", c.settings.CountMethod, "discount_rate", c.settings.DiscountRate)

	res, err := c.run(ctx)

	if c.hooks.OnRunEnd != nil {
		c.hooks.OnRunEnd(ctx, &domain.RunEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRunEnd},
			Settings:  c.settings,
			States:    len(c.states),
			Duration:  time.Since(started),
			Err:       err,
		})
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "run failed", "cycle", c.time, "error", err)
		return nil, err
	}
	c.logger.DebugContext(ctx, "run finished", "cycles", c.settings.Cycles, "duration", time.Since(started))
	return res, nil
}

func (c *Controller) run(ctx context.Context) (*domain.Result, error) {
	c.reset()
	for _, s := range c.states {
		s.Reset()
		p, err := s.InitialProbability()
		if err != nil {
			return nil, err
		}
		c.nextMass[s.Name()] = p
	}

	for cycle := 0; cycle < c.settings.Cycles; cycle++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.startCycle(ctx); err != nil {
			return nil, fmt.Errorf("cycle %d: %w", c.time, err)
		}
		c.endCycle(ctx)
	}

	return &domain.Result{
		Probabilities: c.probOut.table(),
		Variables:     c.varsOut.table(),
	}, nil
}

// Deliver implements domain.Mediator.
func (c *Controller) Deliver(r domain.Report) error {
	var (
		key    string
		window [2]float64
		vars   domain.Variables
	)
	switch rep := r.(type) {
	case domain.StateReport:
		key, window, vars = rep.State, rep.Window, rep.Variables
	case domain.TransitionReport:
		if _, ok := c.byName[rep.Destination]; !ok {
			return fmt.Errorf("%w: destination %q of %q", domain.ErrUnknownNode, rep.Destination, rep.Transition)
		}
		key, window, vars = rep.Destination, rep.Window, rep.Variables
		c.incoming[key] = append(c.incoming[key], window[1])
	default:
		return nil
	}

	selected := c.settings.CountMethod.Select(window)
	c.probs.add(key, selected)

	discount := math.Pow(1+c.settings.DiscountRate, float64(c.time))
	for _, k := range vars.Keys() {
		c.vars.add(k, vars[k]*selected/discount)
	}
	return nil
}

func (c *Controller) startCycle(ctx context.Context) error {
	masses := c.nextMass
	c.nextMass = make(map[string]float64, len(c.states))

	if c.hooks.OnCycleStart != nil {
		total := 0.0
		for _, m := range masses {
			total += m
		}
		c.hooks.OnCycleStart(ctx, &domain.CycleEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventCycleStart},
			Cycle:     c.time,
			Mass:      total,
		})
	}

	for _, s := range c.states {
		if err := s.Start(c.time, masses[s.Name()]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) endCycle(ctx context.Context) {
	for name, contributions := range c.incoming {
		c.nextMass[name] = sum(contributions)
	}
	c.incoming = make(map[string][]float64, len(c.states))

	order, probs := c.probs.drain()
	c.probOut.push(order, probs)
	order, vars := c.vars.drain()
	c.varsOut.push(order, vars)

	counted := 0.0
	for _, p := range probs {
		counted += p
	}
	c.logger.DebugContext(ctx, "cycle finished", "cycle", c.time, "mass", counted)
	if c.hooks.OnCycleEnd != nil {
		c.hooks.OnCycleEnd(ctx, &domain.CycleEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventCycleEnd},
			Cycle:     c.time,
			Mass:      counted,
		})
	}
	c.time++
}

func (c *Controller) reset() {
	c.time = 0
	c.nextMass = make(map[string]float64, len(c.states))
	c.incoming = make(map[string][]float64, len(c.states))
	c.probs = newAccumulator()
	c.vars = newAccumulator()
	c.probOut = newSeries()
	c.varsOut = newSeries()
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}
