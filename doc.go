/*
Package cohort is a cohort Markov simulation engine for decision-analytic
health-economic evaluation.

A population is spread over mutually exclusive states. Each cycle, mass moves
along transitions whose probabilities may be constant, sampled from a
distribution, time-varying, or the complement of their siblings. Quantities
attached to nodes (cost, utility, ...) are weighted by the counted occupancy
and discounted.

# Concept

A model is a tree. MarkovStates sit under the engine; ChanceNodes split mass;
StateTransitions move it into a destination state. Nodes never talk to each
other: every state and transition reports to the engine's controller, which
aggregates one row per cycle.

# Usage

	a := domain.NewMarkovState("healthy", domain.Constant(1), domain.Variables{"cost": 50})
	b := domain.NewMarkovState("dead", domain.Constant(0), nil)
	_ = a.AddChild(domain.NewStateTransition("die", domain.Constant(0.1), b, nil))
	_ = a.AddChild(domain.NewStateTransition("stay", domain.NewComplement(), a, nil))
	_ = b.AddChild(domain.NewStateTransition("remain", domain.Constant(1), b, nil))

	eng := cohort.New(cohort.WithCycles(20), cohort.WithDiscountRate(0.03))
	_ = eng.AddState(a)
	_ = eng.AddState(b)

	if err := eng.InitializeProbabilities(nil); err != nil {
		log.Fatal(err)
	}
	if err := eng.Verify(); err != nil {
		log.Fatal(err)
	}
	res, err := eng.Run(context.Background())

Models can also be loaded from YAML, JSON or CSV with package model, and run
many times with sampled parameters with package psa.
*/
package cohort
