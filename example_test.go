package cohort_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/cohort"
	"github.com/aretw0/cohort/pkg/domain"
)

// ExampleNew builds a two-state model and prints the discounted cost of each cycle.
func ExampleNew() {
	healthy := domain.NewMarkovState("healthy", domain.Constant(1), domain.Variables{"cost": 100})
	dead := domain.NewMarkovState("dead", domain.Constant(0), nil)

	if err := healthy.AddChild(domain.NewStateTransition("die", domain.Constant(0.5), dead, nil)); err != nil {
		log.Fatal(err)
	}
	if err := healthy.AddChild(domain.NewStateTransition("stay", domain.NewComplement(), healthy, nil)); err != nil {
		log.Fatal(err)
	}
	if err := dead.AddChild(domain.NewStateTransition("remain", domain.Constant(1), dead, nil)); err != nil {
		log.Fatal(err)
	}

	eng := cohort.New(cohort.WithCycles(3), cohort.WithCountMethod(domain.CountStart))
	_ = eng.AddState(healthy)
	_ = eng.AddState(dead)

	if err := eng.InitializeProbabilities(nil); err != nil {
		log.Fatal(err)
	}
	if err := eng.Verify(); err != nil {
		log.Fatal(err)
	}

	res, err := eng.Run(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	cost, _ := res.Variables.Column("cost")
	for i, c := range cost {
		fmt.Printf("cycle %d: %.2f\n", i, c)
	}
	// Output:
	// cycle 0: 100.00
	// cycle 1: 50.00
	// cycle 2: 25.00
}
