/*
Package dsl provides a Go DSL for programmatically constructing cohort models.

It allows developers to define Markov models using a fluent builder instead of
YAML, JSON or CSV files. The builder produces a model.Definition, so the result
goes through the same Build path (parameters, complements, verification) as a
loaded file. Declaration order is kept: states and variables appear in the
result tables in the order they are added.

Example usage:

	b := dsl.New("two-state").Cycles(10).DiscountRate(0.03)
	b.Range("p_die", 0.1, 0.05, 0.15, domain.Uniform)

	b.State("alive").Probability(1).Var("cost", 100).Var("utility", 0.8)
	b.State("dead").Probability(0)

	b.Transition("die", "alive", "dead").Probability("p_die")
	b.Transition("live", "alive", "alive").Complement()
	b.Transition("stay", "dead", "dead").Probability(1)

	def, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}
	eng, err := model.Build(def)
*/
package dsl
