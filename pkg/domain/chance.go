package domain

// ChanceNode splits incoming mass between its children.
type ChanceNode struct {
	node
}

// NewChanceNode creates a chance node reached with probability p.
func NewChanceNode(name string, p Probability, vars Variables) *ChanceNode {
	return &ChanceNode{node: newNode(name, p, vars)}
}

// AddChild appends child and hands it the current controller, if any.
func (c *ChanceNode) AddChild(child Branch) error { return c.addChild(child) }

// Reset implements Node.
func (c *ChanceNode) Reset() { c.resetChildren() }

// AttachController implements Node.
func (c *ChanceNode) AttachController(m Mediator) { c.attach(m) }

// Lookup implements Node.
func (c *ChanceNode) Lookup(name string) Node { return c.lookup(c, name) }

// InitializeProbabilities implements Node.
func (c *ChanceNode) InitializeProbabilities(seed *uint64) error { return c.initialize(seed) }

// Verify implements Node.
func (c *ChanceNode) Verify() error { return c.verify() }

// Forward multiplies mass by the node probability, adds the node variables to
// vars and passes both to every child.
func (c *ChanceNode) Forward(cycle int, mass float64, vars Variables) error {
	p, err := c.prob.Value(cycle)
	if err != nil {
		return wrapNode(c.name, err)
	}
	out := mass * p
	outVars := vars.Merge(c.vars)
	for _, child := range c.children {
		if err := child.Forward(cycle, out, outVars); err != nil {
			return err
		}
	}
	return nil
}
