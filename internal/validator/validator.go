package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/cohort/pkg/domain"
)

// Warning is a structural observation about a model that does not stop it from running.
type Warning struct {
	State   string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.State, w.Message)
}

// CheckGraph crawls the state graph from every state with a positive initial
// probability and reports unreachable states and states without outgoing transitions.
func CheckGraph(states []*domain.MarkovState) ([]Warning, error) {
	edges := make(map[string][]string, len(states))
	for _, s := range states {
		targets, err := destinations(s)
		if err != nil {
			return nil, err
		}
		edges[s.Name()] = targets
	}

	// 1. Seed with the initially occupied states
	visited := make(map[string]bool, len(states))
	var queue []string
	for _, s := range states {
		p, err := s.InitialProbability()
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", s.Name(), err)
		}
		if p > 0 {
			queue = append(queue, s.Name())
		}
	}

	// 2. Crawler
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, target := range edges[current] {
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}

	var warnings []Warning
	for _, s := range states {
		if !visited[s.Name()] {
			warnings = append(warnings, Warning{State: s.Name(), Message: "unreachable from the initial distribution"})
		}
		if len(edges[s.Name()]) == 0 {
			warnings = append(warnings, Warning{State: s.Name(), Message: "has no transitions; its mass leaves the model"})
		}
	}
	return warnings, nil
}

// destinations lists the states reachable in one cycle from s.
func destinations(s *domain.MarkovState) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	err := domain.Walk(s, func(n domain.Node) error {
		t, ok := n.(*domain.StateTransition)
		if !ok {
			return nil
		}
		if t.Destination() == nil {
			return fmt.Errorf("%w: transition %q has no destination", domain.ErrTransitionTarget, t.Name())
		}
		name := t.Destination().Name()
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
		return nil
	})
	return out, err
}

// Format joins warnings one per line.
func Format(warnings []Warning) string {
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = "- " + w.String()
	}
	return strings.Join(lines, "\n")
}
