package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/cohort/pkg/domain"
)

// Overlay contains run data to visualize on the graph.
type Overlay struct {
	// Occupancy is printed under each state name.
	Occupancy map[string]float64
	// Highlight names states drawn with the highlighted class.
	Highlight []string
}

// GenerateMermaid produces a Mermaid flowchart of the model tree.
// It applies semantic styling:
// - MarkovState: ((Circle))
// - ChanceNode: {Rhombus}
// Transitions are drawn as edges from their parent to the destination state,
// dotted when the cohort stays in the same state.
func GenerateMermaid(states []*domain.MarkovState, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, s := range states {
		label := s.Name()
		if overlay != nil {
			if occ, ok := overlay.Occupancy[s.Name()]; ok {
				label = fmt.Sprintf("%s <br/> %.4f", s.Name(), occ)
			}
		}
		fmt.Fprintf(&sb, "    %s((\"%s\"))\n", sanitizeMermaidID(s.Name()), label)
	}

	for _, s := range states {
		for _, c := range s.Children() {
			writeBranch(&sb, s, s.Name(), c)
		}
	}

	if overlay != nil && len(overlay.Highlight) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast on both light and dark themes.
		sb.WriteString("    classDef highlighted fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		seen := make(map[string]bool)
		for _, name := range overlay.Highlight {
			id := sanitizeMermaidID(name)
			if id != "" && !seen[id] {
				seen[id] = true
				fmt.Fprintf(&sb, "    class %s highlighted;\n", id)
			}
		}
	}

	return sb.String()
}

func writeBranch(sb *strings.Builder, owner *domain.MarkovState, parent string, n domain.Branch) {
	from := sanitizeMermaidID(parent)
	prob := escapeLabel(fmt.Sprint(n.Probability()))

	switch b := n.(type) {
	case *domain.StateTransition:
		arrow := fmt.Sprintf("-- \"%s: %s\" -->", escapeLabel(b.Name()), prob)
		if b.Destination() == owner {
			arrow = fmt.Sprintf("-. \"%s: %s\" .->", escapeLabel(b.Name()), prob)
		}
		to := "missing"
		if b.Destination() != nil {
			to = sanitizeMermaidID(b.Destination().Name())
		}
		fmt.Fprintf(sb, "    %s %s %s\n", from, arrow, to)
	case *domain.ChanceNode:
		id := sanitizeMermaidID(b.Name())
		fmt.Fprintf(sb, "    %s{\"%s\"}\n", id, b.Name())
		fmt.Fprintf(sb, "    %s -- \"%s\" --> %s\n", from, prob, id)
		for _, c := range b.Children() {
			writeBranch(sb, owner, b.Name(), c)
		}
	}
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
