package domain

import (
	"fmt"
	"time"
)

// Table is a cycle-by-column series. Rows[t][i] is the value of Columns[i] at cycle t.
type Table struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// Index returns the position of column name, or -1.
func (t Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the series of column name.
func (t Table) Column(name string) ([]float64, error) {
	i := t.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]float64, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// Totals sums each column over all cycles.
func (t Table) Totals() map[string]float64 {
	out := make(map[string]float64, len(t.Columns))
	for i, c := range t.Columns {
		sum := 0.0
		for _, row := range t.Rows {
			sum += row[i]
		}
		out[c] = sum
	}
	return out
}

// Result holds the output of a run: per-state probabilities and per-variable
// discounted totals, one row per cycle.
type Result struct {
	Probabilities Table `json:"probabilities"`
	Variables     Table `json:"variables"`
}

// RunRecord is a stored run.
type RunRecord struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Seed      *uint64   `json:"seed,omitempty"`
	Settings  Settings  `json:"settings"`
	Result    Result    `json:"result"`

	// Sealed carries the encrypted record when a store keeps runs encrypted at rest.
	// Result and Settings are empty in that case.
	Sealed []byte `json:"sealed,omitempty"`
}
