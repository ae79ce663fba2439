package runtime

import "github.com/aretw0/cohort/pkg/domain"

// accumulator collects the contributions of one cycle, remembering the order
// in which keys first appeared.
type accumulator struct {
	order  []string
	values map[string][]float64
}

func newAccumulator() accumulator {
	return accumulator{values: make(map[string][]float64)}
}

func (a *accumulator) add(key string, v float64) {
	if _, ok := a.values[key]; !ok {
		a.order = append(a.order, key)
	}
	a.values[key] = append(a.values[key], v)
}

// drain returns the per-key sums and clears the accumulator.
func (a *accumulator) drain() ([]string, map[string]float64) {
	sums := make(map[string]float64, len(a.values))
	for k, vs := range a.values {
		sums[k] = sum(vs)
	}
	order := a.order
	*a = newAccumulator()
	return order, sums
}

// series is the growing output table. Columns keep first-seen order; a column
// that appears late is zero-filled for the earlier cycles, and a column missing
// from a cycle gets a zero.
type series struct {
	columns []string
	data    map[string][]float64
	rows    int
}

func newSeries() series {
	return series{data: make(map[string][]float64)}
}

func (s *series) push(order []string, sums map[string]float64) {
	for _, k := range order {
		if _, ok := s.data[k]; !ok {
			s.columns = append(s.columns, k)
			s.data[k] = make([]float64, s.rows)
		}
	}
	for _, k := range s.columns {
		s.data[k] = append(s.data[k], sums[k])
	}
	s.rows++
}

func (s *series) table() domain.Table {
	t := domain.Table{
		Columns: append([]string{}, s.columns...),
		Rows:    make([][]float64, s.rows),
	}
	for r := 0; r < s.rows; r++ {
		row := make([]float64, len(s.columns))
		for i, k := range s.columns {
			row[i] = s.data[k][r]
		}
		t.Rows[r] = row
	}
	return t
}
