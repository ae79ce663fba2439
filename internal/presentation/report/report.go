// Package report renders run results as markdown, CSV or JSON.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/psa"
)

// Format is an output format.
type Format string

const (
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// ParseFormat validates s. The empty string means Markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", "md":
		return Markdown, nil
	case Markdown, CSV, JSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (valid: markdown, csv, json)", s)
	}
}

// Write renders res in format f.
func Write(w io.Writer, f Format, res *domain.Result) error {
	switch f {
	case CSV:
		return WriteCSV(w, res)
	case JSON:
		return WriteJSON(w, res)
	default:
		return WriteMarkdown(w, res)
	}
}

// WriteMarkdown renders both tables followed by the variable totals.
func WriteMarkdown(w io.Writer, res *domain.Result) error {
	var sb strings.Builder
	sb.WriteString("## State probabilities\n\n")
	writeMarkdownTable(&sb, res.Probabilities)
	sb.WriteString("\n## Discounted variables\n\n")
	writeMarkdownTable(&sb, res.Variables)

	if len(res.Variables.Columns) > 0 {
		sb.WriteString("\n## Totals\n\n| variable | total |\n|---|---|\n")
		totals := res.Variables.Totals()
		for _, c := range res.Variables.Columns {
			fmt.Fprintf(&sb, "| %s | %s |\n", c, formatFloat(totals[c]))
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeMarkdownTable(sb *strings.Builder, t domain.Table) {
	if len(t.Columns) == 0 {
		sb.WriteString("_empty_\n")
		return
	}
	sb.WriteString("| cycle | " + strings.Join(t.Columns, " | ") + " |\n")
	sb.WriteString("|---" + strings.Repeat("|---", len(t.Columns)) + "|\n")
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = formatFloat(v)
		}
		fmt.Fprintf(sb, "| %d | %s |\n", i, strings.Join(cells, " | "))
	}
}

// WriteCSV writes one CSV with a cycle column, the state columns and the
// variable columns side by side.
func WriteCSV(w io.Writer, res *domain.Result) error {
	cw := csv.NewWriter(w)
	header := append([]string{"cycle"}, res.Probabilities.Columns...)
	header = append(header, res.Variables.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	rows := max(len(res.Probabilities.Rows), len(res.Variables.Rows))
	for i := 0; i < rows; i++ {
		record := []string{strconv.Itoa(i)}
		record = appendRow(record, res.Probabilities, i)
		record = appendRow(record, res.Variables, i)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func appendRow(record []string, t domain.Table, i int) []string {
	if i >= len(t.Rows) {
		for range t.Columns {
			record = append(record, "")
		}
		return record
	}
	for _, v := range t.Rows[i] {
		record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return record
}

// WriteJSON writes res as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WritePSA renders a PSA summary in format f. CSV lists one row per iteration.
func WritePSA(w io.Writer, f Format, s *psa.Summary) error {
	names := make([]string, 0, len(s.Totals))
	for name := range s.Totals {
		names = append(names, name)
	}
	sort.Strings(names)

	switch f {
	case JSON:
		return WriteJSON(w, s)
	case CSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(append([]string{"iteration", "seed"}, names...)); err != nil {
			return err
		}
		for _, it := range s.Iterations {
			record := []string{strconv.Itoa(it.Index), strconv.FormatUint(it.Seed, 10)}
			for _, n := range names {
				record = append(record, strconv.FormatFloat(it.Totals[n], 'g', -1, 64))
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		var sb strings.Builder
		fmt.Fprintf(&sb, "## PSA (%d iterations)\n\n", len(s.Iterations))
		sb.WriteString("| variable | mean | sd | 2.5% | median | 97.5% |\n|---|---|---|---|---|---|\n")
		for _, n := range names {
			st := s.Totals[n]
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s |\n", n,
				formatFloat(st.Mean), formatFloat(st.StdDev),
				formatFloat(st.Lower), formatFloat(st.Median), formatFloat(st.Upper))
		}
		_, err := io.WriteString(w, sb.String())
		return err
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
