package model

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// File names of a CSV table set.
const (
	NodesFile       = "nodes.csv"
	TransitionsFile = "transitions.csv"
	ParametersFile  = "parameters.csv"
	SettingsFile    = "settings.yaml"
)

// LoadCSVDir reads a model stored as CSV tables in dir. parameters.csv and
// settings.yaml are optional. The model is named after the directory.
func LoadCSVDir(dir string) (*Definition, error) {
	nodes, err := os.Open(filepath.Join(dir, NodesFile))
	if err != nil {
		return nil, err
	}
	defer nodes.Close()

	transitions, err := os.Open(filepath.Join(dir, TransitionsFile))
	if err != nil {
		return nil, err
	}
	defer transitions.Close()

	var params io.Reader
	if f, err := os.Open(filepath.Join(dir, ParametersFile)); err == nil {
		defer f.Close()
		params = f
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	def, err := ParseCSV(nodes, transitions, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}

	if data, err := os.ReadFile(filepath.Join(dir, SettingsFile)); err == nil {
		if err := yaml.Unmarshal(data, &def.Settings); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, SettingsFile, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err := def.Settings.Validate(); err != nil {
		return nil, err
	}

	def.Name = filepath.Base(dir)
	return def, nil
}

// ParseCSV reads the three model tables. parameters may be nil.
//
//	nodes:       node_name,parent,transition_probability,<variables...>
//	transitions: node_name,parent,dst_state,transition_probability,<variables...>
//	parameters:  parameter_name,parameter_type,value
func ParseCSV(nodes, transitions, parameters io.Reader) (*Definition, error) {
	def := &Definition{Parameters: make(map[string]Parameter)}

	nodeRows, err := readTable(nodes, "node_name", "parent", "transition_probability")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NodesFile, err)
	}
	for _, row := range nodeRows {
		def.Nodes = append(def.Nodes, NodeDef{
			Name:        row.fixed[0],
			Parent:      row.fixed[1],
			Probability: optional(row.fixed[2]),
			Variables:   row.vars,
		})
	}

	transRows, err := readTable(transitions, "node_name", "parent", "dst_state", "transition_probability")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TransitionsFile, err)
	}
	for _, row := range transRows {
		def.Transitions = append(def.Transitions, TransitionDef{
			Name:        row.fixed[0],
			Parent:      row.fixed[1],
			Destination: row.fixed[2],
			Probability: optional(row.fixed[3]),
			Variables:   row.vars,
		})
	}

	if parameters != nil {
		paramRows, err := readTable(parameters, "parameter_name", "parameter_type", "value")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ParametersFile, err)
		}
		for _, row := range paramRows {
			p, err := parseParameterRow(row.fixed[1], row.fixed[2])
			if err != nil {
				return nil, fmt.Errorf("%s: parameter %q: %w", ParametersFile, row.fixed[0], err)
			}
			def.Parameters[row.fixed[0]] = p
		}
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

type tableRow struct {
	fixed []string
	vars  map[string]any
}

// readTable reads a CSV with the given leading columns; any further column is a variable.
// Empty variable cells are left out.
func readTable(r io.Reader, columns ...string) ([]tableRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrInvalidDefinition, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	fixed := make([]int, len(columns))
	isFixed := make(map[int]bool, len(columns))
	for i, c := range columns {
		pos, ok := index[c]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidDefinition, c)
		}
		fixed[i] = pos
		isFixed[pos] = true
	}

	var rows []tableRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
		}

		row := tableRow{fixed: make([]string, len(columns))}
		for i, pos := range fixed {
			row.fixed[i] = strings.TrimSpace(rec[pos])
		}
		for pos, cell := range rec {
			cell = strings.TrimSpace(cell)
			if isFixed[pos] || cell == "" {
				continue
			}
			if row.vars == nil {
				row.vars = make(map[string]any)
			}
			row.vars[strings.TrimSpace(header[pos])] = cell
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func optional(cell string) any {
	if cell == "" {
		return nil
	}
	return cell
}

// ParseValueString splits "a,b,c;d,e,f" into rows of cells. Numeric cells become
// float64, others stay strings. Empty cells are dropped.
func ParseValueString(s string) [][]any {
	var out [][]any
	for _, rowText := range strings.Split(s, ";") {
		var row []any
		for _, cell := range strings.Split(rowText, ",") {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if f, err := strconv.ParseFloat(cell, 64); err == nil {
				row = append(row, f)
			} else {
				row = append(row, cell)
			}
		}
		out = append(out, row)
	}
	return out
}

func parseParameterRow(typ, value string) (Parameter, error) {
	pt, err := ParseParameterType(typ)
	if err != nil {
		return Parameter{}, err
	}
	p := Parameter{Type: pt}

	switch pt {
	case ParamComplement:
		return p, nil
	case ParamConstant, ParamRange:
		rows := ParseValueString(value)
		if len(rows) != 1 {
			return p, fmt.Errorf("%w: expected a single row, got %q", ErrInvalidDefinition, value)
		}
		return rangedFromCells(p, rows[0])
	default:
		for _, row := range ParseValueString(value) {
			if len(row) == 1 {
				if name, ok := row[0].(string); ok {
					p.Values = append(p.Values, name)
					continue
				}
			}
			p.Values = append(p.Values, row)
		}
		return p, nil
	}
}

// rangedFromCells fills value, params and distribution from [value, p1, p2, distribution].
func rangedFromCells(p Parameter, cells []any) (Parameter, error) {
	if len(cells) == 0 || len(cells) > 4 {
		return p, fmt.Errorf("%w: expected 1 to 4 values, got %d", ErrInvalidDefinition, len(cells))
	}
	nums := make([]float64, 0, 3)
	for i, c := range cells {
		if i == 3 {
			dist, ok := c.(string)
			if !ok {
				return p, fmt.Errorf("%w: distribution must be a name, got %v", ErrInvalidDefinition, c)
			}
			p.Distribution = dist
			break
		}
		f, ok := c.(float64)
		if !ok {
			if i == len(cells)-1 && i > 0 {
				if dist, isName := c.(string); isName {
					p.Distribution = dist
					break
				}
			}
			return p, fmt.Errorf("%w: %v is not a number", ErrInvalidDefinition, c)
		}
		nums = append(nums, f)
	}
	p.Value = nums[0]
	if len(nums) > 1 {
		p.Params = nums[1:]
	}
	return p, nil
}
