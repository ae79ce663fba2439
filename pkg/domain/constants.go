package domain

import (
	"fmt"
	"strings"
)

// CountMethod selects which end of a cycle window is counted as occupancy.
type CountMethod string

const (
	// CountStart counts the mass at the beginning of the cycle.
	CountStart CountMethod = "start"
	// CountEnd counts the mass at the end of the cycle.
	CountEnd CountMethod = "end"
	// CountHalf counts the mean of both ends (half-cycle correction).
	CountHalf CountMethod = "half"
)

// DefaultCountMethod is used when no count method is configured.
const DefaultCountMethod = CountHalf

// ParseCountMethod validates s. The empty string yields DefaultCountMethod.
func ParseCountMethod(s string) (CountMethod, error) {
	switch m := CountMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return DefaultCountMethod, nil
	case CountStart, CountEnd, CountHalf:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCountMethod, s)
	}
}

// Select reduces a [begin, end] window to the counted probability.
func (m CountMethod) Select(w [2]float64) float64 {
	switch m {
	case CountStart:
		return w[0]
	case CountEnd:
		return w[1]
	default:
		return (w[0] + w[1]) / 2
	}
}

// Settings are the simulation parameters of one run.
type Settings struct {
	Cycles       int         `json:"cycles" yaml:"cycles" mapstructure:"cycles"`
	CountMethod  CountMethod `json:"count_method" yaml:"count_method" mapstructure:"count_method"`
	DiscountRate float64     `json:"discount_rate" yaml:"discount_rate" mapstructure:"discount_rate"`
}

// DefaultSettings returns a zero-cycle run counted with the half-cycle method.
func DefaultSettings() Settings {
	return Settings{CountMethod: DefaultCountMethod}
}

// Validate checks the settings and fills in the default count method.
func (s *Settings) Validate() error {
	if s.Cycles < 0 {
		return fmt.Errorf("%w: cycles must be >= 0, got %d", ErrInvalidSettings, s.Cycles)
	}
	if s.DiscountRate <= -1 {
		return fmt.Errorf("%w: discount rate must be > -1, got %g", ErrInvalidSettings, s.DiscountRate)
	}
	m, err := ParseCountMethod(string(s.CountMethod))
	if err != nil {
		return err
	}
	s.CountMethod = m
	return nil
}
