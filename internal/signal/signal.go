// Package signal standardizes payloads shared between the bar feed, filters, and the decision layer.
package signal

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bar is one closed OHLCV candle for a single instrument.
type Bar struct {
	Symbol string
	Ts     int64 // close time, unix milliseconds
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Median returns (high+low)/2.
func (b Bar) Median() float64 { return (b.High + b.Low) / 2 }

// Direction is a tri-state bias: -1 short, 0 no opinion, +1 long.
type Direction int

const (
	Short Direction = -1
	Flat  Direction = 0
	Long  Direction = 1
)

// Sign maps a float onto a Direction; NaN and Inf map to Flat.
func Sign(v float64) Direction {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return Flat
	case v > 0:
		return Long
	case v < 0:
		return Short
	default:
		return Flat
	}
}

// Compare returns Sign(a-b).
func Compare(a, b float64) Direction { return Sign(a - b) }

// Opposite flips Long and Short.
func (d Direction) Opposite() Direction { return -d }

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

// Role is the slot an indicator fills in the trade decision.
type Role string

const (
	RoleBaseline     Role = "baseline"
	RoleConfirmation Role = "confirmation"
	RoleVolume       Role = "volume"
	RoleExit         Role = "exit"
)

// Param is a single indicator parameter: numeric, or a name such as a moving-average kind.
type Param struct {
	Num  float64
	Name string
}

// N builds a numeric Param.
func N(v float64) Param { return Param{Num: v} }

// S builds a named Param.
func S(name string) Param { return Param{Name: strings.ToLower(name)} }

// IsName reports whether the parameter carries a name rather than a number.
func (p Param) IsName() bool { return p.Name != "" }

// Int truncates the numeric value.
func (p Param) Int() int { return int(p.Num) }

func (p Param) String() string {
	if p.IsName() {
		return p.Name
	}
	return strconv.FormatFloat(p.Num, 'f', -1, 64)
}

// UnmarshalYAML accepts either a number or a bare word.
func (p *Param) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("param must be a scalar, got %v at line %d", node.Tag, node.Line)
	}
	if v, err := strconv.ParseFloat(node.Value, 64); err == nil {
		*p = Param{Num: v}
		return nil
	}
	*p = S(node.Value)
	return nil
}

// MarshalYAML writes numbers as numbers and names as strings.
func (p Param) MarshalYAML() (interface{}, error) {
	if p.IsName() {
		return p.Name, nil
	}
	return p.Num, nil
}
