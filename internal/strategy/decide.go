package strategy

import (
	"slices"

	"nnfx-go/internal/signal"
)

const (
	continuationLookback = 30
	bridgeLookback       = 10
	bridgeMaxAge         = 7
)

// Reason explains why a decision was taken.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonSignal       Reason = "signal"
	ReasonPullback     Reason = "pullback"
	ReasonContinuation Reason = "continuation"
	ReasonExit         Reason = "exit"
)

// Conditions are the four entry requirements for one direction.
type Conditions struct {
	Baseline bool
	C1       bool
	C2       bool
	Volume   bool
}

// All reports whether every requirement holds.
func (c Conditions) All() bool { return c.Baseline && c.C1 && c.C2 && c.Volume }

// ConditionSet holds the requirements for both directions. It is rebuilt every bar.
type ConditionSet struct {
	Long  Conditions
	Short Conditions
}

// For returns the conditions for d, which must be Long or Short.
func (cs *ConditionSet) For(d signal.Direction) *Conditions {
	if d == signal.Short {
		return &cs.Short
	}
	return &cs.Long
}

// Decision returns Long or Short when all conditions of that direction hold, else Flat.
func (cs ConditionSet) Decision() signal.Direction {
	switch {
	case cs.Long.All():
		return signal.Long
	case cs.Short.All():
		return signal.Short
	}
	return signal.Flat
}

// History is the per-bar signal record the entry rules read. Slices are most recent first;
// index 0 is the current bar.
type History struct {
	Baseline   []signal.Direction
	TooFar     []bool
	C1         []signal.Direction
	C2         signal.Direction
	Volume     signal.Direction
	VolumeGate bool
}

func dirAt(s []signal.Direction, i int) signal.Direction {
	if i < len(s) {
		return s[i]
	}
	return signal.Flat
}

func boolAt(s []bool, i int) bool { return i < len(s) && s[i] }

// Conditions builds the raw condition set from the current signals.
func (h History) Conditions() ConditionSet {
	var cs ConditionSet
	for _, d := range []signal.Direction{signal.Long, signal.Short} {
		c := cs.For(d)
		c.Baseline = dirAt(h.Baseline, 0) == d
		c.C1 = dirAt(h.C1, 0) == d
		c.C2 = h.C2 == d
		if h.VolumeGate {
			c.Volume = h.Volume != signal.Flat
		} else {
			c.Volume = h.Volume == d
		}
	}
	return cs
}

// Outcome is the result of the entry rules for one bar.
type Outcome struct {
	Direction  signal.Direction
	Reason     Reason
	Conditions ConditionSet
	TooFar     bool
	Bridge     bool
}

// Decide applies the entry rules to a flat instrument: raw conditions, then either the
// too-far/pullback adjustments and the bridge-too-far veto when the baseline has a
// crossover to act on, or the continuation override when it has none.
func Decide(h History) Outcome {
	out := Outcome{Conditions: h.Conditions(), Reason: ReasonSignal}
	base := dirAt(h.Baseline, 0)
	prev := dirAt(h.Baseline, 1)

	switch {
	case base != signal.Flat:
		if boolAt(h.TooFar, 0) {
			out.Conditions.For(base).Baseline = false
			out.TooFar = true
		}
		out.Bridge = bridgeTooFar(h, base, &out.Conditions)
	case prev != signal.Flat && boolAt(h.TooFar, 1) && !boolAt(h.TooFar, 0):
		out.Conditions.Long.Baseline = prev == signal.Long
		out.Conditions.Short.Baseline = prev == signal.Short
		out.Reason = ReasonPullback
		out.Bridge = bridgeTooFar(h, prev, &out.Conditions)
	default:
		if continuation(h, &out.Conditions) {
			out.Reason = ReasonContinuation
		}
	}

	out.Direction = out.Conditions.Decision()
	if out.Direction == signal.Flat {
		out.Reason = ReasonNone
	}
	return out
}

// bridgeTooFar vetoes C1 when the last C1 reading against base is older than bridgeMaxAge
// bars or missing from the last bridgeLookback bars. It reports whether it vetoed.
func bridgeTooFar(h History, base signal.Direction, cs *ConditionSet) bool {
	idx := -1
	for i := 0; i < bridgeLookback && i < len(h.C1); i++ {
		if h.C1[i] == base.Opposite() {
			idx = i
			break
		}
	}
	trade := cs.Decision()
	if trade == signal.Flat || (idx >= 0 && idx <= bridgeMaxAge) {
		return false
	}
	cs.For(trade).C1 = false
	return true
}

// continuation forces every condition for C1's current direction when C1 has turned
// against the last baseline crossover and back exactly twice since it, and C2 agrees.
func continuation(h History, cs *ConditionSet) bool {
	idx := -1
	for i := 0; i < continuationLookback && i < len(h.Baseline); i++ {
		if h.Baseline[i] != signal.Flat {
			idx = i
			break
		}
	}
	if idx < 0 || idx > len(h.C1) {
		return false
	}
	base := h.Baseline[idx]
	since := h.C1[:idx]
	if len(since) == 0 || !slices.Contains(since, base.Opposite()) {
		return false
	}
	if alternations(since) != 2 {
		return false
	}
	latest := since[0]
	if latest == signal.Flat || h.C2 != latest {
		return false
	}
	*cs.For(latest) = Conditions{Baseline: true, C1: true, C2: true, Volume: true}
	return true
}

// alternations counts sign changes between consecutive nonzero entries. Flat readings
// carry no opinion and are skipped.
func alternations(s []signal.Direction) int {
	n := 0
	prev := signal.Flat
	for _, d := range s {
		if d == signal.Flat {
			continue
		}
		if prev != signal.Flat && d != prev {
			n++
		}
		prev = d
	}
	return n
}

// ShouldExit reports whether a position held in direction pos must be closed: any of the
// exit, baseline, C1 or C2 signals points the other way.
func ShouldExit(pos, exit, baseline, c1, c2 signal.Direction) bool {
	if pos == signal.Flat {
		return false
	}
	against := pos.Opposite()
	return exit == against || baseline == against || c1 == against || c2 == against
}
