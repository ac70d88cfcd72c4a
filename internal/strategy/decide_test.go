package strategy

import (
	"math/rand"
	"testing"

	"nnfx-go/internal/signal"
)

const (
	L = signal.Long
	S = signal.Short
	F = signal.Flat
)

func repeat(d signal.Direction, n int) []signal.Direction {
	out := make([]signal.Direction, n)
	for i := range out {
		out[i] = d
	}
	return out
}

// recentC1 is a confirmation history that agrees with d now and disagreed three bars ago.
func recentC1(d signal.Direction) []signal.Direction {
	return append(repeat(d, 3), repeat(d.Opposite(), 10)...)
}

func TestBaselineCrossEntersLong(t *testing.T) {
	h := History{
		Baseline: []signal.Direction{L, F, F},
		TooFar:   []bool{false, false},
		C1:       recentC1(L),
		C2:       L,
		Volume:   L,
	}
	out := Decide(h)
	if out.Direction != L || out.Reason != ReasonSignal {
		t.Fatalf("expected long on baseline cross, got %+v", out)
	}
}

func TestTooFarAbortsEntry(t *testing.T) {
	h := History{
		Baseline: []signal.Direction{L},
		TooFar:   []bool{true, false},
		C1:       recentC1(L),
		C2:       L,
		Volume:   L,
	}
	out := Decide(h)
	if out.Direction != F || !out.TooFar || out.Conditions.Long.Baseline {
		t.Fatalf("expected too-far abort, got %+v", out)
	}
}

func TestPullbackReinstatesPreviousCross(t *testing.T) {
	h := History{
		Baseline: []signal.Direction{F, S, F},
		TooFar:   []bool{false, true},
		C1:       recentC1(S),
		C2:       S,
		Volume:   S,
	}
	out := Decide(h)
	if out.Direction != S || out.Reason != ReasonPullback {
		t.Fatalf("expected short pullback entry, got %+v", out)
	}
	if out.Conditions.Long.Baseline {
		t.Fatalf("pullback must only restore the crossover's own direction")
	}

	stillFar := h
	stillFar.TooFar = []bool{true, true}
	if out := Decide(stillFar); out.Direction != F {
		t.Fatalf("no pullback while still too far, got %+v", out)
	}

	notFarBefore := h
	notFarBefore.TooFar = []bool{false, false}
	if out := Decide(notFarBefore); out.Direction != F {
		t.Fatalf("no pullback when the crossover bar was within range, got %+v", out)
	}

	twoBarsLate := h
	twoBarsLate.Baseline = []signal.Direction{F, F, S}
	twoBarsLate.TooFar = []bool{false, false}
	if out := Decide(twoBarsLate); out.Reason == ReasonPullback {
		t.Fatalf("pullback only fires on the bar right after the too-far bar")
	}
}

func continuationHistory(c1SinceFlip []signal.Direction) History {
	base := append(repeat(F, len(c1SinceFlip)), L)
	return History{
		Baseline: base,
		TooFar:   []bool{false, false},
		C1:       append(append([]signal.Direction{}, c1SinceFlip...), L, L, L),
		C2:       c1SinceFlip[0],
		Volume:   F,
	}
}

func TestContinuationNeedsExactlyTwoAlternations(t *testing.T) {
	two := continuationHistory([]signal.Direction{L, L, S, S, L})
	out := Decide(two)
	if out.Direction != L || out.Reason != ReasonContinuation {
		t.Fatalf("two alternations should trigger continuation, got %+v", out)
	}
	if !out.Conditions.Long.Volume {
		t.Fatalf("continuation forces every condition")
	}

	one := continuationHistory([]signal.Direction{S, S, S, L, L})
	if out := Decide(one); out.Direction != F {
		t.Fatalf("one alternation must not trigger, got %+v", out)
	}

	three := continuationHistory([]signal.Direction{S, L, L, S, L})
	if out := Decide(three); out.Direction != F {
		t.Fatalf("three alternations must not trigger, got %+v", out)
	}

	flatBlip := continuationHistory([]signal.Direction{L, F, S, L})
	if out := Decide(flatBlip); out.Direction != L || out.Reason != ReasonContinuation {
		t.Fatalf("a flat reading between flips must not count, got %+v", out)
	}

	oneFromFlat := continuationHistory([]signal.Direction{L, S, F})
	if out := Decide(oneFromFlat); out.Direction != F {
		t.Fatalf("leaving flat is not an alternation, got %+v", out)
	}

	threeWithFlat := continuationHistory([]signal.Direction{L, S, F, L, S})
	if out := Decide(threeWithFlat); out.Direction != F {
		t.Fatalf("three alternations around a flat reading must not trigger, got %+v", out)
	}

	flatNow := continuationHistory([]signal.Direction{F, L, S, L})
	flatNow.C2 = L
	if out := Decide(flatNow); out.Direction != F {
		t.Fatalf("a flat current C1 must not trigger, got %+v", out)
	}

	disagree := continuationHistory([]signal.Direction{L, L, S, S, L})
	disagree.C2 = S
	if out := Decide(disagree); out.Direction != F {
		t.Fatalf("C2 must agree with C1, got %+v", out)
	}
}

func TestContinuationNeedsFlipInWindow(t *testing.T) {
	h := History{
		Baseline: repeat(F, 40),
		C1:       append(repeat(L, 2), append(repeat(S, 2), repeat(L, 36)...)...),
		C2:       L,
	}
	if out := Decide(h); out.Direction != F {
		t.Fatalf("no baseline flip in 30 bars must skip continuation, got %+v", out)
	}
}

func TestBridgeTooFar(t *testing.T) {
	withFlipAt := func(idx int) History {
		c1 := repeat(L, 12)
		if idx >= 0 {
			c1[idx] = S
		}
		return History{
			Baseline: []signal.Direction{L},
			TooFar:   []bool{false},
			C1:       c1,
			C2:       L,
			Volume:   L,
		}
	}
	if out := Decide(withFlipAt(7)); out.Direction != L || out.Bridge {
		t.Fatalf("flip 7 bars back is within the bridge, got %+v", out)
	}
	if out := Decide(withFlipAt(8)); out.Direction != F || !out.Bridge {
		t.Fatalf("flip 8 bars back is a bridge too far, got %+v", out)
	}
	if out := Decide(withFlipAt(-1)); out.Direction != F || !out.Bridge {
		t.Fatalf("no flip in the window is a bridge too far, got %+v", out)
	}
	if out := Decide(withFlipAt(11)); out.Direction != F || !out.Bridge {
		t.Fatalf("flip beyond the 10-bar window counts as absent, got %+v", out)
	}
}

func TestGateVolumeServesBothDirections(t *testing.T) {
	h := History{
		Baseline:   []signal.Direction{S},
		TooFar:     []bool{false},
		C1:         recentC1(S),
		C2:         S,
		Volume:     L,
		VolumeGate: true,
	}
	if out := Decide(h); out.Direction != S {
		t.Fatalf("nonzero gate volume should confirm a short, got %+v", out)
	}
	h.Volume = F
	if out := Decide(h); out.Direction != F {
		t.Fatalf("quiet gate volume should block, got %+v", out)
	}
}

func TestDecisionNeverBothDirections(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pick := func() signal.Direction { return signal.Direction(rng.Intn(3) - 1) }
	for i := 0; i < 5000; i++ {
		h := History{
			Baseline:   make([]signal.Direction, 30),
			TooFar:     []bool{rng.Intn(2) == 0, rng.Intn(2) == 0},
			C1:         make([]signal.Direction, 30),
			C2:         pick(),
			Volume:     pick(),
			VolumeGate: rng.Intn(2) == 0,
		}
		for j := range h.Baseline {
			if rng.Intn(6) == 0 {
				h.Baseline[j] = pick()
			}
			h.C1[j] = pick()
		}
		out := Decide(h)
		if out.Conditions.Long.All() && out.Conditions.Short.All() {
			t.Fatalf("both directions satisfied for %+v", h)
		}
		if out.Direction != L && out.Direction != S && out.Direction != F {
			t.Fatalf("invalid direction %v", out.Direction)
		}
	}
}

func TestShouldExit(t *testing.T) {
	if !ShouldExit(L, S, F, L, L) {
		t.Fatalf("exit signal against a long must close it")
	}
	if !ShouldExit(S, F, F, F, L) {
		t.Fatalf("C2 against a short must close it")
	}
	if ShouldExit(L, L, F, L, F) {
		t.Fatalf("nothing against the long, must hold")
	}
	if ShouldExit(F, S, S, S, S) {
		t.Fatalf("flat has nothing to exit")
	}
}
