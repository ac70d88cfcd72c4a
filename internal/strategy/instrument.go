package strategy

import (
	"fmt"

	"nnfx-go/internal/registry"
	"nnfx-go/internal/series"
	"nnfx-go/internal/signal"
)

// baselineSignal is the baseline crossover signal plus its distance check and ATR.
type baselineSignal interface {
	registry.Signal
	TooFar() bool
	ATR() float64
}

// instrument owns the filters and signal history of one symbol. Nothing in it is shared
// with other instruments.
type instrument struct {
	symbol     string
	baseline   baselineSignal
	c1, c2     registry.Signal
	volume     registry.Signal
	exit       registry.Signal
	volumeGate bool

	baseHist   *series.Series[signal.Direction]
	tooFarHist *series.Series[bool]
	c1Hist     *series.Series[signal.Direction]
	last       signal.Bar
	bars       int
}

// newInstrument builds every role signal for symbol. Any ConfigError aborts the build.
func newInstrument(symbol string, p Params) (*instrument, error) {
	base, err := registry.NewBaseline(p.Baseline, p.ATRPeriod)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	in := &instrument{
		symbol:     symbol,
		baseline:   base,
		volumeGate: registry.IsGate(p.Volume.Name),
		baseHist:   series.New[signal.Direction](continuationLookback),
		tooFarHist: series.New[bool](2),
		c1Hist:     series.New[signal.Direction](continuationLookback),
	}
	build := []struct {
		role signal.Role
		spec registry.Spec
		dst  *registry.Signal
	}{
		{signal.RoleConfirmation, p.Confirmation1, &in.c1},
		{signal.RoleConfirmation, p.Confirmation2, &in.c2},
		{signal.RoleVolume, p.Volume, &in.volume},
		{signal.RoleExit, p.Exit, &in.exit},
	}
	for _, b := range build {
		s, err := registry.New(b.role, b.spec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", symbol, err)
		}
		*b.dst = s
	}
	return in, nil
}

// advance feeds one bar to every signal and records the histories.
func (in *instrument) advance(b signal.Bar) {
	in.last = b
	in.bars++
	in.baseHist.Append(in.baseline.Advance(b))
	in.tooFarHist.Append(in.baseline.TooFar())
	in.c1Hist.Append(in.c1.Advance(b))
	in.c2.Advance(b)
	in.volume.Advance(b)
	in.exit.Advance(b)
}

func (in *instrument) history() History {
	return History{
		Baseline:   in.baseHist.Last(continuationLookback),
		TooFar:     in.tooFarHist.Last(2),
		C1:         in.c1Hist.Last(continuationLookback),
		C2:         in.c2.Value(),
		Volume:     in.volume.Value(),
		VolumeGate: in.volumeGate,
	}
}

// Snapshot is the current signal state of one instrument.
type Snapshot struct {
	Symbol   string
	Close    float64
	ATR      float64
	Baseline signal.Direction
	TooFar   bool
	C1       signal.Direction
	C2       signal.Direction
	Volume   signal.Direction
	Exit     signal.Direction
	Ready    bool
}

func (in *instrument) snapshot() Snapshot {
	return Snapshot{
		Symbol:   in.symbol,
		Close:    in.last.Close,
		ATR:      in.baseline.ATR(),
		Baseline: in.baseline.Value(),
		TooFar:   in.baseline.TooFar(),
		C1:       in.c1.Value(),
		C2:       in.c2.Value(),
		Volume:   in.volume.Value(),
		Exit:     in.exit.Value(),
		Ready: in.baseline.Ready() && in.c1.Ready() && in.c2.Ready() &&
			in.volume.Ready() && in.exit.Ready(),
	}
}
