package filter

import (
	"math"
	"testing"

	"nnfx-go/internal/signal"
)

const flat = 1.2

func flatBar() signal.Bar {
	return signal.Bar{Open: flat, High: flat, Low: flat, Close: flat, Volume: 0}
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestITrendHoldsConstantInput(t *testing.T) {
	f := NewITrend(20)
	for i := 1; i <= 100; i++ {
		v := f.Update(flat)
		if i >= 20 && !near(v, flat, 1e-9) {
			t.Fatalf("bar %d: expected %v got %v", i, flat, v)
		}
	}
	if !f.Ready() {
		t.Fatalf("expected ready after 100 bars")
	}
	if !near(f.Trigger, flat, 1e-9) {
		t.Fatalf("trigger expected %v got %v", flat, f.Trigger)
	}
}

func TestWarmupReadiness(t *testing.T) {
	f := NewITrend(20)
	for i := 1; i < 20; i++ {
		f.Update(flat)
		if f.Ready() {
			t.Fatalf("ready too early at bar %d", i)
		}
	}
	f.Update(flat)
	if !f.Ready() || f.Warmup() != 20 {
		t.Fatalf("expected ready at warm-up 20")
	}
}

func TestUnityDCGain(t *testing.T) {
	bw2, err := NewButterworth(20, 2)
	if err != nil {
		t.Fatalf("butterworth 2: %v", err)
	}
	bw3, err := NewButterworth(20, 3)
	if err != nil {
		t.Fatalf("butterworth 3: %v", err)
	}
	cc := NewCyberCycle(30)
	ss := NewSuperSmoother(10)
	lag := NewLaguerre(48)
	alag := NewAdaptiveLaguerre(20)
	mama := NewMAMA(20, 50)

	filters := map[string]func() float64{
		"butterworth2":     func() float64 { return bw2.Update(flat) },
		"butterworth3":     func() float64 { return bw3.Update(flat) },
		"cybercycle":       func() float64 { cc.Update(flat); return cc.Smooth() },
		"supersmoother":    func() float64 { return ss.Update(flat) },
		"laguerre":         func() float64 { return lag.Update(flat) },
		"adaptiveLaguerre": func() float64 { return alag.Update(flat) },
		"mama":             func() float64 { mama.Update(flatBar()); return mama.MAMA },
	}
	for name, step := range filters {
		var v float64
		for i := 0; i < 200; i++ {
			v = step()
		}
		if !near(v, flat, 1e-9) {
			t.Fatalf("%s: expected DC output %v got %v", name, flat, v)
		}
	}
	if !near(cc.Value(), 0, 1e-12) {
		t.Fatalf("cyber cycle of a constant should be 0, got %v", cc.Value())
	}
}

func TestButterworthRejectsPoles(t *testing.T) {
	if _, err := NewButterworth(20, 4); err == nil {
		t.Fatalf("expected error for 4 poles")
	}
}

func TestZeroRangeGuards(t *testing.T) {
	ttf := NewTTF(5)
	cmf := NewCMF(5)
	tdfi := NewTDFI(4)
	fisher := NewIFisher(0, 0, 0)
	schaff := NewSchaff(5, 10, 4, 0.5)
	cvi := NewChaikinVolatility(3, 3)
	nvol := NewNormalizedVolume(3)
	dam := NewDamiani(3, 5, 10, 20, 1.4, true)
	wae := NewWAE(150, 5, 10, 5, 2, 3.7)
	sq, err := NewSqueeze(5, 2, 5, 1.5, "")
	if err != nil {
		t.Fatalf("squeeze: %v", err)
	}
	for i := 0; i < 80; i++ {
		b := flatBar()
		vals := []float64{
			ttf.Update(b), cmf.Update(b), tdfi.Update(b.Close), fisher.Update(b.Close),
			schaff.Update(b.Close), cvi.Update(b), nvol.Update(b),
		}
		dam.Update(b)
		wae.Update(b)
		sq.Update(b)
		vals = append(vals, dam.Volatility, dam.Threshold, wae.Up, wae.Down, wae.Explosion, sq.Hist)
		for j, v := range vals {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("bar %d value %d not finite: %v", i, j, v)
			}
		}
	}
	if ttf.Value() != 0 || cmf.Value() != 0 || tdfi.Normalized != 0 || nvol.Value() != 0 {
		t.Fatalf("expected zero outputs on a flat market, ttf=%v cmf=%v tdfi=%v nvol=%v",
			ttf.Value(), cmf.Value(), tdfi.Normalized, nvol.Value())
	}
}

func TestMovingAverages(t *testing.T) {
	sma := NewSMA(3)
	for _, x := range []float64{1, 2, 3, 4} {
		sma.Update(x)
	}
	if sma.Value() != 3 {
		t.Fatalf("sma expected 3 got %v", sma.Value())
	}

	ema := NewEMA(3)
	ema.Update(1)
	ema.Update(2)
	ema.Update(3)
	if ema.Value() != 2 {
		t.Fatalf("ema should seed with the sma, got %v", ema.Value())
	}
	ema.Update(4)
	if !near(ema.Value(), 3, 1e-12) {
		t.Fatalf("ema expected 3 got %v", ema.Value())
	}

	wma := NewWMA(3)
	for _, x := range []float64{1, 2, 3} {
		wma.Update(x)
	}
	if !near(wma.Value(), 14.0/6.0, 1e-12) {
		t.Fatalf("wma expected %v got %v", 14.0/6.0, wma.Value())
	}

	if _, err := NewMA("bogus", 3); err == nil {
		t.Fatalf("expected unknown moving average error")
	}
}

func TestATRFirstBar(t *testing.T) {
	atr := NewATR(3)
	atr.Update(signal.Bar{High: 1.3, Low: 1.1, Close: 1.2})
	if !near(atr.Value(), 0.2, 1e-12) {
		t.Fatalf("first true range is high-low, got %v", atr.Value())
	}
	atr.Update(signal.Bar{High: 1.25, Low: 1.22, Close: 1.24})
	// gap-aware true range: max(1.25, 1.2) - min(1.22, 1.2) = 0.05
	if !near(atr.Value(), 0.125, 1e-12) {
		t.Fatalf("expected mean of 0.2 and 0.05, got %v", atr.Value())
	}
}

func TestLinregEnd(t *testing.T) {
	// y = 2x + 1 for x = 0..4, most recent first.
	got := linregEnd([]float64{9, 7, 5, 3, 1})
	if !near(got, 9, 1e-12) {
		t.Fatalf("expected 9 got %v", got)
	}
	if linregEnd(nil) != 0 {
		t.Fatalf("empty regression should be 0")
	}
}

func TestAroonTracksRecentExtremes(t *testing.T) {
	a := NewAroon(5)
	for i := 0; i < 10; i++ {
		x := 1 + float64(i)*0.01
		a.Update(signal.Bar{High: x + 0.001, Low: x - 0.001, Close: x})
	}
	if a.Up != 100 || a.Down != 0 {
		t.Fatalf("rising market expected up=100 down=0, got %v %v", a.Up, a.Down)
	}
}

func TestHeikinAshiDirection(t *testing.T) {
	ha := NewHeikinAshi()
	for i := 0; i < 5; i++ {
		x := 1 + float64(i)*0.01
		ha.Update(signal.Bar{Open: x, High: x + 0.012, Low: x - 0.002, Close: x + 0.01})
	}
	if ha.Signal != signal.Long {
		t.Fatalf("expected bullish candles, got %v", ha.Signal)
	}
	for i := 0; i < 5; i++ {
		x := 1 - float64(i)*0.01
		ha.Update(signal.Bar{Open: x, High: x + 0.002, Low: x - 0.012, Close: x - 0.01})
	}
	if ha.Signal != signal.Short {
		t.Fatalf("expected bearish candles, got %v", ha.Signal)
	}
}

func TestSSLSwapsOnBreakout(t *testing.T) {
	f := NewSSL(3)
	for i := 0; i < 5; i++ {
		f.Update(signal.Bar{High: 1.01, Low: 0.99, Close: 1.0})
	}
	if f.Up >= f.Down {
		t.Fatalf("close inside channel: expected up < down, got %v %v", f.Up, f.Down)
	}
	f.Update(signal.Bar{High: 1.2, Low: 1.1, Close: 1.19})
	if f.Up <= f.Down {
		t.Fatalf("close above smoothed high: expected up > down, got %v %v", f.Up, f.Down)
	}
}

func TestKijunMidpoint(t *testing.T) {
	k := NewKijun(3)
	k.Update(signal.Bar{High: 2, Low: 1})
	k.Update(signal.Bar{High: 4, Low: 2})
	k.Update(signal.Bar{High: 3, Low: 0})
	if k.Value() != 2 {
		t.Fatalf("expected (4+0)/2, got %v", k.Value())
	}
}

func TestKVOSignFollowsVolumeFlow(t *testing.T) {
	k := NewKVO(3, 5, 2)
	for i := 0; i < 30; i++ {
		x := 1 + float64(i)*0.01
		k.Update(signal.Bar{High: x + 0.005, Low: x - 0.005, Close: x, Volume: 100 + float64(i)*10})
	}
	if !k.Ready() || k.KVO <= 0 {
		t.Fatalf("expected positive KVO on rising prices with growing volume, got %v", k.KVO)
	}
}

func TestDecyclerOscillatorIgnoresTrend(t *testing.T) {
	d := NewDecycler(48)
	mama := NewMAMA(20, 50)
	var x float64
	for i := 0; i < 600; i++ {
		x = flat + 0.001*float64(i)
		d.Update(x)
		mama.Update(signal.Bar{Open: x, High: x, Low: x, Close: x})
	}
	if !near(d.Osc, 0, 1e-8) {
		t.Fatalf("oscillator of a linear trend should settle at 0, got %v", d.Osc)
	}
	if !near(d.Decycle, x, 1e-6) {
		t.Fatalf("decycle should track a linear trend, got %v want %v", d.Decycle, x)
	}
	if !(mama.MAMA < x && mama.FAMA < mama.MAMA) {
		t.Fatalf("in an uptrend FAMA should lag MAMA which lags price, got mama %v fama %v price %v", mama.MAMA, mama.FAMA, x)
	}
}
