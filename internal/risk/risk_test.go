package risk

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAllow(t *testing.T) {
	limits := Limits{MaxUnitsPerTrade: 50}
	if !limits.Allow(49.9) {
		t.Fatalf("expected units under limit to pass")
	}
	if limits.Allow(50.1) {
		t.Fatalf("expected units above limit to fail")
	}
	if limits.Clamp(80) != 50 {
		t.Fatalf("expected clamp to cap")
	}
	if !(Limits{}).Allow(1e12) {
		t.Fatalf("zero cap should allow anything")
	}
}

func TestPipSize(t *testing.T) {
	if PipSize("USD", "JPY") != 100*PipSize("EUR", "USD") {
		t.Fatalf("JPY pip should be 100x larger")
	}
	if PipSize("JPY", "CHF") != 0.01 {
		t.Fatalf("JPY base should use 0.01")
	}
}

func TestSplitSymbol(t *testing.T) {
	cases := map[string][2]string{
		"EURUSD":  {"EUR", "USD"},
		"eur_usd": {"EUR", "USD"},
		"GBP/JPY": {"GBP", "JPY"},
		"BTCUSDT": {"BTC", "USDT"},
	}
	for in, want := range cases {
		b, q, err := SplitSymbol(in, "USDT")
		if err != nil || b != want[0] || q != want[1] {
			t.Fatalf("%s: expected %v got %s %s (%v)", in, want, b, q, err)
		}
	}
	if _, _, err := SplitSymbol("XAUUSDX", "EUR"); err == nil {
		t.Fatalf("expected error for unsplittable symbol")
	}
}

func TestSizeQuoteIsAccount(t *testing.T) {
	s := Sizer{Account: "USD", RiskPercent: 2}
	got, err := s.Size("EURUSD", 1.1, 0.005, 10000, nil)
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if got.Method != QuoteIsAccount || math.Abs(got.Units-40000) > 1e-6 {
		t.Fatalf("expected 40000 units via quote method, got %+v", got)
	}
	if !got.Half.Equal(decimal.NewFromInt(20000)) || !got.Total().Equal(decimal.NewFromInt(40000)) {
		t.Fatalf("expected half 20000, got %s", got.Half)
	}
}

func TestSizeScalesLinearly(t *testing.T) {
	base := Sizer{Account: "USD", RiskPercent: 1}
	double := Sizer{Account: "USD", RiskPercent: 2}
	a, _ := base.Size("EURUSD", 1.1, 0.004, 10000, nil)
	b, _ := double.Size("EURUSD", 1.1, 0.004, 10000, nil)
	if math.Abs(b.Units-2*a.Units) > 1e-6 {
		t.Fatalf("doubling risk should double units: %v vs %v", a.Units, b.Units)
	}
	c, _ := base.Size("EURUSD", 1.1, 0.008, 10000, nil)
	if math.Abs(a.Units-2*c.Units) > 1e-6 {
		t.Fatalf("doubling stop distance should halve units: %v vs %v", a.Units, c.Units)
	}
}

func TestSizeBaseIsAccount(t *testing.T) {
	s := Sizer{Account: "USD", RiskPercent: 2}
	got, err := s.Size("USDJPY", 150, 0.5, 10000, nil)
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if got.Method != BaseIsAccount || got.PipSize != 0.01 || math.Abs(got.Units-60000) > 1e-6 {
		t.Fatalf("expected 60000 units via base method, got %+v", got)
	}
}

func TestSizeCrossRate(t *testing.T) {
	s := Sizer{Account: "USD", RiskPercent: 2}
	got, err := s.Size("EURGBP", 0.85, 0.005, 10000, map[string]float64{"GBPUSD": 1.25, "EURGBP": 0.85})
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if got.Method != CrossRate || math.Abs(got.Units-32000) > 1e-6 {
		t.Fatalf("expected 32000 units via inverse cross rate, got %+v", got)
	}

	direct, err := s.Size("EURGBP", 0.85, 0.005, 10000, map[string]float64{"USDGBP": 0.8})
	if err != nil || math.Abs(direct.Units-32000) > 1e-6 {
		t.Fatalf("expected 32000 units via direct cross rate, got %+v (%v)", direct, err)
	}
}

func TestSizeCrossRateMissing(t *testing.T) {
	s := Sizer{Account: "USD", RiskPercent: 2}
	_, err := s.Size("EURGBP", 0.85, 0.005, 10000, map[string]float64{"EURGBP": 0.85})
	var sizingErr *SizingError
	if !errors.As(err, &sizingErr) {
		t.Fatalf("expected SizingError, got %v", err)
	}
}

func TestSizeRejectsDegenerateInputs(t *testing.T) {
	s := Sizer{Account: "USD", RiskPercent: 2}
	var sizingErr *SizingError
	if _, err := s.Size("EURUSD", 1.1, 0, 10000, nil); !errors.As(err, &sizingErr) {
		t.Fatalf("zero stop distance should fail, got %v", err)
	}
	if _, err := s.Size("EURUSD", 1.1, 0.005, 0.01, nil); !errors.As(err, &sizingErr) {
		t.Fatalf("size rounding to zero should fail, got %v", err)
	}
}

func TestToAccount(t *testing.T) {
	closes := map[string]float64{"GBPUSD": 1.25, "EURGBP": 0.85}
	cases := []struct {
		symbol string
		price  float64
		want   float64
	}{
		{"EURUSD", 1.1, 100},
		{"USDJPY", 150, 100.0 / 150},
		{"EURGBP", 0.85, 100 * 1.25},
	}
	for _, c := range cases {
		got, err := ToAccount(c.symbol, "USD", 100, c.price, closes)
		if err != nil {
			t.Fatalf("%s: %v", c.symbol, err)
		}
		if math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("%s: expected %v got %v", c.symbol, c.want, got)
		}
	}
	var se *SizingError
	if _, err := ToAccount("AUDNZD", "USD", 100, 1.1, closes); !errors.As(err, &se) {
		t.Fatalf("expected SizingError without a cross rate, got %v", err)
	}
}
