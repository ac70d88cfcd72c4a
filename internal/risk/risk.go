// Package risk sizes entries from account equity, risk percentage and stop distance.
package risk

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Limits caps the units a single trade may carry. Zero disables the cap.
type Limits struct {
	MaxUnitsPerTrade float64
}

// Allow reports whether units fits under the cap.
func (l Limits) Allow(units float64) bool {
	return l.MaxUnitsPerTrade <= 0 || units <= l.MaxUnitsPerTrade
}

// Clamp returns units reduced to the cap.
func (l Limits) Clamp(units float64) float64 {
	if l.Allow(units) {
		return units
	}
	return l.MaxUnitsPerTrade
}

// Method is how the value of one pip is converted into the account currency.
type Method int

const (
	// QuoteIsAccount: the pair is quoted in the account currency.
	QuoteIsAccount Method = iota
	// BaseIsAccount: the pair's base is the account currency.
	BaseIsAccount
	// CrossRate: neither leg matches; a third pair supplies the conversion.
	CrossRate
)

func (m Method) String() string {
	switch m {
	case QuoteIsAccount:
		return "quote"
	case BaseIsAccount:
		return "base"
	default:
		return "cross"
	}
}

// SizingError means no position size could be computed for this bar. It is not fatal.
type SizingError struct {
	Symbol string
	Reason string
}

func (e *SizingError) Error() string {
	return fmt.Sprintf("size %s: %s", e.Symbol, e.Reason)
}

const (
	pipSize    = 0.0001
	pipSizeJPY = 0.01
)

// PipSize is 0.01 when either leg of the pair is JPY and 0.0001 otherwise.
func PipSize(base, quote string) float64 {
	if base == "JPY" || quote == "JPY" {
		return pipSizeJPY
	}
	return pipSize
}

// SplitSymbol separates a pair into base and quote. It accepts EURUSD, EUR_USD, EUR/USD and
// EUR-USD; other lengths are split on a trailing account currency.
func SplitSymbol(symbol, account string) (base, quote string, err error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, sep := range []string{"_", "/", "-"} {
		if parts := strings.Split(s, sep); len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			return parts[0], parts[1], nil
		}
	}
	account = strings.ToUpper(account)
	switch {
	case len(s) == 6:
		return s[:3], s[3:], nil
	case account != "" && len(s) > len(account) && strings.HasSuffix(s, account):
		return strings.TrimSuffix(s, account), account, nil
	case account != "" && len(s) > len(account) && strings.HasPrefix(s, account):
		return account, strings.TrimPrefix(s, account), nil
	}
	return "", "", &SizingError{Symbol: symbol, Reason: "cannot split symbol into base and quote"}
}

// Sizer computes entry sizes for one account.
type Sizer struct {
	Account     string
	RiskPercent float64
	Limits      Limits
}

// Size is the outcome of a sizing request. Half is the take-profit leg; the entry and the
// stop-loss carry 2*Half so the position splits evenly at take-profit.
type Size struct {
	Method   Method
	PipSize  float64
	PipValue float64
	Units    float64
	Half     decimal.Decimal
}

// Total is the full entry size.
func (s Size) Total() decimal.Decimal { return s.Half.Mul(decimal.NewFromInt(2)) }

// Size returns the position size for symbol at price with a stop stopDist away, risking
// RiskPercent of equity. closes holds the current close of every instrument, keyed by
// symbol, for cross-rate lookups.
func (s Sizer) Size(symbol string, price, stopDist, equity float64, closes map[string]float64) (Size, error) {
	base, quote, err := SplitSymbol(symbol, s.Account)
	if err != nil {
		return Size{}, err
	}
	if stopDist <= 0 || math.IsNaN(stopDist) {
		return Size{}, &SizingError{Symbol: symbol, Reason: fmt.Sprintf("stop distance %v must be positive", stopDist)}
	}
	if price <= 0 || equity <= 0 {
		return Size{}, &SizingError{Symbol: symbol, Reason: "price and equity must be positive"}
	}

	account := strings.ToUpper(s.Account)
	out := Size{PipSize: PipSize(base, quote)}
	cashRisk := equity * s.RiskPercent / 100
	stopPips := stopDist / out.PipSize
	out.PipValue = cashRisk / stopPips

	switch {
	case quote == account:
		out.Method = QuoteIsAccount
		out.Units = out.PipValue / out.PipSize
	case base == account:
		out.Method = BaseIsAccount
		out.Units = out.PipValue * price / out.PipSize
	default:
		out.Method = CrossRate
		rate, ok := crossRate(account, quote, closes)
		if !ok {
			return Size{}, &SizingError{Symbol: symbol,
				Reason: fmt.Sprintf("no %s%s or %s%s close for cross rate", account, quote, quote, account)}
		}
		out.Units = out.PipValue * rate / out.PipSize
	}

	out.Units = s.Limits.Clamp(out.Units)
	out.Half = decimal.NewFromFloat(out.Units).Div(decimal.NewFromInt(2)).RoundBank(0)
	if !out.Half.IsPositive() {
		return Size{}, &SizingError{Symbol: symbol, Reason: fmt.Sprintf("%.4f units rounds to zero", out.Units)}
	}
	return out, nil
}

// crossRate converts account currency into quote currency: the close of ACCOUNT+QUOTE, or
// the reciprocal of QUOTE+ACCOUNT.
func crossRate(account, quote string, closes map[string]float64) (float64, bool) {
	for sym, px := range closes {
		b, q, err := SplitSymbol(sym, account)
		if err != nil || px <= 0 {
			continue
		}
		if b == account && q == quote {
			return px, true
		}
	}
	for sym, px := range closes {
		b, q, err := SplitSymbol(sym, account)
		if err != nil || px <= 0 {
			continue
		}
		if b == quote && q == account {
			return 1 / px, true
		}
	}
	return 0, false
}

// ToAccount converts amount, denominated in symbol's quote currency, into the account
// currency. price is symbol's current close; closes supplies cross rates.
func ToAccount(symbol, account string, amount, price float64, closes map[string]float64) (float64, error) {
	account = strings.ToUpper(account)
	base, quote, err := SplitSymbol(symbol, account)
	if err != nil {
		return 0, err
	}
	switch {
	case quote == account:
		return amount, nil
	case base == account:
		if price <= 0 {
			return 0, &SizingError{Symbol: symbol, Reason: "price must be positive"}
		}
		return amount / price, nil
	}
	rate, ok := crossRate(account, quote, closes)
	if !ok {
		return 0, &SizingError{Symbol: symbol, Reason: fmt.Sprintf("no cross rate for %s into %s", quote, account)}
	}
	return amount / rate, nil
}
