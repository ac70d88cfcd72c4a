package exchange

import (
	"bufio"
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"nnfx-go/internal/signal"
)

// LoadCSV reads closed bars for symbol from a timestamp,open,high,low,close[,volume]
// file. Timestamps are unix milliseconds. A header row, a UTF-8 or UTF-16 byte order
// mark and quoted fields are tolerated; unparseable rows are skipped. Bars are returned
// in time order with duplicate timestamps dropped.
func LoadCSV(path, symbol string) ([]signal.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()
	bars, err := ReadCSV(f, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// ReadCSV is LoadCSV over an arbitrary reader.
func ReadCSV(r io.Reader, symbol string) ([]signal.Bar, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(bufio.NewReader(decoded))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var bars []signal.Bar
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, err
		}
		if b, ok := parseRecord(rec, symbol); ok {
			bars = append(bars, b)
		}
	}
	if len(bars) == 0 {
		return nil, errors.New("no bars")
	}
	slices.SortStableFunc(bars, func(a, b signal.Bar) int { return cmp.Compare(a.Ts, b.Ts) })
	return slices.CompactFunc(bars, func(a, b signal.Bar) bool { return a.Ts == b.Ts }), nil
}

func parseRecord(rec []string, symbol string) (signal.Bar, bool) {
	if len(rec) < 5 {
		return signal.Bar{}, false
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
	if err != nil {
		return signal.Bar{}, false
	}
	var vals [5]float64
	for i := 1; i < len(rec) && i <= 5; i++ {
		d, err := decimal.NewFromString(strings.TrimSpace(rec[i]))
		if err != nil {
			if i == 5 {
				break
			}
			return signal.Bar{}, false
		}
		vals[i-1] = d.InexactFloat64()
	}
	b := signal.Bar{Symbol: symbol, Ts: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4]}
	if b.High < b.Low || b.Close <= 0 {
		return signal.Bar{}, false
	}
	return b, true
}

// Align merges per-symbol histories into timesteps the way the live stepper does: a
// timestep carries every symbol that closed at that time.
func Align(histories map[string][]signal.Bar) [][]signal.Bar {
	symbols := make([]string, 0, len(histories))
	var all []signal.Bar
	for sym, bars := range histories {
		symbols = append(symbols, sym)
		for _, b := range bars {
			b.Symbol = sym
			all = append(all, b)
		}
	}
	slices.SortFunc(all, func(a, b signal.Bar) int {
		if c := cmp.Compare(a.Ts, b.Ts); c != 0 {
			return c
		}
		return cmp.Compare(a.Symbol, b.Symbol)
	})

	st := NewStepper(symbols)
	var steps [][]signal.Bar
	for _, b := range all {
		steps = append(steps, st.Add(b)...)
	}
	return append(steps, st.Flush()...)
}
