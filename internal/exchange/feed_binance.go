package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"nnfx-go/internal/metrics"
	"nnfx-go/internal/signal"
)

type binanceEnvelope struct {
	Stream string       `json:"stream"`
	Data   binanceEvent `json:"data"`
}

type binanceEvent struct {
	Symbol string       `json:"s"`
	Kline  binanceKline `json:"k"`
}

type binanceKline struct {
	CloseTime int64  `json:"T"`
	Open      string `json:"o"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Close     string `json:"c"`
	Volume    string `json:"v"`
	Closed    bool   `json:"x"`
}

const maxBackoff = 30 * time.Second

func (f *Feed) streamURL() string {
	symbols := f.Symbols()
	streams := make([]string, len(symbols))
	for i, sym := range symbols {
		streams[i] = strings.ToLower(sym) + "@kline_" + f.interval
	}
	return fmt.Sprintf("%s/stream?streams=%s", f.baseURL, strings.Join(streams, "/"))
}

func (f *Feed) runBinance(ctx context.Context, out chan<- signal.Bar) error {
	if len(f.Symbols()) == 0 {
		return errors.New("binance feed requires at least one symbol")
	}
	url := f.streamURL()
	backoff := f.backoff

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := f.consumeBinanceStream(ctx, url, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.FeedReconnectsTotal.WithLabelValues(ProviderBinance).Inc()
		f.log.Warn().Err(err).Dur("backoff", backoff).Msg("binance feed disconnected, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
	}
}

func (f *Feed) consumeBinanceStream(ctx context.Context, url string, out chan<- signal.Bar) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderBinance).Strs("symbols", f.Symbols()).Str("interval", f.interval).
		Msg("connected market data feed")

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				_ = conn.Close()
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var env binanceEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode binance message")
			continue
		}
		if !env.Data.Kline.Closed {
			continue
		}
		bar, err := env.bar()
		if err != nil {
			f.log.Warn().Err(err).Str("stream", env.Stream).Msg("invalid kline from binance")
			continue
		}
		if err := f.emit(ctx, out, bar); err != nil {
			return err
		}
	}
}

func (env binanceEnvelope) bar() (signal.Bar, error) {
	k := env.Data.Kline
	var vals [5]float64
	for i, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return signal.Bar{}, err
		}
		vals[i] = v
	}
	symbol := strings.ToUpper(env.Data.Symbol)
	if symbol == "" {
		symbol = parseBinanceSymbol(env.Stream)
	}
	return signal.Bar{
		Symbol: symbol,
		Ts:     k.CloseTime,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

func parseBinanceSymbol(stream string) string {
	sym, _, _ := strings.Cut(stream, "@")
	return strings.ToUpper(sym)
}
