package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ErrReconnect wraps connection failures reported through the errs channel
// while the stream backs off and retries.
var ErrReconnect = errors.New("ws reconnect")

// Candle is a live kline update tagged with its pair.
type Candle struct {
	Pair  string
	Kline Kline
	Final bool // true once the candle is closed
}

// WS streams candle updates for a set of pairs, reconnecting with
// exponential backoff on failure.
type WS struct{ url string }

// NewWS returns a WebSocket feed against the given URL.
func NewWS(u string) WS { return WS{u} }

// Stream runs until ctx is cancelled, pushing parsed candles into out and
// non-fatal errors into errs (dropped when errs is full).
func (w WS) Stream(ctx context.Context, pairs []string, interval string, out chan<- Candle, errs chan<- error, ping time.Duration) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := w.streamOnce(ctx, pairs, interval, out, errs, ping); err != nil {
				log.Warn().Err(err).Dur("backoff", backoff).Msg("WebSocket connection failed, reconnecting")
				select {
				case errs <- fmt.Errorf("%w: %s", ErrReconnect, err):
				default:
				}

				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return ctx.Err()
				}

				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}
			backoff = time.Second
		}
	}
}

func (w WS) streamOnce(ctx context.Context, pairs []string, interval string, out chan<- Candle, errs chan<- error, ping time.Duration) error {
	log.Info().Str("url", w.url).Int("pairs_count", len(pairs)).Msg("establishing WebSocket connection")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// subscription payload
	var args []map[string]string
	for _, p := range pairs {
		args = append(args, map[string]string{"symbol": p, "ch": "kline_" + interval})
	}
	if err := conn.WriteJSON(map[string]any{"op": "subscribe", "args": args}); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}
	log.Info().Strs("pairs", pairs).Str("interval", interval).Msg("subscribed to kline channels")

	pingTicker := time.NewTicker(ping)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
		default:
			conn.SetReadDeadline(time.Now().Add(30 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Error().Err(err).Msg("WebSocket connection closed unexpectedly")
				}
				return fmt.Errorf("read message failed: %w", err)
			}

			candle, ok, err := parseCandle(msg)
			if err != nil {
				select {
				case errs <- fmt.Errorf("parse candle: %w", err):
				default:
				}
				continue
			}
			if !ok {
				continue // subscription ack or unknown channel
			}

			select {
			case out <- candle:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

type klineMsg struct {
	Ch     string `json:"ch"`
	Symbol string `json:"symbol"`
	Data   struct {
		OpenTime  int64   `json:"openTime"`
		Open      float64 `json:"open,string"`
		High      float64 `json:"high,string"`
		Low       float64 `json:"low,string"`
		Close     float64 `json:"close,string"`
		Volume    float64 `json:"volume,string"`
		CloseTime int64   `json:"closeTime"`
		Final     bool    `json:"final"`
	} `json:"data"`
}

func parseCandle(msg []byte) (Candle, bool, error) {
	var m klineMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return Candle{}, false, err
	}
	if len(m.Ch) < 6 || m.Ch[:6] != "kline_" {
		return Candle{}, false, nil
	}
	if m.Symbol == "" {
		return Candle{}, false, fmt.Errorf("missing symbol in kline message")
	}
	return Candle{
		Pair: m.Symbol,
		Kline: Kline{
			OpenTime:  m.Data.OpenTime,
			Open:      m.Data.Open,
			High:      m.Data.High,
			Low:       m.Data.Low,
			Close:     m.Data.Close,
			Volume:    m.Data.Volume,
			CloseTime: m.Data.CloseTime,
		},
		Final: m.Data.Final,
	}, true, nil
}
