package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"VolRank/internal/domain/models"
	drepo "VolRank/internal/domain/repository"
	xlogger "VolRank/pkg/logger"

	"github.com/gorilla/websocket"
)

const defaultStreamURL = "wss://stream.binance.com:9443/ws"

// Subscription batches are capped by the exchange.
const subscribeChunk = 100

// Stream implements a BarStream backed by the Binance kline WebSocket feed.
type Stream struct {
	url            string
	interval       models.Interval
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *xlogger.Logger

	conn      *websocket.Conn
	connected atomic.Bool // written by the read loop, read by the collector
	nextID    int
}

// NewStream creates a kline BarStream for the given interval.
func NewStream(url string, interval models.Interval, reconnectDelay, pingInterval time.Duration, logger *xlogger.Logger) drepo.BarStream {
	if url == "" {
		url = defaultStreamURL
	}
	return &Stream{
		url:            url,
		interval:       interval,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		logger:         logger,
	}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("kline stream connect: %w", err)
	}
	s.conn = conn
	s.connected.Store(true)
	s.logger.Info("kline stream connected", xlogger.String("url", s.url))
	return nil
}

type subscribeMessage struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// Subscribe subscribes to the kline stream of every symbol, in chunks.
func (s *Stream) Subscribe(_ context.Context, symbols []string) error {
	if s.conn == nil || !s.connected.Load() {
		return fmt.Errorf("kline stream not connected")
	}

	params := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		params = append(params, strings.ToLower(sym)+"@kline_"+string(s.interval))
	}

	for start := 0; start < len(params); start += subscribeChunk {
		end := start + subscribeChunk
		if end > len(params) {
			end = len(params)
		}
		s.nextID++
		msg := subscribeMessage{Method: "SUBSCRIBE", Params: params[start:end], ID: s.nextID}
		if err := s.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe chunk %d: %w", s.nextID, err)
		}
	}
	s.logger.Info("kline stream subscribed", xlogger.Int("symbols", len(symbols)))
	return nil
}

// wsKline is the kline body of one stream event. Prices and volumes arrive
// as strings, same as the REST tuple cells.
type wsKline struct {
	StartTime      int64  `json:"t"`
	EndTime        int64  `json:"T"`
	Symbol         string `json:"s"`
	Open           string `json:"o"`
	High           string `json:"h"`
	Low            string `json:"l"`
	Close          string `json:"c"`
	Volume         string `json:"v"` // base volume; REST tuple position 5
	TradeCount     int64  `json:"n"`
	QuoteVolume    string `json:"q"` // quote volume; REST tuple position 7
	TakerBuyBase   string `json:"V"`
	TakerBuyQuote  string `json:"Q"`
	IgnoreTrailing string `json:"B"`
}

type wsEvent struct {
	EventType string  `json:"e"`
	Symbol    string  `json:"s"`
	Kline     wsKline `json:"k"`
}

// Read streams bar events and errors.
func (s *Stream) Read(ctx context.Context) (<-chan models.BarEvent, <-chan error) {
	events := make(chan models.BarEvent, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(events)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("kline stream conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					s.connected.Store(false)
					errs <- fmt.Errorf("kline stream read: %w", err)
					return
				}
				var ev wsEvent
				if err := json.Unmarshal(b, &ev); err != nil {
					// subscription acks and other non-kline frames
					continue
				}
				if ev.EventType != "kline" {
					continue
				}
				bar, err := ev.Kline.toBar()
				if err != nil {
					s.logger.Warn("dropping malformed stream bar",
						xlogger.String("symbol", ev.Symbol), xlogger.Error(err))
					continue
				}
				select {
				case events <- models.BarEvent{Symbol: ev.Symbol, Bar: bar}:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return events, errs
}

// toBar maps the stream kline onto the REST tuple order so stream and REST
// bars are field-for-field interchangeable.
func (k wsKline) toBar() (models.Bar, error) {
	return models.NewBarFromRaw([]any{
		k.StartTime,
		k.Open,
		k.High,
		k.Low,
		k.Close,
		k.Volume,
		k.EndTime,
		k.QuoteVolume,
		k.TradeCount,
		k.TakerBuyBase,
		k.TakerBuyQuote,
		k.IgnoreTrailing,
	})
}

// Reconnect closes and reconnects, then resubscribes.
func (s *Stream) Reconnect(ctx context.Context, symbols []string) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx, symbols)
}

// Close closes the connection.
func (s *Stream) Close() error {
	s.connected.Store(false)
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected reports connection state.
func (s *Stream) IsConnected() bool { return s.connected.Load() }
