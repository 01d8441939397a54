// Package exchange hosts the streaming connectors that pull public trade
// feeds from centralized venues. Each (exchange, symbol) pair owns one
// websocket connection with its own reconnect loop.
package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/sergvlet/AiTradeBot-sub002/internal/market"
	"github.com/sergvlet/AiTradeBot-sub002/internal/metrics"
)

// Sink receives normalized ticks from feed connections.
type Sink interface {
	Route(market.Tick)
}

// Adapter captures the venue-specific half of a feed connection: where to
// dial, how to subscribe, and how to decode messages into ticks.
type Adapter interface {
	// Exchange returns the canonical venue name stamped onto ticks.
	Exchange() string
	// URL builds the websocket endpoint for one symbol's trade stream.
	URL(symbol string) string
	// Subscribe sends the subscription frame where the venue protocol
	// requires one after connect. Venues that encode the subscription in
	// the URL return nil without writing.
	Subscribe(conn *websocket.Conn, symbol string) error
	// Parse decodes one raw message into its trade prints, in arrival
	// order. Venues batch several prints per frame, so one message may
	// yield many ticks. An empty slice marks control frames and other
	// non-trade payloads that should be skipped silently.
	Parse(raw []byte, symbol string) ([]market.Tick, error)
}

const (
	reconnectDelay   = 3 * time.Second
	handshakeTimeout = 10 * time.Second
	readTimeout      = 30 * time.Second
	pingInterval     = 15 * time.Second
)

type connState struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	open bool
}

func (c *connState) setOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}

func (c *connState) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Manager owns the live feed connections for one venue. Connections for
// different symbols are independent: disconnecting one symbol never touches
// the others.
type Manager struct {
	adapter Adapter
	sink    Sink
	log     zerolog.Logger

	mu    sync.Mutex
	conns map[string]*connState
}

// NewManager builds a feed manager for a venue adapter.
func NewManager(adapter Adapter, sink Sink, log zerolog.Logger) *Manager {
	return &Manager{
		adapter: adapter,
		sink:    sink,
		log:     log.With().Str("exchange", adapter.Exchange()).Logger(),
		conns:   make(map[string]*connState),
	}
}

// Connect opens a streaming connection for the symbol. Calling Connect for
// an already-connected symbol is a no-op.
func (m *Manager) Connect(ctx context.Context, symbol string) {
	symbol = market.NormalizeSymbol(symbol)
	if symbol == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.conns[symbol]; exists {
		return
	}

	connCtx, cancel := context.WithCancel(ctx)
	state := &connState{cancel: cancel, done: make(chan struct{})}
	m.conns[symbol] = state

	go m.runLoop(connCtx, symbol, state)
}

// Disconnect tears down the symbol's connection and waits for its loop to
// exit. Unknown symbols are ignored.
func (m *Manager) Disconnect(symbol string) {
	symbol = market.NormalizeSymbol(symbol)

	m.mu.Lock()
	state := m.conns[symbol]
	delete(m.conns, symbol)
	m.mu.Unlock()

	if state == nil {
		return
	}
	state.cancel()
	<-state.done
	m.log.Info().Str("sym", symbol).Msg("feed disconnected")
}

// Shutdown disconnects every symbol and waits for all loops to exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	symbols := make([]string, 0, len(m.conns))
	for symbol := range m.conns {
		symbols = append(symbols, symbol)
	}
	m.mu.Unlock()

	for _, symbol := range symbols {
		m.Disconnect(symbol)
	}
}

// IsConnected reports whether the symbol currently has an open socket.
func (m *Manager) IsConnected(symbol string) bool {
	m.mu.Lock()
	state := m.conns[market.NormalizeSymbol(symbol)]
	m.mu.Unlock()
	return state != nil && state.isOpen()
}

// runLoop rebuilds the connection after any failure. Network flaps and peer
// closes are treated the same: wait the fixed delay, redial, resubscribe.
func (m *Manager) runLoop(ctx context.Context, symbol string, state *connState) {
	defer close(state.done)

	for {
		if ctx.Err() != nil {
			return
		}
		err := m.consume(ctx, symbol, state)
		state.setOpen(false)
		if ctx.Err() != nil {
			return
		}
		metrics.FeedReconnects.WithLabelValues(m.adapter.Exchange(), symbol).Inc()
		m.log.Warn().Err(err).Str("sym", symbol).Msg("feed dropped, reconnecting")
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) consume(ctx context.Context, symbol string, state *connState) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, m.adapter.URL(symbol), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := m.adapter.Subscribe(conn, symbol); err != nil {
		return err
	}
	state.setOpen(true)
	m.log.Info().Str("sym", symbol).Msg("connected market data feed")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					m.log.Warn().Err(err).Str("sym", symbol).Msg("feed ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ticks, err := m.adapter.Parse(raw, symbol)
		if err != nil {
			// Malformed messages are dropped, never fatal.
			m.log.Warn().Err(err).Str("sym", symbol).Msg("failed to decode feed message")
			continue
		}
		for _, tick := range ticks {
			m.sink.Route(tick)
			metrics.TicksTotal.WithLabelValues(tick.Symbol).Inc()
		}
	}
}
