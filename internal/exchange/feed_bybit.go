package exchange

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sergvlet/AiTradeBot-sub002/internal/market"
)

// ExchangeBybit is the canonical name stamped onto Bybit ticks.
const ExchangeBybit = "BYBIT"

type bybitSubscribe struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

type bybitEnvelope struct {
	Topic string `json:"topic"`
	Data  []struct {
		Symbol    string `json:"s"`
		Price     string `json:"p"`
		Size      string `json:"v"`
		TradeTime int64  `json:"T"`
	} `json:"data"`
}

// BybitAdapter streams public trades from Bybit v5. Bybit multiplexes topics
// over one endpoint, so a subscribe frame is sent right after connect.
type BybitAdapter struct {
	BaseURL string
}

// NewBybitAdapter targets the production spot public stream.
func NewBybitAdapter() *BybitAdapter {
	return &BybitAdapter{BaseURL: "wss://stream.bybit.com/v5/public/spot"}
}

// Exchange implements Adapter.
func (a *BybitAdapter) Exchange() string { return ExchangeBybit }

// URL implements Adapter.
func (a *BybitAdapter) URL(string) string { return a.BaseURL }

// Subscribe implements Adapter.
func (a *BybitAdapter) Subscribe(conn *websocket.Conn, symbol string) error {
	frame := bybitSubscribe{Op: "subscribe", Args: []string{"publicTrade." + symbol}}
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// Parse implements Adapter. Trade topics batch several prints per frame;
// every print becomes a tick so candle volume stays complete. Subscription
// acks and pongs carry no topic and are skipped.
func (a *BybitAdapter) Parse(raw []byte, symbol string) ([]market.Tick, error) {
	var env bybitEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Topic == "" || len(env.Data) == 0 {
		return nil, nil
	}

	ticks := make([]market.Tick, 0, len(env.Data))
	for _, row := range env.Data {
		px, err := strconv.ParseFloat(row.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q: %w", row.Price, err)
		}
		qty, err := strconv.ParseFloat(row.Size, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid size %q: %w", row.Size, err)
		}

		sym := row.Symbol
		if sym == "" {
			sym = symbol
		}
		ticks = append(ticks, market.Tick{
			Exchange: ExchangeBybit,
			Symbol:   market.NormalizeSymbol(sym),
			Price:    px,
			Qty:      qty,
			Ts:       time.UnixMilli(row.TradeTime),
		})
	}
	return ticks, nil
}
