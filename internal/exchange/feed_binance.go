package exchange

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sergvlet/AiTradeBot-sub002/internal/market"
)

// ExchangeBinance is the canonical name stamped onto Binance ticks.
const ExchangeBinance = "BINANCE"

type binanceTrade struct {
	Event     string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

// BinanceAdapter streams public trades from Binance. The subscription is
// encoded in the connection URL, so no subscribe frame is needed.
type BinanceAdapter struct {
	BaseURL string
}

// NewBinanceAdapter targets the production spot stream endpoint.
func NewBinanceAdapter() *BinanceAdapter {
	return &BinanceAdapter{BaseURL: "wss://stream.binance.com:9443/ws"}
}

// Exchange implements Adapter.
func (a *BinanceAdapter) Exchange() string { return ExchangeBinance }

// URL implements Adapter.
func (a *BinanceAdapter) URL(symbol string) string {
	return fmt.Sprintf("%s/%s@trade", a.BaseURL, strings.ToLower(symbol))
}

// Subscribe implements Adapter; Binance needs no explicit frame.
func (a *BinanceAdapter) Subscribe(*websocket.Conn, string) error { return nil }

// Parse implements Adapter. Binance sends one print per trade message.
func (a *BinanceAdapter) Parse(raw []byte, symbol string) ([]market.Tick, error) {
	var msg binanceTrade
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	if msg.Event != "trade" {
		return nil, nil
	}

	px, err := strconv.ParseFloat(msg.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", msg.Price, err)
	}
	qty, err := strconv.ParseFloat(msg.Quantity, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %q: %w", msg.Quantity, err)
	}

	sym := msg.Symbol
	if sym == "" {
		sym = symbol
	}
	return []market.Tick{{
		Exchange: ExchangeBinance,
		Symbol:   market.NormalizeSymbol(sym),
		Price:    px,
		Qty:      qty,
		Ts:       time.UnixMilli(msg.TradeTime),
	}}, nil
}
