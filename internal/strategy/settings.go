package strategy

import (
	"encoding/json"
	"fmt"
)

// Strategy type tags. They key the settings union, the decision registry and
// the tuner registry.
const (
	TypeMomentum    = "MOMENTUM"
	TypeWindowRange = "WINDOW_RANGE"
)

// Settings is the per-strategy parameter union. Each variant is a plain
// struct tagged by its strategy type; consumers type-switch on the concrete
// variant instead of reflecting over fields.
type Settings interface {
	StrategyType() string
}

// MomentumSettings parameterizes the momentum decision.
type MomentumSettings struct {
	WindowBars   int     `json:"windowBars"`
	ThresholdPct float64 `json:"thresholdPct"` // fraction, 0.02 = 2%
	MinVolume    float64 `json:"minVolume"`    // quote-denominated window volume floor
	Qty          float64 `json:"qty"`          // base-asset order size
}

func (MomentumSettings) StrategyType() string { return TypeMomentum }

// WindowRangeSettings parameterizes the window-range decision.
type WindowRangeSettings struct {
	WindowBars   int     `json:"windowBars"`
	BuyBelowPct  float64 `json:"buyBelowPct"`  // buy when price sits in the bottom fraction of the range
	SellAbovePct float64 `json:"sellAbovePct"` // sell when price sits in the top fraction
	Qty          float64 `json:"qty"`
}

func (WindowRangeSettings) StrategyType() string { return TypeWindowRange }

// DefaultSettings returns the starting parameters for a strategy type.
func DefaultSettings(strategyType string) (Settings, error) {
	switch strategyType {
	case TypeMomentum:
		return MomentumSettings{WindowBars: 30, ThresholdPct: 0.02, MinVolume: 0, Qty: 0.001}, nil
	case TypeWindowRange:
		return WindowRangeSettings{WindowBars: 60, BuyBelowPct: 0.2, SellAbovePct: 0.8, Qty: 0.001}, nil
	default:
		return nil, fmt.Errorf("unknown strategy type %q", strategyType)
	}
}

type settingsEnvelope struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
}

// EncodeSettings serializes a settings variant with its type tag.
func EncodeSettings(s Settings) ([]byte, error) {
	params, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(settingsEnvelope{Type: s.StrategyType(), Params: params})
}

// DecodeSettings reverses EncodeSettings using an explicit per-type switch.
func DecodeSettings(raw []byte) (Settings, error) {
	var env settingsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode settings envelope: %w", err)
	}
	switch env.Type {
	case TypeMomentum:
		var s MomentumSettings
		if err := json.Unmarshal(env.Params, &s); err != nil {
			return nil, fmt.Errorf("decode %s params: %w", env.Type, err)
		}
		return s, nil
	case TypeWindowRange:
		var s WindowRangeSettings
		if err := json.Unmarshal(env.Params, &s); err != nil {
			return nil, fmt.Errorf("decode %s params: %w", env.Type, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown strategy type %q", env.Type)
	}
}
