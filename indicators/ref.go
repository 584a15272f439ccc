package indicators

import (
	"fmt"
	"strings"
)

// Kind names an indicator family.
type Kind string

const (
	KindPrice     Kind = "PRICE"
	KindSMA       Kind = "SMA"
	KindEMA       Kind = "EMA"
	KindRSI       Kind = "RSI"
	KindMACD      Kind = "MACD"
	KindBollinger Kind = "BOLLINGER"
	KindATR       Kind = "ATR"
)

// MACD and Bollinger defaults applied by Normalize.
const (
	DefaultMACDFast  = 12
	DefaultMACDSlow  = 26
	DefaultBandWidth = 2.0
)

// Ref identifies one indicator output. It is a comparable value and is the
// memoization key of Cache, so two equal Refs share one computed series.
//
// Period is the lookback for every kind except PRICE, where it must be 0.
// For MACD, Period is the signal EMA period and Fast/Slow are the line EMAs.
type Ref struct {
	Kind   Kind    `json:"kind" yaml:"kind"`
	Period int     `json:"period,omitempty" yaml:"period,omitempty"`
	Field  string  `json:"field,omitempty" yaml:"field,omitempty"`
	Fast   int     `json:"fast,omitempty" yaml:"fast,omitempty"`
	Slow   int     `json:"slow,omitempty" yaml:"slow,omitempty"`
	StdDev float64 `json:"stddev,omitempty" yaml:"stddev,omitempty"`
}

// Normalize returns r with case folded and defaults filled in, so refs that
// describe the same series compare equal.
func (r Ref) Normalize() Ref {
	r.Kind = Kind(strings.ToUpper(strings.TrimSpace(string(r.Kind))))
	r.Field = strings.ToLower(strings.TrimSpace(r.Field))

	switch r.Kind {
	case KindPrice:
		if r.Field == "" {
			r.Field = FieldClose
		}
		r.Fast, r.Slow, r.StdDev = 0, 0, 0
	case KindMACD:
		if r.Fast == 0 {
			r.Fast = DefaultMACDFast
		}
		if r.Slow == 0 {
			r.Slow = DefaultMACDSlow
		}
		if r.Field == "" {
			r.Field = FieldMACD
		}
	case KindBollinger:
		if r.StdDev == 0 {
			r.StdDev = DefaultBandWidth
		}
		if r.Field == "" {
			r.Field = FieldMiddle
		}
	default:
		// single-output kinds ignore the extra parameters
		r.Fast, r.Slow, r.StdDev = 0, 0, 0
	}
	return r
}

// Validate reports whether r describes a computable indicator.
func (r Ref) Validate() error {
	r = r.Normalize()

	switch r.Kind {
	case KindPrice:
		if r.Period != 0 {
			return fmt.Errorf("PRICE takes no period, got %d", r.Period)
		}
		switch r.Field {
		case FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume:
		default:
			return fmt.Errorf("PRICE has no field %q", r.Field)
		}
		return nil

	case KindSMA, KindEMA, KindRSI, KindATR:
		if r.Field != "" {
			return fmt.Errorf("%s has no field %q", r.Kind, r.Field)
		}

	case KindMACD:
		if r.Fast <= 0 || r.Slow <= 0 {
			return fmt.Errorf("MACD fast/slow periods must be positive, got %d/%d", r.Fast, r.Slow)
		}
		if r.Fast >= r.Slow {
			return fmt.Errorf("MACD fast period %d must be below slow period %d", r.Fast, r.Slow)
		}
		switch r.Field {
		case FieldMACD, FieldSignal, FieldHistogram:
		default:
			return fmt.Errorf("MACD has no field %q", r.Field)
		}

	case KindBollinger:
		if r.StdDev < 0 {
			return fmt.Errorf("BOLLINGER stddev multiplier must be positive, got %g", r.StdDev)
		}
		switch r.Field {
		case FieldMiddle, FieldUpper, FieldLower:
		default:
			return fmt.Errorf("BOLLINGER has no field %q", r.Field)
		}

	case "":
		return fmt.Errorf("indicator kind is required")
	default:
		return fmt.Errorf("unknown indicator kind %q", r.Kind)
	}

	if r.Period <= 0 {
		return fmt.Errorf("%s period must be positive, got %d", r.Kind, r.Period)
	}
	return nil
}

func (r Ref) String() string {
	r = r.Normalize()
	var s string
	switch r.Kind {
	case KindPrice:
		return "PRICE." + r.Field
	case KindMACD:
		s = fmt.Sprintf("MACD(%d,%d,%d)", r.Fast, r.Slow, r.Period)
	case KindBollinger:
		s = fmt.Sprintf("BOLLINGER(%d,%g)", r.Period, r.StdDev)
	default:
		return fmt.Sprintf("%s(%d)", r.Kind, r.Period)
	}
	return s + "." + r.Field
}

// New builds a fresh streaming indicator for r.
func New(r Ref) (Indicator, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r = r.Normalize()

	switch r.Kind {
	case KindPrice:
		return NewPrice(), nil
	case KindSMA:
		return NewMA(r.Period), nil
	case KindEMA:
		return NewEMA(r.Period), nil
	case KindRSI:
		return NewRSI(r.Period), nil
	case KindMACD:
		return NewMACD(r.Fast, r.Slow, r.Period), nil
	case KindBollinger:
		return NewBollinger(r.Period, r.StdDev), nil
	case KindATR:
		return NewATR(r.Period), nil
	}
	return nil, fmt.Errorf("unknown indicator kind %q", r.Kind)
}
