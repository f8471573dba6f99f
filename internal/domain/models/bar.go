package models

import (
	"fmt"
	"strconv"
	"time"
)

// Interval is a bar period accepted by the exchange klines endpoint.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)

// IsValidInterval returns true if iv is a supported bar interval.
func IsValidInterval(iv Interval) bool {
	switch iv {
	case Interval1m, Interval3m, Interval15m, Interval1h, Interval4h, Interval1d:
		return true
	default:
		return false
	}
}

// Duration returns the wall-clock length of one bar of this interval.
func (iv Interval) Duration() time.Duration {
	switch iv {
	case Interval1m:
		return time.Minute
	case Interval3m:
		return 3 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval1h:
		return time.Hour
	case Interval4h:
		return 4 * time.Hour
	case Interval1d:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

// Bar is one interval's trading summary. Immutable after construction:
// windows replace bars, they never mutate them in place.
type Bar struct {
	StartTime      int64   `json:"start_time"` // epoch ms
	EndTime        int64   `json:"end_time"`   // epoch ms
	Open           float64 `json:"open"`
	High           float64 `json:"high"`
	Low            float64 `json:"low"`
	Close          float64 `json:"close"`
	Turnover       float64 `json:"turnover"`
	Volume         float64 `json:"volume"`
	TradeCount     int64   `json:"trade_count"`
	BuyingTurnover float64 `json:"buying_turnover"`
	BuyingVolume   float64 `json:"buying_volume"`
	Ignore         string  `json:"-"` // opaque trailing field, preserved as text
}

// rawBarFields is the fixed order of the 12-element kline tuple returned by
// the exchange: open time, OHLC, turnover, close time, volume, trade count,
// taker buying turnover, taker buying volume, ignore.
const rawBarFields = 12

// NewBarFromRaw builds a Bar from one raw kline row. Cells arrive from JSON
// as either strings or numbers depending on the field.
func NewBarFromRaw(raw []any) (Bar, error) {
	if len(raw) != rawBarFields {
		return Bar{}, &MalformedBarError{Field: "row", Reason: fmt.Sprintf("expected %d fields, got %d", rawBarFields, len(raw))}
	}

	var (
		b   Bar
		err error
	)
	if b.StartTime, err = coerceInt(raw[0]); err != nil {
		return Bar{}, &MalformedBarError{Field: "start_time", Reason: err.Error()}
	}
	if b.Open, err = coerceFloat(raw[1]); err != nil {
		return Bar{}, &MalformedBarError{Field: "open", Reason: err.Error()}
	}
	if b.High, err = coerceFloat(raw[2]); err != nil {
		return Bar{}, &MalformedBarError{Field: "high", Reason: err.Error()}
	}
	if b.Low, err = coerceFloat(raw[3]); err != nil {
		return Bar{}, &MalformedBarError{Field: "low", Reason: err.Error()}
	}
	if b.Close, err = coerceFloat(raw[4]); err != nil {
		return Bar{}, &MalformedBarError{Field: "close", Reason: err.Error()}
	}
	if b.Turnover, err = coerceFloat(raw[5]); err != nil {
		return Bar{}, &MalformedBarError{Field: "turnover", Reason: err.Error()}
	}
	if b.EndTime, err = coerceInt(raw[6]); err != nil {
		return Bar{}, &MalformedBarError{Field: "end_time", Reason: err.Error()}
	}
	if b.Volume, err = coerceFloat(raw[7]); err != nil {
		return Bar{}, &MalformedBarError{Field: "volume", Reason: err.Error()}
	}
	if b.TradeCount, err = coerceInt(raw[8]); err != nil {
		return Bar{}, &MalformedBarError{Field: "trade_count", Reason: err.Error()}
	}
	if b.BuyingTurnover, err = coerceFloat(raw[9]); err != nil {
		return Bar{}, &MalformedBarError{Field: "buying_turnover", Reason: err.Error()}
	}
	if b.BuyingVolume, err = coerceFloat(raw[10]); err != nil {
		return Bar{}, &MalformedBarError{Field: "buying_volume", Reason: err.Error()}
	}
	b.Ignore = coerceString(raw[11])

	return b, nil
}

// BarEvent is one live update pushed by a bar stream.
type BarEvent struct {
	Symbol string
	Bar    Bar
}

// StartAt returns the bar's open time shifted by offsetHours.
func (b Bar) StartAt(offsetHours int) time.Time {
	return time.UnixMilli(b.StartTime).UTC().Add(time.Duration(offsetHours) * time.Hour)
}

// EndAt returns the bar's close time shifted by offsetHours.
func (b Bar) EndAt(offsetHours int) time.Time {
	return time.UnixMilli(b.EndTime).UTC().Add(time.Duration(offsetHours) * time.Hour)
}

func coerceFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("not a float: %q", n)
		}
		return f, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func coerceInt(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", n)
		}
		return i, nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
