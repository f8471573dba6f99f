package models

import (
	"errors"
	"testing"
)

func rawRow() []any {
	return []any{
		float64(1700000000000), // open time
		"100.5",                // open
		"101.0",                // high
		"99.9",                 // low
		"100.7",                // close
		"12345.6",              // turnover
		float64(1700000059999), // close time
		"123.4",                // volume
		float64(321),           // trade count
		"6000.1",               // taker buying turnover
		"60.2",                 // taker buying volume
		"0",                    // ignore
	}
}

func TestNewBarFromRaw(t *testing.T) {
	b, err := NewBarFromRaw(rawRow())
	if err != nil {
		t.Fatalf("NewBarFromRaw: %v", err)
	}
	if b.StartTime != 1700000000000 || b.EndTime != 1700000059999 {
		t.Fatalf("unexpected times: %d..%d", b.StartTime, b.EndTime)
	}
	if b.Open != 100.5 || b.Close != 100.7 {
		t.Fatalf("unexpected prices: open=%v close=%v", b.Open, b.Close)
	}
	if b.Volume != 123.4 || b.BuyingVolume != 60.2 || b.BuyingTurnover != 6000.1 {
		t.Fatalf("unexpected volumes: %+v", b)
	}
	if b.TradeCount != 321 {
		t.Fatalf("unexpected trade count: %d", b.TradeCount)
	}
}

func TestNewBarFromRawShortRow(t *testing.T) {
	_, err := NewBarFromRaw(rawRow()[:11])
	var malformed *MalformedBarError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedBarError, got %v", err)
	}
	if malformed.Field != "row" {
		t.Fatalf("unexpected field: %s", malformed.Field)
	}
}

func TestNewBarFromRawBadCell(t *testing.T) {
	row := rawRow()
	row[10] = "not-a-number"
	_, err := NewBarFromRaw(row)
	var malformed *MalformedBarError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedBarError, got %v", err)
	}
	if malformed.Field != "buying_volume" {
		t.Fatalf("expected buying_volume, got %s", malformed.Field)
	}

	row = rawRow()
	row[0] = nil
	if _, err := NewBarFromRaw(row); err == nil {
		t.Fatalf("expected error for missing start time")
	}
}

func TestIntervalValidity(t *testing.T) {
	for _, iv := range []Interval{Interval1m, Interval3m, Interval15m, Interval1h, Interval4h, Interval1d} {
		if !IsValidInterval(iv) {
			t.Fatalf("%s should be valid", iv)
		}
	}
	for _, iv := range []Interval{"", "2m", "1w", "30s"} {
		if IsValidInterval(iv) {
			t.Fatalf("%s should be invalid", iv)
		}
	}
}
