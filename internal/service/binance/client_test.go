package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"VolRank/internal/domain/models"
	"VolRank/internal/service/ratelimit"
	xhttp "VolRank/pkg/http"
)

func newTestClient(t *testing.T, spot, futures string) *Client {
	t.Helper()
	return New(
		xhttp.NewClient(xhttp.WithTimeout(2*time.Second)),
		ratelimit.New(),
		WithSpotBaseURL(spot),
		WithFuturesBaseURL(futures),
		WithTimeZone(0),
	)
}

func TestFetchBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "1h" || q.Get("limit") != "2" {
			t.Errorf("unexpected query %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			[1700000000000,"100","101","99","100.5","1000",1700003599999,"10",50,"600","6","0"],
			[1700003600000,"100.5","102","100","101","1200",1700007199999,"12",60,"700","7","0"]
		]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	bars, err := c.FetchBars(context.Background(), "BTCUSDT", models.Interval1h, 2)
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].StartTime != 1700000000000 || bars[0].BuyingVolume != 6 {
		t.Fatalf("unexpected first bar: %+v", bars[0])
	}
	if bars[1].TradeCount != 60 || bars[1].BuyingTurnover != 700 {
		t.Fatalf("unexpected second bar: %+v", bars[1])
	}
}

func TestFetchBarsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	_, err := c.FetchBars(context.Background(), "NOPEUSDT", models.Interval1h, 1)
	if !errors.Is(err, models.ErrDataSource) {
		t.Fatalf("expected ErrDataSource, got %v", err)
	}
}

func TestFetchBarsMalformedRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[[1700000000000,"100","101","99","100.5","1000",1700003599999,"10",50,"600","not-a-number","0"]]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	_, err := c.FetchBars(context.Background(), "BTCUSDT", models.Interval1h, 1)
	var malformed *models.MalformedBarError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedBarError, got %v", err)
	}
	if malformed.Field != "buying_volume" {
		t.Fatalf("unexpected field %q", malformed.Field)
	}
}

func TestListSpotSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/exchangeInfo" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbols":[{"symbol":"BTCUSDT","status":"TRADING"},{"symbol":"XYZUSDT","status":"BREAK"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	symbols, err := c.ListSpotSymbols(context.Background())
	if err != nil {
		t.Fatalf("ListSpotSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0].Symbol != "BTCUSDT" || symbols[1].Status != "BREAK" {
		t.Fatalf("unexpected symbols: %+v", symbols)
	}
}

func TestListDerivativeSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/exchangeInfo" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbols":[{"pair":"BTCUSDT"},{"pair":"ETHUSDT"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	pairs, err := c.ListDerivativeSymbols(context.Background())
	if err != nil {
		t.Fatalf("ListDerivativeSymbols: %v", err)
	}
	if len(pairs) != 2 || pairs[0].Pair != "BTCUSDT" || pairs[1].Pair != "ETHUSDT" {
		t.Fatalf("unexpected pairs: %+v", pairs)
	}
}
