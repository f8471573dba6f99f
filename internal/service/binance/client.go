package binance

import (
	"context"
	"fmt"
	"strconv"

	"VolRank/internal/domain/models"
	drepo "VolRank/internal/domain/repository"
	"VolRank/internal/service/ratelimit"
	xhttp "VolRank/pkg/http"
)

const (
	defaultSpotBaseURL    = "https://api.binance.com"
	defaultFuturesBaseURL = "https://fapi.binance.com"

	// Request-weight budget per minute on the spot REST API.
	weightCapacity     = 1200
	weightRefillPerSec = weightCapacity / 60.0

	klinesWeight       = 2
	exchangeInfoWeight = 20
)

// Client fetches bars and listings from the Binance REST API. It implements
// both BarSource and SymbolListing.
type Client struct {
	http           *xhttp.Client
	limiter        *ratelimit.Limiter
	spotBaseURL    string
	futuresBaseURL string
	timeZone       string
}

// Option configures Client.
type Option func(*Client)

// WithSpotBaseURL overrides the spot REST host.
func WithSpotBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.spotBaseURL = u
		}
	}
}

// WithFuturesBaseURL overrides the USD-M futures REST host.
func WithFuturesBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.futuresBaseURL = u
		}
	}
}

// WithTimeZone sets the timeZone query parameter passed to the klines
// endpoint, in hours relative to UTC.
func WithTimeZone(offsetHours int) Option {
	return func(c *Client) {
		c.timeZone = strconv.Itoa(offsetHours)
	}
}

// New creates a Binance REST client.
func New(httpClient *xhttp.Client, limiter *ratelimit.Limiter, opts ...Option) *Client {
	c := &Client{
		http:           httpClient,
		limiter:        limiter,
		spotBaseURL:    defaultSpotBaseURL,
		futuresBaseURL: defaultFuturesBaseURL,
		timeZone:       "0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ drepo.BarSource     = (*Client)(nil)
	_ drepo.SymbolListing = (*Client)(nil)
)

// FetchBars returns the limit most recent bars for symbol, oldest first.
// A short history returns fewer bars; the caller decides whether that is
// acceptable.
func (c *Client) FetchBars(ctx context.Context, symbol string, interval models.Interval, limit int) ([]models.Bar, error) {
	c.limiter.Wait(c.spotBaseURL, weightCapacity, weightRefillPerSec, klinesWeight)

	var rows [][]any
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.spotBaseURL + "/api/v3/klines",
		QueryParams: map[string][]string{
			"symbol":   {symbol},
			"interval": {string(interval)},
			"limit":    {strconv.Itoa(limit)},
			"timeZone": {c.timeZone},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("klines %s: %v: %w", symbol, err, models.ErrDataSource)
	}

	bars := make([]models.Bar, 0, len(rows))
	for i, row := range rows {
		b, err := models.NewBarFromRaw(row)
		if err != nil {
			return nil, fmt.Errorf("klines %s row %d: %w", symbol, i, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

type spotExchangeInfo struct {
	Symbols []models.SpotSymbol `json:"symbols"`
}

// ListSpotSymbols returns the full spot listing.
func (c *Client) ListSpotSymbols(ctx context.Context) ([]models.SpotSymbol, error) {
	c.limiter.Wait(c.spotBaseURL, weightCapacity, weightRefillPerSec, exchangeInfoWeight)

	var info spotExchangeInfo
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.spotBaseURL + "/api/v3/exchangeInfo",
	}, &info)
	if err != nil {
		return nil, fmt.Errorf("spot exchange info: %v: %w", err, models.ErrDataSource)
	}
	return info.Symbols, nil
}

type futuresExchangeInfo struct {
	Symbols []models.DerivativeSymbol `json:"symbols"`
}

// ListDerivativeSymbols returns the full USD-M futures listing.
func (c *Client) ListDerivativeSymbols(ctx context.Context) ([]models.DerivativeSymbol, error) {
	c.limiter.Wait(c.futuresBaseURL, weightCapacity, weightRefillPerSec, exchangeInfoWeight)

	var info futuresExchangeInfo
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.futuresBaseURL + "/fapi/v1/exchangeInfo",
	}, &info)
	if err != nil {
		return nil, fmt.Errorf("futures exchange info: %v: %w", err, models.ErrDataSource)
	}
	return info.Symbols, nil
}
