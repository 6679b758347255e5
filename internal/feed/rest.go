// Package feed supplies raw market data for the training and inference
// pipeline: historical candles over REST, live candle updates over
// WebSocket, and the conversion of candles into the raw dataframe the data
// kitchen consumes.
package feed

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client fetches historical candle data from the exchange REST API.
type Client struct {
	base string
	rest *resty.Client
}

// NewREST builds a REST client against the given base URL.
func NewREST(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second) // default fallback
	}
	return &Client{base: base, rest: r}
}

// Kline is one candlestick.
type Kline struct {
	OpenTime  int64   `json:"openTime"`
	Open      float64 `json:"open,string"`
	High      float64 `json:"high,string"`
	Low       float64 `json:"low,string"`
	Close     float64 `json:"close,string"`
	Volume    float64 `json:"volume,string"`
	CloseTime int64   `json:"closeTime"`
}

// GetKlines fetches up to limit historical candles for a pair, oldest first.
func (c *Client) GetKlines(pair, interval string, limit int) ([]Kline, error) {
	path := "/api/v1/market/klines"

	params := map[string]string{
		"symbol":   pair,
		"interval": interval,
		"limit":    strconv.Itoa(limit),
	}

	var klines []Kline
	resp, err := c.rest.R().
		SetQueryParams(params).
		SetResult(&klines).
		Get(c.base + path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode(), resp.String())
	}

	return klines, nil
}
