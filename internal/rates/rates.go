// Package rates fetches exchange rates from a CryptoCompare-compatible API.
package rates

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/mrz1836/onboard/internal/metrics"
	"github.com/mrz1836/onboard/internal/transport"
)

// USD is the reference fiat currency.
const USD = "USD"

// Rates maps asset symbol to fiat symbol to price.
type Rates map[string]map[string]float64

// UsdToFiat returns the USD to fiat conversion implied by the ETH prices.
// ok is false when the rates do not carry enough information.
func (r Rates) UsdToFiat(fiat string) (rate float64, ok bool) {
	if fiat == USD {
		return 1, true
	}
	eth := r["ETH"]
	if eth == nil || eth[fiat] == 0 || eth[USD] == 0 {
		return 0, false
	}
	return eth[fiat] / eth[USD], true
}

// Client fetches prices.
type Client struct {
	api  *transport.Client
	fiat []string
}

// NewClient creates a rate client quoting in the given fiat currencies.
func NewClient(baseURL string, fiat []string, opts *transport.Options) (*Client, error) {
	api, err := transport.NewClient(baseURL, transport.WithService(opts, metrics.ServiceRates))
	if err != nil {
		return nil, err
	}
	if len(fiat) == 0 {
		fiat = []string{USD}
	}
	return &Client{api: api, fiat: fiat}, nil
}

// GetExchangeRates returns prices for symbols. No symbols means no request.
func (c *Client) GetExchangeRates(ctx context.Context, symbols []string) (Rates, error) {
	out := Rates{}
	if len(symbols) == 0 {
		return out, nil
	}

	query := url.Values{
		"fsyms": {strings.ToUpper(strings.Join(symbols, ","))},
		"tsyms": {strings.ToUpper(strings.Join(c.fiat, ","))},
	}
	err := c.api.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/pricemulti",
		Query:  query,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}
