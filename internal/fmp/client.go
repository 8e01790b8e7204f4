// Package fmp looks up company profiles on Financial Modeling Prep
package fmp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/fraudscrape/internal/cache"
	"github.com/ppiankov/fraudscrape/internal/httpx"
)

// Profile is the subset of the FMP company profile used for matching
type Profile struct {
	Symbol            string          `json:"symbol"`
	CompanyName       string          `json:"companyName"`
	MktCap            decimal.Decimal `json:"mktCap"`
	CIK               *string         `json:"cik"`
	Industry          string          `json:"industry"`
	IsActivelyTrading bool            `json:"isActivelyTrading"`
}

// Client fetches profiles. Requests are paced by the limiter attached to
// the shared HTTP client; cached answers skip the request entirely.
type Client struct {
	http    *httpx.Client
	baseURL string
	apiKey  string
	cache   cache.Cache
}

// NewClient creates a client against baseURL (https://financialmodelingprep.com).
// A nil cache disables caching.
func NewClient(httpClient *httpx.Client, baseURL, apiKey string, c cache.Cache) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		cache:   c,
	}
}

// Profile returns the profile list for a ticker. Unknown or delisted tickers
// yield an empty list, not an error.
func (c *Client) Profile(ctx context.Context, ticker string) ([]Profile, error) {
	key := cache.Key("fmp", "profile", ticker)

	var profiles []Profile
	if cache.GetJSON(c.cache, key, &profiles) {
		return profiles, nil
	}

	endpoint := fmt.Sprintf("%s/api/v3/profile/%s?apikey=%s",
		c.baseURL, url.PathEscape(ticker), url.QueryEscape(c.apiKey))
	err := c.http.GetJSON(ctx, endpoint, &profiles)
	switch {
	case httpx.IsStatus(err, http.StatusNotFound):
		profiles = nil
	case err != nil:
		return nil, fmt.Errorf("profile %s: %w", ticker, err)
	}

	// A failed cache write only costs a repeat lookup
	_ = cache.SetJSON(c.cache, key, profiles)
	return profiles, nil
}
