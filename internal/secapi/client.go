// Package secapi is a thin client for the sec-api.io query, extractor and
// mapping endpoints.
package secapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ppiankov/fraudscrape/internal/httpx"
)

// defaultQuerySize is the page size requested from the query API
const defaultQuerySize = 50

// Client talks to api.sec-api.io. Authentication is a token query parameter.
type Client struct {
	http    *httpx.Client
	baseURL string
	apiKey  string
}

// NewClient creates a client against baseURL (https://api.sec-api.io)
func NewClient(httpClient *httpx.Client, baseURL, apiKey string) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// SearchFilings returns the filings matching q, newest first
func (c *Client) SearchFilings(ctx context.Context, q FilingQuery) ([]Filing, error) {
	size := q.Size
	if size <= 0 {
		size = defaultQuerySize
	}

	var req queryRequest
	req.Query.QueryString.Query = q.QueryString()
	req.From = "0"
	req.Size = strconv.Itoa(size)
	req.Sort = []map[string]any{{"filedAt": map[string]string{"order": "desc"}}}

	var resp queryResponse
	if err := c.http.PostJSON(ctx, c.endpoint("", nil), req, &resp); err != nil {
		return nil, fmt.Errorf("search filings for cik %s: %w", q.CIK, err)
	}
	return resp.Filings, nil
}

// Section extracts one item of a 10-K as plain text
func (c *Client) Section(ctx context.Context, documentURL, item string) (string, error) {
	params := url.Values{}
	params.Set("url", documentURL)
	params.Set("item", item)
	params.Set("type", "text")

	text, err := c.http.GetText(ctx, c.endpoint("/extractor", params))
	if err != nil {
		return "", fmt.Errorf("extract section %s: %w", item, err)
	}
	return text, nil
}

// ResolveCIK returns the mapping rows for a CIK
func (c *Client) ResolveCIK(ctx context.Context, cik string) ([]Company, error) {
	return c.mapping(ctx, "cik", cik)
}

// ResolveIndustry returns every company listed under an industry name
func (c *Client) ResolveIndustry(ctx context.Context, industry string) ([]Company, error) {
	return c.mapping(ctx, "industry", industry)
}

// ListSIC returns every company listed under a SIC code
func (c *Client) ListSIC(ctx context.Context, sic string) ([]Company, error) {
	return c.mapping(ctx, "sic", sic)
}

func (c *Client) mapping(ctx context.Context, by, value string) ([]Company, error) {
	path := "/mapping/" + by + "/" + url.PathEscape(value)

	var companies []Company
	if err := c.http.GetJSON(ctx, c.endpoint(path, nil), &companies); err != nil {
		return nil, fmt.Errorf("resolve %s %q: %w", by, value, err)
	}
	return companies, nil
}

func (c *Client) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.apiKey)
	return c.baseURL + path + "?" + params.Encode()
}
