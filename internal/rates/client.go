package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fxdesk/internal/model"
)

// DefaultBaseURL is the exchangerate-api v6 endpoint root.
const DefaultBaseURL = "https://v6.exchangerate-api.com/v6"

const clientTimeout = 10 * time.Second

// Client calls the exchangerate-api v6 REST endpoints.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds an API client. baseURL falls back to DefaultBaseURL when
// empty (tests point it at a local server).
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: clientTimeout},
	}
}

// apiResponse covers both the /latest and /pair response shapes. The API
// reports failures with HTTP 200 plus result="error" and an error-type code.
type apiResponse struct {
	Result          string             `json:"result"`
	ErrorType       string             `json:"error-type"`
	BaseCode        string             `json:"base_code"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
	ConversionRate  float64            `json:"conversion_rate"`
}

// LatestTable fetches the full conversion table for a base currency.
func (c *Client) LatestTable(ctx context.Context, base string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, base)
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(resp.ConversionRates) == 0 {
		return nil, fmt.Errorf("exchange-rate api: empty conversion table for %s", base)
	}
	return resp.ConversionRates, nil
}

// PairRate fetches a single conversion rate.
func (c *Client) PairRate(ctx context.Context, base, quote string) (float64, error) {
	url := fmt.Sprintf("%s/%s/pair/%s/%s", c.baseURL, c.apiKey, base, quote)
	resp, err := c.get(ctx, url)
	if err != nil {
		return 0, err
	}
	if resp.ConversionRate <= 0 {
		return 0, fmt.Errorf("exchange-rate api: no conversion rate for %s/%s", base, quote)
	}
	return resp.ConversionRate, nil
}

func (c *Client) get(ctx context.Context, url string) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange-rate api request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange-rate api: HTTP %d", res.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode exchange-rate response: %w", err)
	}

	if body.Result != "success" {
		if body.ErrorType == "unsupported-code" {
			return nil, model.ErrDataUnavailable
		}
		return nil, fmt.Errorf("exchange-rate api error: %s", body.ErrorType)
	}
	return &body, nil
}
