package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/enroll-data/footfall.report/internal/httputil"
	"github.com/enroll-data/footfall.report/internal/predict"
)

// Client is a thin typed client for the forecast API, used by the CLI.
type Client struct {
	BaseURL string
	HTTP    httputil.HTTPClient
}

// NewClient builds a client for the given base URL ("http://host:port").
func NewClient(baseURL string, transport httputil.HTTPClient) *Client {
	if transport == nil {
		transport = httputil.NewStandardClient(nil)
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: transport}
}

// PredictDay fetches a single-day forecast.
func (c *Client) PredictDay(pincode, date string) (predict.Prediction, error) {
	var out predict.Prediction
	err := c.get("/api/predict", url.Values{"pincode": {pincode}, "date": {date}}, &out)
	return out, err
}

// PredictWeek fetches a 7-day forecast starting at start.
func (c *Client) PredictWeek(pincode, start string) (predict.RangeForecast, error) {
	var out predict.RangeForecast
	err := c.get("/api/predict/week", url.Values{"pincode": {pincode}, "start": {start}}, &out)
	return out, err
}

// PredictMonth fetches a full calendar-month forecast. month is "YYYY-MM";
// empty means the server's default month.
func (c *Client) PredictMonth(pincode, month string) (predict.RangeForecast, error) {
	q := url.Values{"pincode": {pincode}}
	if month != "" {
		q.Set("month", month)
	}
	var out predict.RangeForecast
	err := c.get("/api/predict/month", q, &out)
	return out, err
}

// CompareResult is the comparison endpoint's response body.
type CompareResult struct {
	Date  string                   `json:"date"`
	Items []predict.ComparisonItem `json:"items"`
}

// Compare fetches a multi-center comparison for one date.
func (c *Client) Compare(pincodes []string, date string) (CompareResult, error) {
	var out CompareResult
	err := c.get("/api/compare", url.Values{
		"pincodes": {strings.Join(pincodes, ",")},
		"date":     {date},
	}, &out)
	return out, err
}

// Pincodes fetches the known pincode list.
func (c *Client) Pincodes() ([]string, error) {
	var out []string
	err := c.get("/api/pincodes", nil, &out)
	return out, err
}

// Retrain triggers a rebuild-and-swap on the server.
func (c *Client) Retrain() (map[string]json.RawMessage, error) {
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/api/retrain", nil)
	if err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(path string, query url.Values, out interface{}) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (%d)", req.Method, req.URL.Path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
