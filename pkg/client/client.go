// Package client is a small HTTP client for the datasetd API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bbrzycki/datasetd/pkg/types"
)

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.HTTPClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.HTTPClient.Timeout = timeout
	}
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	c := &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// APIError is a non-2xx response from the server, carrying the decoded error
// body when one was present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("datasetd: status=%d message=%s", e.StatusCode, e.Message)
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]any
	return c.do(ctx, http.MethodGet, types.HealthzPath, nil, &out)
}

// ListDatasets returns metadata for every dataset in the catalog.
func (c *Client) ListDatasets(ctx context.Context) ([]types.DatasetMeta, error) {
	var out []types.DatasetMeta
	if err := c.do(ctx, http.MethodGet, types.DatasetsPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDataset returns the metadata for one dataset.
func (c *Client) GetDataset(ctx context.Context, datasetID string) (*types.DatasetMeta, error) {
	var out types.DatasetMeta
	path := types.DatasetsPath + "/" + url.PathEscape(datasetID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryDataset runs a query against one dataset and returns the result page.
func (c *Client) QueryDataset(ctx context.Context, datasetID string, q *types.DatasetQuery) (*types.DatasetSlice, error) {
	if q == nil {
		q = &types.DatasetQuery{}
	}
	var out types.DatasetSlice
	path := types.DatasetsPath + "/" + url.PathEscape(datasetID) + "/query"
	if err := c.do(ctx, http.MethodPost, path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var er types.ErrorResponse
	if err := json.Unmarshal(data, &er); err == nil && er.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: er.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: string(data)}
}
