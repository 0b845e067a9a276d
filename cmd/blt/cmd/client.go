package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ssargent/blt/pkg/api"
	"github.com/ssargent/blt/pkg/engineconfig"
)

// apiClient is a thin HTTP client against a running `blt serve` instance.
//
// The tree lives entirely in the serving process's memory (the storage
// engine simulates a disk, it does not write to one), so point-operation
// subcommands cannot each open their own store the way a Bitcask-style
// CLI would: there is nothing on disk to reopen. Instead every
// subcommand below talks to whatever server the resolved config points
// at, making `serve` the single process that owns tree state.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newAPIClient(cfg *engineconfig.Config) *apiClient {
	return &apiClient{
		baseURL: fmt.Sprintf("http://%s:%d", cfg.Server.Bind, cfg.Server.Port),
		apiKey:  cfg.Server.APIKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) do(method, path string, body io.Reader, contentType string) (*api.APIResponse, []byte, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request to %s: %w (is `blt serve` running?)", c.baseURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	if resp.Header.Get("Content-Type") == "application/octet-stream" {
		return nil, raw, nil
	}

	var envelope api.APIResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, nil, fmt.Errorf("decode response: %w", err)
	}
	if !envelope.Success {
		return &envelope, nil, fmt.Errorf("server returned error: %s", envelope.Error)
	}
	return &envelope, nil, nil
}

func (c *apiClient) find(key uint64) ([]byte, error) {
	_, raw, err := c.do(http.MethodGet, fmt.Sprintf("/api/v1/keys/%d", key), nil, "")
	return raw, err
}

func (c *apiClient) ge(key uint64) (api.KV, error) {
	envelope, _, err := c.do(http.MethodGet, fmt.Sprintf("/api/v1/keys/%d/ge", key), nil, "")
	if err != nil {
		return api.KV{}, err
	}
	return decodeKV(envelope.Data)
}

func (c *apiClient) insert(key uint64, value []byte) error {
	_, _, err := c.do(http.MethodPut, fmt.Sprintf("/api/v1/keys/%d", key), bytes.NewReader(value), "application/octet-stream")
	return err
}

func (c *apiClient) delete(key uint64) error {
	_, _, err := c.do(http.MethodDelete, fmt.Sprintf("/api/v1/keys/%d", key), nil, "")
	return err
}

func (c *apiClient) rangeQuery(low, high uint64, max int) ([]api.KV, error) {
	path := fmt.Sprintf("/api/v1/range?low=%d&high=%d", low, high)
	if max > 0 {
		path += fmt.Sprintf("&max=%d", max)
	}
	envelope, _, err := c.do(http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}

	wrapper, ok := envelope.Data.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected range response shape")
	}
	results, ok := wrapper["results"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected range results shape")
	}

	out := make([]api.KV, 0, len(results))
	for _, raw := range results {
		kv, err := decodeKV(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, kv)
	}
	return out, nil
}

func (c *apiClient) checkpoint() error {
	_, _, err := c.do(http.MethodPost, "/api/v1/checkpoint", nil, "")
	return err
}

func decodeKV(data interface{}) (api.KV, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return api.KV{}, fmt.Errorf("re-encode kv: %w", err)
	}
	var kv api.KV
	if err := json.Unmarshal(raw, &kv); err != nil {
		return api.KV{}, fmt.Errorf("decode kv: %w", err)
	}
	return kv, nil
}
