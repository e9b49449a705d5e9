package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
)

// GetJSON performs a GET request and decodes the JSON response into T.
func GetJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out T
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, NewDecodeError(resp.StatusCode, err)
	}
	return out, nil
}
