package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
)

const maxErrorBody = 512

// doJSON performs a request with an optional JSON body and decodes the JSON
// response into T. The endpoint is joined onto the API root.
func doJSON[T any](ctx context.Context, c *Client, method string, body any, expected []int, segments ...string) (*T, error) {
	resp, err := c.do(ctx, method, body, expected, segments...)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result T
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}
	return &result, nil
}

// doRaw performs a request and discards the response body
func doRaw(ctx context.Context, c *Client, method string, body any, expected []int, segments ...string) error {
	resp, err := c.do(ctx, method, body, expected, segments...)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// do sends the request and checks the status. On success the caller owns
// the response body.
func (c *Client) do(ctx context.Context, method string, body any, expected []int, segments ...string) (*http.Response, error) {
	endpoint := c.resolveURL(segments...)

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}

	if !slices.Contains(expected, resp.StatusCode) {
		defer resp.Body.Close()
		return nil, &StatusError{
			Method:     method,
			Endpoint:   strings.Join(segments, "/"),
			StatusCode: resp.StatusCode,
			Body:       readErrorBody(resp.Body),
		}
	}
	return resp, nil
}

func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
