// Package vds is the client for the verifiable data service, the external
// collaborator that issues OpenID4VP authorization requests and holds the
// submitted presentations.
package vds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type Config struct {
	// BaseURL of the data service, e.g. "https://vds.example.com"
	BaseURL string
	// APIKey is sent as bearer token when set.
	APIKey string
}

// AuthRequest is the answer of the data service to a newly created
// authorization request: an opaque id and the URL the wallet must open.
type AuthRequest struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(config Config) (*Client, error) {
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid data service base URL '%s': %w", config.BaseURL, err)
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// CreateAuthRequest registers a new authorization request bound to the given
// nonce and returns its id and wallet URL.
func (c *Client) CreateAuthRequest(ctx context.Context, nonce string) (*AuthRequest, error) {
	endpoint := fmt.Sprintf("%s/v1/authrequests?nonce=%s", c.config.BaseURL, url.QueryEscape(nonce))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating authrequest request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var authRequest AuthRequest
	if err := json.Unmarshal(body, &authRequest); err != nil {
		return nil, fmt.Errorf("unable to decode authrequest response: %w", err)
	}
	if authRequest.ID == "" {
		return nil, fmt.Errorf("authrequest response carries no id")
	}

	return &authRequest, nil
}

// FetchAuthRequest retrieves the raw submission payload for the given
// authorization request id. Decoding is left to pkg/vp.
func (c *Client) FetchAuthRequest(ctx context.Context, id string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/v1/authrequests/%s", c.config.BaseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating authrequest fetch request: %w", err)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{HttpCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{HttpCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
