package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxAuthorizeResponseBytes = 1 << 20

// AuthorizationClient exchanges an authorization code for the upstream claim set.
type AuthorizationClient interface {
	Exchange(ctx context.Context, code, codeVerifier string) (map[string]any, error)
}

// HTTPAuthorizationClient posts {code, code_verifier} as JSON to a fixed endpoint.
type HTTPAuthorizationClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTPAuthorizationClient(endpoint string, timeout time.Duration) *HTTPAuthorizationClient {
	return &HTTPAuthorizationClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type authorizeRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
}

// Exchange returns the decoded JSON object from the upstream response.
// Non-2xx statuses and non-object bodies are errors.
func (c *HTTPAuthorizationClient) Exchange(ctx context.Context, code, codeVerifier string) (map[string]any, error) {
	body, err := json.Marshal(authorizeRequest{Code: code, CodeVerifier: codeVerifier})
	if err != nil {
		return nil, fmt.Errorf("failed to encode authorize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build authorize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authorize request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxAuthorizeResponseBytes))
		return nil, fmt.Errorf("authorize endpoint returned status %d", resp.StatusCode)
	}

	var payload map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAuthorizeResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode authorize response: %w", err)
	}
	if payload == nil {
		return nil, errors.New("authorize response is not a JSON object")
	}

	return payload, nil
}
