package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPAuthorizationClient_Exchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "the-code", body["code"])
		assert.Equal(t, "the-verifier", body["code_verifier"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"ext-1","org":"acme"}`))
	}))
	defer server.Close()

	client := NewHTTPAuthorizationClient(server.URL, time.Second)
	payload, err := client.Exchange(context.Background(), "the-code", "the-verifier")
	require.NoError(t, err)
	assert.Equal(t, "ext-1", payload["sub"])
	assert.Equal(t, "acme", payload["org"])
}

func TestHTTPAuthorizationClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		timeout time.Duration
		delay   time.Duration
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{}`},
		{name: "array body", status: http.StatusOK, body: `[1,2,3]`},
		{name: "null body", status: http.StatusOK, body: `null`},
		{name: "invalid json", status: http.StatusOK, body: `not json`},
		{name: "timeout", status: http.StatusOK, body: `{}`, timeout: 20 * time.Millisecond, delay: 200 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.delay > 0 {
					time.Sleep(tt.delay)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			timeout := tt.timeout
			if timeout == 0 {
				timeout = time.Second
			}

			_, err := NewHTTPAuthorizationClient(server.URL, timeout).Exchange(context.Background(), "c", "v")
			assert.Error(t, err)
		})
	}
}

func TestHTTPAuthorizationClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewHTTPAuthorizationClient(url, time.Second).Exchange(context.Background(), "c", "v")
	assert.Error(t, err)
}
