package lensapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL + "/api/", RequestTimeout: time.Second})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresAbsoluteURL(t *testing.T) {
	for _, raw := range []string{"", "/api", "localhost:8000"} {
		_, err := NewClient(Config{BaseURL: raw})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, raw)
	}
}

func TestClient_Search(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "Black Lives Matter", r.URL.Query().Get("q"))

		fmt.Fprint(w, `[
			{"id": 7.0, "name": "Black Lives Matter", "year": 2013, "tweets_count": "41000", "similarity": 92.5},
			{"id": "12", "name": "Ferguson", "year": "2014", "tags": ["Social"]}
		]`)
	})

	results, err := client.Search(context.Background(), "Black Lives Matter")
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "7", results[0].ID)
	assert.Equal(t, "2013", results[0].Year)
	assert.Equal(t, int64(41000), results[0].Tweets)
	require.NotNil(t, results[0].Similarity)
	assert.InDelta(t, 92.5, *results[0].Similarity, 1e-9)
	assert.Equal(t, "12", results[1].ID)
	assert.Equal(t, []string{"Social"}, results[1].Tags)
}

func TestClient_Search_EmptyQueryAndEmptyResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "q=", r.URL.RawQuery)
		fmt.Fprint(w, `[]`)
	})

	results, err := client.Search(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestClient_Search_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantIs  []error
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) { http.Error(w, "boom", http.StatusBadGateway) },
			wantIs:  []error{domain.ErrNetworkFailure},
		},
		{
			name:    "rate limited",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
			wantIs:  []error{domain.ErrNetworkFailure, domain.ErrRateLimited},
		},
		{
			name:    "not json",
			handler: func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "<html>") },
			wantIs:  []error{domain.ErrMalformedResponse},
		},
		{
			name:    "object instead of array",
			handler: func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, `{"detail":"x"}`) },
			wantIs:  []error{domain.ErrMalformedResponse},
		},
		{
			name:    "null",
			handler: func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, `null`) },
			wantIs:  []error{domain.ErrMalformedResponse},
		},
		{
			name:    "record without id",
			handler: func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, `[{"name":"anon"}]`) },
			wantIs:  []error{domain.ErrMalformedResponse},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)

			_, err := client.Search(context.Background(), "q")
			require.Error(t, err)
			for _, target := range tt.wantIs {
				assert.ErrorIs(t, err, target)
			}
		})
	}
}

func TestClient_Search_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client, err := NewClient(Config{BaseURL: base})
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrNetworkFailure)
}

func TestClient_Search_ContextCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Search(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_OpenStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat_stream", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req domain.AnalysisRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Compare", req.Query)
		assert.Equal(t, []string{"ID 1: A (2011) - x..."}, req.ContextMovements)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, "Both ")
		w.(http.Flusher).Flush()
		fmt.Fprint(w, "movements")
	})

	body, err := client.OpenStream(context.Background(), domain.AnalysisRequest{
		Query:            "Compare",
		ContextMovements: []string{"ID 1: A (2011) - x..."},
	})
	require.NoError(t, err)
	require.NotNil(t, body)
	defer body.Close()

	text, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "Both movements", string(text))
}

func TestClient_OpenStream_NilContextIsEmptyArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"query":"q","context_movements":[]}`, string(raw))
		fmt.Fprint(w, "ok")
	})

	body, err := client.OpenStream(context.Background(), domain.AnalysisRequest{Query: "q"})
	require.NoError(t, err)
	body.Close()
}

func TestClient_OpenStream_Errors(t *testing.T) {
	t.Run("llm unavailable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "LLM service unavailable", http.StatusServiceUnavailable)
		})
		body, err := client.OpenStream(context.Background(), domain.AnalysisRequest{Query: "q"})
		assert.Nil(t, body)
		assert.ErrorIs(t, err, domain.ErrNetworkFailure)
		assert.ErrorContains(t, err, "status 503: LLM service unavailable")
	})

	t.Run("rate limited", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
		_, err := client.OpenStream(context.Background(), domain.AnalysisRequest{Query: "q"})
		assert.True(t, errors.Is(err, domain.ErrRateLimited))
	})

	t.Run("no content", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		body, err := client.OpenStream(context.Background(), domain.AnalysisRequest{Query: "q"})
		assert.NoError(t, err)
		assert.Nil(t, body)
	})
}

func TestClient_OpenStream_EmptyOKIsEmptyStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	})

	body, err := client.OpenStream(context.Background(), domain.AnalysisRequest{Query: "q"})
	require.NoError(t, err)
	require.NotNil(t, body)
	defer body.Close()

	text, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Empty(t, text)
}
