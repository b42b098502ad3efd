package gemini_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/Devpradp/TA-Chatbot/internal/adapter/gemini"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *gemini.Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := gemini.NewClient(context.Background(), "test-key", option.WithEndpoint(ts.URL))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewClient_MissingKey(t *testing.T) {
	client, err := gemini.NewClient(context.Background(), "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gemini api key not configured")
	assert.Nil(t, client)
}

func TestEmbedder_Embed(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "text-embedding-004")
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"embedding": map[string]interface{}{
					"values": []float32{0.1, 0.2, 0.3},
				},
			})
		})

		vec, err := client.Embedder("text-embedding-004").Embed(context.Background(), "hello world")
		require.NoError(t, err)
		if assert.Len(t, vec, 3) {
			assert.Equal(t, float32(0.1), vec[0])
		}
	})

	t.Run("Empty Embedding", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"embedding":{"values":[]}}`))
		})

		vec, err := client.Embedder("text-embedding-004").Embed(context.Background(), "hello")
		assert.ErrorIs(t, err, gemini.ErrEmptyResponse)
		assert.Nil(t, vec)
	})

	t.Run("API Error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`))
		})

		_, err := client.Embedder("text-embedding-004").Embed(context.Background(), "hello")
		assert.Error(t, err)
	})
}

func TestCompleter_Complete(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), "You are a teaching assistant.")
			assert.Contains(t, string(body), "What is merge sort?")

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Merge sort "},{"text":"divides and merges."}]}}]}`))
		})

		answer, err := client.Completer("gemini-2.0-flash", 0.2).
			Complete(context.Background(), "You are a teaching assistant.", "What is merge sort?")
		require.NoError(t, err)
		assert.Equal(t, "Merge sort divides and merges.", answer)
	})

	t.Run("No Candidates", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"candidates":[]}`))
		})

		_, err := client.Completer("gemini-2.0-flash", 0.2).Complete(context.Background(), "sys", "user")
		assert.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "generate content"))
	})
}
