package providers

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
)

func TestTaskTransportInjectsTask(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, int64(len(body)), r.ContentLength)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTaskTransport(TaskQuery, nil)}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, srv.URL,
		strings.NewReader(`{"model":"jina-embeddings-v3","input":["hello"]}`))
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "retrieval.query", got["task"])
	assert.Equal(t, "jina-embeddings-v3", got["model"])
}

func TestTaskTransportPassesThroughNonJSON(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTaskTransport(TaskPassage, nil)}
	resp, err := client.Post(srv.URL, "text/plain", strings.NewReader("not json"))
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "not json", body)
}

func TestNewChatModelRejectsUnknownProvider(t *testing.T) {
	_, err := NewChatModel(context.Background(), "qwen", &ChatModelConfig{APIKey: "k"})
	assert.ErrorContains(t, err, "unsupported generation provider")
}
