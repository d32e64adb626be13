package generation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAICompleterSendsJSONModeRequest(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "cmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"abouttheplace\":\"x\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
		}`)
	}))
	defer srv.Close()

	c := NewOpenAICompleter("sk-test", srv.URL, "", srv.Client())
	completion, err := c.Complete(context.Background(), "system", "user")
	require.NoError(t, err)

	assert.Equal(t, `{"abouttheplace":"x"}`, completion.Content)
	assert.Equal(t, 12, completion.PromptTokens)
	assert.Equal(t, 7, completion.CompletionTokens)
	assert.Equal(t, "gpt-4o-mini", got["model"])
	format := got["response_format"].(map[string]any)
	assert.Equal(t, "json_object", format["type"])
	assert.Len(t, got["messages"], 2)
}

func TestOpenAICompleterUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAICompleter("sk-test", srv.URL, "gpt-4o-mini", srv.Client())
	_, err := c.Complete(context.Background(), "system", "user")
	assert.Error(t, err)
}
