package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/taleweave/pkg/adapters/llm"
	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIGenerator(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Once upon a time"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	gen := llm.NewOpenAIGenerator("key", "base-model", srv.URL+"/v1")
	temp := 0.5
	out, err := gen.Generate(context.Background(), "sys", "usr", domain.RuntimeConfig{Temperature: &temp, MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time", out)

	assert.Equal(t, "base-model", body["model"])
	assert.EqualValues(t, 64, body["max_tokens"])
	assert.EqualValues(t, 0.5, body["temperature"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "usr", msgs[1].(map[string]any)["content"])
}

func TestOpenAIGenerator_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	_, err := llm.NewOpenAIGenerator("key", "m", srv.URL+"/v1").Generate(context.Background(), "s", "u", domain.RuntimeConfig{})
	assert.ErrorContains(t, err, "failed to create chat completion")
}

func TestOpenAIGenerator_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","choices":[]}`))
	}))
	defer srv.Close()

	_, err := llm.NewOpenAIGenerator("key", "m", srv.URL+"/v1").Generate(context.Background(), "s", "u", domain.RuntimeConfig{})
	assert.ErrorContains(t, err, "no response choices")
}

func TestAnthropicGenerator(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"m","content":[{"type":"text","text":"The tale "},{"type":"text","text":"begins."}],"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":4}}`))
	}))
	defer srv.Close()

	gen := llm.NewAnthropicGenerator("key", "claude-test", srv.URL)
	out, err := gen.Generate(context.Background(), "be a narrator", "start", domain.RuntimeConfig{Model: "override"})
	require.NoError(t, err)
	assert.Equal(t, "The tale begins.", out)

	assert.Equal(t, "override", body["model"])
	assert.EqualValues(t, llm.DefaultAnthropicMaxTokens, body["max_tokens"])
	assert.Contains(t, body, "system")
}

func TestEchoGenerator(t *testing.T) {
	out, err := llm.EchoGenerator{}.Generate(context.Background(), "sys", "history\nUser: hello", domain.RuntimeConfig{})
	require.NoError(t, err)
	assert.Contains(t, out, "<screen>You said: User: hello</screen>")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = llm.EchoGenerator{}.Generate(ctx, "", "", domain.RuntimeConfig{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	for _, p := range []string{"openai", "anthropic", "claude", "ollama", "echo", "", "OpenAI"} {
		gen, err := llm.New(llm.Config{Provider: p, Model: "m"})
		require.NoError(t, err, p)
		assert.NotNil(t, gen, p)
	}
	_, err := llm.New(llm.Config{Provider: "mystery"})
	assert.ErrorContains(t, err, "unsupported llm provider")
}
