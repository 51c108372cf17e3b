package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/aikernel/internal/providers/http/client"
	"github.com/GriffinCanCode/aikernel/internal/types"
)

// fakeAPI records the last request body per path and replies with canned payloads
type fakeAPI struct {
	t         *testing.T
	bodies    map[string]map[string]interface{}
	responses map[string]interface{}
	status    int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{
		t:         t,
		bodies:    make(map[string]map[string]interface{}),
		responses: make(map[string]interface{}),
		status:    http.StatusOK,
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, "Bearer sk-test", r.Header.Get("Authorization"))

	var body map[string]interface{}
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
	f.bodies[r.URL.Path] = body

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_ = json.NewEncoder(w).Encode(f.responses[r.URL.Path])
}

func newProvider(t *testing.T, capability types.Capability, baseURL string) *Provider {
	p, err := New(capability, Config{Model: "gpt-4o-mini", BaseURL: baseURL + "/v1", APIKey: "sk-test"})
	require.NoError(t, err)
	return p
}

func TestNewValidation(t *testing.T) {
	_, err := New(types.CapabilityChatCompletion, Config{})
	assert.Error(t, err)

	_, err = New(types.Capability("speech"), Config{Model: "m"})
	assert.Error(t, err)
}

func TestTextCompletion(t *testing.T) {
	api := newFakeAPI(t)
	api.responses["/v1/completions"] = map[string]interface{}{
		"model":   "gpt-3.5-turbo-instruct",
		"choices": []map[string]interface{}{{"text": "world"}},
		"usage":   map[string]int{"prompt_tokens": 1, "completion_tokens": 1},
	}
	server := httptest.NewServer(api)
	defer server.Close()

	p := newProvider(t, types.CapabilityTextCompletion, server.URL)
	resp, err := p.Invoke(context.Background(), types.Request{
		Prompt:   "Hello",
		Settings: types.Settings{MaxTokens: 10, StopSequences: []string{"."}},
	})
	require.NoError(t, err)

	assert.Equal(t, "world", resp.Text)
	assert.Equal(t, "gpt-3.5-turbo-instruct", resp.Model)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 1, resp.Usage.CompletionTokens)

	body := api.bodies["/v1/completions"]
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, "Hello", body["prompt"])
	assert.Equal(t, float64(10), body["max_tokens"])
	assert.Equal(t, []interface{}{"."}, body["stop"])
	assert.Equal(t, float64(0), body["temperature"])
}

func TestChatCompletion(t *testing.T) {
	api := newFakeAPI(t)
	api.responses["/v1/chat/completions"] = map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": "Hi there"}},
		},
	}
	server := httptest.NewServer(api)
	defer server.Close()

	p := newProvider(t, types.CapabilityChatCompletion, server.URL)
	resp, err := p.Invoke(context.Background(), types.Request{
		Prompt:   "Hello",
		Settings: types.Settings{Extra: map[string]any{"system": "Be brief"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", resp.Text)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	assert.Nil(t, resp.Usage)

	messages := api.bodies["/v1/chat/completions"]["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	assert.Equal(t, "Hello", messages[1].(map[string]interface{})["content"])
}

func TestEmbedding(t *testing.T) {
	api := newFakeAPI(t)
	api.responses["/v1/embeddings"] = map[string]interface{}{
		"model": "text-embedding-3-small",
		"data":  []map[string]interface{}{{"embedding": []float64{0.1, 0.2, 0.3}}},
	}
	server := httptest.NewServer(api)
	defer server.Close()

	p := newProvider(t, types.CapabilityEmbedding, server.URL)
	resp, err := p.Invoke(context.Background(), types.Request{Prompt: "vectorize me"})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, resp.Embedding, 1e-6)
	assert.Equal(t, "vectorize me", api.bodies["/v1/embeddings"]["input"])
}

func TestEmptyChoices(t *testing.T) {
	api := newFakeAPI(t)
	api.responses["/v1/chat/completions"] = map[string]interface{}{"choices": []interface{}{}}
	server := httptest.NewServer(api)
	defer server.Close()

	p := newProvider(t, types.CapabilityChatCompletion, server.URL)
	_, err := p.Invoke(context.Background(), types.Request{Prompt: "Hello"})
	assert.ErrorContains(t, err, "no choices")
}

func TestUpstreamError(t *testing.T) {
	api := newFakeAPI(t)
	api.status = http.StatusUnauthorized
	api.responses["/v1/completions"] = map[string]interface{}{
		"error": map[string]string{"message": "Incorrect API key provided", "type": "invalid_request_error"},
	}
	server := httptest.NewServer(api)
	defer server.Close()

	p := newProvider(t, types.CapabilityTextCompletion, server.URL)
	_, err := p.Invoke(context.Background(), types.Request{Prompt: "Hello"})
	require.Error(t, err)

	var statusErr *client.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "Incorrect API key provided", statusErr.Message)
}
