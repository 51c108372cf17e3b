package huggingface

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

func jsonResponse(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewValidation(t *testing.T) {
	_, err := New(types.CapabilityTextCompletion, Config{})
	assert.Error(t, err)

	_, err = New(types.Capability("translation"), Config{Model: "gpt2"})
	assert.Error(t, err)

	p, err := New(types.CapabilityTextCompletion, Config{Model: "gpt2"})
	require.NoError(t, err)
	assert.Equal(t, []types.Capability{types.CapabilityTextCompletion}, p.Capabilities())
	assert.Equal(t, "gpt2", p.Model())
}

func TestCompleteText(t *testing.T) {
	var got generationRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gpt2", r.URL.Path)
		assert.Equal(t, "Bearer hf_token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		jsonResponse(w, http.StatusOK, []generation{{GeneratedText: " world"}})
	}))
	defer server.Close()

	p, err := New(types.CapabilityTextCompletion, Config{Model: "gpt2", BaseURL: server.URL, Token: "hf_token"})
	require.NoError(t, err)

	resp, err := p.Invoke(context.Background(), types.Request{Prompt: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, " world", resp.Text)
	assert.Equal(t, "gpt2", resp.Model)

	assert.Equal(t, "Hello", got.Inputs)
	assert.Equal(t, 256, got.Parameters.MaxNewTokens)
	assert.False(t, got.Parameters.DoSample)
	assert.False(t, got.Parameters.ReturnFullText)
	assert.Zero(t, got.Parameters.Temperature)
	assert.True(t, got.Options.WaitForModel)
}

func TestCompleteTextSampling(t *testing.T) {
	var got generationRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		jsonResponse(w, http.StatusOK, []generation{{GeneratedText: "a"}, {GeneratedText: "b"}})
	}))
	defer server.Close()

	p, err := New(types.CapabilityTextCompletion, Config{
		Model:    "gpt2",
		BaseURL:  server.URL,
		Settings: types.Settings{MaxTokens: 32},
	})
	require.NoError(t, err)

	text, err := p.CompleteText(context.Background(), "Hi", types.Settings{
		Temperature:   types.Float64(0.7),
		TopP:          0.9,
		StopSequences: []string{"\n"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a", text)

	assert.True(t, got.Parameters.DoSample)
	assert.Equal(t, 0.7, got.Parameters.Temperature)
	assert.Equal(t, 0.9, got.Parameters.TopP)
	assert.Equal(t, 32, got.Parameters.MaxNewTokens)
	assert.Equal(t, []string{"\n"}, got.Parameters.Stop)
}

func TestCompleteTextExplicitGreedyOverridesDefaults(t *testing.T) {
	var got generationRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		jsonResponse(w, http.StatusOK, []generation{{GeneratedText: "a"}})
	}))
	defer server.Close()

	p, err := New(types.CapabilityTextCompletion, Config{
		Model:    "gpt2",
		BaseURL:  server.URL,
		Settings: types.Settings{Temperature: types.Float64(0.7)},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.7, p.Defaults().TemperatureValue(), 1e-9)

	_, err = p.CompleteText(context.Background(), "Hi", types.Settings{})
	require.NoError(t, err)
	assert.True(t, got.Parameters.DoSample)

	_, err = p.CompleteText(context.Background(), "Hi", types.Settings{Temperature: types.Float64(0)})
	require.NoError(t, err)
	assert.False(t, got.Parameters.DoSample)
	assert.Zero(t, got.Parameters.Temperature)
	assert.True(t, got.Options.UseCache)
}

func TestCompleteTextUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusNotFound, map[string]string{"error": "Model nope does not exist"})
	}))
	defer server.Close()

	p, err := New(types.CapabilityTextCompletion, Config{Model: "nope", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = p.CompleteText(context.Background(), "Hi", types.Settings{})
	require.Error(t, err)

	var statusErr *client.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "Model nope does not exist", statusErr.Message)
}

func TestCompleteTextEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, []generation{})
	}))
	defer server.Close()

	p, err := New(types.CapabilityTextCompletion, Config{Model: "gpt2", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = p.CompleteText(context.Background(), "Hi", types.Settings{})
	assert.ErrorContains(t, err, "empty response")
}

func TestEmbed(t *testing.T) {
	tests := []struct {
		name    string
		payload interface{}
		want    []float32
	}{
		{"sentence vector", []float64{0.5, -1, 2}, []float32{0.5, -1, 2}},
		{"batch of one", [][]float64{{1, 2}}, []float32{1, 2}},
		{"token vectors", [][]float64{{1, 2}, {3, 4}}, []float32{2, 3}},
		{"batched tokens", [][][]float64{{{0, 2}, {2, 4}}}, []float32{1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/pipeline/feature-extraction/sentence-transformers/all-MiniLM-L6-v2", r.URL.Path)
				jsonResponse(w, http.StatusOK, tt.payload)
			}))
			defer server.Close()

			p, err := New(types.CapabilityEmbedding, Config{
				Model:   "sentence-transformers/all-MiniLM-L6-v2",
				BaseURL: server.URL,
			})
			require.NoError(t, err)

			resp, err := p.Invoke(context.Background(), types.Request{Prompt: "hello"})
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, resp.Embedding, 1e-6)
			assert.Empty(t, resp.Text)
		})
	}
}

func TestPoolVectorRejectsBadPayloads(t *testing.T) {
	_, err := poolVector(map[string]interface{}{"error": "x"})
	assert.Error(t, err)

	_, err = poolVector([]interface{}{})
	assert.Error(t, err)

	_, err = poolVector([]interface{}{
		[]interface{}{1.0, 2.0},
		[]interface{}{1.0},
	})
	assert.ErrorContains(t, err, "ragged")
}
