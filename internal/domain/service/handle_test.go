package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/aikernel/internal/types"
)

type reportingBackend struct {
	caps []types.Capability
}

func (r reportingBackend) Invoke(ctx context.Context, req types.Request) (*types.Response, error) {
	return &types.Response{}, nil
}

func (r reportingBackend) Capabilities() []types.Capability {
	return r.caps
}

type completer struct{}

func (completer) CompleteText(ctx context.Context, prompt string, settings types.Settings) (string, error) {
	if prompt == "" {
		return "", errors.New("empty prompt")
	}
	return prompt + " world", nil
}

type embedder struct{}

func (embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

func TestNewHandleValidation(t *testing.T) {
	backend := textBackend("")

	tests := []struct {
		name       string
		capability types.Capability
		handle     string
		backend    Backend
	}{
		{"empty name", types.CapabilityTextCompletion, "", backend},
		{"blank name", types.CapabilityTextCompletion, "   ", backend},
		{"unknown capability", types.Capability("vision"), "x", backend},
		{"nil backend", types.CapabilityTextCompletion, "x", nil},
		{"unsupported capability", types.CapabilityEmbedding, "x", reportingBackend{caps: []types.Capability{types.CapabilityTextCompletion}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandle(tt.capability, tt.handle, tt.backend)
			assert.Nil(t, h)
			assert.ErrorIs(t, err, ErrInvalidHandle)
		})
	}
}

func TestNewHandleTrimsName(t *testing.T) {
	h, err := NewHandle(types.CapabilityTextCompletion, "  gpt2 ", textBackend(""))
	require.NoError(t, err)
	assert.Equal(t, "gpt2", h.Name())
	assert.Equal(t, types.CapabilityTextCompletion, h.Capability())
	assert.NotNil(t, h.Backend())
}

func TestNewHandleAcceptsReportedCapability(t *testing.T) {
	b := reportingBackend{caps: []types.Capability{types.CapabilityEmbedding, types.CapabilityTextCompletion}}
	_, err := NewHandle(types.CapabilityEmbedding, "multi", b)
	assert.NoError(t, err)
}

func TestMustHandlePanics(t *testing.T) {
	assert.Panics(t, func() {
		MustHandle(types.CapabilityTextCompletion, "", textBackend(""))
	})
}

func TestCompletionBackend(t *testing.T) {
	b := CompletionBackend(completer{})

	resp, err := b.Invoke(context.Background(), types.Request{Prompt: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", resp.Text)

	_, err = b.Invoke(context.Background(), types.Request{})
	assert.EqualError(t, err, "empty prompt")
}

func TestEmbeddingBackend(t *testing.T) {
	b := EmbeddingBackend(embedder{})

	resp, err := b.Invoke(context.Background(), types.Request{Prompt: "abc"})
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, resp.Embedding)
	assert.Empty(t, resp.Text)
}

func TestErrorMessages(t *testing.T) {
	nf := &NotFoundError{Capability: types.CapabilityTextCompletion, Name: "x"}
	assert.Contains(t, nf.Error(), `"x"`)
	assert.Contains(t, nf.Error(), "text-completion")

	nd := &NoDefaultError{Capability: types.CapabilityEmbedding}
	assert.Contains(t, nd.Error(), "embedding")

	cause := errors.New("boom")
	be := &BackendError{Capability: types.CapabilityTextCompletion, Name: "gpt2", Err: cause}
	assert.Contains(t, be.Error(), "gpt2")
	assert.Contains(t, be.Error(), "boom")
	assert.ErrorIs(t, be, cause)
	assert.ErrorIs(t, be, ErrBackend)
	assert.False(t, IsResolution(be))
}
