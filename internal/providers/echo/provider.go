package echo

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/GriffinCanCode/aikernel/internal/types"
)

// EmbeddingDimensions is the length of vectors produced by the echo backend
const EmbeddingDimensions = 16

// Provider is a deterministic offline backend.
// Completions return the prompt (optionally prefixed and truncated to MaxTokens words);
// embeddings are a hashed bag-of-words, L2-normalized.
type Provider struct {
	prefix     string
	capability types.Capability
}

// New creates an echo backend bound to one capability
func New(prefix string, capability types.Capability) *Provider {
	return &Provider{prefix: prefix, capability: capability}
}

// Capabilities reports the single capability this backend was built for
func (p *Provider) Capabilities() []types.Capability {
	return []types.Capability{p.capability}
}

// Invoke returns the echo response. An embedding backend returns a vector and no text.
func (p *Provider) Invoke(ctx context.Context, req types.Request) (*types.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.capability == types.CapabilityEmbedding {
		vec, err := p.Embed(ctx, req.Prompt)
		if err != nil {
			return nil, err
		}
		return &types.Response{Embedding: vec, Model: "echo"}, nil
	}

	text, err := p.CompleteText(ctx, req.Prompt, req.Settings)
	if err != nil {
		return nil, err
	}
	words := len(strings.Fields(req.Prompt))
	return &types.Response{
		Text:  text,
		Model: "echo",
		Usage: &types.Usage{PromptTokens: words, CompletionTokens: len(strings.Fields(text))},
	}, nil
}

// CompleteText echoes prompt
func (p *Provider) CompleteText(ctx context.Context, prompt string, settings types.Settings) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text := prompt
	if settings.MaxTokens > 0 {
		if words := strings.Fields(text); len(words) > settings.MaxTokens {
			text = strings.Join(words[:settings.MaxTokens], " ")
		}
	}
	return p.prefix + text, nil
}

// Embed hashes each lower-cased word into one of EmbeddingDimensions buckets
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, EmbeddingDimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[h.Sum32()%EmbeddingDimensions]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}
