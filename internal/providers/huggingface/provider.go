package huggingface

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/aikernel/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/aikernel/internal/providers/http/client"
	"github.com/GriffinCanCode/aikernel/internal/types"
)

// DefaultBaseURL is the hosted Inference API endpoint
const DefaultBaseURL = "https://api-inference.huggingface.co"

// Config configures a HuggingFace backend
type Config struct {
	Model     string
	BaseURL   string
	Token     string
	Timeout   time.Duration
	RateLimit float64
	// Settings are defaults merged under every request's settings
	Settings types.Settings
	Logger   *zap.Logger
	// OnBreakerChange observes the upstream circuit breaker
	OnBreakerChange func(name string, from, to resilience.State)
}

// Provider runs text generation or feature extraction against one model
type Provider struct {
	model      string
	capability types.Capability
	defaults   types.Settings
	client     *client.Client
}

// New creates a backend for capability.
// Text generation serves both completion capabilities; feature extraction serves embeddings.
func New(capability types.Capability, cfg Config) (*Provider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("huggingface: model is required")
	}
	if !capability.Valid() {
		return nil, fmt.Errorf("huggingface: unknown capability %q", capability)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Provider{
		model:      cfg.Model,
		capability: capability,
		defaults:   cfg.Settings.Merge(types.DefaultSettings()),
		client: client.New(client.Options{
			Name:       "huggingface:" + cfg.Model,
			BaseURL:    baseURL,
			Token:      cfg.Token,
			Timeout:    cfg.Timeout,
			RateLimit:  cfg.RateLimit,
			MaxRetries: 3,
			Logger:     cfg.Logger,

			OnStateChange: cfg.OnBreakerChange,
		}),
	}, nil
}

// Defaults returns the settings merged under every request
func (p *Provider) Defaults() types.Settings {
	return p.defaults
}

// Capabilities reports the single capability this backend was built for
func (p *Provider) Capabilities() []types.Capability {
	return []types.Capability{p.capability}
}

// Model returns the model identifier
func (p *Provider) Model() string {
	return p.model
}

// Invoke dispatches on the configured capability
func (p *Provider) Invoke(ctx context.Context, req types.Request) (*types.Response, error) {
	if p.capability == types.CapabilityEmbedding {
		vec, err := p.Embed(ctx, req.Prompt)
		if err != nil {
			return nil, err
		}
		return &types.Response{Embedding: vec, Model: p.model}, nil
	}

	text, err := p.CompleteText(ctx, req.Prompt, req.Settings)
	if err != nil {
		return nil, err
	}
	return &types.Response{Text: text, Model: p.model}, nil
}

type generationRequest struct {
	Inputs     string               `json:"inputs"`
	Parameters generationParameters `json:"parameters"`
	Options    requestOptions       `json:"options"`
}

type generationParameters struct {
	MaxNewTokens       int      `json:"max_new_tokens,omitempty"`
	Temperature        float64  `json:"temperature,omitempty"`
	TopP               float64  `json:"top_p,omitempty"`
	DoSample           bool     `json:"do_sample"`
	ReturnFullText     bool     `json:"return_full_text"`
	NumReturnSequences int      `json:"num_return_sequences,omitempty"`
	Stop               []string `json:"stop,omitempty"`
}

type requestOptions struct {
	WaitForModel bool `json:"wait_for_model"`
	UseCache     bool `json:"use_cache"`
}

type generation struct {
	GeneratedText string `json:"generated_text"`
}

// CompleteText runs the text-generation task and returns the first sequence
func (p *Provider) CompleteText(ctx context.Context, prompt string, settings types.Settings) (string, error) {
	s := settings.Merge(p.defaults)

	params := generationParameters{
		MaxNewTokens:       s.MaxTokens,
		ReturnFullText:     false,
		NumReturnSequences: s.NumberOfResponses,
		Stop:               s.StopSequences,
	}
	// The API rejects temperature 0; greedy decoding is expressed with do_sample=false
	if s.Sampled() {
		params.DoSample = true
		params.Temperature = s.TemperatureValue()
		if s.TopP > 0 && s.TopP < 1 {
			params.TopP = s.TopP
		}
	}

	body := generationRequest{
		Inputs:     prompt,
		Parameters: params,
		Options:    requestOptions{WaitForModel: true, UseCache: !s.Sampled()},
	}

	var out []generation
	if err := p.client.PostJSON(ctx, "/models/"+p.model, body, &out); err != nil {
		return "", fmt.Errorf("huggingface text generation: %w", err)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("huggingface text generation: empty response")
	}
	return out[0].GeneratedText, nil
}

type extractionRequest struct {
	Inputs  string         `json:"inputs"`
	Options requestOptions `json:"options"`
}

// Embed runs the feature-extraction pipeline.
// Token-level outputs are mean-pooled into a single vector.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	body := extractionRequest{
		Inputs:  text,
		Options: requestOptions{WaitForModel: true, UseCache: true},
	}

	var out interface{}
	path := "/pipeline/feature-extraction/" + p.model
	if err := p.client.PostJSON(ctx, path, body, &out); err != nil {
		return nil, fmt.Errorf("huggingface feature extraction: %w", err)
	}

	vec, err := poolVector(out)
	if err != nil {
		return nil, fmt.Errorf("huggingface feature extraction: %w", err)
	}
	return vec, nil
}

// poolVector flattens [d], [[d]...] or [[[d]...]] into a single d-length vector
func poolVector(v interface{}) ([]float32, error) {
	items, ok := v.([]interface{})
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("unexpected embedding payload")
	}

	if _, isNumber := items[0].(float64); isNumber {
		vec := make([]float32, len(items))
		for i, item := range items {
			f, ok := item.(float64)
			if !ok {
				return nil, fmt.Errorf("non-numeric embedding value at %d", i)
			}
			vec[i] = float32(f)
		}
		return vec, nil
	}

	// Batch of one input: unwrap and recurse
	if len(items) == 1 {
		return poolVector(items[0])
	}

	var sum []float32
	for _, item := range items {
		row, err := poolVector(item)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			sum = make([]float32, len(row))
		}
		if len(row) != len(sum) {
			return nil, fmt.Errorf("ragged embedding rows: %d != %d", len(row), len(sum))
		}
		for i, f := range row {
			sum[i] += f
		}
	}
	n := float32(len(items))
	for i := range sum {
		sum[i] /= n
	}
	return sum, nil
}
