package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/aikernel/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/aikernel/internal/providers/http/client"
	"github.com/GriffinCanCode/aikernel/internal/types"
)

// DefaultBaseURL is the public OpenAI endpoint. Ollama, OpenRouter and
// other compatible servers are reached by overriding it.
const DefaultBaseURL = "https://api.openai.com/v1"

// Config configures an OpenAI-compatible backend
type Config struct {
	Model     string
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64
	Settings  types.Settings
	Logger    *zap.Logger
	// OnBreakerChange observes the upstream circuit breaker
	OnBreakerChange func(name string, from, to resilience.State)
}

// Provider serves one capability against one model
type Provider struct {
	model      string
	capability types.Capability
	defaults   types.Settings
	client     *client.Client
}

// New creates a backend for capability
func New(capability types.Capability, cfg Config) (*Provider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai: model is required")
	}
	if !capability.Valid() {
		return nil, fmt.Errorf("openai: unknown capability %q", capability)
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
			Name:       "openai:" + cfg.Model,
			BaseURL:    baseURL,
			Token:      cfg.APIKey,
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

// Invoke routes the request to the endpoint for the configured capability
func (p *Provider) Invoke(ctx context.Context, req types.Request) (*types.Response, error) {
	switch p.capability {
	case types.CapabilityChatCompletion:
		return p.chat(ctx, req)
	case types.CapabilityEmbedding:
		return p.embed(ctx, req)
	default:
		return p.complete(ctx, req)
	}
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func (u *usage) toUsage() *types.Usage {
	if u == nil {
		return nil
	}
	return &types.Usage{PromptTokens: u.PromptTokens, CompletionTokens: u.CompletionTokens}
}

type samplingParams struct {
	MaxTokens        int      `json:"max_tokens,omitempty"`
	Temperature      float64  `json:"temperature"`
	TopP             float64  `json:"top_p,omitempty"`
	PresencePenalty  float64  `json:"presence_penalty,omitempty"`
	FrequencyPenalty float64  `json:"frequency_penalty,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	N                int      `json:"n,omitempty"`
}

func (p *Provider) sampling(settings types.Settings) samplingParams {
	s := settings.Merge(p.defaults)
	return samplingParams{
		MaxTokens:        s.MaxTokens,
		Temperature:      s.TemperatureValue(),
		TopP:             s.TopP,
		PresencePenalty:  s.PresencePenalty,
		FrequencyPenalty: s.FrequencyPenalty,
		Stop:             s.StopSequences,
		N:                s.NumberOfResponses,
	}
}

type completionRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	samplingParams
}

type completionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
	Usage *usage `json:"usage"`
}

func (p *Provider) complete(ctx context.Context, req types.Request) (*types.Response, error) {
	body := completionRequest{
		Model:          p.model,
		Prompt:         req.Prompt,
		samplingParams: p.sampling(req.Settings),
	}

	var out completionResponse
	if err := p.client.PostJSON(ctx, "/completions", body, &out); err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("openai completion: no choices returned")
	}
	return &types.Response{
		Text:  out.Choices[0].Text,
		Model: modelOr(out.Model, p.model),
		Usage: out.Usage.toUsage(),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	samplingParams
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *usage `json:"usage"`
}

// chat sends the prompt as a single user turn. A "system" entry in
// Settings.Extra becomes the system message.
func (p *Provider) chat(ctx context.Context, req types.Request) (*types.Response, error) {
	messages := make([]chatMessage, 0, 2)
	if system, ok := req.Settings.Extra["system"].(string); ok && strings.TrimSpace(system) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:          p.model,
		Messages:       messages,
		samplingParams: p.sampling(req.Settings),
	}

	var out chatResponse
	if err := p.client.PostJSON(ctx, "/chat/completions", body, &out); err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("openai chat completion: no choices returned")
	}
	return &types.Response{
		Text:  out.Choices[0].Message.Content,
		Model: modelOr(out.Model, p.model),
		Usage: out.Usage.toUsage(),
	}, nil
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Model string `json:"model"`
	Data  []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage *usage `json:"usage"`
}

func (p *Provider) embed(ctx context.Context, req types.Request) (*types.Response, error) {
	var out embeddingResponse
	body := embeddingRequest{Model: p.model, Input: req.Prompt}
	if err := p.client.PostJSON(ctx, "/embeddings", body, &out); err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("openai embedding: no data returned")
	}
	return &types.Response{
		Embedding: out.Data[0].Embedding,
		Model:     modelOr(out.Model, p.model),
		Usage:     out.Usage.toUsage(),
	}, nil
}

func modelOr(reported, configured string) string {
	if reported != "" {
		return reported
	}
	return configured
}
