package types

// Capability identifies a uniform request/response shape a backend can fulfill
type Capability string

const (
	CapabilityTextCompletion Capability = "text-completion"
	CapabilityChatCompletion Capability = "chat-completion"
	CapabilityEmbedding      Capability = "embedding"
)

// Capabilities returns every known capability in declaration order
func Capabilities() []Capability {
	return []Capability{
		CapabilityTextCompletion,
		CapabilityChatCompletion,
		CapabilityEmbedding,
	}
}

// Valid reports whether c is a known capability
func (c Capability) Valid() bool {
	switch c {
	case CapabilityTextCompletion, CapabilityChatCompletion, CapabilityEmbedding:
		return true
	}
	return false
}

// String returns the capability identifier
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts an identifier into a known capability
func ParseCapability(s string) (Capability, bool) {
	c := Capability(s)
	return c, c.Valid()
}

// Settings is the configuration bag passed along with a prompt.
// Backends honour the options they recognize and ignore the rest.
// Zero numeric fields mean "unset" when merged, except Temperature: a nil
// Temperature is unset, a pointer to 0 explicitly asks for greedy decoding.
type Settings struct {
	MaxTokens         int            `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty"`
	Temperature       *float64       `json:"temperature,omitempty" yaml:"temperature,omitempty" toml:"temperature,omitempty"`
	TopP              float64        `json:"top_p,omitempty" yaml:"top_p,omitempty" toml:"top_p,omitempty"`
	PresencePenalty   float64        `json:"presence_penalty,omitempty" yaml:"presence_penalty,omitempty" toml:"presence_penalty,omitempty"`
	FrequencyPenalty  float64        `json:"frequency_penalty,omitempty" yaml:"frequency_penalty,omitempty" toml:"frequency_penalty,omitempty"`
	StopSequences     []string       `json:"stop_sequences,omitempty" yaml:"stop_sequences,omitempty" toml:"stop_sequences,omitempty"`
	NumberOfResponses int            `json:"number_of_responses,omitempty" yaml:"number_of_responses,omitempty" toml:"number_of_responses,omitempty"`
	Extra             map[string]any `json:"extra,omitempty" yaml:"extra,omitempty" toml:"extra,omitempty"`
}

// DefaultSettings returns the settings used when a caller supplies none
func DefaultSettings() Settings {
	return Settings{
		MaxTokens:         256,
		Temperature:       Float64(0),
		TopP:              1,
		NumberOfResponses: 1,
	}
}

// Merge returns s with zero-valued fields filled from base.
// Extra keys from both are kept, s wins on conflict.
func (s Settings) Merge(base Settings) Settings {
	out := s
	if out.MaxTokens == 0 {
		out.MaxTokens = base.MaxTokens
	}
	if out.Temperature == nil && base.Temperature != nil {
		out.Temperature = Float64(*base.Temperature)
	}
	if out.TopP == 0 {
		out.TopP = base.TopP
	}
	if out.PresencePenalty == 0 {
		out.PresencePenalty = base.PresencePenalty
	}
	if out.FrequencyPenalty == 0 {
		out.FrequencyPenalty = base.FrequencyPenalty
	}
	if len(out.StopSequences) == 0 && len(base.StopSequences) > 0 {
		out.StopSequences = append([]string(nil), base.StopSequences...)
	}
	if out.NumberOfResponses == 0 {
		out.NumberOfResponses = base.NumberOfResponses
	}
	if len(base.Extra) > 0 {
		extra := make(map[string]any, len(base.Extra)+len(s.Extra))
		for k, v := range base.Extra {
			extra[k] = v
		}
		for k, v := range s.Extra {
			extra[k] = v
		}
		out.Extra = extra
	}
	return out
}

// TemperatureValue returns the sampling temperature, 0 when unset
func (s Settings) TemperatureValue() float64 {
	if s.Temperature == nil {
		return 0
	}
	return *s.Temperature
}

// Sampled reports whether the settings ask for non-deterministic output
func (s Settings) Sampled() bool {
	return s.TemperatureValue() > 0
}

// Float64 returns a pointer to v, for optional settings
func Float64(v float64) *float64 {
	return &v
}

// Request is the normalized input every backend receives
type Request struct {
	Prompt   string   `json:"prompt"`
	Settings Settings `json:"settings"`
}

// Usage reports token accounting when a backend provides it
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Response is the normalized output of a successful invocation
type Response struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
	Model     string    `json:"model,omitempty"`
	Usage     *Usage    `json:"usage,omitempty"`
}
