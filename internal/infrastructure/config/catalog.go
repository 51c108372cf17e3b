package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/aikernel/internal/shared/utils"
	"github.com/GriffinCanCode/aikernel/internal/types"
)

// Known provider identifiers
const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
	ProviderEcho        = "echo"
)

// Catalog lists the backends to register at startup.
type Catalog struct {
	Services []ServiceEntry `yaml:"services" toml:"services"`
}

// ServiceEntry describes one backend registration.
type ServiceEntry struct {
	Name       string         `yaml:"name" toml:"name"`
	Capability string         `yaml:"capability" toml:"capability"`
	Provider   string         `yaml:"provider" toml:"provider"`
	Model      string         `yaml:"model" toml:"model"`
	BaseURL    string         `yaml:"base_url" toml:"base_url"`
	APIKey     string         `yaml:"api_key" toml:"api_key"`
	Default    bool           `yaml:"default" toml:"default"`
	Timeout    string         `yaml:"timeout" toml:"timeout"`
	RateLimit  float64        `yaml:"rate_limit" toml:"rate_limit"`
	CacheTTL   string         `yaml:"cache_ttl" toml:"cache_ttl"`
	Settings   types.Settings `yaml:"settings" toml:"settings"`
}

// DefaultCatalog registers a single HuggingFace gpt2 text-generation backend.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Services: []ServiceEntry{
			{
				Name:       "gpt2",
				Capability: string(types.CapabilityTextCompletion),
				Provider:   ProviderHuggingFace,
				Model:      "gpt2",
				Default:    true,
			},
		},
	}
}

// LoadCatalog reads a YAML or TOML catalog, picking the format by extension.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service catalog: %w", err)
	}

	catalog, err := ParseCatalog(data, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

// ParseCatalog decodes and validates catalog data in the given format.
func ParseCatalog(data []byte, format string) (*Catalog, error) {
	var catalog Catalog

	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("invalid YAML catalog: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("invalid TOML catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}

	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Validate checks entries for unknown values, duplicates and conflicting defaults.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Services))
	defaults := make(map[string]string)

	for i, entry := range c.Services {
		if strings.TrimSpace(entry.Name) == "" {
			return fmt.Errorf("service %d: name is required", i)
		}
		if err := utils.ValidateServiceName(entry.Name, true); err != nil {
			return fmt.Errorf("service %d: %w", i, err)
		}
		if _, ok := types.ParseCapability(entry.Capability); !ok {
			return fmt.Errorf("service %q: unknown capability %q", entry.Name, entry.Capability)
		}
		switch entry.Provider {
		case ProviderHuggingFace, ProviderOpenAI, ProviderEcho:
		default:
			return fmt.Errorf("service %q: unknown provider %q", entry.Name, entry.Provider)
		}
		if entry.Provider != ProviderEcho && entry.Model == "" {
			return fmt.Errorf("service %q: model is required for provider %s", entry.Name, entry.Provider)
		}
		if _, err := entry.TimeoutDuration(); err != nil {
			return fmt.Errorf("service %q: invalid timeout: %w", entry.Name, err)
		}
		if _, err := entry.CacheTTLDuration(); err != nil {
			return fmt.Errorf("service %q: invalid cache_ttl: %w", entry.Name, err)
		}
		if entry.RateLimit < 0 {
			return fmt.Errorf("service %q: rate_limit cannot be negative", entry.Name)
		}

		key := entry.Capability + "/" + entry.Name
		if seen[key] {
			return fmt.Errorf("service %q registered twice for %s", entry.Name, entry.Capability)
		}
		seen[key] = true

		if entry.Default {
			if prev, ok := defaults[entry.Capability]; ok {
				return fmt.Errorf("capability %s has two defaults: %q and %q", entry.Capability, prev, entry.Name)
			}
			defaults[entry.Capability] = entry.Name
		}
	}
	return nil
}

// CapabilityType returns the entry capability.
func (e ServiceEntry) CapabilityType() types.Capability {
	return types.Capability(e.Capability)
}

// TimeoutDuration parses Timeout; zero means the global default.
func (e ServiceEntry) TimeoutDuration() (time.Duration, error) {
	return parseOptionalDuration(e.Timeout)
}

// CacheTTLDuration parses CacheTTL; zero disables caching.
func (e ServiceEntry) CacheTTLDuration() (time.Duration, error) {
	return parseOptionalDuration(e.CacheTTL)
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration cannot be negative: %s", s)
	}
	return d, nil
}
