// Package config provides 12-factor configuration for the kernel.
//
// Process settings come from environment variables with defaults
// (envconfig). The set of backends to register comes from a service catalog
// file in YAML or TOML, named by AIKERNEL_SERVICES_FILE. Without a catalog
// the kernel registers a single HuggingFace gpt2 text-completion backend.
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - AIKERNEL_SERVICES_FILE, AIKERNEL_BACKEND_TIMEOUT
//   - HF_API_TOKEN, OPENAI_API_KEY
//
// Catalog example (YAML):
//
//	services:
//	  - name: gpt2
//	    capability: text-completion
//	    provider: huggingface
//	    model: gpt2
//	    default: true
//	  - name: ada
//	    capability: embedding
//	    provider: openai
//	    model: text-embedding-3-small
//	    cache_ttl: 10m
package config
