// Package openai provides a backend for OpenAI-compatible HTTP APIs.
//
// Capabilities map onto endpoints:
//   - text-completion: POST /completions
//   - chat-completion: POST /chat/completions
//   - embedding: POST /embeddings
//
// The same backend serves Ollama (/v1), OpenRouter and vLLM by pointing
// BaseURL at them.
package openai
