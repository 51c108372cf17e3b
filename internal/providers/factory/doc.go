// Package factory turns service catalog entries into registered handles.
//
// Each entry picks a provider (huggingface, openai, echo), is optionally
// wrapped in a response cache, and is registered under its capability and
// name. Entries marked default become the capability default.
package factory
