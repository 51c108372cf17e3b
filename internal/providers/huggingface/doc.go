// Package huggingface provides a backend for the HuggingFace Inference API.
//
// Text completion and chat completion use the text-generation task
// (POST /models/{model}); embeddings use the feature-extraction pipeline
// (POST /pipeline/feature-extraction/{model}).
package huggingface
