// Package client provides the HTTP client shared by remote model backends.
//
// Built on go-resty/resty with a hashicorp/go-retryablehttp transport:
//   - Transport-level retries with backoff for 429, 5xx and connection errors
//   - Per-backend rate limiting (golang.org/x/time/rate)
//   - Circuit breaker that ignores 4xx responses and caller cancellation
//   - JSON encoding through bytedance/sonic
//
// Example Usage:
//
//	c := client.New(client.Options{
//		Name:    "gpt2",
//		BaseURL: "https://api-inference.huggingface.co",
//		Token:   token,
//	})
//	var out []generation
//	err := c.PostJSON(ctx, "/models/gpt2", body, &out)
package client
