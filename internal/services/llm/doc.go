// Package llm provides an OpenAI-compatible chat client for multimodal
// generation.
//
// A Request is one text prompt plus an ordered list of images; the client
// encodes each image as a base64 data URL content part and posts a single
// chat completion with the configured temperature, top_p and max_tokens.
// OpenRouter is the default endpoint, but any service that speaks the same
// schema (including local gateways) works.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Generate: send a multimodal request, receive the raw response text.
// Client.HealthCheck: verify API key and model availability.
// UnwrapCodeFence: strip one markdown fence from a response.
//
// # Failure Behaviour
//
// There is no retry. Transport errors, non-2xx statuses (HTTPStatusError),
// API error bodies and empty content (EmptyContentError) are returned as-is;
// callers decide how to classify them. The HTTP client timeout bounds each
// call together with the caller's context.
package llm
