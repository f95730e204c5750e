// Package llm provides language model adapters for intent classification,
// query embedding and answer composition. It supports multiple providers
// (OpenAI, Gemini) behind a common client interface, with caller-side
// timeouts and strict validation of classification responses.
package llm
