// Package llm provides ports.Generator implementations backed by hosted
// chat-completion APIs (OpenAI-compatible endpoints and Anthropic), plus an
// offline echo generator for demos.
package llm
