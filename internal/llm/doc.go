// Package llm implements the reasoning delegate used by the classification
// resolver when no deterministic source can resolve a transaction. It wraps
// provider HTTP clients (OpenAI, Anthropic) behind a single Client interface,
// parses the structured field format the prompts require, and degrades
// malformed output into typed errors the resolver treats as no-match.
package llm
