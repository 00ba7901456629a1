// Package model defines the narrow contracts the generation engine needs
// from an underlying text generation primitive: a Tokenizer that converts
// between text and token ids, and a StepModel that extends a batch of token
// sequences subject to a stopping condition and a new-token budget.
//
// The engine composes these interfaces instead of wrapping a concrete model
// type, so any primitive can participate: a local model, a provider API
// adapter (see the openai and anthropic subpackages) or the in-memory
// MockStepModel used by tests and examples.
package model
