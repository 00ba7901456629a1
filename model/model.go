package model

import "context"

// Tokenizer converts between text and token ids. Tokenization itself is an
// external collaborator; the engine only needs these three operations.
type Tokenizer interface {
	// Encode converts text to token ids without appending special tokens.
	Encode(text string) []int

	// Decode converts token ids back to text, skipping special tokens
	// such as the end-of-sequence marker.
	Decode(ids []int) string

	// EOSID returns the end-of-sequence token id.
	EOSID() int
}

// StopCondition is consulted by a StepModel as tokens accumulate. It is
// evaluated independently per batch row; implementations record per row
// whether they triggered so the caller can tell which rows stopped early.
type StopCondition interface {
	// Done reports whether generation for the given row should stop,
	// given the row's full token sequence so far.
	Done(row int, seq []int) bool
}

// StepRequest describes one batched continuation step.
type StepRequest struct {
	// Seeds holds the per-row continuation seeds: each running row's
	// accumulated text re-encoded as token ids.
	Seeds [][]int

	// MaxNewTokens bounds how many tokens may be produced beyond the
	// seed in this step. Zero means unbounded.
	MaxNewTokens int

	// MinNewTokens asks the primitive to keep producing at least this
	// many tokens before emitting an end-of-sequence marker.
	MinNewTokens int

	// Stop, when non-nil, must be consulted as tokens accumulate. The
	// primitive may halt the whole batch once any row reports done.
	Stop StopCondition
}

// StepResult carries the row-aligned outcome of one continuation step.
type StepResult struct {
	// Sequences holds, per row, the full token sequence: the seed plus
	// everything newly produced (including any end-of-sequence marker).
	Sequences [][]int
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// StepModel is the minimal interface the generation engine drives. One call
// extends every row of the batch once; the engine owns the loop, the splice
// logic and the shared token budget.
type StepModel interface {
	GenerateStep(ctx context.Context, req StepRequest) (StepResult, error)

	// Info returns information about the model implementation.
	Info() Info
}
