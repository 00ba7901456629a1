package model

import (
	"context"
	"fmt"
)

// MockStepModel is a lightweight in-memory StepModel useful for tests &
// examples. It replays scripted text outputs: each GenerateStep call
// consumes the next script entry and appends it (plus an end-of-sequence
// marker) to every running row's seed, the way a real primitive that was
// mocked at the generation boundary would.
type MockStepModel struct {
	tokenizer Tokenizer
	script    []string
	calls     int
}

// NewMockStepModel constructs a MockStepModel replaying the given outputs.
func NewMockStepModel(tokenizer Tokenizer, script ...string) *MockStepModel {
	return &MockStepModel{tokenizer: tokenizer, script: script}
}

// Calls returns how many generation steps have been consumed.
func (m *MockStepModel) Calls() int { return m.calls }

// GenerateStep implements the StepModel interface.
func (m *MockStepModel) GenerateStep(_ context.Context, req StepRequest) (StepResult, error) {
	if m.calls >= len(m.script) {
		return StepResult{}, fmt.Errorf("mock script exhausted after %d calls", len(m.script))
	}
	text := m.script[m.calls]
	m.calls++

	sequences := make([][]int, len(req.Seeds))
	for row, seed := range req.Seeds {
		seq := make([]int, 0, len(seed)+8)
		seq = append(seq, seed...)
		seq = append(seq, m.tokenizer.Encode(text)...)
		// Real primitives consult the condition as tokens accumulate
		// and halt before emitting an end-of-sequence marker; for
		// canned text the final check is equivalent.
		triggered := req.Stop != nil && req.Stop.Done(row, seq)
		if !triggered {
			seq = append(seq, m.tokenizer.EOSID())
		}
		sequences[row] = seq
	}
	return StepResult{Sequences: sequences}, nil
}

// Info implements the StepModel interface.
func (m *MockStepModel) Info() Info {
	return Info{Name: "mock", Provider: "mock"}
}
