package engine

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/gadgetmesh/gadget"
	"github.com/hupe1980/gadgetmesh/internal/textutil"
	"github.com/hupe1980/gadgetmesh/logging"
	"github.com/hupe1980/gadgetmesh/markup"
	"github.com/hupe1980/gadgetmesh/model"
)

// ----- Generate: plain completions -----

func TestGenerate_ResultOnly(t *testing.T) {
	tokenizer := model.NewWordTokenizer()
	mock := model.NewMockStepModel(tokenizer,
		"Final result is <result>4</result>",
	)
	eng := New(mock, tokenizer)

	texts, err := eng.Generate(context.Background(), []string{"What is 2+2?\n"})
	require.NoError(t, err)
	require.Len(t, texts, 1)

	assert.Equal(t, 1, mock.Calls())
	assert.Equal(t, "4", markup.GetResult(texts[0]))
}

func TestGenerate_ReasoningThenResult(t *testing.T) {
	tokenizer := model.NewWordTokenizer()
	mock := model.NewMockStepModel(tokenizer,
		"Two plus two is four. Final result is <result>4</result>",
	)
	eng := New(mock, tokenizer)

	texts, err := eng.Generate(context.Background(), []string{"What is 2+2?\n"})
	require.NoError(t, err)

	assert.Contains(t, texts[0], "Two plus two is four.")
	assert.Equal(t, "4", markup.GetResult(texts[0]))
}

// ----- Generate: gadget call resolution -----

func TestGenerate_SingleGadgetCall(t *testing.T) {
	tokenizer := model.NewWordTokenizer()
	mock := model.NewMockStepModel(tokenizer,
		`<gadget id="calculator">2+2</gadget>`,
		"Final result is <result>4</result>",
	)
	eng := New(mock, tokenizer)

	texts, err := eng.Generate(context.Background(), []string{"What is 2+2?\n"}, func(o *GenerateOptions) {
		o.Gadgets = []gadget.Gadget{gadget.NewCalculator()}
	})
	require.NoError(t, err)

	assert.Equal(t, 2, mock.Calls())
	assert.Equal(t,
		`<gadget id="calculator">2+2</gadget> <output>4</output> Final result is <result>4</result>`,
		textutil.CollapseWhitespace(texts[0]),
	)

	chain, result, err := markup.Decode(texts[0])
	require.NoError(t, err)
	assert.Equal(t, "4", result)
	require.Equal(t, 1, chain.NumInteractions())
}

func TestGenerate_TwoSequentialGadgetCalls(t *testing.T) {
	tokenizer := model.NewWordTokenizer()
	mock := model.NewMockStepModel(tokenizer,
		`<gadget id="calculator">1+1</gadget>`,
		`<gadget id="calculator">3*3</gadget>`,
		"Final result is <result>9</result>",
	)
	eng := New(mock, tokenizer)

	texts, err := eng.Generate(context.Background(), []string{"Compute.\n"}, func(o *GenerateOptions) {
		o.Gadgets = []gadget.Gadget{gadget.NewCalculator()}
	})
	require.NoError(t, err)

	assert.Equal(t, 3, mock.Calls())
	assert.Contains(t, texts[0], "<output>2</output>")
	assert.Contains(t, texts[0], "<output>9</output>")

	chain, result, err := markup.Decode(texts[0])
	require.NoError(t, err)
	assert.Equal(t, "9", result)
	assert.Equal(t, 2, chain.NumInteractions())
}

func TestGenerate_TwoCallsInOneChunk(t *testing.T) {
	tokenizer := model.NewWordTokenizer()
	// The first call already carries its output; only the trailing
	// unresolved call may be dispatched.
	mock := model.NewMockStepModel(tokenizer,
		"<gadget id=\"calculator\">1+1</gadget>\n<output>2</output>\n<gadget id=\"calculator\">3*3</gadget>",
		"Final result is <result>9</result>",
	)
	eng := New(mock, tokenizer)

	calls := 0
	counting := gadget.NewFunc("calculator", func(input string) string {
		calls++
		return gadget.NewCalculator().Call(input)
	})

	texts, err := eng.Generate(context.Background(), []string{"Compute.\n"}, func(o *GenerateOptions) {
		o.Gadgets = []gadget.Gadget{counting}
	})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, strings.Count(texts[0], "<output>2</output>"))
	assert.Contains(t, texts[0], "<output>9</output>")

	chain, _, err := markup.Decode(texts[0])
	require.NoError(t, err)
	assert.Equal(t, 2, chain.NumInteractions())
}

func TestGenerate_UnknownGadget(t *testing.T) {
	tokenizer := model.NewWordTokenizer()
	mock := model.NewMockStepModel(tokenizer,
		`<gadget id="oracle">what is the answer?</gadget>`,
		"Final result is <result>unknown</result>",
	)
	eng := New(mock, tokenizer)

	texts, err := eng.Generate(context.Background(), []string{"Ask.\n"})
	require.NoError(t, err)

	assert.Contains(t, texts[0], "<output>ERROR: Gadget 'oracle' not found</output>")

	chain, _, err := markup.Decode(texts[0])
	require.NoError(t, err)
	assert.Equal(t, 1, chain.NumInteractions())
}

func TestGenerate_PanickingGadget(t *testing.T) {
	tokenizer := model.NewWordTokenizer()
	mock := model.NewMockStepModel(tokenizer,
		`<gadget id="boom">anything</gadget>`,
		"Final result is <result>n/a</result>",
	)
	eng := New(mock, tokenizer)

	texts, err := eng.Generate(context.Background(), []string{"Go.\n"}, func(o *GenerateOptions) {
		o.Gadgets = []gadget.Gadget{gadget.NewFunc("boom", func(string) string {
			panic("kaboom")
		})}
	})
	require.NoError(t, err)

	assert.Contains(t, texts[0], "<output>ERROR: Gadget 'boom' failed</output>")
}

// ----- Generate: budget and batching -----

func TestGenerate_SharedBudgetCutsOffBatch(t *testing.T) {
	tokenizer := model.NewWordTokenizer()
	mock := model.NewMockStepModel(tokenizer,
		`<gadget id="calculator">2+2</gadget>`,
		"never reached",
	)
	eng := New(mock, tokenizer)

	texts, err := eng.Generate(context.Background(), []string{"What is 2+2?\n"}, func(o *GenerateOptions) {
		o.MaxTokens = 4
		o.Gadgets = []gadget.Gadget{gadget.NewCalculator()}
	})
	require.NoError(t, err)

	// The first round still runs and its call is resolved, but the spliced
	// output pushes the continuation past the budget and ends the call.
	assert.Equal(t, 1, mock.Calls())
	assert.Contains(t, texts[0], "<output>4</output>")
	assert.NotContains(t, texts[0], "never reached")
}

// rowScriptModel replays per-row scripts, one entry per round, so rows can
// diverge within a batch.
type rowScriptModel struct {
	tokenizer model.Tokenizer
	scripts   [][]string
	round     int
}

func (m *rowScriptModel) GenerateStep(_ context.Context, req model.StepRequest) (model.StepResult, error) {
	sequences := make([][]int, len(req.Seeds))
	for row, seed := range req.Seeds {
		text := m.scripts[row][m.round]
		seq := append(append([]int{}, seed...), m.tokenizer.Encode(text)...)
		if req.Stop == nil || !req.Stop.Done(row, seq) {
			seq = append(seq, m.tokenizer.EOSID())
		}
		sequences[row] = seq
	}
	m.round++
	return model.StepResult{Sequences: sequences}, nil
}

func (m *rowScriptModel) Info() model.Info { return model.Info{Name: "rowscript", Provider: "mock"} }

func TestGenerate_SharedBudgetCutsShortRows(t *testing.T) {
	tokenizer := model.NewWordTokenizer()
	// Row 0 produces a long reasoning chunk, row 1 a short one. Both call
	// the calculator so both stay running into round two, where row 0's
	// continuation alone exhausts the shared budget and freezes row 1 too.
	m := &rowScriptModel{
		tokenizer: tokenizer,
		scripts: [][]string{
			{"Let us think about this very carefully and work through every single step. <gadget id=\"calculator\">2+2</gadget>"},
			{`<gadget id="calculator">3+3</gadget>`},
		},
	}
	eng := New(m, tokenizer)

	texts, err := eng.Generate(context.Background(), []string{"A?\n", "B?\n"}, func(o *GenerateOptions) {
		o.MaxTokens = 20
		o.Gadgets = []gadget.Gadget{gadget.NewCalculator()}
	})
	require.NoError(t, err)

	assert.Equal(t, 1, m.round)
	assert.Contains(t, texts[0], "<output>4</output>")
	// Row 1 would have fit more tokens on its own but is frozen with the
	// batch.
	assert.Contains(t, texts[1], "<output>6</output>")
	assert.Equal(t, "", markup.GetResult(texts[1]))
}

func TestGenerate_Batch(t *testing.T) {
	tokenizer := model.NewWordTokenizer()
	mock := model.NewMockStepModel(tokenizer,
		`<gadget id="calculator">2+2</gadget>`,
		"Final result is <result>4</result>",
	)
	eng := New(mock, tokenizer)

	prompts := []string{"First question?\n", "Second question?\n"}
	texts, err := eng.Generate(context.Background(), prompts, func(o *GenerateOptions) {
		o.Gadgets = []gadget.Gadget{gadget.NewCalculator()}
	})
	require.NoError(t, err)
	require.Len(t, texts, 2)

	for _, text := range texts {
		assert.Contains(t, text, "<output>4</output>")
		assert.Equal(t, "4", markup.GetResult(text))
	}
}

func TestGenerate_CanceledContext(t *testing.T) {
	tokenizer := model.NewWordTokenizer()
	mock := model.NewMockStepModel(tokenizer, "unused")
	eng := New(mock, tokenizer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Generate(ctx, []string{"prompt\n"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerate_ScriptExhausted(t *testing.T) {
	tokenizer := model.NewWordTokenizer()
	mock := model.NewMockStepModel(tokenizer) // no scripted rounds at all
	eng := New(mock, tokenizer)

	_, err := eng.Generate(context.Background(), []string{"prompt\n"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation step 1 failed")
}

// truncatingStepModel breaks the contract that every returned sequence
// extends its seed, by dropping the tail of each row.
type truncatingStepModel struct{}

func (m *truncatingStepModel) GenerateStep(_ context.Context, req model.StepRequest) (model.StepResult, error) {
	sequences := make([][]int, len(req.Seeds))
	for i, seed := range req.Seeds {
		sequences[i] = seed[:len(seed)/2]
	}
	return model.StepResult{Sequences: sequences}, nil
}

func (m *truncatingStepModel) Info() model.Info {
	return model.Info{Name: "truncating", Provider: "mock"}
}

func TestGenerate_SequenceShorterThanSeed(t *testing.T) {
	tokenizer := model.NewWordTokenizer()
	eng := New(&truncatingStepModel{}, tokenizer)

	_, err := eng.Generate(context.Background(), []string{"prompt\n"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shorter than its seed")
}

// ----- Logging -----

func TestGenerate_RecordsGadgetCalls(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.LoggerConfig{
		Level:  logging.LogLevelDebug,
		Format: "json",
		Output: &buf,
	})

	tokenizer := model.NewWordTokenizer()
	mock := model.NewMockStepModel(tokenizer,
		`<gadget id="calculator">2+2</gadget>`,
		"Final result is <result>4</result>",
	)
	eng := New(mock, tokenizer, func(o *Options) {
		o.Logger = logger
	})

	_, err := eng.Generate(context.Background(), []string{"What is 2+2?\n"}, func(o *GenerateOptions) {
		o.Gadgets = []gadget.Gadget{gadget.NewCalculator()}
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Gadget call completed")
	assert.Contains(t, out, `"gadget_id":"calculator"`)
	assert.Contains(t, out, "Generation round completed")
	assert.Contains(t, out, "Generation completed")
}

// ----- GenerateDecoded -----

func TestGenerateDecoded(t *testing.T) {
	tokenizer := model.NewWordTokenizer()
	mock := model.NewMockStepModel(tokenizer,
		`<gadget id="calculator">17*3</gadget>`,
		"Final result is <result>51</result>",
	)
	eng := New(mock, tokenizer)

	chains, results, err := eng.GenerateDecoded(context.Background(), []string{"Compute 17*3.\n"}, func(o *GenerateOptions) {
		o.Gadgets = []gadget.Gadget{gadget.NewCalculator()}
	})
	require.NoError(t, err)
	require.Len(t, chains, 1)
	require.Len(t, results, 1)

	assert.Equal(t, "51", results[0])
	require.Equal(t, 1, chains[0].NumInteractions())

	var interaction markup.Interaction
	for _, step := range chains[0] {
		if it, ok := step.(markup.Interaction); ok {
			interaction = it
		}
	}
	assert.Equal(t, "calculator", interaction.GadgetID)
	assert.Equal(t, "17*3", interaction.Inputs)
	assert.Equal(t, "51", interaction.Outputs)
}

// ----- Helpers -----

func TestTokenBudgetFromLengths(t *testing.T) {
	maxTokens, minTokens := TokenBudgetFromLengths(400, 50, 30)
	assert.Equal(t, 370, maxTokens)
	assert.Equal(t, 20, minTokens)

	maxTokens, minTokens = TokenBudgetFromLengths(0, 0, 30)
	assert.Equal(t, 0, maxTokens)
	assert.Equal(t, 0, minTokens)
}
