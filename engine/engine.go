package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/gadgetmesh/gadget"
	"github.com/hupe1980/gadgetmesh/logging"
	"github.com/hupe1980/gadgetmesh/markup"
	"github.com/hupe1980/gadgetmesh/model"
)

// callRecorder is the richer logging surface of logging.GadgetMeshLogger.
// The engine upgrades its configured Logger to it when available and falls
// back to plain key/value logging otherwise.
type callRecorder interface {
	LogGadgetCall(gadgetID string, dur time.Duration, success bool)
	LogGenerationRound(round, runningRows, continuationLen int)
	LogGenerateCompleted(model string, rows, rounds int, dur time.Duration)
}

// budgetMargin is the safety margin added to the padded continuation length
// in the shared budget check, covering the closing tokens a cut-off row
// still needs.
const budgetMargin = 2

// Config defines tuning parameters for the engine's generation behavior.
type Config struct {
	// DefaultMaxTokens is the shared continuation budget used when a
	// generate call does not supply its own.
	DefaultMaxTokens int

	// MaxParallelGadgets bounds concurrent gadget resolution across rows
	// within one round. <1 resolves one row at a time.
	MaxParallelGadgets int
}

// DefaultConfig provides sensible defaults for local development and tests.
var DefaultConfig = Config{
	DefaultMaxTokens:   1000,
	MaxParallelGadgets: 4,
}

// Options configures an Engine instance using the functional options pattern.
type Options struct {
	// Config contains operational parameters for the engine behavior.
	// Defaults to DefaultConfig if not specified.
	Config Config

	// Logger provides structured logging for debugging and monitoring.
	// Defaults to the NoOp logger if nil.
	Logger logging.Logger
}

// GenerateOptions configures a single generate call.
type GenerateOptions struct {
	// MaxTokens is the continuation token budget shared across the whole
	// batch. Zero falls back to Config.DefaultMaxTokens.
	MaxTokens int

	// MinTokens asks the primitive to keep producing at least this many
	// continuation tokens before ending a sequence.
	MinTokens int

	// Gadgets are the tools enabled for this call. The registry built
	// from them lives exactly as long as the call and is read-only once
	// the loop starts.
	Gadgets []gadget.Gadget
}

// TokenBudgetFromLengths converts absolute sequence length bounds into the
// continuation budget a generate call expects, by subtracting the seed
// length.
func TokenBudgetFromLengths(maxLength, minLength, seedLen int) (maxTokens, minTokens int) {
	if maxLength > 0 {
		maxTokens = maxLength - seedLen
	}
	if minLength > 0 {
		minTokens = minLength - seedLen
	}
	return maxTokens, minTokens
}

// rowState tracks one batch row through the generation state machine.
type rowState int

const (
	rowGenerating rowState = iota
	rowGadgetPending
	rowDone
)

// sequenceState is the per-row working state of one generate call. It is
// created when the call starts, mutated every round and discarded when the
// call returns.
type sequenceState struct {
	prompt string
	text   string // accumulated continuation, without the prompt
	state  rowState
}

// Engine drives gadget-assisted generation over a narrow model interface.
// It is safe to share across goroutines: all mutable state lives in the
// generate call itself.
type Engine struct {
	model     model.StepModel
	tokenizer model.Tokenizer
	opts      Options
}

// New creates an Engine around a generation primitive and its tokenizer.
func New(m model.StepModel, tokenizer model.Tokenizer, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{model: m, tokenizer: tokenizer, opts: opts}
}

// Generate extends every prompt of the batch until it produces an
// end-of-sequence marker or the shared token budget runs out, resolving
// gadget calls along the way. It returns the final accumulated continuation
// text per row, decodable via the markup package.
func (e *Engine) Generate(ctx context.Context, prompts []string, optFns ...func(o *GenerateOptions)) ([]string, error) {
	genOpts := GenerateOptions{}
	for _, fn := range optFns {
		fn(&genOpts)
	}

	maxTokens := genOpts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = e.opts.Config.DefaultMaxTokens
	}

	registry := gadget.NewRegistry(genOpts.Gadgets...)
	invocationID := uuid.NewString()
	logger := e.opts.Logger
	recorder, _ := logger.(callRecorder)
	started := time.Now()

	rows := make([]*sequenceState, len(prompts))
	promptLens := make([]int, len(prompts))
	for i, p := range prompts {
		rows[i] = &sequenceState{prompt: p, state: rowGenerating}
		promptLens[i] = len(e.tokenizer.Encode(p))
	}

	stop := NewSuffixStop(e.tokenizer, "</"+markup.GadgetTag+">")

	logger.Info("generation started",
		"invocation_id", invocationID,
		"rows", len(prompts),
		"max_tokens", maxTokens,
		"gadgets", registry.IDs(),
		"model", e.model.Info().Name,
	)

	round := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		running := runningRows(rows)
		if len(running) == 0 {
			break
		}
		round++

		// Re-encode each running row's accumulated text as the
		// continuation seed.
		seeds := make([][]int, len(running))
		contLen := 0
		for i, r := range running {
			seeds[i] = e.tokenizer.Encode(rows[r].prompt + rows[r].text)
			if l := len(seeds[i]) - promptLens[r]; l > contLen {
				contLen = l
			}
		}

		// The budget is shared across the batch: the padded length of
		// the longest running row cuts off the whole round.
		if contLen+budgetMargin >= maxTokens {
			logger.Info("shared token budget exhausted",
				"invocation_id", invocationID,
				"round", round,
				"continuation_len", contLen,
				"max_tokens", maxTokens,
			)
			break
		}

		stop.Reset(len(running))
		result, err := e.model.GenerateStep(ctx, model.StepRequest{
			Seeds:        seeds,
			MaxNewTokens: maxTokens - contLen,
			MinNewTokens: max(0, genOpts.MinTokens-contLen),
			Stop:         stop,
		})
		if err != nil {
			return nil, fmt.Errorf("generation step %d failed: %w", round, err)
		}
		if len(result.Sequences) != len(running) {
			return nil, fmt.Errorf("generation step %d returned %d sequences for %d rows", round, len(result.Sequences), len(running))
		}
		for i := range result.Sequences {
			if len(result.Sequences[i]) < len(seeds[i]) {
				return nil, fmt.Errorf("generation step %d returned a sequence shorter than its seed for row %d", round, running[i])
			}
		}

		g := errgroup.Group{}
		if e.opts.Config.MaxParallelGadgets > 0 {
			g.SetLimit(e.opts.Config.MaxParallelGadgets)
		}

		for i, r := range running {
			seq := result.Sequences[i]
			rows[r].text = strings.TrimPrefix(e.tokenizer.Decode(seq), rows[r].prompt)

			if stop.Triggered(i) {
				rows[r].state = rowGadgetPending
				row := rows[r]
				g.Go(func() error {
					row.text = e.resolveCalls(row.text, registry, logger, invocationID)
					row.state = rowGenerating
					return nil
				})
				continue
			}

			if containsToken(seq[len(seeds[i]):], e.tokenizer.EOSID()) {
				rows[r].state = rowDone
			}
		}
		_ = g.Wait()

		if recorder != nil {
			recorder.LogGenerationRound(round, len(running), contLen)
		} else {
			logger.Debug("generation round completed",
				"invocation_id", invocationID,
				"round", round,
				"running_rows", len(running),
				"continuation_len", contLen,
			)
		}
	}

	texts := make([]string, len(rows))
	for i, r := range rows {
		texts[i] = r.text
	}

	if recorder != nil {
		recorder.LogGenerateCompleted(e.model.Info().Name, len(rows), round, time.Since(started))
	} else {
		logger.Info("generation completed",
			"invocation_id", invocationID,
			"rounds", round,
		)
	}

	return texts, nil
}

// GenerateDecoded runs Generate and decodes each row's markup into a chain
// and final result, for callers that want structured output directly.
func (e *Engine) GenerateDecoded(ctx context.Context, prompts []string, optFns ...func(o *GenerateOptions)) ([]markup.Chain, []string, error) {
	texts, err := e.Generate(ctx, prompts, optFns...)
	if err != nil {
		return nil, nil, err
	}

	chains := make([]markup.Chain, len(texts))
	results := make([]string, len(texts))
	for i, text := range texts {
		chain, result, err := markup.Decode(text)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		chains[i] = chain
		results[i] = result
	}
	return chains, results, nil
}

// resolveCalls locates gadget tags that have no adjacent output tag
// (skipping whitespace), invokes the registered gadget (or synthesizes a
// not-found error output) and splices the output tag in right after the
// call, with the same newline convention the codec uses for encoding.
// Text without unresolved calls comes back unchanged.
func (e *Engine) resolveCalls(text string, registry *gadget.Registry, logger logging.Logger, invocationID string) string {
	doc := markup.Parse(text)

	out := make([]markup.Node, 0, len(doc)+4)
	changed := false
	for i, n := range doc {
		out = append(out, n)
		if n.Type != markup.ElementNode || n.Data != markup.GadgetTag {
			continue
		}
		if resolved(doc, i) {
			continue
		}

		id, _ := n.Attr("id")
		output := e.invokeGadget(registry, id, n.Text, logger, invocationID)

		out = append(out,
			markup.Node{Type: markup.TextNode, Data: "\n"},
			markup.Node{Type: markup.ElementNode, Data: markup.OutputTag, Text: output},
			markup.Node{Type: markup.TextNode, Data: "\n"},
		)
		changed = true
	}

	if !changed {
		return text
	}
	return markup.Render(out)
}

// invokeGadget dispatches one call. A registry miss and a panicking gadget
// both come back as visible error text so generation continues instead of
// aborting the row.
func (e *Engine) invokeGadget(registry *gadget.Registry, id, input string, logger logging.Logger, invocationID string) (output string) {
	g, ok := registry.Get(id)
	if !ok {
		logger.Warn("gadget not found",
			"invocation_id", invocationID,
			"gadget_id", id,
		)
		return fmt.Sprintf("ERROR: Gadget '%s' not found", id)
	}

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("gadget panicked",
				"invocation_id", invocationID,
				"gadget_id", id,
				"recover", r,
			)
			output = fmt.Sprintf("ERROR: Gadget '%s' failed", id)
			e.logGadgetCall(logger, invocationID, id, time.Since(started), false)
			return
		}
		e.logGadgetCall(logger, invocationID, id, time.Since(started), true)
	}()

	return g.Call(input)
}

// logGadgetCall records one dispatched call, preferring the recorder's
// timing entry over a plain debug line.
func (e *Engine) logGadgetCall(logger logging.Logger, invocationID, id string, dur time.Duration, success bool) {
	if recorder, ok := logger.(callRecorder); ok {
		recorder.LogGadgetCall(id, dur, success)
		return
	}
	logger.Debug("gadget invoked",
		"invocation_id", invocationID,
		"gadget_id", id,
		"duration_ms", dur.Milliseconds(),
		"success", success,
	)
}

// resolved reports whether the gadget element at doc[i] already has an
// output tag as its next non-whitespace sibling.
func resolved(doc []markup.Node, i int) bool {
	for j := i + 1; j < len(doc); j++ {
		if doc[j].IsWhitespace() {
			continue
		}
		return doc[j].Type == markup.ElementNode && doc[j].Data == markup.OutputTag
	}
	return false
}

func runningRows(rows []*sequenceState) []int {
	var running []int
	for i, r := range rows {
		if r.state != rowDone {
			running = append(running, i)
		}
	}
	return running
}

func containsToken(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
