// Package openai adapts the OpenAI Chat Completions API to the generic
// model.StepModel interface. Provider APIs have no native token surface the
// engine can see, so the adapter decodes each row's seed to text with the
// caller-supplied tokenizer, requests a continuation with the gadget closing
// tag as a stop sequence, and re-encodes the completion.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/gadgetmesh/markup"
	"github.com/hupe1980/gadgetmesh/model"
)

// closingTag is the stop sequence handed to the provider.
const closingTag = "</" + markup.GadgetTag + ">"

// Options configure the OpenAI model adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal; extend via
// functional options without breaking callers.
type Options struct {
	Model       string
	Temperature float64
	// MaxParallelRows bounds concurrent per-row API calls within one
	// batched step. <1 means one call at a time.
	MaxParallelRows int
}

// Model wraps the OpenAI Chat Completions API behind the generic
// model.StepModel interface.
type Model struct {
	client    *openai.Client
	tokenizer model.Tokenizer
	opts      Options
}

// NewModel creates a new OpenAI step model using the official client.
func NewModel(tokenizer model.Tokenizer, optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewModelFromClient(&client, tokenizer, optFns...)
}

// NewModelFromClient creates a new OpenAI step model from an existing client.
func NewModelFromClient(client *openai.Client, tokenizer model.Tokenizer, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:           openai.ChatModelGPT4oMini,
		Temperature:     0.7,
		MaxParallelRows: 4,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, tokenizer: tokenizer, opts: opts}
}

// GenerateStep implements the model.StepModel interface. Rows are extended
// by independent API calls executed concurrently; the batch fails as a unit
// if any call fails.
func (m *Model) GenerateStep(ctx context.Context, req model.StepRequest) (model.StepResult, error) {
	sequences := make([][]int, len(req.Seeds))

	g, ctx := errgroup.WithContext(ctx)
	if m.opts.MaxParallelRows > 0 {
		g.SetLimit(m.opts.MaxParallelRows)
	}

	for row, seed := range req.Seeds {
		g.Go(func() error {
			seq, err := m.extendRow(ctx, row, seed, req)
			if err != nil {
				return err
			}
			sequences[row] = seq
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.StepResult{}, err
	}

	return model.StepResult{Sequences: sequences}, nil
}

func (m *Model) extendRow(ctx context.Context, row int, seed []int, req model.StepRequest) ([]int, error) {
	params := openai.ChatCompletionNewParams{
		Model: m.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(m.tokenizer.Decode(seed)),
		},
		Temperature: openai.Float(m.opts.Temperature),
		Stop: openai.ChatCompletionNewParamsStopUnion{
			OfString: openai.String(closingTag),
		},
	}
	if req.MaxNewTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxNewTokens))
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}
	choice := resp.Choices[0]

	text := choice.Message.Content
	// The API withholds the stop sequence itself. A "stop" finish reason
	// does not say whether it was our stop sequence or a natural end, so
	// an unterminated trailing gadget call is the tell.
	cutByStop := choice.FinishReason == "stop" && hasOpenGadgetCall(text)
	if cutByStop {
		text += closingTag
	}

	seq := append(append([]int{}, seed...), m.tokenizer.Encode(text)...)
	triggered := req.Stop != nil && req.Stop.Done(row, seq)
	if choice.FinishReason == "stop" && !cutByStop && !triggered {
		seq = append(seq, m.tokenizer.EOSID())
	}
	return seq, nil
}

// Info implements the model.StepModel interface.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "openai"}
}

// hasOpenGadgetCall reports whether the last gadget opening tag in text has
// no matching closing tag after it.
func hasOpenGadgetCall(text string) bool {
	open := strings.LastIndex(text, "<"+markup.GadgetTag)
	if open < 0 {
		return false
	}
	return !strings.Contains(text[open:], closingTag)
}
