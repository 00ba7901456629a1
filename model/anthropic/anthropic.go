// Package anthropic adapts the Anthropic Messages API to the generic
// model.StepModel interface, using the gadget closing tag as a provider
// stop sequence. See the openai sibling package for the adapter scheme.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/gadgetmesh/markup"
	"github.com/hupe1980/gadgetmesh/model"
)

const closingTag = "</" + markup.GadgetTag + ">"

// Options configures the Anthropic model adapter (temperature, model id,
// API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	APIKey      string
	// MaxTokensFloor is used when the request carries no new-token
	// budget; the Messages API requires an explicit maximum.
	MaxTokensFloor int64
	// MaxParallelRows bounds concurrent per-row API calls within one
	// batched step. <1 means one call at a time.
	MaxParallelRows int
}

// Model wraps the Anthropic Messages API behind the generic model.StepModel
// interface.
type Model struct {
	client    *anthropic.Client
	tokenizer model.Tokenizer
	opts      Options
}

// NewModel creates a new Anthropic step model using the official client.
func NewModel(tokenizer model.Tokenizer, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Model{client: &client, tokenizer: tokenizer, opts: opts}
}

// NewModelFromClient creates a new Anthropic step model from an existing client.
func NewModelFromClient(client *anthropic.Client, tokenizer model.Tokenizer, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, tokenizer: tokenizer, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:           anthropic.ModelClaude3_5Sonnet20241022,
		Temperature:     0.7,
		MaxTokensFloor:  4096,
		MaxParallelRows: 4,
	}
}

// GenerateStep implements the model.StepModel interface.
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
	maxTokens := m.opts.MaxTokensFloor
	if req.MaxNewTokens > 0 {
		maxTokens = int64(req.MaxNewTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     m.opts.Model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(m.tokenizer.Decode(seed))),
		},
		Temperature:   anthropic.Float(m.opts.Temperature),
		StopSequences: []string{closingTag},
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}
	text := b.String()

	// Unlike OpenAI, the stop reason is unambiguous here.
	cutByStop := resp.StopReason == "stop_sequence"
	if cutByStop {
		text += closingTag
	}

	seq := append(append([]int{}, seed...), m.tokenizer.Encode(text)...)
	triggered := req.Stop != nil && req.Stop.Done(row, seq)
	if resp.StopReason == "end_turn" && !triggered {
		seq = append(seq, m.tokenizer.EOSID())
	}
	return seq, nil
}

// Info implements the model.StepModel interface.
func (m *Model) Info() model.Info {
	return model.Info{Name: string(m.opts.Model), Provider: "anthropic"}
}
