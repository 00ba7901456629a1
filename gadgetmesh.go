// Package gadgetmesh provides a high-level façade over the markup codec,
// the gadget registry and the generation engine, enabling rapid construction
// of gadget-assisted reasoning systems. Most applications interact with this
// package by:
//  1. Creating a GadgetMesh via New() around a generation primitive and its
//     tokenizer
//  2. Registering the gadgets the model may call
//  3. Generating over a batch of prompts (Generate / GenerateDecoded)
//
// The façade delegates the suspend/resume loop to engine.Engine while keeping
// setup and usage ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply an API
// backed model adapter and a structured logger.
package gadgetmesh

import (
	"context"

	"github.com/hupe1980/gadgetmesh/engine"
	"github.com/hupe1980/gadgetmesh/gadget"
	"github.com/hupe1980/gadgetmesh/logging"
	"github.com/hupe1980/gadgetmesh/markup"
	"github.com/hupe1980/gadgetmesh/model"
)

// Options configures the GadgetMesh instance.
type Options struct {
	// Engine configuration (token budget, gadget concurrency)
	EngineConfig engine.Config

	// Gadgets the model may call during generation. The calculator is
	// enabled when none are provided.
	Gadgets []gadget.Gadget

	// MaxTokens is the shared continuation budget per generate call. Zero
	// uses EngineConfig.DefaultMaxTokens.
	MaxTokens int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// GadgetMesh is the high-level façade aggregating the engine and the gadget
// set it generates with.
type GadgetMesh struct {
	opts   Options
	engine *engine.Engine
}

// New creates a new GadgetMesh around a generation primitive, with optional
// overrides.
func New(m model.StepModel, tokenizer model.Tokenizer, optFns ...func(o *Options)) *GadgetMesh {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		Gadgets:      []gadget.Gadget{gadget.NewCalculator()},
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	eng := engine.New(m, tokenizer, func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Logger = opts.Logger
	})

	return &GadgetMesh{opts: opts, engine: eng}
}

// Generate extends every prompt until completion or budget exhaustion,
// resolving gadget calls inline, and returns the raw markup continuation per
// row.
func (g *GadgetMesh) Generate(ctx context.Context, prompts ...string) ([]string, error) {
	return g.engine.Generate(ctx, prompts, g.generateOptions)
}

// GenerateDecoded is Generate plus markup decoding into a reasoning chain
// and final result per row.
func (g *GadgetMesh) GenerateDecoded(ctx context.Context, prompts ...string) ([]markup.Chain, []string, error) {
	return g.engine.GenerateDecoded(ctx, prompts, g.generateOptions)
}

func (g *GadgetMesh) generateOptions(o *engine.GenerateOptions) {
	o.MaxTokens = g.opts.MaxTokens
	o.Gadgets = g.opts.Gadgets
}
