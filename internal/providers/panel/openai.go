package panel

import (
	"context"
	"errors"
	"fmt"

	"storyboard/internal/domain"
	"storyboard/internal/infra"
	"storyboard/internal/providers/openai"
)

// PanelClient is the subset of the OpenAI client the adapter needs. Narrowed
// for stubbing in tests.
type PanelClient interface {
	CreatePanel(ctx context.Context, prompt string, sketchPNG, maskPNG []byte) (*openai.Panel, error)
	ContinuePanel(ctx context.Context, prompt, previousResponseID string) (*openai.Panel, error)
}

// OpenAIGenerator adapts the OpenAI client to the Generator contract.
type OpenAIGenerator struct {
	client PanelClient
	logger infra.Logger
}

func NewOpenAIGenerator(client PanelClient, logger infra.Logger) *OpenAIGenerator {
	return &OpenAIGenerator{client: client, logger: logger}
}

func (g *OpenAIGenerator) Create(ctx context.Context, req CreateRequest) (*Result, error) {
	p, err := g.client.CreatePanel(ctx, req.Prompt, req.SketchPNG, req.MaskPNG)
	if err != nil {
		return nil, g.wrap("create", err)
	}
	return &Result{Image: p.Data, Handle: p.ResponseID}, nil
}

func (g *OpenAIGenerator) Continue(ctx context.Context, req ContinueRequest) (*Result, error) {
	p, err := g.client.ContinuePanel(ctx, req.Prompt, req.ConversationHandle)
	if err != nil {
		return nil, g.wrap("continue", err)
	}
	return &Result{Image: p.Data, Handle: p.ResponseID}, nil
}

// wrap logs whether the provider answered without an image or failed outright,
// then surfaces both as the same error kind to the worker.
func (g *OpenAIGenerator) wrap(op string, err error) error {
	if errors.Is(err, openai.ErrNoPanel) {
		g.logger.Warn().Str("op", op).Msg("panel: provider returned no image")
	} else {
		g.logger.Warn().Str("op", op).Err(err).Msg("panel: provider call failed")
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrProviderFailure, op, err)
}

var _ Generator = (*OpenAIGenerator)(nil)
