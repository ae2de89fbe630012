// Package panel defines the worker-facing contract for the image generation
// provider.
package panel

import "context"

// CreateRequest asks for a fresh generation from a padded sketch.
type CreateRequest struct {
	Prompt    string
	SketchPNG []byte
	MaskPNG   []byte
}

// ContinueRequest asks for another turn of a prior conversation.
type ContinueRequest struct {
	Prompt             string
	ConversationHandle string
}

// Result carries the generated panel bytes and the replacement handle for the
// image record. The handle is replaced, never merged.
type Result struct {
	Image  []byte
	Handle string
}

// Generator is implemented by provider adapters. Every provider-side failure
// surfaces wrapped in domain.ErrProviderFailure; adapters never retry
// internally.
type Generator interface {
	Create(ctx context.Context, req CreateRequest) (*Result, error)
	Continue(ctx context.Context, req ContinueRequest) (*Result, error)
}
