package output

import "context"

// TextGenerator interface - Output port
// The black-box text completion service. Failures map to
// domain.ErrGeneration and are item-level, never batch-fatal.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator interface - Output port
// Invoked only when an outgoing post requests AI art.
type ImageGenerator interface {
	// GenerateImage renders prompt into encoded image bytes.
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}
