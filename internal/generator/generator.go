package generator

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNoResponse is returned when a provider answers with no text.
var ErrNoResponse = errors.New("model returned no content")

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VisionGenerator also accepts an image, given as an http(s) or data: URL.
type VisionGenerator interface {
	Generator
	GenerateWithImage(ctx context.Context, prompt, imageURL string) (string, error)
}
