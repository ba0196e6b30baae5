package classifier

import (
	"context"
	"errors"
)

// ErrInvalidImage reports that the uploaded bytes could not be decoded as an
// image. Handlers map it to a client error rather than a server fault.
var ErrInvalidImage = errors.New("invalid image data")

// Prediction is the outcome of a single forward pass.
type Prediction struct {
	Label      string
	Confidence float32
}

// Classifier exposes the subset of model functionality used by the analysis
// flow, so the use case and handlers can be tested against stubs.
type Classifier interface {
	Classify(ctx context.Context, imageBytes []byte) (*Prediction, error)
}
