package client

import (
	"context"
	"errors"

	"github.com/menta2k/parkwise/pkg/types"
)

// ErrEmptyResponse is returned when the model replies without a location description
var ErrEmptyResponse = errors.New("model returned no location description")

// VisionClient submits a prompt with an embedded image and returns the structured reply
type VisionClient interface {
	Name() string
	LocateSpot(ctx context.Context, model, prompt string, img types.ImagePayload) (*types.SpotLocation, error)
}
