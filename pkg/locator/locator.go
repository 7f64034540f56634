// Package locator turns a photo of a parked car into a description of where it is.
//
// Locate validates the data URI locally, then makes exactly one call to the
// configured vision backend. Every failure is reported as a typed outcome.
package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/menta2k/parkwise/internal/utils"
	"github.com/menta2k/parkwise/pkg/client"
	"github.com/menta2k/parkwise/pkg/datauri"
	"github.com/menta2k/parkwise/pkg/processing"
	"github.com/menta2k/parkwise/pkg/types"
)

// DefaultMaxImageBytes is the largest decoded photo accepted (4 MiB)
const DefaultMaxImageBytes = 4 * 1024 * 1024

const (
	invalidFormatMessage = "Invalid image format. Please upload a valid image file."
	failurePrefix        = "Failed to locate spot. "
)

// Config holds the pipeline settings
type Config struct {
	Model         string
	Prompt        string
	MaxImageBytes int
	// Prepare downscales and re-encodes photos before they are sent
	Prepare bool
}

// DefaultConfig returns the settings used when none are given
func DefaultConfig() Config {
	return Config{
		Prompt:        DefaultPrompt,
		MaxImageBytes: DefaultMaxImageBytes,
	}
}

// Pipeline is stateless between calls and safe for concurrent use when its
// VisionClient is.
type Pipeline struct {
	client    client.VisionClient
	config    Config
	processor *processing.Processor
	logger    *zap.Logger
}

// New creates a pipeline with default configuration
func New(vc client.VisionClient) *Pipeline {
	return NewWithConfig(vc, DefaultConfig())
}

// NewWithConfig creates a pipeline with custom configuration
func NewWithConfig(vc client.VisionClient, config Config) *Pipeline {
	if config.Prompt == "" {
		config.Prompt = DefaultPrompt
	}
	if config.MaxImageBytes <= 0 {
		config.MaxImageBytes = DefaultMaxImageBytes
	}
	return &Pipeline{
		client:    vc,
		config:    config,
		processor: processing.NewProcessor(),
		logger:    zap.NewNop(),
	}
}

// SetProcessor replaces the image processor used when Prepare is enabled
func (p *Pipeline) SetProcessor(processor *processing.Processor) {
	p.processor = processor
}

// SetLogger sets the logger; nil restores the no-op logger
func (p *Pipeline) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p.logger = logger
}

// Config returns the active configuration
func (p *Pipeline) Config() Config {
	return p.config
}

// Locate describes where the car in photoDataURI is parked. It never panics
// and never returns a bare error: failures come back as typed outcomes.
func (p *Pipeline) Locate(ctx context.Context, photoDataURI string) types.LocateOutcome {
	start := time.Now()
	outcome, size := p.locate(ctx, photoDataURI)

	fields := []zap.Field{
		zap.Int("image_bytes", size),
		zap.Duration("elapsed", time.Since(start)),
	}
	if p.client != nil {
		fields = append(fields, zap.String("backend", p.client.Name()))
	}
	if outcome.OK() {
		p.logger.Info("spot located", fields...)
	} else {
		p.logger.Warn("spot locate failed", append(fields,
			zap.String("kind", string(outcome.ErrorKind)),
			zap.String("reason", outcome.ErrorMessage))...)
	}
	return outcome
}

func (p *Pipeline) locate(ctx context.Context, photoDataURI string) (types.LocateOutcome, int) {
	if !datauri.DeclaresImage(photoDataURI) {
		return types.Failure(types.InvalidFormat, invalidFormatMessage), 0
	}
	// Reject oversized payloads before paying for the decode
	if estimated := datauri.DecodedSize(photoDataURI); estimated > p.config.MaxImageBytes {
		return p.tooLarge(estimated), estimated
	}

	img, err := datauri.Decode(photoDataURI)
	if err != nil {
		p.logger.Debug("data URI rejected", zap.Error(err))
		return types.Failure(types.InvalidFormat, invalidFormatMessage), 0
	}
	if len(img.Data) > p.config.MaxImageBytes {
		return p.tooLarge(len(img.Data)), len(img.Data)
	}

	if p.config.Prepare && p.processor != nil {
		prepared, err := p.processor.Prepare(img)
		if err != nil {
			p.logger.Debug("photo preparation failed", zap.Error(err))
			return types.Failure(types.InvalidFormat, invalidFormatMessage), len(img.Data)
		}
		img = prepared
	}

	loc, err := p.delegate(ctx, img)
	if err != nil {
		return types.Failure(types.ExternalCallFailed, failurePrefix+diagnostic(err)), len(img.Data)
	}
	return types.Success(loc.LocationDescription), len(img.Data)
}

// delegate performs the single external call, converting panics into errors
func (p *Pipeline) delegate(ctx context.Context, img types.ImagePayload) (loc *types.SpotLocation, err error) {
	if p.client == nil {
		return nil, errors.New("no vision backend is configured")
	}

	defer func() {
		if r := recover(); r != nil {
			loc, err = nil, fmt.Errorf("vision backend panicked: %v", r)
		}
	}()

	loc, err = p.client.LocateSpot(ctx, p.config.Model, p.config.Prompt, img)
	if err != nil {
		return nil, err
	}
	if loc == nil || loc.LocationDescription == "" {
		return nil, client.ErrEmptyResponse
	}
	return loc, nil
}

func (p *Pipeline) tooLarge(size int) types.LocateOutcome {
	return types.Failure(types.PayloadTooLarge, fmt.Sprintf(
		"Image too large (%s). Please upload an image smaller than %s.",
		utils.FormatFileSize(int64(size)), utils.FormatFileSize(int64(p.config.MaxImageBytes))))
}

func diagnostic(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "The request timed out."
	}
	if errors.Is(err, context.Canceled) {
		return "The request was cancelled."
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "An unknown error occurred."
}
