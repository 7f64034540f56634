// Package parkwise recommends parking spots and helps drivers remember where
// they parked.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		"github.com/menta2k/parkwise"
//		"github.com/menta2k/parkwise/pkg/types"
//	)
//
//	func main() {
//		pw := parkwise.New()
//
//		// Free covered car spots
//		ids := pw.Recommend(types.Preferences{VehicleCategory: types.Car, CoveredOnly: true})
//		fmt.Println(ids)
//
//		// Describe where the car in a photo is parked
//		outcome := pw.LocateFile(context.Background(), "car.jpg")
//		if !outcome.OK() {
//			log.Fatal(outcome.ErrorMessage)
//		}
//		fmt.Println(outcome.LocationDescription)
//	}
//
// The package consists of these main components:
//
// 1. Mock data (pkg/mockdata): deterministic demo lot of 60 spots
// 2. Recommend (pkg/recommend): preference filter over the lot
// 3. Analytics (pkg/analytics): occupancy by vehicle category
// 4. Locator (pkg/locator): photo to location description through a vision backend
// 5. Render (pkg/render): lot map image with recommendations highlighted
//
// Vision backends live in pkg/gemini, pkg/ollama and pkg/llamacpp and all
// implement client.VisionClient.
package parkwise

import (
	"context"
	"fmt"
	"image"
	"os"

	"go.uber.org/zap"

	"github.com/menta2k/parkwise/internal/config"
	"github.com/menta2k/parkwise/internal/server"
	"github.com/menta2k/parkwise/internal/utils"
	"github.com/menta2k/parkwise/pkg/analytics"
	"github.com/menta2k/parkwise/pkg/client"
	"github.com/menta2k/parkwise/pkg/datauri"
	"github.com/menta2k/parkwise/pkg/gemini"
	"github.com/menta2k/parkwise/pkg/llamacpp"
	"github.com/menta2k/parkwise/pkg/locator"
	"github.com/menta2k/parkwise/pkg/mockdata"
	"github.com/menta2k/parkwise/pkg/ollama"
	"github.com/menta2k/parkwise/pkg/processing"
	"github.com/menta2k/parkwise/pkg/recommend"
	"github.com/menta2k/parkwise/pkg/render"
	"github.com/menta2k/parkwise/pkg/types"
)

// Version is the released version of the module
const Version = "0.3.0"

// ParkWise combines the lot with the locator pipeline
type ParkWise struct {
	spots     []types.ParkingSpot
	locator   *locator.Pipeline
	processor *processing.Processor
	logger    *zap.Logger
}

// New creates a ParkWise over the default demo lot with no vision backend.
// Locate calls fail with ExternalCallFailed until SetVisionClient is called.
func New() *ParkWise {
	processor := processing.NewProcessor()
	pipeline := locator.New(nil)
	pipeline.SetProcessor(processor)
	return &ParkWise{
		spots:     mockdata.Lot(),
		locator:   pipeline,
		processor: processor,
		logger:    zap.NewNop(),
	}
}

// NewWithConfig creates a ParkWise from application configuration
func NewWithConfig(cfg *config.Config, vc client.VisionClient, logger *zap.Logger) *ParkWise {
	if logger == nil {
		logger = zap.NewNop()
	}

	pipeline := locator.NewWithConfig(vc, locator.Config{
		Model:         cfg.Locator.Model,
		MaxImageBytes: cfg.Locator.MaxImageBytes,
		Prepare:       cfg.Locator.Prepare,
	})
	pc := processing.DefaultConfig()
	pc.MaxDim = cfg.Locator.SendSize
	pc.Quality = cfg.Locator.SendQuality
	processor := processing.NewProcessorWithConfig(pc)
	pipeline.SetProcessor(processor)
	pipeline.SetLogger(logger)

	return &ParkWise{
		spots:     mockdata.Generate(cfg.Lot.Seed),
		locator:   pipeline,
		processor: processor,
		logger:    logger,
	}
}

// SetVisionClient swaps the backend while keeping the other pipeline
// settings. An empty model keeps the current one.
func (p *ParkWise) SetVisionClient(vc client.VisionClient, model string) {
	lc := p.locator.Config()
	if model != "" {
		lc.Model = model
	}
	next := locator.NewWithConfig(vc, lc)
	next.SetProcessor(p.processor)
	next.SetLogger(p.logger)
	p.locator = next
}

// Spots returns the lot. Callers must not modify it.
func (p *ParkWise) Spots() []types.ParkingSpot {
	return p.spots
}

// Recommend returns the recommended spot IDs in lot order
func (p *ParkWise) Recommend(prefs types.Preferences) []string {
	return recommend.Recommend(p.spots, prefs).Sorted()
}

// Analytics returns the occupancy report for the lot
func (p *ParkWise) Analytics() analytics.Report {
	return analytics.Build(p.spots)
}

// LotMap draws the lot with the spots recommended for prefs highlighted
func (p *ParkWise) LotMap(prefs types.Preferences) image.Image {
	return render.LotMap(p.spots, recommend.Recommend(p.spots, prefs), render.DefaultOptions())
}

// Locate describes where the car in a photo data URI is parked
func (p *ParkWise) Locate(ctx context.Context, photoDataURI string) types.LocateOutcome {
	return p.locator.Locate(ctx, photoDataURI)
}

// LocateFile reads a photo from disk and locates it
func (p *ParkWise) LocateFile(ctx context.Context, path string) types.LocateOutcome {
	uri, err := ReadDataURI(path)
	if err != nil {
		p.logger.Debug("photo unreadable", zap.String("path", path), zap.Error(err))
		return types.Failure(types.InvalidFormat, "Invalid image format. Please upload a valid image file.")
	}
	return p.Locate(ctx, uri)
}

// Server builds the HTTP API over this lot and pipeline
func (p *ParkWise) Server(opts server.Options) *server.Server {
	return server.New(opts, p.spots, p.locator, p.logger)
}

// ReadDataURI loads an image file and encodes it as a base64 data URI
func ReadDataURI(path string) (string, error) {
	if !utils.IsImageFile(path) {
		return "", fmt.Errorf("%s is not an image file", path)
	}
	mediaType, err := utils.MediaTypeForFile(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return datauri.Encode(types.ImagePayload{MediaType: mediaType, Data: data}), nil
}

// NewVisionClient creates the backend named by the locator configuration
func NewVisionClient(ctx context.Context, lc config.LocatorConfig) (client.VisionClient, error) {
	switch lc.Backend {
	case config.BackendGemini:
		c, err := gemini.NewClient(ctx, gemini.Options{
			APIKey:  lc.APIKey,
			BaseURL: lc.URL,
			Timeout: lc.Timeout.Std(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return c, nil
	case config.BackendOllama:
		c, err := ollama.NewClient(lc.URL, lc.Timeout.Std())
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c, nil
	case config.BackendLlamaCPP:
		c, err := llamacpp.NewClient(lc.URL, lc.APIKey, lc.Timeout.Std())
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown backend: %s (use gemini, ollama or llamacpp)", lc.Backend)
}
