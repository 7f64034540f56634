package processing

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/parkwise/pkg/types"
)

// Config controls how photos are prepared before they are sent to a model
type Config struct {
	// MaxDim is the longest side sent to the model in pixels, 0 keeps the original
	MaxDim int
	// Format is the encoding sent to the model: jpg or png
	Format string
	// Quality is the JPEG quality (1-100)
	Quality int
	// MinDim rejects photos whose shorter side is below this many pixels
	MinDim int
}

// DefaultConfig returns the settings used by the locator
func DefaultConfig() Config {
	return Config{
		MaxDim:  1536,
		Format:  "jpg",
		Quality: 85,
		MinDim:  32,
	}
}

// Processor handles image processing operations
type Processor struct {
	config Config
}

// NewProcessor creates a new image processor with default settings
func NewProcessor() *Processor {
	return &Processor{config: DefaultConfig()}
}

// NewProcessorWithConfig creates a processor with custom settings
func NewProcessorWithConfig(config Config) *Processor {
	return &Processor{config: config}
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// Decode decodes an image from byte data with WebP support
func (p *Processor) Decode(data []byte) (image.Image, string, error) {
	if img, format, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, format, nil
	}

	// Fallback: explicit WebP decode
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, "webp", nil
	}

	return nil, "", fmt.Errorf("image: unknown or unsupported format")
}

// Inspect decodes only the header of an image
func (p *Processor) Inspect(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to read image header: %w", err)
	}
	return ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Validate checks that an image meets minimum size requirements
func (p *Processor) Validate(img image.Image) error {
	b := img.Bounds()
	if b.Dx() < p.config.MinDim || b.Dy() < p.config.MinDim {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)", b.Dx(), b.Dy(), p.config.MinDim)
	}
	return nil
}

// Prepare decodes a photo, validates it, downscales it and re-encodes it for the model
func (p *Processor) Prepare(in types.ImagePayload) (types.ImagePayload, error) {
	img, _, err := p.Decode(in.Data)
	if err != nil {
		return types.ImagePayload{}, err
	}
	if err := p.Validate(img); err != nil {
		return types.ImagePayload{}, err
	}
	return p.Encode(p.Downscale(img))
}

// Downscale shrinks img so its longest side fits MaxDim
func (p *Processor) Downscale(img image.Image) image.Image {
	maxDim := p.config.MaxDim
	if maxDim <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}
	if w >= h {
		return imaging.Resize(img, maxDim, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDim, imaging.Lanczos)
}

// Encode renders img in the configured model format
func (p *Processor) Encode(img image.Image) (types.ImagePayload, error) {
	var buf bytes.Buffer
	switch strings.ToLower(p.config.Format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return types.ImagePayload{}, err
		}
		return types.ImagePayload{MediaType: "image/png", Data: buf.Bytes()}, nil
	default: // jpg
		quality := p.config.Quality
		if quality < 1 || quality > 100 {
			quality = 85
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return types.ImagePayload{}, err
		}
		return types.ImagePayload{MediaType: "image/jpeg", Data: buf.Bytes()}, nil
	}
}
