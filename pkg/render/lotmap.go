// Package render draws the parking lot grid as an image.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/menta2k/parkwise/pkg/recommend"
	"github.com/menta2k/parkwise/pkg/types"
)

// Options controls the map layout
type Options struct {
	Columns  int
	CellSize int
	Gap      int
}

// DefaultOptions matches the ten-spot rows of the demo lot
func DefaultOptions() Options {
	return Options{Columns: 10, CellSize: 48, Gap: 8}
}

var (
	background   = color.NRGBA{241, 243, 245, 255}
	occupiedFill = color.NRGBA{99, 110, 132, 255}
	freeFill     = color.NRGBA{132, 204, 170, 255}
	coveredBand  = color.NRGBA{70, 150, 120, 255}
	exitMarker   = color.NRGBA{255, 204, 0, 255}
	ringColor    = color.NRGBA{37, 99, 235, 255}
)

// Size returns the pixel dimensions of a map with n spots
func (o Options) Size(n int) (int, int) {
	o = o.normalized()
	rows := (n + o.Columns - 1) / o.Columns
	if rows == 0 {
		rows = 1
	}
	w := o.Columns*o.CellSize + (o.Columns+1)*o.Gap
	h := rows*o.CellSize + (rows+1)*o.Gap
	return w, h
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o == (Options{}) {
		return d
	}
	if o.Columns <= 0 {
		o.Columns = d.Columns
	}
	if o.CellSize <= 0 {
		o.CellSize = d.CellSize
	}
	if o.Gap < 0 {
		o.Gap = d.Gap
	}
	return o
}

// LotMap draws one cell per spot: occupied cells dark, free cells light.
// Covered spots get a band along the top, near-exit spots a corner marker,
// and recommended free spots a ring.
func LotMap(spots []types.ParkingSpot, recommended recommend.Set, opts Options) image.Image {
	opts = opts.normalized()
	w, h := opts.Size(len(spots))

	img := imaging.New(w, h, background)
	stroke := max(2, opts.CellSize/16)

	for i, spot := range spots {
		row, col := i/opts.Columns, i%opts.Columns
		x0 := opts.Gap + col*(opts.CellSize+opts.Gap)
		y0 := opts.Gap + row*(opts.CellSize+opts.Gap)
		cell := image.Rect(x0, y0, x0+opts.CellSize, y0+opts.CellSize)

		fill := freeFill
		if spot.IsOccupied {
			fill = occupiedFill
		}
		fillRect(img, cell, fill)

		if spot.IsCovered {
			fillRect(img, image.Rect(cell.Min.X, cell.Min.Y, cell.Max.X, cell.Min.Y+stroke*2), coveredBand)
		}
		if spot.IsNearExit {
			m := opts.CellSize / 5
			fillRect(img, image.Rect(cell.Max.X-m, cell.Max.Y-m, cell.Max.X, cell.Max.Y), exitMarker)
		}
		if !spot.IsOccupied && recommended.Has(spot.ID) {
			drawRing(img, cell.Inset(-stroke), ringColor, stroke)
		}
	}

	return img
}

// Save writes img to path in the given format (png, jpg or webp)
func Save(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return writeFile(path, func(w io.Writer) error {
			return webp.Encode(w, img, opts)
		})
	case "png":
		return imaging.Save(img, path, imaging.PNGCompressionLevel(png.BestCompression))
	case "jpg", "jpeg", "":
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
	return fmt.Errorf("unsupported output format: %s", format)
}

// Encode writes img to w as PNG, JPEG or WebP
func Encode(w io.Writer, img image.Image, format string, quality int) error {
	switch strings.ToLower(format) {
	case "png", "":
		return imaging.Encode(w, img, imaging.PNG)
	case "jpg", "jpeg":
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case "webp":
		return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	}
	return fmt.Errorf("unsupported output format: %s", format)
}

// writeFile creates path and fills it with encode. A failed encode leaves no file behind.
func writeFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

func fillRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		drawHLine(img, y, r.Min.X, r.Max.X, c)
	}
}

func drawRing(img *image.NRGBA, r image.Rectangle, c color.NRGBA, stroke int) {
	for s := 0; s < stroke; s++ {
		drawHLine(img, r.Min.Y+s, r.Min.X, r.Max.X, c)
		drawHLine(img, r.Max.Y-1-s, r.Min.X, r.Max.X, c)
		drawVLine(img, r.Min.X+s, r.Min.Y, r.Max.Y, c)
		drawVLine(img, r.Max.X-1-s, r.Min.Y, r.Max.Y, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	b := img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0, x1 = max(x0, b.Min.X), min(x1, b.Max.X)
	if x0 >= x1 {
		return
	}
	i := img.PixOffset(x0, y)
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	y0, y1 = max(y0, b.Min.Y), min(y1, b.Max.Y)
	if y0 >= y1 {
		return
	}
	i := img.PixOffset(x, y0)
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
