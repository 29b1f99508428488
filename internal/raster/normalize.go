package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/draw"
)

// ColorMode selects the output pixel encoding.
type ColorMode int

const (
	// Grayscale produces one byte per pixel.
	Grayscale ColorMode = iota
	// CompressedPNG produces a lossless PNG blob of the grayscale raster.
	CompressedPNG
)

// ResampleRule selects how output dimensions are derived.
type ResampleRule int

const (
	// ScaleByFactor multiplies the source dimensions by Factor, flooring.
	ScaleByFactor ResampleRule = iota
	// FitToSize forces the fixed Width x Height regardless of input aspect.
	FitToSize
)

// Policy describes one deterministic normalization pass.
type Policy struct {
	Rule   ResampleRule
	Factor float64
	Width  int
	Height int
	Color  ColorMode
}

// Plane is a normalized flat pixel buffer with its dimensions. For
// CompressedPNG policies Data holds the encoded blob rather than raw pixels.
type Plane struct {
	Data   []byte
	Width  int
	Height int
}

// Normalize decodes encoded image bytes and applies the resampling and color
// policy. Grayscale output is validated to be exactly width*height bytes;
// a mismatch is an error, never a silent truncation.
func Normalize(encoded []byte, policy Policy) (Plane, error) {
	src, format, err := image.Decode(bytes.NewReader(encoded))
	if err != nil {
		return Plane{}, fmt.Errorf("decode image: %w", err)
	}

	width, height, err := policy.outputDims(src.Bounds().Dx(), src.Bounds().Dy())
	if err != nil {
		return Plane{}, fmt.Errorf("decode %s image: %w", format, err)
	}

	gray := image.NewGray(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(gray, gray.Bounds(), src, src.Bounds(), draw.Src, nil)

	switch policy.Color {
	case Grayscale:
		if len(gray.Pix) != width*height {
			return Plane{}, fmt.Errorf("grayscale buffer is %d bytes, want %d (%dx%d)",
				len(gray.Pix), width*height, width, height)
		}
		return Plane{Data: gray.Pix, Width: width, Height: height}, nil
	case CompressedPNG:
		var buf bytes.Buffer
		if err := png.Encode(&buf, gray); err != nil {
			return Plane{}, fmt.Errorf("encode png: %w", err)
		}
		return Plane{Data: buf.Bytes(), Width: width, Height: height}, nil
	default:
		return Plane{}, fmt.Errorf("unsupported color mode %d", policy.Color)
	}
}

func (p Policy) outputDims(srcWidth, srcHeight int) (int, int, error) {
	switch p.Rule {
	case ScaleByFactor:
		if p.Factor <= 0 {
			return 0, 0, fmt.Errorf("scale factor %v must be positive", p.Factor)
		}
		width := int(math.Floor(float64(srcWidth) * p.Factor))
		height := int(math.Floor(float64(srcHeight) * p.Factor))
		if width < 1 || height < 1 {
			return 0, 0, fmt.Errorf("scaled dimensions %dx%d collapse below 1 pixel", width, height)
		}
		return width, height, nil
	case FitToSize:
		if p.Width < 1 || p.Height < 1 {
			return 0, 0, fmt.Errorf("fit dimensions %dx%d must be positive", p.Width, p.Height)
		}
		return p.Width, p.Height, nil
	default:
		return 0, 0, fmt.Errorf("unsupported resample rule %d", p.Rule)
	}
}
