package commands

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"log/slog"

	"github.com/jo-hoe/cubediary/internal/backend/commandstructure"
)

const (
	DefaultJpegQuality    = 60
	DefaultJpegMaxBytes   = 150 * 1024
	DefaultJpegMinQuality = 20
	jpegQualityStep       = 10
)

// JpegEncoderParams represents typed parameters for the JPEG encoder
type JpegEncoderParams struct {
	Quality    int
	MaxBytes   int
	MinQuality int
}

// NewJpegEncoderParamsFromMap creates JpegEncoderParams from a generic map
func NewJpegEncoderParamsFromMap(params map[string]any) (*JpegEncoderParams, error) {
	quality := commandstructure.GetIntParam(params, "quality", DefaultJpegQuality)
	maxBytes := commandstructure.GetIntParam(params, "maxBytes", DefaultJpegMaxBytes)
	minQuality := commandstructure.GetIntParam(params, "minQuality", DefaultJpegMinQuality)

	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("quality must be within 1..100, got %d", quality)
	}
	if minQuality < 1 || minQuality > quality {
		return nil, fmt.Errorf("minQuality must be within 1..%d, got %d", quality, minQuality)
	}
	if maxBytes < 0 {
		return nil, fmt.Errorf("maxBytes must not be negative, got %d", maxBytes)
	}

	return &JpegEncoderParams{
		Quality:    quality,
		MaxBytes:   maxBytes,
		MinQuality: minQuality,
	}, nil
}

// JpegEncoderCommand re-encodes an image as JPEG. When MaxBytes is set the
// quality is lowered step by step until the output fits or MinQuality is reached.
type JpegEncoderCommand struct {
	name   string
	params *JpegEncoderParams
}

// NewJpegEncoderCommand creates a new JPEG encoder from configuration parameters
func NewJpegEncoderCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewJpegEncoderParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &JpegEncoderCommand{
		name:   "JpegEncoderCommand",
		params: typedParams,
	}, nil
}

func (c *JpegEncoderCommand) Name() string {
	return c.name
}

func (c *JpegEncoderCommand) GetParams() *JpegEncoderParams {
	return c.params
}

func (c *JpegEncoderCommand) Execute(imageData []byte) ([]byte, error) {
	img, format, err := decodeImage(imageData)
	if err != nil {
		slog.Error("JpegEncoderCommand: failed to decode image", "error", err)
		return nil, err
	}
	src := flatten(img, white)

	var buf bytes.Buffer
	quality := c.params.Quality
	for {
		buf.Reset()
		if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: quality}); err != nil {
			slog.Error("JpegEncoderCommand: failed to encode image", "error", err, "quality", quality)
			return nil, fmt.Errorf("failed to encode JPEG image: %w", err)
		}
		if c.params.MaxBytes == 0 || buf.Len() <= c.params.MaxBytes || quality <= c.params.MinQuality {
			break
		}
		quality -= jpegQualityStep
		if quality < c.params.MinQuality {
			quality = c.params.MinQuality
		}
	}

	slog.Debug("JpegEncoderCommand: encoding complete",
		"input_format", format,
		"input_size_bytes", len(imageData),
		"output_size_bytes", buf.Len(),
		"quality", quality)

	return buf.Bytes(), nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("JpegEncoderCommand", NewJpegEncoderCommand); err != nil {
		panic(fmt.Sprintf("failed to register JpegEncoderCommand: %v", err))
	}
}
