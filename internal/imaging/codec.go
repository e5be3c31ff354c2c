// Package imaging normalizes uploaded images into the canonical stored
// representation plus a thumbnail. Pure, no side effects.
package imaging

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/muzzleid/muzzle-go/internal/conf"
	"github.com/muzzleid/muzzle-go/internal/errors"
)

// Options controls normalization. Zero values are replaced by defaults.
type Options struct {
	MaxDimension     int // longest side of the stored image, never upscaled
	Quality          int // stored JPEG quality
	ThumbnailSize    int // square bound for the thumbnail
	ThumbnailQuality int // thumbnail JPEG quality
}

// DefaultOptions returns the standard normalization parameters.
func DefaultOptions() Options {
	return Options{
		MaxDimension:     1024,
		Quality:          85,
		ThumbnailSize:    256,
		ThumbnailQuality: 70,
	}
}

// FromSettings maps the media configuration onto codec options.
func FromSettings(settings *conf.Settings) Options {
	return Options{
		MaxDimension:     settings.Media.MaxDimension,
		Quality:          settings.Media.Quality,
		ThumbnailSize:    settings.Media.ThumbnailSize,
		ThumbnailQuality: settings.Media.ThumbnailQuality,
	}
}

// Codec converts arbitrary uploaded image bytes into stored and thumbnail
// JPEG payloads.
type Codec struct {
	opts Options
}

// NewCodec creates a codec, filling in defaults for unset options.
func NewCodec(opts Options) *Codec {
	defaults := DefaultOptions()
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = defaults.MaxDimension
	}
	if opts.Quality <= 0 {
		opts.Quality = defaults.Quality
	}
	if opts.ThumbnailSize <= 0 {
		opts.ThumbnailSize = defaults.ThumbnailSize
	}
	if opts.ThumbnailQuality <= 0 {
		opts.ThumbnailQuality = defaults.ThumbnailQuality
	}
	return &Codec{opts: opts}
}

// Normalize decodes raw image bytes and produces the stored representation
// and its thumbnail. The stored image is flattened to 3-channel RGB, scaled
// so its longest side does not exceed MaxDimension (never upscaled) and
// re-encoded as JPEG. The thumbnail is derived from the stored bytes, not
// from the raw input.
func (c *Codec) Normalize(raw []byte) (stored, thumbnail []byte, err error) {
	decoded, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, errors.Newf("decoding uploaded image: %w", err).
			Component("imaging").
			Category(errors.CategoryImageProcessing).
			Context("payload_bytes", len(raw)).
			Build()
	}

	flattened := flatten(decoded)

	bounds := flattened.Bounds()
	if bounds.Dx() > c.opts.MaxDimension || bounds.Dy() > c.opts.MaxDimension {
		flattened = imaging.Fit(flattened, c.opts.MaxDimension, c.opts.MaxDimension, imaging.Lanczos)
	}

	stored, err = encodeJPEG(flattened, c.opts.Quality)
	if err != nil {
		return nil, nil, err
	}

	// Thumbnail is computed from the stored representation so that repeated
	// normalization stays deterministic.
	storedImage, err := imaging.Decode(bytes.NewReader(stored))
	if err != nil {
		return nil, nil, errors.Newf("decoding stored image for thumbnail: %w", err).
			Component("imaging").
			Category(errors.CategoryImageProcessing).
			Build()
	}
	thumb := imaging.Fit(storedImage, c.opts.ThumbnailSize, c.opts.ThumbnailSize, imaging.Lanczos)
	thumbnail, err = encodeJPEG(thumb, c.opts.ThumbnailQuality)
	if err != nil {
		return nil, nil, err
	}

	return stored, thumbnail, nil
}

// flatten composites the image over a white background, discarding alpha
// and palette information before any size operation.
func flatten(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	background := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, errors.Newf("encoding JPEG: %w", err).
			Component("imaging").
			Category(errors.CategoryImageProcessing).
			Build()
	}
	return buf.Bytes(), nil
}
