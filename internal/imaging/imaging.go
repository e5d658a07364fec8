// Package imaging validates uploaded images and normalises them for storage.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// Size limits for stored images.
const (
	ProductMaxDimension = 1024
	LogoMaxDimension    = 512
	FaviconSize         = 64
)

// JPEGQuality is the compression quality for JPEG output.
const JPEGQuality = 85

// MaxUploadSize bounds the raw upload read from a request.
const MaxUploadSize = 5 << 20

// ErrUnsupported is returned for data that is not a JPEG or PNG image.
var ErrUnsupported = errors.New("image must be a JPEG or PNG")

// AllowedMIME lists the accepted input MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Result contains the processed image data.
type Result struct {
	Data []byte
	MIME string
}

// decode reads image data, validating the format by sniffing bytes rather
// than trusting client headers.
func decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("image cannot exceed %d MB", MaxUploadSize>>20)
	}

	if !AllowedMIME[http.DetectContentType(data)] {
		return nil, ErrUnsupported
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// Product normalises a product photo: at most ProductMaxDimension on either
// side, re-encoded as JPEG.
func Product(r io.Reader) (*Result, error) {
	img, err := decode(r)
	if err != nil {
		return nil, err
	}
	return encodeJPEG(downscale(img, ProductMaxDimension))
}

// Logo normalises a branch logo to at most LogoMaxDimension on either side.
// Logos with transparency stay PNG; opaque ones become JPEG.
func Logo(r io.Reader) (*Result, error) {
	img, err := decode(r)
	if err != nil {
		return nil, err
	}
	img = downscale(img, LogoMaxDimension)
	if hasTransparency(img) {
		return encodePNG(img)
	}
	return encodeJPEG(img)
}

// Favicon fits an image into a FaviconSize square PNG, centred on a
// transparent background.
func Favicon(r io.Reader) (*Result, error) {
	img, err := decode(r)
	if err != nil {
		return nil, err
	}

	src := img.Bounds()
	w, h := fit(src.Dx(), src.Dy(), FaviconSize)
	dst := image.NewNRGBA(image.Rect(0, 0, FaviconSize, FaviconSize))
	x, y := (FaviconSize-w)/2, (FaviconSize-h)/2
	draw.CatmullRom.Scale(dst, image.Rect(x, y, x+w, y+h), img, src, draw.Over, nil)
	return encodePNG(dst)
}

func encodeJPEG(img image.Image) (*Result, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return &Result{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
}

func encodePNG(img image.Image) (*Result, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return &Result{Data: buf.Bytes(), MIME: "image/png"}, nil
}

// hasTransparency reports whether any pixel is not fully opaque.
func hasTransparency(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// fit scales w×h so neither side exceeds maxDim, preserving aspect ratio.
func fit(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}
	return max(newW, 1), max(newH, 1)
}

// downscale resizes the image so neither dimension exceeds maxDim.
// Uses high-quality Catmull-Rom interpolation.
// Returns the original image if already within bounds.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := fit(bounds.Dx(), bounds.Dy(), maxDim)
	if w == bounds.Dx() && h == bounds.Dy() {
		return img
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	// Register decoders (jpeg is registered by default, but be explicit).
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
