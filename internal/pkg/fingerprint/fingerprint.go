package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

var ErrUnsupportedMediaType = errors.New("unsupported media type, only jpeg and png are accepted")

const (
	// Normalization raster. Every image is resampled to this exact square
	// before hashing, no aspect preservation. Changing these constants
	// invalidates every stored perceptual hash.
	rasterSize = 256

	// Block grid of the block-mean-value hash: gridBits x gridBits blocks.
	gridBits = 16

	// Stored fingerprint length in hex characters (128 bits).
	PHashHexLen = 32
)

// AllowedMimeTypes is the raster format allow-list for uploads.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Fingerprint is the pair of digests identifying image content.
// SHA256 pins exact bytes, PHash survives recompression and minor edits.
type Fingerprint struct {
	SHA256 string
	PHash  string
}

// Compute derives both digests from raw image bytes. It is a pure function:
// identical input always yields an identical Fingerprint. On a MIME type
// outside the allow-list it returns ErrUnsupportedMediaType and no partial
// result.
func Compute(data []byte, mimeType string) (Fingerprint, error) {
	if !AllowedMimeTypes[mimeType] {
		return Fingerprint{}, ErrUnsupportedMediaType
	}

	sum := sha256.Sum256(data)

	img, err := decode(data, mimeType)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("decode image: %w", err)
	}

	phash := blockMeanHash(normalize(img), gridBits)

	return Fingerprint{
		SHA256: hex.EncodeToString(sum[:]),
		PHash:  phash[:PHashHexLen],
	}, nil
}

func decode(data []byte, mimeType string) (image.Image, error) {
	r := bytes.NewReader(data)
	switch mimeType {
	case "image/jpeg":
		return jpeg.Decode(r)
	case "image/png":
		return png.Decode(r)
	}
	return nil, ErrUnsupportedMediaType
}

// normalize resamples to the fixed square raster with nearest-neighbor
// scaling. Nearest-neighbor is chosen over smoother kernels because it is
// bit-for-bit deterministic across platforms.
func normalize(img image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, rasterSize, rasterSize))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
