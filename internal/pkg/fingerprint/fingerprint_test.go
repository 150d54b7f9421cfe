package fingerprint

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// halves renders a 256x256 image split vertically into two solid colors.
func halves(t *testing.T, left, right color.RGBA) *image.RGBA {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			if x < 128 {
				img.Set(x, y, left)
			} else {
				img.Set(x, y, right)
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

var (
	black = color.RGBA{0, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
)

func TestCompute_Deterministic(t *testing.T) {
	data := encodePNG(t, halves(t, black, white))

	first, err := Compute(data, "image/png")
	require.NoError(t, err)
	second, err := Compute(data, "image/png")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first.SHA256, 64)
	assert.Len(t, first.PHash, PHashHexLen)
}

func TestCompute_RejectsUnsupportedMime(t *testing.T) {
	data := encodePNG(t, halves(t, black, white))

	_, err := Compute(data, "image/gif")
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)

	_, err = Compute(data, "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)
}

func TestCompute_RejectsCorruptImage(t *testing.T) {
	_, err := Compute([]byte("not an image at all"), "image/png")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedMediaType)
}

func TestCompute_RecompressionStaysClose(t *testing.T) {
	img := halves(t, black, white)

	fromPNG, err := Compute(encodePNG(t, img), "image/png")
	require.NoError(t, err)
	fromJPEG, err := Compute(encodeJPEG(t, img), "image/jpeg")
	require.NoError(t, err)

	// Different bytes, same picture: content hashes diverge but the
	// perceptual hashes must stay within the similarity threshold.
	assert.NotEqual(t, fromPNG.SHA256, fromJPEG.SHA256)

	dist, err := Distance(fromPNG.PHash, fromJPEG.PHash)
	require.NoError(t, err)
	assert.LessOrEqual(t, dist, 10)
}

func TestCompute_DifferentImagesAreFar(t *testing.T) {
	a, err := Compute(encodePNG(t, halves(t, black, white)), "image/png")
	require.NoError(t, err)
	b, err := Compute(encodePNG(t, halves(t, white, black)), "image/png")
	require.NoError(t, err)

	dist, err := Distance(a.PHash, b.PHash)
	require.NoError(t, err)
	assert.Greater(t, dist, 10)
}

func TestCompute_NormalizesSize(t *testing.T) {
	// A 512x300 rendition of the same picture must land near the 256x256 one.
	big := image.NewRGBA(image.Rect(0, 0, 512, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 512; x++ {
			if x < 256 {
				big.Set(x, y, black)
			} else {
				big.Set(x, y, white)
			}
		}
	}

	small, err := Compute(encodePNG(t, halves(t, black, white)), "image/png")
	require.NoError(t, err)
	scaled, err := Compute(encodePNG(t, big), "image/png")
	require.NoError(t, err)

	dist, err := Distance(small.PHash, scaled.PHash)
	require.NoError(t, err)
	assert.LessOrEqual(t, dist, 10)
}

func TestDistance(t *testing.T) {
	d, err := Distance("00", "ff")
	require.NoError(t, err)
	assert.Equal(t, 8, d)

	d, err = Distance("abcd", "abcd")
	require.NoError(t, err)
	assert.Equal(t, 0, d)

	_, err = Distance("ab", "abcd")
	assert.Error(t, err)

	_, err = Distance("zz", "ab")
	assert.Error(t, err)
}
