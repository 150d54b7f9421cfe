package fingerprint

import (
	"fmt"
	"image"
	"math"
	"sort"
	"strings"
)

// blockMeanHash implements the block mean value hash: the raster is split
// into a bits x bits grid, per-block luminance sums are compared against the
// median of their horizontal band, and each comparison contributes one bit.
// The raster side must be divisible by bits, which the fixed constants
// guarantee.
func blockMeanHash(img *image.RGBA, bits int) string {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	blockW := w / bits
	blockH := h / bits

	blocks := make([]float64, bits*bits)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		by := y / blockH
		for x := 0; x < w; x++ {
			px := row[x*4 : x*4+4]
			blocks[by*bits+x/blockW] += pixelValue(px[0], px[1], px[2], px[3])
		}
	}

	return bitsToHex(blocksToBits(blocks, blockW*blockH))
}

// pixelValue is the channel sum used by the block accumulator. Fully
// transparent pixels count as white, matching the reference algorithm's
// treatment of alpha.
func pixelValue(r, g, b, a uint8) float64 {
	if a == 0 {
		return 765
	}
	return float64(r) + float64(g) + float64(b)
}

// blocksToBits folds block sums into bits, one horizontal band (a quarter of
// the blocks) at a time, comparing each block against its band median.
func blocksToBits(blocks []float64, pixelsPerBlock int) []int {
	halfBlockValue := float64(pixelsPerBlock) * 256 * 3 / 2
	bandSize := len(blocks) / 4

	out := make([]int, len(blocks))
	for band := 0; band < 4; band++ {
		lo, hi := band*bandSize, (band+1)*bandSize
		m := median(blocks[lo:hi])
		for i := lo; i < hi; i++ {
			v := blocks[i]
			if v > m || (math.Abs(v-m) < 1 && m > halfBlockValue) {
				out[i] = 1
			}
		}
	}
	return out
}

func median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func bitsToHex(bits []int) string {
	var sb strings.Builder
	for i := 0; i < len(bits); i += 4 {
		nibble := bits[i]<<3 | bits[i+1]<<2 | bits[i+2]<<1 | bits[i+3]
		fmt.Fprintf(&sb, "%x", nibble)
	}
	return sb.String()
}
