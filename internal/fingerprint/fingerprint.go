// Package fingerprint computes difference hashes used to drop near-duplicate
// enrollment captures before they are embedded.
package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DHash computes a 64-bit difference hash of an encoded image.
func DHash(imageData []byte) (uint64, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return 0, fmt.Errorf("failed to decode image: %w", err)
	}
	return computeDHash(img), nil
}

// HammingDistance computes the Hamming distance between two 64-bit hashes.
func HammingDistance(hash1, hash2 uint64) int {
	xor := hash1 ^ hash2
	distance := 0
	for xor != 0 {
		distance++
		xor &= xor - 1 // Clear lowest set bit
	}
	return distance
}

// Similar returns true if two hashes are within the given threshold.
func Similar(hash1, hash2 uint64, threshold int) bool {
	return HammingDistance(hash1, hash2) <= threshold
}

// Deduplicator remembers the hashes it has accepted and rejects captures that
// are within maxDistance of any of them. It is not safe for concurrent use.
type Deduplicator struct {
	maxDistance int
	seen        []uint64
}

func NewDeduplicator(maxDistance int) *Deduplicator {
	return &Deduplicator{maxDistance: maxDistance}
}

// Accept reports whether the capture is new. Undecodable captures are accepted
// so the extractor gets to report the failure.
func (d *Deduplicator) Accept(imageData []byte) bool {
	hash, err := DHash(imageData)
	if err != nil {
		return true
	}
	for _, h := range d.seen {
		if Similar(h, hash, d.maxDistance) {
			return false
		}
	}
	d.seen = append(d.seen, hash)
	return true
}

func computeDHash(img image.Image) uint64 {
	// 9 columns give 8 horizontal differences per row.
	resized := resizeImage(img, 9, 8)
	gray := toGrayscale(resized)

	var hash uint64
	bit := 63
	for y := range 8 {
		for x := range 8 {
			if gray[x][y] > gray[x+1][y] {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}

func resizeImage(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// toGrayscale converts an image to a 2D array of grayscale values (0-255).
func toGrayscale(img *image.RGBA) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]float64, width)
	for x := range width {
		gray[x] = make([]float64, height)
		for y := range height {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma formula.
			gray[x][y] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}
	return gray
}
