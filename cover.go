// Cover image generation for epub output: a deterministic bar pattern
// seeded from the page title, with the title overlaid as text.
package main

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	coverWidth  = 1200
	coverHeight = 1800

	// Horizontal band kept clear for the title text.
	coverBandTop    = 700
	coverBandBottom = 1100
)

// generateCover renders a PNG cover: vertical bars shaded from the title
// hash, a clear central band, and the word-wrapped title.
func generateCover(title string) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, coverWidth, coverHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{0xFF}), image.Point{}, draw.Src)

	hash := sha256.Sum256([]byte(title))
	drawBars(img, hash)

	titleFace, err := loadFace(gobold.TTF, 64)
	if err != nil {
		return nil, fmt.Errorf("loading title font: %w", err)
	}
	labelFace, err := loadFace(goregular.TTF, 32)
	if err != nil {
		return nil, fmt.Errorf("loading label font: %w", err)
	}

	drawTitleBand(img, title, titleFace)
	drawString(img, "simple-browser", labelFace, 40, coverHeight-40)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding cover PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// drawBars fills the cover with vertical bars whose widths and shades are
// taken from the hash bytes. The title band stays untouched.
func drawBars(img *image.Gray, hash [32]byte) {
	x := 0
	for i := 0; x < coverWidth; i++ {
		b := hash[i%len(hash)]
		width := 24 + int(b%5)*16
		shade := uint8(0x40 + int(hash[(i+11)%len(hash)])*(0xC8-0x40)/255)
		if i%3 == 0 {
			// Every third bar stays white so the pattern breathes.
			shade = 0xFF
		}
		for dx := 0; dx < width && x+dx < coverWidth; dx++ {
			for y := 0; y < coverHeight; y++ {
				if y >= coverBandTop && y < coverBandBottom {
					continue
				}
				img.SetGray(x+dx, y, color.Gray{shade})
			}
		}
		x += width
	}
}

// drawTitleBand draws thin rules and the word-wrapped title centred in
// the clear band.
func drawTitleBand(img *image.Gray, title string, face font.Face) {
	const padX = 80
	for x := padX; x < coverWidth-padX; x++ {
		img.SetGray(x, coverBandTop+16, color.Gray{0x88})
		img.SetGray(x, coverBandBottom-16, color.Gray{0x88})
	}

	lines := wrapText(title, face, coverWidth-padX*2)
	lineHeight := face.Metrics().Height.Ceil() + 8
	total := len(lines) * lineHeight
	y := coverBandTop + (coverBandBottom-coverBandTop-total)/2 + face.Metrics().Ascent.Ceil()
	for _, line := range lines {
		w := font.MeasureString(face, line).Ceil()
		drawString(img, line, face, (coverWidth-w)/2, y)
		y += lineHeight
	}
}

// drawString renders a string onto a grayscale image in black.
func drawString(img *image.Gray, s string, face font.Face, x, y int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Gray{0x00}),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// wrapText splits text into lines that fit within maxWidth pixels.
func wrapText(text string, face font.Face, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		trial := current + " " + word
		if font.MeasureString(face, trial).Ceil() <= maxWidth {
			current = trial
		} else {
			lines = append(lines, current)
			current = word
		}
	}
	return append(lines, current)
}

// loadFace parses an OpenType font at the given size in points.
func loadFace(ttf []byte, sizePt float64) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePt,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
