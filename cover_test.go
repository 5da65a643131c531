package main

import (
	"bytes"
	"image/png"
	"testing"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

func TestGenerateCover_Basic(t *testing.T) {
	data, err := generateCover("Example Domain")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("cover PNG is empty")
	}

	// Decode to verify it's a valid PNG with expected dimensions
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != coverWidth || bounds.Dy() != coverHeight {
		t.Errorf("cover size = %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), coverWidth, coverHeight)
	}
}

func TestGenerateCover_Deterministic(t *testing.T) {
	a, err := generateCover("Same Title")
	if err != nil {
		t.Fatal(err)
	}
	b, err := generateCover("Same Title")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("same title should produce identical covers")
	}
}

func TestGenerateCover_DifferentTitles(t *testing.T) {
	a, err := generateCover("Title A")
	if err != nil {
		t.Fatal(err)
	}
	b, err := generateCover("Title B")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Error("different titles should produce different covers")
	}
}

func TestGenerateCover_LongTitle(t *testing.T) {
	title := "This Is a Very Long Title That Should Wrap Across Multiple Lines on the Cover Image"
	data, err := generateCover(title)
	if err != nil {
		t.Fatal(err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != coverWidth || bounds.Dy() != coverHeight {
		t.Errorf("cover size = %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), coverWidth, coverHeight)
	}
}

func TestWrapText(t *testing.T) {
	face, err := loadFace(goregular.TTF, 32)
	if err != nil {
		t.Fatal(err)
	}

	lines := wrapText("Hello World", face, 10000)
	if len(lines) != 1 {
		t.Errorf("short text should be 1 line, got %d", len(lines))
	}

	lines = wrapText("This is a much longer piece of text that definitely needs wrapping", face, 200)
	if len(lines) < 2 {
		t.Errorf("long text with narrow width should wrap, got %d lines", len(lines))
	}
}

func TestWrapText_EmptyString(t *testing.T) {
	face, err := loadFace(goregular.TTF, 32)
	if err != nil {
		t.Fatal(err)
	}
	lines := wrapText("", face, 500)
	if len(lines) != 1 {
		t.Errorf("empty string should produce 1 line, got %d", len(lines))
	}
}

func TestLoadFace(t *testing.T) {
	face, err := loadFace(gobold.TTF, 48)
	if err != nil {
		t.Fatal(err)
	}
	m := face.Metrics()
	if m.Height <= 0 {
		t.Error("font face should have positive height")
	}
}
