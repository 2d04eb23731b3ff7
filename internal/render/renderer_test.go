package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/park285/xiangqi-server/internal/xiangqi"
)

var discFill = color.RGBA{247, 230, 196, 255}

func decode(t *testing.T, raw []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func near(c color.Color, want color.RGBA) bool {
	r, g, b, _ := c.RGBA()
	d := func(a uint32, w uint8) int {
		v := int(a>>8) - int(w)
		if v < 0 {
			v = -v
		}
		return v
	}
	return d(r, want.R) <= 10 && d(g, want.G) <= 10 && d(b, want.B) <= 10
}

// samplePoint samples a point off the glyph and off the grid lines.
func samplePoint(img image.Image, idx int, perspective xiangqi.Side) color.Color {
	c := intersection(idx, perspective)
	return img.At(c.X+9, c.Y+9)
}

func TestRenderStartPosition(t *testing.T) {
	r := NewBoardRenderer()
	raw, err := r.RenderPNG(context.Background(), xiangqi.Start(), RenderOptions{Header: "room1 · ply 0"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img := decode(t, raw)
	if b := img.Bounds(); b.Dx() != canvasWidth || b.Dy() != canvasHeight {
		t.Fatalf("size = %v", b)
	}

	redKing := xiangqi.Index(4, 9)
	empty := xiangqi.Index(4, 5)
	if got := samplePoint(img, redKing, xiangqi.Red); !near(got, discFill) {
		t.Fatalf("red king disc colour = %v", got)
	}
	if got := samplePoint(img, empty, xiangqi.Red); !near(got, boardColor) {
		t.Fatalf("empty point colour = %v", got)
	}
}

func TestRenderBlackPerspectiveFlips(t *testing.T) {
	r := NewBoardRenderer()
	raw, err := r.RenderPNG(context.Background(), xiangqi.Start(), RenderOptions{Perspective: xiangqi.Black})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img := decode(t, raw)

	top := intersection(xiangqi.Index(4, 9), xiangqi.Black)
	if top.Y != topMargin {
		t.Fatalf("red king should be on the top row, got y=%d", top.Y)
	}
	if got := samplePoint(img, xiangqi.Index(4, 9), xiangqi.Black); !near(got, discFill) {
		t.Fatalf("red king disc colour = %v", got)
	}
}

func TestRenderHighlight(t *testing.T) {
	r := NewBoardRenderer()
	pos := xiangqi.Start()
	to := xiangqi.Index(4, 5)
	raw, err := r.RenderPNG(context.Background(), pos, RenderOptions{Highlight: &MoveHighlight{From: xiangqi.Index(4, 6), To: to}})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img := decode(t, raw)
	if got := samplePoint(img, to, xiangqi.Red); near(got, boardColor) {
		t.Fatalf("highlighted point was not tinted: %v", got)
	}
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewBoardRenderer().RenderPNG(ctx, xiangqi.Start(), RenderOptions{}); err == nil {
		t.Fatalf("expected context error")
	}
}
