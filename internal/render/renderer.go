// Package render draws xiangqi positions as PNG images.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/xiangqi-server/internal/xiangqi"
)

type MoveHighlight struct {
	From int
	To   int
}

type RenderOptions struct {
	Highlight *MoveHighlight
	// Perspective puts this side at the bottom of the image.
	Perspective xiangqi.Side
	Header      string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, pos xiangqi.Position, opts RenderOptions) ([]byte, error)
}

type svgBoardRenderer struct{}

func NewBoardRenderer() BoardRenderer { return &svgBoardRenderer{} }

const (
	cellSize     = 56
	sideMargin   = 44
	headerHeight = 48
	topMargin    = headerHeight + 40
	bottomMargin = 40
	pieceSize    = cellSize - 6
	boardWidth   = cellSize * (xiangqi.Files - 1)
	boardHeight  = cellSize * (xiangqi.Ranks - 1)
	canvasWidth  = boardWidth + sideMargin*2
	canvasHeight = boardHeight + topMargin + bottomMargin
)

var (
	boardColor     = color.RGBA{233, 207, 163, 255}
	lineColor      = color.RGBA{91, 58, 30, 255}
	redInk         = color.RGBA{178, 34, 34, 255}
	blackInk       = color.RGBA{30, 30, 30, 255}
	highlightColor = color.NRGBA{R: 255, G: 228, B: 120, A: 150}
	hudPanelColor  = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTextColor   = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordColor     = color.NRGBA{R: 91, G: 58, B: 30, A: 255}
)

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, pos xiangqi.Position, opts RenderOptions) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img, err := rasterSVG(boardSVG(), canvasWidth, canvasHeight)
	if err != nil {
		return nil, fmt.Errorf("board: %w", err)
	}
	face := basicfont.Face7x13

	drawHeader(img, face, opts.Header)
	drawCoordinates(img, face, opts.Perspective)
	if h := opts.Highlight; h != nil {
		for _, sq := range []int{h.From, h.To} {
			if sq >= 0 && sq < xiangqi.Squares {
				drawSquareOverlay(img, intersection(sq, opts.Perspective), highlightColor)
			}
		}
	}
	if err := drawPieces(img, face, pos, opts.Perspective); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// intersection maps a board index to its pixel centre for the perspective.
func intersection(idx int, perspective xiangqi.Side) image.Point {
	f, rk := xiangqi.FileRank(idx)
	col, row := f, rk
	if perspective == xiangqi.Black {
		col, row = xiangqi.Files-1-f, xiangqi.Ranks-1-rk
	}
	return image.Point{X: sideMargin + col*cellSize, Y: topMargin + row*cellSize}
}

// boardSVG is the wooden background, grid, river gap and palace diagonals.
// The grid is symmetric, so it does not depend on the perspective.
func boardSVG() string {
	pt := func(col, row int) string {
		return fmt.Sprintf("%d %d", sideMargin+col*cellSize, topMargin+row*cellSize)
	}
	var d strings.Builder
	for row := 0; row < xiangqi.Ranks; row++ {
		fmt.Fprintf(&d, "M%s L%s ", pt(0, row), pt(xiangqi.Files-1, row))
	}
	for col := 0; col < xiangqi.Files; col++ {
		if col == 0 || col == xiangqi.Files-1 {
			fmt.Fprintf(&d, "M%s L%s ", pt(col, 0), pt(col, xiangqi.Ranks-1))
			continue
		}
		fmt.Fprintf(&d, "M%s L%s M%s L%s ", pt(col, 0), pt(col, 4), pt(col, 5), pt(col, 9))
	}
	for _, top := range []int{0, 7} {
		fmt.Fprintf(&d, "M%s L%s M%s L%s ", pt(3, top), pt(5, top+2), pt(5, top), pt(3, top+2))
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		canvasWidth, canvasHeight, canvasWidth, canvasHeight)
	fmt.Fprintf(&b, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`, canvasWidth, canvasHeight, hexColor(boardColor))
	fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="none" stroke="%s" stroke-width="4"/>`,
		sideMargin-8, topMargin-8, boardWidth+16, boardHeight+16, hexColor(lineColor))
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="2"/>`, strings.TrimSpace(d.String()), hexColor(lineColor))
	b.WriteString(`</svg>`)
	return b.String()
}

func drawPieces(img *image.RGBA, face font.Face, pos xiangqi.Position, perspective xiangqi.Side) error {
	drawer := &font.Drawer{Dst: img, Face: face}
	for idx, p := range pos.Board {
		if p.IsEmpty() {
			continue
		}
		disc, err := renderDisc(p.Side(), pieceSize)
		if err != nil {
			return err
		}
		c := intersection(idx, perspective)
		rect := image.Rect(c.X-pieceSize/2, c.Y-pieceSize/2, c.X-pieceSize/2+pieceSize, c.Y-pieceSize/2+pieceSize)
		imagedraw.Draw(img, rect, disc, image.Point{}, imagedraw.Over)

		ink := redInk
		if p.Side() == xiangqi.Black {
			ink = blackInk
		}
		drawer.Src = image.NewUniform(ink)
		drawCenteredText(drawer, glyph(p), c.X, c.Y+face.Metrics().Ascent.Ceil()/2-1)
	}
	return nil
}

func drawHeader(img *image.RGBA, face font.Face, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	rect := image.Rect(sideMargin-8, 8, canvasWidth-sideMargin+8, headerHeight)
	imagedraw.Draw(img, rect, image.NewUniform(hudPanelColor), image.Point{}, imagedraw.Over)
	drawer := &font.Drawer{Dst: img, Face: face, Src: image.NewUniform(hudTextColor)}
	text = truncateWithEllipsis(face, text, rect.Dx()-16)
	metrics := face.Metrics()
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawCenteredText(drawer, text, rect.Min.X+rect.Dx()/2, baseline)
}

// drawCoordinates labels files a–i under the board and ranks 0–9 on the
// left, both counted from red's side.
func drawCoordinates(img *image.RGBA, face font.Face, perspective xiangqi.Side) {
	drawer := &font.Drawer{Dst: img, Face: face, Src: image.NewUniform(coordColor)}
	for f := 0; f < xiangqi.Files; f++ {
		c := intersection(xiangqi.Index(f, xiangqi.Ranks-1), perspective)
		drawCenteredText(drawer, string(rune('a'+f)), c.X, topMargin+boardHeight+bottomMargin-10)
	}
	for rk := 0; rk < xiangqi.Ranks; rk++ {
		c := intersection(xiangqi.Index(0, rk), perspective)
		label := fmt.Sprintf("%d", xiangqi.Ranks-1-rk)
		drawer.Dot = fixed.P(10, c.Y+face.Metrics().Ascent.Ceil()/2)
		drawer.DrawString(label)
	}
}

func drawSquareOverlay(img *image.RGBA, center image.Point, clr color.Color) {
	half := cellSize / 2
	for y := center.Y - half; y < center.Y+half; y++ {
		for x := center.X - half; x < center.X+half; x++ {
			blendPixel(img, x, y, clr)
		}
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	if text == "" || maxWidth <= 0 || face == nil {
		return text
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(text).Round() <= maxWidth {
		return text
	}
	const ellipsis = "..."
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 65535 - sa
	mix := func(s uint32, d uint8) uint8 {
		return uint8((s + uint32(d)*257*inv/65535) >> 8)
	}
	img.SetRGBA(x, y, color.RGBA{
		R: mix(sr, dst.R),
		G: mix(sg, dst.G),
		B: mix(sb, dst.B),
		A: mix(sa, dst.A),
	})
}
