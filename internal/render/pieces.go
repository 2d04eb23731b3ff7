package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/xiangqi-server/internal/xiangqi"
)

type pieceCacheKey struct {
	side xiangqi.Side
	size int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

const discSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100" viewBox="0 0 100 100">
<circle cx="50" cy="50" r="46" fill="#f7e6c4" stroke="%[1]s" stroke-width="6"/>
<circle cx="50" cy="50" r="36" fill="none" stroke="%[1]s" stroke-width="3"/>
</svg>`

// renderDisc rasterises the round piece body for side at size pixels. The
// glyph is drawn separately on top.
func renderDisc(side xiangqi.Side, size int) (image.Image, error) {
	key := pieceCacheKey{side: side, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	stroke := redInk
	if side == xiangqi.Black {
		stroke = blackInk
	}
	img, err := rasterSVG(fmt.Sprintf(discSVG, hexColor(stroke)), size, size)
	if err != nil {
		return nil, fmt.Errorf("piece disc: %w", err)
	}

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}

// rasterSVG draws an SVG document onto a transparent w×h canvas.
func rasterSVG(doc string, w, h int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// glyph is the single ASCII letter printed on a piece.
func glyph(p xiangqi.Piece) string {
	switch p.Kind() {
	case xiangqi.King:
		return "K"
	case xiangqi.Advisor:
		return "A"
	case xiangqi.Elephant:
		return "E"
	case xiangqi.Horse:
		return "H"
	case xiangqi.Rook:
		return "R"
	case xiangqi.Cannon:
		return "C"
	case xiangqi.Pawn:
		return "P"
	}
	return ""
}
