package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"studioops/internal/domain"
)

// Storyboard layout: a vertical 9:16 canvas holding a 2-column grid of
// numbered tiles. The generation provider is told to respect the numbering,
// so each tile carries a badge with its 1-based shot index.
const (
	storyboardWidth  = 1080
	storyboardHeight = 1920
	storyboardPad    = 24
	storyboardGutter = 16
	storyboardCols   = 2
	storyboardTiles  = 6

	badgeDiameter = 96
	badgeInset    = 16
)

// MinStoryboardImages and MaxStoryboardImages bound an accepted shot list.
const (
	MinStoryboardImages = 3
	MaxStoryboardImages = 5
)

// DecodeImage decodes source bytes with EXIF orientation applied.
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("media: decode image: %w", err)
	}
	return img, nil
}

// ComposeStoryboard arranges the ordered images into the numbered grid and
// returns it as a JPEG payload suitable for inline submission. Counts outside
// [3,5] are rejected before any work happens.
func ComposeStoryboard(ordered []image.Image) ([]byte, error) {
	n := len(ordered)
	if n < MinStoryboardImages || n > MaxStoryboardImages {
		return nil, domain.ErrImageCount
	}
	if n > storyboardTiles {
		ordered = ordered[:storyboardTiles]
		n = storyboardTiles
	}
	rows := (n + storyboardCols - 1) / storyboardCols
	tileW := (storyboardWidth - 2*storyboardPad - storyboardGutter) / storyboardCols
	tileH := (storyboardHeight - 2*storyboardPad - (rows-1)*storyboardGutter) / rows

	canvas := imaging.New(storyboardWidth, storyboardHeight, color.NRGBA{R: 16, G: 16, B: 18, A: 255})
	for i, src := range ordered {
		tile := imaging.Fill(src, tileW, tileH, imaging.Center, imaging.Lanczos)
		x := storyboardPad + (i%storyboardCols)*(tileW+storyboardGutter)
		y := storyboardPad + (i/storyboardCols)*(tileH+storyboardGutter)
		canvas = imaging.Paste(canvas, tile, image.Pt(x, y))
		canvas = imaging.Overlay(canvas, numberBadge(i+1), image.Pt(x+badgeInset, y+badgeInset), 1.0)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(88)); err != nil {
		return nil, fmt.Errorf("media: encode storyboard: %w", err)
	}
	return buf.Bytes(), nil
}

// numberBadge renders a filled circle carrying the 1-based shot index.
func numberBadge(n int) image.Image {
	badge := image.NewNRGBA(image.Rect(0, 0, badgeDiameter, badgeDiameter))
	draw.DrawMask(
		badge,
		badge.Bounds(),
		image.NewUniform(color.NRGBA{R: 12, G: 12, B: 14, A: 215}),
		image.Point{},
		&circleMask{d: badgeDiameter},
		image.Point{},
		draw.Over,
	)
	label := renderLabel(strconv.Itoa(n))
	return imaging.OverlayCenter(badge, label, 1.0)
}

// renderLabel rasterizes the digits with the basic bitmap face and scales
// them up with nearest-neighbor so the edges stay crisp.
func renderLabel(text string) image.Image {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	if width <= 0 {
		width = 7
	}
	small := image.NewNRGBA(image.Rect(0, 0, width, face.Height))
	drawer := &font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	drawer.DrawString(text)
	return imaging.Resize(small, width*4, 0, imaging.NearestNeighbor)
}

type circleMask struct {
	d int
}

func (c *circleMask) ColorModel() color.Model {
	return color.AlphaModel
}

func (c *circleMask) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.d, c.d)
}

func (c *circleMask) At(x, y int) color.Color {
	r := float64(c.d) / 2
	dx := float64(x) + 0.5 - r
	dy := float64(y) + 0.5 - r
	if dx*dx+dy*dy <= r*r {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}
