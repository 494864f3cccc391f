package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var captionColor = color.RGBA{R: 0x77, G: 0x77, B: 0x77, A: 0xff}

// drawCaption writes s into the bottom-left corner of img using the
// built-in bitmap face.
func drawCaption(img draw.Image, s string) {
	if s == "" {
		return
	}
	b := img.Bounds()
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(captionColor),
		Face: face,
		Dot:  fixed.P(b.Min.X+8, b.Max.Y-8),
	}
	d.DrawString(s)
}
