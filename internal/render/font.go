package render

import (
	"fmt"
	"os"

	xfont "golang.org/x/image/font/opentype"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/font/liberation"
	"gonum.org/v1/plot/text"
)

const customTypeface font.Typeface = "barrace"

// typography is the text handler and typeface every label is drawn with.
type typography struct {
	handler text.Handler
	base    font.Font
}

// loadTypography returns the default Liberation fonts, or a cache holding
// the TTF/OTF at path when one is given.
func loadTypography(path string) (typography, error) {
	if path == "" {
		return typography{handler: plot.DefaultTextHandler, base: plot.DefaultFont}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return typography{}, fmt.Errorf("read font: %w", err)
	}
	face, err := xfont.Parse(raw)
	if err != nil {
		return typography{}, fmt.Errorf("parse font %s: %w", path, err)
	}
	base := font.Font{Typeface: customTypeface}
	cache := font.NewCache(liberation.Collection())
	cache.Add([]font.Face{{Font: base, Face: face}})
	return typography{handler: text.Plain{Fonts: cache}, base: base}, nil
}

// apply points a text style at this typography.
func (t typography) apply(s *text.Style) {
	size := s.Font.Size
	s.Handler = t.handler
	s.Font = t.base
	s.Font.Size = size
}
