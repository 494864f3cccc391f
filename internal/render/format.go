package render

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatValue renders a bar value with thousands separators and an optional
// unit suffix: 28780 -> "28,780 bn".
func FormatValue(v float64, unit string) string {
	s := printer.Sprintf("%d", int64(math.Round(v)))
	if unit = strings.TrimSpace(unit); unit != "" {
		s += " " + unit
	}
	return s
}

// FormatRankChange renders a rank movement: "+2", "-1" or "".
func FormatRankChange(delta int) string {
	if delta == 0 {
		return ""
	}
	return fmt.Sprintf("%+d", delta)
}
