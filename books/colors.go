package books

import (
	"fmt"
	"strings"
)

// Color is the display name of an annotation style.
type Color string

const (
	ColorUnderline Color = "underline"
	ColorGreen     Color = "green"
	ColorBlue      Color = "blue"
	ColorYellow    Color = "yellow"
	ColorPink      Color = "pink"
	ColorPurple    Color = "purple"
)

// styleColors maps AEAnnotation.ZANNOTATIONSTYLE codes to colours.
var styleColors = map[int]Color{
	0: ColorUnderline,
	1: ColorGreen,
	2: ColorBlue,
	3: ColorYellow,
	4: ColorPink,
	5: ColorPurple,
}

// Colors returns the known colours in style-code order.
func Colors() []Color {
	out := make([]Color, 0, len(styleColors))
	for code := 0; code < len(styleColors); code++ {
		out = append(out, styleColors[code])
	}
	return out
}

// ColorForStyle maps a style code to its colour. Unknown codes yield "".
func ColorForStyle(style int) Color {
	return styleColors[style]
}

// StyleForColor maps a colour name to its style code. Names are matched
// exactly; unknown names wrap ErrInvalidArgument.
func StyleForColor(name string) (int, error) {
	for code, color := range styleColors {
		if string(color) == name {
			return code, nil
		}
	}
	names := make([]string, 0, len(styleColors))
	for _, color := range Colors() {
		names = append(names, string(color))
	}
	return 0, fmt.Errorf("%w: unknown color %q (want one of %s)", ErrInvalidArgument, name, strings.Join(names, ", "))
}
