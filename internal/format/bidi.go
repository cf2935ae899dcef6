package format

import (
	"strings"

	"golang.org/x/text/unicode/bidi"
)

// Display reorders mixed-direction text into visual order for terminals that
// render Hebrew left to right. Returns the input unchanged when it contains
// no right-to-left runs or cannot be analyzed.
func Display(s string) string {
	var p bidi.Paragraph
	p.SetString(s)
	ordering, err := p.Order()
	if err != nil {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		if run.Direction() == bidi.RightToLeft {
			b.WriteString(bidi.ReverseString(run.String()))
		} else {
			b.WriteString(run.String())
		}
	}
	return b.String()
}
