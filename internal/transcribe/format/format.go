// Package format renders timestamped transcript segments as text.
package format

import (
	"math"
	"strings"
	"time"

	"github.com/voicescribe/voicescribe/internal/transcribe/engine"
)

// DefaultLayout renders times as hours:minutes:seconds.
const DefaultLayout = "15:04:05"

// Render converts an ordered segment sequence into a transcript with one
// line per segment: "<start> - <end>: <text>\n". Segments are emitted in
// input order, never reordered or merged. Offsets are anchored at the Unix
// epoch and rendered in UTC with the given Go time layout.
func Render(segments []engine.Segment, layout string) string {
	if layout == "" {
		layout = DefaultLayout
	}

	var b strings.Builder
	for _, s := range segments {
		b.WriteString(stamp(s.Start, layout))
		b.WriteString(" - ")
		b.WriteString(stamp(s.End, layout))
		b.WriteString(": ")
		b.WriteString(s.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func stamp(seconds float64, layout string) string {
	ms := int64(math.Round(seconds * 1000))
	return time.UnixMilli(ms).UTC().Format(layout)
}
