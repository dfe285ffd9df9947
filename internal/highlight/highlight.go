// Package highlight turns weighted phrase occurrences inside a document into
// a run-length compressed annotation of its text.
package highlight

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// DefaultCap is the provider-side text length cap; a document whose text is
// exactly this long was truncated upstream.
const DefaultCap = 10000

// ErrSpanOutOfBounds is returned when an occurrence does not fit the text.
var ErrSpanOutOfBounds = errors.New("occurrence span out of bounds")

// ErrClusterSize is returned by Annotate for a non-positive cluster size.
var ErrClusterSize = errors.New("cluster size must be positive")

// Span is a half-open character range [Start, End).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Phrase is a shared phrase with its weight and its spans in one document.
type Phrase struct {
	Text        string `json:"phrase,omitempty"`
	Weight      int    `json:"weight"`
	Occurrences []Span `json:"occurrences"`
}

// Segment is a maximal run of text sharing one weight.
type Segment struct {
	Weight    int     `json:"weight"`
	Intensity float64 `json:"intensity"`
	Text      string  `json:"text"`
}

// Annotation is the rendered result for one document.
type Annotation struct {
	Segments  []Segment `json:"segments"`
	HTML      string    `json:"frequency_html"`
	Truncated bool      `json:"truncated"`
}

// Segments computes, for every character, the maximum weight of any phrase
// covering it and returns the run-length encoding of that array sliced over
// text. Offsets count characters (runes), not bytes.
func Segments(text string, phrases []Phrase) ([]Segment, error) {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		// Spans still have to fit an empty text.
		return nil, checkSpans(phrases, 0)
	}
	if err := checkSpans(phrases, n); err != nil {
		return nil, err
	}

	freq := make([]int, n)
	for _, p := range phrases {
		for _, o := range p.Occurrences {
			for i := o.Start; i < o.End; i++ {
				freq[i] = max(freq[i], p.Weight)
			}
		}
	}

	var segs []Segment
	start := 0
	for i := 1; i <= n; i++ {
		if i < n && freq[i] == freq[start] {
			continue
		}
		segs = append(segs, Segment{Weight: freq[start], Text: string(runes[start:i])})
		start = i
	}
	return segs, nil
}

func checkSpans(phrases []Phrase, n int) error {
	for _, p := range phrases {
		for _, o := range p.Occurrences {
			if o.Start < 0 || o.Start > o.End || o.End > n {
				return fmt.Errorf("%w: phrase %q [%d,%d) in text of length %d", ErrSpanOutOfBounds, p.Text, o.Start, o.End, n)
			}
		}
	}
	return nil
}

// Intensity is weight relative to the comparison cluster size, rounded to
// two decimals. A zero weight is fully transparent. A non-positive size also
// yields 0; Annotate rejects it before rendering.
func Intensity(weight int, clusterSize float64) float64 {
	if weight == 0 || clusterSize <= 0 {
		return 0
	}
	return math.Round(float64(weight)/clusterSize*100) / 100
}

// Render produces HTML markup with one tinted span per segment. Line breaks
// inside a segment are kept as <br /> elements.
func Render(segs []Segment, clusterSize float64) string {
	var buf strings.Builder
	for _, s := range segs {
		fmt.Fprintf(&buf, `<span style="background-color:rgba(160,211,216,%s)">`, formatIntensity(Intensity(s.Weight, clusterSize)))
		buf.WriteString(strings.ReplaceAll(html.EscapeString(s.Text), "\n", "<br />"))
		buf.WriteString("</span>")
	}
	return buf.String()
}

func formatIntensity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Annotate runs the full pipeline for one document against a cluster of
// clusterSize members. textCap is the provider text cap (DefaultCap if <= 0).
func Annotate(text string, phrases []Phrase, clusterSize float64, textCap int) (Annotation, error) {
	if textCap <= 0 {
		textCap = DefaultCap
	}
	if !(clusterSize > 0) {
		return Annotation{}, fmt.Errorf("%w: got %v", ErrClusterSize, clusterSize)
	}
	segs, err := Segments(text, phrases)
	if err != nil {
		return Annotation{}, err
	}
	for i := range segs {
		segs[i].Intensity = Intensity(segs[i].Weight, clusterSize)
	}
	if segs == nil {
		segs = []Segment{}
	}
	return Annotation{
		Segments:  segs,
		HTML:      Render(segs, clusterSize),
		Truncated: utf8.RuneCountInString(text) == textCap,
	}, nil
}
