// Package layout rebuilds one-entry-per-line text from raw OCR page output.
package layout

// Result carries the reconstructed text and what the passes changed.
type Result struct {
	Text               string
	AnnotationsDropped int
	BreaksInserted     int
}

// Reconstruct runs glyph removal, annotation stripping, line-break
// reinsertion and target-script space collapsing, in that order.
func Reconstruct(text string) Result {
	text = RemoveWrapGlyphs(text)
	text, dropped := StripAnnotations(text)
	text, breaks := InsertLineBreaks(text)
	return Result{
		Text:               CollapseTargetSpaces(text),
		AnnotationsDropped: dropped,
		BreaksInserted:     breaks,
	}
}
