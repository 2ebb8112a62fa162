package llm

import "strings"

// FallbackText is shown in place of a response that carried no text.
const FallbackText = "(response could not be parsed)"

// Result is the raw shape of a model response. Providers return one of
// DirectText or StructuredCandidate.
type Result interface {
	isResult()
}

// DirectText is a response that exposes its text directly.
type DirectText struct {
	Text string
}

// StructuredCandidate is a response made of candidates, each holding text parts.
type StructuredCandidate struct {
	Candidates []Candidate
}

// Candidate is one alternative answer.
type Candidate struct {
	Parts []string
}

func (DirectText) isResult()          {}
func (StructuredCandidate) isResult() {}

// ExtractText returns the trimmed text of r. Only the first candidate of a
// structured response is considered. ok is false when there is no
// non-blank text.
func ExtractText(r Result) (text string, ok bool) {
	switch v := r.(type) {
	case DirectText:
		text = v.Text
	case StructuredCandidate:
		if len(v.Candidates) > 0 {
			text = strings.Join(v.Candidates[0].Parts, "")
		}
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

// TextOrFallback is ExtractText with FallbackText for empty responses.
func TextOrFallback(r Result) string {
	if text, ok := ExtractText(r); ok {
		return text
	}
	return FallbackText
}
