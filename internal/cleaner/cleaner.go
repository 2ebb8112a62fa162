// Package cleaner turns raw text extracted from a PDF into paragraph-segmented text
// that is ready for chunking.
package cleaner

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ws is the whitespace class used wherever the pipeline trims around structure.
// Go's \s alone misses \v, NEL and the Unicode space separators.
const ws = `[\s\v\x{85}\p{Z}]`

var (
	arxivIDRe       = regexp.MustCompile(`arXiv:\d{4}\.\d{5,}(v\d+)?`)
	hyphenBreakRe   = regexp.MustCompile(`([\p{L}\p{N}_])-\n([\p{L}\p{N}_])`)
	paragraphRe     = regexp.MustCompile(`\n{2,}`)
	headerRe        = regexp.MustCompile(ws + `*(^|\n)(\d+(\.\d+)*` + ws + `+[A-Z][^\n]{1,120})` + ws + `*`)
	figureCaptionRe = regexp.MustCompile(`(?im)^(figure[ \t]+\d+[ \t]*:)`)
	tableCaptionRe  = regexp.MustCompile(`(?im)^(table[ \t]+\d+[ \t]*:)`)
	spaceRunRe      = regexp.MustCompile(`[ \t]{2,}`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
	referencesRe    = regexp.MustCompile(`\n` + ws + `*References` + ws + `*\n`)
)

// maxPasses bounds the fixed-point loop in Normalize.
const maxPasses = 8

// Normalize cleans raw extracted document text. It never fails and returns
// an empty string for empty input. Cleaning passes repeat until the text
// stops changing, so Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	text := normalizePass(raw)
	for i := 1; i < maxPasses; i++ {
		next := normalizePass(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

// normalizePass runs the cleaning steps once, in a fixed order since each
// relies on the previous one: NFKC canonicalization, noise-line filtering,
// hyphenation repair, paragraph-preserving reflow, header promotion,
// caption tagging and whitespace collapse.
func normalizePass(raw string) string {
	text := norm.NFKC.String(raw)
	text = filterLines(text)
	text = hyphenBreakRe.ReplaceAllString(text, "${1}${2}")
	// a repaired hyphen can reassemble an identifier split across lines
	text = filterLines(text)
	text = reflow(text)
	text = promoteHeaders(text)
	text = figureCaptionRe.ReplaceAllString(text, "[FIGURE] ${1}")
	text = tableCaptionRe.ReplaceAllString(text, "[TABLE] ${1}")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// StripReferences drops the bibliography: everything from the first
// standalone "References" line on. Text without one is returned unchanged.
func StripReferences(text string) string {
	loc := referencesRe.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]]
}

// filterLines removes preprint identifier lines and bare page numbers and
// strips trailing whitespace from the rest.
func filterLines(text string) string {
	lines := splitLines(text)
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if arxivIDRe.MatchString(line) || isPageNumber(line) {
			continue
		}
		kept = append(kept, strings.TrimRightFunc(line, unicode.IsSpace))
	}
	return strings.Join(kept, "\n")
}

func isPageNumber(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	for _, r := range line {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// splitLines splits on every line boundary an extractor may emit. A final
// terminator does not produce a trailing empty line.
func splitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch r {
		case '\r':
			lines = append(lines, text[start:i])
			if i+1 < len(text) && text[i+1] == '\n' {
				size = 2
			}
			start = i + size
		case '\n', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
			lines = append(lines, text[start:i])
			start = i + size
		}
		i += size
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

// reflow joins wrapped lines within a paragraph with a single space and
// turns every run of two or more newlines into exactly one blank line.
// Every paragraph, the first and last included, is trimmed so later steps
// see its first word at the start of a line.
func reflow(text string) string {
	parts := paragraphRe.Split(text, -1)
	last := len(parts) - 1
	var b strings.Builder
	b.Grow(len(text))
	for i, part := range parts {
		part = strings.TrimSpace(strings.ReplaceAll(part, "\n", " "))
		b.WriteString(part)
		if i < last {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// promoteHeaders puts numbered section headings such as "3.1 Method" on a
// paragraph of their own. A heading cut from a long paragraph can leave a
// remainder that starts with another heading, so it repeats until stable.
func promoteHeaders(text string) string {
	for range len(text) + 1 {
		next := promoteHeadersOnce(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func promoteHeadersOnce(text string) string {
	matches := headerRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 4*len(matches))
	prev := 0
	for _, m := range matches {
		b.WriteString(text[prev:m[0]])
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(text[m[4]:m[5]]))
		b.WriteString("\n\n")
		prev = m[1]
	}
	b.WriteString(text[prev:])
	return b.String()
}
