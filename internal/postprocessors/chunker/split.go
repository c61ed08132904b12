package chunker

import (
	"strings"
	"unicode"
)

// isParagraphBreak reports whether line separates paragraphs.
// A line that is empty after trimming is a paragraph break.
func isParagraphBreak(line string) bool {
	return strings.TrimSpace(line) == ""
}

// isTerminator reports whether r ends a sentence.
func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// isCloser reports whether r may trail a terminator inside the same
// sentence, as in `"Stop."` or `(see above.)`.
func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '’', '”', '»':
		return true
	default:
		return false
	}
}

// sentenceEnd returns the index just past the sentence that has a
// terminator at i, or -1 when the terminator is not a boundary.
// A boundary is a terminator, any trailing terminators and closers,
// then whitespace or the end of the text.
func sentenceEnd(runes []rune, i int) int {
	if !isTerminator(runes[i]) {
		return -1
	}
	j := i + 1
	for j < len(runes) && (isTerminator(runes[j]) || isCloser(runes[j])) {
		j++
	}
	if j == len(runes) || unicode.IsSpace(runes[j]) {
		return j
	}
	return -1
}

// splitParagraphs splits text on blank-line boundaries. Returned
// paragraphs keep their inner single newlines.
func splitParagraphs(text string) []string {
	var paragraphs []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if isParagraphBreak(line) {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return paragraphs
}

// splitSentences splits a paragraph at sentence boundaries. Text after
// the last terminator forms a final sentence. Whitespace between
// sentences is dropped.
func splitSentences(paragraph string) []string {
	runes := []rune(paragraph)
	var sentences []string

	start := 0
	for i := 0; i < len(runes); i++ {
		end := sentenceEnd(runes, i)
		if end < 0 {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			sentences = append(sentences, s)
		}
		start = end
		i = end - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
