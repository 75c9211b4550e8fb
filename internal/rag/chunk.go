// Package rag turns documents into searchable chunks and assembles the
// grounded prompt for a chat turn.
package rag

import "unicode"

// SplitText cuts text into windows of at most size runes, each overlapping
// the previous by overlap runes. Windows prefer to end on whitespace found in
// their second half. Blank windows are dropped.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else if cut := lastSpace(runes, start+size/2, end); cut > start {
			end = cut
		}

		if chunk := trimSpace(runes[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// lastSpace returns the index just after the last whitespace rune in
// runes[from:to], or -1.
func lastSpace(runes []rune, from, to int) int {
	for i := to - 1; i >= from; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return -1
}

func trimSpace(runes []rune) string {
	i, j := 0, len(runes)
	for i < j && unicode.IsSpace(runes[i]) {
		i++
	}
	for j > i && unicode.IsSpace(runes[j-1]) {
		j--
	}
	return string(runes[i:j])
}
