// Package clauses turns parsed RFP sections into indexed, searchable clauses.
package clauses

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minClauseRunes is the shortest fragment kept; anything at or below 3 runes is noise.
const minClauseRunes = 4

type Candidate struct {
	Section *string `json:"section,omitempty"`
	Text    string  `json:"text"`
}

// Extract splits every section into sentence-like fragments. A boundary is whitespace
// that follows '.', '!' or the Arabic question mark. Sections are visited in name order
// so the output is stable across runs.
func Extract(sections map[string]string) []Candidate {
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Candidate
	for _, name := range names {
		section := name
		for _, frag := range splitSentences(sections[name]) {
			text := strings.TrimSpace(frag)
			if utf8.RuneCountInString(text) < minClauseRunes {
				continue
			}
			out = append(out, Candidate{Section: &section, Text: text})
		}
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '؟'
}

// splitSentences cuts after each terminal mark that is followed by whitespace. The
// whitespace run itself is dropped.
func splitSentences(content string) []string {
	var (
		out   []string
		start int
		prev  rune
	)
	for i, r := range content {
		if unicode.IsSpace(r) && isTerminal(prev) {
			out = append(out, content[start:i])
			start = i
		}
		prev = r
	}
	if start < len(content) {
		out = append(out, content[start:])
	}
	return out
}
