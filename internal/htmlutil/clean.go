package htmlutil

import (
	"regexp"
	"strings"

	"github.com/k3a/html2text"
)

// ToText converts HTML to plain text using a proper HTML parser.
// Handles entities, strips tags, and preserves readable text.
func ToText(s string) string {
	return html2text.HTML2Text(s)
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// CleanReply turns generated text that may carry markup into plain
// paragraphs. Text without markup keeps its line breaks. The result is empty
// when nothing readable remains.
func CleanReply(s string) string {
	text := s
	if strings.ContainsAny(s, "<&") {
		text = ToText(s)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	text = blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}
