package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// CollapseSpace joins runs of whitespace into a single space and trims the
// ends, roughly what a browser shows for the text of an element.
func CollapseSpace(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}
