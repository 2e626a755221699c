package refine

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()

	// Model disclaimers such as "(Note: this is a machine summary ...)".
	disclaimerInline = regexp.MustCompile(`(?i)[\(\[]\s*(note|disclaimer)\s*:[^\)\]]*[\)\]]`)
	disclaimerLine   = regexp.MustCompile(`(?im)^\s*(note|disclaimer)\s*:.*$`)
	codeFence        = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
)

// Sanitize strips markup, code fences and disclaimers from model output and
// collapses whitespace.
func Sanitize(s string) string {
	s = codeFence.ReplaceAllString(s, "")
	s = disclaimerInline.ReplaceAllString(s, "")
	s = disclaimerLine.ReplaceAllString(s, "")
	s = strictPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
