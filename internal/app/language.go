package app

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/hyperifyio/goslides/internal/planner"
)

// languageName turns a BCP 47 tag such as "en-GB" or "fi" into the English
// display name written into prompts. Anything that is not a tag, such as
// "British English", is passed through.
func languageName(hint string) string {
	s := strings.TrimSpace(hint)
	if s == "" {
		return planner.DefaultLanguage
	}
	tag, err := language.Parse(s)
	if err != nil {
		return s
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return s
}
