// Package brief parses the optional Markdown request file: a heading naming
// the deck topic followed by front-matter lines for the leading slide.
package brief

import (
	"bufio"
	"regexp"
	"strings"
)

// Brief is the distilled deck request.
type Brief struct {
	Topic string
	// Meta is the front-matter dictionary for the leading slide. It always
	// carries "topic".
	Meta map[string]string
	// Raw is the original input for traceability.
	Raw string
}

var (
	headingRe = regexp.MustCompile(`^\s{0,3}#{1,6}\s+(.+?)\s*$`)
	// Examples: "author: Jane Doe", "date: 2024-05-01", "company_name: ACME"
	metaLineRe = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9_\-]*)\s*:\s*(.+?)\s*$`)
)

// ParseBrief parses a Markdown string into a Brief. The first heading is the
// topic, otherwise the first non-empty line that is not a key: value line.
// Keys are kept verbatim; the first occurrence of a key wins.
func ParseBrief(input string) Brief {
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Split(bufio.ScanLines)

	b := Brief{Raw: input, Meta: map[string]string{}}
	var firstPlain string

	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" {
			continue
		}
		if m := headingRe.FindStringSubmatch(trimmed); len(m) == 2 {
			if b.Topic == "" {
				b.Topic = strings.TrimSpace(stripTrailingPunctuation(m[1]))
			}
			continue
		}
		if m := metaLineRe.FindStringSubmatch(trimmed); len(m) == 3 {
			if _, seen := b.Meta[m[1]]; !seen {
				b.Meta[m[1]] = m[2]
			}
			continue
		}
		if firstPlain == "" {
			firstPlain = trimmed
		}
	}

	if b.Topic == "" {
		if t, ok := b.Meta["topic"]; ok {
			b.Topic = t
		} else {
			b.Topic = deriveTopicFromLine(firstPlain)
		}
	}
	if _, ok := b.Meta["topic"]; !ok {
		b.Meta["topic"] = b.Topic
	}
	return b
}

// Language returns the "language" front-matter value, matched without case.
func (b Brief) Language() string {
	for k, v := range b.Meta {
		if strings.EqualFold(k, "language") {
			return v
		}
	}
	return ""
}

func deriveTopicFromLine(line string) string {
	if line == "" {
		return ""
	}
	s := strings.Trim(strings.TrimSpace(line), "`*")
	return stripTrailingPunctuation(s)
}

func stripTrailingPunctuation(s string) string {
	return strings.TrimRight(s, " #:-")
}
