package slots

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hyperifyio/goslides/internal/template"
)

// Kind tags the outcome of evaluating one model reply.
type Kind int

const (
	// Valid means every required key was present.
	Valid Kind = iota
	// ParseFailure means the candidate text was not a JSON object.
	ParseFailure
	// KeyMismatch means the object parsed but required keys were absent.
	KeyMismatch
)

func (k Kind) String() string {
	switch k {
	case Valid:
		return "valid"
	case ParseFailure:
		return "parse_failure"
	case KeyMismatch:
		return "key_mismatch"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseResult is the tagged result of one attempt. Values is set for Valid
// and KeyMismatch, Reason for ParseFailure, Missing and Extra for both
// object-shaped outcomes.
type ParseResult struct {
	Kind    Kind
	Values  map[string]any
	Reason  string
	Missing []string
	Extra   []string
}

var fencedJSONRe = regexp.MustCompile("(?s)```json.*?\n(.*?)```")

// ExtractJSON returns the body of the first ```json fence, or the whole
// reply when there is none. Single quotes become double quotes.
func ExtractJSON(reply string) string {
	candidate := reply
	if m := fencedJSONRe.FindStringSubmatch(reply); m != nil {
		candidate = m[1]
	}
	return strings.ReplaceAll(candidate, "'", `"`)
}

// Evaluate parses reply and checks it against the required key set.
func Evaluate(reply string, required template.ParamSet) ParseResult {
	candidate := strings.TrimSpace(ExtractJSON(reply))
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return ParseResult{Kind: ParseFailure, Reason: err.Error()}
	}
	if obj == nil {
		return ParseResult{Kind: ParseFailure, Reason: "reply is not a JSON object"}
	}
	res := ParseResult{Kind: Valid, Values: obj}
	for _, k := range required {
		if _, ok := obj[k]; !ok {
			res.Missing = append(res.Missing, k)
		}
	}
	for k := range obj {
		if !required.Contains(k) {
			res.Extra = append(res.Extra, k)
		}
	}
	sort.Strings(res.Extra)
	if len(res.Missing) > 0 {
		res.Kind = KeyMismatch
	}
	return res
}

// Project copies only the required keys out of a valid result. Keys absent
// from the reply map to "".
func (r ParseResult) Project(required template.ParamSet) map[string]string {
	out := make(map[string]string, len(required))
	for _, k := range required {
		out[k] = Stringify(r.Values[k])
	}
	return out
}

// Stringify renders a decoded JSON value as slide text. Strings are kept
// as-is; null becomes "" and everything else its compact JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
