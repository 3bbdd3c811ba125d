package outline

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParse_StampsOrderNumbers(t *testing.T) {
	raw := ` {"topic":"Testing","pages":[
		{"title":"Unit","pages":[{"sub_title":"a","desc":"d","content":"c"},{"sub_title":"b","desc":"","content":""}]},
		{"title":"Integration","pages":[{"sub_title":"c","desc":"","content":""}]}]}
`
	o, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if o.Topic != "Testing" || len(o.Sections) != 2 {
		t.Fatalf("unexpected outline: %+v", o)
	}
	if o.Sections[1].OrderNo != 2 || o.Sections[0].Subsections[1].OrderNo != 2 {
		t.Fatalf("order numbers not stamped: %+v", o.Sections)
	}
	if got := o.Titles(); len(got) != 2 || got[0] != "Unit" {
		t.Fatalf("titles: %v", got)
	}
}

func TestParse_Errors(t *testing.T) {
	for _, raw := range []string{`{"topic":"X","pages":[`, `{"topic":"X","pages":[]}`, "not json"} {
		if _, err := Parse(raw); !errors.Is(err, ErrParse) {
			t.Fatalf("%q: expected ErrParse, got %v", raw, err)
		}
	}
}

func TestShape_IsValidJSON(t *testing.T) {
	var v map[string]any
	if err := json.Unmarshal([]byte(Shape), &v); err != nil {
		t.Fatalf("shape: %v", err)
	}
}
