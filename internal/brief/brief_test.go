package brief

import "testing"

func TestParseBrief_HeadingTopicAndMeta(t *testing.T) {
	input := `# Quarterly reliability review

author: Platform Team
date: 2024-05-01
Company_Name: ACME
author: ignored duplicate

Free text notes are not front matter.`

	b := ParseBrief(input)

	if b.Topic != "Quarterly reliability review" {
		t.Fatalf("topic: got %q", b.Topic)
	}
	want := map[string]string{
		"topic":        "Quarterly reliability review",
		"author":       "Platform Team",
		"date":         "2024-05-01",
		"Company_Name": "ACME",
	}
	if len(b.Meta) != len(want) {
		t.Fatalf("meta: got %v", b.Meta)
	}
	for k, v := range want {
		if b.Meta[k] != v {
			t.Fatalf("meta[%s]: got %q want %q", k, b.Meta[k], v)
		}
	}
}

func TestParseBrief_FallbackTopic(t *testing.T) {
	b := ParseBrief("**Investigate Go profile-guided optimizations**\nlanguage: fi")
	if b.Topic != "Investigate Go profile-guided optimizations" {
		t.Fatalf("topic: got %q", b.Topic)
	}
	if b.Meta["topic"] != b.Topic {
		t.Fatalf("topic must be mirrored into meta: %v", b.Meta)
	}
	if b.Language() != "fi" {
		t.Fatalf("language: got %q", b.Language())
	}
}

func TestParseBrief_ExplicitTopicKey(t *testing.T) {
	b := ParseBrief("topic: Testing\nauthor: QA")
	if b.Topic != "Testing" || b.Meta["topic"] != "Testing" {
		t.Fatalf("unexpected brief: %+v", b)
	}
}

func TestParseBrief_Empty(t *testing.T) {
	b := ParseBrief("")
	if b.Topic != "" || b.Meta["topic"] != "" {
		t.Fatalf("unexpected brief: %+v", b)
	}
}

func TestParseHTML_HeadingAndMeta(t *testing.T) {
	in := `<html><head><title>Ignored</title>
<meta name="author" content="QA Team">
<meta name="author" content="Second">
<meta charset="utf-8">
</head><body><h1>Release <em>planning</em></h1><p>text</p></body></html>`
	b := ParseHTML(in)
	if b.Topic != "Release planning" {
		t.Fatalf("topic: %q", b.Topic)
	}
	if b.Meta["author"] != "QA Team" || b.Meta["topic"] != "Release planning" {
		t.Fatalf("meta: %+v", b.Meta)
	}
	if _, ok := b.Meta["charset"]; ok {
		t.Fatalf("charset must not become front matter: %+v", b.Meta)
	}
}

func TestParseHTML_TitleFallback(t *testing.T) {
	b := ParseHTML(`<html><head><title>  Quarterly   review </title></head><body></body></html>`)
	if b.Topic != "Quarterly review" {
		t.Fatalf("topic: %q", b.Topic)
	}
}

func TestParse_PicksReaderByExtension(t *testing.T) {
	if got := Parse("req.HTML", "<h1>A</h1>").Topic; got != "A" {
		t.Fatalf("html topic: %q", got)
	}
	if got := Parse("req.md", "# B\n").Topic; got != "B" {
		t.Fatalf("markdown topic: %q", got)
	}
}
