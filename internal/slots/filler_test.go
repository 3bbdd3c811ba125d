package slots

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goslides/internal/cache"
	"github.com/hyperifyio/goslides/internal/llm"
	"github.com/hyperifyio/goslides/internal/outline"
	"github.com/hyperifyio/goslides/internal/template"
)

type scriptedClient struct {
	replies []string
	calls   int
	err     error
}

func (c *scriptedClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.calls++
	if c.err != nil {
		return openai.ChatCompletionResponse{}, c.err
	}
	reply := c.replies[len(c.replies)-1]
	if c.calls <= len(c.replies) {
		reply = c.replies[c.calls-1]
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
	}}}, nil
}

type sleepRecorder struct{ waits []time.Duration }

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func newFiller(c llm.Client, s *sleepRecorder) *Filler {
	return &Filler{LLM: &llm.Session{Client: c, Model: "m"}, Sleep: s.sleep}
}

func section() outline.Section {
	return outline.Section{Title: "Why test", OrderNo: 1, Subsections: []outline.Subsection{{SubTitle: "s", Desc: "d", Content: "c", OrderNo: 1}}}
}

func TestFill_SecondAttemptDropsExtraKey(t *testing.T) {
	c := &scriptedClient{replies: []string{
		"not json at all",
		"Here you go:\n```json\n{'a': 'A', 'b': 'B', 'c': 'C', 'd': 'D'}\n```",
	}}
	rec := &sleepRecorder{}
	res, err := newFiller(c, rec).Fill(context.Background(), Request{Topic: "Testing", Section: section(), Keys: template.ParamSet{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if !res.OK || res.Attempts != 2 || c.calls != 2 {
		t.Fatalf("expected success after 2 attempts, got ok=%v attempts=%d calls=%d", res.OK, res.Attempts, c.calls)
	}
	if len(res.Values) != 3 || res.Values["a"] != "A" || res.Values["b"] != "B" || res.Values["c"] != "C" {
		t.Fatalf("unexpected values: %v", res.Values)
	}
	if _, ok := res.Values["d"]; ok {
		t.Fatalf("extra key d must be dropped")
	}
	if len(rec.waits) != 1 || rec.waits[0] != DefaultBackoff {
		t.Fatalf("expected one backoff of %s, got %v", DefaultBackoff, rec.waits)
	}
}

func TestFill_ExhaustionLeavesEmptyValues(t *testing.T) {
	c := &scriptedClient{replies: []string{"```json\n{\"a\": \"only a\"}\n```"}}
	rec := &sleepRecorder{}
	res, err := newFiller(c, rec).Fill(context.Background(), Request{Topic: "Testing", Section: section(), Keys: template.ParamSet{"a", "b"}})
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if res.OK || res.Attempts != DefaultMaxAttempts || c.calls != DefaultMaxAttempts {
		t.Fatalf("expected failure after %d attempts, got ok=%v attempts=%d", DefaultMaxAttempts, res.OK, res.Attempts)
	}
	if res.Values["a"] != "" || res.Values["b"] != "" || len(res.Values) != 2 {
		t.Fatalf("expected empty defaults, got %v", res.Values)
	}
	if res.Last.Kind != KeyMismatch || len(res.Last.Missing) != 1 || res.Last.Missing[0] != "b" {
		t.Fatalf("unexpected last result: %+v", res.Last)
	}
	want := []time.Duration{800 * time.Millisecond, 1600 * time.Millisecond, 2400 * time.Millisecond, 3200 * time.Millisecond}
	if len(rec.waits) != len(want) {
		t.Fatalf("waits: %v", rec.waits)
	}
	for i := range want {
		if rec.waits[i] != want[i] {
			t.Fatalf("wait %d: got %s want %s", i, rec.waits[i], want[i])
		}
	}
}

func TestFill_TransportErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	c := &scriptedClient{err: boom}
	_, err := newFiller(c, &sleepRecorder{}).Fill(context.Background(), Request{Section: section(), Keys: template.ParamSet{"a"}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if c.calls != 1 {
		t.Fatalf("transport errors must not be retried, calls=%d", c.calls)
	}
}

func TestFill_NoKeysSkipsModel(t *testing.T) {
	c := &scriptedClient{replies: []string{"{}"}}
	res, err := newFiller(c, &sleepRecorder{}).Fill(context.Background(), Request{Section: section()})
	if err != nil || !res.OK || c.calls != 0 {
		t.Fatalf("expected no call, got res=%+v err=%v calls=%d", res, err, c.calls)
	}
}

func TestFill_CachedResultReused(t *testing.T) {
	dir := t.TempDir()
	req := Request{Topic: "Testing", Section: section(), Keys: template.ParamSet{"a"}}
	f := newFiller(&scriptedClient{replies: []string{`{"a": 1}`}}, &sleepRecorder{})
	f.Cache = &cache.LLMCache{Dir: dir}
	if _, err := f.Fill(context.Background(), req); err != nil {
		t.Fatalf("fill: %v", err)
	}
	again := newFiller(&scriptedClient{err: errors.New("must not be called")}, &sleepRecorder{})
	again.Cache = &cache.LLMCache{Dir: dir}
	again.CacheOnly = true
	res, err := again.Fill(context.Background(), req)
	if err != nil {
		t.Fatalf("cached fill: %v", err)
	}
	if res.Values["a"] != "1" {
		t.Fatalf("expected stringified cached value, got %v", res.Values)
	}
}

func TestFillAll_PausesBetweenSuccesses(t *testing.T) {
	c := &scriptedClient{replies: []string{`{"a":"x"}`}}
	rec := &sleepRecorder{}
	f := newFiller(c, rec)
	f.Pause = 5 * time.Millisecond
	reqs := []Request{
		{Section: section(), Keys: template.ParamSet{"a"}},
		{Section: section(), Keys: template.ParamSet{"a"}},
	}
	out, err := f.FillAll(context.Background(), reqs)
	if err != nil {
		t.Fatalf("fill all: %v", err)
	}
	if len(out) != 2 || len(rec.waits) != 1 || rec.waits[0] != 5*time.Millisecond {
		t.Fatalf("unexpected results=%d waits=%v", len(out), rec.waits)
	}
}

func TestBuildPrompt_EmbedsSectionAndKeys(t *testing.T) {
	p, err := BuildPrompt(Request{Topic: "Testing", Section: section(), Keys: template.ParamSet{"b", "a"}})
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	for _, want := range []string{`"title":"Why test"`, `{"a":"","b":""}`, "《Testing》", "`Why test`"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
}
