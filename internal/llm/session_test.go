package llm

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type fullClient struct{ lastReq openai.ChatCompletionRequest }

func (c *fullClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.lastReq = req
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "full"},
	}}}, nil
}

type chunkStream struct {
	chunks []string
	closed bool
}

func (s *chunkStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	if len(s.chunks) == 0 {
		return openai.ChatCompletionStreamResponse{}, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return openai.ChatCompletionStreamResponse{Choices: []openai.ChatCompletionStreamChoice{{
		Delta: openai.ChatCompletionStreamChoiceDelta{Content: c},
	}}}, nil
}

func (s *chunkStream) Close() { s.closed = true }

type streamingClient struct {
	fullClient
	stream  *chunkStream
	lastReq openai.ChatCompletionRequest
}

func (c *streamingClient) OpenStream(_ context.Context, req openai.ChatCompletionRequest) (Stream, error) {
	c.lastReq = req
	return c.stream, nil
}

type blockingClient struct{}

func (blockingClient) CreateChatCompletion(ctx context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	<-ctx.Done()
	return openai.ChatCompletionResponse{}, ctx.Err()
}

func TestChat_FullCompletion(t *testing.T) {
	c := &fullClient{}
	s := &Session{Client: c, Model: "m"}
	out, err := s.ChatOnce(context.Background(), "hi", "", 0.6)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out != "full" {
		t.Fatalf("got %q", out)
	}
	if c.lastReq.Model != "m" || c.lastReq.Temperature != 0.6 || c.lastReq.Stream {
		t.Fatalf("unexpected request: %+v", c.lastReq)
	}
	if c.lastReq.Messages[0].Content != DefaultSystemPrompt {
		t.Fatalf("expected default system prompt, got %q", c.lastReq.Messages[0].Content)
	}
}

func TestChat_StreamConsumedToCompletion(t *testing.T) {
	st := &chunkStream{chunks: []string{`{"a":`, "", `"b"}`}}
	c := &streamingClient{stream: st}
	s := &Session{Client: c, Model: "m"}
	out, err := s.Chat(context.Background(), []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "x"}}, 0.1)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out != `{"a":"b"}` {
		t.Fatalf("got %q", out)
	}
	if !st.closed {
		t.Fatalf("stream not closed")
	}
	if !c.lastReq.Stream {
		t.Fatalf("expected stream flag on request")
	}
}

func TestChat_TimeoutIsDistinct(t *testing.T) {
	s := &Session{Client: blockingClient{}, Model: "m", Timeout: 20 * time.Millisecond}
	_, err := s.ChatOnce(context.Background(), "hi", "", 0)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline error, got %v", err)
	}
}

func TestChat_ParentCancelIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &Session{Client: blockingClient{}, Model: "m", Timeout: time.Second}
	_, err := s.ChatOnce(ctx, "hi", "", 0)
	if err == nil || errors.Is(err, ErrTimeout) {
		t.Fatalf("expected plain cancellation, got %v", err)
	}
}
