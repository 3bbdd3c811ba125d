package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultSystemPrompt is used by ChatOnce when no system prompt is given.
const DefaultSystemPrompt = "You are an all-purpose assistant"

var (
	// ErrTimeout marks a call that exceeded the session's per-call timeout.
	// Parent context cancellation is reported as-is, not as ErrTimeout.
	ErrTimeout = errors.New("llm call timed out")
	// ErrNoChoices is returned when a full completion carries no choices.
	ErrNoChoices = errors.New("no choices")
)

// Session carries the client and model settings shared by every call of one
// generation run.
type Session struct {
	Client  Client
	Model   string
	Timeout time.Duration
}

// Chat sends messages and returns the whole assistant reply. Streamed replies
// are consumed to the end before returning.
func (s *Session) Chat(ctx context.Context, messages []openai.ChatCompletionMessage, temperature float32) (string, error) {
	if s == nil || s.Client == nil {
		return "", errors.New("llm session not configured")
	}
	req := openai.ChatCompletionRequest{
		Model:       s.Model,
		Messages:    messages,
		Temperature: temperature,
	}
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, s.Timeout)
	}
	defer cancel()
	out, err := complete(callCtx, s.Client, req)
	if err != nil {
		if s.Timeout > 0 && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %w", ErrTimeout, s.Timeout, err)
		}
		return "", err
	}
	return out, nil
}

// ChatOnce is a single-turn Chat with an optional system prompt.
func (s *Session) ChatOnce(ctx context.Context, prompt, system string, temperature float32) (string, error) {
	if strings.TrimSpace(system) == "" {
		system = DefaultSystemPrompt
	}
	return s.Chat(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}, temperature)
}

func complete(ctx context.Context, c Client, req openai.ChatCompletionRequest) (string, error) {
	if st, ok := c.(Streamer); ok {
		return collect(ctx, st, req)
	}
	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

func collect(ctx context.Context, st Streamer, req openai.ChatCompletionRequest) (string, error) {
	req.Stream = true
	stream, err := st.OpenStream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()
	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		sb.WriteString(chunk.Choices[0].Delta.Content)
	}
}
