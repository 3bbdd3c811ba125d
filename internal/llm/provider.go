package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the minimal interface needed by core logic to call a chat model.
// It mirrors the CreateChatCompletion method of go-openai so that any
// OpenAI-compatible or local backend can be adapted.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Stream yields incremental completion chunks until io.EOF.
type Stream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close()
}

// Streamer is an optional capability for providers that can stream. Callers
// detect it with a type assertion.
type Streamer interface {
	OpenStream(ctx context.Context, request openai.ChatCompletionRequest) (Stream, error)
}

// ModelLister is an optional capability that allows listing available models.
type ModelLister interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// OpenAIProvider adapts *openai.Client to the Client, Streamer and
// ModelLister interfaces.
type OpenAIProvider struct {
	Inner *openai.Client
}

func (p *OpenAIProvider) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return p.Inner.CreateChatCompletion(ctx, request)
}

func (p *OpenAIProvider) OpenStream(ctx context.Context, request openai.ChatCompletionRequest) (Stream, error) {
	s, err := p.Inner.CreateChatCompletionStream(ctx, request)
	if err != nil {
		return nil, err
	}
	return &openAIStream{inner: s}, nil
}

func (p *OpenAIProvider) ListModels(ctx context.Context) (openai.ModelsList, error) {
	return p.Inner.ListModels(ctx)
}

type openAIStream struct {
	inner *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	return s.inner.Recv()
}

func (s *openAIStream) Close() {
	s.inner.Close()
}
