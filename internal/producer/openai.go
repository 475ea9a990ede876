package producer

import (
	"context"
	"io"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAIConfig holds configuration for the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string // Optional: any OpenAI-compatible endpoint
	DefaultModel string
	Timeout      time.Duration
	RateLimit    int // Requests per minute
}

// OpenAIClient implements Producer over the official SDK's streaming
// chat completions. It yields narration only: OpenAI-compatible
// endpoints surface no provenance metadata, so citation extraction
// falls back to pattern matching for documents produced through it.
type OpenAIClient struct {
	client       openai.Client
	defaultModel string
	limiter      *RateLimiter
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openAIDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		client:       openai.NewClient(opts...),
		defaultModel: cfg.DefaultModel,
		limiter:      NewRateLimiter(cfg.RateLimit),
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string { return OpenAIName }

// Generate issues one streaming chat completion request.
func (c *OpenAIClient) Generate(ctx context.Context, req *Request) (Stream, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Parts)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, p := range req.Parts {
		if p.Role == "model" {
			messages = append(messages, openai.AssistantMessage(p.Text))
		} else {
			messages = append(messages, openai.UserMessage(p.Text))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	return &openaiStream{stream: stream}, nil
}

// openaiStream adapts the SDK's SSE stream to the Stream interface.
type openaiStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
}

// Recv returns the next narration fragment, or io.EOF at stream end.
func (s *openaiStream) Recv() (Fragment, error) {
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		text := chunk.Choices[0].Delta.Content
		if text == "" {
			continue
		}
		return Fragment{Kind: KindNarration, Text: text}, nil
	}
	if err := s.stream.Err(); err != nil {
		return Fragment{}, &TransientError{Message: err.Error()}
	}
	return Fragment{}, io.EOF
}

// Close releases the underlying stream.
func (s *openaiStream) Close() error {
	return s.stream.Close()
}
