package genclient

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = "You are a social media copywriter. " +
	"Reply with the post text only, no commentary."

// OpenAI implements Client using the official openai-go SDK (chat
// completions).
type OpenAI struct {
	model string
	opts  []option.RequestOption
}

var _ Client = (*OpenAI)(nil)

// Settings configures the OpenAI client.
type Settings struct {
	Model   string
	APIKey  string
	BaseURL string
}

// NewOpenAI validates settings and builds a client.
func NewOpenAI(cfg Settings) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("genclient: api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("genclient: model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{model: cfg.Model, opts: opts}, nil
}

// Generate requests a draft from the backend and returns its content string.
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	client := openai.NewClient(o.opts...)

	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
	}
	if req.Context != "" {
		msgs = append(msgs, openai.SystemMessage("Recent conversation:\n"+req.Context))
	}
	msgs = append(msgs, openai.UserMessage(req.prompt()))

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: msgs,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("genclient: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
