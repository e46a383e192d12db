// Package openai sends extraction requests to the OpenAI Chat Completions API
// or any server that speaks it.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"cookbookindex/internal/extract"
)

const (
	DefaultModel     = "gpt-4o"
	DefaultMaxTokens = 1000
)

// Config configures the client. Empty fields fall back to the defaults.
type Config struct {
	APIKey     string
	Model      string
	MaxTokens  int64
	BaseURL    string
	HTTPClient *http.Client
}

// Client is an extract.Provider backed by Chat Completions.
type Client struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewClient creates a client with SDK retries disabled.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{client: sdk.NewClient(opts...), model: cfg.Model, maxTokens: cfg.MaxTokens}
}

// ContentPart wraps doc as a file part for PDFs and an image part otherwise.
func ContentPart(doc extract.Document) sdk.ChatCompletionContentPartUnionParam {
	dataURL := "data:" + doc.MediaType + ";base64," + doc.Data
	if doc.Kind() == extract.BlockDocument {
		return sdk.FileContentPart(sdk.ChatCompletionContentPartFileFileParam{
			Filename: sdk.String("page.pdf"),
			FileData: sdk.String(dataURL),
		})
	}
	return sdk.ImageContentPart(sdk.ChatCompletionContentPartImageImageURLParam{URL: dataURL})
}

// Complete sends doc and instruction as one user message and returns the first choice.
func (c *Client) Complete(ctx context.Context, doc extract.Document, instruction string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model:     sdk.ChatModel(c.model),
		MaxTokens: sdk.Int(c.maxTokens),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage([]sdk.ChatCompletionContentPartUnionParam{
				ContentPart(doc),
				sdk.TextContentPart(instruction),
			}),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completions: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completions: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
