package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"cookbookindex/internal/extract"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// DefaultMaxTokens is the reply token budget when none is configured.
const DefaultMaxTokens = 1000

// Config configures the Anthropic client.
type Config struct {
	APIKey     string
	Model      string
	MaxTokens  int64
	BaseURL    string
	HTTPClient *http.Client
}

// Client is an extract.Provider backed by the Anthropic Messages API.
type Client struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewClient creates a new Anthropic client. SDK retries are disabled so that
// each extraction makes exactly one call.
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

	return &Client{
		client:    sdk.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// ContentBlock wraps doc as a document block for PDFs and an image block otherwise.
func ContentBlock(doc extract.Document) sdk.ContentBlockParamUnion {
	if doc.Kind() == extract.BlockDocument {
		return sdk.NewDocumentBlock(sdk.Base64PDFSourceParam{Data: doc.Data})
	}
	return sdk.NewImageBlockBase64(doc.MediaType, doc.Data)
}

// Complete sends doc and instruction as a single user turn and joins the text blocks of the reply.
func (c *Client) Complete(ctx context.Context, doc extract.Document, instruction string) (string, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(ContentBlock(doc), sdk.NewTextBlock(instruction)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		sb.WriteString(block.Text)
	}
	return sb.String(), nil
}
