package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"cookbookindex/internal/extract"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

// Client is an extract.Provider backed by the Gemini API.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, apiKey, model string, maxTokens int32) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultModel
	}
	m := client.GenerativeModel(model)
	if maxTokens > 0 {
		m.SetMaxOutputTokens(maxTokens)
	}
	return &Client{client: client, model: m}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Parts builds the prompt for doc: the raw document as an inline blob
// carrying its media type, followed by the instruction.
func Parts(doc extract.Document, instruction string) ([]genai.Part, error) {
	data, err := base64.StdEncoding.DecodeString(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return []genai.Part{
		genai.Blob{MIMEType: doc.MediaType, Data: data},
		genai.Text(instruction),
	}, nil
}

// Complete sends doc to Gemini and joins the text parts of the first candidate.
func (c *Client) Complete(ctx context.Context, doc extract.Document, instruction string) (string, error) {
	prompt, err := Parts(doc, instruction)
	if err != nil {
		return "", err
	}

	resp, err := c.model.GenerateContent(ctx, prompt...)
	if err != nil {
		return "", err
	}
	return ReplyText(resp)
}

// ReplyText concatenates the text parts of the first candidate.
func ReplyText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}
