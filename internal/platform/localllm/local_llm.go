package localllm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"cookbookindex/internal/extract"
)

// Defaults for a locally hosted OpenAI-compatible server.
const (
	DefaultURL   = "http://localhost:1234/v1/chat/completions"
	DefaultModel = "gemma-3-12b-it:2"
)

// Client represents a client for the local LLM.
type Client struct {
	httpClient *http.Client
	apiURL     string
	model      string
	maxTokens  int
}

// NewClient creates a new client for the local LLM. Empty arguments fall back to the defaults.
func NewClient(apiURL, model string, maxTokens int, httpClient *http.Client) *Client {
	if apiURL == "" {
		apiURL = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient, apiURL: apiURL, model: model, maxTokens: maxTokens}
}

// Request represents the request body for the local LLM.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Message represents a message in the request.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Content represents the content of a message.
type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
	File     *File     `json:"file,omitempty"`
}

// ImageURL represents the image URL in the content.
type ImageURL struct {
	URL string `json:"url"`
}

// File carries an inline document as a data URL.
type File struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

// Response represents the response from the local LLM.
type Response struct {
	Choices []Choice `json:"choices"`
}

// Choice represents a choice in the response.
type Choice struct {
	Message ResponseMessage `json:"message"`
}

// ResponseMessage represents a message in the response.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DocumentContent wraps doc as a file part for PDFs and an image_url part otherwise.
func DocumentContent(doc extract.Document) Content {
	dataURL := "data:" + doc.MediaType + ";base64," + doc.Data
	if doc.Kind() == extract.BlockDocument {
		return Content{Type: "file", File: &File{Filename: "page.pdf", FileData: dataURL}}
	}
	return Content{Type: "image_url", ImageURL: &ImageURL{URL: dataURL}}
}

// Complete sends a request to the local LLM and returns the reply text.
func (c *Client) Complete(ctx context.Context, doc extract.Document, instruction string) (string, error) {
	reqBody := Request{
		Model: c.model,
		Messages: []Message{
			{
				Role: "user",
				Content: []Content{
					DocumentContent(doc),
					{Type: "text", Text: instruction},
				},
			},
		},
		Temperature: 0,
		MaxTokens:   c.maxTokens,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received non-OK status code: %d", resp.StatusCode)
	}

	var llmResp Response
	if err := json.NewDecoder(resp.Body).Decode(&llmResp); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}
	if len(llmResp.Choices) == 0 {
		return "", fmt.Errorf("no content found in response")
	}

	return llmResp.Choices[0].Message.Content, nil
}
