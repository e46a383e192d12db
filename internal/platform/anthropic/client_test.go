package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookbookindex/internal/extract"
)

type capturedRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content []struct {
			Type   string `json:"type"`
			Text   string `json:"text"`
			Source *struct {
				Type      string `json:"type"`
				MediaType string `json:"media_type"`
				Data      string `json:"data"`
			} `json:"source"`
		} `json:"content"`
	} `json:"messages"`
}

const messageReply = `{
	"id": "msg_01",
	"type": "message",
	"role": "assistant",
	"model": "claude-sonnet-4-20250514",
	"content": [
		{"type": "text", "text": "` + "```json\\n" + `{\"title\": \"Tomato Soup\", "},
		{"type": "text", "text": "\"ingredients\": [\"2 cans tomatoes\"]}` + "\\n```" + `"}
	],
	"stop_reason": "end_turn",
	"stop_sequence": null,
	"usage": {"input_tokens": 10, "output_tokens": 20}
}`

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest, *atomic.Int32) {
	t.Helper()

	var captured capturedRequest
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured, &hits
}

func TestClient_CompleteImage(t *testing.T) {
	srv, captured, _ := newTestServer(t, http.StatusOK, messageReply)
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})

	reply, err := c.Complete(context.Background(), extract.Document{Data: "aW1n", MediaType: "image/png"}, extract.Instruction)
	require.NoError(t, err)

	got, err := extract.Normalize(reply)
	require.NoError(t, err)
	assert.Equal(t, "Tomato Soup", got.Title)
	assert.Equal(t, []string{"2 cans tomatoes"}, got.Ingredients)

	assert.Equal(t, DefaultModel, captured.Model)
	assert.Equal(t, DefaultMaxTokens, captured.MaxTokens)
	require.Len(t, captured.Messages, 1)
	msg := captured.Messages[0]
	assert.Equal(t, "user", msg.Role)
	require.Len(t, msg.Content, 2)

	assert.Equal(t, "image", msg.Content[0].Type)
	require.NotNil(t, msg.Content[0].Source)
	assert.Equal(t, "base64", msg.Content[0].Source.Type)
	assert.Equal(t, "image/png", msg.Content[0].Source.MediaType)
	assert.Equal(t, "aW1n", msg.Content[0].Source.Data)

	assert.Equal(t, "text", msg.Content[1].Type)
	assert.Equal(t, extract.Instruction, msg.Content[1].Text)
}

func TestClient_CompletePDF(t *testing.T) {
	srv, captured, _ := newTestServer(t, http.StatusOK, messageReply)
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "claude-test", MaxTokens: 50})

	_, err := c.Complete(context.Background(), extract.Document{Data: "cGRm", MediaType: extract.MediaTypePDF}, extract.Instruction)
	require.NoError(t, err)

	assert.Equal(t, "claude-test", captured.Model)
	assert.Equal(t, 50, captured.MaxTokens)
	block := captured.Messages[0].Content[0]
	assert.Equal(t, "document", block.Type)
	require.NotNil(t, block.Source)
	assert.Equal(t, "application/pdf", block.Source.MediaType)
	assert.Equal(t, "cGRm", block.Source.Data)
}

func TestClient_CompleteErrorIsNotRetried(t *testing.T) {
	srv, _, hits := newTestServer(t, http.StatusInternalServerError,
		`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`)
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), extract.Document{Data: "aW1n", MediaType: "image/jpeg"}, extract.Instruction)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}
