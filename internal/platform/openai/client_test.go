package openai

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
			Type     string `json:"type"`
			Text     string `json:"text"`
			ImageURL *struct {
				URL string `json:"url"`
			} `json:"image_url"`
			File *struct {
				Filename string `json:"filename"`
				FileData string `json:"file_data"`
			} `json:"file"`
		} `json:"content"`
	} `json:"messages"`
}

const completionReply = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o",
	"choices": [{
		"index": 0,
		"finish_reason": "stop",
		"logprobs": null,
		"message": {"role": "assistant", "refusal": null, "content": "{\"title\":\"Soup\",\"ingredients\":[\"broth\"]}"}
	}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func newTestServer(t *testing.T, status int, body string) (*Client, *capturedRequest, *atomic.Int32) {
	t.Helper()

	var captured capturedRequest
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1/", HTTPClient: srv.Client()})
	return c, &captured, &hits
}

func TestClient_CompleteImage(t *testing.T) {
	c, captured, _ := newTestServer(t, http.StatusOK, completionReply)

	reply, err := c.Complete(context.Background(), extract.Document{Data: "aW1n", MediaType: "image/png"}, extract.Instruction)
	require.NoError(t, err)

	result, err := extract.Normalize(reply)
	require.NoError(t, err)
	assert.Equal(t, "Soup", result.Title)

	assert.Equal(t, DefaultModel, captured.Model)
	assert.Equal(t, DefaultMaxTokens, captured.MaxTokens)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	require.Len(t, captured.Messages[0].Content, 2)
	assert.Equal(t, "image_url", captured.Messages[0].Content[0].Type)
	require.NotNil(t, captured.Messages[0].Content[0].ImageURL)
	assert.Equal(t, "data:image/png;base64,aW1n", captured.Messages[0].Content[0].ImageURL.URL)
	assert.Equal(t, "text", captured.Messages[0].Content[1].Type)
	assert.Equal(t, extract.Instruction, captured.Messages[0].Content[1].Text)
}

func TestClient_CompletePDF(t *testing.T) {
	c, captured, _ := newTestServer(t, http.StatusOK, completionReply)

	_, err := c.Complete(context.Background(), extract.Document{Data: "cGRm", MediaType: extract.MediaTypePDF}, "x")
	require.NoError(t, err)

	part := captured.Messages[0].Content[0]
	assert.Equal(t, "file", part.Type)
	require.NotNil(t, part.File)
	assert.Equal(t, "data:application/pdf;base64,cGRm", part.File.FileData)
}

func TestClient_ErrorIsNotRetried(t *testing.T) {
	c, _, hits := newTestServer(t, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`)

	_, err := c.Complete(context.Background(), extract.Document{Data: "aW1n", MediaType: "image/jpeg"}, "x")
	assert.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_NoChoices(t *testing.T) {
	c, _, _ := newTestServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[]}`)

	_, err := c.Complete(context.Background(), extract.Document{Data: "aW1n", MediaType: "image/jpeg"}, "x")
	assert.ErrorContains(t, err, "no choices")
}
