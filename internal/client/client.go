// Package client talks to the cookbook server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"cookbookindex/internal/extract"
	"cookbookindex/internal/recipe"
)

// DefaultServer is used when no server URL is configured.
const DefaultServer = "http://localhost:8080"

// ErrExtraction is returned when the extraction endpoint answers with a failure status.
var ErrExtraction = errors.New("extraction request failed")

// StatusError is a non-2xx reply that carried no more specific meaning.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client is a typed wrapper around the server's JSON API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for baseURL. A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultServer
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Extract posts doc to /api/extract. On a failure status the returned result
// is the empty one and the error wraps ErrExtraction.
func (c *Client) Extract(ctx context.Context, doc extract.Document) (extract.Result, error) {
	var result extract.Result
	resp, err := c.do(ctx, http.MethodPost, "/api/extract", doc)
	if err != nil {
		return extract.Empty(), err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return extract.Empty(), fmt.Errorf("%w: status %d", ErrExtraction, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return extract.Empty(), fmt.Errorf("decode extraction result: %w", err)
	}
	if result.Ingredients == nil {
		result.Ingredients = []string{}
	}
	return result, nil
}

// CreateRecipe saves a recipe. Server-side validation failures come back as
// *recipe.ValidationError.
func (c *Client) CreateRecipe(ctx context.Context, in recipe.NewRecipe) (*recipe.Recipe, error) {
	var out recipe.Recipe
	if err := c.call(ctx, http.MethodPost, "/api/recipes", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRecipes returns the recipes matching f, newest first.
func (c *Client) ListRecipes(ctx context.Context, f recipe.Filter) ([]recipe.Summary, error) {
	q := url.Values{}
	if f.Term != "" {
		q.Set("q", f.Term)
	}
	if f.Cookbook != "" {
		q.Set("cookbook", f.Cookbook)
	}
	path := "/api/recipes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	out := []recipe.Summary{}
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRecipe deletes a recipe and its reviews.
func (c *Client) DeleteRecipe(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/recipes/"+url.PathEscape(id), nil, nil)
}

// Cookbooks returns the distinct cookbook names.
func (c *Client) Cookbooks(ctx context.Context) ([]string, error) {
	out := []string{}
	if err := c.call(ctx, http.MethodGet, "/api/cookbooks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListReviews returns one recipe's reviews, oldest first.
func (c *Client) ListReviews(ctx context.Context, recipeID string) ([]*recipe.Review, error) {
	out := []*recipe.Review{}
	if err := c.call(ctx, http.MethodGet, "/api/recipes/"+url.PathEscape(recipeID)+"/reviews", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAllReviews returns every review, oldest first.
func (c *Client) ListAllReviews(ctx context.Context) ([]*recipe.Review, error) {
	out := []*recipe.Review{}
	if err := c.call(ctx, http.MethodGet, "/api/reviews", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateReview adds a review to a recipe.
func (c *Client) CreateReview(ctx context.Context, recipeID string, in recipe.NewReview) (*recipe.Review, error) {
	var out recipe.Review
	if err := c.call(ctx, http.MethodPost, "/api/recipes/"+url.PathEscape(recipeID)+"/reviews", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteReview deletes a review.
func (c *Client) DeleteReview(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/reviews/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// call sends a JSON request and decodes a 2xx reply into out, if out is non-nil.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response body: %w", err)
		}
		return nil
	}
	return decodeError(resp)
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	switch {
	case resp.StatusCode == http.StatusBadRequest && payload.Field != "":
		return &recipe.ValidationError{Field: payload.Field, Message: payload.Error}
	case resp.StatusCode == http.StatusNotFound:
		return recipe.ErrNotFound
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: payload.Error}
}
