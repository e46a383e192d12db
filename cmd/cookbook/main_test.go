package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cookbookindex/internal/api"
	"cookbookindex/internal/extract"
	"cookbookindex/internal/recipe"
)

type mockExtractor struct {
	result extract.Result
	docs   []extract.Document
}

func (m *mockExtractor) Extract(_ context.Context, doc extract.Document) (extract.Result, error) {
	m.docs = append(m.docs, doc)
	return m.result, nil
}

type harness struct {
	server     string
	familyFile string
	store      *recipe.MemoryStore
	extractor  *mockExtractor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{
		familyFile: filepath.Join(t.TempDir(), "family.json"),
		store:      recipe.NewMemoryStore(),
		extractor:  &mockExtractor{result: extract.Empty()},
	}
	r := gin.New()
	api.NewHandler(h.extractor, h.store, zap.NewNop()).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	h.server = srv.URL
	return h
}

// run executes the CLI with args and stdin, returning its output.
func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out)
	cmd.SetArgs(append([]string{"--server", h.server, "--family-file", h.familyFile}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) recipes(t *testing.T) []*recipe.Recipe {
	t.Helper()
	recipes, err := h.store.ListRecipes(context.Background())
	require.NoError(t, err)
	return recipes
}

func TestAddManual_Flags(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "add", "manual",
		"--title", "Pancakes",
		"--ingredients", `2 eggs\n\n1 cup flour\n  `,
		"--cookbook", "Joy of Cooking",
		"--page", "12",
	)
	require.NoError(t, err)
	assert.Contains(t, out, `Saved "Pancakes"`)

	recipes := h.recipes(t)
	require.Len(t, recipes, 1)
	assert.Equal(t, []string{"2 eggs", "1 cup flour"}, recipes[0].Ingredients)
}

func TestAddManual_Prompts(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "Bread\nflour\nwater\n\nBakery\n7\n", "add", "manual")
	require.NoError(t, err)

	recipes := h.recipes(t)
	require.Len(t, recipes, 1)
	assert.Equal(t, "Bread", recipes[0].Title)
	assert.Equal(t, []string{"flour", "water"}, recipes[0].Ingredients)
	assert.Equal(t, "Bakery", recipes[0].Cookbook)
	assert.Equal(t, "7", recipes[0].Page)
}

func TestAddManual_MissingCookbookIsRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "add", "manual", "--title", "Soup", "--ingredients", "broth", "--page", "12")
	require.Error(t, err)
	var verr *recipe.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cookbook", verr.Field)
	assert.Empty(t, h.recipes(t))
}

func TestAddPhoto(t *testing.T) {
	h := newHarness(t)
	h.extractor.result = extract.Result{Title: "Tomato Soup", Ingredients: []string{"2 cans tomatoes", "1 onion"}}

	path := filepath.Join(t.TempDir(), "page.jpg")
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o600))

	out, err := h.run(t, "", "add", "photo", path, "--cookbook", "Joy of Cooking", "--page", "88")
	require.NoError(t, err)
	assert.Contains(t, out, "Found: Tomato Soup")

	require.Len(t, h.extractor.docs, 1)
	assert.Equal(t, "image/jpeg", h.extractor.docs[0].MediaType)

	recipes := h.recipes(t)
	require.Len(t, recipes, 1)
	assert.Equal(t, "88", recipes[0].Page)
	assert.Equal(t, []string{"2 cans tomatoes", "1 onion"}, recipes[0].Ingredients)
}

func TestAddPhoto_NoRecipe(t *testing.T) {
	h := newHarness(t)

	path := filepath.Join(t.TempDir(), "blurry.png")
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o600))

	_, err := h.run(t, "", "add", "photo", path, "--cookbook", "Joy", "--page", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manually")
	assert.Empty(t, h.recipes(t))
}

func TestSearchAndCookbooks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.store.CreateRecipe(ctx, recipe.NewRecipe{Title: "Omelette", Cookbook: "Joy", Page: "3", Ingredients: []string{"eggs"}})
	require.NoError(t, err)
	_, err = h.store.CreateRecipe(ctx, recipe.NewRecipe{Title: "Bread", Cookbook: "Bakery", Page: "9"})
	require.NoError(t, err)

	out, err := h.run(t, "", "search", "EGG")
	require.NoError(t, err)
	assert.Contains(t, out, "Omelette")
	assert.Contains(t, out, "[egg]s")
	assert.NotContains(t, out, "Bread")

	out, err = h.run(t, "", "search", "--cookbook", "Nowhere")
	require.NoError(t, err)
	assert.Contains(t, out, "No recipes found.")

	out, err = h.run(t, "", "cookbooks")
	require.NoError(t, err)
	assert.Equal(t, "Bakery\nJoy\n", out)
}

func TestFamilyAndReviews(t *testing.T) {
	h := newHarness(t)
	soup, err := h.store.CreateRecipe(context.Background(), recipe.NewRecipe{Title: "Soup", Cookbook: "Joy", Page: "1"})
	require.NoError(t, err)

	_, err = h.run(t, "", "review", "add", soup.ID, "--rating", "4")
	assert.ErrorIs(t, err, errNoActiveMember)

	_, err = h.run(t, "", "family", "add", "Mom")
	require.NoError(t, err)
	_, err = h.run(t, "", "family", "add", "Sam")
	require.NoError(t, err)

	out, err := h.run(t, "", "family", "list")
	require.NoError(t, err)
	assert.Equal(t, "* Mom\n  Sam\n", out)

	_, err = h.run(t, "", "review", "add", soup.ID, "--rating", "9")
	require.Error(t, err)

	_, err = h.run(t, "", "review", "add", soup.ID, "--rating", "5", "--comment", "lovely")
	require.NoError(t, err)

	reviews, err := h.store.ListReviews(context.Background())
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Mom", reviews[0].Author)

	out, err = h.run(t, "", "review", "list", soup.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Mom *****")
	assert.Contains(t, out, "lovely")

	_, err = h.run(t, "", "family", "use", "Sam")
	require.NoError(t, err)
	_, err = h.run(t, "", "review", "delete", reviews[0].ID)
	assert.ErrorIs(t, err, errNotAuthor)

	_, err = h.run(t, "", "family", "use", "Mom")
	require.NoError(t, err)
	_, err = h.run(t, "", "review", "delete", reviews[0].ID)
	require.NoError(t, err)

	reviews, err = h.store.ListReviews(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestDelete(t *testing.T) {
	h := newHarness(t)
	soup, err := h.store.CreateRecipe(context.Background(), recipe.NewRecipe{Title: "Soup", Cookbook: "Joy", Page: "1"})
	require.NoError(t, err)

	_, err = h.run(t, "", "delete", soup.ID)
	require.NoError(t, err)
	assert.Empty(t, h.recipes(t))

	_, err = h.run(t, "", "delete", soup.ID)
	assert.ErrorIs(t, err, recipe.ErrNotFound)
}

func TestHighlight(t *testing.T) {
	tests := []struct {
		name string
		text string
		term string
		want string
	}{
		{name: "no term", text: "Tomato Soup", term: "", want: "Tomato Soup"},
		{name: "case insensitive", text: "Tomato Soup", term: "soup", want: "Tomato [Soup]"},
		{name: "every match", text: "tomato, Tomato paste", term: "TOMATO", want: "[tomato], [Tomato] paste"},
		{name: "regexp characters are literal", text: "1 cup (packed) sugar", term: "(packed)", want: "1 cup [(packed)] sugar"},
		{name: "no match", text: "flour", term: "egg", want: "flour"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, highlight(tt.text, tt.term))
		})
	}
}

func TestRequestContext(t *testing.T) {
	root := newRootCmd(strings.NewReader(""), &bytes.Buffer{})
	flag := root.PersistentFlags().Lookup("timeout")
	require.NotNil(t, flag)
	assert.Equal(t, "0s", flag.DefValue)

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	ctx, cancel := (&app{}).context(cmd)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok, "extraction must not get a deadline by default")

	ctx, cancel = (&app{timeout: time.Minute}).context(cmd)
	defer cancel()
	_, ok = ctx.Deadline()
	assert.True(t, ok)
}
