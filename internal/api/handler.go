package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cookbookindex/internal/capture"
	"cookbookindex/internal/extract"
	"cookbookindex/internal/metrics"
	"cookbookindex/internal/recipe"
)

// storeTimeout bounds every catalog database call.
const storeTimeout = 5 * time.Second

// Extractor defines the interface for turning an encoded page into a recipe draft.
type Extractor interface {
	Extract(ctx context.Context, doc extract.Document) (extract.Result, error)
}

// Handler handles HTTP requests.
type Handler struct {
	Extractor Extractor
	Store     recipe.Store
	Logger    *zap.Logger
	// Metrics is optional.
	Metrics *metrics.Metrics
	// ExtractTimeout bounds one extraction. Zero leaves only the request context.
	ExtractTimeout time.Duration
}

// NewHandler creates a new Handler.
func NewHandler(extractor Extractor, store recipe.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Extractor: extractor, Store: store, Logger: logger}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	api.POST("/extract", h.Extract)
	api.POST("/extract/upload", h.Upload)

	api.GET("/recipes", h.ListRecipes)
	api.POST("/recipes", h.CreateRecipe)
	api.DELETE("/recipes/:id", h.DeleteRecipe)
	api.GET("/recipes/:id/reviews", h.ListRecipeReviews)
	api.POST("/recipes/:id/reviews", h.CreateReview)

	api.GET("/cookbooks", h.ListCookbooks)

	api.GET("/reviews", h.ListReviews)
	api.DELETE("/reviews/:id", h.DeleteReview)
}

// Health reports that the server is up.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Extract handles POST /api/extract. The reply is always {title, ingredients}:
// 200 when the provider answered, 500 with the empty result otherwise.
func (h *Handler) Extract(c *gin.Context) {
	var doc extract.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		h.Logger.Warn("extract: invalid request body", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, extract.Empty())
		return
	}
	h.extract(c, doc)
}

// Upload handles multipart page uploads and extracts them like Extract.
func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "get form err: " + err.Error()})
		return
	}

	allowedExtensions := map[string]bool{
		".jpeg": true,
		".jpg":  true,
		".png":  true,
		".pdf":  true,
	}
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[extension] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type. Only JPEG, PNG and PDF files are allowed."})
		return
	}

	src, err := file.Open()
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, extract.Empty())
		return
	}
	defer src.Close()

	doc, err := capture.Encode(src, capture.MediaTypeForPath(file.Filename), capture.Options{})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, extract.Empty())
		return
	}
	h.extract(c, doc)
}

func (h *Handler) extract(c *gin.Context, doc extract.Document) {
	ctx := c.Request.Context()
	if h.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.ExtractTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := h.Extractor.Extract(ctx, doc)
	h.Metrics.ObserveExtraction(outcome(result, err), string(doc.Kind()), time.Since(start))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, extract.Empty())
		return
	}
	c.JSON(http.StatusOK, result)
}

func outcome(result extract.Result, err error) string {
	switch {
	case errors.Is(err, extract.ErrProvider):
		return metrics.OutcomeProviderError
	case errors.Is(err, extract.ErrMalformedReply):
		return metrics.OutcomeMalformedReply
	case errors.Is(err, extract.ErrInvalidDocument):
		return metrics.OutcomeInvalidDocument
	case err != nil:
		return metrics.OutcomeError
	case !result.Found():
		return metrics.OutcomeNoRecipe
	}
	return metrics.OutcomeFound
}

// ListRecipes handles GET /api/recipes?q=&cookbook=.
func (h *Handler) ListRecipes(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	var recipes []*recipe.Recipe
	var reviews []*recipe.Review
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		recipes, err = h.Store.ListRecipes(gctx)
		return err
	})
	g.Go(func() (err error) {
		reviews, err = h.Store.ListReviews(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.storeError(c, err)
		return
	}

	filter := recipe.Filter{Term: strings.TrimSpace(c.Query("q")), Cookbook: c.Query("cookbook")}
	c.JSON(http.StatusOK, recipe.Summarize(recipe.Search(recipes, filter), reviews))
}

// CreateRecipe handles POST /api/recipes.
func (h *Handler) CreateRecipe(c *gin.Context) {
	var in recipe.NewRecipe
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	in = in.Normalize()
	if !h.validate(c, in.Validate()) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	created, err := h.Store.CreateRecipe(ctx, in)
	if err != nil {
		h.storeError(c, err)
		return
	}
	h.Logger.Info("recipe created", zap.String("id", created.ID), zap.String("cookbook", created.Cookbook))
	c.JSON(http.StatusCreated, created)
}

// DeleteRecipe handles DELETE /api/recipes/:id. Its reviews go with it.
func (h *Handler) DeleteRecipe(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.Store.DeleteRecipe(ctx, id); err != nil {
		h.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCookbooks handles GET /api/cookbooks.
func (h *Handler) ListCookbooks(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	recipes, err := h.Store.ListRecipes(ctx)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe.Cookbooks(recipes))
}

// ListReviews handles GET /api/reviews.
func (h *Handler) ListReviews(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	reviews, err := h.Store.ListReviews(ctx)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// ListRecipeReviews handles GET /api/recipes/:id/reviews.
func (h *Handler) ListRecipeReviews(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	reviews, err := h.Store.ListReviewsForRecipe(ctx, id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// CreateReview handles POST /api/recipes/:id/reviews.
func (h *Handler) CreateReview(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var in recipe.NewReview
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	in = in.Normalize()
	if !h.validate(c, in.Validate()) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	created, err := h.Store.CreateReview(ctx, id, in)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeleteReview handles DELETE /api/reviews/:id.
func (h *Handler) DeleteReview(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.Store.DeleteReview(ctx, id); err != nil {
		h.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func idParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if err := uuid.Validate(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return "", false
	}
	return id, true
}

func (h *Handler) validate(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}
	var verr *recipe.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, verr)
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	return false
}

func (h *Handler) storeError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, recipe.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "database query timed out"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
	}
}
