package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrProvider wraps any failure of the outbound model call.
	ErrProvider = errors.New("provider call failed")
	// ErrInvalidDocument is returned for a document without data.
	ErrInvalidDocument = errors.New("document has no data")
)

// Provider sends one document and an instruction to a multimodal model and
// returns the concatenated text of its reply.
type Provider interface {
	Complete(ctx context.Context, doc Document, instruction string) (string, error)
}

// Gateway turns uploaded documents into recipe results.
type Gateway struct {
	provider Provider
	logger   *zap.Logger
}

// NewGateway creates a Gateway backed by provider.
func NewGateway(provider Provider, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{provider: provider, logger: logger}
}

// Extract makes exactly one provider call for doc. The returned Result is
// always usable: on any failure it is Empty() and the error says why.
func (g *Gateway) Extract(ctx context.Context, doc Document) (Result, error) {
	start := time.Now()
	if doc.MediaType == "" {
		doc.MediaType = DefaultMediaType
	}
	log := g.logger.With(
		zap.String("media_type", doc.MediaType),
		zap.String("block", string(doc.Kind())),
		zap.Int("data_len", len(doc.Data)),
	)

	if doc.Data == "" {
		log.Warn("extract.invalid_document")
		return Empty(), ErrInvalidDocument
	}

	reply, err := g.provider.Complete(ctx, doc, Instruction)
	if err != nil {
		log.Error("extract.provider_error", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return Empty(), fmt.Errorf("%w: %w", ErrProvider, err)
	}

	result, err := Normalize(reply)
	if err != nil {
		log.Error("extract.malformed_reply",
			zap.Error(err),
			zap.String("reply", truncate(reply, 500)),
			zap.Duration("elapsed", time.Since(start)),
		)
		return Empty(), err
	}

	log.Info("extract.ok",
		zap.Bool("found", result.Found()),
		zap.String("title", result.Title),
		zap.Int("ingredients", len(result.Ingredients)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
