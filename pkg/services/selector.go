package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/stickerlab/sticker-engine/pkg/repositories"
)

// SelectorService picks reply stickers from the catalog.
type SelectorService interface {
	// SelectReply returns a uniformly random sticker matching emojiCode
	// from a collection other than excludeCollection. With allowAny the
	// filters are dropped and the draw covers the whole catalog. Returns
	// apperrors.ErrNoMatch when no candidate exists; that is an expected
	// outcome, not a failure.
	SelectReply(ctx context.Context, emojiCode, excludeCollection string, allowAny bool) (string, error)
}

// selectorService implements SelectorService.
type selectorService struct {
	catalog      repositories.CatalogRepository
	queryTimeout time.Duration
	logger       *zap.Logger
}

// NewSelectorService creates a new selector service with dependencies.
func NewSelectorService(catalog repositories.CatalogRepository, queryTimeout time.Duration, logger *zap.Logger) SelectorService {
	return &selectorService{
		catalog:      catalog,
		queryTimeout: queryTimeout,
		logger:       logger,
	}
}

func (s *selectorService) SelectReply(ctx context.Context, emojiCode, excludeCollection string, allowAny bool) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if allowAny {
		return s.catalog.SelectAny(opCtx)
	}
	return s.catalog.SelectReply(opCtx, emojiCode, excludeCollection)
}

// Ensure selectorService implements SelectorService at compile time.
var _ SelectorService = (*selectorService)(nil)
