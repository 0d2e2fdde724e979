package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stickerlab/sticker-engine/pkg/apperrors"
	"github.com/stickerlab/sticker-engine/pkg/fingerprint"
	"github.com/stickerlab/sticker-engine/pkg/models"
)

// DefaultLocale applies when the transport delivers no user locale.
const DefaultLocale = "en"

// Template keys handed to the templating collaborator. The engine never
// resolves templates itself.
const (
	TemplateNoAnswer         = "no_answer"
	TemplateNothingAvailable = "nothing_available"
)

// IncomingMessage is a normalized inbound sticker event from the
// transport. Locale is resolved per message; the engine holds no shared
// locale state across requests.
type IncomingMessage struct {
	UserID  int64
	ChatID  int64
	Locale  string
	Sticker models.IncomingSticker
}

// ReplyDecision tells the transport what to send back. When StickerID is
// empty, NothingAvailable is set and only the templated text goes out.
// TemplateKey is non-empty whenever a templated message should accompany
// (or replace) the sticker.
type ReplyDecision struct {
	StickerID        string `json:"sticker_id,omitempty"`
	Fallback         bool   `json:"fallback"`
	NothingAvailable bool   `json:"nothing_available"`
	TemplateKey      string `json:"template_key,omitempty"`
	Locale           string `json:"locale"`
}

// ReplyEngine orchestrates one inbound sticker end to end: user
// bookkeeping, pack ingestion, reply selection with fallback, and usage
// counters. Counter and ingestion failures are logged and skipped; they
// never cost the user a reply.
type ReplyEngine interface {
	HandleSticker(ctx context.Context, msg IncomingMessage) (*ReplyDecision, error)
	// HandleCommand records a command interaction (e.g. /start, /help).
	HandleCommand(ctx context.Context, userID int64)
	// HandleOther records a non-sticker, non-command message.
	HandleOther(ctx context.Context, userID int64)
}

// replyEngine implements ReplyEngine.
type replyEngine struct {
	ingest   IngestService
	selector SelectorService
	usage    UsageService
	fetcher  CollectionFetcher
	logger   *zap.Logger
}

// NewReplyEngine creates a new reply engine with dependencies.
func NewReplyEngine(
	ingest IngestService,
	selector SelectorService,
	usage UsageService,
	fetcher CollectionFetcher,
	logger *zap.Logger,
) ReplyEngine {
	return &replyEngine{
		ingest:   ingest,
		selector: selector,
		usage:    usage,
		fetcher:  fetcher,
		logger:   logger,
	}
}

func (e *replyEngine) HandleSticker(ctx context.Context, msg IncomingMessage) (*ReplyDecision, error) {
	locale := msg.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	logger := e.logger.With(
		zap.String("event_id", uuid.NewString()),
		zap.Int64("user_id", msg.UserID),
	)

	if err := e.usage.EnsureUser(ctx, msg.UserID); err != nil {
		logger.Warn("Failed to ensure user row", zap.Error(err))
	}

	fp := fingerprint.FromSticker(msg.Sticker)

	// Pull the whole sibling set the first time this pack shows up. A
	// failed ingestion only narrows the candidate pool; the reply still
	// goes out.
	if _, err := e.ingest.IngestCollectionOnce(ctx, fp.CollectionID, e.fetcher); err != nil {
		logger.Warn("Failed to ingest collection",
			zap.String("collection_id", fp.CollectionID),
			zap.Error(err))
	}

	decision := e.selectWithFallback(ctx, logger, fp)
	decision.Locale = locale

	if decision.StickerID != "" {
		// A failed stats increment must never prevent the reply.
		if err := e.usage.RecordEvent(ctx, msg.UserID, models.EventStickerSent); err != nil {
			logger.Warn("Failed to record sticker event", zap.Error(err))
		}
		logger.Info("Selected reply sticker",
			zap.String("emoji_code", fp.EmojiCode),
			zap.Bool("fallback", decision.Fallback))
	} else {
		logger.Info("No reply sticker available", zap.String("emoji_code", fp.EmojiCode))
	}

	return decision, nil
}

// selectWithFallback walks the selection chain: filtered draw first, then
// a catalog-wide draw. Storage failures degrade to "no match" at each
// step instead of failing the handler for this one event.
func (e *replyEngine) selectWithFallback(ctx context.Context, logger *zap.Logger, fp models.Fingerprint) *ReplyDecision {
	id, err := e.selector.SelectReply(ctx, fp.EmojiCode, fp.CollectionID, false)
	if err == nil {
		return &ReplyDecision{StickerID: id}
	}
	if !errors.Is(err, apperrors.ErrNoMatch) {
		logger.Warn("Filtered selection failed, degrading to fallback", zap.Error(err))
	}

	id, err = e.selector.SelectReply(ctx, fp.EmojiCode, fp.CollectionID, true)
	if err == nil {
		return &ReplyDecision{StickerID: id, Fallback: true, TemplateKey: TemplateNoAnswer}
	}
	if !errors.Is(err, apperrors.ErrNoMatch) {
		logger.Warn("Fallback selection failed", zap.Error(err))
	}

	return &ReplyDecision{NothingAvailable: true, TemplateKey: TemplateNothingAvailable}
}

func (e *replyEngine) HandleCommand(ctx context.Context, userID int64) {
	e.recordInteraction(ctx, userID, models.EventCommand)
}

func (e *replyEngine) HandleOther(ctx context.Context, userID int64) {
	e.recordInteraction(ctx, userID, models.EventOtherMessage)
}

func (e *replyEngine) recordInteraction(ctx context.Context, userID int64, kind models.EventKind) {
	if err := e.usage.EnsureUser(ctx, userID); err != nil {
		e.logger.Warn("Failed to ensure user row", zap.Int64("user_id", userID), zap.Error(err))
	}
	if err := e.usage.RecordEvent(ctx, userID, kind); err != nil {
		e.logger.Warn("Failed to record event",
			zap.Int64("user_id", userID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

// Ensure replyEngine implements ReplyEngine at compile time.
var _ ReplyEngine = (*replyEngine)(nil)
