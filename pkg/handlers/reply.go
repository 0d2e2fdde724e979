package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/stickerlab/sticker-engine/pkg/models"
	"github.com/stickerlab/sticker-engine/pkg/services"
)

// ReplyHandler exposes the reply engine to the transport adapter. The
// adapter normalizes platform messages (webhook updates, long-poll
// events) into these requests and carries the decision back out.
type ReplyHandler struct {
	engine services.ReplyEngine
	logger *zap.Logger
}

// NewReplyHandler creates a new ReplyHandler.
func NewReplyHandler(engine services.ReplyEngine, logger *zap.Logger) *ReplyHandler {
	return &ReplyHandler{engine: engine, logger: logger}
}

// RegisterRoutes registers the reply handler's routes on the given mux.
func (h *ReplyHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/reply", h.Reply)
	mux.HandleFunc("/events", h.Event)
}

// replyRequest is one inbound sticker message.
type replyRequest struct {
	UserID  int64  `json:"user_id"`
	ChatID  int64  `json:"chat_id"`
	Locale  string `json:"locale,omitempty"`
	Sticker struct {
		FileID       string `json:"file_id"`
		Emoji        string `json:"emoji"`
		CollectionID string `json:"collection_id,omitempty"`
	} `json:"sticker"`
}

// eventRequest records a non-sticker interaction.
type eventRequest struct {
	UserID int64  `json:"user_id"`
	Kind   string `json:"kind"`
}

// Reply handles POST /reply requests.
func (h *ReplyHandler) Reply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = ErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "only POST is supported")
		return
	}

	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.UserID == 0 || req.Sticker.FileID == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "user_id and sticker.file_id are required")
		return
	}

	decision, err := h.engine.HandleSticker(r.Context(), services.IncomingMessage{
		UserID: req.UserID,
		ChatID: req.ChatID,
		Locale: req.Locale,
		Sticker: models.IncomingSticker{
			FileID:       req.Sticker.FileID,
			Emoji:        req.Sticker.Emoji,
			CollectionID: req.Sticker.CollectionID,
		},
	})
	if err != nil {
		h.logger.Error("Failed to handle sticker", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "reply_failed", "failed to handle sticker")
		return
	}

	if err := WriteJSON(w, http.StatusOK, decision); err != nil {
		h.logger.Error("Failed to encode reply response", zap.Error(err))
	}
}

// Event handles POST /events requests for command and other-message
// interactions.
func (h *ReplyHandler) Event(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = ErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "only POST is supported")
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.UserID == 0 {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	switch models.EventKind(req.Kind) {
	case models.EventCommand:
		h.engine.HandleCommand(r.Context(), req.UserID)
	case models.EventOtherMessage:
		h.engine.HandleOther(r.Context(), req.UserID)
	default:
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "kind must be command or other_message")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
