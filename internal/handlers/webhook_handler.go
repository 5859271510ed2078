// internal/handlers/webhook_handler.go
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/samerrd/language-reminder-server/internal/model"
	"github.com/samerrd/language-reminder-server/internal/service"
	"github.com/samerrd/language-reminder-server/internal/webutil"
)

// WebhookRequest is the messaging-channel delivery. A text message captures
// a new sentence; a button callback carries the channel's colon-delimited
// "review:<id>:<rating>" encoding, which is parsed here once and never seen
// by the core.
type WebhookRequest struct {
	Message   string `json:"message,omitempty"`
	Partition string `json:"partition,omitempty"`
	Callback  string `json:"callback,omitempty"`
}

// ReviewCommand is the typed form of a review callback.
type ReviewCommand struct {
	ItemID uint64
	Rating model.Rating
}

// ParseReviewCallback converts "review:<id>:<rating>" into a ReviewCommand.
func ParseReviewCallback(data string) (ReviewCommand, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != "review" {
		return ReviewCommand{}, fmt.Errorf("%w: malformed callback %q", model.ErrInvalidInput, data)
	}
	itemID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return ReviewCommand{}, fmt.Errorf("%w: malformed item id in callback %q", model.ErrInvalidInput, data)
	}
	var rating model.Rating
	if err := rating.UnmarshalText([]byte(parts[2])); err != nil {
		return ReviewCommand{}, err
	}
	return ReviewCommand{ItemID: itemID, Rating: rating}, nil
}

type WebhookHandler struct {
	items   service.ItemService
	reviews service.ReviewService
	logger  *slog.Logger

	// defaultPartition receives messages that name none.
	defaultPartition model.Partition
}

func NewWebhookHandler(items service.ItemService, reviews service.ReviewService, defaultPartition model.Partition, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		items:            items,
		reviews:          reviews,
		logger:           logger,
		defaultPartition: defaultPartition,
	}
}

// HandleWebhook accepts one messaging-channel delivery. The channel retries
// on non-2xx, so ingest rejections answer 200.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "HandleWebhook"))

	var req WebhookRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode webhook body", slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_REQUEST_BODY", "Malformed webhook body.", "", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	switch {
	case req.Callback != "":
		cmd, err := ParseReviewCallback(req.Callback)
		if err != nil {
			logger.Warn("Malformed review callback", slog.String("callback", req.Callback))
			appErr := model.NewAppError("INVALID_CALLBACK", "Malformed review callback.", "callback", model.ErrInvalidInput)
			webutil.HandleError(w, logger, appErr)
			return
		}
		result, err := h.reviews.ApplyRating(r.Context(), cmd.ItemID, cmd.Rating)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				appErr := model.NewAppError("NOT_FOUND", "Item not found.", "item_id", model.ErrNotFound)
				webutil.HandleError(w, logger, appErr)
				return
			}
			logger.Error("Error applying rating from webhook", slog.Any("error", err))
			webutil.HandleError(w, logger, err)
			return
		}
		webutil.RespondWithJSON(w, http.StatusOK, result, logger)

	case req.Message != "":
		partition := h.defaultPartition
		if req.Partition != "" {
			p, err := model.ParsePartition(req.Partition)
			if err != nil {
				appErr := model.NewAppError("VALIDATION_ERROR", "Unknown language partition.", "partition", model.ErrInvalidInput)
				webutil.HandleError(w, logger, appErr)
				return
			}
			partition = p
		}
		result, err := h.items.Ingest(r.Context(), req.Message, partition)
		if err != nil {
			logger.Error("Error ingesting from webhook", slog.Any("error", err))
			webutil.HandleError(w, logger, err)
			return
		}
		webutil.RespondWithJSON(w, http.StatusOK, result, logger)

	default:
		appErr := model.NewAppError("INVALID_REQUEST_BODY", "Webhook carried neither a message nor a callback.", "", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
	}
}
