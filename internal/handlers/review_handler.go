// internal/handlers/review_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/samerrd/language-reminder-server/internal/model"
	"github.com/samerrd/language-reminder-server/internal/service"
	"github.com/samerrd/language-reminder-server/internal/webutil"

	"github.com/go-chi/chi/v5"
)

type ReviewHandler struct {
	service service.ReviewService
	logger  *slog.Logger
}

func NewReviewHandler(s service.ReviewService, logger *slog.Logger) *ReviewHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewHandler{
		service: s,
		logger:  logger,
	}
}

// GetNextReview returns the most urgent due item of a partition, or 204 when
// nothing is due.
func (h *ReviewHandler) GetNextReview(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetNextReview"))

	partition, err := model.ParsePartition(r.URL.Query().Get("partition"))
	if err != nil {
		appErr := model.NewAppError("INVALID_QUERY_PARAM", "Unknown language partition.", "partition", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	item, err := h.service.NextDue(r.Context(), partition)
	if err != nil {
		logger.Error("Error getting next due item in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}
	if item == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, item, logger)
}

// GetDueReviews returns the currently-due batch of a partition, most urgent
// first.
func (h *ReviewHandler) GetDueReviews(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetDueReviews"))

	partition, err := model.ParsePartition(r.URL.Query().Get("partition"))
	if err != nil {
		appErr := model.NewAppError("INVALID_QUERY_PARAM", "Unknown language partition.", "partition", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}
	limit := queryInt(r, "limit", 0)

	items, err := h.service.DueItems(r.Context(), partition, limit)
	if err != nil {
		logger.Error("Error listing due items in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if items == nil {
		items = []*model.Item{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, items, logger)
}

// SubmitRating applies a recall rating to an item.
func (h *ReviewHandler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "SubmitRating"))

	itemIDStr := chi.URLParam(r, "item_id")
	itemID, err := strconv.ParseUint(itemIDStr, 10, 64)
	if err != nil {
		logger.Warn("Invalid item ID format in URL", slog.String("item_id_str", itemIDStr))
		appErr := model.NewAppError("INVALID_URL_PARAM", "item_id must be a positive integer.", "item_id", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	var req model.SubmitRatingRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		// Unknown rating names fail inside Rating's unmarshaller, so they
		// land here rather than being mapped to a default.
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_REQUEST_BODY", "Malformed request body or unknown rating.", "rating", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	result, err := h.service.ApplyRating(r.Context(), itemID, req.Rating)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			appErr := model.NewAppError("NOT_FOUND", "Item not found.", "item_id", model.ErrNotFound)
			webutil.HandleError(w, logger, appErr)
			return
		}
		logger.Error("Error applying rating in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, result, logger)
}
