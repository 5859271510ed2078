// internal/handlers/item_handler.go
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
	"github.com/go-playground/validator/v10"
)

type ItemHandler struct {
	service service.ItemService
	logger  *slog.Logger
}

func NewItemHandler(s service.ItemService, logger *slog.Logger) *ItemHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemHandler{
		service: s,
		logger:  logger,
	}
}

// PostItem captures a new sentence. Blank or duplicate text is answered with
// 200 and an accepted=false body so webhook retries do not read it as a
// failure; only malformed requests are 4xx.
func (h *ItemHandler) PostItem(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostItem"))

	var req model.IngestRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_REQUEST_BODY", "Malformed request body.", "", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	if err := webutil.Validator.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			logger.Warn("Validation failed", slog.String("errors", validationErrors.Error()))
			webutil.HandleError(w, logger, webutil.NewValidationErrorResponse(validationErrors))
		} else {
			logger.Error("Unexpected error during validation", slog.Any("error", err))
			webutil.HandleError(w, logger, err)
		}
		return
	}

	result, err := h.service.Ingest(r.Context(), req.Text, model.Partition(req.Partition))
	if err != nil {
		logger.Error("Error ingesting item in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	status := http.StatusCreated
	if !result.Accepted {
		status = http.StatusOK
	}
	webutil.RespondWithJSON(w, status, result, logger)
}

// GetItems lists a partition's items newest first.
func (h *ItemHandler) GetItems(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetItems"))

	partition, err := model.ParsePartition(r.URL.Query().Get("partition"))
	if err != nil {
		appErr := model.NewAppError("INVALID_QUERY_PARAM", "Unknown language partition.", "partition", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	items, err := h.service.Recent(r.Context(), partition, limit, offset)
	if err != nil {
		logger.Error("Error listing items in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if items == nil {
		items = []*model.Item{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, items, logger)
}

// GetItem returns a single item by id.
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetItem"))

	itemIDStr := chi.URLParam(r, "item_id")
	itemID, err := strconv.ParseUint(itemIDStr, 10, 64)
	if err != nil {
		logger.Warn("Invalid item ID format in URL", slog.String("item_id_str", itemIDStr))
		appErr := model.NewAppError("INVALID_URL_PARAM", "item_id must be a positive integer.", "item_id", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	item, err := h.service.Get(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			appErr := model.NewAppError("NOT_FOUND", "Item not found.", "item_id", model.ErrNotFound)
			webutil.HandleError(w, logger, appErr)
			return
		}
		logger.Error("Error getting item in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, item, logger)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
