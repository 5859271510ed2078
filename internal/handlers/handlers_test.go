package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/samerrd/language-reminder-server/internal/config"
	"github.com/samerrd/language-reminder-server/internal/handlers"
	"github.com/samerrd/language-reminder-server/internal/model"
	"github.com/samerrd/language-reminder-server/internal/notify"
	"github.com/samerrd/language-reminder-server/internal/repository"
	"github.com/samerrd/language-reminder-server/internal/scheduler"
	"github.com/samerrd/language-reminder-server/internal/service"
)

type testEnv struct {
	router chi.Router
	db     *gorm.DB
	items  service.ItemService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:h_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db, true))

	cfg := &config.Config{}
	cfg.App = config.AppConfig{
		ReviewLimit:       10,
		DedupEnabled:      true,
		ReviewDedupWindow: time.Hour,
		EasyIntervalDays:  3,
		DefaultPartition:  "en",
	}

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	itemRepo := repository.NewGormItemRepository()
	receiptRepo := repository.NewGormReceiptRepository()
	events := notify.NewDispatcher(testLogger)

	itemService := service.NewItemService(db, itemRepo, cfg)
	reviewService := service.NewReviewService(db, itemRepo, receiptRepo, scheduler.NewFixedTablePolicy(cfg.App.EasyIntervalDays), events, cfg)

	itemHandler := handlers.NewItemHandler(itemService, testLogger)
	reviewHandler := handlers.NewReviewHandler(reviewService, testLogger)
	webhookHandler := handlers.NewWebhookHandler(itemService, reviewService, model.PartitionEN, testLogger)

	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Post("/", itemHandler.PostItem)
			r.Get("/", itemHandler.GetItems)
			r.Get("/{item_id}", itemHandler.GetItem)
		})
		r.Route("/reviews", func(r chi.Router) {
			r.Get("/next", reviewHandler.GetNextReview)
			r.Get("/due", reviewHandler.GetDueReviews)
			r.Put("/{item_id}/result", reviewHandler.SubmitRating)
		})
		r.Post("/webhook", webhookHandler.HandleWebhook)
	})

	return &testEnv{router: router, db: db, items: itemService}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) mustIngest(t *testing.T, text string, partition model.Partition) uint64 {
	t.Helper()
	result, err := e.items.Ingest(context.Background(), text, partition)
	require.NoError(t, err)
	require.True(t, result.Accepted)
	return result.ID
}

func TestItemHandler_PostItem(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
		wantAccepted   bool
		wantReason     string
	}{
		{
			name:           "Success - valid sentence",
			body:           model.IngestRequest{Text: "La pomme est rouge", Partition: "es"},
			expectedStatus: http.StatusCreated,
			wantAccepted:   true,
		},
		{
			name:           "Rejected - blank text is a 200 outcome",
			body:           model.IngestRequest{Text: "   ", Partition: "en"},
			expectedStatus: http.StatusOK,
			wantAccepted:   false,
			wantReason:     model.IngestReasonEmpty,
		},
		{
			name:           "Fail - missing partition",
			body:           map[string]string{"text": "hello"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Fail - unknown partition",
			body:           model.IngestRequest{Text: "hello", Partition: "xx"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Fail - unknown field in body",
			body:           map[string]string{"text": "hello", "partition": "en", "bogus": "field"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := setupTestEnv(t)
			rr := env.do(t, http.MethodPost, "/api/v1/items", tc.body)
			assert.Equal(t, tc.expectedStatus, rr.Code)

			if tc.expectedStatus >= 400 {
				var errResp model.APIErrorResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errResp))
				assert.NotEmpty(t, errResp.Error.Code)
				return
			}

			var result model.IngestResult
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
			assert.Equal(t, tc.wantAccepted, result.Accepted)
			assert.Equal(t, tc.wantReason, result.Reason)
			if tc.wantAccepted {
				assert.NotZero(t, result.ID)
			}
		})
	}
}

func TestItemHandler_PostItem_Duplicate(t *testing.T) {
	env := setupTestEnv(t)
	env.mustIngest(t, "la pomme", model.PartitionES)

	rr := env.do(t, http.MethodPost, "/api/v1/items", model.IngestRequest{Text: "la pomme", Partition: "es"})
	assert.Equal(t, http.StatusOK, rr.Code)

	var result model.IngestResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.False(t, result.Accepted)
	assert.Equal(t, model.IngestReasonDuplicate, result.Reason)
}

func TestItemHandler_GetItems(t *testing.T) {
	env := setupTestEnv(t)
	env.mustIngest(t, "first", model.PartitionEN)
	second := env.mustIngest(t, "second", model.PartitionEN)

	rr := env.do(t, http.MethodGet, "/api/v1/items?partition=en", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var items []model.Item
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, second, items[0].ID, "newest first")

	rr = env.do(t, http.MethodGet, "/api/v1/items?partition=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReviewHandler_SubmitRating(t *testing.T) {
	env := setupTestEnv(t)
	id := env.mustIngest(t, "rate me", model.PartitionEN)

	rr := env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/reviews/%d/result", id), model.SubmitRatingRequest{Rating: model.Good})
	require.Equal(t, http.StatusOK, rr.Code)

	var result model.ReviewResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, id, result.ItemID)
	assert.Equal(t, model.StateReview, result.NewState)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), result.DueAt, 10*time.Second)
}

func TestReviewHandler_SubmitRating_Errors(t *testing.T) {
	env := setupTestEnv(t)
	id := env.mustIngest(t, "erroneous", model.PartitionEN)

	tests := []struct {
		name           string
		path           string
		body           interface{}
		expectedStatus int
	}{
		{
			name:           "Fail - unknown rating name is rejected, not defaulted",
			path:           fmt.Sprintf("/api/v1/reviews/%d/result", id),
			body:           map[string]string{"rating": "awesome"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Fail - malformed item id",
			path:           "/api/v1/reviews/abc/result",
			body:           model.SubmitRatingRequest{Rating: model.Good},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Fail - nonexistent item",
			path:           "/api/v1/reviews/9999/result",
			body:           model.SubmitRatingRequest{Rating: model.Good},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPut, tc.path, tc.body)
			assert.Equal(t, tc.expectedStatus, rr.Code)

			var errResp model.APIErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errResp))
			assert.NotEmpty(t, errResp.Error.Code)
		})
	}

	// None of the failures may have touched the item.
	var item model.Item
	require.NoError(t, env.db.First(&item, id).Error)
	assert.Equal(t, model.StateNew, item.ReviewState)
	assert.Zero(t, item.Repetitions)
}

func TestReviewHandler_GetNextReview(t *testing.T) {
	env := setupTestEnv(t)

	// Nothing due yet: 204, not an error.
	rr := env.do(t, http.MethodGet, "/api/v1/reviews/next?partition=es", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	id := env.mustIngest(t, "La pomme est rouge", model.PartitionES)

	rr = env.do(t, http.MethodGet, "/api/v1/reviews/next?partition=es", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var item model.Item
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &item))
	assert.Equal(t, id, item.ID)
	assert.Equal(t, model.StateNew, item.ReviewState)
}

func TestReviewHandler_GetDueReviews(t *testing.T) {
	env := setupTestEnv(t)
	a := env.mustIngest(t, "uno", model.PartitionES)
	b := env.mustIngest(t, "dos", model.PartitionES)

	rr := env.do(t, http.MethodGet, "/api/v1/reviews/due?partition=es", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var items []model.Item
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, a, items[0].ID)
	assert.Equal(t, b, items[1].ID)
}
