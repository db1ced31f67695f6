// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/feedic/internal/ingest"
	"github.com/hitoshi/feedic/internal/model"
	"github.com/hitoshi/feedic/internal/subscription"
)

// IngestServiceInterface はフィードハンドラーが必要とする取り込みサービスインターフェース。
type IngestServiceInterface interface {
	// Submit はURLを検証し、購読を作成してフィードを取り込む。
	Submit(ctx context.Context, rawURL string) (*ingest.Result, error)
}

// SubscriptionServiceInterface は購読一覧・削除のサービスインターフェース。
type SubscriptionServiceInterface interface {
	// List は全購読を未読数付きで返す。
	List(ctx context.Context) ([]subscription.Info, error)
	// Delete は購読とその記事を削除する。
	Delete(ctx context.Context, id string) error
}

// FeedHandler は購読管理のHTTPハンドラー。
type FeedHandler struct {
	ingestService IngestServiceInterface
	subService    SubscriptionServiceInterface
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(ingestService IngestServiceInterface, subService SubscriptionServiceInterface) *FeedHandler {
	return &FeedHandler{
		ingestService: ingestService,
		subService:    subService,
	}
}

// createFeedRequest は購読登録リクエストのボディ。
type createFeedRequest struct {
	URL string `json:"url"`
}

// subscriptionResponse は購読情報のAPIレスポンス。
type subscriptionResponse struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	UnreadCount int    `json:"unreadCount"`
	CreatedAt   string `json:"createdAt"`
}

// createFeedResponse は購読登録成功時のレスポンス。
type createFeedResponse struct {
	Subscription subscriptionResponse `json:"subscription"`
	Inserted     int                  `json:"inserted"`
	Updated      int                  `json:"updated"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// CreateFeed は購読登録と初回取り込みを処理する。
// POST /api/feeds
func (h *FeedHandler) CreateFeed(w http.ResponseWriter, r *http.Request) {
	var req createFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	result, err := h.ingestService.Submit(r.Context(), req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(createFeedResponse{
		Subscription: toSubscriptionResponse(result.Subscription, 0),
		Inserted:     result.Inserted,
		Updated:      result.Updated,
	})
}

// ListFeeds は購読一覧を未読数付きで返す。
// GET /api/feeds
func (h *FeedHandler) ListFeeds(w http.ResponseWriter, r *http.Request) {
	infos, err := h.subService.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]subscriptionResponse, len(infos))
	for i, info := range infos {
		resp[i] = toSubscriptionResponse(info.Subscription, info.UnreadCount)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// DeleteFeed は購読とその全記事を削除する。
// DELETE /api/feeds/:id
func (h *FeedHandler) DeleteFeed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.subService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toSubscriptionResponse はmodel.SubscriptionからAPIレスポンスに変換する。
func toSubscriptionResponse(sub *model.Subscription, unreadCount int) subscriptionResponse {
	return subscriptionResponse{
		ID:          sub.ID,
		URL:         sub.URL,
		Title:       sub.Title,
		UnreadCount: unreadCount,
		CreatedAt:   sub.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeEmptyInput, model.ErrCodeMalformedURL, model.ErrCodeUnsupportedScheme:
		return http.StatusBadRequest
	case model.ErrCodeDuplicateSubscription, model.ErrCodeSubmissionInFlight:
		return http.StatusConflict
	case model.ErrCodeFetchFailed:
		return http.StatusBadGateway
	case model.ErrCodeArticleNotFound, model.ErrCodeSubscriptionNotFound:
		return http.StatusNotFound
	case model.ErrCodeSubscriptionWriteFailed, model.ErrCodeDeletionFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
