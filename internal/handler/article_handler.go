package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/feedic/internal/model"
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	// List は全記事をpubDate降順で返す。
	List(ctx context.Context) ([]*model.Article, error)
	// Get は指定IDの記事を返す。
	Get(ctx context.Context, id string) (*model.Article, error)
	// MarkRead は記事を既読にする（冪等）。
	MarkRead(ctx context.Context, id string) error
	// MarkAllRead は全未読記事を既読にする。
	MarkAllRead(ctx context.Context) (int, error)
	// UnreadCount は未読記事数を返す。
	UnreadCount(ctx context.Context) (int, error)
}

// ArticleHandler は記事一覧・既読管理のHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface) *ArticleHandler {
	return &ArticleHandler{service: service}
}

// articleItemResponse は記事のAPIレスポンス。
type articleItemResponse struct {
	ID          string `json:"id"`
	FeedURL     string `json:"feedUrl"`
	GUID        string `json:"guid"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	PubDate     string `json:"pubDate"`
	Description string `json:"description"`
	IsRead      bool   `json:"isRead"`
}

// listArticlesResponse は記事一覧レスポンスのボディ。
type listArticlesResponse struct {
	Articles    []articleItemResponse `json:"articles"`
	UnreadCount int                   `json:"unreadCount"`
}

// markAllReadResponse は全既読化レスポンスのボディ。
type markAllReadResponse struct {
	Updated int `json:"updated"`
}

// ListArticles は全記事をpubDate降順・未読数付きで返す。
// GET /api/articles
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	unread, err := h.service.UnreadCount(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := listArticlesResponse{
		Articles:    make([]articleItemResponse, len(articles)),
		UnreadCount: unread,
	}
	for i, article := range articles {
		resp.Articles[i] = toArticleItemResponse(article)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetArticle は記事詳細を返す。
// GET /api/articles/:id
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	article, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toArticleItemResponse(article))
}

// MarkRead は記事を既読にする。
// PUT /api/articles/:id/read
func (h *ArticleHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.MarkRead(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead は全未読記事を既読にする。
// POST /api/articles/read-all
func (h *ArticleHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.service.MarkAllRead(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(markAllReadResponse{Updated: updated})
}

// toArticleItemResponse はmodel.ArticleからAPIレスポンスに変換する。
func toArticleItemResponse(article *model.Article) articleItemResponse {
	return articleItemResponse{
		ID:          article.ID,
		FeedURL:     article.FeedURL,
		GUID:        article.GUID,
		Title:       article.Title,
		URL:         article.URL,
		PubDate:     article.PubDate,
		Description: article.Description,
		IsRead:      article.IsRead,
	}
}
