package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/feedic/internal/model"
)

// FeedFetcher はフィード取得のインターフェース。
type FeedFetcher interface {
	FetchFeed(ctx context.Context, url string) (*model.ParsedFeed, error)
}

// Handler はフィード取得プロキシのHTTPハンドラー。
// GET /rss-parser?url=<encoded> を処理する。
// エラーメッセージ文字列は既存フロントエンドが照合するワイヤ契約のため変更しない。
type Handler struct {
	fetcher FeedFetcher
}

// NewHandler はHandlerを生成する。
func NewHandler(fetcher FeedFetcher) *Handler {
	return &Handler{fetcher: fetcher}
}

// feedResponse はプロキシ成功レスポンスのボディ。
type feedResponse struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Articles    []articleResponse `json:"articles"`
}

// articleResponse は正規化済み記事のレスポンス形状。
type articleResponse struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	PubDate     string `json:"pubDate"`
	Description string `json:"description"`
	GUID        string `json:"guid"`
}

// errorResponse はプロキシエラーレスポンスのボディ。
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ParseFeed はフィードを取得してJSONで返す。
// GET /rss-parser?url=<encoded URL>
func (h *Handler) ParseFeed(w http.ResponseWriter, r *http.Request) {
	rssURL := r.URL.Query().Get("url")
	if rssURL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "RSS URL이 필요합니다",
		})
		return
	}

	feed, err := h.fetcher.FetchFeed(r.Context(), rssURL)
	if err != nil {
		slog.Error("フィード取得プロキシでエラー",
			slog.String("url", rssURL),
			slog.String("error", err.Error()),
		)
		// 内部情報はメッセージ文字列のみ公開する
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "RSS 파싱에 실패했습니다",
			Details: err.Error(),
		})
		return
	}

	resp := feedResponse{
		Title:       feed.Title,
		Description: feed.Description,
		Articles:    make([]articleResponse, len(feed.Articles)),
	}
	for i, article := range feed.Articles {
		resp.Articles[i] = articleResponse{
			Title:       article.Title,
			Link:        article.Link,
			PubDate:     article.PubDate,
			Description: article.Description,
			GUID:        article.GUID,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
