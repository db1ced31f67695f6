package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/feedic/internal/model"
)

// mockFeedFetcher はテスト用のFeedFetcher実装。
type mockFeedFetcher struct {
	fetchFeedFunc func(ctx context.Context, url string) (*model.ParsedFeed, error)
}

func (m *mockFeedFetcher) FetchFeed(ctx context.Context, url string) (*model.ParsedFeed, error) {
	return m.fetchFeedFunc(ctx, url)
}

func TestParseFeed_MissingURL(t *testing.T) {
	handler := NewHandler(&mockFeedFetcher{
		fetchFeedFunc: func(ctx context.Context, url string) (*model.ParsedFeed, error) {
			t.Fatal("fetcher should not be called without url parameter")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/rss-parser", nil)
	rec := httptest.NewRecorder()
	handler.ParseFeed(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error != "RSS URL이 필요합니다" {
		t.Errorf("error = %q, want %q", body.Error, "RSS URL이 필요합니다")
	}
}

func TestParseFeed_FetchError(t *testing.T) {
	handler := NewHandler(&mockFeedFetcher{
		fetchFeedFunc: func(ctx context.Context, url string) (*model.ParsedFeed, error) {
			return nil, errors.New("connection refused")
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/rss-parser?url=https%3A%2F%2Fexample.com%2Ffeed", nil)
	rec := httptest.NewRecorder()
	handler.ParseFeed(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error != "RSS 파싱에 실패했습니다" {
		t.Errorf("error = %q, want %q", body.Error, "RSS 파싱에 실패했습니다")
	}
	if body.Details != "connection refused" {
		t.Errorf("details = %q, want %q", body.Details, "connection refused")
	}
}

func TestParseFeed_Success(t *testing.T) {
	var gotURL string
	handler := NewHandler(&mockFeedFetcher{
		fetchFeedFunc: func(ctx context.Context, url string) (*model.ParsedFeed, error) {
			gotURL = url
			return &model.ParsedFeed{
				Title:       "Example Blog",
				Description: "A blog",
				Articles: []model.ParsedArticle{
					{
						Title:       "Hello",
						Link:        "https://example.com/hello",
						PubDate:     "2026-01-02T15:04:05Z",
						Description: "first post",
						GUID:        "guid-1",
					},
				},
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/rss-parser?url=https%3A%2F%2Fexample.com%2Ffeed", nil)
	rec := httptest.NewRecorder()
	handler.ParseFeed(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotURL != "https://example.com/feed" {
		t.Errorf("fetched URL = %q, want %q", gotURL, "https://example.com/feed")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body feedResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Title != "Example Blog" {
		t.Errorf("title = %q, want %q", body.Title, "Example Blog")
	}
	if len(body.Articles) != 1 {
		t.Fatalf("article count = %d, want 1", len(body.Articles))
	}
	article := body.Articles[0]
	if article.Link != "https://example.com/hello" {
		t.Errorf("link = %q, want %q", article.Link, "https://example.com/hello")
	}
	if article.PubDate != "2026-01-02T15:04:05Z" {
		t.Errorf("pubDate = %q, want %q", article.PubDate, "2026-01-02T15:04:05Z")
	}
	if article.GUID != "guid-1" {
		t.Errorf("guid = %q, want %q", article.GUID, "guid-1")
	}
}

func TestParseFeed_EmptyArticles(t *testing.T) {
	handler := NewHandler(&mockFeedFetcher{
		fetchFeedFunc: func(ctx context.Context, url string) (*model.ParsedFeed, error) {
			return &model.ParsedFeed{Title: "Empty", Articles: nil}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/rss-parser?url=https%3A%2F%2Fexample.com%2Ffeed", nil)
	rec := httptest.NewRecorder()
	handler.ParseFeed(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	// articlesフィールドはnullではなく空配列で返す
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if string(raw["articles"]) != "[]" {
		t.Errorf("articles = %s, want []", raw["articles"])
	}
}
