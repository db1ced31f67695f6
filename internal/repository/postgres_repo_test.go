package repository

import (
	"database/sql"
	"testing"

	"github.com/hitoshi/feedic/internal/model"
)

// Postgres実装が各インターフェースを満たすことを検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
	var _ ArticleRepository = (*PostgresArticleRepo)(nil)
}

func TestNewPostgresSubscriptionRepo_Initializes(t *testing.T) {
	repo := NewPostgresSubscriptionRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

func TestNewPostgresArticleRepo_Initializes(t *testing.T) {
	repo := NewPostgresArticleRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// nullString/nullStringValueの往復変換を検証
func TestNullStringHelpers(t *testing.T) {
	if ns := nullString(""); ns.Valid {
		t.Error("nullString(\"\") should be invalid (NULL)")
	}
	if ns := nullString("x"); !ns.Valid || ns.String != "x" {
		t.Errorf("nullString(\"x\") = %+v, want valid \"x\"", ns)
	}
	if v := nullStringValue(sql.NullString{}); v != "" {
		t.Errorf("nullStringValue(NULL) = %q, want empty", v)
	}
	if v := nullStringValue(sql.NullString{String: "x", Valid: true}); v != "x" {
		t.Errorf("nullStringValue = %q, want %q", v, "x")
	}
}

// Articleモデルのフィールドが正しく構築されることを検証
func TestArticleModel_Fields(t *testing.T) {
	article := &model.Article{
		ID:      "article-1",
		FeedURL: "https://example.com/feed.xml",
		GUID:    "https://example.com/post/1",
		Title:   "テスト記事",
		URL:     "https://example.com/post/1",
		PubDate: "2026-08-01T09:00:00Z",
	}

	if article.IsRead {
		t.Error("IsRead should default to false")
	}
	if article.FeedURL != "https://example.com/feed.xml" {
		t.Errorf("FeedURL = %q, want %q", article.FeedURL, "https://example.com/feed.xml")
	}
}
