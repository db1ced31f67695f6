package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/hitoshi/feedic/internal/model"
	"github.com/hitoshi/feedic/internal/repository"
)

// mockFetcher はテスト用のFetcher実装。
type mockFetcher struct {
	fetchFeedFunc func(ctx context.Context, url string) (*model.ParsedFeed, error)
}

func (m *mockFetcher) FetchFeed(ctx context.Context, url string) (*model.ParsedFeed, error) {
	return m.fetchFeedFunc(ctx, url)
}

// mockRecorder は取り込みメトリクスの呼び出しを記録する。
type mockRecorder struct {
	mu            sync.Mutex
	successes     int
	failures      []string
	materializeds []int
}

func (m *mockRecorder) RecordIngestSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes++
}

func (m *mockRecorder) RecordIngestFailure(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, reason)
}

func (m *mockRecorder) RecordArticlesMaterialized(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.materializeds = append(m.materializeds, count)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func apiErrorCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	return apiErr.Code
}

func sampleFeed() *model.ParsedFeed {
	return &model.ParsedFeed{
		Title: "Example Blog",
		Articles: []model.ParsedArticle{
			{Title: "One", Link: "https://example.com/1", GUID: "g1", PubDate: "2026-01-02T15:04:05Z"},
			{Title: "Two", Link: "https://example.com/2", GUID: "g2", PubDate: "2026-01-03T15:04:05Z"},
		},
	}
}

func newTestService(fetcher Fetcher, recorder Recorder) (*Service, *repository.MemoryStore) {
	store := repository.NewMemoryStore()
	svc := NewService(store.SubscriptionRepo(), store.ArticleRepo(), fetcher, recorder, discardLogger())
	return svc, store
}

func TestSubmit_Success(t *testing.T) {
	recorder := &mockRecorder{}
	svc, store := newTestService(&mockFetcher{
		fetchFeedFunc: func(ctx context.Context, url string) (*model.ParsedFeed, error) {
			return sampleFeed(), nil
		},
	}, recorder)
	ctx := context.Background()

	result, err := svc.Submit(ctx, "  https://example.com/feed  ")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if result.Subscription.URL != "https://example.com/feed" {
		t.Errorf("URL = %q, want trimmed %q", result.Subscription.URL, "https://example.com/feed")
	}
	if result.Subscription.Title != "Feed from example.com" {
		t.Errorf("Title = %q, want %q", result.Subscription.Title, "Feed from example.com")
	}
	if result.Inserted != 2 || result.Updated != 0 {
		t.Errorf("inserted/updated = %d/%d, want 2/0", result.Inserted, result.Updated)
	}

	subs, err := store.SubscriptionRepo().List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("subscription count = %d, want 1", len(subs))
	}

	articles, err := store.ArticleRepo().List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("article count = %d, want 2", len(articles))
	}
	for _, article := range articles {
		if article.FeedURL != "https://example.com/feed" {
			t.Errorf("FeedURL = %q, want %q", article.FeedURL, "https://example.com/feed")
		}
		if article.IsRead {
			t.Error("new article should be unread")
		}
	}

	if recorder.successes != 1 {
		t.Errorf("recorded successes = %d, want 1", recorder.successes)
	}
	if len(recorder.materializeds) != 1 || recorder.materializeds[0] != 2 {
		t.Errorf("materialized = %v, want [2]", recorder.materializeds)
	}
}

func TestSubmit_ValidationError_NoMutation(t *testing.T) {
	svc, store := newTestService(&mockFetcher{
		fetchFeedFunc: func(ctx context.Context, url string) (*model.ParsedFeed, error) {
			t.Fatal("fetcher should not be called on validation failure")
			return nil, nil
		},
	}, nil)
	ctx := context.Background()

	cases := map[string]string{
		"空入力":       "   ",
		"不正URL":     "not-a-url",
		"非HTTPスキーム": "ftp://example.com/feed",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Submit(ctx, input); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}

	subs, _ := store.SubscriptionRepo().List(ctx)
	if len(subs) != 0 {
		t.Errorf("subscription count = %d, want 0 after rejected submissions", len(subs))
	}
}

func TestSubmit_DuplicateURL(t *testing.T) {
	svc, _ := newTestService(&mockFetcher{
		fetchFeedFunc: func(ctx context.Context, url string) (*model.ParsedFeed, error) {
			return sampleFeed(), nil
		},
	}, nil)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "https://example.com/feed"); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}

	_, err := svc.Submit(ctx, "https://example.com/feed")
	if code := apiErrorCode(t, err); code != "DUPLICATE_SUBSCRIPTION" {
		t.Errorf("code = %q, want DUPLICATE_SUBSCRIPTION", code)
	}
}

func TestSubmit_FetchFailure_KeepsSubscription(t *testing.T) {
	recorder := &mockRecorder{}
	svc, store := newTestService(&mockFetcher{
		fetchFeedFunc: func(ctx context.Context, url string) (*model.ParsedFeed, error) {
			return nil, errors.New("connection refused")
		},
	}, recorder)
	ctx := context.Background()

	_, err := svc.Submit(ctx, "https://example.com/feed")
	if code := apiErrorCode(t, err); code != "FETCH_FAILED" {
		t.Errorf("code = %q, want FETCH_FAILED", code)
	}

	// 購読はロールバックされない
	subs, _ := store.SubscriptionRepo().List(ctx)
	if len(subs) != 1 {
		t.Errorf("subscription count = %d, want 1 (kept on fetch failure)", len(subs))
	}
	articles, _ := store.ArticleRepo().List(ctx)
	if len(articles) != 0 {
		t.Errorf("article count = %d, want 0 (no partial materialization)", len(articles))
	}
	if len(recorder.failures) != 1 || recorder.failures[0] != "fetch" {
		t.Errorf("failures = %v, want [fetch]", recorder.failures)
	}
}

func TestSubmit_ConcurrentSameURL_Rejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	svc, _ := newTestService(&mockFetcher{
		fetchFeedFunc: func(ctx context.Context, url string) (*model.ParsedFeed, error) {
			close(started)
			<-release
			return sampleFeed(), nil
		},
	}, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(ctx, "https://example.com/feed")
		done <- err
	}()
	<-started

	// 1件目がフェッチ中の間、同一URLの2件目は拒否される
	_, err := svc.Submit(ctx, "https://example.com/feed")
	if code := apiErrorCode(t, err); code != "SUBMISSION_IN_FLIGHT" {
		t.Errorf("code = %q, want SUBMISSION_IN_FLIGHT", code)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
}

func TestSubmit_GuardReleasedAfterFailure(t *testing.T) {
	calls := 0
	svc, _ := newTestService(&mockFetcher{
		fetchFeedFunc: func(ctx context.Context, url string) (*model.ParsedFeed, error) {
			calls++
			return nil, errors.New("temporary failure")
		},
	}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Submit(ctx, "https://example.com/feed")
		if code := apiErrorCode(t, err); code != "FETCH_FAILED" {
			t.Fatalf("attempt %d: code = %q, want FETCH_FAILED", i+1, code)
		}
	}
	if calls != 2 {
		t.Errorf("fetch calls = %d, want 2 (guard must release after failure)", calls)
	}
}

func TestSubmit_ReingestPreservesReadState(t *testing.T) {
	svc, store := newTestService(&mockFetcher{
		fetchFeedFunc: func(ctx context.Context, url string) (*model.ParsedFeed, error) {
			return sampleFeed(), nil
		},
	}, nil)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "https://example.com/feed"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	articles, _ := store.ArticleRepo().List(ctx)
	if err := store.ArticleRepo().MarkRead(ctx, articles[0].ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	// 再取り込み相当の重複排除UPSERTを直接検証する
	// （同一URLの二重Submitは重複購読として拒否されるため）
	batch := make([]*model.Article, 0, len(articles))
	for _, a := range articles {
		clone := *a
		clone.ID = ""
		clone.Title = a.Title + " (updated)"
		batch = append(batch, &clone)
	}
	inserted, updated, err := store.ArticleRepo().UpsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}
	if inserted != 0 || updated != 2 {
		t.Errorf("inserted/updated = %d/%d, want 0/2", inserted, updated)
	}

	after, _ := store.ArticleRepo().List(ctx)
	readCount := 0
	for _, a := range after {
		if a.IsRead {
			readCount++
		}
	}
	if readCount != 1 {
		t.Errorf("read count = %d, want 1 (read state preserved across upsert)", readCount)
	}
}
