// Package ingest は購読登録から記事取り込みまでのワークフローを提供する。
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/feedic/internal/model"
	"github.com/hitoshi/feedic/internal/repository"
	"github.com/hitoshi/feedic/internal/validation"
)

// Fetcher はフィード取得のインターフェース。
// テスタビリティのためproxy.Fetcherを抽象化する。
type Fetcher interface {
	FetchFeed(ctx context.Context, url string) (*model.ParsedFeed, error)
}

// Recorder は取り込みメトリクス記録のインターフェース。
type Recorder interface {
	RecordIngestSuccess()
	RecordIngestFailure(reason string)
	RecordArticlesMaterialized(count int)
}

// Result は取り込み完了時の結果。
type Result struct {
	Subscription *model.Subscription
	Inserted     int
	Updated      int
}

// Service は購読登録ワークフローのサービス層。
// 検証 → 実行中ガード → 重複チェック → 購読作成 → フェッチ → 記事保存
// のフローを統括する。
type Service struct {
	subRepo  repository.SubscriptionRepository
	artRepo  repository.ArticleRepository
	fetcher  Fetcher
	recorder Recorder
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderはnil可（計測なしで動作する）。
func NewService(
	subRepo repository.SubscriptionRepository,
	artRepo repository.ArticleRepository,
	fetcher Fetcher,
	recorder Recorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		subRepo:  subRepo,
		artRepo:  artRepo,
		fetcher:  fetcher,
		recorder: recorder,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// Submit はURLを検証し、購読を作成してフィードを取り込む。
// フェッチ失敗時も購読はロールバックしない。記事は後から
// 再取り込みで補完できるが、購読を失うとユーザー入力が消えるため。
func (s *Service) Submit(ctx context.Context, rawURL string) (*Result, error) {
	// 1. URL検証（failはストア無変更）
	feedURL, err := validation.Validate(rawURL)
	if err != nil {
		return nil, err
	}

	// 2. 実行中ガード（同一URLの並行二重投入を拒否）
	if !s.begin(feedURL) {
		return nil, model.NewSubmissionInFlightError(feedURL)
	}
	defer s.end(feedURL)

	// 3. 重複チェック（URL完全一致）
	existing, err := s.subRepo.FindByURL(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("購読の検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateSubscriptionError()
	}

	// 4. 購読レコードの作成
	now := time.Now()
	sub := &model.Subscription{
		ID:        uuid.New().String(),
		URL:       feedURL,
		Title:     subscriptionTitle(feedURL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.subRepo.Create(ctx, sub); err != nil {
		s.recordFailure("subscription_write")
		s.logger.Error("購読の保存に失敗",
			slog.String("url", feedURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewSubscriptionWriteFailedError()
	}

	// 5. フィード取得（失敗しても購読は残す）
	feed, err := s.fetcher.FetchFeed(ctx, feedURL)
	if err != nil {
		s.recordFailure("fetch")
		s.logger.Warn("フィード取得に失敗（購読は保持）",
			slog.String("url", feedURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewFetchFailedError(err.Error())
	}

	// 6. 記事の一括UPSERT（guid単位の重複排除）
	articles := make([]*model.Article, len(feed.Articles))
	for i, parsed := range feed.Articles {
		articles[i] = &model.Article{
			ID:          uuid.New().String(),
			FeedURL:     feedURL,
			GUID:        parsed.GUID,
			Title:       parsed.Title,
			URL:         parsed.Link,
			PubDate:     parsed.PubDate,
			Description: parsed.Description,
			IsRead:      false,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	inserted, updated, err := s.artRepo.UpsertBatch(ctx, articles)
	if err != nil {
		s.recordFailure("article_write")
		s.logger.Error("記事の保存に失敗",
			slog.String("url", feedURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("記事の保存に失敗しました: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordIngestSuccess()
		s.recorder.RecordArticlesMaterialized(inserted)
	}
	s.logger.Info("取り込み完了",
		slog.String("url", feedURL),
		slog.Int("inserted", inserted),
		slog.Int("updated", updated),
	)

	return &Result{Subscription: sub, Inserted: inserted, Updated: updated}, nil
}

// begin はURLを実行中として登録する。既に実行中ならfalseを返す。
func (s *Service) begin(feedURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inFlight[feedURL]; ok {
		return false
	}
	s.inFlight[feedURL] = struct{}{}
	return true
}

func (s *Service) end(feedURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, feedURL)
}

func (s *Service) recordFailure(reason string) {
	if s.recorder != nil {
		s.recorder.RecordIngestFailure(reason)
	}
}

// subscriptionTitle は購読の初期タイトルを生成する。
// 形式は "Feed from {hostname}"。ホスト名が取れない場合はURL全体を使う。
func subscriptionTitle(feedURL string) string {
	parsed, err := url.Parse(feedURL)
	if err != nil || parsed.Hostname() == "" {
		return "Feed from " + feedURL
	}
	return "Feed from " + parsed.Hostname()
}
