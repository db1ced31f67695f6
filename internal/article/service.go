// Package article は記事一覧と既読管理のドメインロジックを提供する。
package article

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hitoshi/feedic/internal/model"
	"github.com/hitoshi/feedic/internal/repository"
)

// pubDateFormats はpubDateのパースを試みるフォーマット一覧。
// 取り込み時の正規化でRFC3339になるが、過去データや外部由来の
// 生のRSS日付形式にもフォールバックする。
var pubDateFormats = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
}

// Service は記事一覧・既読管理のサービス層。
type Service struct {
	artRepo repository.ArticleRepository
	logger  *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(artRepo repository.ArticleRepository, logger *slog.Logger) *Service {
	return &Service{artRepo: artRepo, logger: logger}
}

// List は全記事をpubDate降順で返す。
// ソートは表示時に行い、保存順には依存しない。
// パース不能なpubDateを持つ記事は末尾に回す。
func (s *Service) List(ctx context.Context) ([]*model.Article, error) {
	articles, err := s.artRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}

	sort.SliceStable(articles, func(i, j int) bool {
		ti, okI := parsePubDate(articles[i].PubDate)
		tj, okJ := parsePubDate(articles[j].PubDate)
		if okI && okJ {
			return ti.After(tj)
		}
		// パース可能な方を先に置く
		return okI && !okJ
	})

	return articles, nil
}

// Get は指定IDの記事を返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Article, error) {
	article, err := s.artRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if article == nil {
		return nil, model.NewArticleNotFoundError(id)
	}
	return article, nil
}

// MarkRead は記事を既読にする。未読→既読の遷移は一方向で、
// 既に既読の記事への呼び出しは何もしない（冪等）。
func (s *Service) MarkRead(ctx context.Context, id string) error {
	article, err := s.artRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if article == nil {
		return model.NewArticleNotFoundError(id)
	}
	if article.IsRead {
		return nil
	}
	if err := s.artRepo.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("既読化に失敗しました: %w", err)
	}
	return nil
}

// MarkAllRead は全未読記事を既読にする。戻り値は遷移した記事数。
func (s *Service) MarkAllRead(ctx context.Context) (int, error) {
	count, err := s.artRepo.MarkAllRead(ctx)
	if err != nil {
		return 0, fmt.Errorf("全既読化に失敗しました: %w", err)
	}
	if count > 0 {
		s.logger.Info("全既読化を実行", slog.Int("count", count))
	}
	return count, nil
}

// UnreadCount は未読記事数を返す。
// カウントは常に記事コレクションから導出し、別途保持しない。
func (s *Service) UnreadCount(ctx context.Context) (int, error) {
	count, err := s.artRepo.CountUnread(ctx)
	if err != nil {
		return 0, fmt.Errorf("未読数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// parsePubDate はpubDate文字列のパースを試みる。
func parsePubDate(raw string) (time.Time, bool) {
	for _, format := range pubDateFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
