// Package subscription は購読管理のドメインロジックを提供する。
package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/feedic/internal/model"
	"github.com/hitoshi/feedic/internal/repository"
)

// Info は購読に未読数を付加したドメインオブジェクト。
type Info struct {
	Subscription *model.Subscription
	UnreadCount  int
}

// Service は購読一覧・削除のサービス層。
type Service struct {
	subRepo repository.SubscriptionRepository
	artRepo repository.ArticleRepository
	logger  *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	subRepo repository.SubscriptionRepository,
	artRepo repository.ArticleRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		subRepo: subRepo,
		artRepo: artRepo,
		logger:  logger,
	}
}

// List は全購読を作成順でフィード別未読数付きで返す。
// 未読数は記事コレクションから都度導出する。
func (s *Service) List(ctx context.Context) ([]Info, error) {
	subs, err := s.subRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}

	articles, err := s.artRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	unreadByURL := make(map[string]int)
	for _, article := range articles {
		if !article.IsRead {
			unreadByURL[article.FeedURL]++
		}
	}

	infos := make([]Info, len(subs))
	for i, sub := range subs {
		infos[i] = Info{
			Subscription: sub,
			UnreadCount:  unreadByURL[sub.URL],
		}
	}
	return infos, nil
}

// Delete は購読と、その購読のfeedUrlに一致する全記事を削除する。
// 削除は単一の論理操作であり、購読だけ消えて記事が残る中間状態を
// 公開しない。
func (s *Service) Delete(ctx context.Context, id string) error {
	sub, err := s.subRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("購読の取得に失敗しました: %w", err)
	}
	if sub == nil {
		return model.NewSubscriptionNotFoundError(id)
	}

	removed, err := s.subRepo.DeleteWithArticles(ctx, id)
	if err != nil {
		s.logger.Error("購読の削除に失敗",
			slog.String("subscription_id", id),
			slog.String("error", err.Error()),
		)
		return model.NewDeletionFailedError()
	}

	s.logger.Info("購読を削除",
		slog.String("subscription_id", id),
		slog.String("url", sub.URL),
		slog.Int("articles_removed", removed),
	)
	return nil
}

// ReconcileOrphans は購読に対応しない孤児記事を回収する。
// 削除の途中でクラッシュした場合に残る記事の後始末として
// 起動時に実行する。戻り値は回収した記事数。
func (s *Service) ReconcileOrphans(ctx context.Context) (int, error) {
	subs, err := s.subRepo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}

	liveURLs := make([]string, len(subs))
	for i, sub := range subs {
		liveURLs[i] = sub.URL
	}

	purged, err := s.artRepo.PurgeOrphans(ctx, liveURLs)
	if err != nil {
		return 0, fmt.Errorf("孤児記事の回収に失敗しました: %w", err)
	}
	if purged > 0 {
		s.logger.Info("孤児記事を回収", slog.Int("count", purged))
	}
	return purged, nil
}
