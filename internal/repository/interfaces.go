// Package repository はデータ永続化のインターフェースを定義する。
//
// インターフェースは同期エンジン非依存の順序付きコレクション操作
// （一覧・追加・更新・削除）と変更通知で構成され、ワークフロー層と
// UI層は具体的なストア実装に依存しない。
package repository

import (
	"context"

	"github.com/hitoshi/feedic/internal/model"
)

// ChangeListener はコレクション変更時に呼ばれる通知コールバック。
// 引数を持たない。リスナー側は必要なら再取得する。
type ChangeListener func()

// SubscriptionRepository は購読データの永続化インターフェース。
type SubscriptionRepository interface {
	// List は全購読を作成順で返す。
	List(ctx context.Context) ([]*model.Subscription, error)

	// FindByID は指定IDの購読を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Subscription, error)

	// FindByURL はURL完全一致で購読を検索する。見つからない場合はnilを返す。
	FindByURL(ctx context.Context, url string) (*model.Subscription, error)

	// Create は購読を作成する。IDが空の場合はストアが採番する。
	Create(ctx context.Context, sub *model.Subscription) error

	// DeleteWithArticles は購読と、feed_urlが一致する全記事を
	// 単一の論理操作として削除する。戻り値は削除された記事数。
	DeleteWithArticles(ctx context.Context, id string) (int, error)

	// Watch はコレクション変更時に呼ばれるリスナーを登録する。
	Watch(listener ChangeListener)
}

// ArticleRepository は記事データの永続化インターフェース。
type ArticleRepository interface {
	// List は全記事を返す。順序はストア依存であり、表示順ソートは呼び出し側が行う。
	List(ctx context.Context) ([]*model.Article, error)

	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Article, error)

	// UpsertBatch は記事バッチをUPSERTする。
	// 同一性判定は(feed_url, guid)で行い、既存記事はisReadを保持したまま
	// 内容を上書きする。IDが空の新規記事はストアが採番する。
	// 戻り値は挿入数と更新数。
	UpsertBatch(ctx context.Context, articles []*model.Article) (inserted int, updated int, err error)

	// MarkRead は記事を既読にする。既に既読の場合は何もしない（冪等）。
	MarkRead(ctx context.Context, id string) error

	// MarkAllRead は全未読記事を既読にする。戻り値は遷移した記事数。
	MarkAllRead(ctx context.Context) (int, error)

	// CountUnread は未読記事数を返す。常にライブな記事コレクションから導出する。
	CountUnread(ctx context.Context) (int, error)

	// PurgeOrphans はliveURLsに含まれないfeed_urlを持つ記事を削除する。
	// 購読削除と記事削除の間でクラッシュした場合の回収用。戻り値は削除数。
	PurgeOrphans(ctx context.Context, liveURLs []string) (int, error)

	// Watch はコレクション変更時に呼ばれるリスナーを登録する。
	Watch(listener ChangeListener)
}
