package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/feedic/internal/model"
)

// MemoryStore は購読と記事を順序付きスライスで保持するインメモリストア。
// SubscriptionRepositoryとArticleRepositoryの両方を実装する。
// 元のクライアントサイド同期ストアと同じリスト操作意味論
// （追加は末尾、削除は末尾から先頭へ向かうスプライス）を持ち、
// 開発時の永続化なし起動とテストで使用する。
type MemoryStore struct {
	mu            sync.RWMutex
	subscriptions []*model.Subscription
	articles      []*model.Article

	listenerMu   sync.Mutex
	subListeners []ChangeListener
	artListeners []ChangeListener
}

// NewMemoryStore は空のMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SubscriptionRepo はSubscriptionRepositoryビューを返す。
func (s *MemoryStore) SubscriptionRepo() SubscriptionRepository {
	return (*memorySubscriptionRepo)(s)
}

// ArticleRepo はArticleRepositoryビューを返す。
func (s *MemoryStore) ArticleRepo() ArticleRepository {
	return (*memoryArticleRepo)(s)
}

// memorySubscriptionRepo はMemoryStoreの購読ビュー。
type memorySubscriptionRepo MemoryStore

// List は全購読を追加順で返す。
func (r *memorySubscriptionRepo) List(ctx context.Context) ([]*model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]*model.Subscription, len(r.subscriptions))
	for i, sub := range r.subscriptions {
		copied := *sub
		subs[i] = &copied
	}
	return subs, nil
}

// FindByID は指定IDの購読を返す。見つからない場合はnil。
func (r *memorySubscriptionRepo) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sub := range r.subscriptions {
		if sub.ID == id {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, nil
}

// FindByURL はURL完全一致で購読を検索する。線形走査。
func (r *memorySubscriptionRepo) FindByURL(ctx context.Context, url string) (*model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sub := range r.subscriptions {
		if sub.URL == url {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, nil
}

// Create は購読を末尾に追加する。IDが空の場合は採番する。
func (r *memorySubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	now := time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = now
	}

	r.mu.Lock()
	copied := *sub
	r.subscriptions = append(r.subscriptions, &copied)
	r.mu.Unlock()

	(*MemoryStore)(r).notifySubscriptions()
	return nil
}

// DeleteWithArticles は購読を除去し、feed_urlが一致する記事を
// 末尾から先頭へ向かってスプライスする（走査中のインデックスずれ防止）。
func (r *memorySubscriptionRepo) DeleteWithArticles(ctx context.Context, id string) (int, error) {
	r.mu.Lock()

	idx := -1
	for i, sub := range r.subscriptions {
		if sub.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		r.mu.Unlock()
		return 0, nil
	}

	url := r.subscriptions[idx].URL
	r.subscriptions = append(r.subscriptions[:idx], r.subscriptions[idx+1:]...)

	removed := 0
	for i := len(r.articles) - 1; i >= 0; i-- {
		if r.articles[i].FeedURL == url {
			r.articles = append(r.articles[:i], r.articles[i+1:]...)
			removed++
		}
	}
	r.mu.Unlock()

	(*MemoryStore)(r).notifySubscriptions()
	if removed > 0 {
		(*MemoryStore)(r).notifyArticles()
	}
	return removed, nil
}

// Watch は購読コレクションのリスナーを登録する。
func (r *memorySubscriptionRepo) Watch(listener ChangeListener) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	r.subListeners = append(r.subListeners, listener)
}

// memoryArticleRepo はMemoryStoreの記事ビュー。
type memoryArticleRepo MemoryStore

// List は全記事を追加順で返す。
func (r *memoryArticleRepo) List(ctx context.Context) ([]*model.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	articles := make([]*model.Article, len(r.articles))
	for i, article := range r.articles {
		copied := *article
		articles[i] = &copied
	}
	return articles, nil
}

// FindByID は指定IDの記事を返す。見つからない場合はnil。
func (r *memoryArticleRepo) FindByID(ctx context.Context, id string) (*model.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, article := range r.articles {
		if article.ID == id {
			copied := *article
			return &copied, nil
		}
	}
	return nil, nil
}

// UpsertBatch は(feed_url, guid)一致で既存記事を上書きし、なければ末尾に追加する。
// 既存記事のisReadは保持する。
func (r *memoryArticleRepo) UpsertBatch(ctx context.Context, articles []*model.Article) (inserted int, updated int, err error) {
	if len(articles) == 0 {
		return 0, 0, nil
	}

	now := time.Now()

	r.mu.Lock()
	for _, incoming := range articles {
		if incoming.ID == "" {
			incoming.ID = uuid.New().String()
		}
		if incoming.CreatedAt.IsZero() {
			incoming.CreatedAt = now
		}
		incoming.UpdatedAt = now

		existing := (*model.Article)(nil)
		if incoming.GUID != "" {
			for _, article := range r.articles {
				if article.FeedURL == incoming.FeedURL && article.GUID == incoming.GUID {
					existing = article
					break
				}
			}
		}

		if existing != nil {
			existing.Title = incoming.Title
			existing.URL = incoming.URL
			existing.PubDate = incoming.PubDate
			existing.Description = incoming.Description
			existing.UpdatedAt = incoming.UpdatedAt
			updated++
		} else {
			copied := *incoming
			r.articles = append(r.articles, &copied)
			inserted++
		}
	}
	r.mu.Unlock()

	(*MemoryStore)(r).notifyArticles()
	return inserted, updated, nil
}

// MarkRead は記事を既読にする。既読済みなら何もしない。
func (r *memoryArticleRepo) MarkRead(ctx context.Context, id string) error {
	changed := false

	r.mu.Lock()
	for _, article := range r.articles {
		if article.ID == id {
			if !article.IsRead {
				article.IsRead = true
				article.UpdatedAt = time.Now()
				changed = true
			}
			break
		}
	}
	r.mu.Unlock()

	if changed {
		(*MemoryStore)(r).notifyArticles()
	}
	return nil
}

// MarkAllRead は全未読記事を既読にする。
func (r *memoryArticleRepo) MarkAllRead(ctx context.Context) (int, error) {
	now := time.Now()
	changed := 0

	r.mu.Lock()
	for _, article := range r.articles {
		if !article.IsRead {
			article.IsRead = true
			article.UpdatedAt = now
			changed++
		}
	}
	r.mu.Unlock()

	if changed > 0 {
		(*MemoryStore)(r).notifyArticles()
	}
	return changed, nil
}

// CountUnread は未読記事数を返す。
func (r *memoryArticleRepo) CountUnread(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, article := range r.articles {
		if !article.IsRead {
			count++
		}
	}
	return count, nil
}

// PurgeOrphans はliveURLsに含まれないfeed_urlを持つ記事を末尾から削除する。
func (r *memoryArticleRepo) PurgeOrphans(ctx context.Context, liveURLs []string) (int, error) {
	live := make(map[string]struct{}, len(liveURLs))
	for _, url := range liveURLs {
		live[url] = struct{}{}
	}

	removed := 0
	r.mu.Lock()
	for i := len(r.articles) - 1; i >= 0; i-- {
		if _, ok := live[r.articles[i].FeedURL]; !ok {
			r.articles = append(r.articles[:i], r.articles[i+1:]...)
			removed++
		}
	}
	r.mu.Unlock()

	if removed > 0 {
		(*MemoryStore)(r).notifyArticles()
	}
	return removed, nil
}

// Watch は記事コレクションのリスナーを登録する。
func (r *memoryArticleRepo) Watch(listener ChangeListener) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	r.artListeners = append(r.artListeners, listener)
}

// notifySubscriptions は購読リスナーに変更を通知する。
func (s *MemoryStore) notifySubscriptions() {
	s.listenerMu.Lock()
	listeners := make([]ChangeListener, len(s.subListeners))
	copy(listeners, s.subListeners)
	s.listenerMu.Unlock()

	for _, l := range listeners {
		l()
	}
}

// notifyArticles は記事リスナーに変更を通知する。
func (s *MemoryStore) notifyArticles() {
	s.listenerMu.Lock()
	listeners := make([]ChangeListener, len(s.artListeners))
	copy(listeners, s.artListeners)
	s.listenerMu.Unlock()

	for _, l := range listeners {
		l()
	}
}
