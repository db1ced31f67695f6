package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/feedic/internal/model"
)

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB

	mu        sync.Mutex
	listeners []ChangeListener
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

const articleColumns = `id, feed_url, guid, title, url, pub_date, description, is_read, owner_id, created_at, updated_at`

// List は全記事を返す。表示順ソートは呼び出し側が行う。
func (r *PostgresArticleRepo) List(ctx context.Context) ([]*model.Article, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var articles []*model.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記事一覧の読み取りに失敗しました: %w", err)
	}

	return articles, nil
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindByID(ctx context.Context, id string) (*model.Article, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = $1`, id,
	)

	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	return article, nil
}

// UpsertBatch は記事バッチを(feed_url, guid)の同一性判定でUPSERTする。
// 既存記事はisReadを保持したまま内容を上書きする。
// guidが空の記事は同一性判定ができないため常に挿入する。
func (r *PostgresArticleRepo) UpsertBatch(ctx context.Context, articles []*model.Article) (inserted int, updated int, err error) {
	if len(articles) == 0 {
		return 0, 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	for _, article := range articles {
		if article.ID == "" {
			article.ID = uuid.New().String()
		}
		if article.CreatedAt.IsZero() {
			article.CreatedAt = now
		}
		article.UpdatedAt = now

		if article.GUID == "" {
			// 同一性判定の手掛かりがない記事はそのまま挿入する
			_, execErr := tx.ExecContext(ctx,
				`INSERT INTO articles (`+articleColumns+`)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				article.ID, article.FeedURL, article.GUID, article.Title,
				article.URL, article.PubDate, nullString(article.Description),
				article.IsRead, nullString(article.OwnerID),
				article.CreatedAt, article.UpdatedAt,
			)
			if execErr != nil {
				return 0, 0, fmt.Errorf("記事の挿入に失敗しました: %w", execErr)
			}
			inserted++
			continue
		}

		// guidあり: 部分一意インデックス(feed_url, guid)でUPSERTする。
		// is_readは既存値を保持する（false→trueの単調性を壊さない）。
		var wasInserted bool
		upsertErr := tx.QueryRowContext(ctx,
			`INSERT INTO articles (`+articleColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (feed_url, guid) WHERE guid <> ''
			 DO UPDATE SET
			     title = EXCLUDED.title,
			     url = EXCLUDED.url,
			     pub_date = EXCLUDED.pub_date,
			     description = EXCLUDED.description,
			     updated_at = EXCLUDED.updated_at
			 RETURNING (xmax = 0)`,
			article.ID, article.FeedURL, article.GUID, article.Title,
			article.URL, article.PubDate, nullString(article.Description),
			article.IsRead, nullString(article.OwnerID),
			article.CreatedAt, article.UpdatedAt,
		).Scan(&wasInserted)
		if upsertErr != nil {
			return 0, 0, fmt.Errorf("記事のUPSERTに失敗しました: %w", upsertErr)
		}

		if wasInserted {
			inserted++
		} else {
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("記事UPSERTのコミットに失敗しました: %w", err)
	}

	r.notify()
	return inserted, updated, nil
}

// MarkRead は記事を既読にする。既に既読の場合は何もしない（冪等）。
func (r *PostgresArticleRepo) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE articles SET is_read = TRUE, updated_at = now()
		 WHERE id = $1 AND is_read = FALSE`,
		id,
	)
	if err != nil {
		return fmt.Errorf("既読化に失敗しました: %w", err)
	}

	if affected, raErr := result.RowsAffected(); raErr == nil && affected > 0 {
		r.notify()
	}
	return nil
}

// MarkAllRead は全未読記事を既読にする。戻り値は遷移した記事数。
func (r *PostgresArticleRepo) MarkAllRead(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE articles SET is_read = TRUE, updated_at = now()
		 WHERE is_read = FALSE`,
	)
	if err != nil {
		return 0, fmt.Errorf("一括既読化に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("既読化件数の取得に失敗しました: %w", err)
	}

	if affected > 0 {
		r.notify()
	}
	return int(affected), nil
}

// CountUnread は未読記事数を返す。
func (r *PostgresArticleRepo) CountUnread(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE is_read = FALSE`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("未読数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// PurgeOrphans はliveURLsに含まれないfeed_urlを持つ記事を削除する。
func (r *PostgresArticleRepo) PurgeOrphans(ctx context.Context, liveURLs []string) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM articles WHERE NOT (feed_url = ANY($1))`,
		pq.Array(liveURLs),
	)
	if err != nil {
		return 0, fmt.Errorf("孤児記事の削除に失敗しました: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}

	if removed > 0 {
		r.notify()
	}
	return int(removed), nil
}

// Watch はコレクション変更時に呼ばれるリスナーを登録する。
func (r *PostgresArticleRepo) Watch(listener ChangeListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, listener)
}

// notify は登録済みリスナーに変更を通知する。
func (r *PostgresArticleRepo) notify() {
	r.mu.Lock()
	listeners := make([]ChangeListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	for _, l := range listeners {
		l()
	}
}

// scanArticle は1行分の記事レコードをスキャンする。
func scanArticle(row rowScanner) (*model.Article, error) {
	article := &model.Article{}
	var description, ownerID sql.NullString

	err := row.Scan(
		&article.ID, &article.FeedURL, &article.GUID, &article.Title,
		&article.URL, &article.PubDate, &description, &article.IsRead,
		&ownerID, &article.CreatedAt, &article.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	article.Description = nullStringValue(description)
	article.OwnerID = nullStringValue(ownerID)
	return article, nil
}
