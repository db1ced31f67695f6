package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/feedic/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した購読リポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB

	mu        sync.Mutex
	listeners []ChangeListener
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// List は全購読を作成順で返す。
func (r *PostgresSubscriptionRepo) List(ctx context.Context) ([]*model.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, url, title, owner_id, created_at, updated_at
		 FROM subscriptions ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var subs []*model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("購読一覧の読み取りに失敗しました: %w", err)
	}

	return subs, nil
}

// FindByID は指定IDの購読を取得する。見つからない場合はnilを返す。
func (r *PostgresSubscriptionRepo) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, url, title, owner_id, created_at, updated_at
		 FROM subscriptions WHERE id = $1`,
		id,
	)

	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("購読の取得に失敗しました: %w", err)
	}
	return sub, nil
}

// FindByURL はURL完全一致で購読を検索する。見つからない場合はnilを返す。
func (r *PostgresSubscriptionRepo) FindByURL(ctx context.Context, url string) (*model.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, url, title, owner_id, created_at, updated_at
		 FROM subscriptions WHERE url = $1`,
		url,
	)

	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("URLによる購読の検索に失敗しました: %w", err)
	}
	return sub, nil
}

// Create は購読を作成する。IDが空の場合は採番する。
func (r *PostgresSubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
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

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, url, title, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.URL, sub.Title, nullString(sub.OwnerID),
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("購読の作成に失敗しました: %w", err)
	}

	r.notify()
	return nil
}

// DeleteWithArticles は購読と関連記事を同一トランザクションで削除する。
// 戻り値は削除された記事数。
func (r *PostgresSubscriptionRepo) DeleteWithArticles(ctx context.Context, id string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	var url string
	err = tx.QueryRowContext(ctx,
		`DELETE FROM subscriptions WHERE id = $1 RETURNING url`, id,
	).Scan(&url)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("購読の削除に失敗しました: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM articles WHERE feed_url = $1`, url,
	)
	if err != nil {
		return 0, fmt.Errorf("関連記事の削除に失敗しました: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("削除のコミットに失敗しました: %w", err)
	}

	r.notify()
	return int(removed), nil
}

// Watch はコレクション変更時に呼ばれるリスナーを登録する。
func (r *PostgresSubscriptionRepo) Watch(listener ChangeListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, listener)
}

// notify は登録済みリスナーに変更を通知する。
func (r *PostgresSubscriptionRepo) notify() {
	r.mu.Lock()
	listeners := make([]ChangeListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	for _, l := range listeners {
		l()
	}
}

// rowScanner はsql.Rowとsql.Rowsを共通に扱うためのインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSubscription は1行分の購読レコードをスキャンする。
func scanSubscription(row rowScanner) (*model.Subscription, error) {
	sub := &model.Subscription{}
	var ownerID sql.NullString

	err := row.Scan(&sub.ID, &sub.URL, &sub.Title, &ownerID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}

	sub.OwnerID = nullStringValue(ownerID)
	return sub, nil
}

// nullString は空文字列をNULLに変換する。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullStringValue はNULL許容文字列を空文字列付きで取り出す。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
