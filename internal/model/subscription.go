// Package model はドメインモデルを定義する。
package model

import "time"

// Subscription はユーザーが登録したフィード購読を表す。
// URLはストア内で一意であり、重複登録は作成前に拒否される。
type Subscription struct {
	ID        string
	URL       string
	Title     string
	OwnerID   string // アカウント連携用の任意フィールド。未連携の場合は空。
	CreatedAt time.Time
	UpdatedAt time.Time
}
