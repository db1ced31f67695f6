// Package model はドメインモデルを定義する。
package model

import "time"

// Article はフィード取り込みで実体化された記事を表す。
// FeedURLは作成時点で存在するSubscription.URLを参照する。
// 作成後に変更されるフィールドはIsReadのみ（false→trueの単調遷移）。
type Article struct {
	ID          string
	FeedURL     string
	GUID        string // フィード項目のguid。欠落時はlinkで代用される。
	Title       string
	URL         string
	PubDate     string // ISO-8601形式の文字列。表示順は取得時にこの値でソートする。
	Description string // サニタイズ済みテキスト
	IsRead      bool
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ParsedFeed はフィード取得プロキシが返す正規化済みフィードを表す。
type ParsedFeed struct {
	Title       string
	Description string
	Articles    []ParsedArticle
}

// ParsedArticle はプロキシが正規化した未保存の記事データを表す。
// 欠落フィールドはプロキシ側でデフォルト値に補完される。
type ParsedArticle struct {
	Title       string
	Link        string
	PubDate     string
	Description string
	GUID        string
}
