// Package proxy はフィード取得プロキシを提供する。
// 対象URLを制限付きタイムアウトで取得し、gofeedでパースして
// 正規化済みの記事リストに変換する。
package proxy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/feedic/internal/feeddiscovery"
	"github.com/hitoshi/feedic/internal/model"
)

// maxArticles は1回の取得で返す記事数の上限。
const maxArticles = 20

// userAgent は外向きリクエストの識別用クライアントヘッダー。
const userAgent = "Feedic RSS Reader/1.0"

// SafeClientFactory はSSRF防止付きHTTPクライアント生成のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SafeClientFactory interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// Sanitizer は記事説明文のサニタイズのインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// LatencyRecorder はフェッチレイテンシ計測のインターフェース。
type LatencyRecorder interface {
	RecordFetchLatency(duration time.Duration)
}

// Fetcher はフィードのHTTPフェッチとパースを行う。
// FetchFeedはHTTPエンドポイントと取り込みワークフローの両方から
// 同一のインプロセス呼び出しとして使用される。
type Fetcher struct {
	clientFactory SafeClientFactory
	sanitizer     Sanitizer
	recorder      LatencyRecorder
	logger        *slog.Logger
	timeout       time.Duration
	maxBodySize   int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
// recorderはnil可（計測なしで動作する）。
func NewFetcher(
	clientFactory SafeClientFactory,
	sanitizer Sanitizer,
	recorder LatencyRecorder,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
) *Fetcher {
	return &Fetcher{
		clientFactory: clientFactory,
		sanitizer:     sanitizer,
		recorder:      recorder,
		logger:        logger,
		timeout:       timeout,
		maxBodySize:   maxBodySize,
	}
}

// FetchFeed は指定URLのフィードを取得し、正規化済みフィードを返す。
// 対象がHTMLページだった場合は <link rel="alternate"> からフィードURLを
// 1ホップだけ自動検出して取得し直す。
// リトライは行わない。失敗は全て呼び出し側でFETCH_FAILEDとして扱われる。
func (f *Fetcher) FetchFeed(ctx context.Context, rawURL string) (*model.ParsedFeed, error) {
	start := time.Now()
	defer func() {
		if f.recorder != nil {
			f.recorder.RecordFetchLatency(time.Since(start))
		}
	}()

	contentType, body, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	// HTMLページの場合はフィードリンクの自動検出を試みる
	if !feeddiscovery.IsDirectFeed(contentType, body) {
		if discovered := feeddiscovery.DiscoverFeedURL(body, rawURL); discovered != "" {
			f.logger.Info("フィードURLを自動検出しました",
				slog.String("input_url", rawURL),
				slog.String("feed_url", discovered),
			)
			if _, body, err = f.get(ctx, discovered); err != nil {
				return nil, err
			}
		}
	}

	parser := gofeed.NewParser()
	parsedFeed, err := parser.ParseString(string(body))
	if err != nil {
		f.logger.Error("フィードのパースに失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("フィードのパースに失敗: %w", err)
	}

	return normalizeFeed(parsedFeed, f.sanitizer), nil
}

// get は対象URLをSSRF防止付きクライアントで取得し、Content-Typeとボディを返す。
func (f *Fetcher) get(ctx context.Context, rawURL string) (string, []byte, error) {
	if err := f.clientFactory.ValidateURL(rawURL); err != nil {
		return "", nil, fmt.Errorf("URL検証に失敗: %w", err)
	}

	client := f.clientFactory.NewSafeClient(f.timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("予期しないHTTPステータス: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return "", nil, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}

	return resp.Header.Get("Content-Type"), body, nil
}

// normalizeFeed はgofeedのフィードを正規化済みのParsedFeedに変換する。
// 記事は先頭maxArticles件に切り詰め、欠落フィールドはデフォルト値で補完する。
func normalizeFeed(feed *gofeed.Feed, sanitizer Sanitizer) *model.ParsedFeed {
	result := &model.ParsedFeed{
		Title:       feed.Title,
		Description: feed.Description,
	}
	if result.Title == "" {
		result.Title = "Unknown Feed"
	}

	items := feed.Items
	if len(items) > maxArticles {
		items = items[:maxArticles]
	}

	result.Articles = make([]model.ParsedArticle, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		result.Articles = append(result.Articles, normalizeItem(item, sanitizer))
	}

	return result
}

// normalizeItem は1記事分を正規化する。
// デフォルト: title→"Untitled"、pubDate→現在時刻、description→
// サニタイズ済みのDescription（なければContent）、guid→link。
func normalizeItem(item *gofeed.Item, sanitizer Sanitizer) model.ParsedArticle {
	article := model.ParsedArticle{
		Title: item.Title,
		Link:  item.Link,
	}

	if article.Title == "" {
		article.Title = "Untitled"
	}

	article.PubDate = normalizePubDate(item)

	description := item.Description
	if description == "" {
		description = item.Content
	}
	article.Description = sanitizer.Sanitize(description)

	article.GUID = item.GUID
	if article.GUID == "" {
		article.GUID = item.Link
	}

	return article
}

// normalizePubDate は公開日時をISO-8601文字列に正規化する。
// 公開日時 > 更新日時 > 現在時刻の優先順で採用する。
func normalizePubDate(item *gofeed.Item) string {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC().Format(time.RFC3339)
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}
