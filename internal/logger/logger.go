// Package logger はJSON構造化ログのセットアップを提供する。
// コンテナ運用を前提に、全ログをINFOレベル以上のJSON1行で出力する。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup は指定writerに出力するJSON構造化ログのslog.Loggerを返す。
// writerがnilの場合はos.Stdoutに出力する。
func Setup(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログをグローバルロガーとして設定する。
// アプリ起動時に一度だけ呼ぶ。
func SetupDefault(w io.Writer) {
	slog.SetDefault(Setup(w))
}
