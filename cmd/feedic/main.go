// feedic はブラウザ向けRSSリーダーのバックエンドサーバー。
// サブコマンド: serve（デフォルト）、migrate、healthcheck
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/feedic/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "feedic: %v\n", err)
		os.Exit(1)
	}
}
