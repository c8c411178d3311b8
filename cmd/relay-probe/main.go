// サインアップリレーの診断ツール。
// デプロイ済みのエンドポイントにサンプルのサインアップを1件送信し、
// ステータスとボディを表示する。
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nao1215/signup-relay/internal/probe"
)

func main() {
	cfg, err := probe.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗: %v\n", err)
		os.Exit(1)
	}

	res, err := probe.Run(context.Background(), *cfg, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "送信に失敗: %v\n", err)
		os.Exit(1)
	}
	res.Print(os.Stdout)
}
