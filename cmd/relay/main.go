// サインアップリレーサービスのエントリポイント。
// 共有シークレットで認証したサインアップイベントを、Ghost Admin APIの
// メンバー作成に中継する。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"github.com/oklog/run"
	"go.uber.org/zap"

	"github.com/nao1215/signup-relay/internal/relay"
)

func main() {
	cfg, err := relay.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗: %v\n", err)
		os.Exit(1)
	}

	lg, err := newLogger(cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ロガーの初期化に失敗: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	if err := serve(cfg, lg); err != nil {
		lg.Fatal("Relay service stopped", zap.Error(err))
	}
}

// newLogger は設定に応じたzapロガーを生成する。
func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// serve はHTTPサーバーを起動し、シグナルを受けるまで動作させる。
func serve(cfg *relay.Config, lg *zap.Logger) error {
	server, err := relay.NewServer(*cfg, lg)
	if err != nil {
		return errors.Wrap(err, "init server")
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	var g run.Group
	{
		g.Add(func() error {
			lg.Info("Server listening", zap.String("addr", cfg.Addr), zap.String("path", cfg.Path))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "listen")
			}
			return nil
		}, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			lg.Info("Shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
			if err := httpServer.Shutdown(ctx); err != nil {
				lg.Error("Server shutdown error", zap.Error(err))
			}
		})
	}
	{
		sig := make(chan os.Signal, 1)
		cancel := make(chan struct{})
		g.Add(func() error {
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			select {
			case s := <-sig:
				lg.Info("Received signal", zap.Stringer("signal", s))
			case <-cancel:
			}
			return nil
		}, func(error) {
			signal.Stop(sig)
			close(cancel)
		})
	}

	return g.Run()
}
