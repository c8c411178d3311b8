package relay

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const (
	// defaultAddr はリッスンアドレスのデフォルト値。
	defaultAddr              = ":8080"
	defaultDownstreamTimeout = 30 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
)

// defaultConfigFiles は設定ファイルの探索パス。存在しなければ無視する。
var defaultConfigFiles = []string{"relay.yaml", "/etc/signup-relay/relay.yaml"}

// Config はリレーサーバーの設定。
// 環境変数とYAMLファイルから読み込み、NewServerに明示的に渡す。
type Config struct {
	// Addr はHTTPサーバーのリッスンアドレス。
	Addr string `default:":8080" env:"RELAY_ADDR" yaml:"addr" usage:"HTTP listen address"`
	// Path は中継エンドポイントのパス。
	Path string `default:"/" env:"RELAY_PATH" yaml:"path" usage:"Relay endpoint path"`
	// SharedSecret は受信リクエストの認証に使う共有シークレット。
	SharedSecret string `env:"SHARED_SECRET" yaml:"shared_secret" required:"true" usage:"Shared secret expected in 'Authorization: Bearer <secret>'"`
	// GhostURL はGhostサイトのベースURL。
	GhostURL string `env:"GHOST_URL" yaml:"ghost_url" required:"true" usage:"Ghost site base URL"`
	// GhostAdminKey は "id:secret-hex" 形式のAdmin APIキー。
	// 形式はリクエストごとのトークン発行時に検証する。
	GhostAdminKey string `env:"GHOST_ADMIN_KEY" yaml:"ghost_admin_key" required:"true" usage:"Ghost Admin API key (id:secret-hex)"`
	// AllowedOrigins はCORSを許可するオリジン。空の場合はCORSを無効にする。
	AllowedOrigins []string `env:"RELAY_ALLOWED_ORIGINS" yaml:"allowed_origins" usage:"Allowed CORS origins"`
	// DownstreamTimeout はGhost呼び出しのタイムアウト。
	DownstreamTimeout time.Duration `default:"30s" env:"RELAY_DOWNSTREAM_TIMEOUT" yaml:"downstream_timeout" usage:"Ghost Admin API request timeout"`
	// ShutdownTimeout はグレースフルシャットダウンの最大待ち時間。
	ShutdownTimeout time.Duration `default:"10s" env:"RELAY_SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" usage:"Graceful shutdown timeout"`
	// LogDevelopment がtrueの場合は開発向けのロガーを使う。
	LogDevelopment bool `default:"false" env:"RELAY_LOG_DEVELOPMENT" yaml:"log_development" usage:"Use development logger"`
}

// LoadConfig は環境変数と設定ファイルから設定を読み込む。
func LoadConfig() (*Config, error) {
	return loadConfig(defaultConfigFiles)
}

// loadConfig は指定した設定ファイルと環境変数から設定を読み込む。
func loadConfig(files []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags:        true,
		AllowUnknownEnvs: true,
		Files:            files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults はPaaSが設定するPORT環境変数をリッスンアドレスに反映する。
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = ":" + port
	}
}

// Validate は必須項目が設定されているかを検証する。
// Admin APIキーの形式はここでは検証しない。
func (c *Config) Validate() error {
	if c.SharedSecret == "" {
		return errors.New("shared secret is required: set SHARED_SECRET")
	}
	if c.GhostURL == "" {
		return errors.New("ghost URL is required: set GHOST_URL")
	}
	if c.GhostAdminKey == "" {
		return errors.New("ghost admin key is required: set GHOST_ADMIN_KEY")
	}
	if c.Path == "" || c.Path[0] != '/' {
		return errors.Errorf("relay path must start with '/': %q", c.Path)
	}
	return nil
}

// applyDefaults はゼロ値の項目にデフォルト値を設定する。
func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = defaultAddr
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.DownstreamTimeout <= 0 {
		c.DownstreamTimeout = defaultDownstreamTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
}
