package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"

	"github.com/nao1215/signup-relay/pkg/httpclient"
)

// Config は診断ツールの設定。
type Config struct {
	// URL はリレーエンドポイントのURL。
	URL string `env:"RELAY_URL" usage:"Relay endpoint URL"`
	// WorkerURL はURLが未設定の場合に使う旧名の環境変数。
	WorkerURL string `env:"CLOUDFLARE_WORKER_URL" usage:"Relay endpoint URL (legacy name)"`
	// SharedSecret はリレーの共有シークレット。
	SharedSecret string `env:"SHARED_SECRET" required:"true" usage:"Shared secret of the relay"`
	// Email は送信するメールアドレス。空の場合は時刻から生成する。
	Email string `env:"PROBE_EMAIL" usage:"Email to sign up (default: test-user-<unix-ms>@example.com)"`
	// Name は送信する表示名。
	Name string `default:"Test User" env:"PROBE_NAME" usage:"Name to sign up"`
	// Timeout はリクエストのタイムアウト。
	Timeout time.Duration `default:"30s" env:"PROBE_TIMEOUT" usage:"Request timeout"`
}

// LoadConfig は環境変数から設定を読み込む。
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags:        true,
		SkipFiles:        true,
		AllowUnknownEnvs: true,
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if cfg.endpoint() == "" {
		return nil, errors.New("relay URL is required: set RELAY_URL or CLOUDFLARE_WORKER_URL")
	}
	return &cfg, nil
}

// endpoint は送信先のURLを返す。
func (c *Config) endpoint() string {
	if c.URL != "" {
		return c.URL
	}
	return c.WorkerURL
}

// signupPayload は送信するサインアップイベント。
type signupPayload struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Result はリレーの応答。
type Result struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Body はレスポンスボディ。
	Body string
}

// Run はサンプルのサインアップイベントを1件送信し、応答をそのまま返す。
// エラーになるのは送受信に失敗した場合のみで、4xx/5xxは結果として返す。
func Run(ctx context.Context, cfg Config, now time.Time) (*Result, error) {
	email := cfg.Email
	if email == "" {
		email = fmt.Sprintf("test-user-%d@example.com", now.UnixMilli())
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.SharedSecret)

	// URLは指定されたとおりに送る。末尾の "/" を正規化させないためパスを分けて渡す
	u, err := url.Parse(cfg.endpoint())
	if err != nil {
		return nil, errors.Wrap(err, "parse relay URL")
	}
	client := httpclient.New(u.Scheme+"://"+u.Host, httpclient.WithTimeout(cfg.Timeout))
	resp, err := client.Do(ctx, http.MethodPost, u.RequestURI(), header, signupPayload{Email: email, Name: cfg.Name})
	if err != nil {
		return nil, errors.Wrap(err, "send signup")
	}
	return &Result{StatusCode: resp.StatusCode, Body: string(resp.Body)}, nil
}

// Print は結果を出力する。
func (r *Result) Print(w io.Writer) {
	fmt.Fprintln(w, "Status:", r.StatusCode)
	fmt.Fprintln(w, "Body:", r.Body)
}
