package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
)

// DefaultTimeout は下流呼び出しのデフォルトタイムアウト。
const DefaultTimeout = 30 * time.Second

// Client は下流APIとの通信用HTTPクライアント。
// リトライは行わず、1回の呼び出し結果をそのまま返す。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先のベースURL。末尾の "/" は1つだけ取り除いて保持する。
	baseURL string
	// transport はotelhttpで包む前の下位のRoundTripper。
	transport http.RoundTripper
	// traceOpts はotelhttpのTransportに渡すオプション。
	traceOpts []otelhttp.Option
}

// Option はClientの設定を変更する関数。
type Option func(*Client)

// WithTimeout はリクエスト全体のタイムアウトを設定する。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithTransport は下位のRoundTripperを差し替える。
// メトリクス計測用のRoundTripperを挟む場合に使用する。
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithPropagators はトレースコンテキストを下流に伝播するプロパゲーターを設定する。
// 指定しない場合はotelのグローバルなプロパゲーターを使う。
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(c *Client) {
		c.traceOpts = append(c.traceOpts, otelhttp.WithPropagators(p))
	}
}

// New は新しいHTTPクライアントを生成する。
// baseURLには接続先のベースURL（例: "https://blog.example.com"）を指定する。
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		transport:  http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.Transport = otelhttp.NewTransport(c.transport, c.traceOpts...)
	return c
}

// BaseURL は正規化済みのベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StatusError は下流が2xx以外のステータスを返したことを表すエラー。
// ステータスコードとレスポンスボディをそのまま保持する。
type StatusError struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Body はレスポンスボディのテキスト。
	Body string
}

// Error はエラーメッセージを返す。
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// PostJSON は指定パスにJSONボディでPOSTリクエストを送信する。
// headerで追加のリクエストヘッダー（Authorization等）を指定できる。
// レスポンスボディをresultにデシリアライズする。
func (c *Client) PostJSON(ctx context.Context, path string, header http.Header, body any, result any) error {
	return c.doJSON(ctx, http.MethodPost, path, header, body, result)
}

// GetJSON は指定パスにGETリクエストを送信する。
// レスポンスボディをresultにデシリアライズする。
func (c *Client) GetJSON(ctx context.Context, path string, header http.Header, result any) error {
	return c.doJSON(ctx, http.MethodGet, path, header, nil, result)
}

// Response は下流からの応答。ボディは読み切った状態で保持する。
type Response struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Header はレスポンスヘッダー。
	Header http.Header
	// Body はレスポンスボディ。
	Body []byte
}

// Do はbodyをJSONとして送信し、ステータスに関わらず応答をそのまま返す。
// bodyがnilの場合はボディなしで送信する。エラーになるのは送受信に失敗した場合のみ。
func (c *Client) Do(ctx context.Context, method, path string, header http.Header, body any) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request body")
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	// コンテキストからリクエストIDを伝播する
	if requestID, ok := ctx.Value(contextKeyRequestID).(string); ok && requestID != "" {
		req.Header.Set(HeaderRequestID, requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

// doJSON はJSON形式のHTTPリクエストを実行する共通処理。
// 2xx以外の応答はStatusErrorとして返す。
func (c *Client) doJSON(ctx context.Context, method, path string, header http.Header, body any, result any) error {
	resp, err := c.Do(ctx, method, path, header, body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return errors.Wrap(err, "decode response body")
		}
	}

	return nil
}

// HeaderRequestID はリクエストIDを伝播するためのHTTPヘッダーキー。
const HeaderRequestID = "X-Request-ID"

// contextKey はコンテキストキーの型。
type contextKey string

// contextKeyRequestID はコンテキストにリクエストIDを格納するためのキー。
const contextKeyRequestID contextKey = "request_id"

// WithRequestID はコンテキストにリクエストIDを設定する。
// 受信リクエストのIDを下流呼び出しに伝播するために使用する。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}
