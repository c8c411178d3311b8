package relay

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/nao1215/signup-relay/pkg/ghostadmin"
	"github.com/nao1215/signup-relay/pkg/httpclient"
	"github.com/nao1215/signup-relay/pkg/middleware"
)

// serviceName はヘルスチェックで返すサービス名。スパン名にも使う。
const serviceName = "signup-relay"

// tracePropagator は受信リクエストのトレースコンテキストをGhost呼び出しに引き継ぐ。
var tracePropagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// Server はサインアップリレーのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// handler はrouterをotelhttpで包んだハンドラ。
	handler http.Handler
	// cfg はサーバーの設定。
	cfg Config
	// lg は構造化ロガー。
	lg *zap.Logger
	// members はGhostのメンバー作成クライアント。
	members *ghostadmin.Client
	// registry はこのサーバー専用のメトリクスレジストリ。
	registry *prometheus.Registry
	// metrics はリレーのメトリクス。
	metrics *metrics
	// now はトークンの発行時刻を返す。
	now func() time.Time
}

// NewServer は新しいリレーサーバーを生成する。
func NewServer(cfg Config, lg *zap.Logger) (*Server, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := newMetrics(registry)

	hc := httpclient.New(cfg.GhostURL,
		httpclient.WithTimeout(cfg.DownstreamTimeout),
		httpclient.WithTransport(m.instrumentRoundTripper(http.DefaultTransport)),
		httpclient.WithPropagators(tracePropagator),
	)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(lg))
	router.Use(middleware.Recovery(lg))
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(middleware.CORS(cfg.AllowedOrigins))
	}

	s := &Server{
		router:   router,
		handler:  otelhttp.NewHandler(router, serviceName, otelhttp.WithPropagators(tracePropagator)),
		cfg:      cfg,
		lg:       lg,
		members:  ghostadmin.NewClient(hc),
		registry: registry,
		metrics:  m,
		now:      time.Now,
	}
	s.setupRoutes()

	return s, nil
}

// Handler はサーバーのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRoutes はルーティングを設定する。
func (s *Server) setupRoutes() {
	s.router.POST(s.cfg.Path, s.handleSignup())
	s.router.NoMethod(s.handleMethodNotAllowed())

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
	s.router.GET("/metrics",
		middleware.SharedSecretAuth(s.cfg.SharedSecret),
		gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})),
	)
}
