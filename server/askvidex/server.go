package askvidex

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kasuganosora/videx/pkg/domain"
	"github.com/kasuganosora/videx/pkg/logging"
	"github.com/kasuganosora/videx/pkg/remote"
)

// Server 统计服务
type Server struct {
	addr       string
	reader     domain.Reader
	logger     logging.Logger
	registry   *prometheus.Registry
	httpServer *http.Server

	once    sync.Once
	handler http.Handler
	mu      sync.Mutex
}

// NewServer 创建统计服务
func NewServer(addr string, reader domain.Reader, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		addr:     addr,
		reader:   reader,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
}

// Handler 组装路由和中间件，只构建一次
func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		s.handler = s.routes()
	})
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	})
	mux.Handle(remote.DefaultPath, NewHandler(s.reader, s.logger, s.registry))
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// Recovery → Logging
	return RecoveryMiddleware(s.logger)(LoggingMiddleware(s.logger)(mux))
}

// Start 监听并阻塞服务
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve 在已有监听上服务
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("[ASKVIDEX] 启动统计服务: %s", ln.Addr())
	err := srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}
