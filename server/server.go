package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"AirgapFM/logger"

	"github.com/gorilla/mux"
)

// Server 管理接口 HTTP 服务
type Server struct {
	addr   string
	router *mux.Router
}

// New 创建服务并注册管理路由
func New(addr string, h *AdminHandler) *Server {
	router := mux.NewRouter()
	RegisterAdminRoutes(router, h)
	return &Server{addr: addr, router: router}
}

// Handler 返回带 CORS 中间件的路由
// 预检请求在路由匹配之前直接返回
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.router)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run 启动服务，ctx 结束后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin API listening", logger.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down admin API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("admin API stopped")
	return nil
}
