package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tradepilot/internal/logger"
	"tradepilot/internal/manager"
	"tradepilot/internal/store"

	"github.com/gin-gonic/gin"
)

// Server exposes the strategy control API: launch, list, stop, and the
// leaderboard and trade history read models.
type Server struct {
	Manager *manager.Manager
	Store   store.Persistence

	httpSrv *http.Server
}

func NewServer(mgr *manager.Manager, persistence store.Persistence) *Server {
	return &Server{Manager: mgr, Store: persistence}
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/strategies", s.createStrategy)
		api.GET("/strategies", s.listStrategies)
		api.GET("/strategies/leaderboard", s.leaderboard)
		api.POST("/strategies/:id/stop", s.stopStrategy)
		api.GET("/strategies/:id/trades", s.listTrades)
	}
	return r
}

// Run serves the API until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, listen string) error {
	s.httpSrv = &http.Server{Addr: listen, Handler: s.router()}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("http: listening on %s", listen)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
