package ui

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"painel/domain/dataset"
	datasetsvc "painel/internal/dataset"
	"painel/internal/filtering"
	"painel/internal/session"
	"painel/ports"

	"github.com/gin-gonic/gin"
)

// Server is the dashboard JSON API
type Server struct {
	router    *gin.Engine
	catalog   ports.DatasetCatalog
	processor *datasetsvc.Processor
	engine    *filtering.Engine
	sessions  *session.Store
	maxUpload int64

	// Decoded catalog entries, dropped on process and delete
	entryCache map[string]*dataset.Entry
	cacheMutex sync.RWMutex
}

// Options configures a Server
type Options struct {
	Catalog        ports.DatasetCatalog
	Processor      *datasetsvc.Processor
	Engine         *filtering.Engine
	Sessions       *session.Store
	MaxUploadBytes int64
	GinMode        string
}

// NewServer creates the server and registers its routes
func NewServer(opts Options) *Server {
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}
	if opts.Engine == nil {
		opts.Engine = filtering.NewEngine(filtering.DefaultCacheSize)
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewStore()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 * 1024 * 1024
	}

	s := &Server{
		router:     gin.New(),
		catalog:    opts.Catalog,
		processor:  opts.Processor,
		engine:     opts.Engine,
		sessions:   opts.Sessions,
		maxUpload:  opts.MaxUploadBytes,
		entryCache: make(map[string]*dataset.Entry),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.POST("/uploads", s.handleUpload)

		api.POST("/datasets", s.handleProcess)
		api.GET("/datasets", s.handleListDatasets)
		api.GET("/datasets/:name", s.handleGetDataset)
		api.DELETE("/datasets/:name", s.handleDeleteDataset)
		api.POST("/datasets/:name/view", s.handleView)
		api.POST("/datasets/:name/compare", s.handleCompare)
		api.POST("/datasets/:name/export", s.handleExport)

		api.POST("/sessions", s.handleCreateSession)
		api.GET("/sessions/:id", s.handleGetSession)
		api.DELETE("/sessions/:id", s.handleDeleteSession)
		api.PUT("/sessions/:id/filters", s.handleSetSessionFilters)
		api.PUT("/sessions/:id/dataset", s.handleSwitchSessionDataset)
		api.POST("/sessions/:id/reset", s.handleResetSession)
	}
}

// Start listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Dashboard API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("[Server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(c *gin.Context) {
	stats := s.engine.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.sessions.Len(),
		"filter_cache": gin.H{
			"hits":    stats.Hits,
			"misses":  stats.Misses,
			"entries": stats.Entries,
		},
	})
}

// loadEntry returns the catalog entry, decoding it at most once per process.
func (s *Server) loadEntry(ctx context.Context, name string) (*dataset.Entry, error) {
	s.cacheMutex.RLock()
	entry, ok := s.entryCache[name]
	s.cacheMutex.RUnlock()
	if ok {
		return entry, nil
	}

	entry, err := s.catalog.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	s.cacheMutex.Lock()
	s.entryCache[name] = entry
	s.cacheMutex.Unlock()
	return entry, nil
}

func (s *Server) forgetEntry(name string) {
	s.cacheMutex.Lock()
	delete(s.entryCache, name)
	s.cacheMutex.Unlock()
}
