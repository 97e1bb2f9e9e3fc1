// Package server exposes interpreter sessions over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tliron/commonlog"

	"github.com/chazu/kutes/manifest"
	"github.com/chazu/kutes/vm"
)

var log = commonlog.GetLogger("kutes.server")

// KutesServer wraps a shared VM environment. Each session gets its own
// interpreter; all of them run on one worker goroutine.
type KutesServer struct {
	worker   *VMWorker
	handles  *HandleStore
	sessions *SessionStore
	config   *manifest.Manifest
	engine   *gin.Engine
	http     *http.Server

	stopSweeper func()
}

// New creates a KutesServer serving the views and limits of m.
func New(v *vm.VM, m *manifest.Manifest) *KutesServer {
	if m == nil {
		m = manifest.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	handles := NewHandleStore()
	s := &KutesServer{
		worker:   NewVMWorker(v),
		handles:  handles,
		sessions: NewSessionStore(handles),
		config:   m,
		engine:   gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestLogger())
	s.routes()

	ttl := m.Server.HandleTTL.Duration
	s.stopSweeper = handles.StartSweeper(ttl/6, ttl)
	return s
}

func (s *KutesServer) routes() {
	v1 := s.engine.Group("/v1")
	v1.POST("/sessions", s.createSession)
	v1.DELETE("/sessions/:id", s.destroySession)
	v1.PUT("/sessions/:id/document", s.putDocument)
	v1.POST("/sessions/:id/eval", s.eval)
	v1.POST("/sessions/:id/table", s.table)
	v1.GET("/handles/:hid", s.getHandle)
	v1.DELETE("/handles/:hid", s.releaseHandle)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Handler returns the HTTP handler, for embedding or tests.
func (s *KutesServer) Handler() http.Handler {
	return s.engine
}

// ListenAndServe starts the HTTP server on the given address.
func (s *KutesServer) ListenAndServe(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.engine}
	log.Infof("kutes server listening on %s", addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, waits for in-flight ones and then
// stops the worker.
func (s *KutesServer) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	s.Stop()
	return err
}

// Stop shuts down the sweeper and worker.
func (s *KutesServer) Stop() {
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	s.worker.Stop()
}
