package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wastewater-dashboards/surveillance-review/internal/audit"
	"github.com/wastewater-dashboards/surveillance-review/internal/datasets"
	"github.com/wastewater-dashboards/surveillance-review/internal/edit"
	"github.com/wastewater-dashboards/surveillance-review/internal/identity"
	"github.com/wastewater-dashboards/surveillance-review/internal/metrics"
	"github.com/wastewater-dashboards/surveillance-review/internal/notify"
	"github.com/wastewater-dashboards/surveillance-review/internal/session"
	"github.com/wastewater-dashboards/surveillance-review/internal/snapshot"
	"github.com/wastewater-dashboards/surveillance-review/services/api/config"
)

// SessionHeader carries the session id between requests.
const SessionHeader = "X-Session-ID"

// Deps are the collaborators the handlers need.
type Deps struct {
	Registry *datasets.Registry
	Sources  map[string]datasets.Source
	Log      audit.Log
	Edits    *edit.Controller
	Sessions *session.Manager
	Latest   *snapshot.Refresher
	Hub      *notify.Hub
	Metrics  *metrics.Recorder
	Logger   logrus.FieldLogger
	// Admin gates the change log viewer.
	Admin identity.Authorizer
	// Health, when set, is checked by /healthz.
	Health func(ctx context.Context) error
}

// Server bundles router and dependencies for the review API.
type Server struct {
	cfg    config.Config
	deps   Deps
	engine *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(deps.Logger))
	engine.Use(corsMiddleware())

	if cfg.BearerToken != "" {
		engine.Use(bearerAuthMiddleware(cfg.BearerToken))
	}

	server := &Server{cfg: cfg, deps: deps, engine: engine}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}
	s.registerV1Routes()
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := s.deps.Health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+SessionHeader+", "+identity.CredentialsHeader)
		c.Header("Access-Control-Expose-Headers", SessionHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

const sessionKey = "session"

// sessionMiddleware resolves the caller from the proxy header and binds the
// request to its session, creating one when the client has none yet.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		who, err := identity.FromHeader(c.GetHeader(identity.CredentialsHeader))
		if err != nil {
			s.deps.Logger.WithError(err).Warn("ignoring malformed credentials header")
		}
		sess := s.deps.Sessions.Open(c.GetHeader(SessionHeader), who)
		c.Set(sessionKey, sess)
		c.Set("user", who.User)
		c.Header(SessionHeader, sess.ID)
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		if user, ok := c.Get("user"); ok {
			entry = entry.WithField("user", user)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}
