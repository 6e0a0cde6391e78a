package proxy

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/siteharvester/gateway/apierr"
	"github.com/siteharvester/gateway/backend"
	"github.com/siteharvester/gateway/config"
	"github.com/siteharvester/gateway/slack"
)

const (
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"
)

// Routes served by the gateway.
const (
	RouteHarvest = "/api/harvest"
	RouteContact = "/api/contact"
	RouteHealth  = "/healthz"
)

// Deps are the collaborators of the gateway router.
type Deps struct {
	Log      zerolog.Logger
	Source   config.Source
	Backend  backend.Backend
	Notifier slack.Notifier
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// NewRouter builds the gin engine serving the proxy endpoints.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(
		withRequestLog(d.Log),
		gin.CustomRecovery(func(c *gin.Context, err any) {
			l := requestLogger(c, d.Log)
			l.Error().Interface("panic", err).Msg("Recovered from panic")
			c.AbortWithStatusJSON(http.StatusInternalServerError, apierr.New(apierr.MsgInternal))
		}),
	)

	harvest := NewHarvestHandler(d.Log.With().Str("route", "harvest").Logger(), d.Source, d.Backend)
	contact := NewContactHandler(d.Log.With().Str("route", "contact").Logger(), d.Source, d.Backend, d.Notifier)

	r.POST(RouteHarvest, harvest.Handle)
	r.POST(RouteContact, contact.Handle)
	r.GET(RouteHealth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, apierr.New(http.StatusText(http.StatusNotFound)))
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, apierr.New(http.StatusText(http.StatusMethodNotAllowed)))
	})

	return r
}

// withRequestLog tags every request with an ID and logs its outcome.
func withRequestLog(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		l := base.With().Str("request_id", id).Logger()
		c.Set(loggerKey, l)

		c.Next()

		l.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Int("size", c.Writer.Size()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}

func requestLogger(c *gin.Context, fallback zerolog.Logger) zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(zerolog.Logger); ok {
			return l
		}
	}
	return fallback
}

// Server runs the gateway router until its context is cancelled.
type Server struct {
	log  zerolog.Logger
	cfg  config.Server
	http *http.Server
}

func NewServer(log zerolog.Logger, cfg config.Server, handler http.Handler) *Server {
	return &Server{
		log: log,
		cfg: cfg,
		http: &http.Server{
			Addr:              cfg.Listen,
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		s.log.Info().Str("listen", s.cfg.Listen).Msg("Gateway listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server failed")
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.log.Info().Msg("Shutting down gateway")
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown failed")
		}
		return nil
	})

	return eg.Wait()
}
