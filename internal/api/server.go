package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/usefence/licensed/internal/license"
	"github.com/usefence/licensed/internal/license/payment"
)

// Ledger is the subset of *license.Service the handlers call.
type Ledger interface {
	Store(ctx context.Context, code, email string, typ license.LicenseType) (bool, error)
	Activate(ctx context.Context, code, deviceID string) (*license.Activation, error)
	Recover(ctx context.Context, deviceID string) (*license.LicenseRecord, bool, error)
	CheckTrial(ctx context.Context, deviceID string) (*license.TrialStatus, error)
}

// Notifier delivers customer email, directly or through the job queue.
type Notifier interface {
	SendLicenseEmail(ctx context.Context, email, code string, typ license.LicenseType) error
	SendStudentLink(ctx context.Context, email, link string) error
}

// Options configures a Server.
type Options struct {
	Port        int
	CORSOrigins []string
	RateLimit   float64 // per-client requests per second on /api; <= 0 disables

	Ledger       Ledger
	Codec        *license.Codec
	Webhook      *payment.WebhookHandler
	Notifier     Notifier
	IssuerSecret string // shared secret for /api/license/store
	StudentLink  string // payment link mailed to verified students
}

// Server represents the API server
type Server struct {
	echo *echo.Echo
	opts Options
	now  func() time.Time
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger())
	if len(opts.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: opts.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderContentType},
		}))
	}

	server := &Server{echo: e, opts: opts, now: time.Now}
	server.setupRoutes()
	return server
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":    "ok",
			"timestamp": isoTime(s.now()),
		})
	})

	api := s.echo.Group("/api")
	if s.opts.RateLimit > 0 {
		api.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(s.opts.RateLimit),
				Burst:     int(math.Max(1, math.Ceil(s.opts.RateLimit))),
				ExpiresIn: 3 * time.Minute,
			}),
		}))
	}

	s.attachLicenseRoutes(api)
	s.attachTrialRoutes(api)
	s.attachStudentRoutes(api)
	if s.opts.Webhook != nil {
		api.POST("/stripe/webhook", s.opts.Webhook.HandleWebhook)
	}
}

// ServeHTTP exposes the router, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", s.opts.Port).Msg("license server listening")
		if err := s.echo.Start(fmt.Sprintf(":%d", s.opts.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info().Msg("shutting down license server")
	return s.echo.Shutdown(ctx)
}

// isoTime matches JavaScript's Date.toISOString.
func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
