package webserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/iidesho/auditflow/metrics"
	"github.com/iidesho/auditflow/webserver/health"
	"github.com/iidesho/bragi/sbragi"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = sbragi.WithLocalScope(sbragi.LevelInfo)

var json = jsoniter.Config{
	EscapeHTML:             true,
	UseNumber:              true,
	OnlyTaggedField:        true,
	ValidateJsonRawMessage: true,
}.Froze()

type Server struct {
	r      *fiber.App
	health *health.Health
	port   uint16
}

// Init builds the operational http surface: /health, and /metrics once
// metrics.Init has been called.
func Init(port uint16) *Server {
	s := &Server{
		health: health.Init(),
		port:   port,
		r: fiber.New(fiber.Config{
			AppName:               health.Name,
			DisableStartupMessage: true,
			JSONDecoder:           json.Unmarshal,
			JSONEncoder:           json.Marshal,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				status := http.StatusInternalServerError
				var e *fiber.Error
				if errors.As(err, &e) {
					status = e.Code
				}
				return c.Status(status).JSON(map[string]any{
					"status":      status,
					"status_text": http.StatusText(status),
					"error_msg":   err.Error(),
				})
			},
		}),
	}
	s.r.Use(func(c *fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r != nil {
				err = fmt.Errorf("recovered: %v, stack: %s", r, string(debug.Stack()))
			}
		}()
		return c.Next()
	})
	s.r.Get("/health", func(c *fiber.Ctx) error {
		report := s.health.Report(c.Context())
		if report.Status != health.StatusUp {
			c.Status(http.StatusServiceUnavailable)
		}
		return c.JSON(report)
	})
	if metrics.Registry != nil {
		s.r.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(
			prometheus.Gatherers{metrics.Registry},
			promhttp.HandlerOpts{},
		)))
	}
	return s
}

// AddCheck makes /health report down while check fails.
func (s *Server) AddCheck(name string, check health.Check) {
	s.health.AddCheck(name, check)
}

func (s *Server) App() *fiber.App {
	return s.r
}

func (s *Server) Port() uint16 {
	return s.port
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	log.Info("starting webserver", "port", s.port)
	return s.r.Listen(fmt.Sprintf(":%d", s.port))
}

func (s *Server) Shutdown(timeout time.Duration) error {
	return s.r.ShutdownWithTimeout(timeout)
}

// PingCheck adapts a ping function with a per check timeout.
func PingCheck(timeout time.Duration, ping func(ctx context.Context) error) health.Check {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return ping(ctx)
	}
}
