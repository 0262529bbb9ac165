package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thrillee/mnpgateway/internal/api/dto"
	"github.com/thrillee/mnpgateway/internal/auth"
	"github.com/thrillee/mnpgateway/internal/logging"
	"github.com/thrillee/mnpgateway/internal/metrics"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig holds what the router needs besides the handler.
type RouterConfig struct {
	Users          auth.Users
	MaxUploadBytes int64
	DB             Pinger
	// Breakers reports CN circuit breaker state for /health.
	Breakers func() map[string]any
}

// NewRouter builds the gin engine with every route. /health and /metrics are
// open; everything else requires Basic auth.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery(), requestContext(), metrics.GinMiddleware())

	router.GET("/health", healthHandler(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := router.Group("/", basicAuth(cfg.Users))
	{
		protected.POST("/port-in", h.PortIn)
		protected.POST("/cancel", h.Cancel)
		protected.POST("/return-request", h.ReturnRequest)
		protected.POST("/return-cancel", h.ReturnCancel)
		protected.POST("/return-status", h.ReturnStatus)
		protected.POST("/msisdn-status", h.MSISDNStatus)
		protected.POST("/portin-status", h.PortInStatus)
		protected.POST("/orders-search", h.OrdersSearch)
		protected.POST("/bss-webhook", h.BSSWebhook)
		protected.POST("/receive", limitBody(cfg.MaxUploadBytes), h.Receive)
	}
	return router
}

// requestContext tags the request context with a correlation id and logs the
// outcome.
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		ctx := logging.ContextWithHTTPRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		slog.DebugContext(ctx, "HTTP request served",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()))
	}
}

func basicAuth(users auth.Users) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, password, ok := c.Request.BasicAuth()
		if !ok || !users.Verify(user, password) {
			slog.WarnContext(c.Request.Context(), "HTTP Auth failed", slog.String("user", user))
			c.Header("WWW-Authenticate", `Basic realm="mnp-gateway"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
			return
		}
		c.Set(gin.AuthUserKey, user)
		c.Next()
	}
}

func limitBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

func healthHandler(cfg RouterConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{"status": "healthy"}
		status := http.StatusOK
		if cfg.DB != nil {
			if err := cfg.DB.Ping(c.Request.Context()); err != nil {
				slog.ErrorContext(c.Request.Context(), "Health check: database unreachable", slog.Any("error", err))
				resp["status"], resp["db"] = "unhealthy", "error"
				status = http.StatusServiceUnavailable
			} else {
				resp["db"] = "ok"
			}
		}
		if cfg.Breakers != nil {
			resp["cn"] = cfg.Breakers()
		}
		c.JSON(status, resp)
	}
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
