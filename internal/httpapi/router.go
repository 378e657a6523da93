package httpapi

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/abhisek/examprep/internal/identity"
	"github.com/abhisek/examprep/internal/metrics"
)

// NewRouter builds the gin engine for api.
func NewRouter(api *API) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), api.requestLog(), observe())
	r.Use(cors.New(corsConfig(api.cfg.CORSOrigins)))

	r.GET("/healthz", api.HandleHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	protected := r.Group("/api")
	protected.Use(api.authMiddleware())
	{
		sessions := protected.Group("/sessions")
		sessions.POST("", api.HandleStartSession)
		sessions.GET("/:id", api.HandleGetSession)
		sessions.POST("/:id/events", api.HandleSessionEvent)
		sessions.POST("/:id/submit", api.HandleSubmit)

		tests := protected.Group("/tests")
		tests.GET("/:id/analytics", api.HandleTestAnalytics)
		tests.GET("/:id/leaderboard", api.HandleLeaderboard)

		protected.GET("/attempts/:id/explanations", api.HandleExplanations)
	}
	return r
}

// corsConfig allows the listed origins. An empty list or "*" allows any
// origin.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// authMiddleware requires a valid bearer token and stores the student it
// names on the request.
func (a *API) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "authorization header is required"})
			return
		}
		id, err := a.verifier.Verify(header)
		if err != nil {
			a.logger.Debug("rejected token", "path", c.Request.URL.Path, "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			return
		}
		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func (a *API) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Serve runs handler on addr until ctx is done, then shuts down within
// the grace period.
func Serve(ctx context.Context, addr string, handler http.Handler, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
