package http

import (
	"encoding/json"
	stdhttp "net/http"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/auth"
	"github.com/vovakirdan/relaychat/internal/config"
	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/service/messages"
)

// HealthText is the body of GET /check.
const HealthText = "Server is running correctly"

// Deps are the services the router dispatches to. Gatherer may be nil, in
// which case /metrics is not mounted.
type Deps struct {
	Hub      *core.Hub
	Auth     *auth.Service
	Messages *messages.Service
	Gatherer prometheus.Gatherer
}

// NewServer builds the HTTP server. Callers that bind their own listener
// pass it to Serve and ignore Addr.
func NewServer(deps Deps, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr(),
		Handler:           NewHandler(deps, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler mounts /ws next to the gin router. The upgrade has to stay
// outside gin: gin's writer refuses to hijack once headers are flushed.
func NewHandler(deps Deps, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	ws := NewWSHandler(deps.Hub, deps.Auth, deps.Messages, WSOptions{
		AllowedOrigin: cfg.CORSOrigin,
		ReadLimit:     cfg.MaxMessageBytes,
		RateLimit:     cfg.WSRateLimit,
	}, logger)

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", ws)
	mux.Handle("/", NewRouter(deps, cfg, logger))
	return mux
}

// NewRouter wires middleware and the REST routes. Production-only routes are
// decided here once, from cfg.
func NewRouter(deps Deps, cfg config.Config, logger *zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(BodyLimitMiddleware(cfg.MaxBodyBytes))
	router.Use(CORSMiddleware(cfg.CORSOrigin))

	router.GET("/check", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, HealthText)
	})

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	authHandlers := NewAuthHandlers(deps.Auth, cfg.IsProduction(), logger)
	messageHandlers := NewMessageHandlers(deps.Messages, logger)
	requireAuth := AuthMiddleware(deps.Auth, logger)

	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/signup", authHandlers.Signup)
		authGroup.POST("/login", authHandlers.Login)
		authGroup.POST("/logout", authHandlers.Logout)
		authGroup.PUT("/update-profile", requireAuth, authHandlers.UpdateProfile)
		authGroup.GET("/check", requireAuth, authHandlers.Check)
	}

	messagesGroup := router.Group("/api/messages", requireAuth)
	{
		messagesGroup.GET("/users", messageHandlers.GetSidebarUsers)
		messagesGroup.GET("/:id", messageHandlers.GetMessages)
		messagesGroup.POST("/send/:id", messageHandlers.SendMessage)
	}

	if cfg.IsProduction() {
		router.NoRoute(frontendHandler(cfg.StaticDir))
	}

	return router
}

// frontendHandler serves files from the built frontend and falls back to
// index.html so client-side routes resolve.
func frontendHandler(dir string) gin.HandlerFunc {
	root := stdhttp.Dir(dir)
	files := stdhttp.FileServer(root)
	index := filepath.Join(dir, "index.html")

	return func(c *gin.Context) {
		if c.Request.Method != stdhttp.MethodGet && c.Request.Method != stdhttp.MethodHead {
			c.String(stdhttp.StatusNotFound, "404 page not found")
			return
		}

		name := path.Clean("/" + c.Request.URL.Path)
		if name != "/" {
			if f, err := root.Open(name); err == nil {
				info, statErr := f.Stat()
				_ = f.Close()
				if statErr == nil && !info.IsDir() {
					files.ServeHTTP(c.Writer, c.Request)
					return
				}
			}
		}

		c.File(index)
	}
}

// writeJSONError writes the standard error body outside of gin handlers.
func writeJSONError(w stdhttp.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
