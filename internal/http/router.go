package http

import (
	"context"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"login-system/internal/service"
)

// Pinger lo implementa *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter configura el router de Gin con middlewares y rutas base.
func NewRouter(
	logger *zap.Logger,
	authH *AuthHandler,
	authSvc *service.AuthService,
	cookie *SessionCookie,
	db Pinger,
	staticDir string,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging y recovery.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	api := r.Group("", jsonContentTypeMiddleware(), sessionCookieMiddleware(logger, cookie))
	api.POST("/register", authH.Register)
	api.POST("/login", authH.Login)
	api.POST("/logout", authH.Logout)
	api.GET("/dashboard", RequireSession(logger, authSvc), authH.Dashboard)
	api.GET("/healthz", healthHandler(db))

	static := staticFiles(staticDir)
	r.GET("/", static)
	r.NoRoute(static)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

func healthHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// staticFiles sirve archivos de dir; "/" entrega index.html.
func staticFiles(dir string) gin.HandlerFunc {
	files := gin.Dir(dir, false)
	return func(c *gin.Context) {
		method := c.Request.Method
		if dir == "" || (method != http.MethodGet && method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{"message": msgNotFound})
			return
		}

		name := path.Clean("/" + c.Request.URL.Path)
		target := name
		if name == "/" {
			target = "/index.html"
		}
		f, err := files.Open(target)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": msgNotFound})
			return
		}
		info, err := f.Stat()
		_ = f.Close()
		if err != nil || info.IsDir() {
			c.JSON(http.StatusNotFound, gin.H{"message": msgNotFound})
			return
		}

		c.FileFromFS(name, files)
	}
}
