// Package bloglist is a REST backend for a shared list of blog links built
// with Go, Echo, and SQLite. It provides blog and user CRUD, token login,
// comments, an RSS feed, and aggregate statistics over the stored blogs.
package bloglist

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// App is the central bloglist application. It wires together the store,
// cache, token issuer, handlers, and middleware.
type App struct {
	Config Config
	Echo   *echo.Echo
	Store  *Store
	Cache  *BlogCache
	Logger *zap.Logger

	tokens       *TokenIssuer
	loginLimiter *LoginLimiter
	validator    *requestValidator
	metrics      *metrics
	customRoutes []func(*App)
	ready        bool
}

// New creates a new App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config: cfg,
		Echo:   e,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup opens the database and registers middleware and routes without
// starting the listener. Start calls it when needed.
func (a *App) Setup() error {
	if a.ready {
		return nil
	}
	if err := a.Config.validate(); err != nil {
		return err
	}

	if a.Logger == nil {
		logger, err := NewLogger(a.Config.Env)
		if err != nil {
			return fmt.Errorf("bloglist: init logger: %w", err)
		}
		a.Logger = logger
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("bloglist: init store: %w", err)
	}
	a.Store = store

	a.Cache = NewBlogCache(a.Store, a.Config.BlogCacheTTL)
	a.tokens = NewTokenIssuer(a.Config.TokenSecret, a.Config.TokenTTL)
	a.loginLimiter = NewLoginLimiter(a.Config.LoginAttempts, a.Config.LoginWindow)
	a.validator = newRequestValidator()
	a.metrics = newMetrics()

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.ready = true
	return nil
}

// Start sets the app up if needed and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.Logger.Info("listening", zap.String("addr", a.Config.Addr), zap.String("env", a.Config.Env))
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo
	requireUser := []echo.MiddlewareFunc{tokenExtractor, a.userExtractor}

	e.GET("/metrics", a.metrics.handler())

	blogs := e.Group("/api/blogs")
	blogs.GET("", a.handleListBlogs)
	blogs.GET("/stats", a.handleStats)
	blogs.GET("/feed.xml", a.handleFeed)
	blogs.GET("/:id", a.handleGetBlog)
	blogs.POST("", a.handleCreateBlog, requireUser...)
	blogs.PUT("/:id", a.handleUpdateBlog)
	blogs.DELETE("/:id", a.handleDeleteBlog, requireUser...)
	blogs.POST("/:id/comments", a.handleAddComment)

	users := e.Group("/api/users")
	users.POST("", a.handleCreateUser)
	users.GET("", a.handleListUsers)
	users.GET("/:id", a.handleGetUser)

	e.POST("/api/login", a.handleLogin)

	if a.Config.IsTest() {
		e.POST("/api/testing/reset", a.handleReset)
	}
}

// Shutdown gracefully stops the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	var err error
	if a.Store != nil {
		err = a.Store.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return err
}
