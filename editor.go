// Package blogimageeditor is a WordPress editing assistant that suggests
// stock photos for each section of a post, shrinks the chosen image under a
// byte ceiling, uploads it with attribution and saves the post back as a
// draft.
//
// The App wires the record store, caches, external clients, middleware and
// templ views onto an Echo server.
package blogimageeditor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Hamzashehzad1/blogimageeditor/candidates"
	"github.com/Hamzashehzad1/blogimageeditor/llm"
	"github.com/Hamzashehzad1/blogimageeditor/pexels"
	"github.com/Hamzashehzad1/blogimageeditor/query"
	"github.com/Hamzashehzad1/blogimageeditor/reduce"
	"github.com/Hamzashehzad1/blogimageeditor/wordpress"
)

// Version is set at build time.
var Version = "dev"

// App is the central application. It wires together the store, caches,
// pipeline components, handlers and middleware.
type App struct {
	Config  Config
	Echo    *echo.Echo
	Store   *Store
	Cache   *PostCache
	Metrics *Metrics

	Queries *query.Synthesizer
	Images  *candidates.Fetcher
	Reducer *reduce.Reducer
	Uploads *reduce.DirStore

	completer      llm.Completer
	provider       candidates.Provider
	connectLimiter *ConnectLimiter
	ready          bool
}

// New creates an App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}
	a.Config.setDefaults()
	return a
}

// Init opens the store, builds the pipeline components and registers
// middleware and routes. Run calls it when needed.
func (a *App) Init() error {
	if a.ready {
		return nil
	}
	if a.Config.SessionSecret == "" {
		return errors.New("blogimageeditor: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("blogimageeditor: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewPostCache(a.Config.PostCacheTTL)
	a.Metrics = NewMetrics()
	a.connectLimiter = NewConnectLimiter(a.Config.ConnectAttempts, a.Config.ConnectWindow)

	if a.completer == nil && a.Config.LLM.APIKey != "" {
		a.completer = llm.NewOpenAI(a.Config.LLM.BaseURL, a.Config.LLM.APIKey, a.Config.LLM.Model, a.Config.LLM.Timeout)
	}
	if a.completer == nil {
		log.Warn().Msg("no LLM API key configured; image suggestions will fail")
	}
	a.Queries = &query.Synthesizer{
		Model:     a.completer,
		ModelName: a.Config.LLM.Model,
		Cache:     query.NewCache(a.Config.QueryCacheSize, a.Config.QueryCacheTTL),
	}

	if a.provider == nil {
		if a.Config.Pexels.APIKey == "" {
			log.Warn().Msg("no Pexels API key configured; image search will fail")
		}
		pc := pexels.New(a.Config.Pexels.APIKey, a.Config.Pexels.Timeout)
		pc.BaseURL = a.Config.Pexels.BaseURL
		pc.UserAgent = userAgent()
		a.provider = pc
	}
	a.Images = &candidates.Fetcher{Provider: a.provider}

	a.Uploads = &reduce.DirStore{Dir: a.Config.UploadsDir, URLPrefix: uploadsURLPath}
	a.Reducer = &reduce.Reducer{
		Downloader: &reduce.Downloader{
			HTTPClient:        &http.Client{},
			UserAgent:         userAgent(),
			MaxAttempts:       a.Config.Images.DownloadAttempts,
			PerRequestTimeout: a.Config.Images.DownloadTimeout,
		},
		Store:    a.Uploads,
		Encoder:  reduce.JPEGEncoder{},
		MaxWidth: a.Config.Images.MaxWidth,
	}

	a.setupMiddleware()
	a.setupRoutes()
	a.ready = true
	return nil
}

// Run initializes the App and serves until ctx is cancelled or the process
// receives SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	if err := a.Init(); err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Echo,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", a.Config.Addr).Str("version", Version).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		case <-gCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/editor.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	e.GET("/public/editor.css", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	e.Static("/public", a.Config.StaticDir)

	e.GET(metricsEndpoint, a.Metrics.Handler())

	e.GET("/", a.handleIndex)
	e.POST("/connect/", a.handleConnect)
	e.GET("/disconnect/", a.handleDisconnect)
	e.GET("/posts/", a.handlePosts)
	e.GET("/edit/:id/", a.handleEdit)

	api := e.Group("/api")
	api.GET("/suggest-images/:post/:heading", a.handleSuggestImages)
	api.POST("/process-image", a.handleProcessImage)
	api.POST("/save-post", a.handleSavePost)
	api.POST("/segment", a.handleSegment)
	api.GET("/processed-images", a.handleProcessedImages)
	api.DELETE("/processed-images/:id", a.handleDeleteProcessedImage)
	api.GET("/images/:id", a.handleCandidate)
}

// wordpressFor builds a client for a saved connection.
func (a *App) wordpressFor(conn Connection) *wordpress.Client {
	wp := wordpress.New(conn.SiteURL, conn.Username, conn.AppPassword, a.Config.WordPress.Timeout)
	wp.UploadTimeout = a.Config.WordPress.UploadTimeout
	return wp
}

// Close releases the store and background goroutines.
func (a *App) Close() error {
	if a.connectLimiter != nil {
		a.connectLimiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func userAgent() string {
	return "blogimageeditor/" + Version
}
