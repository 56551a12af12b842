package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rahul4469/socialear/internal/config"
	"github.com/rahul4469/socialear/internal/controllers"
	"github.com/rahul4469/socialear/internal/logger"
	"github.com/rahul4469/socialear/internal/middleware"
	"github.com/rahul4469/socialear/internal/models"
	"github.com/rahul4469/socialear/internal/services"
	"github.com/rahul4469/socialear/internal/views"
	"github.com/rahul4469/socialear/migrations"
	"github.com/rahul4469/socialear/templates"
)

func main() {
	cfg := config.MustLoad()

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// Setup the result store ---------------
	store, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer store.close()

	// Setup services ---------------
	source, err := newSource(cfg.News)
	if err != nil {
		return err
	}
	classifier, err := newClassifier(cfg.Classifier)
	if err != nil {
		return err
	}
	aggregator := services.NewAggregator(classifier, cfg.Classifier.Workers)
	sentimentService := services.NewSentimentService(source, aggregator, store.results)

	log.Info("services configured",
		"article_source", cfg.News.Source,
		"classifier", cfg.Classifier.Kind,
		"result_store", cfg.Store.Kind,
		"workers", cfg.Classifier.Workers,
	)

	// Setup controllers ---------------
	views.TemplateFS = templates.FS
	apiCtrl := controllers.NewAPIController(sentimentService)
	analyzeCtrl := controllers.NewAnalyzeController(sentimentService, controllers.AnalyzeTemplates{
		Form: views.MustParseFS("pages/analyze.gohtml"),
	}, cfg.IsDevelopment())

	csrfMw := csrf.Protect(
		[]byte(cfg.Security.CSRFSecret),
		csrf.Secure(cfg.Security.SecureCookies),
		csrf.Path("/"),
		csrf.TrustedOrigins(cfg.Security.TrustedOrigins),
	)

	// Setup router and routes
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRequestLogger(log).Handler)
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)

	r.Get("/", controllers.Home)
	r.Get("/healthz", controllers.HealthCheck)
	r.Get("/readyz", controllers.ReadyCheck(store.health))
	r.Handle("/metrics", promhttp.Handler())

	// ---- JSON API ----
	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))

		r.Post("/analyze", apiCtrl.PostAnalyze)
		r.Get("/results/{query}", apiCtrl.GetResults)
	})

	// ---- Form UI ----
	r.Group(func(r chi.Router) {
		if !cfg.Security.SecureCookies {
			r.Use(middleware.PlaintextCSRF)
		}
		r.Use(csrfMw)
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))

		r.Get("/ui", analyzeCtrl.GetAnalyze)
		r.Post("/ui", analyzeCtrl.PostAnalyze)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server
	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", srv.Addr, "env", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

type resultStore struct {
	results models.ResultStore
	health  func(ctx context.Context) error
	close   func()
}

// openStore connects the configured result store.
func openStore(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*resultStore, error) {
	switch cfg.Kind {
	case config.StoreRedis:
		log.Info("connecting to redis...")
		client, err := models.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		log.Info("redis connected successfully")

		redisStore := models.NewRedisResultService(client, cfg.ResultTTL)
		return &resultStore{
			results: redisStore,
			health:  redisStore.Health,
			close:   func() { client.Close() },
		}, nil

	case config.StorePostgres:
		log.Info("connecting to database...")
		db, err := models.NewDatabase(ctx, models.DefaultDatabaseConfig(cfg.DatabaseURL))
		if err != nil {
			return nil, err
		}
		log.Info("database connected successfully")

		if err := db.MigrateFS(migrations.FS, "."); err != nil {
			db.Close()
			return nil, err
		}
		return &resultStore{
			results: models.NewResultService(db.Pool),
			health:  db.Health,
			close:   db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown result store %q", cfg.Kind)
	}
}

func newSource(cfg config.NewsConfig) (services.ArticleSource, error) {
	switch cfg.Source {
	case config.SourceNewsAPI:
		return services.NewNewsAPIService(services.NewsAPIConfig{
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			Language:      cfg.Language,
			PageSize:      cfg.PageSize,
			MaxPages:      cfg.MaxPages,
			RatePerSecond: cfg.RatePerSecond,
			Timeout:       cfg.Timeout,
		}), nil
	case config.SourceRSS:
		return services.NewRSSService(services.RSSConfig{
			SearchURL: cfg.RSSSearchURL,
			Language:  cfg.Language,
			Timeout:   cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown article source %q", cfg.Source)
	}
}

func newClassifier(cfg config.ClassifierConfig) (services.Classifier, error) {
	switch cfg.Kind {
	case config.ClassifierHuggingFace:
		return services.NewHuggingFaceClassifier(services.HuggingFaceConfig{
			APIToken: cfg.HFAPIToken,
			BaseURL:  cfg.HFBaseURL,
			Model:    cfg.HFModel,
			Timeout:  cfg.Timeout,
		}), nil
	case config.ClassifierOllama:
		return services.NewOllamaClassifier(services.OllamaConfig{
			Host:    cfg.OllamaHost,
			Model:   cfg.OllamaModel,
			Timeout: cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown classifier %q", cfg.Kind)
	}
}
