package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"postboard/internal/auth"
	"postboard/internal/config"
	apphttp "postboard/internal/http"
	"postboard/internal/metrics"
	"postboard/internal/notify"
	"postboard/internal/repository"
	mongostore "postboard/internal/repository/mongo"
	"postboard/internal/repository/sqlite"
	"postboard/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer stores.close()

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	if err != nil {
		logger.Fatalf("setup tokens: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	dispatcher := notify.NewDispatcher(notify.Config{
		Workers:     cfg.Push.Workers,
		QueueSize:   cfg.Push.QueueSize,
		SendTimeout: cfg.Push.Timeout,
		Logger:      logger,
		Observer:    collector,
	}, buildSender(cfg, logger))
	if err := dispatcher.Start(ctx); err != nil {
		logger.Fatalf("start dispatcher: %v", err)
	}

	limiter := apphttp.NewRateLimiter(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst)
	defer limiter.Stop()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	handler := apphttp.NewHandler(apphttp.Options{
		Users:        service.NewUserService(stores.users, tokens),
		Posts:        service.NewPostService(stores.posts, stores.comments, stores.users),
		Interactions: service.NewInteractionService(stores.posts, stores.comments, dispatcher),
		Tokens:       tokens,
		Logger:       logger,
		Metrics:      collector,
		Gatherer:     reg,
		AuthLimiter:  limiter,
		Production:   cfg.Production(),
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("listening on %s (%s mode, %s store)", cfg.Server.Addr, cfg.Server.Mode, cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	dispatcher.Shutdown()

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

type stores struct {
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	close    func()
}

func openStores(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*stores, error) {
	switch cfg.Database.Driver {
	case "mongo":
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Timeout)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Mongo.Database)
		if err := mongostore.InitSchema(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("init mongo schema: %w", err)
		}
		logger.Infof("using mongo database %s", cfg.Mongo.Database)
		return &stores{
			users:    mongostore.NewUserRepository(db),
			posts:    mongostore.NewPostRepository(db),
			comments: mongostore.NewCommentRepository(db),
			close: func() {
				disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := client.Disconnect(disconnectCtx); err != nil {
					logger.Warnf("mongo disconnect: %v", err)
				}
			},
		}, nil
	default:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		if err := sqlite.InitSchema(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("init sqlite schema: %w", err)
		}
		logger.Infof("using sqlite database %s", cfg.Database.Path)
		return &stores{
			users:    sqlite.NewUserRepository(db),
			posts:    sqlite.NewPostRepository(db),
			comments: sqlite.NewCommentRepository(db),
			close:    func() { db.Close() },
		}, nil
	}
}

func buildSender(cfg config.Config, logger *logrus.Logger) notify.Sender {
	if !cfg.Push.Enabled {
		logger.Info("push delivery disabled, notifications will only be logged")
		return notify.LogSender{Logger: logger}
	}
	client := &http.Client{Timeout: cfg.Push.Timeout}
	return notify.NewExpoSender(client, cfg.Push.Endpoint, cfg.Push.AccessToken)
}
