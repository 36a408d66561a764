package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/docnorm/internal/config"
	"github.com/gogotex/docnorm/internal/database"
	"github.com/gogotex/docnorm/internal/document/handler"
	"github.com/gogotex/docnorm/internal/document/repository"
	"github.com/gogotex/docnorm/internal/document/service"
	"github.com/gogotex/docnorm/internal/storage"
	"github.com/gogotex/docnorm/pkg/logger"
	"github.com/gogotex/docnorm/pkg/metrics"
	"github.com/gogotex/docnorm/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the document HTTP service",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// deps holds the optional backends opened at startup so they can be closed
// on shutdown.
type deps struct {
	mongo *mongo.Client
	redis *redis.Client
}

func (d *deps) close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.mongo.Disconnect(ctx)
	}
}

// buildRepository prefers Mongo when MONGODB_URI is provided and falls back
// to memory when it cannot be reached. A reachable Redis adds a read cache.
func buildRepository(ctx context.Context, cfg *config.Config, d *deps) repository.Repository {
	var repo repository.Repository
	if cfg.MongoDB.URI != "" {
		db, err := database.ConnectMongo(ctx, cfg.MongoDB)
		if err != nil {
			logger.Warnf("cannot connect to MongoDB (%v); using memory-backed repo", err)
			repo = repository.NewMemoryRepo()
		} else {
			d.mongo = db.Client()
			repo = repository.NewMongoRepo(db)
			logger.Infof("using MongoDB database %s", cfg.MongoDB.Database)
		}
	} else {
		repo = repository.NewMemoryRepo()
	}

	if addr := cfg.Redis.Addr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v; cache disabled", addr, err)
			_ = client.Close()
		} else {
			d.redis = client
			repo = repository.NewCachedRepo(repo, client, "", cfg.Redis.CacheTTL)
			logger.Infof("document cache enabled on %s (ttl=%s)", addr, cfg.Redis.CacheTTL)
		}
	}
	return repo
}

func newRouter(cfg *config.Config, svc service.Service, redisClient *redis.Client, reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID())

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handler.RegisterDocumentRoutes(r, svc)
	return r
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel)
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())
	if cfg.Server.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	cat, err := config.LoadCatalog(cfg.Schema.File)
	if err != nil {
		return err
	}
	models, err := cat.Registry()
	if err != nil {
		return err
	}
	logger.Infof("schema loaded: collections=%d models=%v", len(cat.Collections), models.Names())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := &deps{}
	defer d.close()
	repo := buildRepository(ctx, cfg, d)

	var opts []service.Option
	if cfg.MinIO.Endpoint != "" {
		archive, err := storage.NewMinIOArchive(cfg.MinIO)
		if err != nil {
			logger.Warnf("MinIO archive disabled: %v", err)
		} else {
			opts = append(opts, service.WithArchiver(archive))
			logger.Infof("archiving documents to bucket %s", cfg.MinIO.Bucket)
		}
	}
	svc := service.New(repo, cat.Schemas(), models, opts...)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics.RegisterCollectors(reg)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      newRouter(cfg, svc, d.redis, reg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("docnorm listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
