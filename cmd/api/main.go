package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campustrack/internal/config"
	"campustrack/internal/handler"
	"campustrack/internal/hardware"
	"campustrack/internal/httpmiddleware"
	"campustrack/internal/identity"
	"campustrack/internal/ledger"
	"campustrack/internal/queue"
	"campustrack/internal/report"
	"campustrack/internal/request"
	"campustrack/internal/schedule"
	"campustrack/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

// openStore picks the storage backend from config. The service core is the
// same either way; only the Store implementation differs.
func openStore(ctx context.Context, cfg config.App) (store.Store, error) {
	switch cfg.StoreBackend {
	case "mongo":
		return store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDBName)
	case "memory":
		return store.NewMemory(), nil
	default:
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	}
}

func runHTTP(cfg config.App) error {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(rootCtx, cfg.ConnectTimeout)
	st, err := openStore(connectCtx, cfg)
	cancel()
	if err != nil {
		return err
	}
	defer st.Close()
	log.Printf("store backend: %s", cfg.StoreBackend)

	health := store.NewHealth(rootCtx, st, cfg.ReadyInterval)

	var q queue.Queue
	scanlog := hardware.NewScanLog(cfg.ScanLogPath)
	if cfg.QueueBackend == "memory" {
		mem := queue.NewInMemory(64)
		q = mem
		// No separate worker in dev mode: drain scans in-process.
		go drainScans(rootCtx, mem, scanlog)
	} else {
		redisClient := store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		q = queue.NewRedisQueue(redisClient.Client, "")
	}

	ids := identity.NewService(st, cfg)
	sch := schedule.NewService(st)
	led := ledger.NewService(st)
	rep := report.NewService(st)
	req := request.NewService(st)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/readyz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	limiter := httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).
		Exempt("/healthz", "/readyz", "/metrics", "/v1/hardware/scan")
	r.Use(limiter.GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handler.New(cfg, health, ids, sch, led, rep, req, scanlog, q)
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}

// drainScans appends queued scan events to the flat log. The worker binary
// does the same against the redis queue.
func drainScans(ctx context.Context, q queue.Queue, scanlog *hardware.ScanLog) {
	events, err := q.Consume(ctx)
	if err != nil {
		log.Printf("scan consumer failed: %v", err)
		return
	}
	for ev := range events {
		entry := hardware.Entry{RegNo: ev.RegNo, Name: ev.Name, Status: ev.Status, Time: ev.Time}
		if err := scanlog.Append(entry); err != nil {
			log.Printf("scan log append failed: %v", err)
		}
	}
}

// CORS middleware for browser requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
