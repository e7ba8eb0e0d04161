package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"greendrake/freight/internal/api"
	"greendrake/freight/internal/cache"
	"greendrake/freight/internal/captcha"
	"greendrake/freight/internal/config"
	"greendrake/freight/internal/db"
	"greendrake/freight/internal/email"
	"greendrake/freight/internal/repository"
	"greendrake/freight/internal/services"
	"greendrake/freight/internal/storage"
	"greendrake/freight/internal/tasks"
	"greendrake/freight/internal/utils"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		utils.Fatal("failed to load configuration", map[string]any{"error": err.Error()})
	}
	utils.SetLevel(cfg.LogLevel)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	switch cfg.RunMode {
	case "api", "bg", "all":
	default:
		utils.Fatal("invalid run mode", map[string]any{"mode": cfg.RunMode})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, mongoDb, err := db.ConnectDB(ctx, cfg)
	if err != nil {
		utils.Fatal("failed to connect to database", map[string]any{"error": err.Error()})
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			utils.Error("error disconnecting from MongoDB", map[string]any{"error": err.Error()})
		}
	}()

	if err := db.EnsureIndexes(ctx, mongoDb); err != nil {
		utils.Fatal("failed to ensure indexes", map[string]any{"error": err.Error()})
	}

	redisClient, err := cache.ConnectRedis(ctx, cfg)
	if err != nil {
		utils.Fatal("failed to connect to Redis", map[string]any{"error": err.Error()})
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			utils.Error("error disconnecting from Redis", map[string]any{"error": err.Error()})
		}
	}()

	store := repository.NewStore(mongoDb)
	tx := db.NewTransactor(mongoDb)

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	mailer := tasks.NewEmailEnqueuer(taskClient)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(redisClient, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		utils.Info("service API listening", map[string]any{"port": cfg.ServiceApiPort})
		if err := serviceSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Fatal("service API ListenAndServe error", map[string]any{"error": err.Error()})
		}
	}()

	utils.Info("starting application", map[string]any{"mode": cfg.RunMode})

	var mainApiSrv *http.Server
	if cfg.RunMode == "api" || cfg.RunMode == "all" {
		var archive services.ITemplateArchive
		if cfg.AwsS3Bucket != "" {
			s3Storage, err := storage.NewS3Storage(ctx, cfg)
			if err != nil {
				utils.Fatal("failed to initialize S3 storage", map[string]any{"error": err.Error()})
			}
			archive = s3Storage
		} else {
			utils.Info("AWS_S3_BUCKET not set, uploaded templates will not be archived", nil)
		}

		viewCache := cache.NewAuctionViewCache(redisClient, cfg.AuctionCacheTTL)
		router := api.SetupRouter(ctx, cfg, api.Services{
			Users:        services.NewUserService(store, tx, mailer, cfg),
			Participants: services.NewParticipantService(store, tx, viewCache),
			Auctions:     services.NewAuctionService(store, viewCache),
			Assignments:  services.NewAssignmentService(store, tx, viewCache),
			Templates:    services.NewTemplateService(archive),
			Captcha:      captcha.NewTurnstileVerifier(cfg),
		})
		mainApiSrv = &http.Server{
			Addr:              ":" + cfg.ApiPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			utils.Info("main API listening", map[string]any{"port": cfg.ApiPort})
			if err := mainApiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				utils.Fatal("main API ListenAndServe error", map[string]any{"error": err.Error()})
			}
		}()
	}

	var taskSrv *asynq.Server
	if cfg.RunMode == "bg" || cfg.RunMode == "all" {
		sender := email.NewCompositeEmailSender(primaryEmailSender(cfg, redisClient))
		if cfg.LogEmailsPath != "" {
			fileSender, err := email.NewFileEmailSender(cfg.LogEmailsPath)
			if err != nil {
				utils.Warn("failed to initialize file email sender, continuing without it", map[string]any{"path": cfg.LogEmailsPath, "error": err.Error()})
			} else {
				sender.AddSender(fileSender)
			}
		}

		processor := tasks.NewTaskProcessor(cfg, sender, services.NewEmailTemplateService(store.EmailTemplates))
		var mux *asynq.ServeMux
		taskSrv, mux = tasks.SetupServer(redisClient, processor)
		// Start, not Run: Run waits for OS signals itself and would miss a service API shutdown.
		utils.Info("background task server starting", nil)
		if err := taskSrv.Start(mux); err != nil {
			utils.Fatal("background task server error", map[string]any{"error": err.Error()})
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		utils.Info("received signal, shutting down", map[string]any{"signal": sig.String()})
	case <-shutdownChan:
		utils.Info("shutdown requested via service API", nil)
	}
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		utils.Error("service API shutdown error", map[string]any{"error": err.Error()})
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			utils.Error("main API shutdown error", map[string]any{"error": err.Error()})
		}
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}

	wg.Wait()
	utils.Info("server gracefully stopped", nil)
}

// primaryEmailSender stores mail in Redis when services are mocked, otherwise
// sends over SMTP (or logs when no SMTP host is configured).
func primaryEmailSender(cfg *config.Config, rdb *redis.Client) email.Sender {
	if cfg.MockServices {
		utils.Info("MOCK_SERVICES enabled, using Redis email sender", nil)
		return email.NewRedisSender(rdb, cfg)
	}
	return email.NewSMTPSender(cfg)
}
