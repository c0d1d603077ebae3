package app

import (
	"bridge4er_backend/internal/config"
	"bridge4er_backend/internal/controller"
	"bridge4er_backend/internal/repository"
	"bridge4er_backend/internal/service"
	"bridge4er_backend/pkg/database"
	"bridge4er_backend/pkg/logger"
	"bridge4er_backend/pkg/monitoring"
	"bridge4er_backend/pkg/security"
	"bridge4er_backend/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *gorm.DB
	Redis   *redis.Client
	content *service.ContentService
}

type repositories struct {
	subject *repository.SubjectRepository
	examSet *repository.ExamSetRepository
}

type services struct {
	sync    *service.SyncService
	gate    *service.SyncGate
	content *service.ContentService
}

type controllers struct {
	sync         *controller.SyncController
	questionBank *controller.QuestionBankController
	examSet      *controller.ExamSetController
	health       *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		subject: repository.NewSubjectRepository(db),
		examSet: repository.NewExamSetRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*services, error) {
	store, err := service.NewRemoteFileStore(cfg)
	if err != nil {
		return nil, err
	}

	var gateStore service.GateStore
	if rdb != nil {
		gateStore = &service.RedisGateStore{Client: rdb}
	} else {
		gateStore = service.NewMemoryGateStore()
	}

	s := &services{}
	s.sync = service.NewSyncService(db, store, cfg)
	s.gate = service.NewSyncGate(s.sync, gateStore)
	s.content = service.NewContentService(repos.subject, repos.examSet, s.gate, cfg)
	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		sync:         controller.NewSyncController(s.sync, s.content),
		questionBank: controller.NewQuestionBankController(s.content),
		examSet:      controller.NewExamSetController(s.content),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	windowMinutes := cfg.RateLimit.WindowMinutes
	if windowMinutes <= 0 {
		windowMinutes = 1
	}
	router.Use(security.RateLimiter(maxRequests, time.Duration(windowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Log.Info("Database migration completed")
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
	} else {
		logger.Log.Info("Redis disabled, sync gate falls back to in-process store")
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.content = services.content
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("bridge4er-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	return app
}

// ApplyConfig picks up a reloaded configuration. Only the sync settings are
// hot-swappable; server, database and storage changes need a restart.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.content.UpdateSyncConfig(cfg.Sync)
	logger.Log.Info("Configuration reloaded",
		zap.Int("cooldownSeconds", cfg.Sync.CooldownSeconds),
		zap.Bool("autoObjective", cfg.Sync.AutoObjective),
		zap.Bool("autoExamSets", cfg.Sync.AutoExamSets))
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
