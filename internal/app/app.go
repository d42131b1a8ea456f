package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/controller"
	"learnhub_backend/internal/middleware"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/service"
	"learnhub_backend/pkg/configwatcher"
	"learnhub_backend/pkg/database"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/security"
	"learnhub_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	cfgMu           sync.RWMutex
	services        *services
	rateLimiter     *security.RateLimiter
	tracerProvider  *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user       *repository.UserRepository
	module     *repository.ModuleRepository
	checkpoint *repository.CheckpointRepository
	progress   *repository.ProgressRepository
}

type services struct {
	auth      *service.AuthService
	user      *service.UserService
	storage   *service.StorageService
	sessions  *service.QuizSessionService
	learning  *service.LearningService
	catalog   *service.CatalogService
	report    *service.ReportService
	scheduler *service.Scheduler
}

type controllers struct {
	auth     *controller.AuthController
	learning *controller.LearningController
	catalog  *controller.CatalogController
	user     *controller.UserController
	report   *controller.ReportController
	health   *controller.HealthController
}

// CurrentConfig 热更新后返回最新配置
func (a *App) CurrentConfig() *config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.Config
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) reloadConfig(cfg *config.Config) {
	a.cfgMu.Lock()
	// 命令行标志不在配置文件中，保留原值
	cfg.MigrateOnly = a.Config.MigrateOnly
	a.Config = cfg
	a.cfgMu.Unlock()

	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
	logger.Log.Info("Config reloaded")
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		module:     repository.NewModuleRepository(db),
		checkpoint: repository.NewCheckpointRepository(db),
		progress:   repository.NewProgressRepository(db),
	}
}

func (a *App) newSessionStore(cfg *config.Config) service.QuizSessionStore {
	if cfg.Learning.SessionStore == "memory" || a.Redis == nil {
		logger.Log.Info("Using in-memory quiz session store")
		return service.NewMemoryQuizSessionStore()
	}
	return service.NewRedisQuizSessionStore(a.Redis, cfg.Learning.SessionTTL())
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)
	s.sessions = service.NewQuizSessionService(a.newSessionStore(cfg), cfg.Learning.SessionTTL())
	s.learning = service.NewLearningService(
		repos.module,
		repos.checkpoint,
		repos.progress,
		s.storage,
		s.sessions,
		cfg.Learning.Tiers,
	)
	s.catalog = service.NewCatalogService(repos.module, repos.checkpoint, s.storage)
	s.report = service.NewReportService(repos.user, repos.checkpoint, repos.progress, s.learning)
	s.scheduler = service.NewScheduler(s.sessions)

	return s
}

func (a *App) initControllers(s *services, cfg *config.Config) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth, cfg.Server.Mode == gin.ReleaseMode),
		learning: controller.NewLearningController(s.learning),
		catalog:  controller.NewCatalogController(s.catalog),
		user:     controller.NewUserController(s.user, s.learning),
		report:   controller.NewReportController(s.report),
		health:   controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.rateLimiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.rateLimiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
	router.Use(middleware.ConfigMiddleware(a.CurrentConfig))
}

// registerConfigCallbacks 热更新只影响限流、会话有效期和得分区间
func (a *App) registerConfigCallbacks(s *services) {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.rateLimiter.Update(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.sessions.SetTTL(cfg.Learning.SessionTTL())
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.learning.SetTiers(cfg.Learning.Tiers)
	})
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}

	if err := database.SeedAdmin(db, &cfg.Admin); err != nil {
		logger.Log.Fatal("Failed to seed admin account", zap.Error(err))
	}
	if err := database.SeedCatalog(db, cfg.Learning.CatalogSeed); err != nil {
		logger.Log.Fatal("Failed to seed catalog", zap.Error(err))
	}

	if cfg.MigrateOnly {
		return app
	}

	if cfg.Learning.SessionStore != "memory" {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Warn("Redis unavailable, falling back to in-memory quiz sessions", zap.Error(err))
		} else {
			app.Redis = rdb
		}
	}

	app.build(cfg)
	return app
}

// build 组装仓储、服务、控制器和路由，需要 DB（以及可选的 Redis）已就绪
func (a *App) build(cfg *config.Config) {
	repos := a.initRepositories(a.DB)
	services := a.initServices(repos, cfg)
	a.services = services
	controllers := a.initControllers(services, cfg)

	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		a.tracerProvider = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	a.Router = router

	a.setupMiddlewares(router, cfg)
	a.registerRoutes(router, controllers, repos)

	if _, ok := services.storage.Provider.(*service.LocalStorageProvider); ok {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	a.registerConfigCallbacks(services)
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := a.services.scheduler.Start(); err != nil {
		logger.Log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	go configwatcher.Watch(context.Background(), "configs/config.yaml", a.reloadConfig)

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.services.scheduler.Stop()
	a.rateLimiter.Stop()

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
