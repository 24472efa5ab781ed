package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"quiz_engine/internal/config"
	"quiz_engine/internal/controller"
	"quiz_engine/internal/repository"
	"quiz_engine/internal/service"
	"quiz_engine/pkg/configwatcher"
	"quiz_engine/pkg/database"
	"quiz_engine/pkg/eventbus"
	"quiz_engine/pkg/logger"
	"quiz_engine/pkg/monitoring"
	"quiz_engine/pkg/security"
	"quiz_engine/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config     *config.Config
	ConfigFile string
	Router     *gin.Engine
	DB         *gorm.DB
	Redis      *redis.Client

	services        *services
	limiter         *security.RateLimiter
	publisher       *eventbus.Publisher
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	question   *repository.QuestionRepository
	quizConfig *repository.QuizConfigRepository
	quizResult *repository.QuizResultRepository
	auditLog   *repository.AuditLogRepository
}

type services struct {
	fetcher *service.QuestionFetcher
	quiz    *service.QuizService
}

type controllers struct {
	quiz   *controller.QuizController
	health *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		question:   repository.NewQuestionRepository(db),
		quizConfig: repository.NewQuizConfigRepository(db),
		quizResult: repository.NewQuizResultRepository(db),
		auditLog:   repository.NewAuditLogRepository(db),
	}
}

// initAuditor 按配置选择审计通道
func (a *App) initAuditor(cfg *config.Config, repos *repositories) (service.Auditor, error) {
	switch cfg.Audit.Sink {
	case config.AuditSinkRedis:
		return service.NewRedisAuditor(a.Redis, cfg.Audit.RedisStream), nil
	case config.AuditSinkAMQP:
		publisher, err := eventbus.NewPublisher(cfg.Audit.AMQPURL, cfg.Audit.AMQPExchange)
		if err != nil {
			return nil, err
		}
		a.publisher = publisher
		return service.NewAMQPAuditor(publisher), nil
	case config.AuditSinkLog:
		return service.LogAuditor{}, nil
	default:
		return service.NewDBAuditor(repos.auditLog), nil
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) (*services, error) {
	auditor, err := a.initAuditor(cfg, repos)
	if err != nil {
		return nil, fmt.Errorf("init audit sink %s: %w", cfg.Audit.Sink, err)
	}

	opts := service.FetchOptionsFromConfig(cfg.Quiz)
	fetcher := service.NewQuestionFetcher(repos.question, opts)
	selector := service.NewPartSelector(fetcher, service.RandomSampler{})
	assembler := service.NewQuizAssembler(fetcher)
	grader := service.NewGradingEngine(fetcher)
	results := service.NewResultService(repos.quizResult, auditor, service.WithRetrySource(func() service.RetryPolicy {
		return fetcher.Options().Retry
	}))

	// 组卷调优参数支持热更新
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		fetcher.SetOptions(service.FetchOptionsFromConfig(newCfg.Quiz))
		logger.Log.Info("quiz fetch options reloaded",
			zap.Int("chunkSize", newCfg.Quiz.ChunkSize),
			zap.Int("chunkConcurrency", newCfg.Quiz.ChunkConcurrency),
			zap.Int("retryAttempts", newCfg.Quiz.RetryAttempts),
		)
	})

	return &services{
		fetcher: fetcher,
		quiz:    service.NewQuizService(repos.quizConfig, selector, assembler, grader, results, repos.auditLog),
	}, nil
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		quiz:   controller.NewQuizController(s.quiz),
		health: controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.limiter.Middleware())

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}
	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config, configFile string) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	app := &App{
		Config:     cfg,
		ConfigFile: configFile,
		DB:         db,
	}

	if cfg.ForceMigrate || cfg.Server.Mode == gin.DebugMode {
		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	if cfg.MigrateOnly {
		return app, nil
	}

	// redis 只在审计通道或健康检查中使用
	if cfg.Redis.Host != "" {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			if cfg.Audit.Sink == config.AuditSinkRedis {
				return nil, fmt.Errorf("init redis: %w", err)
			}
			logger.Log.Warn("redis unavailable, continuing without it", zap.Error(err))
		} else {
			app.Redis = rdb
		}
	}
	if cfg.Audit.Sink == config.AuditSinkRedis && app.Redis == nil {
		return nil, errors.New("audit sink redis requires redis.host")
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg)
	if err != nil {
		return nil, err
	}
	app.services = services
	controllers := app.initControllers(services)

	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("quiz-engine", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		app.tracer = tp
	}

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	return app, nil
}

func (a *App) startBackgroundTasks(ctx context.Context) {
	go a.limiter.Cleanup(ctx)

	if a.ConfigFile == "" {
		return
	}
	go func() {
		err := configwatcher.WatchConfig(ctx, a.ConfigFile, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Error("config watcher stopped", zap.Error(err))
		}
	}()
}

func (a *App) Run() {
	defer logger.Log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.startBackgroundTasks(ctx)

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("listen failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.Close(shutdownCtx)

	logger.Log.Info("Server exiting")
}

// Close 释放外部连接
func (a *App) Close(ctx context.Context) {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
