package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rebornoj/internal/common/cache"
	"rebornoj/internal/common/db"
	commonmw "rebornoj/internal/common/http/middleware"
	"rebornoj/internal/common/mq"
	"rebornoj/internal/common/storage"
	contestctl "rebornoj/internal/contest/controller"
	contestrepo "rebornoj/internal/contest/repository"
	"rebornoj/internal/contest/rank"
	contestsvc "rebornoj/internal/contest/service"
	judgectl "rebornoj/internal/judge/controller"
	judgerepo "rebornoj/internal/judge/repository"
	"rebornoj/internal/judge/runner"
	"rebornoj/internal/judge/service"
	"rebornoj/internal/judge/testcase"
	"rebornoj/pkg/utils/logger"
)

const defaultConfigPath = "configs/judge_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mysqlDB.Close()
	}()

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() {
		_ = redisCache.Close()
	}()

	objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
	if err != nil {
		logger.Error(context.Background(), "init minio failed", zap.Error(err))
		return
	}

	mqClient, err := mq.NewKafkaQueue(appCfg.Kafka.toMQConfig())
	if err != nil {
		logger.Error(context.Background(), "init kafka failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mqClient.Close()
	}()

	statusRepo := judgerepo.NewStatusRepository(redisCache, appCfg.Judge.StatusTTL)
	statsRepo := judgerepo.NewStatsRepository(mysqlDB)
	contestRepo := contestrepo.NewContestRepository(mysqlDB)
	rankRepo := contestrepo.NewRankRepository(mysqlDB)
	problemRepo := contestrepo.NewProblemRepository(mysqlDB)
	rankEngine := rank.NewEngine(contestRepo, rankRepo)

	packCache := testcase.NewPackCache(
		appCfg.Cache.RootDir,
		appCfg.Cache.TTL,
		appCfg.Cache.LockWait,
		appCfg.Cache.MaxEntries,
		appCfg.MinIO.DataPackBucket,
		objStorage,
		redisCache,
	)
	caseStore := testcase.NewStore(appCfg.Cache.RootDir)
	judgeSvc := service.NewJudgeService(
		appCfg.Judge.WorkRoot,
		caseStore,
		runner.New(),
		runner.Compile,
		appCfg.Judge.CompileTimeout,
	)

	consumer := service.NewConsumer(
		appCfg.Consumer,
		judgeSvc,
		problemRepo,
		packCache,
		statusRepo,
		statsRepo,
		rankEngine,
		objStorage,
		mqClient,
	)
	if err := consumer.Register(context.Background(), mqClient); err != nil {
		logger.Error(context.Background(), "subscribe kafka failed", zap.Error(err))
		return
	}
	if err := mqClient.Start(); err != nil {
		logger.Error(context.Background(), "start kafka consumer failed", zap.Error(err))
		return
	}

	updaterCtx, stopUpdater := context.WithCancel(context.Background())
	defer stopUpdater()
	statusUpdater := contestsvc.NewStatusUpdater(contestRepo, appCfg.Contest.StatusInterval)
	go statusUpdater.Run(updaterCtx)

	httpServer := buildHTTPServer(appCfg.Server, statusRepo, rankEngine)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "judge http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
	_ = mqClient.Stop()
}

func buildHTTPServer(cfg ServerConfig, statusRepo *judgerepo.StatusRepository, rankEngine *rank.Engine) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	api := router.Group("/api/v1")
	judgectl.NewJudgeController(statusRepo).RegisterRoutes(api.Group("/judge"))
	contestctl.NewContestController(rankEngine).RegisterRoutes(api)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
