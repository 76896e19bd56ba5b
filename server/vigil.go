package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"

	"github.com/goto/salt/log"

	"github.com/vigil-dq/vigil/config"
	"github.com/vigil-dq/vigil/core/metric"
	scheduleService "github.com/vigil-dq/vigil/core/schedule/service"
	timelineService "github.com/vigil-dq/vigil/core/timeline/service"
	"github.com/vigil-dq/vigil/ext/executor/command"
	"github.com/vigil-dq/vigil/ext/notify/webhook"
	"github.com/vigil-dq/vigil/ext/repository"
	"github.com/vigil-dq/vigil/ext/resultstore"
	"github.com/vigil-dq/vigil/internal/errors"
	storeFs "github.com/vigil-dq/vigil/internal/store/fs"
	"github.com/vigil-dq/vigil/server/handler"
)

const shutdownWait = 30 * time.Second

type setupFn func() error

type VigilServer struct {
	conf   *config.ServerConfig
	logger log.Logger

	storage      afero.Fs
	scheduleRepo *storeFs.ScheduleRepository

	scheduleSvc  *scheduleService.ScheduleService
	executionSvc *scheduleService.ExecutionService
	timelineSvc  *timelineService.TimelineService
	scheduler    *scheduleService.Scheduler

	httpAddr   string
	httpServer *http.Server
}

func New(conf *config.ServerConfig) (*VigilServer, error) {
	server := &VigilServer{
		conf:     conf,
		httpAddr: fmt.Sprintf("%s:%d", conf.Serve.Host, conf.Serve.Port),
		logger:   NewLogger(conf.Log.Level),
	}

	setupFns := []setupFn{
		server.setupStorage,
		server.setupServices,
		server.setupScheduler,
		server.setupMonitoring,
		server.setupHTTPServer,
	}

	for _, fn := range setupFns {
		if err := fn(); err != nil {
			return server, err
		}
	}

	server.logger.Info("starting vigil", "address", server.httpAddr)
	server.startListening()

	return server, nil
}

func NewLogger(level string) log.Logger {
	if level == "" {
		level = "info"
	}
	return log.NewLogrus(
		log.LogrusWithLevel(level),
		log.LogrusWithWriter(os.Stderr),
	)
}

func (s *VigilServer) setupStorage() error {
	path := s.conf.Storage.Path
	if path == "" {
		path = "."
	}

	base := afero.NewOsFs()
	if err := base.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("unable to prepare storage path %s: %w", path, err)
	}
	s.storage = afero.NewBasePathFs(base, path)
	return nil
}

func (s *VigilServer) setupServices() error {
	s.scheduleRepo = storeFs.NewScheduleRepository(s.storage)
	executionRepo := storeFs.NewExecutionRepository(s.storage)
	timelineRepo := storeFs.NewTimelineRepository(s.storage)

	results := resultstore.NewFileStore(s.logger, afero.NewBasePathFs(s.storage, "results"))
	graphs := repository.NewGraphReader(s.logger, s.storage)
	resolver := metric.NewResolver(s.logger)
	descriptors := metric.NewDocumentProvider()

	executor := command.NewExecutor(s.logger,
		s.conf.Executor.Command,
		s.conf.Executor.Args,
		s.conf.Executor.WorkDir,
		time.Duration(s.conf.Executor.TimeoutInMinutes)*time.Minute,
	)

	s.executionSvc = scheduleService.NewExecutionService(s.logger, s.scheduleRepo, executionRepo, executor)

	s.scheduler = scheduleService.NewScheduler(s.logger, s.executionSvc)
	s.executionSvc.AddCompletionListener(s.scheduler)

	var notifier scheduleService.Notifier
	if s.conf.Alerting.WebhookURL != "" {
		notifier = webhook.NewNotifier(s.logger,
			s.conf.Alerting.WebhookURL,
			time.Duration(s.conf.Alerting.TimeoutInSeconds)*time.Second,
		)
	}
	s.executionSvc.AddCompletionListener(
		scheduleService.NewAlertRunner(s.logger, results, resolver, descriptors, notifier))

	s.scheduleSvc = scheduleService.NewScheduleService(s.logger, s.scheduleRepo, s.scheduler)
	s.timelineSvc = timelineService.NewTimelineService(s.logger, graphs, results, resolver, descriptors, timelineRepo)
	return nil
}

func (s *VigilServer) setupScheduler() error {
	if err := s.scheduler.Bootstrap(context.Background(), s.scheduleRepo); err != nil {
		s.logger.Error("some stored schedules could not be registered", "error", err)
	}
	s.scheduler.Start()
	return nil
}

func (s *VigilServer) setupMonitoring() error {
	if s.conf.Telemetry.ProfileAddr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	go func() {
		s.logger.Info("listening for profiling at", "address", s.conf.Telemetry.ProfileAddr)
		if err := http.ListenAndServe(s.conf.Telemetry.ProfileAddr, mux); err != nil {
			s.logger.Error("profiling server error", "error", err)
		}
	}()
	return nil
}

func (s *VigilServer) setupHTTPServer() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.New(s.logger, s.scheduleSvc, s.executionSvc, s.timelineSvc).RegisterRoutes(router)

	s.httpServer = &http.Server{
		Addr:    s.httpAddr,
		Handler: router,
	}
	return nil
}

func (s *VigilServer) startListening() {
	go func() {
		s.logger.Info("listening at", "address", s.httpAddr)
		if err := s.httpServer.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				s.logger.Fatal("server error", "error", err)
			}
		}
	}()
}

func (s *VigilServer) Shutdown() {
	s.logger.Warn("shutting down server")

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("error in http shutdown", "error", err)
		}
	}

	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.executionSvc != nil {
		s.executionSvc.Wait()
	}
	s.logger.Info("server shutdown complete")
}
