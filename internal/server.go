package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/ipinfo/go/v2/ipinfo"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noble-hunt/axle/internal/auth"
	"github.com/noble-hunt/axle/internal/axle"
	"github.com/noble-hunt/axle/internal/config"
	"github.com/noble-hunt/axle/internal/db"
	"github.com/noble-hunt/axle/internal/environment"
	"github.com/noble-hunt/axle/internal/healthreport"
	"github.com/noble-hunt/axle/internal/middleware"
	"github.com/noble-hunt/axle/internal/misc"
	"github.com/noble-hunt/axle/internal/suggestion"
	"github.com/noble-hunt/axle/internal/telemetry/metrics"
	"github.com/noble-hunt/axle/internal/telemetry/tracing"
	"github.com/noble-hunt/axle/internal/wearables"
	"github.com/noble-hunt/axle/internal/workout"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config *config.Config
	dbPool *pgxpool.Pool

	environmentApi   *environment.Api
	locationResolver *environment.Resolver
	userLocations    *environment.UserLocations
	wearableRegistry *wearables.Registry

	workoutRepo     *workout.Repo
	reportsRepo     *healthreport.Repo
	suggestionsRepo *suggestion.Repo
	connectionsRepo *wearables.Repo
	jobRunsRepo     *axle.JobRunsRepo

	suggestionService *suggestion.Service
	syncer            *axle.Syncer
	jobRunner         *axle.JobRunner
	scheduler         *axle.Scheduler

	redisClient  *redis.Client
	loginChecker *auth.LoginChecker
	authService  *auth.Service

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	AdminUsername           string
	AdminPasswordHash       string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.DBHost,
		DBPort:         cfg.DBPort,
		DBName:         cfg.DBName,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.DBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("axle", "backend", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	authService := auth.NewAuthService(&auth.Admin{
		Username:     params.AdminUsername,
		PasswordHash: params.AdminPasswordHash,
	}, auth.DefaultTTL, rdb)
	go func() {
		for range time.Tick(time.Hour * 8) {
			authService.ScanAndClean(ctx)
		}
	}()

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "axle-backend", rdb)
	if err != nil {
		return nil, err
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	environmentApi := environment.NewApi(
		cfg.ForecastApiURL,
		cfg.AirQualityApiURL,
		tracedHttpClient,
	)

	var defaultLocation *environment.Location
	if cfg.DefaultLatitude != 0 || cfg.DefaultLongitude != 0 {
		defaultLocation = &environment.Location{
			Latitude:  cfg.DefaultLatitude,
			Longitude: cfg.DefaultLongitude,
		}
	}

	s := &Server{
		config:      cfg,
		dbPool:      dbPool,
		versionInfo: params.VersionInfo,

		environmentApi: environmentApi,
		locationResolver: environment.NewResolver(
			ipinfo.NewClient(tracedHttpClient, nil, cfg.IpInfoAPIKey),
			rdb,
		),
		userLocations: environment.NewUserLocations(rdb, defaultLocation),
		wearableRegistry: wearables.NewRegistry(wearables.ProviderConfig{
			FitbitBaseURL: cfg.FitbitApiURL,
			OuraBaseURL:   cfg.OuraApiURL,
			WhoopBaseURL:  cfg.WhoopApiURL,
			GarminBaseURL: cfg.GarminApiURL,
		}, tracedHttpClient),

		workoutRepo:     workout.NewRepo(dbPool),
		reportsRepo:     healthreport.NewRepo(dbPool),
		suggestionsRepo: suggestion.NewRepo(dbPool),
		connectionsRepo: wearables.NewRepo(dbPool),
		jobRunsRepo:     axle.NewJobRunsRepo(dbPool),

		redisClient:  rdb,
		authService:  authService,
		loginChecker: auth.NewLoginChecker(auth.DefaultTTL, rdb),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	s.suggestionService = suggestion.NewService(s.suggestionsRepo, s.workoutRepo, s.reportsRepo)

	baselines := axle.NewBaselineComputer(s.reportsRepo, axle.DefaultBaselineWindowDays)
	s.syncer = axle.NewSyncer(axle.SyncerParams{
		Connections:  s.connectionsRepo,
		Registry:     s.wearableRegistry,
		Reports:      s.reportsRepo,
		Workouts:     s.workoutRepo,
		Baselines:    baselines,
		Environment:  environmentApi,
		Locations:    s.userLocations,
		Metrics:      metricsManager,
		FetchTimeout: time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
	})

	s.jobRunner = axle.NewJobRunner(axle.JobRunnerParams{
		Workouts:    s.workoutRepo,
		Suggestions: s.suggestionService,
		Syncer:      s.syncer,
		JobRuns:     s.jobRunsRepo,
		Metrics:     metricsManager,
		Workers:     cfg.JobWorkers,
	})
	s.scheduler = axle.NewScheduler(s.jobRunner, cfg.JobHourUTC)

	return s, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	workoutHandler := workout.NewHandler(s.workoutRepo)
	r.HandleFunc("/workouts", workoutHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-workout")
	r.HandleFunc("/workouts/{userId}", workoutHandler.HandleList).Methods("GET", "OPTIONS").Name("list-workouts")
	r.HandleFunc("/workouts/{userId}/trends", workoutHandler.HandleTrends).Methods("GET", "OPTIONS").Name("workout-trends")

	suggestionHandler := suggestion.NewHandler(s.suggestionService)
	r.HandleFunc("/suggestions/{userId}/today", suggestionHandler.HandleGetToday).Methods("GET", "OPTIONS").Name("suggestion-today")
	r.HandleFunc("/suggestions/{id}/start", suggestionHandler.HandleStart).Methods("POST", "OPTIONS").Name("suggestion-start")

	reportsHandler := healthreport.NewHandler(s.reportsRepo)
	r.HandleFunc("/reports/{userId}/today", reportsHandler.HandleGetToday).Methods("GET", "OPTIONS").Name("report-today")
	r.HandleFunc("/reports/{userId}", reportsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-reports")

	wearablesHandler := wearables.NewHandler(s.connectionsRepo, s.wearableRegistry)
	r.HandleFunc("/wearables/{userId}/connect", wearablesHandler.HandleConnect).Methods("POST", "OPTIONS").Name("connect-wearable")
	r.HandleFunc("/wearables/{userId}", wearablesHandler.HandleList).Methods("GET", "OPTIONS").Name("list-wearables")
	r.HandleFunc("/wearables/{userId}/{provider}", wearablesHandler.HandleDisconnect).Methods("DELETE", "OPTIONS").Name("disconnect-wearable")

	// admin endpoints run behind the auth middleware
	dailyJobHandler := axle.NewHandler(s.jobRunner, s.jobRunsRepo)
	r.HandleFunc("/admin/dailyjob/trigger", dailyJobHandler.HandleTrigger).Methods("POST", "OPTIONS").Name("dailyjob-trigger")
	r.HandleFunc("/admin/dailyjob/last", dailyJobHandler.HandleLastRun).Methods("GET", "OPTIONS").Name("dailyjob-last")

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	miscHandler := misc.NewHandler(s.locationResolver, s.userLocations, s.versionInfo, s.authService)
	miscHandler.SetupRoutes(r, reqRateLimiter, s.metricsManager, s.config.LoginRateLimitAllowedPerMin)

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.scheduler.Start(ctx)

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.scheduler.Stop()
	log.Trace("scheduler stopped ...")

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
