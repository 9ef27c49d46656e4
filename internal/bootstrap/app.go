package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/locvowork/employee_directory/internal/config"
	"github.com/locvowork/employee_directory/internal/database"
	"github.com/locvowork/employee_directory/internal/domain"
	"github.com/locvowork/employee_directory/internal/handler"
	"github.com/locvowork/employee_directory/internal/logger"
	"github.com/locvowork/employee_directory/internal/metrics"
	"github.com/locvowork/employee_directory/internal/repository"
	"github.com/locvowork/employee_directory/internal/service"
	"github.com/locvowork/employee_directory/pkg/xlsxexport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Backend names the record store chosen at startup.
type Backend string

const (
	BackendMongo     Backend = "mongodb"
	BackendDatastore Backend = "datastore"
	BackendFile      Backend = "file"
)

// SelectBackend picks the store: a mongodb URI wins, then a Datastore project, then the file.
func SelectBackend(mongoURI, datastoreProject string) Backend {
	switch {
	case database.IsMongoURI(mongoURI):
		return BackendMongo
	case datastoreProject != "":
		return BackendDatastore
	default:
		return BackendFile
	}
}

type App struct {
	Echo     *echo.Echo
	Backend  Backend
	Store    domain.EmployeeRepository
	Service  *service.EmployeeService
	Search   *database.ElasticSearchClient
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	closers []func(context.Context) error
}

func NewApp() *App {
	return &App{
		Echo: echo.New(),
	}
}

// Initialize loads configuration and wires the store, service and routes.
func (a *App) Initialize(ctx context.Context) error {
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	cfg := config.DefaultEnvConfig

	logger.InitLogging(cfg.LOG_FILE_PATH, cfg.LOG_LEVEL)
	logger.InfoLog(ctx, "Environment variables loaded successfully")

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.NewMetrics(a.Registry)

	if err := a.initStore(ctx); err != nil {
		return err
	}

	var indexer service.SearchIndexer
	if cfg.ELASTICSEARCH_URL != "" {
		es, err := database.NewElasticSearchClient(cfg.ELASTICSEARCH_URL, cfg.ELASTICSEARCH_INDEX)
		if err != nil {
			return fmt.Errorf("failed to initialize search mirror: %w", err)
		}
		if err := es.EnsureIndex(ctx); err != nil {
			logger.WarnLog(ctx, "Search index check failed: %v", err)
		}
		a.Search = es
		indexer = es
		a.closers = append(a.closers, func(context.Context) error { es.Stop(); return nil })
		logger.InfoLog(ctx, "Mirroring employees to Elasticsearch index %s", es.Index())
	}

	a.Service = service.NewEmployeeService(a.Store, indexer, a.Metrics)

	if cfg.SEED_ON_START {
		n, err := database.NewDataSeeder(a.Service).SeedData(ctx, false)
		a.Metrics.EmployeesSeeded.Add(float64(n))
		if err != nil {
			return fmt.Errorf("failed to seed sample employees: %w", err)
		}
		logger.InfoLog(ctx, "Seeded %d sample employees", n)
	}

	exporter, err := newExporter(cfg.EXPORT_CONFIG_PATH)
	if err != nil {
		return fmt.Errorf("failed to load export config: %w", err)
	}

	a.RegisterMiddlewares()
	a.RegisterRoutes(handler.NewEmployeeHandler(a.Service, exporter), handler.NewHealthHandler(a.Service))
	return nil
}

func (a *App) initStore(ctx context.Context) error {
	cfg := config.DefaultEnvConfig
	a.Backend = SelectBackend(cfg.MONGODB_URI, cfg.DATASTORE_PROJECT_ID)

	switch a.Backend {
	case BackendMongo:
		mcfg := database.MongoConfig{
			URI:        cfg.MONGODB_URI,
			Database:   cfg.MONGODB_DATABASE,
			Collection: cfg.MONGODB_COLLECTION,
			Timeout:    cfg.MONGODB_TIMEOUT,
			MaxPool:    cfg.MONGODB_MAX_POOL,
		}
		client, err := database.NewMongoClient(ctx, mcfg)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		a.closers = append(a.closers, client.Disconnect)

		repo := repository.NewMongoEmployeeRepository(database.MongoCollection(client, mcfg), nil)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}
		a.Store = repo
		logger.InfoLog(ctx, "Using MongoDB for data storage")

	case BackendDatastore:
		client, err := database.NewDatastoreClient(ctx, cfg.DATASTORE_PROJECT_ID)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })

		a.Store = repository.NewDatastoreEmployeeRepository(client, cfg.DATASTORE_NAMESPACE, nil)
		logger.InfoLog(ctx, "Using Cloud Datastore for data storage")

	default:
		repo, err := repository.NewFileEmployeeRepository(cfg.DATA_FILE, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize file storage: %w", err)
		}
		a.Store = repo
		logger.InfoLog(ctx, "Using file-based storage at %s", repo.Path())
	}
	return nil
}

func newExporter(path string) (*xlsxexport.Exporter, error) {
	if path == "" {
		return xlsxexport.NewExporter(xlsxexport.DefaultEmployeeConfig())
	}
	cfg, err := xlsxexport.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return xlsxexport.NewExporter(cfg)
}

func (a *App) RegisterMiddlewares() {
	a.Echo.HideBanner = true
	a.Echo.HTTPErrorHandler = handler.HTTPErrorHandler

	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.CORS())
	a.Echo.Use(middleware.RequestID())
	a.Echo.Use(requestContext)
	a.Echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.InfoLog(c.Request().Context(), "%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
}

// requestContext attaches a request-scoped logger to the request context.
func requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := logger.WithLogger(req.Context(), map[string]interface{}{
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		})
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

func (a *App) RegisterRoutes(empHandler *handler.EmployeeHandler, healthHandler *handler.HealthHandler) {
	empHandler.Register(a.Echo.Group("/api/employees"))

	a.Echo.GET("/healthz", healthHandler.HealthzHandler)
	if a.Registry != nil {
		a.Echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))
	}

	if dir := config.DefaultEnvConfig.STATIC_DIR; dir != "" {
		a.Echo.Static("/", dir)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	addr := ":" + config.DefaultEnvConfig.APP_PORT
	errCh := make(chan error, 1)
	go func() {
		logger.InfoLog(ctx, "Server is running on %s", addr)
		errCh <- a.Echo.Start(addr)
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		logger.InfoLog(ctx, "Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultEnvConfig.SHUTDOWN_TIMEOUT)
	defer cancel()

	if err := a.Echo.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	if err := a.Close(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

// Close releases database and search clients in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
