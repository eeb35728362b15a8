package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/locvowork/wage_calculator/internal/config"
	"github.com/locvowork/wage_calculator/internal/database"
	"github.com/locvowork/wage_calculator/internal/domain"
	"github.com/locvowork/wage_calculator/internal/handler"
	"github.com/locvowork/wage_calculator/internal/logger"
	"github.com/locvowork/wage_calculator/internal/repository"
	"github.com/locvowork/wage_calculator/internal/repository/builder"
	"github.com/locvowork/wage_calculator/internal/service"
	"github.com/locvowork/wage_calculator/internal/wage"
)

type App struct {
	Echo            *echo.Echo
	DB              *sql.DB
	DatastoreClient *database.DatastoreClient

	Engine   *wage.Engine
	Sessions domain.SessionRepository
	History  domain.CalculationHistory
}

func NewApp() *App {
	e := echo.New()
	e.HideBanner = true
	return &App{
		Echo: e,
	}
}

// Initialize loads the configuration, opens the configured stores and
// registers the HTTP API.
func (a *App) Initialize(ctx context.Context) error {
	if err := a.InitStores(ctx); err != nil {
		return err
	}

	svc := service.NewWageService(a.Engine, a.Sessions, a.History).
		WithHistoryLimit(config.DefaultEnvConfig.HISTORY_LIMIT)
	wageHandler := handler.NewWageHandler(svc)
	sessionHandler := handler.NewSessionHandler(svc)

	// Register Middlewares
	a.RegisterMiddlewares()

	// Register Routes
	a.RegisterRoutes(wageHandler, sessionHandler)

	return nil
}

// InitStores prepares everything except the HTTP layer: configuration,
// logging, the wage engine, the session store and the calculation history.
func (a *App) InitStores(ctx context.Context) error {
	// Load environment configuration
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	cfg := config.DefaultEnvConfig

	// Initialize logging
	logger.InitLogging(cfg.LOG_FILE_PATH, cfg.LOG_LEVEL)
	logger.InfoLog(ctx, "Environment variables loaded successfully")

	engine, err := newEngine(cfg.RATE_TABLE_PATH, cfg.ROUNDING_MODE)
	if err != nil {
		return err
	}
	a.Engine = engine

	if err := a.initSessionStore(ctx); err != nil {
		a.Close()
		return err
	}

	if err := a.initHistory(ctx); err != nil {
		a.Close()
		return err
	}

	return nil
}

func newEngine(rateTablePath, roundingMode string) (*wage.Engine, error) {
	table, err := wage.LoadRateTable(rateTablePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load rate table: %w", err)
	}

	mode, err := wage.ParseRoundingMode(roundingMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rounding mode: %w", err)
	}

	return wage.NewEngine(table, wage.WithRounding(mode)), nil
}

func (a *App) initSessionStore(ctx context.Context) error {
	cfg := config.DefaultEnvConfig

	switch cfg.SESSION_STORE {
	case config.StoreMemory:
		a.Sessions = repository.NewMemorySessionRepository()

	case config.StorePostgres:
		dbConfig := database.Config{
			Host:            cfg.DB_HOST,
			Port:            cfg.DB_PORT,
			User:            cfg.DB_USER,
			Password:        cfg.DB_PASSWORD,
			DBName:          cfg.DB_NAME,
			SSLMode:         cfg.DB_SSL_MODE,
			MaxOpenConns:    cfg.DB_MAX_OPEN_CONNS,
			MaxIdleConns:    cfg.DB_MAX_IDLE_CONNS,
			ConnMaxLifetime: cfg.DB_CONN_MAX_LIFETIME,
		}
		db, err := database.NewPostgresDB(ctx, dbConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		a.DB = db
		if err := database.EnsureSessionSchema(ctx, db); err != nil {
			return err
		}
		a.Sessions = repository.NewSessionRepository(db, builder.Dollar)

	case config.StoreSQLite:
		db, err := database.NewSQLiteDB(ctx, cfg.SQLITE_PATH)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		a.DB = db
		if err := database.EnsureSessionSchema(ctx, db); err != nil {
			return err
		}
		a.Sessions = repository.NewSessionRepository(db, builder.Question)

	case config.StoreDatastore:
		client, err := database.NewDatastoreClient(ctx, cfg.DATASTORE_PROJECT_ID)
		if err != nil {
			return fmt.Errorf("failed to initialize datastore: %w", err)
		}
		a.DatastoreClient = client
		a.Sessions = client

	default:
		return fmt.Errorf("unknown session store %q", cfg.SESSION_STORE)
	}

	logger.InfoLog(ctx, "Session store %s initialized", cfg.SESSION_STORE)
	return nil
}

func (a *App) initHistory(ctx context.Context) error {
	cfg := config.DefaultEnvConfig

	if !cfg.HISTORY_ENABLED {
		logger.InfoLog(ctx, "Calculation history disabled")
		return nil
	}

	if cfg.ELASTIC_URL == "" {
		a.History = repository.NewMemoryHistory(cfg.HISTORY_LIMIT)
		return nil
	}

	es, err := database.NewElasticSearchClient(cfg.ELASTIC_URL, cfg.ELASTIC_INDEX)
	if err != nil {
		return err
	}
	if err := es.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("failed to prepare history index: %w", err)
	}
	a.History = es

	logger.InfoLog(ctx, "Calculation history stored in Elasticsearch at %s", cfg.ELASTIC_URL)
	return nil
}

func (a *App) RegisterMiddlewares() {
	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.RequestID())
	a.Echo.Use(logger.ContextLogger())
	a.Echo.Use(logger.RequestLogger())
	a.Echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: config.DefaultEnvConfig.CORS_ALLOW_ORIGINS,
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			handler.HeaderSessionID,
		},
		ExposeHeaders: []string{echo.HeaderContentDisposition, echo.HeaderXRequestID},
	}))
}

func (a *App) RegisterRoutes(wageHandler *handler.WageHandler, sessionHandler *handler.SessionHandler) {
	a.Echo.GET("/health", wageHandler.HealthHandler)

	api := a.Echo.Group("/api")
	api.GET("/roles", wageHandler.RolesHandler)
	api.GET("/roles/:role/rates", wageHandler.RatesHandler)
	api.POST("/calculate", wageHandler.CalculateHandler)
	api.POST("/earnings-by-age", wageHandler.EarningsByAgeHandler)
	api.POST("/parse-durations", wageHandler.ParseDurationsHandler)
	api.GET("/calculations", wageHandler.HistoryHandler)

	sessionGroup := api.Group("/sessions")
	sessionGroup.GET("", sessionHandler.ListHandler)
	sessionGroup.POST("", sessionHandler.CreateHandler)
	sessionGroup.GET("/:id", sessionHandler.GetHandler)
	sessionGroup.PUT("/:id", sessionHandler.SaveHandler)
	sessionGroup.PATCH("/:id/preferences", sessionHandler.PreferencesHandler)
	sessionGroup.DELETE("/:id", sessionHandler.DeleteHandler)

	exportGroup := api.Group("/export")
	exportGroup.POST("/xlsx", wageHandler.ExportXLSXHandler)
	exportGroup.POST("/csv", wageHandler.ExportCSVHandler)
}

// Run serves the API until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests within SHUTDOWN_TIMEOUT.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Echo.Start(":" + config.DefaultEnvConfig.APP_PORT)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.InfoLog(ctx, "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultEnvConfig.SHUTDOWN_TIMEOUT)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// Close releases the database and Datastore connections.
func (a *App) Close() {
	ctx := context.Background()
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			logger.WarnLog(ctx, "Failed to close database: %v", err)
		}
		a.DB = nil
	}
	if a.DatastoreClient != nil {
		if err := a.DatastoreClient.Close(); err != nil {
			logger.WarnLog(ctx, "Failed to close datastore client: %v", err)
		}
		a.DatastoreClient = nil
	}
}
