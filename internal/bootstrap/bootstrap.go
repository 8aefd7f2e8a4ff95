package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/controllers"
	appMigrations "github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/migrations"
	appRepos "github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/repositories"
	appRoutes "github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/routes"
	appServices "github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/services"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/cache"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/config"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/db"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/identity"
	appMiddleware "github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/middleware"
	pkgAuth "github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/pkg/auth"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/pkg/logger"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/seed"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/upstream"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	AuthService         *appServices.AuthService
	ProfileService      *appServices.ProfileService
	GradebookService    *appServices.GradebookService
	AuthController      *appControllers.AuthController
	ProfileController   *appControllers.ProfileController
	GradebookController *appControllers.GradebookController
	AuthMiddleware      *appMiddleware.AuthMiddleware
	Repos               *appRepos.Repositories
	JWTService          *pkgAuth.JWTService
	UpstreamClient      upstream.Client
	CacheStore          cache.Store
	Logger              zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool)

	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		dbPool.Close()
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		dbPool.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")

	if err := seed.CreateDefaultData(context.Background(), dbPool, lgr); err != nil {
		// Log the error but don't fail the startup over seed data.
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	// Housekeeping: drop refresh tokens that can never be redeemed again.
	tokenRepo := appRepos.NewTokenRepository(dbPool)
	if removed, err := tokenRepo.DeleteExpiredTokens(context.Background()); err != nil {
		lgr.Warn().Err(err).Msg("Failed to delete expired refresh tokens")
	} else if removed > 0 {
		lgr.Info().Int64("removed", removed).Msg("Deleted expired refresh tokens")
	}

	return dbPool, nil
}

// SetupCacheStore builds the configured cache backend. When redis is
// configured but unreachable the server starts on the in-process store
// instead; a cold cache beats a dead dashboard.
func SetupCacheStore(cfg *config.Config, lgr zerolog.Logger) cache.Store {
	if strings.ToLower(cfg.Cache.Backend) == "memory" {
		lgr.Info().Msg("Using in-process cache store")
		return cache.NewMemoryStore()
	}

	store, err := cache.NewRedisStore(cfg)
	if err != nil {
		lgr.Warn().Err(err).Str("addr", cfg.Redis.Addr).
			Msg("Redis unavailable, falling back to in-process cache store")
		return cache.NewMemoryStore()
	}

	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to redis cache store")
	return store
}

// parseDuration is a forgiving wrapper; config validation already checked the
// formats, so the fallback only covers programmatic Config values.
func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(dbPool)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  parseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		RefreshTokenExp: parseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	deps.UpstreamClient = upstream.NewHTTPClient(cfg, lgr)
	deps.CacheStore = SetupCacheStore(cfg, lgr)

	resolver := identity.NewResolver(deps.Repos.UserRepository)
	gradeCache := cache.New(deps.CacheStore, cfg.CacheTTL(), lgr)

	deps.AuthService = appServices.NewAuthService(
		deps.Repos.UserRepository,
		deps.Repos.TokenRepository,
		deps.JWTService,
		parseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		lgr,
	)
	deps.ProfileService = appServices.NewProfileService(deps.Repos.UserRepository, lgr)
	deps.GradebookService = appServices.NewGradebookService(resolver, deps.UpstreamClient, gradeCache, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService, lgr)
	deps.ProfileController = appControllers.NewProfileController(deps.ProfileService, lgr)
	deps.GradebookController = appControllers.NewGradebookController(deps.GradebookService, lgr)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.Default()

	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.ProfileController,
		deps.GradebookController,
		deps.AuthMiddleware,
	)

	return router
}
