package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	_ "github.com/redmonkez12/go-todo-api/docs" // Swagger docs (generated)
	"github.com/redmonkez12/go-todo-api/internal/auth"
	"github.com/redmonkez12/go-todo-api/internal/config"
	"github.com/redmonkez12/go-todo-api/internal/database"
	httpServer "github.com/redmonkez12/go-todo-api/internal/http"
	"github.com/redmonkez12/go-todo-api/internal/logging"
	"github.com/redmonkez12/go-todo-api/internal/ratelimit"
	"github.com/redmonkez12/go-todo-api/internal/todo"
	"github.com/redmonkez12/go-todo-api/internal/user"
)

// @title           Go Todo API
// @version         1.0
// @description     A multi-user todo API with token authentication and owner-scoped todos.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "todo-api",
		Short:        "Multi-user todo HTTP API",
		SilenceUsage: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd)

	// Running without a subcommand starts the server
	rootCmd.RunE = serveCmd.RunE

	return rootCmd
}

func runMigrate(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())

	db, err := initDB(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("migrations applied", "driver", cfg.Database.Driver)
	return nil
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"token_format", cfg.Auth.TokenFormat,
	)

	db, err := initDB(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	rateLimiter, closeLimiter, err := newRateLimiter(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize rate limiter: %w", err)
	}
	defer closeLimiter()

	tokenService, err := newTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	userService, err := user.NewService(user.NewRepository(db), user.DefaultPasswordParams)
	if err != nil {
		return fmt.Errorf("failed to initialize user service: %w", err)
	}

	authService := auth.NewService(userService, tokenService)
	authHandler := auth.NewHandler(authService, rateLimiter, !cfg.Server.IsDevelopment())
	authMiddleware := auth.NewMiddleware(auth.NewResolver(tokenService, userService))

	todoHandler := todo.NewHandler(todo.NewService(todo.NewRepository(db)))

	router := httpServer.NewRouter(cfg, authHandler, todoHandler, authMiddleware, logger)

	server := httpServer.NewServer(
		":" + cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initDB opens the configured database and brings the schema up to date
func initDB(ctx context.Context, cfg config.DatabaseConfig, logger *logging.Logger) (*bun.DB, error) {
	db, err := database.Open(cfg.Driver, cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Debug("database ready", "driver", cfg.Driver)
	return db, nil
}

// newTokenService picks the token implementation named by TOKEN_FORMAT
func newTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	switch cfg.TokenFormat {
	case config.TokenFormatPaseto:
		return auth.NewPasetoService(cfg.PasetoKey)
	case config.TokenFormatJWT, "":
		return auth.NewJWTService(cfg.JWTSecret)
	default:
		return nil, fmt.Errorf("unknown token format %q", cfg.TokenFormat)
	}
}

// newRateLimiter connects to Redis when rate limiting is enabled.
// The returned close func is always safe to call.
func newRateLimiter(ctx context.Context, cfg *config.Config, logger *logging.Logger) (auth.RateLimiter, func(), error) {
	if !cfg.RateLimit.Enabled {
		logger.Info("rate limiting disabled")
		return ratelimit.Noop{}, func() {}, nil
	}

	client, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, func() {}, err
	}

	limiter := ratelimit.NewLimiter(client, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	return limiter, func() { client.Close() }, nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
