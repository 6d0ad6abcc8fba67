package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ashwinyue/next-concept/internal/config"
	"github.com/ashwinyue/next-concept/internal/database"
	"github.com/ashwinyue/next-concept/internal/handler"
	"github.com/ashwinyue/next-concept/internal/logger"
	"github.com/ashwinyue/next-concept/internal/middleware"
	"github.com/ashwinyue/next-concept/internal/repository"
	"github.com/ashwinyue/next-concept/internal/router"
	"github.com/ashwinyue/next-concept/internal/seed"
	"github.com/ashwinyue/next-concept/internal/service"
	"github.com/ashwinyue/next-concept/internal/service/auth"
)

const appName = "next-concept"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Concept taxonomy service",
		Long: `next-concept serves a layered concept taxonomy and a guided wizard
for drafting new concepts from parents, blueprints or generated drafts.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "./configs/config.yaml"
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfig, "Config file path (YAML)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(configPath)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update database tables",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrate(configPath)
			},
		},
		seedCmd(&configPath),
		tokenCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				fmt.Printf("%s version %s\n", appName, cfg.App.Version)
				return nil
			},
		},
	)
	return cmd
}

func seedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import concepts from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(*configPath, file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "./configs/seed.yaml", "Seed file path")
	return cmd
}

func tokenCmd(configPath *string) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for write operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwtSecret must be set to issue tokens")
			}
			svc, err := auth.NewService(cfg.Auth)
			if err != nil {
				return err
			}
			token, err := svc.IssueToken(subject, role, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Token subject")
	cmd.Flags().StringVar(&role, "role", auth.RoleOperator, "Token role")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

// bootstrap 加载配置、日志和数据库
func bootstrap(configPath string) (*config.Config, *logger.Logger, *database.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.App.Environment, cfg.App.Debug)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Sync()
		return nil, nil, nil, fmt.Errorf("failed to init database: %w", err)
	}
	log.Info("Database connected", "database", cfg.Database.DBName)
	return cfg, log, db, nil
}

// newRedisClient Redis 不可用时返回 nil，缓存和向导状态退回进程内
func newRedisClient(ctx context.Context, cfg *config.Config, log *logger.Logger) *redis.Client {
	if cfg.Redis.Host == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis unavailable, using in-process state", "addr", cfg.Redis.GetAddr(), "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

func serve(configPath string) error {
	cfg, log, db, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer db.Close()

	gin.SetMode(cfg.Server.Mode)
	ctx := context.Background()

	redisClient := newRedisClient(ctx, cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// 初始化各层
	repos := repository.NewRepositories(db.DB)
	services, err := service.NewServices(ctx, repos, cfg, redisClient, log)
	if err != nil {
		return fmt.Errorf("failed to init services: %w", err)
	}
	defer services.Close()
	handlers := handler.NewHandlers(services, db)

	var validator middleware.TokenValidator
	if services.Auth != nil {
		validator = services.Auth
	}
	r := router.SetupRouter(handlers, validator, log)

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("Shutting down server")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited")
	return nil
}

func migrate(configPath string) error {
	_, log, db, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer db.Close()

	log.Info("Migration complete")
	return nil
}

func runSeed(configPath, file string) error {
	cfg, log, db, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer db.Close()

	concepts, err := seed.Load(file)
	if err != nil {
		return err
	}

	ctx := context.Background()
	redisClient := newRedisClient(ctx, cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	services, err := service.NewServices(ctx, repository.NewRepositories(db.DB), cfg, redisClient, log)
	if err != nil {
		return fmt.Errorf("failed to init services: %w", err)
	}
	defer services.Close()

	n, err := services.Concept.Import(ctx, concepts)
	if err != nil {
		return fmt.Errorf("imported %d of %d concepts: %w", n, len(concepts), err)
	}
	log.Info("Seed imported", "file", file, "concepts", n)
	return nil
}
