package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/betbook/internal/eventcache"
	"github.com/MarkoPoloResearchLab/betbook/internal/httpapi"
	"github.com/MarkoPoloResearchLab/betbook/internal/oplog"
	"github.com/MarkoPoloResearchLab/betbook/internal/payments"
	"github.com/MarkoPoloResearchLab/betbook/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/betbook/pkg/betting"
	"github.com/MarkoPoloResearchLab/betbook/pkg/wallet"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	flagDatabaseURL     = "database-url"
	flagListenAddr      = "listen-addr"
	flagSigningKey      = "jwt-signing-key"
	flagIssuer          = "jwt-issuer"
	flagAllowedOrigins  = "allowed-origins"
	flagProviderBaseURL = "provider-base-url"
	flagProviderAPIKey  = "provider-api-key"
	flagRedisAddr       = "redis-addr"

	configKeyDatabaseURL     = "database_url"
	configKeyListenAddr      = "listen_addr"
	configKeySigningKey      = "jwt_signing_key"
	configKeyIssuer          = "jwt_issuer"
	configKeyAllowedOrigins  = "allowed_origins"
	configKeyProviderBaseURL = "provider_base_url"
	configKeyProviderAPIKey  = "provider_api_key"
	configKeyRedisAddr       = "redis_addr"

	defaultDatabaseURL = "sqlite:///tmp/betbook.db"
	defaultListenAddr  = ":8080"
)

type runtimeConfig struct {
	DatabaseURL     string
	ListenAddr      string
	SigningKey      string
	Issuer          string
	AllowedOrigins  string
	ProviderBaseURL string
	ProviderAPIKey  string
	RedisAddr       string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "betbookd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "betbookd",
		Short:         "Betting wallet and settlement HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL or sqlite connection string")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagSigningKey, "", "HMAC key for bearer tokens")
	cmd.Flags().String(flagIssuer, "betbook", "expected token issuer")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated CORS origins")
	cmd.Flags().String(flagProviderBaseURL, "", "payment provider base URL (empty disables the provider)")
	cmd.Flags().String(flagProviderAPIKey, "", "payment provider API key")
	cmd.Flags().String(flagRedisAddr, "", "redis address for the event cache (empty disables caching)")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	bindings := map[string]string{
		configKeyDatabaseURL:     "DATABASE_URL",
		configKeyListenAddr:      "LISTEN_ADDR",
		configKeySigningKey:      "JWT_SIGNING_KEY",
		configKeyIssuer:          "JWT_ISSUER",
		configKeyAllowedOrigins:  "ALLOWED_ORIGINS",
		configKeyProviderBaseURL: "PROVIDER_BASE_URL",
		configKeyProviderAPIKey:  "PROVIDER_API_KEY",
		configKeyRedisAddr:       "REDIS_ADDR",
	}
	for configKey, envName := range bindings {
		if err := viper.BindEnv(configKey, envName); err != nil {
			return err
		}
	}
	flagsByKey := map[string]string{
		configKeyDatabaseURL:     flagDatabaseURL,
		configKeyListenAddr:      flagListenAddr,
		configKeySigningKey:      flagSigningKey,
		configKeyIssuer:          flagIssuer,
		configKeyAllowedOrigins:  flagAllowedOrigins,
		configKeyProviderBaseURL: flagProviderBaseURL,
		configKeyProviderAPIKey:  flagProviderAPIKey,
		configKeyRedisAddr:       flagRedisAddr,
	}
	for configKey, flagName := range flagsByKey {
		if err := viper.BindPFlag(configKey, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = viper.GetString(configKeyDatabaseURL)
	cfg.ListenAddr = viper.GetString(configKeyListenAddr)
	cfg.SigningKey = viper.GetString(configKeySigningKey)
	cfg.Issuer = viper.GetString(configKeyIssuer)
	cfg.AllowedOrigins = viper.GetString(configKeyAllowedOrigins)
	cfg.ProviderBaseURL = viper.GetString(configKeyProviderBaseURL)
	cfg.ProviderAPIKey = viper.GetString(configKeyProviderAPIKey)
	cfg.RedisAddr = viper.GetString(configKeyRedisAddr)

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.SigningKey == "" {
		return fmt.Errorf("jwt signing key is required")
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()

	if err := gormstore.AutoMigrate(gormDB); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	clock := func() int64 { return time.Now().UTC().Unix() }
	walletService, err := wallet.NewService(
		gormstore.NewWalletStore(gormDB),
		clock,
		wallet.WithOperationLogger(oplog.NewWalletLogger(logger)),
	)
	if err != nil {
		return fmt.Errorf("wallet service init: %w", err)
	}
	withdrawals, err := wallet.NewWithdrawalManager(walletService)
	if err != nil {
		return fmt.Errorf("withdrawal manager init: %w", err)
	}
	bettingService, err := betting.NewService(
		gormstore.NewBettingStore(gormDB),
		clock,
		betting.WithOperationLogger(oplog.NewBettingLogger(logger)),
	)
	if err != nil {
		return fmt.Errorf("betting service init: %w", err)
	}

	// Complete any settlement pass a previous process left unfinished before
	// accepting traffic.
	recovered, err := bettingService.RecoverPendingSettlements(ctx)
	if err != nil {
		return fmt.Errorf("settlement recovery: %w", err)
	}
	if recovered > 0 {
		logger.Info("resumed interrupted settlements", zap.Int("events", recovered))
	}

	var cache *eventcache.Cache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, event cache disabled", zap.Error(err))
		} else {
			cache = eventcache.New(redisClient)
		}
	}

	server, err := httpapi.NewServer(
		httpapi.Config{
			ListenAddr:     cfg.ListenAddr,
			AllowedOrigins: httpapi.ParseAllowedOrigins(cfg.AllowedOrigins),
			SigningKey:     cfg.SigningKey,
			Issuer:         cfg.Issuer,
		},
		logger,
		walletService,
		withdrawals,
		bettingService,
		payments.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey),
		cache,
	)
	if err != nil {
		return fmt.Errorf("http server init: %w", err)
	}
	return server.Run(ctx)
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, err
	}

	var db *gorm.DB
	gormConfig := &gorm.Config{}
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqlitePath), gormConfig)
	default:
		return nil, nil, fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if driver == "sqlite" {
		// The conditional-update concurrency scheme relies on serialized
		// writers; sqlite gets a single connection.
		sqlDB.SetMaxOpenConns(1)
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = "betbook.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}
