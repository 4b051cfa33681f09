package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/afflab/affiliatehub/backend/internal/auth"
	"github.com/afflab/affiliatehub/backend/internal/config"
	"github.com/afflab/affiliatehub/backend/internal/database"
	"github.com/afflab/affiliatehub/backend/internal/email"
	"github.com/afflab/affiliatehub/backend/internal/fetcher"
	"github.com/afflab/affiliatehub/backend/internal/logging"
	"github.com/afflab/affiliatehub/backend/internal/mirror"
	"github.com/afflab/affiliatehub/backend/internal/server"
	"github.com/afflab/affiliatehub/backend/internal/store"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "affiliatehub-api",
		Short: "Affiliate Hub backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("allowed-email", defaults.GetString("auth.allowed_email"), "Email of the dashboard owner")
	cmd.PersistentFlags().Int("session-ttl-hours", defaults.GetInt("auth.session_ttl_hours"), "Session token TTL in hours")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.allowed_email", "allowed-email")
	bindFlag(cmd, "auth.session_ttl_hours", "session-ttl-hours")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	hubStore, err := store.New(store.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: store.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	mirrorService, err := mirror.NewService(mirror.ServiceConfig{
		Client: mirror.NewClient(nil, logger),
		Store:  hubStore,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	hubStore.AttachSyncer(mirrorService)

	campaignService, err := email.NewService(email.ServiceConfig{
		Mirror: mirrorService,
		Store:  hubStore,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	fetchService := fetcher.NewService(fetcher.ServiceConfig{Logger: logger})

	sessions := auth.NewSessionIssuer(auth.SessionIssuerConfig{
		SigningSecret: []byte(appConfig.AuthSigningSecret),
		AllowedEmail:  appConfig.AuthAllowedEmail,
		Issuer:        "affiliatehub-auth",
		Audience:      "affiliatehub-api",
		SessionTTL:    time.Duration(appConfig.SessionTTLHours) * time.Hour,
	})

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Sessions:  sessions,
		Store:     hubStore,
		Mirror:    mirrorService,
		Campaigns: campaignService,
		Fetcher:   fetchService,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
