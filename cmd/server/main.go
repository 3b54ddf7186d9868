// Package main is the entry point of the application
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tecu23/duel-server/internal/auth"
	"github.com/tecu23/duel-server/pkg/config"
	"github.com/tecu23/duel-server/pkg/events"
	"github.com/tecu23/duel-server/pkg/manager"
	"github.com/tecu23/duel-server/pkg/metrics"
	"github.com/tecu23/duel-server/pkg/requests"
	"github.com/tecu23/duel-server/pkg/server"
)

// App encapsulates global dependencies
type application struct {
	Auth      *auth.APIKeyAuth
	Identity  *auth.IdentityResolver
	Logger    *zap.Logger
	Config    *config.Config
	Publisher *events.Publisher
	Metrics   *metrics.Recorder
	Manager   *manager.Manager
	Hub       *server.Hub
	Store     requests.Store
	Server    *http.Server

	upgrader  websocket.Upgrader
	StartTime time.Time
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type loadFlags struct {
	configFile string
	envFile    string
}

func (f *loadFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.configFile, "config", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&f.envFile, "env-file", ".env", "dotenv file, ignored when missing")
}

func newRootCmd() *cobra.Command {
	var (
		lf    loadFlags
		port  string
		debug bool
	)

	cmd := &cobra.Command{
		Use:          "duel-server",
		Short:        "Realtime two-player chess matchmaking and relay over websockets",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.Sources{File: lf.configFile, EnvFile: lf.envFile})
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("debug") {
				cfg.Debug = debug
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			// Initialize logger
			logger := initLogger(cfg.Debug)
			defer func() { _ = logger.Sync() }()

			for _, w := range cfg.Warnings() {
				logger.Warn("config", zap.String("warning", w))
			}

			app, err := newApplication(cfg, logger)
			if err != nil {
				logger.Error("failed to initialize", zap.Error(err))
				return err
			}

			return app.serve()
		},
	}

	lf.register(cmd)
	cmd.Flags().StringVar(&port, "port", "8080", "server port")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newTokenCmd(&lf))

	return cmd
}

// newTokenCmd mints a player token signed with the configured secret
func newTokenCmd(lf *loadFlags) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <identity>",
		Short: "Print a signed player token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Sources{File: lf.configFile, EnvFile: lf.envFile})
			if err != nil {
				return err
			}

			token, err := auth.NewIdentityResolver(cfg.JWTSecret, false).Issue(args[0], ttl, time.Now())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}

func newApplication(cfg *config.Config, logger *zap.Logger) (*application, error) {
	// Initialize event publisher
	publisher := events.NewPublisher()

	recorder := metrics.NewRecorder()
	recorder.Subscribe(publisher)

	var store requests.Store
	if cfg.RedisURL != "" {
		rs, err := requests.NewRedisStore(cfg.RedisURL, cfg.RequestTTL, logger)
		if err != nil {
			return nil, err
		}
		store = rs
	} else {
		store = requests.NewMemoryStore(logger)
	}

	gm := manager.NewManager(logger, publisher,
		manager.WithStore(store),
		manager.WithTurnTimeout(cfg.TurnTimeout),
		manager.WithRejectionReports(cfg.ReportRejections),
	)

	app := &application{
		Auth:      auth.NewAPIKeyAuth(cfg.APIKeys),
		Identity:  auth.NewIdentityResolver(cfg.JWTSecret, cfg.TrustQueryIdentity),
		Logger:    logger,
		Config:    cfg,
		Publisher: publisher,
		Metrics:   recorder,
		Manager:   gm,
		Hub:       server.NewHub(gm, cfg.SendBuffer, logger),
		Store:     store,
		StartTime: time.Now(),
	}

	app.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     app.checkOrigin,
	}

	return app, nil
}

func initLogger(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	return logger
}

// Shutdown cleans up resources
func (app *application) Shutdown() {
	// Shut down hub
	if app.Hub != nil {
		app.Hub.Shutdown()
	}

	if closer, ok := app.Store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			app.Logger.Error("failed to close request store", zap.Error(err))
		}
	}

	app.Logger.Info("All components shut down successfully")
}
