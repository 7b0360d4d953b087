package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/streako/streako/internal/api"
	"github.com/streako/streako/internal/flow"
	"github.com/streako/streako/internal/messaging"
	"github.com/streako/streako/internal/metrics"
	"github.com/streako/streako/internal/scheduler"
	"github.com/streako/streako/internal/store"
	"github.com/streako/streako/internal/telegram"
	"github.com/streako/streako/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Streako state data
	DefaultStateDir = "/var/lib/streako"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "streako.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := run(flags); err != nil {
		slog.Error("Streako failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Streako exited successfully")
}

// Config holds environment configuration
type Config struct {
	BotToken     string
	DatabaseURL  string
	StateDir     string
	APIAddr      string
	SMSMirrorTo  string
	AdminEnabled bool
}

// Flags holds command line flag values
type Flags struct {
	botToken     *string
	dbDSN        *string
	stateDir     *string
	apiAddr      *string
	smsMirrorTo  *string
	adminEnabled *bool
}

// initializeLogger sets up structured logging. Debug level is opt-in via
// STREAKO_DEBUG.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("STREAKO_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		BotToken:     os.Getenv("BOT_TOKEN"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		StateDir:     util.GetEnvOrDefault("STREAKO_STATE_DIR", DefaultStateDir),
		APIAddr:      util.GetEnvOrDefault("API_ADDR", api.DefaultAddr),
		SMSMirrorTo:  os.Getenv("STREAKO_SMS_MIRROR_TO"),
		AdminEnabled: util.ParseBoolEnv("STREAKO_ADMIN_API", true),
	}

	// Default to SQLite in the state directory when no database URL is set.
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No DATABASE_URL provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"BOT_TOKEN_SET", config.BotToken != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"STREAKO_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"STREAKO_SMS_MIRROR_TO_SET", config.SMSMirrorTo != "",
		"STREAKO_ADMIN_API", config.AdminEnabled)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		botToken:     flag.String("bot-token", config.BotToken, "Telegram bot API token (overrides $BOT_TOKEN)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "database DSN, SQLite path or postgres URL (overrides $DATABASE_URL)"),
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for Streako data (overrides $STREAKO_STATE_DIR)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "admin API listen address (overrides $API_ADDR)"),
		smsMirrorTo:  flag.String("sms-mirror-to", config.SMSMirrorTo, "phone number to mirror outbound messages to via SMS (overrides $STREAKO_SMS_MIRROR_TO)"),
		adminEnabled: flag.Bool("admin-api", config.AdminEnabled, "serve the admin API (overrides $STREAKO_ADMIN_API)"),
	}
	flag.Parse()

	slog.Debug("flags parsed",
		"botToken_set", *flags.botToken != "",
		"dbDSN_set", *flags.dbDSN != "",
		"stateDir", *flags.stateDir,
		"apiAddr", *flags.apiAddr,
		"smsMirrorTo_set", *flags.smsMirrorTo != "",
		"adminEnabled", *flags.adminEnabled)

	return flags
}

// buildStore selects the store backend from the DSN.
func buildStore(dsn string) (store.Store, error) {
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", dsn)
	return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
}

func run(flags Flags) error {
	st, err := buildStore(*flags.dbDSN)
	if err != nil {
		return err
	}
	defer st.Close()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// The scheduler and engine deliver through a relay that is bound to the
	// Telegram bot once it exists; the bot itself needs the engine, so the
	// relay breaks the construction cycle.
	relay := messaging.NewRelay()
	sched := scheduler.NewReminderScheduler(relay, collector)
	defer sched.Stop()

	engine := flow.NewEngine(st, sched, relay, collector)

	bot, err := telegram.NewBot(engine, telegram.WithToken(*flags.botToken))
	if err != nil {
		return err
	}

	var notifier messaging.Notifier = bot
	if *flags.smsMirrorTo != "" {
		sms, err := messaging.NewTwilioSMS()
		if err != nil {
			return err
		}
		notifier = messaging.NewMirrorNotifier(bot, sms, *flags.smsMirrorTo)
		slog.Info("Mirroring outbound messages via SMS", "mirrorTarget", *flags.smsMirrorTo)
	}
	relay.Bind(notifier)

	// Rebuild the reminder job set purely from durable state before any
	// live flow can complete a creation.
	sched.Clear()
	if err := sched.RehydrateAll(context.Background(), st); err != nil {
		return err
	}

	if *flags.adminEnabled {
		admin := api.NewServer(st, sched, registry, api.WithAddr(*flags.apiAddr))
		admin.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := admin.Shutdown(ctx); err != nil {
				slog.Error("Admin API shutdown failed", "error", err)
			}
		}()
	}

	go func() {
		exit := make(chan os.Signal, 1)
		signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
		<-exit
		slog.Info("Shutting down")
		bot.Stop()
	}()

	return bot.Start()
}
