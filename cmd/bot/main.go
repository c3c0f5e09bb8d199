package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/xaenox/gideon-bot/internal/bot"
	"github.com/xaenox/gideon-bot/internal/gateway"
	"github.com/xaenox/gideon-bot/internal/github"
	"github.com/xaenox/gideon-bot/internal/storage"
	"github.com/xaenox/gideon-bot/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration; validation failures are fatal before any
	// network call is attempted.
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize conversation storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory conversation storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL conversation storage")
		store, err = storage.NewPostgresStorage(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize completion gateway
	gw := gateway.New(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		logger,
	)

	// Optional repository automation
	var ghClient bot.PullRequestLister
	if cfg.GitHub.Token != "" {
		logger.Info("GitHub helpers enabled", zap.String("repo", cfg.GitHub.Repo))
		ghClient = github.NewClient(cfg.GitHub.Token, logger)
	}

	// Initialize bot
	b, err := bot.New(bot.Options{
		Token:         cfg.Discord.Token,
		MainChannelID: cfg.Discord.MainChannelID,
		Aliases:       cfg.Discord.Aliases,
		GitHub:        ghClient,
		GitHubRepo:    cfg.GitHub.Repo,
	}, store, gw, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	if err := b.Start(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
	defer b.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("Shutting down")
}
