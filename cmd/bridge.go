package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deskgram/deskgram/internal/bridge"
	"github.com/deskgram/deskgram/internal/config"
	"github.com/deskgram/deskgram/internal/crisp"
	"github.com/deskgram/deskgram/internal/keyword"
	"github.com/deskgram/deskgram/internal/providers"
	"github.com/deskgram/deskgram/internal/store"
	"github.com/deskgram/deskgram/internal/telegram"
	"github.com/deskgram/deskgram/internal/uploader"
)

func runBridge() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		fmt.Println("No configuration found. Starting setup wizard...")
		fmt.Println()
		runOnboard()
		return
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Crisp.ID == "" || cfg.Crisp.Key == "" || cfg.Crisp.WebsiteID == "" {
		slog.Error("crisp credentials missing, run `deskgram onboard`")
		os.Exit(1)
	}
	if cfg.Telegram.Token == "" || cfg.Telegram.GroupID == 0 {
		slog.Error("telegram token or group id missing, run `deskgram onboard`")
		os.Exit(1)
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	support := crisp.NewClient(cfg.Crisp.ID, cfg.Crisp.Key, cfg.Crisp.WebsiteID)
	if err := support.Ping(startCtx); err != nil {
		slog.Error("crisp credentials rejected", "error", err)
		os.Exit(1)
	}

	bot, err := telegram.New(cfg.Telegram)
	if err != nil {
		slog.Error("telegram setup failed", "error", err)
		os.Exit(1)
	}
	if err := bot.Ping(startCtx); err != nil {
		slog.Error("telegram token rejected", "error", err)
		os.Exit(1)
	}

	var completer providers.Completer
	if cfg.HasAIProvider() {
		p := providers.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.APIBase, cfg.OpenAI.Model)
		// A flaky AI endpoint should not keep the bridge down.
		if err := p.Ping(startCtx); err != nil {
			slog.Warn("ai provider unreachable, auto-replies may fail", "error", err)
		}
		completer = p
		slog.Info("ai auto-reply enabled", "model", cfg.OpenAI.Model)
	} else {
		slog.Info("no ai provider configured, keyword replies only")
	}

	matcher := keyword.New(cfg.KeywordRules())
	sessions := store.New(cfg.SessionsPath(cfgPath))
	slog.Info("session store loaded", "sessions", sessions.Len())

	br := bridge.New(bridge.Dependencies{
		Support:   support,
		Chat:      bot,
		Store:     sessions,
		Matcher:   matcher,
		Completer: completer,
		Uploader:  uploader.New(cfg.Uploader),
		Config:    cfg,
	}, cfgPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig.String())
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return crisp.NewListener(support, br.HandleVisitorEvent).Run(gctx)
	})
	g.Go(func() error {
		return bot.Run(gctx, br)
	})
	g.Go(func() error {
		return config.Watch(gctx, cfgPath, cfg, func() {
			matcher.ReplaceRules(cfg.KeywordRules())
		})
	})

	slog.Info("bridge running", "website", cfg.Crisp.WebsiteID, "group", cfg.Telegram.GroupID)
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		slog.Error("bridge stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("bridge stopped")
}
