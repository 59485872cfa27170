package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/deskgram/deskgram/internal/config"
	"github.com/deskgram/deskgram/internal/crisp"
	"github.com/deskgram/deskgram/internal/providers"
	"github.com/deskgram/deskgram/internal/store"
	"github.com/deskgram/deskgram/internal/telegram"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and connectivity health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("deskgram doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND)")
		fmt.Println()
		fmt.Println("Run `deskgram onboard` to create one.")
		return
	}
	fmt.Println(" (OK)")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fmt.Println()
	fmt.Println("  Crisp:")
	if cfg.Crisp.ID == "" || cfg.Crisp.Key == "" {
		fmt.Println("    credentials missing")
	} else {
		check(crisp.NewClient(cfg.Crisp.ID, cfg.Crisp.Key, cfg.Crisp.WebsiteID).Ping(ctx))
	}

	fmt.Println()
	fmt.Println("  Telegram:")
	if cfg.Telegram.Token == "" {
		fmt.Println("    token missing")
	} else if bot, botErr := telegram.New(cfg.Telegram); botErr != nil {
		fmt.Printf("    FAIL: %s\n", botErr)
	} else {
		check(bot.Ping(ctx))
	}

	fmt.Println()
	fmt.Println("  AI provider:")
	if !cfg.HasAIProvider() {
		fmt.Println("    not configured (keyword replies only)")
	} else {
		p := providers.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.APIBase, cfg.OpenAI.Model)
		fmt.Printf("    model: %s\n", cfg.OpenAI.Model)
		check(p.Ping(ctx))
	}

	fmt.Println()
	sessions := store.New(cfg.SessionsPath(cfgPath))
	fmt.Printf("  Sessions: %d tracked (%s)\n", sessions.Len(), cfg.SessionsPath(cfgPath))
	fmt.Printf("  Rules:    %d keyword rules\n", len(cfg.KeywordRules()))
}

func check(err error) {
	if err != nil {
		fmt.Printf("    FAIL: %s\n", err)
		return
	}
	fmt.Println("    OK")
}
