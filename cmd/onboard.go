package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/deskgram/deskgram/internal/config"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Interactive setup wizard",
		Run: func(cmd *cobra.Command, args []string) {
			runOnboard()
		},
	}
}

func runOnboard() {
	cfgPath := resolveConfigPath()
	cfg := config.Default()
	if existing, err := config.Load(cfgPath); err == nil {
		cfg = existing
	}

	groupID := ""
	if cfg.Telegram.GroupID != 0 {
		groupID = strconv.FormatInt(cfg.Telegram.GroupID, 10)
	}
	enableAI := cfg.OpenAI.APIKey != ""

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Crisp plugin identifier").
				Description("From your Crisp Marketplace plugin (plugin tier token).").
				Value(&cfg.Crisp.ID).
				Validate(required("identifier")),
			huh.NewInput().
				Title("Crisp plugin key").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Crisp.Key).
				Validate(required("key")),
			huh.NewInput().
				Title("Crisp website ID").
				Value(&cfg.Crisp.WebsiteID).
				Validate(required("website ID")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("From @BotFather. The bot must be an admin of your forum supergroup.").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Telegram.Token).
				Validate(required("token")),
			huh.NewInput().
				Title("Telegram group ID").
				Description("The forum supergroup where conversation topics are created (e.g. -1001234567890).").
				Value(&groupID).
				Validate(func(s string) error {
					if _, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
						return fmt.Errorf("must be a numeric chat id")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable AI auto-replies?").
				Value(&enableAI),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("OpenAI-compatible API key").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.OpenAI.APIKey),
			huh.NewInput().
				Title("API base URL").
				Value(&cfg.OpenAI.APIBase),
			huh.NewInput().
				Title("Model").
				Value(&cfg.OpenAI.Model),
		).WithHideFunc(func() bool { return !enableAI }),
	)

	if err := form.Run(); err != nil {
		fmt.Println("Setup cancelled.")
		os.Exit(1)
	}

	cfg.Telegram.GroupID, _ = strconv.ParseInt(strings.TrimSpace(groupID), 10, 64)
	if !enableAI {
		cfg.OpenAI.APIKey = ""
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		fmt.Printf("Could not write %s: %s\n", cfgPath, err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("Configuration written to %s\n", cfgPath)
	fmt.Println("Start the bridge with:  deskgram")
	fmt.Println("Check connectivity with:  deskgram doctor")
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}
