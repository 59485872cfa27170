package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/deskgram/deskgram/internal/config"
	"github.com/deskgram/deskgram/internal/keyword"
)

func keywordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Manage keyword auto-reply rules",
	}
	cmd.AddCommand(keywordsListCmd(), keywordsAddCmd(), keywordsRemoveCmd())
	return cmd
}

func keywordsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured rules",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			rules := cfg.KeywordRules()
			if len(rules) == 0 {
				fmt.Println("No auto-reply rules configured.")
				return
			}

			aliasWidth := runewidth.StringWidth("ALIASES")
			for _, r := range rules {
				if w := runewidth.StringWidth(aliasLabel(r)); w > aliasWidth {
					aliasWidth = w
				}
			}
			fmt.Printf("%s  REPLY\n", runewidth.FillRight("ALIASES", aliasWidth))
			for _, r := range rules {
				reply := strings.ReplaceAll(r.Reply, "\n", " ")
				reply = runewidth.Truncate(reply, 70, "…")
				fmt.Printf("%s  %s\n", runewidth.FillRight(aliasLabel(r), aliasWidth), reply)
			}
		},
	}
}

func aliasLabel(r config.KeywordRule) string {
	if r.Aliases == "" {
		return "(off-duty catch-all)"
	}
	return r.Aliases
}

func keywordsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <aliases> <reply>",
		Short: "Add or replace a rule (aliases are pipe-delimited; empty aliases set the off-duty reply)",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			m := keyword.New(cfg.KeywordRules())
			cfg.SetKeywordRules(m.Upsert(args[0], args[1]))
			mustSaveConfig(cfg)
			fmt.Printf("Rule saved for %q.\n", aliasLabel(config.KeywordRule{Aliases: args[0]}))
		},
	}
}

func keywordsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <aliases>",
		Short: "Remove a rule by its exact alias string",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			m := keyword.New(cfg.KeywordRules())
			rules, removed := m.Remove(args[0])
			if !removed {
				fmt.Printf("No rule with aliases %q.\n", args[0])
				os.Exit(1)
			}
			cfg.SetKeywordRules(rules)
			mustSaveConfig(cfg)
			fmt.Printf("Rule %q removed.\n", args[0])
		},
	}
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Printf("Config load error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

func mustSaveConfig(cfg *config.Config) {
	if err := config.Save(resolveConfigPath(), cfg); err != nil {
		fmt.Printf("Config save error: %s\n", err)
		os.Exit(1)
	}
}
