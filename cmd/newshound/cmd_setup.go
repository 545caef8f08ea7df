package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/newshound/internal/config"
	"github.com/user/newshound/internal/feeds"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("Newshound Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		// 1. LLM base URL
		cfg.LLM.BaseURL = prompt(scanner, "LLM base URL", cfg.LLM.BaseURL)

		// 2. LLM API key
		cfg.LLM.APIKey = prompt(scanner, "LLM API key", cfg.LLM.APIKey)

		// 3. LLM model name
		cfg.LLM.Model = prompt(scanner, "LLM model name", cfg.LLM.Model)

		// 4. Telegram bot token
		cfg.Telegram.Token = prompt(scanner, "Telegram bot token", cfg.Telegram.Token)

		// 5. Telegram chat ID that receives digests
		chatStr := prompt(scanner, "Telegram chat ID", strconv.FormatInt(cfg.Telegram.ChatID, 10))
		if n, err := strconv.ParseInt(chatStr, 10, 64); err == nil {
			cfg.Telegram.ChatID = n
		}

		// 6. Brave search key (optional)
		cfg.Search.APIKey = prompt(scanner, "Brave search API key (optional)", cfg.Search.APIKey)

		// 7. HTTP listen address
		cfg.HTTP.Addr = prompt(scanner, "HTTP listen address", cfg.HTTP.Addr)

		// 8. API auth token (optional)
		cfg.HTTP.AuthToken = prompt(scanner, "HTTP API auth token (optional)", cfg.HTTP.AuthToken)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		// Seed the source catalog so the first run has feeds to pull.
		if _, err := os.Stat(cfg.Sources.Path); os.IsNotExist(err) {
			if err := feeds.WriteDefaultCatalog(cfg.Sources.Path); err != nil {
				return fmt.Errorf("write source catalog: %w", err)
			}
			fmt.Println()
			fmt.Println("Source catalog written to", cfg.Sources.Path)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
