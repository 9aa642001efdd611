package main

import (
	"errors"
	"fmt"
	"strings"

	"planner/internal/config"

	"github.com/spf13/cobra"
)

var checkUI string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config file and exit",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkUI, "ui", "", "also check the settings this ui needs")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewManager(configPath).Load()
	if err != nil {
		return err
	}
	ui := strings.ToLower(strings.TrimSpace(checkUI))
	if ui == "" {
		ui = cfg.UI.Adapter
	}
	if ui == "telegram" {
		if errs := config.ValidateTelegram(cfg.Telegram); len(errs) > 0 {
			return fmt.Errorf("invalid config: %w", errors.Join(errs...))
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: ok\n", configPath)
	sections, _, _ := config.SummarizeConfigChange(nil, cfg)
	if len(sections) > 0 {
		fmt.Fprintf(out, "configured sections: %s\n", strings.Join(sections, ", "))
	}
	return nil
}
