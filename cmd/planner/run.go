package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"planner/internal/app"
	"planner/pkg/systemd"

	"github.com/spf13/cobra"
)

var runUI string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the planner",
	Args:  cobra.NoArgs,
	RunE:  runPlanner,
}

func init() {
	runCmd.Flags().StringVar(&runUI, "ui", "", "user interface: console or telegram (overrides ui.adapter)")
}

func runPlanner(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.NewApp(app.Options{ConfigPath: configPath, UI: runUI})
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = a.Stop(stopCtx, app.StopFatalError)
		return err
	}

	_, _ = systemd.Ready()
	stopWatchdog := systemd.StartWatchdog()

	var reason app.StopReason
	select {
	case <-ctx.Done():
		reason = app.StopSignal
	case <-a.Done():
		reason = a.Reason()
	}

	stopWatchdog()
	_, _ = systemd.Stopping()
	_, _ = systemd.Status("stopping: " + string(reason))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, reason)
	if reason == app.StopFatalError {
		return a.Err()
	}
	return nil
}
