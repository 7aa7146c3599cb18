// cmd/root.go

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"backend/internal/app"
	"backend/internal/config"
	"backend/internal/logger"
)

var (
	flagPort   int
	flagDBPath string
	flagConfig string
)

// Execute runs the root cobra command; main.go only calls this.
func Execute() error {
	return rootCmd().Execute()
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "backend",
		Short: "Central air-conditioning scheduler service",
	}
	root.AddCommand(serveCmd())
	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and HTTP command interface",
		RunE:  runServe,
	}
	cmd.Flags().IntVar(&flagPort, "port", 0, "HTTP port (0 = use config value)")
	cmd.Flags().StringVar(&flagDBPath, "db", "", "sqlite database path (overrides config)")
	cmd.Flags().StringVar(&flagConfig, "config", "", "path to a YAML config file")
	return cmd
}

func runServe(c *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagPort != 0 {
		cfg.ServerPort = flagPort
	}
	if flagDBPath != "" {
		cfg.DBPath = flagDBPath
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	if err := a.Start(cfg.ServerPort); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.Stop(ctx)
}
