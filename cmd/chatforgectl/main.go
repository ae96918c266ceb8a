package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"chatforge-backend/internal/database"
	"chatforge-backend/internal/env"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "chatforgectl",
		Short:         "Operator tooling for the ChatForge backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(tablesCmd())
	rootCmd.AddCommand(usageCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(banCmd())
	rootCmd.AddCommand(embedCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openDatabase connects with the same environment the servers use.
func openDatabase(ctx context.Context) (*env.Config, *database.Database, error) {
	cfg := env.Load()
	if err := env.Require(env.AWSRegion); err != nil {
		return nil, nil, err
	}

	db, err := database.NewDatabase(ctx, database.Config{
		Region:       cfg.AWS.Region,
		AccessKey:    cfg.AWS.ID,
		SecretKey:    cfg.AWS.Secret,
		SessionToken: cfg.AWS.Token,
		Endpoint:     cfg.AWS.Endpoint,
		TablePrefix:  cfg.TablePrefix,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
