package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haidv/outpost/internal/control"
)

var (
	syncUser    string
	syncAccount string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one metrics sync batch",
	Run:   runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncUser, "user", "", "user id (required)")
	syncCmd.Flags().StringVar(&syncAccount, "account", "", "social account id (required)")
	_ = syncCmd.MarkFlagRequired("user")
	_ = syncCmd.MarkFlagRequired("account")
}

func runSync(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	svc, err := control.New(cfg)
	if err != nil {
		slog.Error("Failed to initialize service", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	defer svc.Stop(ctx)

	result, err := svc.SyncOnce(ctx, syncUser, syncAccount)
	if err != nil {
		slog.Error("Sync failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("updated %d, failed %d\n", result.UpdatedCount, result.FailedCount)
}
