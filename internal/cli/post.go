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
	postUser    string
	postAccount string
	postText    string
	postPrompt  string
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Publish one post now",
	Run:   runPost,
}

func init() {
	postCmd.Flags().StringVar(&postUser, "user", "", "user id (required)")
	postCmd.Flags().StringVar(&postAccount, "account", "", "social account id (required)")
	postCmd.Flags().StringVar(&postText, "text", "", "post text")
	postCmd.Flags().StringVar(&postPrompt, "prompt", "", "draft the text from this prompt instead")
	_ = postCmd.MarkFlagRequired("user")
	_ = postCmd.MarkFlagRequired("account")
}

func runPost(cmd *cobra.Command, args []string) {
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

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	defer svc.Stop(ctx)

	out, err := svc.PublishText(ctx, postUser, postAccount, postText, postPrompt)
	if err != nil {
		slog.Error("Publish failed", "error", err)
		os.Exit(1)
	}
	if !out.Success {
		fmt.Printf("publish failed: %s\n", out.Message)
		if out.Retryable {
			fmt.Printf("retryable, try again in %d seconds\n", out.RetryAfterSeconds())
		}
		os.Exit(1)
	}
	fmt.Printf("published: %s\n", out.ExternalID)
}
