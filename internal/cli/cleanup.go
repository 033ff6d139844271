package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haneul-dev/addrsearch/internal/control"
	"github.com/haneul-dev/addrsearch/internal/core/config"
	"github.com/haneul-dev/addrsearch/internal/store"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Force a maintenance pass over stored history and favorites",
	Run:   runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	backend, err := control.OpenBackend(cfg.Storage)
	if err != nil {
		slog.Error("Failed to open storage backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = backend.Close()
	}()

	mgr := store.NewManager(backend, slog.Default())
	mgr.Cleanup(ctx, true)

	fmt.Println("Cleanup completed")
}
