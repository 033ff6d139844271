package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haneul-dev/addrsearch/internal/control"
	"github.com/haneul-dev/addrsearch/internal/core/config"
	"github.com/haneul-dev/addrsearch/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print stored history, favorites, and quota usage",
	Run:   runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) {
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

	history := mgr.History(ctx)
	favorites := mgr.Favorites(ctx)
	metrics := mgr.LoadMetrics(ctx, time.Now().Add(-24*time.Hour))
	quota := mgr.EstimateQuota(ctx)

	fmt.Printf("History entries:   %d\n", len(history))
	fmt.Printf("Favorites:         %d\n", len(favorites))
	fmt.Printf("Metrics (24h):     %d\n", len(metrics))
	fmt.Printf("Stored bytes:      %d\n", quota.UsedBytes)
	fmt.Printf("Writable headroom: %d bytes\n", quota.HeadroomBytes)
}
