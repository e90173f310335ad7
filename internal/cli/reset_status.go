package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/draftsync/internal/core/domain"
	"github.com/vietddude/draftsync/internal/core/syncstatus"
	"github.com/vietddude/draftsync/internal/infra/storage/postgres"
)

var resetStatusCmd = &cobra.Command{
	Use:   "reset-status [league_id]",
	Short: "Clear the failure streak and manual mode of a league",
	Args:  cobra.ExactArgs(1),
	Run:   runResetStatus,
}

func init() {
	rootCmd.AddCommand(resetStatusCmd)
}

func runResetStatus(cmd *cobra.Command, args []string) {
	leagueID := domain.LeagueID(args[0])

	ctx := context.Background()
	db := openDB(ctx)
	defer func() {
		_ = db.Close()
	}()

	tracker := syncstatus.NewTracker(postgres.NewSyncStatusRepo(db), nil)
	status, err := tracker.Reset(ctx, leagueID)
	if err != nil {
		slog.Error("Failed to reset sync status", "league", leagueID, "error", err)
		os.Exit(1)
	}

	fmt.Printf("Reset %s, state is now %s\n", leagueID, status.ConnectionState())
}
