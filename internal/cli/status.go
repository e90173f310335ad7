package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/draftsync/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted sync status of all leagues",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// openDB connects to the configured database or exits; status is only
// persisted when a database is configured.
func openDB(ctx context.Context) *postgres.DB {
	cfg := loadConfig()
	if cfg.Database.URL == "" {
		slog.Error("No database configured, sync status is kept in memory only")
		os.Exit(1)
	}
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	return db
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	db := openDB(ctx)
	defer func() {
		_ = db.Close()
	}()

	statuses, err := postgres.NewSyncStatusRepo(db).List(ctx)
	if err != nil {
		slog.Error("Failed to list sync status", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "LEAGUE\tSTATE\tFAILURES\tCODE\tLAST SYNC")
	for _, s := range statuses {
		lastSync := "never"
		if s.LastSync != nil {
			lastSync = s.LastSync.Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			s.LeagueID, s.ConnectionState(), s.FailureCount, s.ErrorCode, lastSync)
	}
	_ = w.Flush()
}
