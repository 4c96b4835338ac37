package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/suh3art/Recon-toolkit/pkg/config"
	"github.com/suh3art/Recon-toolkit/pkg/database"
	"github.com/suh3art/Recon-toolkit/pkg/orchestrator"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	trackStatus string
	trackAll    bool
)

var trackCmd = &cobra.Command{
	Use:   "track [target]",
	Short: "Query the live host tracking database",
	Long:  `Query tracked live URLs for a specific target or for all targets`,
	Run:   runTrack,
}

var errTrackingDisabled = errors.New("database is not enabled, enable it in config.yaml")

// trackingDB tells a disabled database apart from one that failed to connect.
func trackingDB(cfg *config.Database, db *database.DB, initErr error) (*database.DB, error) {
	if !cfg.Enabled {
		return nil, errTrackingDisabled
	}
	if initErr != nil {
		return nil, fmt.Errorf("database connection failed: %w", initErr)
	}
	if !db.IsEnabled() {
		return nil, errors.New("database connection is not available")
	}
	return db, nil
}

func init() {
	trackCmd.Flags().StringVar(&trackStatus, "status", "", "filter by status (active, dead, new)")
	trackCmd.Flags().BoolVar(&trackAll, "all", false, "query all targets")
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) {
	if !trackAll && len(args) == 0 {
		color.Red("Error: either provide a target or use --all flag")
		cmd.Help()
		os.Exit(1)
	}

	if trackAll && len(args) > 0 {
		color.Red("Error: cannot use both target and --all flag together")
		cmd.Help()
		os.Exit(1)
	}

	orch, err := orchestrator.NewOrchestrator(configFile)
	if err != nil {
		color.Red("Failed to initialize orchestrator: %v", err)
		os.Exit(1)
	}

	db, err := trackingDB(&orch.GetConfig().Database, orch.GetDB(), orch.DBError())
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	status := strings.ToUpper(trackStatus)

	var records []database.URLRecord
	if trackAll {
		records, err = db.QueryAll(status)
	} else {
		records, err = db.QueryURLs(args[0], status)
	}
	if err != nil {
		color.Red("Failed to query database: %v", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		if trackAll {
			color.Yellow("[INF] No tracked URLs found.")
		} else {
			color.Yellow("[INF] Target %s not found in database.", args[0])
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, color.CyanString("TARGET\tURL\tSTATUS\tFIRST_SEEN\tLAST_SEEN"))
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, r := range records {
		statusColor := color.GreenString
		if r.Status == database.StatusDead {
			statusColor = color.RedString
		} else if r.Status == database.StatusNew {
			statusColor = color.YellowString
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.Target,
			r.URL,
			statusColor(r.Status),
			r.FirstSeen.Format("2006-01-02 15:04:05"),
			r.LastSeen.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	color.Green("\nTotal records: %d", len(records))
}
