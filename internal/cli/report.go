package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/econsim/internal/persistence"
)

var reportFlags struct {
	dbPath string
	events int
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a summary of the saved world",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFlags.dbPath, "db", "econsim.db", "snapshot database path")
	reportCmd.Flags().IntVar(&reportFlags.events, "events", 15, "recent events to show")
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging("warn")

	db, err := persistence.Open(reportFlags.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if !db.HasSnapshot() {
		return fmt.Errorf("no snapshot in %s — run a simulation first", reportFlags.dbPath)
	}
	sim, err := db.LoadSnapshot()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "World at turn %s\n\n", humanize.Comma(int64(sim.Turn)))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tNAME\tPOP\tDEV\tGDP\tGROWTH\tUNEMP\tGINI")
	for _, e := range sim.Entities {
		gini := 0.0
		if e.Wealth != nil {
			gini = e.Wealth.CalculateInequalityMetrics().Gini
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%+.1f%%\t%.1f%%\t%.3f\n",
			e.EntityID, e.Name,
			humanize.Comma(int64(e.Pop)),
			e.Development,
			humanize.CommafWithDigits(e.GDPValue, 0),
			e.Growth*100,
			e.UnemploymentRate*100,
			gini,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nMarket (%d resources)\n", len(sim.Market.Types()))
	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RESOURCE\tPRICE\tFUNDAMENTAL\tDEPLETION\tBUBBLE")
	for _, t := range sim.Market.Types() {
		r := sim.Market.Get(t)
		bubble := "-"
		if size, ok := sim.Dynamics.ActiveBubbles[t]; ok {
			bubble = fmt.Sprintf("%.2f", size)
		}
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.1f%%\t%s\n",
			t, sim.Market.CurrentValue(t), sim.Market.FundamentalValue(t), r.Depletion()*100, bubble)
	}
	w.Flush()

	fmt.Fprintf(out, "\nCrises: %d active, %d resolved\n",
		len(sim.Crises.Active), len(sim.Crises.History))
	for _, c := range sim.Crises.Active {
		fmt.Fprintf(out, "  %s (%s) from %s, %d affected, %.0f%% resolved\n",
			c.Type, c.Severity, c.Origin, len(c.Affected), c.ResolutionProgress*100)
	}

	fmt.Fprintf(out, "\nNetwork resilience: %.3f\n", sim.Network.NetworkResilience())

	events, err := db.RecentEvents(reportFlags.events)
	if err == nil && len(events) > 0 {
		fmt.Fprintln(out, "\nRecent events:")
		for i := len(events) - 1; i >= 0; i-- {
			e := events[i]
			fmt.Fprintf(out, "  [%d] %s: %s\n", e.Turn, e.Category, e.Description)
		}
	}

	return nil
}
