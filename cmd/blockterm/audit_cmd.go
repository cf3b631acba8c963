package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect recorded edit decisions",
}

var auditDecisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "List permission decisions and file writes",
	Args:  cobra.NoArgs,
	RunE:  runAuditDecisions,
}

var (
	auditChangeID string
	auditLimit    int
)

func init() {
	auditCmd.AddCommand(auditDecisionsCmd)

	auditDecisionsCmd.Flags().StringVar(&auditChangeID, "change", "", "Only decisions for this change ID")
	auditDecisionsCmd.Flags().IntVar(&auditLimit, "limit", 50, "Maximum number of decisions (0 for all)")
}

func runAuditDecisions(cmd *cobra.Command, args []string) error {
	return withEnv(func(env *appEnv) error {
		decisions, err := env.db.ListDecisions(cmd.Context(), auditChangeID, auditLimit)
		if err != nil {
			return err
		}
		if len(decisions) == 0 {
			fmt.Println("No decisions recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tACTION\tOUTCOME\tCHANGE\tDETAILS")
		for _, d := range decisions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				d.Timestamp.Local().Format("2006-01-02 15:04:05"),
				d.Action, d.Outcome, d.ChangeID, oneLine(d.Details, 60))
		}
		return w.Flush()
	})
}
