package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fentz26/blockterm/internal/models"
	"github.com/fentz26/blockterm/internal/session"
	"github.com/fentz26/blockterm/internal/tui"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect stored sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the blocks of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsStatsCmd = &cobra.Command{
	Use:   "stats <id>",
	Short: "Show statistics for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsStats,
}

var sessionsBrowseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse sessions interactively",
	Args:  cobra.NoArgs,
	RunE:  runSessionsBrowse,
}

var showJSON bool

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd, sessionsStatsCmd, sessionsBrowseCmd)

	sessionsShowCmd.Flags().BoolVar(&showJSON, "json", false, "Print the raw snapshot as JSON")
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	return withEnv(func(env *appEnv) error {
		list, err := env.sessions().ListSessions(cmd.Context())
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tLAST SAVED\tBLOCKS")
		for _, s := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.ID,
				s.StartTime.Format("2006-01-02 15:04:05"),
				s.LastSaved.Format("2006-01-02 15:04:05"),
				s.BlockCount)
		}
		return w.Flush()
	})
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	return withEnv(func(env *appEnv) error {
		snap, err := env.sessions().LoadSnapshot(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if showJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		fmt.Printf("Session %s (%d blocks)\n\n", snap.ID, len(snap.Blocks))
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tSTATUS\tKIND\tDURATION\tEXIT\tINPUT")
		for i, rec := range snap.Blocks {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, rec.Status, blockKind(rec),
				models.FormatDuration(time.Duration(rec.Duration)*time.Millisecond),
				exitCode(rec), oneLine(rec.Input, 60))
		}
		return w.Flush()
	})
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	return withEnv(func(env *appEnv) error {
		deleted, err := env.sessions().DeleteSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("session not found: %s", args[0])
		}
		fmt.Printf("Deleted session %s\n", args[0])
		return nil
	})
}

func runSessionsStats(cmd *cobra.Command, args []string) error {
	return withEnv(func(env *appEnv) error {
		snap, err := env.sessions().LoadSnapshot(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		blocks := make([]*models.Block, len(snap.Blocks))
		for i, rec := range snap.Blocks {
			blocks[i] = models.BlockFromRecord(rec)
		}
		st := session.ComputeStats(blocks)
		st.SessionID = snap.ID
		st.StartTime = time.UnixMilli(snap.StartTime)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Session:\t%s\n", st.SessionID)
		fmt.Fprintf(w, "Started:\t%s\n", st.StartTime.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "Total blocks:\t%d\n", st.TotalBlocks)
		fmt.Fprintf(w, "AI blocks:\t%d\n", st.AIBlocks)
		fmt.Fprintf(w, "System blocks:\t%d\n", st.SystemBlocks)
		fmt.Fprintf(w, "Errors:\t%d\n", st.ErrorBlocks)
		fmt.Fprintf(w, "Success rate:\t%g%%\n", st.SuccessRate)
		fmt.Fprintf(w, "Total duration:\t%s\n", models.FormatDuration(st.TotalDuration))
		fmt.Fprintf(w, "Avg duration:\t%s\n", models.FormatDuration(st.AvgDuration))
		return w.Flush()
	})
}

func runSessionsBrowse(cmd *cobra.Command, args []string) error {
	return withEnv(func(env *appEnv) error {
		app := tui.New(cmd.Context(), env.sessions(), "")
		if err := app.Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	})
}

func blockKind(rec models.BlockRecord) string {
	if rec.IsAICommand {
		return "ai"
	}
	return "system"
}

func exitCode(rec models.BlockRecord) string {
	if rec.ExitCode == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *rec.ExitCode)
}

func oneLine(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
