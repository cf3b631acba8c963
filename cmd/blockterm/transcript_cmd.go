package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Inspect the AI conversation transcript",
}

var transcriptShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show recent conversation entries",
	Args:  cobra.NoArgs,
	RunE:  runTranscriptShow,
}

var transcriptClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the conversation transcript",
	Args:  cobra.NoArgs,
	RunE:  runTranscriptClear,
}

var transcriptLimit int

func init() {
	transcriptCmd.AddCommand(transcriptShowCmd, transcriptClearCmd)

	transcriptShowCmd.Flags().IntVar(&transcriptLimit, "limit", 20, "Number of entries to show")
}

func runTranscriptShow(cmd *cobra.Command, args []string) error {
	return withEnv(func(env *appEnv) error {
		entries, err := env.db.RecentTranscript(cmd.Context(), transcriptLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Transcript is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tENTRY")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"), oneLine(e.Content, 100))
		}
		return w.Flush()
	})
}

func runTranscriptClear(cmd *cobra.Command, args []string) error {
	return withEnv(func(env *appEnv) error {
		n, err := env.db.ClearTranscript(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d transcript entries\n", n)
		return nil
	})
}
