package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andresmejia3/ascivid/internal/store"
	"github.com/spf13/cobra"
)

var (
	resetDB    bool
	resetFiles bool
	resetURL   string
	resetRoot  string
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove frames left behind by interrupted runs",
	Long:  "Drops the PostgreSQL frame table and deletes stale ascivid-* run directories. By default, it resets both. Use flags to clear one.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no flags are set, default to clearing EVERYTHING
		if !resetDB && !resetFiles {
			resetDB = true
			resetFiles = true
		}
		if resetURL == "" {
			resetURL = os.Getenv("ASCIVID_STORE_URL")
		}
		if resetRoot == "" {
			resetRoot = os.Getenv("ASCIVID_TEMPDIR")
		}

		reader := bufio.NewReader(cmd.InOrStdin())
		out := cmd.OutOrStdout()

		if resetDB {
			switch {
			case resetURL == "":
				fmt.Fprintln(out, "Skipping database: no --store-url or ASCIVID_STORE_URL given.")
			case confirm(reader, out, "⚠️  Are you sure you want to DROP the frame table?"):
				fmt.Fprintln(out, "🗑️  Clearing Database...")
				if err := store.ResetPostgres(cmd.Context(), resetURL); err != nil {
					return fail("Failed to reset database", err)
				}
			}
		}

		if resetFiles {
			if confirm(reader, out, "⚠️  Are you sure you want to delete stale frame directories?") {
				fmt.Fprintln(out, "🗑️  Clearing Frame Directories...")
				n, err := store.RemoveStaleRuns(resetRoot)
				if err != nil {
					fmt.Fprintf(os.Stderr, "⚠️  Failed to remove run directories: %v\n", err)
				}
				fmt.Fprintf(out, "Removed %d run directories.\n", n)
			}
		}

		fmt.Fprintln(out, "✨ Reset Complete.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetDB, "db", false, "Drop the PostgreSQL frame table")
	resetCmd.Flags().BoolVar(&resetFiles, "files", false, "Delete stale run directories")
	resetCmd.Flags().StringVar(&resetURL, "store-url", "", "PostgreSQL connection string (env ASCIVID_STORE_URL)")
	resetCmd.Flags().StringVarP(&resetRoot, "tempdir", "t", "", "Directory holding run directories (default: system temp dir)")
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, w io.Writer, prompt string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}
