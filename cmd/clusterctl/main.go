// Command clusterctl imports corpus bundles and inspects docket hierarchies
// from the command line.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/clusterdesk/internal/config"
	"github.com/dgallion1/clusterdesk/internal/store"
	"github.com/dgallion1/clusterdesk/internal/textract"
	"github.com/spf13/cobra"
)

var (
	cfg    config.Config
	dbPath string
	log    = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

var rootCmd = &cobra.Command{
	Use:           "clusterctl",
	Short:         "Manage and inspect clusterdesk corpora",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if dbPath != "" {
			loaded.DBPath = dbPath
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		textract.SetPDFFallback(cfg.PDFFallbackPdftotext)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "corpus database path (overrides DB_PATH)")
	rootCmd.AddCommand(importCmd, summaryCmd, validateCmd, teaserCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openStore() (*store.SQLiteStore, error) {
	return store.Open(store.Config{
		DBPath:           cfg.DBPath,
		MaxDocumentChars: cfg.MaxDocumentChars,
	})
}
