package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgallion1/clusterdesk/internal/bundle"
	"github.com/dgallion1/clusterdesk/internal/cache"
	"github.com/dgallion1/clusterdesk/internal/cluster"
	"github.com/dgallion1/clusterdesk/internal/hierarchy"
	"github.com/dgallion1/clusterdesk/internal/store"
	"github.com/spf13/cobra"
)

var (
	summaryCutoff   float64
	summaryDocument int64
	summaryPhrases  bool
	teaserDocument  bool
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import a corpus bundle directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := bundle.Load(args[0])
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		return bundle.Import(cmd.Context(), st, b, log)
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <docket>",
	Short: "Print the docket hierarchy summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		req := cluster.HierarchyRequest{RequireSummaries: summaryPhrases}
		if cmd.Flags().Changed("cutoff") {
			req.Cutoff = &summaryCutoff
		}
		if cmd.Flags().Changed("document") {
			req.PrepopulateDocument = &summaryDocument
		}
		resp, err := newService(st).DocketHierarchy(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <docket>",
	Short: "Check the stored hierarchy's structural invariants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		roots, err := st.Hierarchy(cmd.Context(), args[0], false)
		if err != nil {
			return err
		}
		if err := hierarchy.Validate(roots); err != nil {
			return fmt.Errorf("docket %s: %w", args[0], err)
		}
		clustered := 0
		for _, r := range roots {
			clustered += r.Size
		}
		stored, err := st.CountDocuments(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: ok (%d roots, %d clustered of %d stored documents)\n", args[0], len(roots), clustered, stored)
		return nil
	},
}

var teaserCmd = &cobra.Command{
	Use:   "teaser <docket|document_id>",
	Short: "Print cluster counts at the teaser cutoffs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		kind := cluster.ItemDocket
		if teaserDocument {
			kind = cluster.ItemDocument
		}
		resp, err := newService(st).Teaser(cmd.Context(), args[0], kind)
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

func init() {
	summaryCmd.Flags().Float64Var(&summaryCutoff, "cutoff", 0, "cutoff for the prepopulated document (default from config)")
	summaryCmd.Flags().Int64Var(&summaryDocument, "document", 0, "document to prepopulate")
	summaryCmd.Flags().BoolVar(&summaryPhrases, "phrases", false, "include cluster phrase summaries")
	teaserCmd.Flags().BoolVar(&teaserDocument, "document", false, "treat the argument as a public document id")
}

func newService(st *store.SQLiteStore) *cluster.Service {
	return cluster.NewService(st, st, cache.NewMemory(cfg.CacheTTL, cfg.CacheCleanup), nil, log, cluster.Options{
		DefaultCutoff:         cfg.DefaultCutoff,
		LargeClusterThreshold: cfg.LargeClusterThreshold,
		MaxDocumentChars:      cfg.MaxDocumentChars,
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
