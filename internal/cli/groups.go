package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"earnings-rag/internal/collection"
	"earnings-rag/internal/loader"
	"earnings-rag/internal/summarizer"
)

var groupsPreview int

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Show how transcript files are grouped by company",
	Args:  cobra.NoArgs,
	RunE:  runGroups,
}

func init() {
	rootCmd.AddCommand(groupsCmd)
	groupsCmd.Flags().IntVarP(&groupsPreview, "preview", "p", 0, "show N highlight sentences per transcript")
}

func runGroups(cmd *cobra.Command, args []string) error {
	parser, err := newParser(cfg)
	if err != nil {
		return err
	}
	groups, err := parser.GroupDir(cfg.Transcripts.Dir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(groups) == 0 {
		fmt.Fprintf(out, "No transcripts in %s\n", cfg.Transcripts.Dir)
		return nil
	}
	var ext *summarizer.Extractive
	if groupsPreview > 0 {
		ext = summarizer.NewExtractive()
	}
	for _, g := range groups {
		fmt.Fprintf(out, "%s  (%s, %d files)\n", g.Symbol, collection.Name(g.Symbol), len(g.Paths))
		for _, p := range g.Paths {
			fmt.Fprintf(out, "  %s\n", filepath.Base(p))
			if ext == nil {
				continue
			}
			docs, err := loader.Load(g.Symbol, []string{p})
			if err != nil {
				return err
			}
			for _, h := range ext.Highlights(docs[0].Content, groupsPreview) {
				fmt.Fprintf(out, "    > %s\n", h)
			}
		}
	}
	return nil
}
