package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"earnings-rag/internal/collection"
)

var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Build or reuse the vector collection of every company",
	Long: `Populate scans the transcripts directory and makes sure each company has a
healthy collection. Healthy collections are reused without embedding; missing
ones are built; unhealthy ones are dropped and rebuilt.`,
	Args: cobra.NoArgs,
	RunE: runPopulate,
}

func init() {
	rootCmd.AddCommand(populateCmd)
}

func runPopulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := consoleLogger()
	svc, _, err := setup(ctx, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanning %s...\n", svc.Dir())

	var bar *progressbar.ProgressBar
	counts := map[collection.Plan]int{}
	progress := func(done, total int, ix *collection.Index) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(out),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Collections[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(out)
				}),
			)
		}
		counts[ix.Plan]++
		bar.Describe(fmt.Sprintf("[cyan]%s[reset] %s", ix.Symbol, ix.Plan))
		_ = bar.Set(done)
	}

	indexes, err := svc.Populate(ctx, progress)
	if err != nil {
		return fmt.Errorf("populate failed: %w", err)
	}

	fmt.Fprintf(out, "\nPopulate complete:\n")
	fmt.Fprintf(out, "  Companies: %d\n", len(indexes))
	fmt.Fprintf(out, "  Reused:    %d\n", counts[collection.PlanReuse])
	fmt.Fprintf(out, "  Built:     %d\n", counts[collection.PlanBuild])
	fmt.Fprintf(out, "  Rebuilt:   %d\n", counts[collection.PlanRebuild])
	return nil
}
