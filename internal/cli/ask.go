package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askSources bool
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question and exit",
	Long: `Ask builds or reuses the collections, routes the question to the companies
it mentions and prints the merged answer.

Examples:
  earnings-rag ask "What did AAPL say about services revenue?"
  earnings-rag ask --sources "Compare AAPL and MSFT gross margins"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVarP(&askSources, "sources", "s", false, "print sub-questions and the passages they used")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
}

type askSubAnswer struct {
	Tool     string   `json:"tool"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources,omitempty"`
}

type askOutput struct {
	Question   string         `json:"question"`
	Answer     string         `json:"answer"`
	SubAnswers []askSubAnswer `json:"sub_answers"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	question := strings.Join(args, " ")
	logger := consoleLogger()
	svc, _, err := setup(ctx, logger)
	if err != nil {
		return err
	}
	engine, err := svc.BuildEngine(ctx)
	if err != nil {
		return err
	}
	resp, err := engine.Query(ctx, question)
	if err != nil {
		return err
	}

	result := askOutput{Question: question, Answer: resp.Text}
	for _, sa := range resp.SubAnswers {
		item := askSubAnswer{Tool: sa.ToolName, Question: sa.Question, Answer: sa.Answer.Text}
		for _, src := range sa.Answer.Sources {
			item.Sources = append(item.Sources, fmt.Sprintf("%s (%.3f)", filepath.Base(src.Chunk.Path), src.Score))
		}
		result.SubAnswers = append(result.SubAnswers, item)
	}

	out := cmd.OutOrStdout()
	if askJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintln(out, result.Answer)
	if askSources {
		for _, sa := range result.SubAnswers {
			fmt.Fprintf(out, "\n[%s] %s\n  %s\n", sa.Tool, sa.Question, sa.Answer)
			for _, s := range sa.Sources {
				fmt.Fprintf(out, "  - %s\n", s)
			}
		}
	}
	return nil
}
