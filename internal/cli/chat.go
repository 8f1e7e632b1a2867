package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"earnings-rag/internal/service"
	"earnings-rag/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the earnings call transcripts",
	Long: `Chat opens a terminal UI. The query engine is built in the background on
start; logs go to the configured log file.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	logger, closer, err := fileLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	svc, creds, err := setup(ctx, logger)
	if err != nil {
		return err
	}
	cache := service.NewEngineCache()
	key := cfg.Fingerprint(creds)
	load := func(ctx context.Context) (tui.QueryEngine, error) {
		e, err := cache.Get(ctx, key, svc.BuildEngine)
		if err != nil {
			logger.Error().Err(err).Msg("engine build failed")
			return nil, err
		}
		return e, nil
	}

	m := tui.New(ctx, load, "Earnings Calls Chat  "+svc.Dir())
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
