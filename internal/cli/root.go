package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"earnings-rag/internal/common"
	"earnings-rag/internal/config"
)

var (
	cfgFile string
	envFile string
	dataDir string
	cfg     *config.AppConfig
	dotenv  map[string]string
)

var rootCmd = &cobra.Command{
	Use:   "earnings-rag",
	Short: "Ask questions across company earnings call transcripts",
	Long: `earnings-rag groups earnings call transcripts by company, keeps one vector
collection per company and answers questions by routing sub-questions to the
companies they concern.

Transcript files are named SYMBOL_Qn_YYYY.txt (also .md or .pdf).

Example usage:
  earnings-rag populate                       # Build or reuse every collection
  earnings-rag chat                           # Interactive chat
  earnings-rag ask "Compare AAPL and MSFT gross margins"
  earnings-rag groups                         # Show how files are grouped`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		dotenv, err = readDotenv(envFile)
		if err != nil {
			return err
		}
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, _, err = config.LoadDefault()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dataDir != "" {
			cfg.Transcripts.Dir = dataDir
		}
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml, then ~/.config/earnings-rag/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with API keys")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "dir", "d", "", "transcripts directory (overrides transcripts.dir)")
}

// readDotenv parses the dotenv file without touching the process environment.
// A missing default file is not an error.
func readDotenv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return vars, nil
}

// lookupEnv prefers the real environment over the dotenv file.
func lookupEnv(name string) (string, bool) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v, true
	}
	v, ok := dotenv[name]
	return v, ok
}

func consoleLogger() *common.Logger {
	return common.NewLogger(cfg.Logging.Level)
}

// fileLogger writes JSON logs to the configured file so they stay out of the
// terminal UI.
func fileLogger() (*common.Logger, io.Closer, error) {
	f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return common.NewLoggerWithOutput(cfg.Logging.Level, f), f, nil
}
