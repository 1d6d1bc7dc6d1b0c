package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AltairaLabs/speechkit/logger"
)

var rootCmd = &cobra.Command{
	Use:           "speechkit",
	Short:         "Stream text to speech over the LMNT websocket API",
	Version:       GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: false,
	Long: `speechkit aggregates streamed text into sentences, keeping tagged spans
intact, and synthesizes them through a reconnecting LMNT streaming session.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Flags().Changed("verbose") {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return fmt.Errorf("error getting verbose flag: %w", err)
			}
			logger.SetVerbose(verbose)
		}
		envFile, err := cmd.Flags().GetString("env-file")
		if err != nil {
			return fmt.Errorf("error getting env-file flag: %w", err)
		}
		return loadEnvFile(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("env-file", "", "Load environment variables from a dotenv file")
}

// loadEnvFile sets variables from path without overriding ones already set.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	logger.Debug("loaded env file", "path", path)
	return nil
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() {
	rootCmd.SetVersionTemplate(GetVersionInfo() + "\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
