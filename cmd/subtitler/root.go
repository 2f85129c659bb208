package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/subtitler/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "subtitler",
	Short: "Subtitler - template-driven subtitle animation selection",
	Long: `Subtitler picks animations for the words of a transcript.

A template declares variables computed over the whole transcript and rules
evaluated for every word. Matching rules are resolved by priority,
specificity and declaration order, and the winners' animations are reported
per word with their timing and intensity.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the command's exit code.
func Execute() {
	ctx, stop := cli.SetupSignalHandler(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode prints err and maps it to a process exit code. An ExitError
// carries its own code; anything else exits 1.
func exitCode(err error) int {
	fmt.Fprintln(os.Stderr, "Error:", err)
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
