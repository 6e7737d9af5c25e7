package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	errs "goesbot/pkg/errors"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	workDir    string
	profile    string

	// Run toggles
	noTweet  bool
	noImages bool
	noMovie  bool
)

// rootCmd runs the bot when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "goesbot",
	Short: "Post GOES-16 satellite animations to Twitter",
	Long: `goesbot downloads GOES-16 ABI imagery from the NOAA archive, encodes the
frames into an H.264 video with ffmpeg and posts it to Twitter.

Settings are read from credentials.cfg (TOML) unless --config points elsewhere.
With parameters.loop enabled the bot stays up and posts the previous day's
window every day at schedule.at.`,
	Example: `  # Run with credentials.cfg in the current directory
  goesbot

  # Build the video but only verify the Twitter keys
  goesbot -t

  # Re-encode the frames already on disk, single run
  goesbot -i -t`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBot,
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, context.Canceled) {
		printError(os.Stderr, err)
	}
	return exitCode(err)
}

// exitCode maps a run error to the process exit code. Interruption by a
// signal is a clean exit.
func exitCode(err error) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return errs.ExitOK
	}
	return errs.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "settings file (default is credentials.cfg)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.Flags().BoolVarP(&noTweet, "no-tweet", "t", false, "verify credentials only, do not post")
	rootCmd.Flags().BoolVarP(&noImages, "no-images", "i", false, "reuse the frames already in the working directory")
	rootCmd.Flags().BoolVarP(&noMovie, "no-movie", "m", false, "skip encoding and post the existing video")
	rootCmd.Flags().StringVar(&workDir, "work-dir", "", "directory for downloaded frames")
	rootCmd.Flags().StringVar(&profile, "profile", "", "stored credential profile to fall back to")

	rootCmd.SetVersionTemplate(`goesbot {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
