package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"goesbot/pkg/auth"
	"goesbot/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the settings file",
	Long: `Manage the goesbot settings file.

Settings are resolved in this order:
  - Command line flags (highest priority)
  - Environment variables (GOESBOT_*) and .env files
  - Settings file (credentials.cfg as INI, .toml or .yaml)
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example settings file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved settings with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the settings file for errors",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# goesbot settings. Quoted values read the same as INI (.cfg) or TOML (.toml).
#
# Environment variables prefixed with GOESBOT_ override values here, e.g.
# GOESBOT_CONSUMER_KEY, GOESBOT_ACCESS_TOKEN, GOESBOT_LOOP.

[credentials]
# Leave empty to use a profile stored with 'goesbot auth login'
consumer_key = ""
consumer_secret = ""
access_token = ""
access_secret = ""

[parameters]
sector = "CONUS"
band = "GEOCOLOR"
res = "1250x750"
# Hours covered after startDatetime
range = 24
# Keep every n-th frame
sampling = 1
startDatetime = "2024-03-14-10:00"
message = "24-hour GOES16 GEOCOLOR sequence"
# 0, false, no, off or once for a single run
loop = "1"
# Frame downloads per minute, 0 for unlimited
download_rate = 0

[source]
base_url = "https://cdn.star.nesdis.noaa.gov/GOES16/ABI/"
timeout = "60s"
user_agent = "goesbot/1.0"

[encoder]
binary = "ffmpeg"
framerate = 20
vcodec = "libx264"
preset = "veryslow"
crf = 25
gop = 300
faststart = true

[schedule]
at = "12:00"
window_start = "10:00"
timezone = "UTC"
message = "24-hour GOES16 GEOCOLOR sequence for {date}."
date_layout = "Monday, January 02, 2006"

[output]
work_dir = "images"
media = "movie.mp4"

[logging]
level = "info"
file = ""
`

func settingsPath() string {
	if configFile != "" {
		return configFile
	}
	return config.DefaultPath
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := settingsPath()

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, remove it first", path)
	}

	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Settings file created: %s", path)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "1. Add your Twitter keys or run 'goesbot auth login'")
	fmt.Fprintln(out, "2. Run 'goesbot config validate'")
	fmt.Fprintln(out, "3. Try a dry run with 'goesbot -t'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(settingsPath(), nil)
	if err != nil {
		return err
	}
	return writeMasked(cmd.OutOrStdout(), cfg)
}

// writeMasked prints cfg as YAML with the credentials masked
func writeMasked(w io.Writer, cfg *config.Config) error {
	masked := auth.Masked(&auth.Profile{
		ConsumerKey:    cfg.Credentials.ConsumerKey,
		ConsumerSecret: cfg.Credentials.ConsumerSecret,
		AccessToken:    cfg.Credentials.AccessToken,
		AccessSecret:   cfg.Credentials.AccessSecret,
	})
	display := cfg.WithCredentials(masked.Credentials())

	data, err := yaml.Marshal(display)
	if err != nil {
		return fmt.Errorf("failed to format settings: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := settingsPath()
	cfg, err := config.Load(path, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "%s is valid", path)
	if !cfg.Credentials.Complete() {
		printWarning(out, "credentials incomplete, a stored profile will be needed")
	}

	mode := "single run"
	if cfg.Daily() {
		mode = "daily at " + cfg.Schedule.At + " " + cfg.Schedule.Timezone
	}
	fmt.Fprintln(out, "\nSummary:")
	printField(out, "Imagery", fmt.Sprintf("%s/%s at %s", cfg.Parameters.Sector, cfg.Parameters.Band, cfg.Parameters.Res))
	printField(out, "Window", fmt.Sprintf("%s to %s, every %d frame(s)",
		cfg.Start.Format(config.StartLayout), cfg.End().Format(config.StartLayout), cfg.Parameters.Sampling))
	printField(out, "Mode", mode)
	printField(out, "Log level", cfg.Logging.Level)
	return nil
}
