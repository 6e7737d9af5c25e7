package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	errs "goesbot/pkg/errors"
)

const (
	// DefaultPath is the settings file looked up when none is given
	DefaultPath = "credentials.cfg"

	// StartLayout is the layout of parameters.startDatetime
	StartLayout = "2006-01-02-15:04"

	// DefaultBaseURL is the GOES-16 ABI image archive
	DefaultBaseURL = "https://cdn.star.nesdis.noaa.gov/GOES16/ABI/"
)

// Config holds every setting of one bot invocation
type Config struct {
	// OAuth1 credentials for the social API
	Credentials Credentials `toml:"credentials" yaml:"credentials" ini:"credentials"`

	// What to fetch and how to sample it
	Parameters Parameters `toml:"parameters" yaml:"parameters" ini:"parameters"`

	// Remote image index
	Source SourceConfig `toml:"source" yaml:"source" ini:"source"`

	// Video encoder settings
	Encoder EncoderConfig `toml:"encoder" yaml:"encoder" ini:"encoder"`

	// Daily loop settings
	Schedule ScheduleConfig `toml:"schedule" yaml:"schedule" ini:"schedule"`

	// Local paths
	Output OutputConfig `toml:"output" yaml:"output" ini:"output"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging" yaml:"logging" ini:"logging"`

	// Toggles set from the command line, never read from file
	Run RunOptions `toml:"-" yaml:"-"`

	// Start is Parameters.StartDatetime parsed by Validate
	Start time.Time `toml:"-" yaml:"-"`
}

// Credentials holds the four OAuth1 secrets
type Credentials struct {
	ConsumerKey    string `toml:"consumer_key" yaml:"consumer_key" ini:"consumer_key"`
	ConsumerSecret string `toml:"consumer_secret" yaml:"consumer_secret" ini:"consumer_secret"`
	AccessToken    string `toml:"access_token" yaml:"access_token" ini:"access_token"`
	AccessSecret   string `toml:"access_secret" yaml:"access_secret" ini:"access_secret"`
}

// Complete reports whether all four secrets are set
func (c Credentials) Complete() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

// Parameters selects the imagery and the message
type Parameters struct {
	Sector        string `toml:"sector" yaml:"sector" ini:"sector"`
	Band          string `toml:"band" yaml:"band" ini:"band"`
	Res           string `toml:"res" yaml:"res" ini:"res"`
	Range         int    `toml:"range" yaml:"range" ini:"range"`
	Sampling      int    `toml:"sampling" yaml:"sampling" ini:"sampling"`
	StartDatetime string `toml:"startDatetime" yaml:"startDatetime" ini:"startDatetime"`
	Message       string `toml:"message" yaml:"message" ini:"message"`
	Loop          Loop   `toml:"loop" yaml:"loop" ini:"loop"`
	// DownloadRate caps frame downloads per minute, 0 means unlimited
	DownloadRate int `toml:"download_rate" yaml:"download_rate" ini:"download_rate"`
}

// Loop is the loop parameter. Files may give it as a string, a number or a
// boolean; it is kept as text.
type Loop string

// UnmarshalTOML accepts loop = 0 as well as loop = "0"
func (l *Loop) UnmarshalTOML(v interface{}) error {
	switch v := v.(type) {
	case string:
		*l = Loop(v)
	case int64:
		*l = Loop(strconv.FormatInt(v, 10))
	case bool:
		*l = Loop(strconv.FormatBool(v))
	default:
		return fmt.Errorf("loop: unsupported value %v", v)
	}
	return nil
}

// SourceConfig describes the remote image index
type SourceConfig struct {
	BaseURL   string        `toml:"base_url" yaml:"base_url" ini:"base_url"`
	Timeout   time.Duration `toml:"timeout" yaml:"timeout" ini:"timeout"`
	UserAgent string        `toml:"user_agent" yaml:"user_agent" ini:"user_agent"`
}

// EncoderConfig holds the fixed encoding parameters
type EncoderConfig struct {
	Binary    string `toml:"binary" yaml:"binary" ini:"binary"`
	FrameRate int    `toml:"framerate" yaml:"framerate" ini:"framerate"`
	VCodec    string `toml:"vcodec" yaml:"vcodec" ini:"vcodec"`
	Preset    string `toml:"preset" yaml:"preset" ini:"preset"`
	CRF       int    `toml:"crf" yaml:"crf" ini:"crf"`
	GOP       int    `toml:"gop" yaml:"gop" ini:"gop"`
	FastStart bool   `toml:"faststart" yaml:"faststart" ini:"faststart"`
}

// ScheduleConfig controls the daily loop
type ScheduleConfig struct {
	// At is the wall-clock fire time, HH:MM
	At string `toml:"at" yaml:"at" ini:"at"`
	// WindowStart is the start of yesterday's window, HH:MM
	WindowStart string `toml:"window_start" yaml:"window_start" ini:"window_start"`
	Timezone    string `toml:"timezone" yaml:"timezone" ini:"timezone"`
	// Message is the daily post text. {date} is replaced with the window
	// start rendered with DateLayout.
	Message    string `toml:"message" yaml:"message" ini:"message"`
	DateLayout string `toml:"date_layout" yaml:"date_layout" ini:"date_layout"`
}

// OutputConfig holds local paths
type OutputConfig struct {
	WorkDir string `toml:"work_dir" yaml:"work_dir" ini:"work_dir"`
	Media   string `toml:"media" yaml:"media" ini:"media"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level" yaml:"level" ini:"level"`
	File  string `toml:"file" yaml:"file" ini:"file"`
}

// RunOptions are the command line toggles
type RunOptions struct {
	DownloadImages bool
	EncodeVideo    bool
	Post           bool
}

// DefaultConfig returns a Config with the stock GOES-16 CONUS GeoColor setup
func DefaultConfig() *Config {
	return &Config{
		Parameters: Parameters{
			Sector:   "CONUS",
			Band:     "GEOCOLOR",
			Res:      "1250x750",
			Range:    24,
			Sampling: 1,
			Loop:     "1",
		},
		Source: SourceConfig{
			BaseURL:   DefaultBaseURL,
			Timeout:   60 * time.Second,
			UserAgent: "goesbot/1.0",
		},
		Encoder: EncoderConfig{
			Binary:    "ffmpeg",
			FrameRate: 20,
			VCodec:    "libx264",
			Preset:    "veryslow",
			CRF:       25,
			GOP:       300,
			FastStart: true,
		},
		Schedule: ScheduleConfig{
			At:          "12:00",
			WindowStart: "10:00",
			Timezone:    "UTC",
			Message:     "24-hour GOES16 GEOCOLOR sequence for {date}.",
			DateLayout:  "Monday, January 02, 2006",
		},
		Output: OutputConfig{
			WorkDir: "images",
			Media:   "movie.mp4",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Run: RunOptions{
			DownloadImages: true,
			EncodeVideo:    true,
			Post:           true,
		},
	}
}

// LoadFromFile decodes a settings file by extension: YAML for .yaml/.yml,
// TOML for .toml and INI (credentials.cfg style) for anything else
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		_, err = toml.Decode(string(data), c)
	default:
		err = c.loadINI(data)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadINI maps each known section onto its struct. Keys are matched
// case-insensitively and values may be bare or quoted.
func (c *Config) loadINI(data []byte) error {
	f, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:         true,
		IgnoreInlineComment: true,
	}, data)
	if err != nil {
		return err
	}

	sections := []struct {
		name   string
		target interface{}
	}{
		{"credentials", &c.Credentials},
		{"parameters", &c.Parameters},
		{"source", &c.Source},
		{"encoder", &c.Encoder},
		{"schedule", &c.Schedule},
		{"output", &c.Output},
		{"logging", &c.Logging},
	}
	for _, sec := range sections {
		if !f.HasSection(sec.name) {
			continue
		}
		if err := f.Section(sec.name).StrictMapTo(sec.target); err != nil {
			return fmt.Errorf("[%s]: %w", sec.name, err)
		}
	}
	return nil
}

// LoadFromEnv applies GOESBOT_* environment overrides
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("GOESBOT_CONSUMER_KEY"); v != "" {
		c.Credentials.ConsumerKey = v
	}
	if v := os.Getenv("GOESBOT_CONSUMER_SECRET"); v != "" {
		c.Credentials.ConsumerSecret = v
	}
	if v := os.Getenv("GOESBOT_ACCESS_TOKEN"); v != "" {
		c.Credentials.AccessToken = v
	}
	if v := os.Getenv("GOESBOT_ACCESS_SECRET"); v != "" {
		c.Credentials.AccessSecret = v
	}

	if v := os.Getenv("GOESBOT_LOOP"); v != "" {
		c.Parameters.Loop = Loop(v)
	}
	if v := os.Getenv("GOESBOT_SAMPLING"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GOESBOT_SAMPLING: %w", err)
		}
		c.Parameters.Sampling = n
	}
	if v := os.Getenv("GOESBOT_WORK_DIR"); v != "" {
		c.Output.WorkDir = v
	}
	if v := os.Getenv("GOESBOT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if workDir, ok := flags["work-dir"].(string); ok && workDir != "" {
		c.Output.WorkDir = workDir
	}
	if noTweet, ok := flags["no-tweet"].(bool); ok && noTweet {
		c.Run.Post = false
	}
	if noImages, ok := flags["no-images"].(bool); ok && noImages {
		c.Run.DownloadImages = false
	}
	if noMovie, ok := flags["no-movie"].(bool); ok && noMovie {
		c.Run.EncodeVideo = false
	}
}

// Validate checks the configuration and parses derived fields
func (c *Config) Validate() error {
	var problems []error

	p := c.Parameters
	if strings.TrimSpace(p.Sector) == "" {
		problems = append(problems, errors.New("parameters.sector is required"))
	}
	if strings.TrimSpace(p.Band) == "" {
		problems = append(problems, errors.New("parameters.band is required"))
	}
	if strings.TrimSpace(p.Res) == "" {
		problems = append(problems, errors.New("parameters.res is required"))
	}
	if p.Range < 0 {
		problems = append(problems, errors.New("parameters.range cannot be negative"))
	}
	if p.Sampling < 1 {
		problems = append(problems, errors.New("parameters.sampling must be at least 1"))
	}
	if p.DownloadRate < 0 {
		problems = append(problems, errors.New("parameters.download_rate cannot be negative"))
	}
	if p.StartDatetime == "" {
		problems = append(problems, errors.New("parameters.startDatetime is required"))
	} else if start, err := time.Parse(StartLayout, p.StartDatetime); err != nil {
		problems = append(problems, fmt.Errorf("parameters.startDatetime must match YYYY-MM-DD-HH:MM: %w", err))
	} else {
		c.Start = start
	}

	if c.Source.BaseURL == "" {
		problems = append(problems, errors.New("source.base_url is required"))
	}
	if c.Source.Timeout <= 0 {
		problems = append(problems, errors.New("source.timeout must be positive"))
	}

	if c.Encoder.Binary == "" {
		problems = append(problems, errors.New("encoder.binary is required"))
	}
	if c.Encoder.FrameRate <= 0 {
		problems = append(problems, errors.New("encoder.framerate must be positive"))
	}

	if _, _, err := ParseClock(c.Schedule.At); err != nil {
		problems = append(problems, fmt.Errorf("schedule.at: %w", err))
	}
	if _, _, err := ParseClock(c.Schedule.WindowStart); err != nil {
		problems = append(problems, fmt.Errorf("schedule.window_start: %w", err))
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		problems = append(problems, fmt.Errorf("schedule.timezone: %w", err))
	}

	if c.Output.WorkDir == "" {
		problems = append(problems, errors.New("output.work_dir is required"))
	}
	if c.Output.Media == "" {
		problems = append(problems, errors.New("output.media is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		problems = append(problems, errors.New("invalid log level"))
	}

	if len(problems) > 0 {
		return errors.Join(problems...)
	}

	return nil
}

// Daily reports whether the loop parameter selects the daily schedule
func (c *Config) Daily() bool {
	switch strings.ToLower(strings.TrimSpace(string(c.Parameters.Loop))) {
	case "0", "false", "no", "off", "once":
		return false
	default:
		return true
	}
}

// End returns the end of the configured window
func (c *Config) End() time.Time {
	return c.Start.Add(time.Duration(c.Parameters.Range) * time.Hour)
}

// Location returns the schedule time zone, UTC if it cannot be loaded
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WithStart returns a copy with a new window start
func (c Config) WithStart(start time.Time) *Config {
	c.Start = start
	c.Parameters.StartDatetime = start.Format(StartLayout)
	return &c
}

// WithMessage returns a copy with a new message
func (c Config) WithMessage(msg string) *Config {
	c.Parameters.Message = msg
	return &c
}

// WithCredentials returns a copy with the given credentials
func (c Config) WithCredentials(creds Credentials) *Config {
	c.Credentials = creds
	return &c
}

// ParseClock parses an HH:MM wall-clock time
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock %q, expected HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".goesbot.env"))

	if configPath == "" {
		configPath = DefaultPath
	}

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, &errs.ConfigError{Path: configPath, Err: err}
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, &errs.ConfigError{Path: configPath, Err: err}
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, &errs.ConfigError{Path: configPath, Err: err}
	}

	return config, nil
}
