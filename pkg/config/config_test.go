package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "goesbot/pkg/errors"
)

const sampleTOML = `
[credentials]
consumer_key = "ck"
consumer_secret = "cs"
access_token = "at"
access_secret = "as"

[parameters]
sector = "CONUS"
band = "GEOCOLOR"
res = "1250x750"
range = 5
sampling = 2
startDatetime = "2024-01-01-02:00"
message = "hello"
loop = 0

[source]
timeout = "30s"
`

const sampleINI = `
[credentials]
consumer_key = ck
consumer_secret = cs
access_token = at
access_secret = as

[parameters]
sector = FD
band = GEOCOLOR
res = 1808x1808
range = 24
sampling = 4
startDatetime = 2024-03-14-10:00
message = GOES16 sequence #daily; full disk
loop = 0
`

const sampleYAML = `
credentials:
  consumer_key: ck
  consumer_secret: cs
  access_token: at
  access_secret: as
parameters:
  sector: FD
  band: "13"
  res: 1808x1808
  range: 12
  sampling: 3
  startDatetime: "2024-03-14-10:00"
  message: yaml message
  loop: "1"
schedule:
  at: "06:30"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultBaseURL, cfg.Source.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Source.Timeout)
	assert.Equal(t, 1, cfg.Parameters.Sampling)
	assert.Equal(t, "ffmpeg", cfg.Encoder.Binary)
	assert.Equal(t, 20, cfg.Encoder.FrameRate)
	assert.Equal(t, "libx264", cfg.Encoder.VCodec)
	assert.Equal(t, "veryslow", cfg.Encoder.Preset)
	assert.Equal(t, 25, cfg.Encoder.CRF)
	assert.Equal(t, 300, cfg.Encoder.GOP)
	assert.True(t, cfg.Encoder.FastStart)
	assert.Equal(t, "12:00", cfg.Schedule.At)
	assert.Equal(t, "10:00", cfg.Schedule.WindowStart)
	assert.Equal(t, "images", cfg.Output.WorkDir)
	assert.Equal(t, "movie.mp4", cfg.Output.Media)
	assert.True(t, cfg.Run.DownloadImages)
	assert.True(t, cfg.Run.EncodeVideo)
	assert.True(t, cfg.Run.Post)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "settings.toml", sampleTOML)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "ck", cfg.Credentials.ConsumerKey)
	assert.True(t, cfg.Credentials.Complete())
	assert.Equal(t, "CONUS", cfg.Parameters.Sector)
	assert.Equal(t, 5, cfg.Parameters.Range)
	assert.Equal(t, 2, cfg.Parameters.Sampling)
	assert.Equal(t, "hello", cfg.Parameters.Message)
	assert.Equal(t, 30*time.Second, cfg.Source.Timeout)
	assert.Equal(t, time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC), cfg.Start)
	assert.Equal(t, time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC), cfg.End())
	assert.False(t, cfg.Daily())

	// untouched sections keep defaults
	assert.Equal(t, "ffmpeg", cfg.Encoder.Binary)
}

func TestLoadINI(t *testing.T) {
	path := writeFile(t, "credentials.cfg", sampleINI)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "ck", cfg.Credentials.ConsumerKey)
	assert.True(t, cfg.Credentials.Complete())
	assert.Equal(t, "FD", cfg.Parameters.Sector)
	assert.Equal(t, "1808x1808", cfg.Parameters.Res)
	assert.Equal(t, 24, cfg.Parameters.Range)
	assert.Equal(t, 4, cfg.Parameters.Sampling)
	assert.Equal(t, "GOES16 sequence #daily; full disk", cfg.Parameters.Message)
	assert.Equal(t, Loop("0"), cfg.Parameters.Loop)
	assert.False(t, cfg.Daily())
	assert.Equal(t, time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC), cfg.Start)
	assert.Equal(t, 60*time.Second, cfg.Source.Timeout)
}

func TestLoadINIKeysIgnoreCase(t *testing.T) {
	path := writeFile(t, "credentials.cfg", `
[Parameters]
STARTDATETIME = 2024-01-01-02:00
Sampling = 3
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Parameters.Sampling)
	assert.Equal(t, time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC), cfg.Start)
}

func TestLoadINIBadNumber(t *testing.T) {
	path := writeFile(t, "credentials.cfg", "[parameters]\nrange = lots\nstartDatetime = 2024-01-01-02:00\n")

	_, err := Load(path, nil)
	var cfgErr *errs.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "parameters")
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "settings.yaml", sampleYAML)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "FD", cfg.Parameters.Sector)
	assert.Equal(t, "13", cfg.Parameters.Band)
	assert.Equal(t, 3, cfg.Parameters.Sampling)
	assert.Equal(t, "06:30", cfg.Schedule.At)
	assert.True(t, cfg.Daily())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cfg"), nil)
	require.Error(t, err)

	var cfgErr *errs.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, errs.ExitConfig, errs.ExitCode(err))
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeFile(t, "credentials.cfg", "[parameters\nsector = ")

	_, err := Load(path, nil)
	var cfgErr *errs.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GOESBOT_CONSUMER_KEY", "env-ck")
	t.Setenv("GOESBOT_ACCESS_SECRET", "env-as")
	t.Setenv("GOESBOT_LOOP", "once")
	t.Setenv("GOESBOT_SAMPLING", "4")
	t.Setenv("GOESBOT_WORK_DIR", "/tmp/frames")
	t.Setenv("GOESBOT_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "env-ck", cfg.Credentials.ConsumerKey)
	assert.Equal(t, "env-as", cfg.Credentials.AccessSecret)
	assert.Equal(t, 4, cfg.Parameters.Sampling)
	assert.Equal(t, "/tmp/frames", cfg.Output.WorkDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Daily())
}

func TestLoadFromEnvBadSampling(t *testing.T) {
	t.Setenv("GOESBOT_SAMPLING", "two")

	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromEnv())
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"log-level": "warn",
		"no-tweet":  true,
		"no-images": true,
		"no-movie":  false,
	})

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.False(t, cfg.Run.Post)
	assert.False(t, cfg.Run.DownloadImages)
	assert.True(t, cfg.Run.EncodeVideo)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "sampling below one",
			mutate:  func(c *Config) { c.Parameters.Sampling = 0 },
			wantErr: "sampling must be at least 1",
		},
		{
			name:    "negative range",
			mutate:  func(c *Config) { c.Parameters.Range = -1 },
			wantErr: "range cannot be negative",
		},
		{
			name:    "bad start",
			mutate:  func(c *Config) { c.Parameters.StartDatetime = "2024/01/01 02:00" },
			wantErr: "startDatetime must match",
		},
		{
			name:    "missing start",
			mutate:  func(c *Config) { c.Parameters.StartDatetime = "" },
			wantErr: "startDatetime is required",
		},
		{
			name:    "bad schedule clock",
			mutate:  func(c *Config) { c.Schedule.At = "noon" },
			wantErr: "schedule.at",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" },
			wantErr: "schedule.timezone",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Parameters.StartDatetime = "2024-01-01-02:00"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDaily(t *testing.T) {
	for loop, want := range map[string]bool{
		"0": false, "false": false, "Once": false, "no": false,
		"1": true, "true": true, "daily": true, "": true,
	} {
		cfg := DefaultConfig()
		cfg.Parameters.Loop = Loop(loop)
		assert.Equal(t, want, cfg.Daily(), "loop=%q", loop)
	}
}

func TestWithStartDoesNotMutate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parameters.StartDatetime = "2024-01-01-02:00"
	require.NoError(t, cfg.Validate())

	next := cfg.WithStart(time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)).WithMessage("new")

	assert.Equal(t, "2024-03-14-10:00", next.Parameters.StartDatetime)
	assert.Equal(t, "new", next.Parameters.Message)
	assert.Equal(t, "2024-01-01-02:00", cfg.Parameters.StartDatetime)
	assert.Equal(t, "", cfg.Parameters.Message)
	assert.Equal(t, time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC), cfg.Start)
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("12:00")
	require.NoError(t, err)
	assert.Equal(t, 12, h)
	assert.Equal(t, 0, m)

	h, m, err = ParseClock(" 06:45 ")
	require.NoError(t, err)
	assert.Equal(t, 6, h)
	assert.Equal(t, 45, m)

	_, _, err = ParseClock("25:00")
	assert.Error(t, err)
}
