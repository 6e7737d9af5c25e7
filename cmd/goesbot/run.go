package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"goesbot/pkg/auth"
	"goesbot/pkg/config"
	"goesbot/pkg/logger"
	"goesbot/pkg/pipeline"
	"goesbot/pkg/publisher"
	"goesbot/pkg/scheduler"
)

// loader reads the settings for one run
type loader func() (*config.Config, error)

// runner executes one pipeline pass
type runner func(ctx context.Context, cfg *config.Config, log logger.Logger) (*pipeline.Report, error)

func runPipeline(ctx context.Context, cfg *config.Config, log logger.Logger) (*pipeline.Report, error) {
	return pipeline.FromConfig(ctx, cfg, log).Run(ctx, cfg)
}

func runBot(cmd *cobra.Command, args []string) error {
	load := settingsLoader(configFile, commandLineFlags())

	cfg, err := load()
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return err
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("goesbot starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !daily(cfg) {
		return runOnce(ctx, cfg, runPipeline, log)
	}
	return runDaily(ctx, cfg, load, runPipeline, log)
}

// commandLineFlags collects the flags that override file settings
func commandLineFlags() map[string]interface{} {
	flags := map[string]interface{}{
		"no-tweet":  noTweet,
		"no-images": noImages,
		"no-movie":  noMovie,
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if workDir != "" {
		flags["work-dir"] = workDir
	}
	return flags
}

// settingsLoader returns a loader that reads path and fills missing
// credentials from the stored profile
func settingsLoader(path string, flags map[string]interface{}) loader {
	return func() (*config.Config, error) {
		cfg, err := config.Load(path, flags)
		if err != nil {
			return nil, err
		}
		return resolveCredentials(cfg), nil
	}
}

func resolveCredentials(cfg *config.Config) *config.Config {
	if cfg.Credentials.Complete() {
		return cfg
	}

	manager, err := auth.NewManager()
	if err != nil {
		logger.WithError(err).Warn("Credential store unavailable")
		return cfg
	}

	creds, err := manager.Resolve(cfg.Credentials, profile)
	if err != nil {
		logger.WithError(err).Warn("Credentials incomplete and no stored profile found, see 'goesbot auth login'")
		return cfg
	}
	return cfg.WithCredentials(creds)
}

// daily reports whether the bot should stay up and post every day. Skipping
// the download or the encoding always means a single run.
func daily(cfg *config.Config) bool {
	return cfg.Daily() && cfg.Run.DownloadImages && cfg.Run.EncodeVideo
}

// runOnce executes a single pass. A failed post is returned so the exit
// code reflects it.
func runOnce(ctx context.Context, cfg *config.Config, run runner, log logger.Logger) error {
	report, err := run(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("Run failed")
		return err
	}

	logReport(log, report)
	if report.Publish.Status == publisher.StatusFailed {
		return report.Publish.Error()
	}
	return nil
}

// runDaily blocks until ctx is cancelled, running the pipeline at every
// scheduled fire
func runDaily(ctx context.Context, cfg *config.Config, load loader, run runner, log logger.Logger) error {
	sched, err := scheduler.New(cfg.Schedule.At, cfg.Location(), log.WithField("component", "scheduler"))
	if err != nil {
		return err
	}

	log.InfoWithFields("Daily mode", map[string]interface{}{
		"at":       cfg.Schedule.At,
		"timezone": cfg.Schedule.Timezone,
		"window":   cfg.Schedule.WindowStart,
	})

	return sched.Run(ctx, dailyJob(load, run, log))
}

// dailyJob reloads the settings at each fire and runs yesterday's window.
// A reload failure skips the day.
func dailyJob(load loader, run runner, log logger.Logger) scheduler.Job {
	return func(ctx context.Context, fire time.Time) error {
		fresh, err := load()
		if err != nil {
			log.WithError(err).Error("Settings reload failed, skipping run")
			return nil
		}

		cfg, err := scheduler.ForDailyRun(fresh, fire)
		if err != nil {
			log.WithError(err).Error("Settings reload failed, skipping run")
			return nil
		}

		report, err := run(ctx, cfg, log)
		if err != nil {
			return err
		}
		logReport(log, report)
		return report.Publish.Error()
	}
}

func logReport(log logger.Logger, report *pipeline.Report) {
	fields := map[string]interface{}{
		"listed":   report.Listed,
		"selected": report.Selected,
		"frames":   len(report.Frames),
		"encoded":  report.Encoded,
		"publish":  string(report.Publish.Status),
		"duration": report.Duration.Round(time.Millisecond).String(),
	}
	if report.Download != nil {
		fields["failed"] = len(report.Download.Failures)
		fields["bytes"] = report.Download.Bytes
	}
	if report.Publish.ScreenName != "" {
		fields["account"] = report.Publish.ScreenName
	}
	if report.Publish.PostID != "" {
		fields["post"] = report.Publish.PostID
	}
	log.InfoWithFields("Run summary", fields)
}
