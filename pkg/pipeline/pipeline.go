// Package pipeline runs one pass of the bot: list the archive, pick the
// frames inside the window, download them, encode the video and publish it.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"goesbot/internal/downloader"
	"goesbot/pkg/config"
	"goesbot/pkg/encoder"
	errs "goesbot/pkg/errors"
	"goesbot/pkg/goes"
	"goesbot/pkg/logger"
	"goesbot/pkg/publisher"
	"goesbot/pkg/ratelimit"
	"goesbot/pkg/storage"
	"goesbot/pkg/twitter"
)

// Archive lists and serves frame images
type Archive interface {
	FetchIndex(ctx context.Context, sector, band string) (*goes.Listing, error)
	Open(ctx context.Context, listingURL, name string) (io.ReadCloser, error)
}

// Encoder turns ordered frame files into a video
type Encoder interface {
	Encode(ctx context.Context, frames []string, output string) error
}

// Publisher posts or verifies
type Publisher interface {
	Publish(ctx context.Context, mode publisher.Mode, message, mediaPath string) publisher.Result
}

// Report summarises a run
type Report struct {
	ListingURL string
	Listed     int
	Selected   int
	Sampled    int
	FirstFrame string
	Download   *downloader.Result
	Frames     []storage.Frame
	Media      string
	Encoded    bool
	Publish    publisher.Result
	Duration   time.Duration
}

// Pipeline wires the stages together
type Pipeline struct {
	archive   Archive
	encoder   Encoder
	publisher Publisher
	logger    logger.Logger
}

// New creates a pipeline from its stages
func New(archive Archive, enc Encoder, pub Publisher, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pipeline{
		archive:   archive,
		encoder:   enc,
		publisher: pub,
		logger:    log,
	}
}

// FromConfig builds the production pipeline for cfg
func FromConfig(ctx context.Context, cfg *config.Config, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.GetLogger()
	}

	archive := goes.NewClient(cfg.Source.BaseURL, cfg.Source.Timeout, log.WithField("component", "archive"))
	if cfg.Source.UserAgent != "" {
		archive.SetHeader("User-Agent", cfg.Source.UserAgent)
	}

	enc := encoder.New(cfg.Encoder, log.WithField("component", "encoder"))

	api := twitter.NewClient(ctx, cfg.Credentials, cfg.Source.Timeout, log.WithField("component", "twitter"))
	pub := publisher.New(api, log.WithField("component", "publisher"))

	return New(archive, enc, pub, log)
}

// Run executes one pass with cfg. Index, selection and encoding failures
// end the run with an error. Individual frame download failures are skipped,
// and a publishing failure is reported in Report.Publish only.
func (p *Pipeline) Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	start := time.Now()
	report := &Report{Media: cfg.Output.Media}
	params := cfg.Parameters

	p.logger.InfoWithFields("Run starting", map[string]interface{}{
		"sector":   params.Sector,
		"band":     params.Band,
		"res":      params.Res,
		"start":    cfg.Start.Format(config.StartLayout),
		"range":    params.Range,
		"sampling": params.Sampling,
		"download": cfg.Run.DownloadImages,
		"encode":   cfg.Run.EncodeVideo,
		"post":     cfg.Run.Post,
	})

	logger.LogStage(p.logger, "index", map[string]interface{}{"sector": params.Sector, "band": params.Band})
	listing, err := p.archive.FetchIndex(ctx, params.Sector, params.Band)
	if err != nil {
		return report, err
	}
	report.ListingURL = listing.URL
	report.Listed = len(listing.Names)

	// archive names are stamped in UTC
	window := goes.NewWindow(cfg.Start.UTC(), params.Range, params.Res)
	kept := goes.Select(listing.Names, window)
	report.Selected = len(kept)
	if len(kept) == 0 {
		return report, &errs.NoImagesInRangeError{
			Sector: params.Sector,
			Band:   params.Band,
			Res:    params.Res,
			Start:  cfg.Start,
			End:    cfg.End(),
		}
	}
	report.FirstFrame = kept[0].Name
	p.logger.InfoWithFields("Frames selected", map[string]interface{}{
		"listed":   report.Listed,
		"selected": report.Selected,
		"first":    report.FirstFrame,
	})

	store, err := storage.NewManager(cfg.Output.WorkDir)
	if err != nil {
		return report, fmt.Errorf("working directory: %w", err)
	}

	if cfg.Run.DownloadImages {
		sampled := goes.Sample(kept, params.Sampling)
		report.Sampled = len(sampled)

		logger.LogStage(p.logger, "download", map[string]interface{}{"frames": len(sampled)})
		if err := store.Reset(); err != nil {
			return report, fmt.Errorf("working directory: %w", err)
		}

		dl := downloader.New(p.archive, store, ratelimit.PerMinute(params.DownloadRate), p.logger.WithField("stage", "download"))
		result, err := dl.Download(ctx, listing.URL, sampled)
		report.Download = result
		if err != nil {
			return report, err
		}
		report.Frames = result.Frames
	} else {
		report.Frames = store.Frames()
		p.logger.InfoWithFields("Reusing frames already on disk", map[string]interface{}{
			"dir":    store.Dir(),
			"frames": len(report.Frames),
		})
	}

	if cfg.Run.EncodeVideo {
		logger.LogStage(p.logger, "encode", map[string]interface{}{"frames": len(report.Frames), "output": cfg.Output.Media})
		if err := p.encoder.Encode(ctx, storage.Paths(report.Frames), cfg.Output.Media); err != nil {
			return report, err
		}
		report.Encoded = true
	}

	mode := publisher.DryRun
	if cfg.Run.Post {
		mode = publisher.Live
	}
	logger.LogStage(p.logger, "publish", map[string]interface{}{"mode": mode.String()})
	report.Publish = p.publisher.Publish(ctx, mode, params.Message, cfg.Output.Media)

	report.Duration = time.Since(start)
	p.logger.InfoWithFields("Run finished", map[string]interface{}{
		"frames":   len(report.Frames),
		"publish":  string(report.Publish.Status),
		"duration": report.Duration,
	})

	return report, nil
}
