package downloader

import (
	"context"
	"fmt"
	"io"
	"time"

	"goesbot/pkg/goes"
	"goesbot/pkg/logger"
	"goesbot/pkg/ratelimit"
	"goesbot/pkg/storage"
)

// Opener starts the transfer of one listed file
type Opener interface {
	Open(ctx context.Context, listingURL, name string) (io.ReadCloser, error)
}

// FrameStorage persists a downloaded frame under its selection index
type FrameStorage interface {
	SaveFrame(r io.Reader, index int) (storage.Frame, error)
}

// Failure records a frame that could not be fetched or written
type Failure struct {
	Index int
	Name  string
	Err   error
}

// Result summarises one download pass
type Result struct {
	Frames   []storage.Frame
	Failures []Failure
	Bytes    int64
	Duration time.Duration
}

// Downloader fetches sampled frames one after another
type Downloader struct {
	client      Opener
	storage     FrameStorage
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// New creates a downloader. rateLimiter may be nil for unlimited pacing.
func New(client Opener, store FrameStorage, rateLimiter ratelimit.Limiter, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Downloader{
		client:      client,
		storage:     store,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// Download fetches each sampled entry from listingURL in order. A frame that
// fails is logged and skipped; the run continues with the next one. Only a
// cancelled context stops the pass early.
func (d *Downloader) Download(ctx context.Context, listingURL string, sampled []goes.Sampled) (*Result, error) {
	start := time.Now()
	result := &Result{
		Frames: make([]storage.Frame, 0, len(sampled)),
	}

	d.logger.InfoWithFields("Downloading frames", map[string]interface{}{
		"count":   len(sampled),
		"listing": listingURL,
	})

	for _, s := range sampled {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		if d.rateLimiter != nil && !d.rateLimiter.Allow() {
			d.logger.DebugWithFields("Waiting for download rate limit", map[string]interface{}{
				"index": s.Index,
			})
			if err := d.rateLimiter.Wait(ctx); err != nil {
				result.Duration = time.Since(start)
				return result, err
			}
		}

		frame, size, err := d.fetch(ctx, listingURL, s)
		logger.LogFrame(d.logger, s.Index, s.Entry.Name, size, err)
		if err != nil {
			if ctx.Err() != nil {
				result.Duration = time.Since(start)
				return result, ctx.Err()
			}
			result.Failures = append(result.Failures, Failure{Index: s.Index, Name: s.Entry.Name, Err: err})
			continue
		}

		result.Frames = append(result.Frames, frame)
		result.Bytes += size
	}

	result.Duration = time.Since(start)

	d.logger.InfoWithFields("Download finished", map[string]interface{}{
		"downloaded": len(result.Frames),
		"failed":     len(result.Failures),
		"bytes":      result.Bytes,
		"duration":   result.Duration,
	})

	return result, nil
}

func (d *Downloader) fetch(ctx context.Context, listingURL string, s goes.Sampled) (storage.Frame, int64, error) {
	body, err := d.client.Open(ctx, listingURL, s.Entry.Name)
	if err != nil {
		return storage.Frame{}, 0, err
	}
	defer body.Close()

	counter := &countingReader{r: body}
	frame, err := d.storage.SaveFrame(counter, s.Index)
	if err != nil {
		return storage.Frame{}, counter.n, fmt.Errorf("save failed: %w", err)
	}
	return frame, counter.n, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
