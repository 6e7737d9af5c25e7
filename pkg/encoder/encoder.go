// Package encoder runs ffmpeg over the downloaded frames to produce the video.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"goesbot/pkg/config"
	errs "goesbot/pkg/errors"
	"goesbot/pkg/logger"
)

// stderrTail is how much of the encoder's stderr is kept for error reports
const stderrTail = 4096

// ErrNoFrames is returned when there is nothing to encode
var ErrNoFrames = errors.New("no frames to encode")

// CommandFunc builds the encoder process
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Encoder turns an ordered list of JPEG frames into a video with ffmpeg
type Encoder struct {
	cfg     config.EncoderConfig
	command CommandFunc
	logger  logger.Logger
}

// New creates an encoder for cfg
func New(cfg config.EncoderConfig, log logger.Logger) *Encoder {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Encoder{
		cfg:     cfg,
		command: exec.CommandContext,
		logger:  log,
	}
}

// SetCommand replaces the process constructor
func (e *Encoder) SetCommand(fn CommandFunc) {
	e.command = fn
}

// Args returns the ffmpeg arguments for writing output. Frames arrive on
// stdin as an image2pipe stream, so their file names and numbering gaps do
// not matter.
func (e *Encoder) Args(output string) []string {
	args := []string{
		"-hide_banner",
		"-f", "image2pipe",
		"-framerate", strconv.Itoa(e.cfg.FrameRate),
		"-i", "-",
		"-vcodec", e.cfg.VCodec,
	}
	if e.cfg.Preset != "" {
		args = append(args, "-preset", e.cfg.Preset)
	}
	args = append(args,
		"-crf", strconv.Itoa(e.cfg.CRF),
		"-g", strconv.Itoa(e.cfg.GOP),
	)
	if e.cfg.FastStart {
		args = append(args, "-movflags", "+faststart")
	}
	return append(args, "-y", output)
}

// Encode streams frames in order into the encoder and writes output.
// A non-zero exit is returned as an *errors.EncodeError with the tail of
// the encoder's stderr.
func (e *Encoder) Encode(ctx context.Context, frames []string, output string) error {
	if len(frames) == 0 {
		return &errs.EncodeError{Binary: e.cfg.Binary, Err: ErrNoFrames}
	}

	args := e.Args(output)
	cmd := e.command(ctx, e.cfg.Binary, args...)

	stderr := &tailBuffer{limit: stderrTail}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &errs.EncodeError{Binary: e.cfg.Binary, Err: fmt.Errorf("failed to open stdin: %w", err)}
	}

	e.logger.InfoWithFields("Encoding video", map[string]interface{}{
		"binary": e.cfg.Binary,
		"frames": len(frames),
		"output": output,
	})
	e.logger.DebugWithFields("Encoder arguments", map[string]interface{}{
		"args": args,
	})

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return &errs.EncodeError{Binary: e.cfg.Binary, Err: fmt.Errorf("failed to start: %w", err)}
	}

	feedErr := feed(stdin, frames)
	waitErr := cmd.Wait()

	if waitErr != nil {
		return &errs.EncodeError{Binary: e.cfg.Binary, Stderr: stderr.String(), Err: waitErr}
	}
	if feedErr != nil {
		return &errs.EncodeError{Binary: e.cfg.Binary, Stderr: stderr.String(), Err: feedErr}
	}

	fields := map[string]interface{}{
		"output":   output,
		"duration": time.Since(start),
	}
	if info, err := os.Stat(output); err == nil {
		fields["bytes"] = info.Size()
	}
	e.logger.InfoWithFields("Video encoded", fields)

	return nil
}

// feed copies every frame into w and closes it
func feed(w io.WriteCloser, frames []string) error {
	for _, path := range frames {
		if err := copyFile(w, path); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open frame: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to stream frame %s: %w", path, err)
	}
	return nil
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
