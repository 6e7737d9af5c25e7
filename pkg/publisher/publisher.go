// Package publisher posts the encoded video, or only checks the account in
// dry-run mode. Failures come back inside the Result instead of as an error so
// a daily loop can log them and carry on.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"os"

	errs "goesbot/pkg/errors"
	"goesbot/pkg/logger"
	"goesbot/pkg/twitter"
)

// API is the part of the social client the publisher needs
type API interface {
	VerifyCredentials(ctx context.Context) (*twitter.User, error)
	UploadMedia(ctx context.Context, path string) (string, error)
	PostStatus(ctx context.Context, text string, mediaIDs []string) (*twitter.Tweet, error)
}

// Mode selects between posting and only verifying credentials
type Mode int

const (
	// DryRun verifies credentials and posts nothing
	DryRun Mode = iota
	// Live uploads the media and posts it
	Live
)

func (m Mode) String() string {
	if m == Live {
		return "live"
	}
	return "dry-run"
}

// Status is the outcome of a publish attempt
type Status string

const (
	StatusVerified Status = "verified"
	StatusPosted   Status = "posted"
	StatusFailed   Status = "failed"
)

// Result describes what happened when publishing
type Result struct {
	Status     Status
	ScreenName string
	MediaID    string
	PostID     string
	Err        *errs.PublishError
}

// Error returns the failure as an error, or nil on success
func (r Result) Error() error {
	if r.Err == nil {
		return nil
	}
	return r.Err
}

// Publisher posts videos through an API
type Publisher struct {
	api    API
	logger logger.Logger
}

// New creates a publisher
func New(api API, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Publisher{api: api, logger: log}
}

// Publish checks the credentials in DryRun mode. In Live mode it uploads
// mediaPath and posts it with message; credentials are not verified first.
func (p *Publisher) Publish(ctx context.Context, mode Mode, message, mediaPath string) Result {
	log := p.logger.WithField("mode", mode.String())

	if mode != Live {
		user, err := p.api.VerifyCredentials(ctx)
		if err != nil {
			return p.fail(log, errs.PublishAuth, err)
		}
		log.InfoWithFields("Authenticated", map[string]interface{}{
			"screen_name": user.ScreenName,
		})
		return Result{Status: StatusVerified, ScreenName: user.ScreenName}
	}

	info, err := os.Stat(mediaPath)
	if err != nil {
		return p.fail(log, errs.PublishMedia, fmt.Errorf("media artifact unavailable: %w", err))
	}
	if info.IsDir() {
		return p.fail(log, errs.PublishMedia, fmt.Errorf("media artifact %s is a directory", mediaPath))
	}

	mediaID, err := p.api.UploadMedia(ctx, mediaPath)
	if err != nil {
		return p.fail(log, errs.PublishUpload, err)
	}

	tweet, err := p.api.PostStatus(ctx, message, []string{mediaID})
	if err != nil {
		return p.fail(log, errs.PublishPost, err)
	}

	result := Result{Status: StatusPosted, MediaID: mediaID, PostID: tweet.ID}
	log.InfoWithFields("Video posted", map[string]interface{}{
		"post_id":  tweet.ID,
		"media_id": mediaID,
		"message":  message,
	})
	return result
}

// fail turns err into a failed Result, keeping an existing PublishError as is
func (p *Publisher) fail(log logger.Logger, kind errs.PublishKind, err error) Result {
	var pubErr *errs.PublishError
	if !errors.As(err, &pubErr) {
		pubErr = &errs.PublishError{Kind: kind, Err: err}
	}
	log.WithError(pubErr).ErrorWithFields("Publishing failed", map[string]interface{}{
		"kind": string(pubErr.Kind),
		"code": pubErr.Code,
	})
	return Result{Status: StatusFailed, Err: pubErr}
}
