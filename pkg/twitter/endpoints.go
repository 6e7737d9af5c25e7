// Package twitter is a small OAuth1 client for the Twitter endpoints the bot
// posts through.
package twitter

import "time"

const (
	// APIBaseURL is the base URL for the REST API
	APIBaseURL = "https://api.twitter.com"

	// UploadBaseURL is the base URL for media uploads
	UploadBaseURL = "https://upload.twitter.com"

	// VerifyCredentialsEndpoint returns the authenticated user
	VerifyCredentialsEndpoint = "/1.1/account/verify_credentials.json"

	// MediaUploadEndpoint takes the INIT, APPEND, FINALIZE and STATUS commands
	MediaUploadEndpoint = "/1.1/media/upload.json"

	// TweetsEndpoint creates a post
	TweetsEndpoint = "/2/tweets"

	// DefaultChunkSize is the APPEND segment size; the API caps segments at 5 MB
	DefaultChunkSize = 4 << 20

	// VideoCategory is the media category for videos attached to posts
	VideoCategory = "tweet_video"

	// MaxProcessingWait bounds the STATUS polling after FINALIZE
	MaxProcessingWait = 10 * time.Minute
)

const (
	stateSucceeded  = "succeeded"
	stateFailed     = "failed"
	statePending    = "pending"
	stateInProgress = "in_progress"
)
