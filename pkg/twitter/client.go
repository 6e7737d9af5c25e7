package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"goesbot/pkg/config"
	errs "goesbot/pkg/errors"
	"goesbot/pkg/logger"
	"goesbot/pkg/poll"
)

const formContentType = "application/x-www-form-urlencoded"

// Client talks to the Twitter API with OAuth1 user-context signing
type Client struct {
	httpClient *http.Client
	apiBase    string
	uploadBase string
	chunkSize  int
	// pollUnit scales the check_after_secs hints from STATUS
	pollUnit time.Duration
	logger   logger.Logger
}

// NewClient creates a client signing every request with creds
func NewClient(ctx context.Context, creds config.Credentials, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	cfg := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	httpClient := cfg.Client(ctx, token)
	httpClient.Timeout = timeout

	return &Client{
		httpClient: httpClient,
		apiBase:    APIBaseURL,
		uploadBase: UploadBaseURL,
		chunkSize:  DefaultChunkSize,
		pollUnit:   time.Second,
		logger:     log,
	}
}

// SetBaseURLs points the client at other API and upload hosts
func (c *Client) SetBaseURLs(api, upload string) {
	c.apiBase = strings.TrimSuffix(api, "/")
	c.uploadBase = strings.TrimSuffix(upload, "/")
}

// SetChunkSize changes the APPEND segment size
func (c *Client) SetChunkSize(n int) {
	if n > 0 {
		c.chunkSize = n
	}
}

// do sends req and decodes a successful JSON body into target when non-nil.
// Failures come back as *errors.PublishError; 401 and 403 are reported as
// auth failures whatever kind the caller asked for.
func (c *Client) do(req *http.Request, kind errs.PublishKind, target interface{}) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"duration": time.Since(start),
		})
		return &errs.PublishError{Kind: errs.PublishNetwork, Err: err}
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.PublishError{Kind: errs.PublishNetwork, Code: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = errs.PublishAuth
		}
		return &errs.PublishError{Kind: kind, Code: resp.StatusCode, Err: errors.New(describe(resp.Status, body))}
	}

	if target == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          req.URL.String(),
			"status":       resp.StatusCode,
			"body_preview": preview,
		})
		return &errs.PublishError{Kind: kind, Code: resp.StatusCode, Err: fmt.Errorf("failed to parse JSON: %w", err)}
	}
	return nil
}

func describe(status string, body []byte) string {
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil {
		if msg := apiErr.message(); msg != "" {
			return status + ": " + msg
		}
	}
	return status
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, kind errs.PublishKind, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &errs.PublishError{Kind: kind, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", formContentType)
	return c.do(req, kind, target)
}

// VerifyCredentials returns the account the keys belong to
func (c *Client) VerifyCredentials(ctx context.Context) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+VerifyCredentialsEndpoint, nil)
	if err != nil {
		return nil, &errs.PublishError{Kind: errs.PublishAuth, Err: err}
	}

	var user User
	if err := c.do(req, errs.PublishAuth, &user); err != nil {
		return nil, err
	}
	if user.ScreenName == "" {
		return nil, &errs.PublishError{Kind: errs.PublishAuth, Err: errors.New("response did not include a screen name")}
	}

	c.logger.DebugWithFields("Credentials verified", map[string]interface{}{
		"screen_name": user.ScreenName,
	})
	return &user, nil
}

// UploadMedia uploads the video at path with the chunked INIT, APPEND,
// FINALIZE sequence and waits for server-side processing. It returns the
// media id to attach to a post.
func (c *Client) UploadMedia(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &errs.PublishError{Kind: errs.PublishMedia, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", &errs.PublishError{Kind: errs.PublishMedia, Err: err}
	}
	if info.Size() == 0 {
		return "", &errs.PublishError{Kind: errs.PublishMedia, Err: fmt.Errorf("%s is empty", path)}
	}

	endpoint := c.uploadBase + MediaUploadEndpoint

	var initResp mediaResponse
	err = c.postForm(ctx, endpoint, url.Values{
		"command":        {"INIT"},
		"total_bytes":    {strconv.FormatInt(info.Size(), 10)},
		"media_type":     {"video/mp4"},
		"media_category": {VideoCategory},
	}, errs.PublishUpload, &initResp)
	if err != nil {
		return "", err
	}
	if initResp.MediaID == "" {
		return "", &errs.PublishError{Kind: errs.PublishUpload, Err: errors.New("INIT returned no media id")}
	}
	mediaID := initResp.MediaID

	c.logger.InfoWithFields("Uploading media", map[string]interface{}{
		"media_id": mediaID,
		"bytes":    info.Size(),
		"path":     path,
	})

	buf := make([]byte, c.chunkSize)
	for segment := 0; ; segment++ {
		n, readErr := io.ReadFull(f, buf)
		if n > 0 {
			if err := c.appendSegment(ctx, endpoint, mediaID, segment, buf[:n]); err != nil {
				return "", err
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return "", &errs.PublishError{Kind: errs.PublishMedia, Err: readErr}
		}
	}

	var finalResp mediaResponse
	err = c.postForm(ctx, endpoint, url.Values{
		"command":  {"FINALIZE"},
		"media_id": {mediaID},
	}, errs.PublishUpload, &finalResp)
	if err != nil {
		return "", err
	}

	if err := c.awaitProcessing(ctx, mediaID, finalResp.ProcessingInfo); err != nil {
		return "", err
	}

	c.logger.InfoWithFields("Media uploaded", map[string]interface{}{
		"media_id": mediaID,
	})
	return mediaID, nil
}

func (c *Client) appendSegment(ctx context.Context, endpoint, mediaID string, segment int, chunk []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("command", "APPEND")
	_ = mw.WriteField("media_id", mediaID)
	_ = mw.WriteField("segment_index", strconv.Itoa(segment))
	part, err := mw.CreateFormFile("media", "chunk")
	if err != nil {
		return &errs.PublishError{Kind: errs.PublishUpload, Err: err}
	}
	if _, err := part.Write(chunk); err != nil {
		return &errs.PublishError{Kind: errs.PublishUpload, Err: err}
	}
	if err := mw.Close(); err != nil {
		return &errs.PublishError{Kind: errs.PublishUpload, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return &errs.PublishError{Kind: errs.PublishUpload, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.logger.DebugWithFields("Appending media segment", map[string]interface{}{
		"media_id": mediaID,
		"segment":  segment,
		"bytes":    len(chunk),
	})
	return c.do(req, errs.PublishUpload, nil)
}

// processing reads a processing_info block. While the upload is pending it
// returns the delay the server asked for.
func (c *Client) processing(mediaID string, info *ProcessingInfo) (time.Duration, bool, error) {
	if info == nil {
		return 0, true, nil
	}

	switch info.State {
	case stateSucceeded:
		return 0, true, nil
	case stateFailed:
		msg := "media processing failed"
		if info.Error != nil && info.Error.Message != "" {
			msg = info.Error.Message
		}
		return 0, false, &errs.PublishError{Kind: errs.PublishUpload, Err: errors.New(msg)}
	case statePending, stateInProgress:
	default:
		return 0, false, &errs.PublishError{Kind: errs.PublishUpload, Err: fmt.Errorf("unknown processing state %q", info.State)}
	}

	delay := time.Duration(info.CheckAfterSecs) * c.pollUnit
	if delay <= 0 {
		delay = c.pollUnit
	}
	c.logger.DebugWithFields("Waiting for media processing", map[string]interface{}{
		"media_id": mediaID,
		"state":    info.State,
		"progress": info.ProgressPct,
		"delay":    delay,
	})
	return delay, false, nil
}

// awaitProcessing polls STATUS until the upload leaves the pending states
func (c *Client) awaitProcessing(ctx context.Context, mediaID string, info *ProcessingInfo) error {
	delay, done, err := c.processing(mediaID, info)
	if done || err != nil {
		return err
	}

	err = poll.Until(ctx, delay, MaxProcessingWait, func(ctx context.Context) (time.Duration, bool, error) {
		query := url.Values{"command": {"STATUS"}, "media_id": {mediaID}}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.uploadBase+MediaUploadEndpoint+"?"+query.Encode(), nil)
		if err != nil {
			return 0, false, err
		}
		var status mediaResponse
		if err := c.do(req, errs.PublishUpload, &status); err != nil {
			return 0, false, err
		}
		return c.processing(mediaID, status.ProcessingInfo)
	})
	if err == nil {
		return nil
	}

	var pubErr *errs.PublishError
	if errors.As(err, &pubErr) {
		return err
	}
	return &errs.PublishError{Kind: errs.PublishUpload, Err: fmt.Errorf("media %s: %w", mediaID, err)}
}

// PostStatus creates a post with text and the given media attached
func (c *Client) PostStatus(ctx context.Context, text string, mediaIDs []string) (*Tweet, error) {
	payload := tweetRequest{Text: text}
	if len(mediaIDs) > 0 {
		payload.Media = &tweetMedia{MediaIDs: mediaIDs}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &errs.PublishError{Kind: errs.PublishPost, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+TweetsEndpoint, bytes.NewReader(data))
	if err != nil {
		return nil, &errs.PublishError{Kind: errs.PublishPost, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var resp tweetResponse
	if err := c.do(req, errs.PublishPost, &resp); err != nil {
		return nil, err
	}
	if resp.Data.ID == "" {
		return nil, &errs.PublishError{Kind: errs.PublishPost, Err: errors.New("response did not include a post id")}
	}

	c.logger.InfoWithFields("Post created", map[string]interface{}{
		"id": resp.Data.ID,
	})
	return &resp.Data, nil
}
