package publisher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "goesbot/pkg/errors"
	"goesbot/pkg/logger"
	"goesbot/pkg/twitter"
)

// MockAPI records calls and returns canned answers
type MockAPI struct {
	VerifyErr error
	UploadErr error
	PostErr   error

	calls    []string
	uploaded string
	posted   string
	mediaIDs []string
}

func (m *MockAPI) VerifyCredentials(ctx context.Context) (*twitter.User, error) {
	m.calls = append(m.calls, "verify")
	if m.VerifyErr != nil {
		return nil, m.VerifyErr
	}
	return &twitter.User{ID: "1", ScreenName: "goes16bot"}, nil
}

func (m *MockAPI) UploadMedia(ctx context.Context, path string) (string, error) {
	m.calls = append(m.calls, "upload")
	m.uploaded = path
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	return "media-7", nil
}

func (m *MockAPI) PostStatus(ctx context.Context, text string, mediaIDs []string) (*twitter.Tweet, error) {
	m.calls = append(m.calls, "post")
	m.posted = text
	m.mediaIDs = mediaIDs
	if m.PostErr != nil {
		return nil, m.PostErr
	}
	return &twitter.Tweet{ID: "post-9", Text: text}, nil
}

func mediaFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "movie.mp4")
	require.NoError(t, os.WriteFile(path, []byte("mp4"), 0644))
	return path
}

func TestDryRunOnlyVerifies(t *testing.T) {
	api := &MockAPI{}
	p := New(api, logger.NewNopLogger())

	result := p.Publish(context.Background(), DryRun, "msg", "does-not-matter.mp4")

	assert.Equal(t, StatusVerified, result.Status)
	assert.Equal(t, "goes16bot", result.ScreenName)
	assert.NoError(t, result.Error())
	assert.Equal(t, []string{"verify"}, api.calls)
}

func TestLivePosts(t *testing.T) {
	api := &MockAPI{}
	log := logger.NewTestLogger()
	p := New(api, log)
	path := mediaFile(t)

	result := p.Publish(context.Background(), Live, "24-hour GOES16 GEOCOLOR sequence", path)

	require.NoError(t, result.Error())
	assert.Equal(t, StatusPosted, result.Status)
	assert.Equal(t, "post-9", result.PostID)
	assert.Equal(t, "media-7", result.MediaID)
	assert.Equal(t, []string{"upload", "post"}, api.calls, "live mode goes straight to upload")
	assert.Equal(t, path, api.uploaded)
	assert.Equal(t, []string{"media-7"}, api.mediaIDs)
	assert.True(t, log.HasMessage("Video posted"))
}

func TestLiveIgnoresVerifyFailure(t *testing.T) {
	api := &MockAPI{VerifyErr: errors.New("verify must not be called")}
	p := New(api, logger.NewNopLogger())

	result := p.Publish(context.Background(), Live, "msg", mediaFile(t))

	require.NoError(t, result.Error())
	assert.Equal(t, StatusPosted, result.Status)
	assert.NotContains(t, api.calls, "verify")
}

func TestLiveMissingMedia(t *testing.T) {
	api := &MockAPI{}
	p := New(api, logger.NewNopLogger())

	result := p.Publish(context.Background(), Live, "msg", filepath.Join(t.TempDir(), "movie.mp4"))

	assert.Equal(t, StatusFailed, result.Status)
	require.NotNil(t, result.Err)
	assert.Equal(t, errs.PublishMedia, result.Err.Kind)
	assert.ErrorIs(t, result.Error(), os.ErrNotExist)
	assert.Empty(t, api.calls, "nothing uploaded without media")
}

func TestFailuresAreTyped(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		api  *MockAPI
		kind errs.PublishKind
		code int
	}{
		{
			name: "verify keeps client error",
			mode: DryRun,
			api:  &MockAPI{VerifyErr: &errs.PublishError{Kind: errs.PublishAuth, Code: 401, Err: errors.New("bad token")}},
			kind: errs.PublishAuth,
			code: 401,
		},
		{
			name: "untyped verify error",
			mode: DryRun,
			api:  &MockAPI{VerifyErr: errors.New("boom")},
			kind: errs.PublishAuth,
		},
		{
			name: "upload",
			mode: Live,
			api:  &MockAPI{UploadErr: errors.New("processing failed")},
			kind: errs.PublishUpload,
		},
		{
			name: "post",
			mode: Live,
			api:  &MockAPI{PostErr: &errs.PublishError{Kind: errs.PublishPost, Code: 403, Err: errors.New("duplicate")}},
			kind: errs.PublishPost,
			code: 403,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.api, logger.NewNopLogger())
			result := p.Publish(context.Background(), tt.mode, "msg", mediaFile(t))

			assert.Equal(t, StatusFailed, result.Status)
			require.NotNil(t, result.Err)
			assert.Equal(t, tt.kind, result.Err.Kind)
			assert.Equal(t, tt.code, result.Err.Code)
			assert.Equal(t, errs.ExitPublish, errs.ExitCode(result.Error()))
		})
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "live", Live.String())
	assert.Equal(t, "dry-run", DryRun.String())
}
