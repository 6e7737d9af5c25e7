package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a failure of one pipeline stage
type Kind string

const (
	KindConfig   Kind = "config"
	KindIndex    Kind = "index"
	KindNoImages Kind = "no_images"
	KindDownload Kind = "download"
	KindEncode   Kind = "encode"
	KindPublish  Kind = "publish"
	KindUnknown  Kind = "unknown"
)

// Process exit codes
const (
	ExitOK       = 0
	ExitGeneric  = 1
	ExitConfig   = 2
	ExitIndex    = 3
	ExitNoImages = 4
	ExitEncode   = 5
	ExitPublish  = 6
)

// ConfigError reports a missing or malformed settings file or field
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config error: %v", e.Err)
	}
	return fmt.Sprintf("config error (%s): %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IndexError reports a failure to fetch or parse the remote image index
type IndexError struct {
	URL  string
	Code int
	Err  error
}

func (e *IndexError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("index error (%s, status %d): %v", e.URL, e.Code, e.Err)
	}
	return fmt.Sprintf("index error (%s): %v", e.URL, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// NoImagesInRangeError is returned when no listed file falls inside the time window
type NoImagesInRangeError struct {
	Sector string
	Band   string
	Res    string
	Start  time.Time
	End    time.Time
}

func (e *NoImagesInRangeError) Error() string {
	return fmt.Sprintf("no images in range: %s/%s res=%s between %s and %s",
		e.Sector, e.Band, e.Res,
		e.Start.Format("2006-01-02 15:04"), e.End.Format("2006-01-02 15:04"))
}

// DownloadError reports a single frame that could not be fetched
type DownloadError struct {
	URL  string
	Code int
	Err  error
}

func (e *DownloadError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("download error (%s, status %d): %v", e.URL, e.Code, e.Err)
	}
	return fmt.Sprintf("download error (%s): %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// EncodeError reports a failed encoder run
type EncodeError struct {
	Binary string
	Stderr string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("encode error (%s): %v: %s", e.Binary, e.Err, e.Stderr)
	}
	return fmt.Sprintf("encode error (%s): %v", e.Binary, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// PublishKind narrows down where publishing failed
type PublishKind string

const (
	PublishAuth    PublishKind = "auth"
	PublishMedia   PublishKind = "media"
	PublishUpload  PublishKind = "upload"
	PublishPost    PublishKind = "post"
	PublishNetwork PublishKind = "network"
)

// PublishError reports a failure talking to the social API
type PublishError struct {
	Kind PublishKind
	Code int
	Err  error
}

func (e *PublishError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("publish %s error (code %d): %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("publish %s error: %v", e.Kind, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// KindOf returns the Kind of the typed error found in err's chain
func KindOf(err error) Kind {
	var (
		cfgErr   *ConfigError
		indexErr *IndexError
		emptyErr *NoImagesInRangeError
		dlErr    *DownloadError
		encErr   *EncodeError
		pubErr   *PublishError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cfgErr):
		return KindConfig
	case errors.As(err, &indexErr):
		return KindIndex
	case errors.As(err, &emptyErr):
		return KindNoImages
	case errors.As(err, &dlErr):
		return KindDownload
	case errors.As(err, &encErr):
		return KindEncode
	case errors.As(err, &pubErr):
		return KindPublish
	default:
		return KindUnknown
	}
}

// ExitCode maps an error to the process exit code
func ExitCode(err error) int {
	switch KindOf(err) {
	case "":
		return ExitOK
	case KindConfig:
		return ExitConfig
	case KindIndex:
		return ExitIndex
	case KindNoImages:
		return ExitNoImages
	case KindEncode:
		return ExitEncode
	case KindPublish:
		return ExitPublish
	default:
		return ExitGeneric
	}
}
