package twitter

import "strings"

// User is the subset of the account object the bot uses
type User struct {
	ID         string `json:"id_str"`
	ScreenName string `json:"screen_name"`
	Name       string `json:"name"`
}

// Tweet is a created post
type Tweet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ProcessingInfo reports server-side processing of uploaded video
type ProcessingInfo struct {
	State          string           `json:"state"`
	CheckAfterSecs int              `json:"check_after_secs"`
	ProgressPct    int              `json:"progress_percent"`
	Error          *ProcessingError `json:"error,omitempty"`
}

// ProcessingError explains why processing failed
type ProcessingError struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

type mediaResponse struct {
	MediaID        string          `json:"media_id_string"`
	Size           int64           `json:"size"`
	ExpiresAfter   int             `json:"expires_after_secs"`
	ProcessingInfo *ProcessingInfo `json:"processing_info,omitempty"`
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetResponse struct {
	Data Tweet `json:"data"`
}

// apiError covers both the v1.1 {"errors":[...]} and the v2 problem shapes
type apiError struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e apiError) message() string {
	var parts []string
	for _, item := range e.Errors {
		parts = append(parts, item.Message)
	}
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	} else if e.Title != "" {
		parts = append(parts, e.Title)
	}
	return strings.Join(parts, "; ")
}
