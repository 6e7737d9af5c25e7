// Package ratelimit paces frame downloads against the image archive.
//
// TokenBucket wraps golang.org/x/time/rate. PerMinute builds one from the
// download_rate setting and returns nil for "no limit".
//
//	limiter := ratelimit.PerMinute(cfg.Parameters.DownloadRate)
//	if limiter != nil {
//	    if err := limiter.Wait(ctx); err != nil {
//	        return err
//	    }
//	}
package ratelimit
