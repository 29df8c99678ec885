package logging

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/stake-plus/legal-agent/src/webclient"
)

func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if webclient.IsStatus(err, http.StatusTooManyRequests) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "rate_limit") || strings.Contains(msg, "429")
}

// Kind buckets an error for log fields. It is never shown to callers.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case IsRateLimit(err):
		return "rate_limit"
	}
	if apiErr, ok := webclient.AsAPIError(err); ok {
		switch apiErr.Status {
		case http.StatusNotFound:
			return "not_found"
		case http.StatusUnauthorized, http.StatusForbidden:
			return "auth"
		}
	}
	return "remote"
}
