// Package classifier maps raw feed failures onto typed classifications.
//
// A failure arrives in one of three shapes: a structured error carrying a code,
// an HTTP status, or an arbitrary error whose text is all we have. Each shape is
// reduced to a domain.ErrorCode, and the code decides whether the failure is
// transient (retried with capped exponential backoff) or persistent (forces
// manual mode immediately).
//
// Free-text matching is an ordered rule table; the first matching rule wins and
// anything unmatched is treated as transient so the sync loop keeps retrying
// rather than stalling silently.
package classifier

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/vietddude/draftsync/internal/core/domain"
	"github.com/vietddude/draftsync/internal/infra/feed"
)

type codeInfo struct {
	failureType domain.FailureType
	message     string
}

var codeTable = map[domain.ErrorCode]codeInfo{
	domain.CodeTimeout:         {domain.FailureTypeTransient, "The draft room took too long to respond. Retrying."},
	domain.CodeNetworkError:    {domain.FailureTypeTransient, "Unable to reach the draft room. Check your connection."},
	domain.CodeRateLimited:     {domain.FailureTypeTransient, "The draft room is rate limiting requests. Slowing down."},
	domain.CodeScrapeError:     {domain.FailureTypeTransient, "The draft room returned an error. Retrying."},
	domain.CodeParseError:      {domain.FailureTypeTransient, "Could not read the draft room response. Retrying."},
	domain.CodeUnknown:         {domain.FailureTypeTransient, "Sync failed unexpectedly. Retrying."},
	domain.CodeUnauthorized:    {domain.FailureTypePersistent, "Draft room credentials were rejected. Switched to manual entry."},
	domain.CodeLeagueNotFound:  {domain.FailureTypePersistent, "The draft room could not find this league. Switched to manual entry."},
	domain.CodeValidationError: {domain.FailureTypePersistent, "The sync request was rejected as invalid. Switched to manual entry."},
}

// Rule maps a lowercased failure message onto an error code.
type Rule struct {
	Name  string
	Match func(msg string) bool
	Code  domain.ErrorCode
}

func containsAny(needles ...string) func(string) bool {
	return func(msg string) bool {
		for _, n := range needles {
			if strings.Contains(msg, n) {
				return true
			}
		}
		return false
	}
}

// MessageRules is evaluated in order; the first match wins.
var MessageRules = []Rule{
	{Name: "timeout", Match: containsAny("timeout", "timed out", "aborted"), Code: domain.CodeTimeout},
	{Name: "network", Match: containsAny("network", "failed to fetch", "connection", "offline"), Code: domain.CodeNetworkError},
	{Name: "auth", Match: containsAny("unauthorized", "401", "403", "forbidden"), Code: domain.CodeUnauthorized},
	{Name: "not_found", Match: containsAny("not found", "404"), Code: domain.CodeLeagueNotFound},
}

// Classifier classifies failures using a backoff schedule and manual-mode threshold.
type Classifier struct {
	Backoff         Backoff
	ManualThreshold int
}

// Default uses the 5s/20s schedule and escalates after 3 transient failures.
var Default = New(DefaultBackoff(), domain.ManualModeThreshold)

// New creates a classifier.
func New(backoff Backoff, manualThreshold int) *Classifier {
	if manualThreshold <= 0 {
		manualThreshold = domain.ManualModeThreshold
	}
	return &Classifier{Backoff: backoff, ManualThreshold: manualThreshold}
}

// ClassifyCode classifies a structured error code.
func (c *Classifier) ClassifyCode(code domain.ErrorCode, failureCount int) domain.ErrorClassification {
	info, ok := codeTable[code]
	if !ok {
		code = domain.CodeUnknown
		info = codeTable[code]
	}

	cl := domain.ErrorClassification{
		Type:           info.failureType,
		Code:           code,
		DisplayMessage: info.message,
	}
	if info.failureType == domain.FailureTypeTransient {
		cl.ShouldRetry = true
		cl.RetryDelay = c.Backoff.GetDelay(failureCount)
	}
	return cl
}

// ClassifyHTTPStatus classifies an HTTP response status. 2xx is not a failure.
func (c *Classifier) ClassifyHTTPStatus(status int, failureCount int) domain.ErrorClassification {
	if status >= 200 && status < 300 {
		return domain.ErrorClassification{Type: domain.FailureTypeNone, Code: domain.CodeNone}
	}
	return c.ClassifyCode(codeForStatus(status), failureCount)
}

func codeForStatus(status int) domain.ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return domain.CodeValidationError
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.CodeUnauthorized
	case http.StatusNotFound:
		return domain.CodeLeagueNotFound
	case http.StatusRequestTimeout:
		return domain.CodeTimeout
	case http.StatusTooManyRequests:
		return domain.CodeRateLimited
	}
	if status >= 500 && status < 600 {
		return domain.CodeScrapeError
	}
	return domain.CodeUnknown
}

// ClassifyMessage classifies free text using MessageRules.
func (c *Classifier) ClassifyMessage(msg string, failureCount int) domain.ErrorClassification {
	lower := strings.ToLower(msg)
	for _, r := range MessageRules {
		if r.Match(lower) {
			return c.ClassifyCode(r.Code, failureCount)
		}
	}
	return c.ClassifyCode(domain.CodeUnknown, failureCount)
}

// Classify inspects err and dispatches to the matching classifier.
func (c *Classifier) Classify(err error, failureCount int) domain.ErrorClassification {
	if err == nil {
		return domain.ErrorClassification{Type: domain.FailureTypeNone, Code: domain.CodeNone}
	}

	var structured *feed.StructuredError
	if errors.As(err, &structured) {
		return c.ClassifyCode(structured.Code, failureCount)
	}

	var statusErr *feed.HTTPStatusError
	if errors.As(err, &statusErr) {
		return c.ClassifyHTTPStatus(statusErr.StatusCode, failureCount)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return c.ClassifyCode(domain.CodeTimeout, failureCount)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.ClassifyCode(domain.CodeTimeout, failureCount)
	}

	return c.ClassifyMessage(err.Error(), failureCount)
}

// ShouldEnableManualMode: persistent failures always escalate, transient ones
// only once failureCount reaches the threshold.
func (c *Classifier) ShouldEnableManualMode(cl domain.ErrorClassification, failureCount int) bool {
	switch cl.Type {
	case domain.FailureTypePersistent:
		return true
	case domain.FailureTypeTransient:
		return failureCount >= c.ManualThreshold
	default:
		return false
	}
}

// ClassifyCode classifies a code with the default classifier.
func ClassifyCode(code domain.ErrorCode, failureCount int) domain.ErrorClassification {
	return Default.ClassifyCode(code, failureCount)
}

// ClassifyHTTPStatus classifies a status with the default classifier.
func ClassifyHTTPStatus(status int, failureCount int) domain.ErrorClassification {
	return Default.ClassifyHTTPStatus(status, failureCount)
}

// ClassifyMessage classifies free text with the default classifier.
func ClassifyMessage(msg string, failureCount int) domain.ErrorClassification {
	return Default.ClassifyMessage(msg, failureCount)
}

// Classify classifies an error with the default classifier.
func Classify(err error, failureCount int) domain.ErrorClassification {
	return Default.Classify(err, failureCount)
}

// ShouldEnableManualMode applies the default threshold.
func ShouldEnableManualMode(cl domain.ErrorClassification, failureCount int) bool {
	return Default.ShouldEnableManualMode(cl, failureCount)
}
