package domain

import (
	"encoding/json"
	"time"
)

// ErrorCode is the machine-readable code attached to every sync failure.
type ErrorCode string

const (
	CodeNone            ErrorCode = ""
	CodeTimeout         ErrorCode = "TIMEOUT"
	CodeNetworkError    ErrorCode = "NETWORK_ERROR"
	CodeRateLimited     ErrorCode = "RATE_LIMITED"
	CodeScrapeError     ErrorCode = "SCRAPE_ERROR"
	CodeParseError      ErrorCode = "PARSE_ERROR"
	CodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	CodeLeagueNotFound  ErrorCode = "LEAGUE_NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeUnknown         ErrorCode = "UNKNOWN_ERROR"
)

// ErrorClassification is the typed result of classifying a raw failure.
// On the wire RetryDelay is whole milliseconds.
type ErrorClassification struct {
	Type           FailureType   `json:"type"`
	ShouldRetry    bool          `json:"should_retry"`
	RetryDelay     time.Duration `json:"-"`
	Code           ErrorCode     `json:"error_code"`
	DisplayMessage string        `json:"display_message"`
}

type classificationJSON struct {
	Type           FailureType `json:"type"`
	ShouldRetry    bool        `json:"should_retry"`
	RetryDelayMs   int64       `json:"retry_delay_ms"`
	Code           ErrorCode   `json:"error_code"`
	DisplayMessage string      `json:"display_message"`
}

func (c ErrorClassification) MarshalJSON() ([]byte, error) {
	return json.Marshal(classificationJSON{
		Type:           c.Type,
		ShouldRetry:    c.ShouldRetry,
		RetryDelayMs:   c.RetryDelay.Milliseconds(),
		Code:           c.Code,
		DisplayMessage: c.DisplayMessage,
	})
}

func (c *ErrorClassification) UnmarshalJSON(data []byte) error {
	var w classificationJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = ErrorClassification{
		Type:           w.Type,
		ShouldRetry:    w.ShouldRetry,
		RetryDelay:     time.Duration(w.RetryDelayMs) * time.Millisecond,
		Code:           w.Code,
		DisplayMessage: w.DisplayMessage,
	}
	return nil
}
