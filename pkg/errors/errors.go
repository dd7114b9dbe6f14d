package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeConfiguration represents a missing or malformed config file
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeValidation represents invalid search criteria or run parameters
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNetwork represents network-related fetch errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeTimeout represents a page load that exceeded its timeout
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeChallenge represents a bot-detection interstitial served instead of results
	ErrorTypeChallenge ErrorType = "challenge"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypePersistence represents output write errors
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
)

// CrawlerError represents a crawler-specific error
type CrawlerError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	if e.Source == "" {
		if e.Err != nil {
			return fmt.Sprintf("[%s] %s - %v", e.Type, e.Message, e.Err)
		}
		return fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// IsFetchFailure returns true if the error only costs the current page
func (e *CrawlerError) IsFetchFailure() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeChallenge, ErrorTypeParsing:
		return true
	default:
		return false
	}
}

// IsFatal returns true if the error must abort the run
func (e *CrawlerError) IsFatal() bool {
	switch e.Type {
	case ErrorTypeValidation, ErrorTypePersistence:
		return true
	default:
		return false
	}
}

// New creates a new CrawlerError
func New(errType ErrorType, source, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewConfiguration creates a new configuration error
func NewConfiguration(path, message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, path, message, err)
}

// NewValidation creates a new validation error
func NewValidation(field, message string) *CrawlerError {
	return New(ErrorTypeValidation, field, message, nil)
}

// NewNetwork creates a new network error
func NewNetwork(url, message string, err error) *CrawlerError {
	return New(ErrorTypeNetwork, url, message, err)
}

// NewTimeout creates a new timeout error
func NewTimeout(url string, timeout time.Duration, err error) *CrawlerError {
	return New(ErrorTypeTimeout, url, fmt.Sprintf("page load exceeded %v", timeout), err)
}

// NewChallenge creates a new challenge page error
func NewChallenge(url, marker string) *CrawlerError {
	return New(ErrorTypeChallenge, url, fmt.Sprintf("challenge page detected (%s)", marker), nil)
}

// NewParsing creates a new parsing error
func NewParsing(url, message string, err error) *CrawlerError {
	return New(ErrorTypeParsing, url, message, err)
}

// NewPersistence creates a new persistence error
func NewPersistence(path, message string, err error) *CrawlerError {
	return New(ErrorTypePersistence, path, message, err)
}

// NewCache creates a new cache error
func NewCache(key, message string, err error) *CrawlerError {
	return New(ErrorTypeCache, key, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(stream, message string, err error) *CrawlerError {
	return New(ErrorTypePublisher, stream, message, err)
}

// IsType reports whether any error in err's chain is a CrawlerError of the given type
func IsType(err error, errType ErrorType) bool {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.Type == errType
	}
	return false
}

// IsFetchFailure reports whether err is a recoverable per-page fetch failure
func IsFetchFailure(err error) bool {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.IsFetchFailure()
	}
	return false
}

// IsFatal reports whether err must abort the run
func IsFatal(err error) bool {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.IsFatal()
	}
	return false
}
