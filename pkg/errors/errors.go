package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents transport errors (timeout, DNS, connection reset)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit represents an HTTP 429 rate-limit signal
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeNotFound represents an HTTP 404 beyond the last board page
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeParse represents HTML parsing errors
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeResolve represents interstitial redirect resolution errors
	ErrorTypeResolve ErrorType = "resolve"
	// ErrorTypeStorage represents persistence errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// CrawlError represents a crawl-specific error
type CrawlError struct {
	Type    ErrorType
	SiteKey string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *CrawlError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.SiteKey, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.SiteKey, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlError) Unwrap() error {
	return e.Err
}

// New creates a new CrawlError
func New(errType ErrorType, siteKey, message string, err error) *CrawlError {
	return &CrawlError{
		Type:    errType,
		SiteKey: siteKey,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new transport error
func NewNetwork(siteKey, message string, err error) *CrawlError {
	return New(ErrorTypeNetwork, siteKey, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(siteKey, retryAfter string) *CrawlError {
	message := "rate limited"
	if retryAfter != "" {
		message = fmt.Sprintf("rate limited; retry after %s", retryAfter)
	}
	return New(ErrorTypeRateLimit, siteKey, message, nil)
}

// NewNotFound creates a new end-of-content error
func NewNotFound(siteKey, url string) *CrawlError {
	return New(ErrorTypeNotFound, siteKey, fmt.Sprintf("page not found: %s", url), nil)
}

// NewParse creates a new parsing error
func NewParse(siteKey, message string, err error) *CrawlError {
	return New(ErrorTypeParse, siteKey, message, err)
}

// NewResolve creates a new indirection resolution error
func NewResolve(siteKey, message string, err error) *CrawlError {
	return New(ErrorTypeResolve, siteKey, message, err)
}

// NewStorage creates a new persistence error
func NewStorage(message string, err error) *CrawlError {
	return New(ErrorTypeStorage, "", message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// IsType reports whether err is a CrawlError of the given type
func IsType(err error, errType ErrorType) bool {
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce.Type == errType
	}
	return false
}

// IsRateLimit reports whether err is a rate-limit signal
func IsRateLimit(err error) bool {
	return IsType(err, ErrorTypeRateLimit)
}

// IsNotFound reports whether err is an end-of-content signal
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}
