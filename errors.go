package newsharvest

import (
	"errors"
	"fmt"
)

// Kind names a failure class in the adapter error taxonomy. Entry-time
// kinds abort a run before any fetch is opened; per-item kinds are
// logged and the crawl continues.
type Kind string

const (
	// KindInputMissing reports a required field missing for the chosen mode.
	KindInputMissing Kind = "InputMissing"
	// KindInvalidArgument reports mutually exclusive fields supplied together.
	KindInvalidArgument Kind = "InvalidArgument"
	// KindInvalidDate reports a violated window-validation rule.
	KindInvalidDate Kind = "InvalidDate"
	// KindSitemapScrapping reports a failed discovery-index parse.
	KindSitemapScrapping Kind = "SitemapScrapping"
	// KindSitemapArticleScrapping reports a failed single discovery-page parse.
	KindSitemapArticleScrapping Kind = "SitemapArticleScrapping"
	// KindArticleScrapping reports a failed article-page extraction.
	KindArticleScrapping Kind = "ArticleScrapping"
	// KindRequestHeaders reports failed header or cookie acquisition.
	KindRequestHeaders Kind = "RequestHeaders"
	// KindProxyConnection reports an unusable proxy: 403/407 upstream
	// answers or tunnel errors past the threshold.
	KindProxyConnection Kind = "ProxyConnection"
	// KindExportOutputFile reports a failed final sink write.
	KindExportOutputFile Kind = "ExportOutputFile"
	// KindParseFunctionFailed is the catch-all around the mode dispatcher.
	KindParseFunctionFailed Kind = "ParseFunctionFailed"
)

// Fatal reports whether the kind aborts a run at entry time.
func (k Kind) Fatal() bool {
	switch k {
	case KindInputMissing, KindInvalidArgument, KindInvalidDate:
		return true
	}
	return false
}

// ProxySentinel is the single result surfaced to the callback when the
// fetch statistics indicate a broken proxy configuration.
const ProxySentinel = "Error in Proxy Configuration"

// Error is a classified adapter failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message != "" {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same kind, so callers can test
// errors.Is(err, &Error{Kind: KindInvalidDate}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// NewError builds a classified error with a plain message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError builds a classified error around a cause.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from a classified error, or "" for plain
// errors and nil.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
