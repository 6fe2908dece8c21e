package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/five82/basket/internal/shop"
)

// Kind classifies a failed request.
type Kind int

const (
	// KindNone is reported for a nil error.
	KindNone Kind = iota
	// KindGeneric covers transport failures and any status not listed below.
	KindGeneric
	// KindUnauthorized is a 401 response.
	KindUnauthorized
	// KindNotFound is a 404 response.
	KindNotFound
	// KindConflict is a 409 response.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "generic"
	}
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		return KindGeneric
	}
}

// HTTPError is returned for any non-2xx response. The body is kept so
// callers can inspect it after the request has completed.
type HTTPError struct {
	Kind       Kind
	Status     int
	StatusText string
	Method     string
	Path       string
	Header     http.Header

	body []byte

	fieldOnce   sync.Once
	fieldErrors []shop.FieldError
	fieldErr    error
}

func newHTTPError(method, path string, resp *http.Response, body []byte) *HTTPError {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return &HTTPError{
		Kind:       kindForStatus(resp.StatusCode),
		Status:     resp.StatusCode,
		StatusText: text,
		Method:     method,
		Path:       path,
		Header:     resp.Header.Clone(),
		body:       body,
	}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("api %s %s returned status %d %s", e.Method, e.Path, e.Status, e.StatusText)
}

// Body returns a copy of the raw response body.
func (e *HTTPError) Body() []byte {
	return append([]byte(nil), e.body...)
}

// DecodeBody decodes the response body as JSON into v.
func (e *HTTPError) DecodeBody(v any) error {
	if len(e.body) == 0 {
		return fmt.Errorf("decode error body: empty")
	}
	if err := json.Unmarshal(e.body, v); err != nil {
		return fmt.Errorf("decode error body: %w", err)
	}
	return nil
}

// FieldErrors returns the validation errors carried by a 400 response. The
// body is decoded at most once.
func (e *HTTPError) FieldErrors() ([]shop.FieldError, error) {
	e.fieldOnce.Do(func() {
		var fields []shop.FieldError
		if err := e.DecodeBody(&fields); err != nil {
			e.fieldErr = err
			return
		}
		e.fieldErrors = fields
	})
	return e.fieldErrors, e.fieldErr
}

// Message returns the "error" string of a JSON error body, if any.
func (e *HTTPError) Message() string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(e.body, &payload); err != nil {
		return ""
	}
	return payload.Error
}

// KindOf classifies err. Errors that are not an *HTTPError are KindGeneric.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Kind
	}
	return KindGeneric
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is a 409 response.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }
