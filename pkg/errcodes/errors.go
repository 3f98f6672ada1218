package errcodes

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Codes for the library error taxonomy. Callers compare against these with
// HasCode (or errors.Is with one of the Err* values below) to decide whether
// to re-authenticate, retry, or surface a failure.
const (
	CodeRemoteUnreachable     = "remote_unreachable"
	CodeAuthenticationExpired = "authentication_expired"
	CodeNotFound              = "not_found"
	CodeMalformedResponse     = "malformed_response"
	CodeTimeout               = "timeout"
	CodeStorageCorrupted      = "storage_corrupted"
	CodeOperationFailed       = "operation_failed"
)

// Code-only targets for errors.Is.
var (
	ErrRemoteUnreachable     = &Error{Code: CodeRemoteUnreachable}
	ErrAuthenticationExpired = &Error{Code: CodeAuthenticationExpired}
	ErrNotFound              = &Error{Code: CodeNotFound}
	ErrMalformedResponse     = &Error{Code: CodeMalformedResponse}
	ErrTimeout               = &Error{Code: CodeTimeout}
	ErrStorageCorrupted      = &Error{Code: CodeStorageCorrupted}
	ErrOperationFailed       = &Error{Code: CodeOperationFailed}
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.HTTPCode = err.HTTPCode
	te.Message = err.Message
	te.Code = err.Code
	return true
}

// Is matches on code alone when the target carries no message, so the Err*
// values above match any error of that kind.
func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	if te.Message == "" && te.HTTPCode == 0 {
		return te.Code == err.Code
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// HasCode reports whether err (or anything it wraps) is an *Error with the
// given code.
func HasCode(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// RemoteUnreachable is returned when the media server can't be reached at all.
func RemoteUnreachable(detail string) error {
	return &Error{
		http.StatusBadGateway,
		"Remote server is unreachable: " + detail,
		CodeRemoteUnreachable,
	}
}

// AuthenticationExpired is returned when the media server rejects the token.
func AuthenticationExpired() error {
	return &Error{
		http.StatusUnauthorized,
		"Authentication with the remote server has expired.",
		CodeAuthenticationExpired,
	}
}

// NotFound returns a 404 error naming the resource type and id.
func NotFound(resource, id string) error {
	msg := resource + " not found."
	if id != "" {
		msg = fmt.Sprintf("%s %q not found.", resource, id)
	}
	return &Error{
		http.StatusNotFound,
		msg,
		CodeNotFound,
	}
}

func MalformedResponse(detail string) error {
	return &Error{
		http.StatusBadGateway,
		"Malformed response from remote server: " + detail,
		CodeMalformedResponse,
	}
}

func Timeout() error {
	return &Error{
		http.StatusGatewayTimeout,
		"Request to remote server timed out.",
		CodeTimeout,
	}
}

func StorageCorrupted(detail string) error {
	return &Error{
		http.StatusInternalServerError,
		"Local storage is corrupted: " + detail,
		CodeStorageCorrupted,
	}
}

func OperationFailed(reason string) error {
	return &Error{
		http.StatusConflict,
		reason,
		CodeOperationFailed,
	}
}

func UnsupportedMediaType() error {
	return &Error{
		http.StatusUnsupportedMediaType,
		"Unsupported Media Type",
		"unsupported_media_type",
	}
}

func UnknownParameter(param string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		fmt.Sprintf("Unknown Parameter %q", param),
		"unknown_parameter",
	}
}

func ValidationTypeError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_type_error",
	}
}

func ValidationError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_error",
	}
}

func MalformedPayload() error {
	return &Error{
		http.StatusBadRequest,
		"Malformed Payload",
		"malformed_payload",
	}
}

func EmptyRequestBody() error {
	return &Error{
		http.StatusBadRequest,
		"Request body can't be empty.",
		"empty_request_body",
	}
}
