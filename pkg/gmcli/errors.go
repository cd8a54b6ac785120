package gmcli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
)

var (
	// ErrNotConfigured means no usable client credentials are stored.
	ErrNotConfigured = errors.New("not configured: run 'gmcli configure <client-id>' first")
	// ErrNotLoggedIn means no token pair is stored.
	ErrNotLoggedIn = errors.New("not logged in: run 'gmcli login' first")
)

// HTTPError is a non-2xx response from the message store.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d - %s", e.Status, e.Body)
}

// DecodeError is a response body that could not be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// LabelNotFoundError names a label that does not exist remotely.
type LabelNotFoundError struct {
	Name string
}

func (e *LabelNotFoundError) Error() string {
	return fmt.Sprintf("label not found: %s", e.Name)
}

// apiError maps transport errors from the Gmail library onto HTTPError and
// DecodeError. Other errors are returned unchanged.
func apiError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &HTTPError{Status: gerr.Code, Body: gerr.Body}
	}
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &DecodeError{Err: err}
	}
	return err
}
