// Package response provides helpers for checking and decoding controller responses.
package response

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/cockroachdb/errors"
)

// maxDrain bounds how much of an unread body is discarded before closing, so
// the connection can be reused without reading arbitrarily large payloads.
const maxDrain = 64 << 10

// StatusError reports a response whose status code was not among the expected ones.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "API error: status=" + strconv.Itoa(e.StatusCode)
}

// Check validates a response. It wraps a transport error with errorMsg and returns a
// *StatusError when the status code is not one of expected (200 when none are given).
//
// Usage:
//
//	resp, err := c.http.Do(req)
//	if err := response.Check(resp, err, "failed to list sites"); err != nil {
//	    ...
//	}
func Check(resp *http.Response, err error, errorMsg string, expected ...int) error {
	if err != nil {
		return errors.Wrap(err, errorMsg)
	}

	if len(expected) == 0 {
		expected = []int{http.StatusOK}
	}

	if !slices.Contains(expected, resp.StatusCode) {
		return &StatusError{StatusCode: resp.StatusCode}
	}

	return nil
}

// StatusCode extracts the status code carried by a *StatusError anywhere in err's chain.
// It returns 0 when there is none.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// Close drains a bounded amount of the body and closes it.
func Close(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, resp.Body, maxDrain)
	_ = resp.Body.Close()
}

// DecodeList reads a list of T that is either a bare JSON array or wrapped in a
// {"data": [...]} envelope. A null document or a missing data member yields an empty list.
func DecodeList[T any](body io.Reader, errorMsg string) ([]T, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Wrap(err, errorMsg)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.Wrap(errors.New("empty response from API"), errorMsg)
	}

	switch raw[0] {
	case '[':
		var list []T
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, errors.Wrap(err, errorMsg)
		}
		return list, nil

	case '{':
		var envelope struct {
			Data []T `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, errors.Wrap(err, errorMsg)
		}
		return envelope.Data, nil

	case 'n':
		if bytes.Equal(raw, []byte("null")) {
			return nil, nil
		}
	}

	return nil, errors.Wrap(errors.Newf("unexpected JSON document starting with %q", raw[0]), errorMsg)
}
