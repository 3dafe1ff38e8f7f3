package controller

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrAuth     = errors.New("authentication failed")
	ErrSite     = errors.New("site discovery failed")
	ErrFetch    = errors.New("rule fetch failed")
	ErrNotFound = errors.New("rule not found")
	ErrUpdate   = errors.New("rule update failed")
)

// AuthError is returned when every login endpoint rejected the credentials or was unreachable.
type AuthError struct {
	// Err is the last transport or status failure observed, if any.
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return "authentication failed for all endpoints: " + e.Err.Error()
	}
	return "authentication failed for all endpoints"
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is reports whether target is ErrAuth.
func (e *AuthError) Is(target error) bool { return target == ErrAuth } //nolint:errorlint // sentinel identity

// SiteError is returned when the site listing failed or contained no usable site.
type SiteError struct {
	StatusCode int
	Err        error
}

func (e *SiteError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("failed to get site information: status=%d", e.StatusCode)
	case e.Err != nil:
		return "failed to get site information: " + e.Err.Error()
	default:
		return "failed to get site information"
	}
}

func (e *SiteError) Unwrap() error { return e.Err }

// Is reports whether target is ErrSite.
func (e *SiteError) Is(target error) bool { return target == ErrSite } //nolint:errorlint // sentinel identity

// FetchError is returned when a rule listing could not be retrieved or decoded.
type FetchError struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s rules: status=%d", e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch %s rules: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("failed to fetch %s rules", e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is reports whether target is ErrFetch.
func (e *FetchError) Is(target error) bool { return target == ErrFetch } //nolint:errorlint // sentinel identity

// NotFoundError is returned when a rule key is absent from the freshly fetched set.
// No write is issued in that case.
type NotFoundError struct {
	Kind Kind
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s rule %q not found", e.Kind, e.Key)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound } //nolint:errorlint // sentinel identity

// UpdateError is returned when the controller did not accept a rule write.
type UpdateError struct {
	Kind       Kind
	Key        string
	StatusCode int
	Err        error
}

func (e *UpdateError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to update %s rule %q: status=%d", e.Kind, e.Key, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("failed to update %s rule %q: %v", e.Kind, e.Key, e.Err)
	}
	return fmt.Sprintf("failed to update %s rule %q", e.Kind, e.Key)
}

func (e *UpdateError) Unwrap() error { return e.Err }

// Is reports whether target is ErrUpdate.
func (e *UpdateError) Is(target error) bool { return target == ErrUpdate } //nolint:errorlint // sentinel identity
