package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-unifi-rules/internal/response"
	"github.com/lexfrei/go-unifi-rules/observability"
)

type stage int

const (
	stageUnauthenticated stage = iota
	stageAuthenticated
	stageReady
)

func (s stage) String() string {
	switch s {
	case stageAuthenticated:
		return "authenticated"
	case stageReady:
		return "ready"
	default:
		return "unauthenticated"
	}
}

// session is the login state of one client. Cookies live in the HTTP client's jar.
// Stage and site are only touched while the gate is held. The device type is
// written under the gate but may be read at any time. The CSRF token has its own
// lock because middleware reads it during gated requests.
type session struct {
	gate chan struct{}

	stage stage
	site  string
	udm   atomic.Bool

	tokenMu   sync.RWMutex
	csrfToken string
}

func newSession() *session {
	return &session{gate: make(chan struct{}, 1)}
}

// CSRFToken implements middleware.TokenStore.
func (s *session) CSRFToken() string {
	s.tokenMu.RLock()
	defer s.tokenMu.RUnlock()
	return s.csrfToken
}

// SetCSRFToken implements middleware.TokenStore.
func (s *session) SetCSRFToken(token string) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	s.csrfToken = token
}

func (s *session) lock(ctx context.Context) error {
	select {
	case s.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "context canceled waiting for session")
	}
}

func (s *session) unlock() {
	<-s.gate
}

// target is what a ready session resolves requests against.
type target struct {
	udm  bool
	site string
}

// ensureReady drives the session to the ready stage. Concurrent callers wait for
// the one in progress and then observe its outcome. A failed step leaves the
// session where it was so the next call tries again.
func (c *Client) ensureReady(ctx context.Context) (target, error) {
	if err := c.session.lock(ctx); err != nil {
		return target{}, err
	}
	defer c.session.unlock()

	if c.session.stage == stageUnauthenticated {
		if err := c.login(ctx); err != nil {
			return target{}, err
		}
	}

	if c.session.stage == stageAuthenticated {
		site, err := c.resolveSite(ctx, c.session.udm.Load())
		if err != nil {
			return target{}, err
		}
		c.session.site = site
		c.advance(stageReady)
	}

	return target{udm: c.session.udm.Load(), site: c.session.site}, nil
}

// Authenticate logs in to the controller, replacing any previous session cookies
// and token. On failure the previous cookies and token stay in place.
//
// A site that was already resolved is kept, even when the login succeeds on the
// other endpoint and flips IsUDM. Site names do not depend on the URL prefix.
func (c *Client) Authenticate(ctx context.Context) error {
	if err := c.session.lock(ctx); err != nil {
		return err
	}
	defer c.session.unlock()

	return c.login(ctx)
}

// login tries each login endpoint in order and stops at the first 200.
// Caller must hold the session gate.
func (c *Client) login(ctx context.Context) error {
	body, err := json.Marshal(struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{
		Username: c.username,
		Password: c.password,
	})
	if err != nil {
		return &AuthError{Err: errors.Wrap(err, "failed to encode credentials")}
	}

	// A fresh login hands out its own token; never replay the previous one.
	// It is put back if no endpoint accepts.
	previous := c.session.CSRFToken()
	c.session.SetCSRFToken("")

	var lastErr error
	for _, path := range loginPaths {
		err := c.tryLogin(ctx, path, body)
		if err == nil {
			c.session.udm.Store(path == authLoginPath)
			if c.session.stage == stageUnauthenticated {
				c.advance(stageAuthenticated)
			}

			c.logger.Info("authenticated with controller",
				observability.Field{Key: "host", Value: c.baseURL},
				observability.Field{Key: "udm", Value: c.session.udm.Load()},
			)

			return nil
		}

		c.logger.Debug("login endpoint rejected",
			observability.Field{Key: "endpoint", Value: path},
			observability.Err(err),
		)

		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	c.session.SetCSRFToken(previous)
	c.metrics.RecordError("authenticate", "AuthError")

	return &AuthError{Err: lastErr}
}

// advance moves the session to next. Caller must hold the session gate.
func (c *Client) advance(next stage) {
	c.logger.Debug("session stage changed",
		observability.Field{Key: "from", Value: c.session.stage.String()},
		observability.Field{Key: "to", Value: next.String()},
	)
	c.session.stage = next
}

func (c *Client) tryLogin(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolveURL(false, path), bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create login request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	defer response.Close(resp)

	//nolint:wrapcheck // response.Check wraps errors internally
	return response.Check(resp, err, "failed to log in via "+path)
}
